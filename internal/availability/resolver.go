package availability

import (
	"strings"
	"time"

	"github.com/lawlink/booking-platform/internal/bookings"
	"github.com/lawlink/booking-platform/internal/reservation"
	"github.com/lawlink/booking-platform/internal/schedule"
	"github.com/lawlink/booking-platform/internal/timeoff"
)

// FilterInput carries everything that can disqualify a candidate window.
type FilterInput struct {
	Candidates   []Window
	Schedule     *schedule.WeeklySchedule
	TimeOff      []timeoff.Interval
	Bookings     []bookings.Consultation
	Reservations []reservation.SlotReservation
	TypeConfig   schedule.ConsultationTypeConfig
	MaxPerDay    int
	Location     *time.Location
	Now          time.Time
}

// Filter drops candidates that start inside a break or collide with time off,
// occupying bookings, or live holds, then annotates survivors with the
// consultation type. A day whose booking count has reached MaxPerDay yields
// nothing.
func Filter(in FilterInput) []Slot {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	perDay := bookingsPerDay(in.Bookings, loc)

	slots := make([]Slot, 0, len(in.Candidates))
	for _, cand := range in.Candidates {
		if in.MaxPerDay > 0 && perDay[localDate(cand.Start, loc)] >= in.MaxPerDay {
			continue
		}
		if startsInBreak(cand, in.Schedule, loc) {
			continue
		}
		if overlapsTimeOff(cand, in.TimeOff) {
			continue
		}
		if overlapsBooking(cand, in.Bookings) {
			continue
		}
		if overlapsHold(cand, in.Reservations, in.Now) {
			continue
		}
		slots = append(slots, Slot{
			StartTime:        cand.Start,
			EndTime:          cand.End,
			ConsultationType: in.TypeConfig.Type,
			PriceCents:       in.TypeConfig.PriceCents,
			IsEmergencySlot:  strings.EqualFold(in.TypeConfig.Type, "emergency"),
		})
	}
	return slots
}

func bookingsPerDay(list []bookings.Consultation, loc *time.Location) map[string]int {
	counts := make(map[string]int, len(list))
	for _, c := range list {
		if !c.OccupiesTime() {
			continue
		}
		counts[localDate(c.ScheduledAt, loc)]++
	}
	return counts
}

func localDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// startsInBreak mirrors the generator's snapping rule: a slot may run into a
// break but never begin during one.
func startsInBreak(w Window, weekly *schedule.WeeklySchedule, loc *time.Location) bool {
	if weekly == nil {
		return false
	}
	local := w.Start.In(loc)
	ds := weekly.Day(schedule.FromTime(local.Weekday()))
	if ds == nil {
		return false
	}
	day := midnight(local)
	for _, br := range ds.Breaks {
		brStart := day.Add(time.Duration(br.Start) * time.Minute)
		brEnd := day.Add(time.Duration(br.End) * time.Minute)
		if !local.Before(brStart) && local.Before(brEnd) {
			return true
		}
	}
	return false
}

func overlapsTimeOff(w Window, periods []timeoff.Interval) bool {
	for _, p := range periods {
		if w.OverlapsRange(p.Start, p.End) {
			return true
		}
	}
	return false
}

func overlapsBooking(w Window, list []bookings.Consultation) bool {
	for _, c := range list {
		if !c.OccupiesTime() {
			continue
		}
		if w.OverlapsRange(c.ScheduledAt, c.EndTime()) {
			return true
		}
	}
	return false
}

func overlapsHold(w Window, holds []reservation.SlotReservation, now time.Time) bool {
	for _, h := range holds {
		if !h.Live(now) {
			continue
		}
		if w.OverlapsRange(h.StartTime, h.EndTime) {
			return true
		}
	}
	return false
}
