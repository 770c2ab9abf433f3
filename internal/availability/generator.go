package availability

import (
	"time"

	"github.com/lawlink/booking-platform/internal/schedule"
)

// GenerateInput drives one candidate-generation pass. Now anchors the
// advance-booking rules; all day math happens in Location.
type GenerateInput struct {
	Schedule        *schedule.WeeklySchedule
	Settings        *schedule.ConsultationSettings
	Location        *time.Location
	RangeStart      time.Time
	RangeEnd        time.Time
	DurationMinutes int
	Now             time.Time
}

// Generate walks each local day in [RangeStart, RangeEnd) and emits candidate
// windows inside the day's working hours. Candidates step by duration plus the
// buffer (zero when back-to-back is allowed) and must end at or before the
// working day's end. A start that lands inside a break snaps forward to the
// break's end. Time off, bookings, and holds are the resolver's job.
func Generate(in GenerateInput) []Window {
	if in.Schedule == nil || in.Settings == nil || !in.RangeEnd.After(in.RangeStart) {
		return nil
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	duration := time.Duration(in.DurationMinutes) * time.Minute
	if duration <= 0 {
		return nil
	}
	buffer := time.Duration(in.Settings.BufferMinutes) * time.Minute
	if in.Settings.AllowBackToBack {
		buffer = 0
	}
	step := duration + buffer

	earliest := in.Now.Add(time.Duration(in.Settings.MinAdvanceHours) * time.Hour)
	latest := in.Now.AddDate(0, 0, in.Settings.MaxAdvanceDays)

	var out []Window
	day := midnight(in.RangeStart.In(loc))
	for day.Before(in.RangeEnd) {
		ds := in.Schedule.Day(schedule.FromTime(day.Weekday()))
		if ds != nil {
			dayStart := day.Add(time.Duration(ds.Start) * time.Minute)
			dayEnd := day.Add(time.Duration(ds.End) * time.Minute)
			for start := dayStart; !start.Add(duration).After(dayEnd); start = start.Add(step) {
				if snapped, moved := snapPastBreak(start, day, ds.Breaks); moved {
					start = snapped
					if start.Add(duration).After(dayEnd) {
						break
					}
				}
				if !start.Before(in.RangeEnd) {
					break
				}
				if start.Before(in.RangeStart) {
					continue
				}
				if start.Before(earliest) || start.After(latest) {
					continue
				}
				out = append(out, Window{Start: start, End: start.Add(duration)})
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// snapPastBreak moves a start that falls inside a break to the break's end.
// A slot may run into a break, it just may not begin during one.
func snapPastBreak(start, day time.Time, breaks []schedule.Break) (time.Time, bool) {
	moved := false
	for _, br := range breaks {
		brStart := day.Add(time.Duration(br.Start) * time.Minute)
		brEnd := day.Add(time.Duration(br.End) * time.Minute)
		if !start.Before(brStart) && start.Before(brEnd) {
			start = brEnd
			moved = true
		}
	}
	return start, moved
}

// midnight truncates t to the start of its day in t's location.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
