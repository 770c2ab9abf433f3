package timeoff

import (
	"time"

	"github.com/lawlink/booking-platform/internal/schedule"
)

// Interval is a concrete blackout window produced by recurrence expansion.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Expand resolves a period into the concrete intervals that intersect
// [from, to). One-shot periods yield at most one interval; recurring periods
// are rolled forward occurrence by occurrence. Expansion goes one level deep:
// rules describe repeats of the base window, nothing recursive.
func Expand(p *Period, from, to time.Time) []Interval {
	if !p.IsRecurring || p.Recurrence == nil {
		if p.StartTime.Before(to) && p.EndTime.After(from) {
			return []Interval{{Start: p.StartTime, End: p.EndTime}}
		}
		return nil
	}

	rule := p.Recurrence
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}
	duration := p.EndTime.Sub(p.StartTime)

	limit := to
	if rule.Until != nil && rule.Until.Before(limit) {
		limit = *rule.Until
	}

	var out []Interval
	switch rule.Frequency {
	case FrequencyDaily:
		step := time.Duration(interval) * 24 * time.Hour
		first := fastForward(p.StartTime, step, from)
		for start := first; start.Before(limit); start = start.Add(step) {
			if start.Add(duration).After(from) {
				out = append(out, Interval{Start: start, End: start.Add(duration)})
			}
		}
	case FrequencyWeekly:
		days := rule.DaysOfWeek
		if len(days) == 0 {
			days = []schedule.Weekday{schedule.FromTime(p.StartTime.Weekday())}
		}
		allowed := map[schedule.Weekday]bool{}
		for _, d := range days {
			allowed[d] = true
		}
		weekStep := time.Duration(interval) * 7 * 24 * time.Hour
		// Walk week by week from the base occurrence, emitting one interval
		// per allowed weekday at the base time of day.
		first := fastForward(p.StartTime, weekStep, from.Add(-7*24*time.Hour))
		for weekStart := first; weekStart.Before(limit); weekStart = weekStart.Add(weekStep) {
			base := weekStart.AddDate(0, 0, -int(weekStart.Weekday()))
			for d := schedule.Sunday; d <= schedule.Saturday; d++ {
				if !allowed[d] {
					continue
				}
				start := base.AddDate(0, 0, int(d))
				if start.Before(p.StartTime) || !start.Before(limit) {
					continue
				}
				if start.Add(duration).After(from) && start.Before(to) {
					out = append(out, Interval{Start: start, End: start.Add(duration)})
				}
			}
		}
	}
	return out
}

// fastForward jumps base ahead by whole steps so expansion never iterates
// through years of occurrences that end before the query range.
func fastForward(base time.Time, step time.Duration, from time.Time) time.Time {
	if step <= 0 || !base.Before(from) {
		return base
	}
	n := from.Sub(base) / step
	if n > 1 {
		return base.Add((n - 1) * step)
	}
	return base
}

// ExpandAll expands every period against the range and flattens the result.
func ExpandAll(periods []Period, from, to time.Time) []Interval {
	var out []Interval
	for i := range periods {
		out = append(out, Expand(&periods[i], from, to)...)
	}
	return out
}
