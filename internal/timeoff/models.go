// Package timeoff manages provider blackout periods, one-shot or recurring.
package timeoff

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lawlink/booking-platform/internal/schedule"
)

// ErrNotFound is returned when a period does not exist for the provider.
var ErrNotFound = errors.New("time off period not found")

// ErrInvalidPeriod marks validation failures on create.
var ErrInvalidPeriod = errors.New("invalid time off period")

// PeriodType labels why the provider is away.
type PeriodType string

const (
	TypeVacation PeriodType = "vacation"
	TypeCourt    PeriodType = "court"
	TypePersonal PeriodType = "personal"
	TypeOther    PeriodType = "other"
)

// Frequency is the recurrence cadence.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// Rule describes how a recurring period repeats. A weekly rule with DaysOfWeek
// set repeats on those weekdays; otherwise it repeats on the base weekday.
type Rule struct {
	Frequency  Frequency          `json:"frequency"`
	Interval   int                `json:"interval"`
	Until      *time.Time         `json:"until,omitempty"`
	DaysOfWeek []schedule.Weekday `json:"days_of_week,omitempty"`
}

// Period is a blackout window. Recurring periods store the first occurrence
// plus a rule; occurrences are expanded at query time, never materialized.
type Period struct {
	ID          uuid.UUID  `json:"id"`
	ProviderID  string     `json:"provider_id"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Type        PeriodType `json:"type"`
	IsRecurring bool       `json:"is_recurring"`
	Recurrence  *Rule      `json:"recurrence,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Validate rejects malformed periods before anything is stored.
func (p *Period) Validate() error {
	if p.ProviderID == "" {
		return fmt.Errorf("%w: provider id required", ErrInvalidPeriod)
	}
	if !p.EndTime.After(p.StartTime) {
		return fmt.Errorf("%w: end must be after start", ErrInvalidPeriod)
	}
	if p.IsRecurring {
		if p.Recurrence == nil {
			return fmt.Errorf("%w: recurring period needs a rule", ErrInvalidPeriod)
		}
		switch p.Recurrence.Frequency {
		case FrequencyDaily, FrequencyWeekly:
		default:
			return fmt.Errorf("%w: unknown frequency %q", ErrInvalidPeriod, p.Recurrence.Frequency)
		}
		if p.Recurrence.Interval < 1 {
			return fmt.Errorf("%w: interval must be at least 1", ErrInvalidPeriod)
		}
		for _, d := range p.Recurrence.DaysOfWeek {
			if d < schedule.Sunday || d > schedule.Saturday {
				return fmt.Errorf("%w: day of week %d out of range", ErrInvalidPeriod, d)
			}
		}
	}
	return nil
}
