package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSchedule marks profile validation failures. Callers match it with
// errors.Is; the wrapped message names the specific violation.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Validate checks a full profile before it is persisted. Nothing is applied
// when validation fails.
func (p *AvailabilityProfile) Validate() error {
	if p.ProviderID == "" {
		return fmt.Errorf("%w: provider id required", ErrInvalidSchedule)
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSchedule, p.Timezone)
		}
	}
	for d := Sunday; d <= Saturday; d++ {
		day := p.Schedule.Day(d)
		if day == nil {
			continue
		}
		if err := day.validate(d); err != nil {
			return err
		}
	}
	if err := p.Settings.validate(); err != nil {
		return err
	}
	return nil
}

func (ds *DaySchedule) validate(d Weekday) error {
	if ds.End <= ds.Start {
		return fmt.Errorf("%w: %s ends at %s, before start %s", ErrInvalidSchedule, d, ds.End, ds.Start)
	}
	if ds.Start < 0 || ds.End > 24*60 {
		return fmt.Errorf("%w: %s hours outside the day", ErrInvalidSchedule, d)
	}
	var prevEnd TimeOfDay
	for i, br := range ds.Breaks {
		if br.End <= br.Start {
			return fmt.Errorf("%w: %s break %s-%s is empty", ErrInvalidSchedule, d, br.Start, br.End)
		}
		if br.Start < ds.Start || br.End > ds.End {
			return fmt.Errorf("%w: %s break %s-%s outside working hours", ErrInvalidSchedule, d, br.Start, br.End)
		}
		if i > 0 && br.Start < prevEnd {
			return fmt.Errorf("%w: %s breaks must be ordered and non-overlapping", ErrInvalidSchedule, d)
		}
		prevEnd = br.End
	}
	return nil
}

func (s *ConsultationSettings) validate() error {
	if s.DefaultDurationMinutes <= 0 {
		return fmt.Errorf("%w: default duration must be positive", ErrInvalidSchedule)
	}
	if s.BufferMinutes < 0 {
		return fmt.Errorf("%w: buffer minutes must not be negative", ErrInvalidSchedule)
	}
	if s.MinAdvanceHours < 0 || s.MaxAdvanceDays <= 0 {
		return fmt.Errorf("%w: advance booking bounds must be sane", ErrInvalidSchedule)
	}
	for _, tc := range s.ConsultationTypes {
		if tc.Type == "" {
			return fmt.Errorf("%w: consultation type name required", ErrInvalidSchedule)
		}
		if tc.DurationMinutes <= 0 {
			return fmt.Errorf("%w: consultation type %q duration must be positive", ErrInvalidSchedule, tc.Type)
		}
		if tc.PriceCents < 0 {
			return fmt.Errorf("%w: consultation type %q price must not be negative", ErrInvalidSchedule, tc.Type)
		}
	}
	if !s.HasEnabledType() {
		return fmt.Errorf("%w: at least one consultation type must be enabled", ErrInvalidSchedule)
	}
	return nil
}
