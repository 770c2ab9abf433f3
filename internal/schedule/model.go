// Package schedule holds the provider-owned scheduling configuration: weekly
// working hours, breaks, and consultation pricing rules.
package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

// Weekday indexes the seven days, Sunday = 0, matching time.Weekday.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// FromTime converts a time.Weekday to the local enum.
func FromTime(d time.Weekday) Weekday {
	return Weekday(d)
}

func (d Weekday) String() string {
	names := [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	if d < Sunday || d > Saturday {
		return fmt.Sprintf("weekday(%d)", int(d))
	}
	return names[d]
}

// TimeOfDay is a minute-of-day (0..1439). JSON encodes as 24-hour "HH:MM".
type TimeOfDay int

// ParseTimeOfDay parses a 24-hour "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return 0, fmt.Errorf("schedule: parse time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("schedule: time of day %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON encodes the time as "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes "HH:MM" strings.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Break is a pause inside a working day, e.g. lunch.
type Break struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// DaySchedule is the working window for one weekday. Breaks must be ordered,
// non-overlapping, and inside [Start, End).
type DaySchedule struct {
	Start  TimeOfDay `json:"start"`
	End    TimeOfDay `json:"end"`
	Breaks []Break   `json:"breaks,omitempty"`
}

// WeeklySchedule maps each weekday to its working hours. Nil means the
// provider does not work that day.
type WeeklySchedule struct {
	Sunday    *DaySchedule `json:"sunday,omitempty"`
	Monday    *DaySchedule `json:"monday,omitempty"`
	Tuesday   *DaySchedule `json:"tuesday,omitempty"`
	Wednesday *DaySchedule `json:"wednesday,omitempty"`
	Thursday  *DaySchedule `json:"thursday,omitempty"`
	Friday    *DaySchedule `json:"friday,omitempty"`
	Saturday  *DaySchedule `json:"saturday,omitempty"`
}

// Day returns the schedule for a weekday, nil when the day is off.
func (w *WeeklySchedule) Day(d Weekday) *DaySchedule {
	switch d {
	case Sunday:
		return w.Sunday
	case Monday:
		return w.Monday
	case Tuesday:
		return w.Tuesday
	case Wednesday:
		return w.Wednesday
	case Thursday:
		return w.Thursday
	case Friday:
		return w.Friday
	case Saturday:
		return w.Saturday
	}
	return nil
}

// ConsultationTypeConfig prices one offered consultation type.
type ConsultationTypeConfig struct {
	Type            string `json:"type"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Enabled         bool   `json:"enabled"`
}

// ConsultationSettings holds booking rules that apply across the week.
type ConsultationSettings struct {
	DefaultDurationMinutes int                      `json:"default_duration_minutes"`
	BufferMinutes          int                      `json:"buffer_minutes"`
	MaxPerDay              int                      `json:"max_per_day"`
	AllowBackToBack        bool                     `json:"allow_back_to_back"`
	MinAdvanceHours        int                      `json:"min_advance_hours"`
	MaxAdvanceDays         int                      `json:"max_advance_days"`
	ConsultationTypes      []ConsultationTypeConfig `json:"consultation_types"`
}

// TypeConfig returns the enabled config for a consultation type, or the first
// enabled type when name is empty. ok is false when nothing is enabled.
func (s *ConsultationSettings) TypeConfig(name string) (ConsultationTypeConfig, bool) {
	for _, tc := range s.ConsultationTypes {
		if !tc.Enabled {
			continue
		}
		if name == "" || tc.Type == name {
			return tc, true
		}
	}
	return ConsultationTypeConfig{}, false
}

// HasEnabledType reports whether any consultation type is bookable.
func (s *ConsultationSettings) HasEnabledType() bool {
	_, ok := s.TypeConfig("")
	return ok
}

// AvailabilityProfile is the full scheduling configuration for one provider.
// Created lazily with defaults; replaced wholesale on upsert; never deleted.
type AvailabilityProfile struct {
	ProviderID string               `json:"provider_id"`
	Schedule   WeeklySchedule       `json:"schedule"`
	Settings   ConsultationSettings `json:"settings"`
	Timezone   string               `json:"timezone"`
	IsActive   bool                 `json:"is_active"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// DefaultProfile returns the profile served before a provider has published a
// schedule. Inactive, so it produces no bookable slots until the provider
// upserts a real one.
func DefaultProfile(providerID string) *AvailabilityProfile {
	weekday := &DaySchedule{
		Start:  9 * 60,
		End:    17 * 60,
		Breaks: []Break{{Start: 12 * 60, End: 13 * 60}},
	}
	return &AvailabilityProfile{
		ProviderID: providerID,
		Schedule: WeeklySchedule{
			Monday:    weekday,
			Tuesday:   weekday,
			Wednesday: weekday,
			Thursday:  weekday,
			Friday:    weekday,
		},
		Settings: ConsultationSettings{
			DefaultDurationMinutes: 60,
			BufferMinutes:          15,
			MaxPerDay:              8,
			AllowBackToBack:        false,
			MinAdvanceHours:        24,
			MaxAdvanceDays:         30,
			ConsultationTypes: []ConsultationTypeConfig{
				{Type: "standard", DurationMinutes: 60, PriceCents: 20000, Enabled: true},
				{Type: "brief", DurationMinutes: 30, PriceCents: 12000, Enabled: true},
			},
		},
		Timezone: "America/New_York",
		IsActive: false,
	}
}
