// Package availability computes bookable slots from a provider's schedule,
// blackouts, bookings, and live holds. Generation and filtering are pure
// functions of their inputs, including an explicit now.
package availability

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidRange is returned for queries with a reversed or oversized range.
var ErrInvalidRange = errors.New("invalid availability range")

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports half-open intersection with other.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// OverlapsRange reports half-open intersection with [start, end).
func (w Window) OverlapsRange(start, end time.Time) bool {
	return w.Start.Before(end) && w.End.After(start)
}

// Slot is a bookable window with its consultation type attached. Derived,
// never persisted outside the advisory cache.
type Slot struct {
	StartTime        time.Time
	EndTime          time.Time
	ConsultationType string
	PriceCents       int64
	IsEmergencySlot  bool
}

type slotJSON struct {
	StartTime        int64  `json:"start_time"`
	EndTime          int64  `json:"end_time"`
	ConsultationType string `json:"consultation_type"`
	PriceCents       int64  `json:"price_cents"`
	IsEmergencySlot  bool   `json:"is_emergency_slot"`
}

// MarshalJSON encodes timestamps as epoch milliseconds.
func (s Slot) MarshalJSON() ([]byte, error) {
	return json.Marshal(slotJSON{
		StartTime:        s.StartTime.UnixMilli(),
		EndTime:          s.EndTime.UnixMilli(),
		ConsultationType: s.ConsultationType,
		PriceCents:       s.PriceCents,
		IsEmergencySlot:  s.IsEmergencySlot,
	})
}

// UnmarshalJSON decodes epoch-millisecond timestamps.
func (s *Slot) UnmarshalJSON(data []byte) error {
	var raw slotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.StartTime = time.UnixMilli(raw.StartTime).UTC()
	s.EndTime = time.UnixMilli(raw.EndTime).UTC()
	s.ConsultationType = raw.ConsultationType
	s.PriceCents = raw.PriceCents
	s.IsEmergencySlot = raw.IsEmergencySlot
	return nil
}
