// Package bookings is the ledger of committed consultations. Once confirmed,
// a consultation outranks any reservation for the same window.
package bookings

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a consultation does not exist.
var ErrNotFound = errors.New("consultation not found")

// ErrInvalidTransition is returned for status changes the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid consultation status transition")

// Status tracks the consultation lifecycle:
// pending → confirmed → completed | cancelled.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Consultation is one committed booking. Only non-cancelled rows occupy time.
type Consultation struct {
	ID               uuid.UUID `json:"id"`
	ProviderID       string    `json:"provider_id"`
	ClientID         string    `json:"client_id,omitempty"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	DurationMinutes  int       `json:"duration_minutes"`
	ConsultationType string    `json:"consultation_type"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EndTime is the exclusive end of the occupied window.
func (c *Consultation) EndTime() time.Time {
	return c.ScheduledAt.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// OccupiesTime reports whether the consultation blocks its window.
func (c *Consultation) OccupiesTime() bool {
	return c.Status != StatusCancelled
}
