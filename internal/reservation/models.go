// Package reservation implements short-lived holds on consultation windows.
// A hold moves Free → Held → Converted, Released, or Expired; at most one live
// hold or confirmed booking may cover any overlapping window per provider.
package reservation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSlotUnavailable is the expected outcome when another hold or booking
// already occupies the window. Retryable; not a failure.
var ErrSlotUnavailable = errors.New("slot unavailable")

// ErrNotFound is returned when a reservation does not exist or has expired.
var ErrNotFound = errors.New("reservation not found")

// ErrUnauthorized is returned when the caller's token does not own the hold.
var ErrUnauthorized = errors.New("reservation owned by another token")

// ErrInvalidWindow is returned for malformed reserve requests.
var ErrInvalidWindow = errors.New("invalid reservation window")

// SlotReservation is a TTL-bounded claim on a window, owned by whoever
// supplied ReservedBy.
type SlotReservation struct {
	ID               uuid.UUID `json:"id"`
	ProviderID       string    `json:"provider_id"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	ConsultationType string    `json:"consultation_type"`
	ReservedBy       string    `json:"reserved_by"`
	ClientID         string    `json:"client_id,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// Live reports whether the hold still blocks its window at the given instant.
func (r *SlotReservation) Live(now time.Time) bool {
	return r.ExpiresAt.After(now)
}
