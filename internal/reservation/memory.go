package reservation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// BookingConflicts answers whether a committed booking occupies a window.
// The in-memory ledger needs it injected because, unlike the SQL store, it
// cannot join against the consultations table.
type BookingConflicts interface {
	HasOverlapping(ctx context.Context, providerID string, start, end time.Time) (bool, error)
}

// MemoryStore is a mutex-guarded reservation ledger. The mutex makes the
// check-then-insert in Insert a single atomic unit, the same guarantee the
// SQL store gets from its one-statement insert.
type MemoryStore struct {
	mu       sync.Mutex
	holds    map[uuid.UUID]SlotReservation
	bookings BookingConflicts
}

// NewMemoryStore creates an in-memory ledger. bookings may be nil when no
// consultation ledger participates in conflict checks.
func NewMemoryStore(bookings BookingConflicts) *MemoryStore {
	return &MemoryStore{
		holds:    make(map[uuid.UUID]SlotReservation),
		bookings: bookings,
	}
}

// Insert places a hold if the window is free of live holds and bookings.
func (m *MemoryStore) Insert(ctx context.Context, r *SlotReservation, now time.Time) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = now.UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range m.holds {
		if h.ProviderID != r.ProviderID || !h.Live(now) {
			continue
		}
		if h.StartTime.Before(r.EndTime) && h.EndTime.After(r.StartTime) {
			return ErrSlotUnavailable
		}
	}
	if m.bookings != nil {
		occupied, err := m.bookings.HasOverlapping(ctx, r.ProviderID, r.StartTime, r.EndTime)
		if err != nil {
			return err
		}
		if occupied {
			return ErrSlotUnavailable
		}
	}

	m.holds[r.ID] = *r
	return nil
}

// Find returns a reservation by id, expired or not.
func (m *MemoryStore) Find(ctx context.Context, id uuid.UUID) (*SlotReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.holds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

// Delete removes a hold after verifying ownership.
func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID, reservedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.holds[id]
	if !ok {
		return ErrNotFound
	}
	if r.ReservedBy != reservedBy {
		return ErrUnauthorized
	}
	delete(m.holds, id)
	return nil
}

// ListLive returns live holds intersecting [from, to).
func (m *MemoryStore) ListLive(ctx context.Context, providerID string, from, to, now time.Time) ([]SlotReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []SlotReservation
	for _, r := range m.holds {
		if r.ProviderID != providerID || !r.Live(now) {
			continue
		}
		if r.StartTime.Before(to) && r.EndTime.After(from) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// DeleteExpired removes holds with expires_at <= now and returns the count.
func (m *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, r := range m.holds {
		if !r.ExpiresAt.After(now) {
			delete(m.holds, id)
			deleted++
		}
	}
	return deleted, nil
}
