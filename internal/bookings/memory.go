package bookings

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory consultation ledger for local development and
// tests.
type MemoryStore struct {
	mu            sync.RWMutex
	consultations map[uuid.UUID]Consultation
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{consultations: make(map[uuid.UUID]Consultation)}
}

// Create inserts a consultation.
func (m *MemoryStore) Create(ctx context.Context, c *Consultation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	m.mu.Lock()
	m.consultations[c.ID] = *c
	m.mu.Unlock()
	return nil
}

// ListOverlapping returns non-cancelled consultations intersecting [from, to).
func (m *MemoryStore) ListOverlapping(ctx context.Context, providerID string, from, to time.Time) ([]Consultation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Consultation
	for _, c := range m.consultations {
		if c.ProviderID != providerID || !c.OccupiesTime() {
			continue
		}
		if c.ScheduledAt.Before(to) && c.EndTime().After(from) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

// HasOverlapping reports whether any non-cancelled consultation intersects
// [start, end).
func (m *MemoryStore) HasOverlapping(ctx context.Context, providerID string, start, end time.Time) (bool, error) {
	overlapping, err := m.ListOverlapping(ctx, providerID, start, end)
	if err != nil {
		return false, err
	}
	return len(overlapping) > 0, nil
}

// Confirm transitions pending → confirmed.
func (m *MemoryStore) Confirm(ctx context.Context, id uuid.UUID) error {
	return m.transition(id, StatusConfirmed, StatusPending)
}

// Complete transitions confirmed → completed.
func (m *MemoryStore) Complete(ctx context.Context, id uuid.UUID) error {
	return m.transition(id, StatusCompleted, StatusConfirmed)
}

// Cancel transitions pending or confirmed → cancelled.
func (m *MemoryStore) Cancel(ctx context.Context, id uuid.UUID) error {
	return m.transition(id, StatusCancelled, StatusPending, StatusConfirmed)
}

func (m *MemoryStore) transition(id uuid.UUID, to Status, from ...Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.consultations[id]
	if !ok {
		return fmt.Errorf("bookings: transition to %s: %w", to, ErrNotFound)
	}
	for _, st := range from {
		if c.Status == st {
			c.Status = to
			c.UpdatedAt = time.Now().UTC()
			m.consultations[id] = c
			return nil
		}
	}
	return fmt.Errorf("bookings: transition to %s: %w", to, ErrInvalidTransition)
}
