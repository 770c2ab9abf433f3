package timeoff

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory period store for local development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	periods map[uuid.UUID]Period
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{periods: make(map[uuid.UUID]Period)}
}

// Add inserts a new blackout period.
func (m *MemoryStore) Add(ctx context.Context, p *Period) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Type == "" {
		p.Type = TypeOther
	}
	p.CreatedAt = time.Now().UTC()

	m.mu.Lock()
	m.periods[p.ID] = *p
	m.mu.Unlock()
	return nil
}

// ListForRange returns periods that can affect [from, to), recurring ones
// unconditionally.
func (m *MemoryStore) ListForRange(ctx context.Context, providerID string, from, to time.Time) ([]Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Period
	for _, p := range m.periods {
		if p.ProviderID != providerID {
			continue
		}
		if p.IsRecurring || (p.StartTime.Before(to) && p.EndTime.After(from)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// Remove deletes a period owned by the provider.
func (m *MemoryStore) Remove(ctx context.Context, providerID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.periods[id]
	if !ok || p.ProviderID != providerID {
		return ErrNotFound
	}
	delete(m.periods, id)
	return nil
}
