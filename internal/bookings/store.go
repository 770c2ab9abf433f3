package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides persistence for consultations.
type Store struct {
	db DB
}

// NewStore creates a consultation store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Create inserts a consultation row.
func (s *Store) Create(ctx context.Context, c *Consultation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO consultations (id, provider_id, client_id, scheduled_at, duration_minutes, consultation_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.ProviderID, c.ClientID, c.ScheduledAt, c.DurationMinutes, c.ConsultationType, string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("bookings: create consultation: %w", err)
	}
	return nil
}

// ListOverlapping returns non-cancelled consultations whose window intersects
// [from, to), ordered by start time.
func (s *Store) ListOverlapping(ctx context.Context, providerID string, from, to time.Time) ([]Consultation, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, provider_id, client_id, scheduled_at, duration_minutes, consultation_type, status, created_at, updated_at
		FROM consultations
		WHERE provider_id = $1
		  AND status <> 'cancelled'
		  AND scheduled_at < $3
		  AND scheduled_at + duration_minutes * interval '1 minute' > $2
		ORDER BY scheduled_at ASC`, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("bookings: list overlapping: %w", err)
	}
	defer rows.Close()
	return scanConsultations(rows)
}

// HasOverlapping reports whether any non-cancelled consultation intersects
// [start, end).
func (s *Store) HasOverlapping(ctx context.Context, providerID string, start, end time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM consultations
			WHERE provider_id = $1
			  AND status <> 'cancelled'
			  AND scheduled_at < $3
			  AND scheduled_at + duration_minutes * interval '1 minute' > $2
		)`, providerID, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("bookings: has overlapping: %w", err)
	}
	return exists, nil
}

// Confirm transitions a consultation from pending to confirmed.
func (s *Store) Confirm(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusConfirmed, []Status{StatusPending})
}

// Complete transitions a consultation from confirmed to completed.
func (s *Store) Complete(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusCompleted, []Status{StatusConfirmed})
}

// Cancel transitions a pending or confirmed consultation to cancelled,
// freeing its window.
func (s *Store) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusCancelled, []Status{StatusPending, StatusConfirmed})
}

func (s *Store) transition(ctx context.Context, id uuid.UUID, to Status, from []Status) error {
	states := make([]string, len(from))
	for i, st := range from {
		states[i] = string(st)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE consultations SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)`,
		string(to), time.Now().UTC(), id, states)
	if err != nil {
		return fmt.Errorf("bookings: transition to %s: %w", to, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM consultations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("bookings: transition to %s: %w", to, err)
		}
		if !exists {
			return fmt.Errorf("bookings: transition to %s: %w", to, ErrNotFound)
		}
		return fmt.Errorf("bookings: transition to %s: %w", to, ErrInvalidTransition)
	}
	return nil
}

func scanConsultations(rows pgx.Rows) ([]Consultation, error) {
	var out []Consultation
	for rows.Next() {
		var c Consultation
		var status string
		if err := rows.Scan(&c.ID, &c.ProviderID, &c.ClientID, &c.ScheduledAt, &c.DurationMinutes, &c.ConsultationType, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("bookings: scan consultation: %w", err)
		}
		c.Status = Status(status)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: iterate consultations: %w", err)
	}
	return out, nil
}
