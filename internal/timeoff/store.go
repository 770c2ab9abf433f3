package timeoff

import (
	"context"
	"encoding/json"
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

// Store provides persistence for time_off_periods.
type Store struct {
	db DB
}

// NewStore creates a time off store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Add inserts a new blackout period.
func (s *Store) Add(ctx context.Context, p *Period) error {
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

	var recurrence []byte
	if p.Recurrence != nil {
		data, err := json.Marshal(p.Recurrence)
		if err != nil {
			return fmt.Errorf("timeoff: marshal recurrence: %w", err)
		}
		recurrence = data
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO time_off_periods (id, provider_id, start_time, end_time, type, is_recurring, recurrence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.ProviderID, p.StartTime, p.EndTime, string(p.Type), p.IsRecurring, recurrence, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("timeoff: add period: %w", err)
	}
	return nil
}

// ListForRange returns the provider's periods that can affect [from, to).
// Recurring periods are always returned because their occurrences may fall in
// the range even when the base window does not; callers expand them.
func (s *Store) ListForRange(ctx context.Context, providerID string, from, to time.Time) ([]Period, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, provider_id, start_time, end_time, type, is_recurring, recurrence, created_at
		FROM time_off_periods
		WHERE provider_id = $1 AND (is_recurring OR (start_time < $3 AND end_time > $2))
		ORDER BY start_time ASC`, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("timeoff: list for range: %w", err)
	}
	defer rows.Close()
	return scanPeriods(rows)
}

// Remove deletes a period owned by the provider.
func (s *Store) Remove(ctx context.Context, providerID string, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM time_off_periods WHERE id = $1 AND provider_id = $2`, id, providerID)
	if err != nil {
		return fmt.Errorf("timeoff: remove period: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPeriods(rows pgx.Rows) ([]Period, error) {
	var periods []Period
	for rows.Next() {
		var p Period
		var typ string
		var recurrence []byte
		if err := rows.Scan(&p.ID, &p.ProviderID, &p.StartTime, &p.EndTime, &typ, &p.IsRecurring, &recurrence, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("timeoff: scan period: %w", err)
		}
		p.Type = PeriodType(typ)
		if len(recurrence) > 0 {
			var rule Rule
			if err := json.Unmarshal(recurrence, &rule); err != nil {
				return nil, fmt.Errorf("timeoff: unmarshal recurrence: %w", err)
			}
			p.Recurrence = &rule
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("timeoff: iterate periods: %w", err)
	}
	return periods, nil
}
