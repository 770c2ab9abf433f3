package reservation

import (
	"context"
	"errors"
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

// Store persists slot reservations in Postgres. The conflict check and insert
// run as one statement, backed by an exclusion constraint on overlapping
// windows, so two racing callers can never both win.
type Store struct {
	db DB
}

// NewStore creates a reservation store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Insert places a hold on the window if no live reservation and no
// non-cancelled consultation intersects it. Returns ErrSlotUnavailable when
// the window is taken.
func (s *Store) Insert(ctx context.Context, r *SlotReservation, now time.Time) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = now.UTC()

	// Reclaim expired holds overlapping this window first so the exclusion
	// constraint only ever sees live rows. Deleting an already-deleted row is
	// a no-op, so this needs no coordination.
	_, err := s.db.Exec(ctx, `
		DELETE FROM slot_reservations
		WHERE provider_id = $1 AND expires_at <= $2 AND start_time < $4 AND end_time > $3`,
		r.ProviderID, now, r.StartTime, r.EndTime)
	if err != nil {
		return fmt.Errorf("reservation: reclaim expired: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO slot_reservations (id, provider_id, start_time, end_time, consultation_type, reserved_by, client_id, expires_at, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (
			SELECT 1 FROM slot_reservations
			WHERE provider_id = $2 AND expires_at > $10 AND start_time < $4 AND end_time > $3
		) AND NOT EXISTS (
			SELECT 1 FROM consultations
			WHERE provider_id = $2 AND status <> 'cancelled'
			  AND scheduled_at < $4
			  AND scheduled_at + duration_minutes * interval '1 minute' > $3
		)`,
		r.ID, r.ProviderID, r.StartTime, r.EndTime, r.ConsultationType, r.ReservedBy, r.ClientID, r.ExpiresAt, r.CreatedAt, now)
	if err != nil {
		// A racing insert that slipped past the NOT EXISTS lands on the
		// exclusion constraint instead; both outcomes mean the slot is taken.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505") {
			return ErrSlotUnavailable
		}
		return fmt.Errorf("reservation: insert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotUnavailable
	}
	return nil
}

// Find returns a reservation by id, expired or not.
func (s *Store) Find(ctx context.Context, id uuid.UUID) (*SlotReservation, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, provider_id, start_time, end_time, consultation_type, reserved_by, client_id, expires_at, created_at
		FROM slot_reservations WHERE id = $1`, id)

	var r SlotReservation
	err := row.Scan(&r.ID, &r.ProviderID, &r.StartTime, &r.EndTime, &r.ConsultationType, &r.ReservedBy, &r.ClientID, &r.ExpiresAt, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reservation: find: %w", err)
	}
	return &r, nil
}

// Delete removes a hold after verifying the caller owns it.
func (s *Store) Delete(ctx context.Context, id uuid.UUID, reservedBy string) error {
	r, err := s.Find(ctx, id)
	if err != nil {
		return err
	}
	if r.ReservedBy != reservedBy {
		return ErrUnauthorized
	}

	tag, err := s.db.Exec(ctx, `
		DELETE FROM slot_reservations WHERE id = $1 AND reserved_by = $2`, id, reservedBy)
	if err != nil {
		return fmt.Errorf("reservation: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Swept between the lookup and the delete.
		return ErrNotFound
	}
	return nil
}

// ListLive returns live holds intersecting [from, to) for the provider.
func (s *Store) ListLive(ctx context.Context, providerID string, from, to, now time.Time) ([]SlotReservation, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, provider_id, start_time, end_time, consultation_type, reserved_by, client_id, expires_at, created_at
		FROM slot_reservations
		WHERE provider_id = $1 AND expires_at > $2 AND start_time < $4 AND end_time > $3
		ORDER BY start_time ASC`, providerID, now, from, to)
	if err != nil {
		return nil, fmt.Errorf("reservation: list live: %w", err)
	}
	defer rows.Close()

	var out []SlotReservation
	for rows.Next() {
		var r SlotReservation
		if err := rows.Scan(&r.ID, &r.ProviderID, &r.StartTime, &r.EndTime, &r.ConsultationType, &r.ReservedBy, &r.ClientID, &r.ExpiresAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("reservation: scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reservation: iterate: %w", err)
	}
	return out, nil
}

// DeleteExpired removes every hold whose expiry is at or before now and
// returns the count. Idempotent; safe to run concurrently with itself and
// with Insert.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM slot_reservations WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("reservation: delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}
