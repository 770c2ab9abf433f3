package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lawlink/booking-platform/internal/observability/metrics"
	"github.com/lawlink/booking-platform/pkg/logging"
)

var reservationTracer = otel.Tracer("lawlink.internal.reservation")

// Ledger is the reservation persistence contract. Insert must evaluate its
// conflict check and the write as one atomic unit.
type Ledger interface {
	Insert(ctx context.Context, r *SlotReservation, now time.Time) error
	Find(ctx context.Context, id uuid.UUID) (*SlotReservation, error)
	Delete(ctx context.Context, id uuid.UUID, reservedBy string) error
	ListLive(ctx context.Context, providerID string, from, to, now time.Time) ([]SlotReservation, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Manager orchestrates reserve/release/expire against the ledger.
type Manager struct {
	ledger  Ledger
	ttl     time.Duration
	ttlMax  time.Duration
	clock   func() time.Time
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

// NewManager constructs a reservation manager.
func NewManager(ledger Ledger, defaultTTL, maxTTL time.Duration, logger *logging.Logger, m *metrics.BookingMetrics) *Manager {
	if ledger == nil {
		panic("reservation: ledger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if maxTTL < defaultTTL {
		maxTTL = defaultTTL
	}
	return &Manager{
		ledger:  ledger,
		ttl:     defaultTTL,
		ttlMax:  maxTTL,
		clock:   func() time.Time { return time.Now().UTC() },
		logger:  logger,
		metrics: m,
	}
}

// WithClock overrides the time source, for tests.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// ReserveInput describes a hold request.
type ReserveInput struct {
	ProviderID       string
	ClientID         string
	StartTime        time.Time
	EndTime          time.Time
	ConsultationType string
	ReservedBy       string
	TTL              time.Duration
}

// Reserve places a hold on the window. ErrSlotUnavailable is the expected
// outcome under contention and is logged at debug, not as a failure.
func (m *Manager) Reserve(ctx context.Context, input ReserveInput) (*SlotReservation, error) {
	ctx, span := reservationTracer.Start(ctx, "reservation.reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("lawlink.provider_id", input.ProviderID),
		attribute.String("lawlink.consultation_type", input.ConsultationType),
	)

	if input.ProviderID == "" || input.ReservedBy == "" {
		return nil, fmt.Errorf("%w: provider and owner token required", ErrInvalidWindow)
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidWindow)
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = m.ttl
	}
	if ttl > m.ttlMax {
		ttl = m.ttlMax
	}

	now := m.clock()
	hold := &SlotReservation{
		ProviderID:       input.ProviderID,
		ClientID:         input.ClientID,
		StartTime:        input.StartTime,
		EndTime:          input.EndTime,
		ConsultationType: input.ConsultationType,
		ReservedBy:       input.ReservedBy,
		ExpiresAt:        now.Add(ttl),
	}

	if err := m.ledger.Insert(ctx, hold, now); err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			m.metrics.ObserveReserve("conflict")
			m.logger.Debug("slot contention",
				"provider_id", input.ProviderID,
				"start", input.StartTime,
				"end", input.EndTime,
			)
			return nil, ErrSlotUnavailable
		}
		m.metrics.ObserveReserve("error")
		span.RecordError(err)
		return nil, err
	}

	m.metrics.ObserveReserve("held")
	m.logger.Info("slot held",
		"reservation_id", hold.ID,
		"provider_id", hold.ProviderID,
		"start", hold.StartTime,
		"expires_at", hold.ExpiresAt,
	)
	return hold, nil
}

// Release removes a hold. Only the owning token may release it.
func (m *Manager) Release(ctx context.Context, id uuid.UUID, reservedBy string) error {
	ctx, span := reservationTracer.Start(ctx, "reservation.release")
	defer span.End()

	if err := m.ledger.Delete(ctx, id, reservedBy); err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrUnauthorized) {
			span.RecordError(err)
		}
		return err
	}
	m.logger.Info("slot released", "reservation_id", id)
	return nil
}

// Find returns a reservation by id.
func (m *Manager) Find(ctx context.Context, id uuid.UUID) (*SlotReservation, error) {
	return m.ledger.Find(ctx, id)
}

// CleanupExpired deletes lapsed holds and returns the count removed.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, span := reservationTracer.Start(ctx, "reservation.cleanup_expired")
	defer span.End()

	deleted, err := m.ledger.DeleteExpired(ctx, m.clock())
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	m.metrics.ObserveSweep(deleted)
	if deleted > 0 {
		m.logger.Info("expired holds reclaimed", "count", deleted)
	}
	return deleted, nil
}
