package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lawlink/booking-platform/internal/reservation"
	"github.com/lawlink/booking-platform/pkg/logging"
)

var bookingsTracer = otel.Tracer("lawlink.internal.bookings")

// ConsultationStore is the persistence contract the service writes through.
type ConsultationStore interface {
	Create(ctx context.Context, c *Consultation) error
	Cancel(ctx context.Context, id uuid.UUID) error
}

// Holds is the slice of the reservation manager the booking flow needs.
type Holds interface {
	Find(ctx context.Context, id uuid.UUID) (*reservation.SlotReservation, error)
	Release(ctx context.Context, id uuid.UUID, reservedBy string) error
}

// Service converts live holds into committed consultations.
type Service struct {
	store  ConsultationStore
	holds  Holds
	clock  func() time.Time
	logger *logging.Logger
}

// NewService constructs a bookings service.
func NewService(store ConsultationStore, holds Holds, logger *logging.Logger) *Service {
	if store == nil {
		panic("bookings: store required")
	}
	if holds == nil {
		panic("bookings: holds required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:  store,
		holds:  holds,
		clock:  func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// ConfirmFromReservation converts a live hold into a confirmed consultation
// and releases the hold. The two writes are one logical step: if the release
// fails the window stays blocked until the hold's TTL, nothing worse.
func (s *Service) ConfirmFromReservation(ctx context.Context, reservationID uuid.UUID, reservedBy string) (*Consultation, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.confirm_from_reservation")
	defer span.End()
	span.SetAttributes(attribute.String("lawlink.reservation_id", reservationID.String()))

	hold, err := s.holds.Find(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if hold.ReservedBy != reservedBy {
		return nil, reservation.ErrUnauthorized
	}
	now := s.clock()
	if !hold.Live(now) {
		return nil, reservation.ErrNotFound
	}

	c := &Consultation{
		ProviderID:       hold.ProviderID,
		ClientID:         hold.ClientID,
		ScheduledAt:      hold.StartTime,
		DurationMinutes:  int(hold.EndTime.Sub(hold.StartTime) / time.Minute),
		ConsultationType: hold.ConsultationType,
		Status:           StatusConfirmed,
	}
	if err := s.store.Create(ctx, c); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("bookings: confirm from reservation: %w", err)
	}

	if err := s.holds.Release(ctx, reservationID, reservedBy); err != nil {
		// The consultation now outranks the hold anyway.
		s.logger.Warn("hold release after confirmation failed",
			"reservation_id", reservationID, "error", err)
	}

	s.logger.Info("consultation confirmed",
		"consultation_id", c.ID,
		"provider_id", c.ProviderID,
		"scheduled_at", c.ScheduledAt,
	)
	return c, nil
}

// Cancel frees a consultation's window.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	ctx, span := bookingsTracer.Start(ctx, "bookings.cancel")
	defer span.End()

	if err := s.store.Cancel(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("consultation cancelled", "consultation_id", id)
	return nil
}
