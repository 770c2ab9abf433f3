package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lawlink/booking-platform/internal/bookings"
	"github.com/lawlink/booking-platform/internal/observability/metrics"
	"github.com/lawlink/booking-platform/internal/reservation"
	"github.com/lawlink/booking-platform/internal/schedule"
	"github.com/lawlink/booking-platform/internal/timeoff"
	"github.com/lawlink/booking-platform/pkg/logging"
)

var tracer = otel.Tracer("lawlink.internal.availability")

// ProfileStore supplies and replaces provider availability profiles.
type ProfileStore interface {
	Get(ctx context.Context, providerID string) (*schedule.AvailabilityProfile, error)
	Set(ctx context.Context, profile *schedule.AvailabilityProfile) error
}

// TimeOffStore manages blackout periods.
type TimeOffStore interface {
	Add(ctx context.Context, p *timeoff.Period) error
	ListForRange(ctx context.Context, providerID string, from, to time.Time) ([]timeoff.Period, error)
	Remove(ctx context.Context, providerID string, id uuid.UUID) error
}

// BookingSource lists time-occupying consultations in a window.
type BookingSource interface {
	ListOverlapping(ctx context.Context, providerID string, from, to time.Time) ([]bookings.Consultation, error)
}

// HoldSource lists unexpired slot reservations in a window.
type HoldSource interface {
	ListLive(ctx context.Context, providerID string, from, to, now time.Time) ([]reservation.SlotReservation, error)
}

// Query selects the availability window and, optionally, a specific
// consultation type or duration override.
type Query struct {
	From             time.Time
	To               time.Time
	ConsultationType string
	DurationMinutes  int
}

// Result is one availability computation.
type Result struct {
	Slots         []Slot
	TotalCount    int
	NextAvailable *Slot
	CalculatedAt  time.Time
	ExpiresAt     time.Time
}

type resultJSON struct {
	Slots         []Slot `json:"slots"`
	TotalCount    int    `json:"total_count"`
	NextAvailable *Slot  `json:"next_available,omitempty"`
	CalculatedAt  int64  `json:"calculated_at"`
	ExpiresAt     int64  `json:"expires_at"`
}

// MarshalJSON encodes the freshness stamps as epoch milliseconds.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Slots:         r.Slots,
		TotalCount:    r.TotalCount,
		NextAvailable: r.NextAvailable,
		CalculatedAt:  r.CalculatedAt.UnixMilli(),
		ExpiresAt:     r.ExpiresAt.UnixMilli(),
	})
}

// Service computes availability and owns the profile and time-off surfaces,
// so every schedule edit funnels through the same cache eviction.
type Service struct {
	profiles     ProfileStore
	timeOff      TimeOffStore
	bookingsSrc  BookingSource
	holds        HoldSource
	cache        *Cache
	metrics      *metrics.BookingMetrics
	logger       *logging.Logger
	clock        func() time.Time
	maxRangeDays int
}

// NewService panics when a required store is missing. cache may be nil, in
// which case every query recomputes.
func NewService(profiles ProfileStore, timeOff TimeOffStore, bookingsSrc BookingSource, holds HoldSource, cache *Cache, m *metrics.BookingMetrics, logger *logging.Logger, maxRangeDays int) *Service {
	if profiles == nil {
		panic("availability: profile store is required")
	}
	if timeOff == nil {
		panic("availability: time off store is required")
	}
	if bookingsSrc == nil {
		panic("availability: booking source is required")
	}
	if holds == nil {
		panic("availability: hold source is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if maxRangeDays <= 0 {
		maxRangeDays = 90
	}
	return &Service{
		profiles:     profiles,
		timeOff:      timeOff,
		bookingsSrc:  bookingsSrc,
		holds:        holds,
		cache:        cache,
		metrics:      m,
		logger:       logger,
		clock:        time.Now,
		maxRangeDays: maxRangeDays,
	}
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// ComputeAvailability derives the bookable slots for a provider in [From, To).
// An inactive or unpublished profile yields an empty result, not an error.
func (s *Service) ComputeAvailability(ctx context.Context, providerID string, q Query) (*Result, error) {
	ctx, span := tracer.Start(ctx, "availability.compute")
	defer span.End()
	span.SetAttributes(attribute.String("provider_id", providerID))

	if !q.To.After(q.From) {
		return nil, ErrInvalidRange
	}
	if q.To.Sub(q.From) > time.Duration(s.maxRangeDays)*24*time.Hour {
		return nil, fmt.Errorf("%w: range exceeds %d days", ErrInvalidRange, s.maxRangeDays)
	}

	now := s.clock()
	started := now
	result := &Result{
		Slots:        []Slot{},
		CalculatedAt: now,
		ExpiresAt:    now.Add(s.cacheTTL()),
	}

	profile, err := s.profiles.Get(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("availability: load profile: %w", err)
	}
	if !profile.IsActive {
		return result, nil
	}

	typeCfg, ok := profile.Settings.TypeConfig(q.ConsultationType)
	if !ok {
		return result, nil
	}
	duration := q.DurationMinutes
	if duration <= 0 {
		duration = typeCfg.DurationMinutes
	}
	if duration <= 0 {
		duration = profile.Settings.DefaultDurationMinutes
	}

	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		s.logger.Warn("unknown provider timezone, using UTC", "provider_id", providerID, "timezone", profile.Timezone)
		loc = time.UTC
	}

	// Fetch conflicts once for the whole range, widened to local day
	// boundaries so per-day computations see everything they need.
	fetchFrom := midnight(q.From.In(loc))
	fetchTo := midnight(q.To.In(loc)).AddDate(0, 0, 1)

	periods, err := s.timeOff.ListForRange(ctx, providerID, fetchFrom, fetchTo)
	if err != nil {
		return nil, fmt.Errorf("availability: load time off: %w", err)
	}
	blackouts := timeoff.ExpandAll(periods, fetchFrom, fetchTo)

	booked, err := s.bookingsSrc.ListOverlapping(ctx, providerID, fetchFrom, fetchTo)
	if err != nil {
		return nil, fmt.Errorf("availability: load bookings: %w", err)
	}
	held, err := s.holds.ListLive(ctx, providerID, fetchFrom, fetchTo, now)
	if err != nil {
		return nil, fmt.Errorf("availability: load holds: %w", err)
	}

	compute := func(from, to time.Time) []Slot {
		candidates := Generate(GenerateInput{
			Schedule:        &profile.Schedule,
			Settings:        &profile.Settings,
			Location:        loc,
			RangeStart:      from,
			RangeEnd:        to,
			DurationMinutes: duration,
			Now:             now,
		})
		return Filter(FilterInput{
			Candidates:   candidates,
			Schedule:     &profile.Schedule,
			TimeOff:      blackouts,
			Bookings:     booked,
			Reservations: held,
			TypeConfig:   typeCfg,
			MaxPerDay:    profile.Settings.MaxPerDay,
			Location:     loc,
			Now:          now,
		})
	}

	// The cache holds whole provider-days for the default query shape.
	// Type- or duration-specific queries always compute.
	if s.cache != nil && q.ConsultationType == "" && q.DurationMinutes == 0 {
		for day := fetchFrom; day.Before(fetchTo); day = day.AddDate(0, 0, 1) {
			slots := s.dayThroughCache(ctx, providerID, day, now, compute)
			for _, slot := range slots {
				if slot.StartTime.Before(q.From) || !slot.StartTime.Before(q.To) {
					continue
				}
				result.Slots = append(result.Slots, slot)
			}
		}
	} else {
		result.Slots = compute(q.From, q.To)
	}

	result.TotalCount = len(result.Slots)
	if len(result.Slots) > 0 {
		next := result.Slots[0]
		result.NextAvailable = &next
	}
	s.metrics.ObserveCompute(time.Since(started).Seconds())
	return result, nil
}

// dayThroughCache returns one local day's slots, serving from the cache when
// a fresh entry exists. Cache failures are logged and degrade to a recompute.
func (s *Service) dayThroughCache(ctx context.Context, providerID string, day, now time.Time, compute func(from, to time.Time) []Slot) []Slot {
	date := day.Format("2006-01-02")
	cached, err := s.cache.Get(ctx, providerID, date)
	if err != nil {
		s.logger.Warn("availability cache read failed", "provider_id", providerID, "date", date, "error", err)
	}
	if cached != nil && cached.ExpiresAt.After(now) {
		s.metrics.ObserveCacheLookup("hit")
		return cached.Slots
	}
	s.metrics.ObserveCacheLookup("miss")

	slots := compute(day, day.AddDate(0, 0, 1))
	entry := &CachedDay{
		Slots:        slots,
		CalculatedAt: now,
		ExpiresAt:    now.Add(s.cache.TTL()),
	}
	if err := s.cache.Put(ctx, providerID, date, entry); err != nil {
		s.logger.Warn("availability cache write failed", "provider_id", providerID, "date", date, "error", err)
	}
	return slots
}

func (s *Service) cacheTTL() time.Duration {
	if s.cache != nil {
		return s.cache.TTL()
	}
	return time.Hour
}

// Profile returns the provider's profile, synthesizing the default for
// providers that have not published one.
func (s *Service) Profile(ctx context.Context, providerID string) (*schedule.AvailabilityProfile, error) {
	return s.profiles.Get(ctx, providerID)
}

// UpsertProfile replaces the profile wholesale and evicts cached slots.
func (s *Service) UpsertProfile(ctx context.Context, profile *schedule.AvailabilityProfile) error {
	ctx, span := tracer.Start(ctx, "availability.upsert_profile")
	defer span.End()

	if err := s.profiles.Set(ctx, profile); err != nil {
		return err
	}
	s.evict(ctx, profile.ProviderID)
	s.logger.Info("availability profile updated", "provider_id", profile.ProviderID)
	return nil
}

// AddTimeOff records a blackout period and evicts cached slots.
func (s *Service) AddTimeOff(ctx context.Context, p *timeoff.Period) error {
	ctx, span := tracer.Start(ctx, "availability.add_time_off")
	defer span.End()

	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.timeOff.Add(ctx, p); err != nil {
		return err
	}
	s.evict(ctx, p.ProviderID)
	s.logger.Info("time off added", "provider_id", p.ProviderID, "period_id", p.ID, "type", p.Type)
	return nil
}

// ListTimeOff returns periods relevant to [from, to).
func (s *Service) ListTimeOff(ctx context.Context, providerID string, from, to time.Time) ([]timeoff.Period, error) {
	return s.timeOff.ListForRange(ctx, providerID, from, to)
}

// RemoveTimeOff deletes an owned blackout period and evicts cached slots.
func (s *Service) RemoveTimeOff(ctx context.Context, providerID string, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "availability.remove_time_off")
	defer span.End()

	if err := s.timeOff.Remove(ctx, providerID, id); err != nil {
		return err
	}
	s.evict(ctx, providerID)
	s.logger.Info("time off removed", "provider_id", providerID, "period_id", id)
	return nil
}

func (s *Service) evict(ctx context.Context, providerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Evict(ctx, providerID); err != nil {
		s.logger.Warn("availability cache eviction failed", "provider_id", providerID, "error", err)
	}
}
