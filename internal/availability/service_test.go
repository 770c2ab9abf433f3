package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawlink/booking-platform/internal/bookings"
	"github.com/lawlink/booking-platform/internal/reservation"
	"github.com/lawlink/booking-platform/internal/schedule"
	"github.com/lawlink/booking-platform/internal/timeoff"
)

type serviceFixture struct {
	svc          *Service
	profiles     *schedule.Store
	timeOff      *timeoff.MemoryStore
	bookingStore *bookings.MemoryStore
	holds        *reservation.MemoryStore
	now          time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	rdb := setupTestRedis(t)
	profiles := schedule.NewStore(rdb)
	timeOff := timeoff.NewMemoryStore()
	bookingStore := bookings.NewMemoryStore()
	holds := reservation.NewMemoryStore(bookingStore)
	cache := NewCache(rdb, time.Hour)

	now := monday.Add(-24 * time.Hour) // Sunday 00:00 UTC
	svc := NewService(profiles, timeOff, bookingStore, holds, cache, nil, nil, 90).
		WithClock(func() time.Time { return now })

	return &serviceFixture{
		svc:          svc,
		profiles:     profiles,
		timeOff:      timeOff,
		bookingStore: bookingStore,
		holds:        holds,
		now:          now,
	}
}

func activeProfile(providerID string) *schedule.AvailabilityProfile {
	return &schedule.AvailabilityProfile{
		ProviderID: providerID,
		Schedule:   *mondayOnlySchedule(),
		Settings:   *standardSettings(),
		Timezone:   "UTC",
		IsActive:   true,
	}
}

func TestComputeAvailabilityWorkedWeek(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.UpsertProfile(ctx, activeProfile("prov-1")))

	result, err := f.svc.ComputeAvailability(ctx, "prov-1", Query{
		From: monday,
		To:   monday.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	require.Equal(t, 6, result.TotalCount)
	require.NotNil(t, result.NextAvailable)
	assert.Equal(t, "09:00", result.NextAvailable.StartTime.Format("15:04"))
	assert.True(t, result.ExpiresAt.After(result.CalculatedAt))
}

func TestComputeAvailabilityInactiveProfileIsEmpty(t *testing.T) {
	f := newServiceFixture(t)

	// No profile published yet, so the default inactive one is served.
	result, err := f.svc.ComputeAvailability(context.Background(), "prov-silent", Query{
		From: monday,
		To:   monday.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	assert.Zero(t, result.TotalCount)
	assert.Empty(t, result.Slots)
	assert.Nil(t, result.NextAvailable)
}

func TestComputeAvailabilityInvalidRange(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.ComputeAvailability(ctx, "prov-1", Query{From: monday, To: monday})
	assert.True(t, errors.Is(err, ErrInvalidRange))

	_, err = f.svc.ComputeAvailability(ctx, "prov-1", Query{From: monday, To: monday.AddDate(0, 0, 120)})
	assert.True(t, errors.Is(err, ErrInvalidRange))
}

func TestComputeAvailabilityExcludesLiveHold(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.UpsertProfile(ctx, activeProfile("prov-1")))

	hold := &reservation.SlotReservation{
		ID:         uuid.New(),
		ProviderID: "prov-1",
		StartTime:  monday.Add(10*time.Hour + 15*time.Minute),
		EndTime:    monday.Add(11*time.Hour + 15*time.Minute),
		ReservedBy: "session-a",
		ExpiresAt:  f.now.Add(5 * time.Minute),
	}
	require.NoError(t, f.holds.Insert(ctx, hold, f.now))

	result, err := f.svc.ComputeAvailability(ctx, "prov-1", Query{
		From:             monday,
		To:               monday.AddDate(0, 0, 1),
		ConsultationType: "standard", // bypass the day cache
	})
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalCount)
	for _, s := range result.Slots {
		assert.NotEqual(t, "10:15", s.StartTime.Format("15:04"))
	}
}

func TestComputeAvailabilityTimeOffRemovesDay(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.UpsertProfile(ctx, activeProfile("prov-1")))

	require.NoError(t, f.svc.AddTimeOff(ctx, &timeoff.Period{
		ID:         uuid.New(),
		ProviderID: "prov-1",
		StartTime:  monday,
		EndTime:    monday.AddDate(0, 0, 1),
		Type:       timeoff.TypeVacation,
	}))

	result, err := f.svc.ComputeAvailability(ctx, "prov-1", Query{
		From: monday,
		To:   monday.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	assert.Zero(t, result.TotalCount)
}

func TestComputeAvailabilityServesCachedDay(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.UpsertProfile(ctx, activeProfile("prov-1")))

	first, err := f.svc.ComputeAvailability(ctx, "prov-1", Query{
		From: monday,
		To:   monday.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Equal(t, 6, first.TotalCount)

	// A booking added behind the cache's back is invisible until the entry
	// expires or is evicted; the cache trades freshness for latency.
	require.NoError(t, f.bookingStore.Create(ctx, &bookings.Consultation{
		ID:              uuid.New(),
		ProviderID:      "prov-1",
		ScheduledAt:     monday.Add(9 * time.Hour),
		DurationMinutes: 60,
		Status:          bookings.StatusConfirmed,
	}))

	second, err := f.svc.ComputeAvailability(ctx, "prov-1", Query{
		From: monday,
		To:   monday.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 6, second.TotalCount, "cached day should be served as-is")

	// A type-specific query bypasses the cache and sees the booking.
	fresh, err := f.svc.ComputeAvailability(ctx, "prov-1", Query{
		From:             monday,
		To:               monday.AddDate(0, 0, 1),
		ConsultationType: "standard",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.TotalCount)
}

func TestUpsertProfileEvictsCache(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.UpsertProfile(ctx, activeProfile("prov-1")))

	first, err := f.svc.ComputeAvailability(ctx, "prov-1", Query{
		From: monday,
		To:   monday.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Equal(t, 6, first.TotalCount)

	// Shrink the working day; the stale cached slots must not survive.
	updated := activeProfile("prov-1")
	updated.Schedule.Monday = &schedule.DaySchedule{Start: 9 * 60, End: 12 * 60}
	require.NoError(t, f.svc.UpsertProfile(ctx, updated))

	second, err := f.svc.ComputeAvailability(ctx, "prov-1", Query{
		From: monday,
		To:   monday.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.TotalCount)
}

func TestRemoveTimeOffEvictsCache(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.UpsertProfile(ctx, activeProfile("prov-1")))

	period := &timeoff.Period{
		ID:         uuid.New(),
		ProviderID: "prov-1",
		StartTime:  monday,
		EndTime:    monday.AddDate(0, 0, 1),
		Type:       timeoff.TypeCourt,
	}
	require.NoError(t, f.svc.AddTimeOff(ctx, period))

	blocked, err := f.svc.ComputeAvailability(ctx, "prov-1", Query{From: monday, To: monday.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Zero(t, blocked.TotalCount)

	require.NoError(t, f.svc.RemoveTimeOff(ctx, "prov-1", period.ID))

	freed, err := f.svc.ComputeAvailability(ctx, "prov-1", Query{From: monday, To: monday.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, 6, freed.TotalCount)
}

func TestComputeAvailabilityUnknownTypeIsEmpty(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.UpsertProfile(ctx, activeProfile("prov-1")))

	result, err := f.svc.ComputeAvailability(ctx, "prov-1", Query{
		From:             monday,
		To:               monday.AddDate(0, 0, 1),
		ConsultationType: "mediation",
	})
	require.NoError(t, err)
	assert.Zero(t, result.TotalCount)
}

func TestAddTimeOffRejectsInvalidPeriod(t *testing.T) {
	f := newServiceFixture(t)

	err := f.svc.AddTimeOff(context.Background(), &timeoff.Period{
		ID:         uuid.New(),
		ProviderID: "prov-1",
		StartTime:  monday,
		EndTime:    monday, // empty window
		Type:       timeoff.TypePersonal,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, timeoff.ErrInvalidPeriod))
}
