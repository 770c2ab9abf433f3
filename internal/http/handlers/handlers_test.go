package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lawlink/booking-platform/internal/availability"
	"github.com/lawlink/booking-platform/internal/bookings"
	"github.com/lawlink/booking-platform/internal/reservation"
	"github.com/lawlink/booking-platform/internal/schedule"
	"github.com/lawlink/booking-platform/internal/timeoff"
)

// Monday 2025-06-02 UTC; the test clock sits 24h before it.
var (
	testMonday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	testNow    = testMonday.Add(-24 * time.Hour)
)

type testEnv struct {
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	clock := func() time.Time { return testNow }

	profiles := schedule.NewStore(rdb)
	timeOff := timeoff.NewMemoryStore()
	bookingStore := bookings.NewMemoryStore()
	holds := reservation.NewMemoryStore(bookingStore)

	availSvc := availability.NewService(profiles, timeOff, bookingStore, holds,
		availability.NewCache(rdb, time.Hour), nil, nil, 90).WithClock(clock)
	mgr := reservation.NewManager(holds, 5*time.Minute, 10*time.Minute, nil, nil).WithClock(clock)
	bookingSvc := bookings.NewService(bookingStore, mgr, nil).WithClock(clock)

	availHandler := NewAvailabilityHandler(availSvc, nil)
	resHandler := NewReservationHandler(mgr, nil)
	consHandler := NewConsultationHandler(bookingSvc, nil)

	r := chi.NewRouter()
	r.Route("/providers/{providerID}", func(provider chi.Router) {
		provider.Get("/availability", availHandler.GetAvailability)
		provider.Get("/profile", availHandler.GetProfile)
		provider.Put("/profile", availHandler.UpsertProfile)
		provider.Post("/timeoff", availHandler.AddTimeOff)
		provider.Get("/timeoff", availHandler.ListTimeOff)
		provider.Delete("/timeoff/{periodID}", availHandler.RemoveTimeOff)
		provider.Post("/reservations", resHandler.Reserve)
	})
	r.Delete("/reservations/{reservationID}", resHandler.Release)
	r.Post("/reservations/cleanup", resHandler.Cleanup)
	r.Post("/reservations/{reservationID}/confirm", consHandler.Confirm)
	r.Post("/consultations/{consultationID}/cancel", consHandler.Cancel)

	return &testEnv{router: r}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func activeProfileJSON() string {
	return `{
		"schedule": {
			"monday": {"start": "09:00", "end": "17:00", "breaks": [{"start": "12:00", "end": "13:00"}]}
		},
		"settings": {
			"default_duration_minutes": 60,
			"buffer_minutes": 15,
			"max_per_day": 8,
			"min_advance_hours": 0,
			"max_advance_days": 30,
			"consultation_types": [
				{"type": "standard", "duration_minutes": 60, "price_cents": 20000, "enabled": true}
			]
		},
		"timezone": "UTC",
		"is_active": true
	}`
}
