package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	windowStart = time.Date(2025, 6, 2, 10, 15, 0, 0, time.UTC)
	windowEnd   = time.Date(2025, 6, 2, 11, 15, 0, 0, time.UTC)
)

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(nil)
	mgr := NewManager(store, 5*time.Minute, 10*time.Minute, nil, nil)
	return mgr, store
}

func reserveInput(owner string) ReserveInput {
	return ReserveInput{
		ProviderID:       "prov-1",
		StartTime:        windowStart,
		EndTime:          windowEnd,
		ConsultationType: "standard",
		ReservedBy:       owner,
	}
}

func TestReserveThenConflict(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	hold, err := mgr.Reserve(ctx, reserveInput("tok-a"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, hold.ID)
	assert.True(t, hold.StartTime.Equal(windowStart))

	_, err = mgr.Reserve(ctx, reserveInput("tok-b"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// A partially overlapping window conflicts too.
	overlap := reserveInput("tok-b")
	overlap.StartTime = windowStart.Add(30 * time.Minute)
	overlap.EndTime = windowEnd.Add(30 * time.Minute)
	_, err = mgr.Reserve(ctx, overlap)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// An adjacent window does not: intervals are half-open.
	adjacent := reserveInput("tok-b")
	adjacent.StartTime = windowEnd
	adjacent.EndTime = windowEnd.Add(time.Hour)
	_, err = mgr.Reserve(ctx, adjacent)
	assert.NoError(t, err)
}

func TestConcurrentReserveExactlyOneWins(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = mgr.Reserve(ctx, reserveInput(uuid.NewString()))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotUnavailable):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("%d callers won the window, want exactly 1", wins)
	}
}

func TestReleaseThenReserveSucceeds(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	hold, err := mgr.Reserve(ctx, reserveInput("tok-a"))
	require.NoError(t, err)

	require.NoError(t, mgr.Release(ctx, hold.ID, "tok-a"))

	_, err = mgr.Reserve(ctx, reserveInput("tok-b"))
	assert.NoError(t, err, "released window must be immediately reservable")
}

func TestReleaseOwnership(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	hold, err := mgr.Reserve(ctx, reserveInput("tok-a"))
	require.NoError(t, err)

	assert.ErrorIs(t, mgr.Release(ctx, hold.ID, "tok-b"), ErrUnauthorized)
	assert.ErrorIs(t, mgr.Release(ctx, uuid.New(), "tok-a"), ErrNotFound)

	// The failed attempts must not have removed the hold.
	_, err = mgr.Find(ctx, hold.ID)
	assert.NoError(t, err)
}

func TestExpiredHoldIsInvisibleAndSwept(t *testing.T) {
	store := NewMemoryStore(nil)
	now := windowStart.Add(-time.Hour)
	mgr := NewManager(store, 5*time.Minute, 10*time.Minute, nil, nil).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := mgr.Reserve(ctx, reserveInput("tok-a"))
	require.NoError(t, err)

	// Jump past the TTL: the expired hold no longer blocks the window.
	now = now.Add(6 * time.Minute)
	hold2, err := mgr.Reserve(ctx, reserveInput("tok-b"))
	require.NoError(t, err)

	// Sweep removes only the expired hold.
	now = now.Add(time.Minute)
	deleted, err := mgr.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = mgr.Find(ctx, hold2.ID)
	assert.NoError(t, err, "live hold survives the sweep")

	// Sweeping again is a no-op.
	deleted, err = mgr.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestReserveTTLClamping(t *testing.T) {
	store := NewMemoryStore(nil)
	now := windowStart.Add(-48 * time.Hour)
	mgr := NewManager(store, 5*time.Minute, 10*time.Minute, nil, nil).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	input := reserveInput("tok-a")
	input.TTL = time.Hour
	hold, err := mgr.Reserve(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute), hold.ExpiresAt, "TTL above max is clamped")

	input2 := reserveInput("tok-b")
	input2.StartTime = windowStart.Add(2 * time.Hour)
	input2.EndTime = windowEnd.Add(2 * time.Hour)
	hold2, err := mgr.Reserve(ctx, input2)
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), hold2.ExpiresAt, "zero TTL uses the default")
}

func TestReserveValidation(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	bad := reserveInput("tok-a")
	bad.EndTime = bad.StartTime
	_, err := mgr.Reserve(ctx, bad)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	anon := reserveInput("")
	_, err = mgr.Reserve(ctx, anon)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

type stubBookingConflicts struct {
	occupied bool
}

func (s *stubBookingConflicts) HasOverlapping(context.Context, string, time.Time, time.Time) (bool, error) {
	return s.occupied, nil
}

func TestReserveBlockedByCommittedBooking(t *testing.T) {
	store := NewMemoryStore(&stubBookingConflicts{occupied: true})
	mgr := NewManager(store, 5*time.Minute, 10*time.Minute, nil, nil)

	_, err := mgr.Reserve(context.Background(), reserveInput("tok-a"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}
