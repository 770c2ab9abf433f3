package availability

import (
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

func mondayCandidates(t *testing.T) []Window {
	t.Helper()
	got := Generate(GenerateInput{
		Schedule:        mondayOnlySchedule(),
		Settings:        standardSettings(),
		Location:        time.UTC,
		RangeStart:      monday,
		RangeEnd:        monday.AddDate(0, 0, 1),
		DurationMinutes: 60,
		Now:             monday.Add(-24 * time.Hour),
	})
	require.Len(t, got, 6)
	return got
}

func standardType() schedule.ConsultationTypeConfig {
	return schedule.ConsultationTypeConfig{Type: "standard", DurationMinutes: 60, PriceCents: 20000, Enabled: true}
}

func TestFilterAnnotatesTypeAndPrice(t *testing.T) {
	slots := Filter(FilterInput{
		Candidates: mondayCandidates(t),
		Schedule:   mondayOnlySchedule(),
		TypeConfig: standardType(),
		Location:   time.UTC,
		Now:        monday,
	})

	require.Len(t, slots, 6)
	for _, s := range slots {
		assert.Equal(t, "standard", s.ConsultationType)
		assert.Equal(t, int64(20000), s.PriceCents)
		assert.False(t, s.IsEmergencySlot)
	}
}

func TestFilterDropsTimeOffOverlaps(t *testing.T) {
	// Morning blacked out until 11:00.
	slots := Filter(FilterInput{
		Candidates: mondayCandidates(t),
		Schedule:   mondayOnlySchedule(),
		TimeOff: []timeoff.Interval{
			{Start: monday.Add(9 * time.Hour), End: monday.Add(11 * time.Hour)},
		},
		TypeConfig: standardType(),
		Location:   time.UTC,
		Now:        monday,
	})

	require.Len(t, slots, 4)
	assert.Equal(t, "11:30", slots[0].StartTime.Format("15:04"))
}

func TestFilterFullDayTimeOffYieldsNothing(t *testing.T) {
	slots := Filter(FilterInput{
		Candidates: mondayCandidates(t),
		Schedule:   mondayOnlySchedule(),
		TimeOff: []timeoff.Interval{
			{Start: monday, End: monday.AddDate(0, 0, 1)},
		},
		TypeConfig: standardType(),
		Location:   time.UTC,
		Now:        monday,
	})
	assert.Empty(t, slots)
}

func TestFilterDropsBookedWindows(t *testing.T) {
	slots := Filter(FilterInput{
		Candidates: mondayCandidates(t),
		Schedule:   mondayOnlySchedule(),
		Bookings: []bookings.Consultation{
			{
				ID:              uuid.New(),
				ProviderID:      "prov-1",
				ScheduledAt:     monday.Add(10*time.Hour + 15*time.Minute),
				DurationMinutes: 60,
				Status:          bookings.StatusConfirmed,
			},
		},
		TypeConfig: standardType(),
		MaxPerDay:  8,
		Location:   time.UTC,
		Now:        monday,
	})

	require.Len(t, slots, 5)
	for _, s := range slots {
		assert.NotEqual(t, "10:15", s.StartTime.Format("15:04"))
	}
}

func TestFilterIgnoresCancelledBookings(t *testing.T) {
	slots := Filter(FilterInput{
		Candidates: mondayCandidates(t),
		Schedule:   mondayOnlySchedule(),
		Bookings: []bookings.Consultation{
			{
				ID:              uuid.New(),
				ScheduledAt:     monday.Add(10*time.Hour + 15*time.Minute),
				DurationMinutes: 60,
				Status:          bookings.StatusCancelled,
			},
		},
		TypeConfig: standardType(),
		MaxPerDay:  8,
		Location:   time.UTC,
		Now:        monday,
	})
	assert.Len(t, slots, 6)
}

func TestFilterDropsLiveHoldsKeepsExpired(t *testing.T) {
	now := monday.Add(8 * time.Hour)
	slots := Filter(FilterInput{
		Candidates: mondayCandidates(t),
		Schedule:   mondayOnlySchedule(),
		Reservations: []reservation.SlotReservation{
			{
				StartTime: monday.Add(10*time.Hour + 15*time.Minute),
				EndTime:   monday.Add(11*time.Hour + 15*time.Minute),
				ExpiresAt: now.Add(5 * time.Minute),
			},
			{
				StartTime: monday.Add(13 * time.Hour),
				EndTime:   monday.Add(14 * time.Hour),
				ExpiresAt: now.Add(-time.Second), // already expired
			},
		},
		TypeConfig: standardType(),
		Location:   time.UTC,
		Now:        now,
	})

	starts := make([]string, 0, len(slots))
	for _, s := range slots {
		starts = append(starts, s.StartTime.Format("15:04"))
	}
	assert.NotContains(t, starts, "10:15")
	assert.Contains(t, starts, "13:00", "an expired hold must not block its window")
}

func TestFilterMaxPerDayClosesTheDay(t *testing.T) {
	day := make([]bookings.Consultation, 0, 2)
	for i := 0; i < 2; i++ {
		day = append(day, bookings.Consultation{
			ID:              uuid.New(),
			ScheduledAt:     monday.Add(time.Duration(9+i) * time.Hour),
			DurationMinutes: 30,
			Status:          bookings.StatusConfirmed,
		})
	}

	slots := Filter(FilterInput{
		Candidates: mondayCandidates(t),
		Schedule:   mondayOnlySchedule(),
		Bookings:   day,
		TypeConfig: standardType(),
		MaxPerDay:  2,
		Location:   time.UTC,
		Now:        monday,
	})
	assert.Empty(t, slots, "a day at its booking cap offers no further slots")
}

func TestFilterEmergencyTypeFlagsSlots(t *testing.T) {
	slots := Filter(FilterInput{
		Candidates: mondayCandidates(t),
		Schedule:   mondayOnlySchedule(),
		TypeConfig: schedule.ConsultationTypeConfig{Type: "emergency", DurationMinutes: 60, PriceCents: 40000, Enabled: true},
		Location:   time.UTC,
		Now:        monday,
	})
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.True(t, s.IsEmergencySlot)
	}
}

func TestFilterRejectsStartsInsideBreaks(t *testing.T) {
	inBreak := Window{Start: monday.Add(12*time.Hour + 15*time.Minute), End: monday.Add(13*time.Hour + 15*time.Minute)}
	slots := Filter(FilterInput{
		Candidates: []Window{inBreak},
		Schedule:   mondayOnlySchedule(),
		TypeConfig: standardType(),
		Location:   time.UTC,
		Now:        monday,
	})
	assert.Empty(t, slots)
}

func TestFilterResultsAreSortedAndDisjoint(t *testing.T) {
	slots := Filter(FilterInput{
		Candidates: mondayCandidates(t),
		Schedule:   mondayOnlySchedule(),
		TypeConfig: standardType(),
		Location:   time.UTC,
		Now:        monday,
	})
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i].StartTime.After(slots[i-1].StartTime))
		assert.False(t, slots[i].StartTime.Before(slots[i-1].EndTime), "slots must not overlap")
	}
}
