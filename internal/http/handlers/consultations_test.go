package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmConvertsHoldToBooking(t *testing.T) {
	env := newTestEnv(t)
	hold := reserve(t, env, "session-a")

	req := httptest.NewRequest(http.MethodPost, "/reservations/"+hold.ID+"/confirm",
		strings.NewReader(`{"reserved_by": "session-a"}`))
	rr := env.do(t, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp consultationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "prov-1", resp.ProviderID)
	assert.Equal(t, "confirmed", resp.Status)
	assert.Equal(t, hold.StartTime, resp.ScheduledAt)
	assert.Equal(t, 60, resp.DurationMinutes)

	// The converted window stays blocked: re-reserving it conflicts even
	// though the hold itself is gone.
	req = httptest.NewRequest(http.MethodPost, "/providers/prov-1/reservations", strings.NewReader(reserveBody("session-b")))
	rr = env.do(t, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestConfirmRejectsWrongToken(t *testing.T) {
	env := newTestEnv(t)
	hold := reserve(t, env, "session-a")

	req := httptest.NewRequest(http.MethodPost, "/reservations/"+hold.ID+"/confirm",
		strings.NewReader(`{"reserved_by": "session-b"}`))
	rr := env.do(t, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestConfirmUnknownReservation(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/reservations/0dd87cbe-1111-4222-8333-444455556666/confirm",
		strings.NewReader(`{"reserved_by": "session-a"}`))
	rr := env.do(t, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCancelFreesWindow(t *testing.T) {
	env := newTestEnv(t)
	hold := reserve(t, env, "session-a")

	req := httptest.NewRequest(http.MethodPost, "/reservations/"+hold.ID+"/confirm",
		strings.NewReader(`{"reserved_by": "session-a"}`))
	rr := env.do(t, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	var booked consultationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &booked))

	rr = env.do(t, httptest.NewRequest(http.MethodPost, "/consultations/"+booked.ID+"/cancel", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	// Cancelled bookings no longer occupy the window.
	reserve(t, env, "session-b")
}

func TestCancelUnknownConsultation(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest(http.MethodPost, "/consultations/0dd87cbe-1111-4222-8333-444455556666/cancel", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
