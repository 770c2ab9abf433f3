package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lawlink/booking-platform/internal/reservation"
	"github.com/lawlink/booking-platform/pkg/logging"
)

// ReservationHandler serves the slot-hold endpoints.
type ReservationHandler struct {
	mgr    *reservation.Manager
	logger *logging.Logger
}

// NewReservationHandler creates the handler.
func NewReservationHandler(mgr *reservation.Manager, logger *logging.Logger) *ReservationHandler {
	if mgr == nil {
		panic("handlers: reservation manager is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReservationHandler{mgr: mgr, logger: logger}
}

type reserveRequest struct {
	StartTime        int64  `json:"start_time"`
	EndTime          int64  `json:"end_time"`
	ConsultationType string `json:"consultation_type"`
	ReservedBy       string `json:"reserved_by"`
	ClientID         string `json:"client_id,omitempty"`
	TTLMinutes       int    `json:"ttl_minutes,omitempty"`
}

type reservationResponse struct {
	ID               string `json:"id"`
	ProviderID       string `json:"provider_id"`
	StartTime        int64  `json:"start_time"`
	EndTime          int64  `json:"end_time"`
	ConsultationType string `json:"consultation_type"`
	ReservedBy       string `json:"reserved_by"`
	ClientID         string `json:"client_id,omitempty"`
	ExpiresAt        int64  `json:"expires_at"`
	CreatedAt        int64  `json:"created_at"`
}

func toReservationResponse(r *reservation.SlotReservation) reservationResponse {
	return reservationResponse{
		ID:               r.ID.String(),
		ProviderID:       r.ProviderID,
		StartTime:        r.StartTime.UnixMilli(),
		EndTime:          r.EndTime.UnixMilli(),
		ConsultationType: r.ConsultationType,
		ReservedBy:       r.ReservedBy,
		ClientID:         r.ClientID,
		ExpiresAt:        r.ExpiresAt.UnixMilli(),
		CreatedAt:        r.CreatedAt.UnixMilli(),
	}
}

// Reserve places a TTL-bounded hold on a slot. A taken window answers 409.
// POST /providers/{providerID}/reservations
func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	if providerID == "" {
		jsonError(w, "missing providerID", http.StatusBadRequest)
		return
	}
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.ReservedBy == "" {
		jsonError(w, "reserved_by is required", http.StatusBadRequest)
		return
	}

	hold, err := h.mgr.Reserve(r.Context(), reservation.ReserveInput{
		ProviderID:       providerID,
		ClientID:         req.ClientID,
		StartTime:        time.UnixMilli(req.StartTime).UTC(),
		EndTime:          time.UnixMilli(req.EndTime).UTC(),
		ConsultationType: req.ConsultationType,
		ReservedBy:       req.ReservedBy,
		TTL:              time.Duration(req.TTLMinutes) * time.Minute,
	})
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrSlotUnavailable):
			jsonError(w, "slot is no longer available", http.StatusConflict)
		case errors.Is(err, reservation.ErrInvalidWindow):
			jsonError(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("reserve failed", "provider_id", providerID, "error", err)
			jsonError(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, toReservationResponse(hold))
}

// Release drops a hold. Only the reserving session may release it.
// DELETE /reservations/{reservationID}?reserved_by=
func (h *ReservationHandler) Release(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "reservationID"))
	if err != nil {
		jsonError(w, "invalid reservation id", http.StatusBadRequest)
		return
	}
	reservedBy := r.URL.Query().Get("reserved_by")
	if reservedBy == "" {
		jsonError(w, "reserved_by is required", http.StatusBadRequest)
		return
	}

	if err := h.mgr.Release(r.Context(), id, reservedBy); err != nil {
		switch {
		case errors.Is(err, reservation.ErrNotFound):
			jsonError(w, "reservation not found", http.StatusNotFound)
		case errors.Is(err, reservation.ErrUnauthorized):
			jsonError(w, "reservation held by another session", http.StatusForbidden)
		default:
			h.logger.Error("release failed", "reservation_id", id, "error", err)
			jsonError(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cleanup deletes every expired hold. Wired for external schedulers; the
// in-process sweeper covers normal operation.
// POST /reservations/cleanup
func (h *ReservationHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.mgr.CleanupExpired(r.Context())
	if err != nil {
		h.logger.Error("cleanup failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
