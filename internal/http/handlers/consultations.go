package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lawlink/booking-platform/internal/bookings"
	"github.com/lawlink/booking-platform/internal/reservation"
	"github.com/lawlink/booking-platform/pkg/logging"
)

// ConsultationHandler converts holds into bookings and cancels them.
type ConsultationHandler struct {
	svc    *bookings.Service
	logger *logging.Logger
}

// NewConsultationHandler creates the handler.
func NewConsultationHandler(svc *bookings.Service, logger *logging.Logger) *ConsultationHandler {
	if svc == nil {
		panic("handlers: bookings service is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ConsultationHandler{svc: svc, logger: logger}
}

type confirmRequest struct {
	ReservedBy string `json:"reserved_by"`
}

type consultationResponse struct {
	ID               string `json:"id"`
	ProviderID       string `json:"provider_id"`
	ClientID         string `json:"client_id,omitempty"`
	ScheduledAt      int64  `json:"scheduled_at"`
	DurationMinutes  int    `json:"duration_minutes"`
	ConsultationType string `json:"consultation_type"`
	Status           string `json:"status"`
	CreatedAt        int64  `json:"created_at"`
}

// Confirm converts a live hold into a confirmed consultation.
// POST /reservations/{reservationID}/confirm
func (h *ConsultationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "reservationID"))
	if err != nil {
		jsonError(w, "invalid reservation id", http.StatusBadRequest)
		return
	}
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.ReservedBy == "" {
		jsonError(w, "reserved_by is required", http.StatusBadRequest)
		return
	}

	consultation, err := h.svc.ConfirmFromReservation(r.Context(), id, req.ReservedBy)
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrNotFound):
			jsonError(w, "reservation not found or expired", http.StatusNotFound)
		case errors.Is(err, reservation.ErrUnauthorized):
			jsonError(w, "reservation held by another session", http.StatusForbidden)
		default:
			h.logger.Error("confirm failed", "reservation_id", id, "error", err)
			jsonError(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, consultationResponse{
		ID:               consultation.ID.String(),
		ProviderID:       consultation.ProviderID,
		ClientID:         consultation.ClientID,
		ScheduledAt:      consultation.ScheduledAt.UnixMilli(),
		DurationMinutes:  consultation.DurationMinutes,
		ConsultationType: consultation.ConsultationType,
		Status:           string(consultation.Status),
		CreatedAt:        consultation.CreatedAt.UnixMilli(),
	})
}

// Cancel frees a consultation's window.
// POST /consultations/{consultationID}/cancel
func (h *ConsultationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "consultationID"))
	if err != nil {
		jsonError(w, "invalid consultation id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, bookings.ErrNotFound):
			jsonError(w, "consultation not found", http.StatusNotFound)
		case errors.Is(err, bookings.ErrInvalidTransition):
			jsonError(w, "consultation cannot be cancelled", http.StatusConflict)
		default:
			h.logger.Error("cancel failed", "consultation_id", id, "error", err)
			jsonError(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
