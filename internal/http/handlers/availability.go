package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lawlink/booking-platform/internal/availability"
	"github.com/lawlink/booking-platform/internal/schedule"
	"github.com/lawlink/booking-platform/internal/timeoff"
	"github.com/lawlink/booking-platform/pkg/logging"
)

// AvailabilityHandler serves slot queries plus the provider-facing profile
// and time-off endpoints.
type AvailabilityHandler struct {
	svc    *availability.Service
	logger *logging.Logger
}

// NewAvailabilityHandler creates the handler.
func NewAvailabilityHandler(svc *availability.Service, logger *logging.Logger) *AvailabilityHandler {
	if svc == nil {
		panic("handlers: availability service is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{svc: svc, logger: logger}
}

// GetAvailability computes bookable slots for a provider.
// GET /providers/{providerID}/availability?from=&to=&type=&duration=
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	if providerID == "" {
		jsonError(w, "missing providerID", http.StatusBadRequest)
		return
	}
	from, ok := parseMillis(r, "from")
	if !ok {
		jsonError(w, "from must be epoch milliseconds", http.StatusBadRequest)
		return
	}
	to, ok := parseMillis(r, "to")
	if !ok {
		jsonError(w, "to must be epoch milliseconds", http.StatusBadRequest)
		return
	}
	duration, _ := strconv.Atoi(r.URL.Query().Get("duration"))

	result, err := h.svc.ComputeAvailability(r.Context(), providerID, availability.Query{
		From:             from,
		To:               to,
		ConsultationType: r.URL.Query().Get("type"),
		DurationMinutes:  duration,
	})
	if err != nil {
		if errors.Is(err, availability.ErrInvalidRange) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("availability computation failed", "provider_id", providerID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetProfile returns the provider's availability profile, defaulted when the
// provider has never published one.
// GET /providers/{providerID}/profile
func (h *AvailabilityHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	if providerID == "" {
		jsonError(w, "missing providerID", http.StatusBadRequest)
		return
	}
	profile, err := h.svc.Profile(r.Context(), providerID)
	if err != nil {
		h.logger.Error("profile load failed", "provider_id", providerID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpsertProfile replaces the provider's profile wholesale.
// PUT /providers/{providerID}/profile
func (h *AvailabilityHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	if providerID == "" {
		jsonError(w, "missing providerID", http.StatusBadRequest)
		return
	}
	var profile schedule.AvailabilityProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	profile.ProviderID = providerID

	if err := h.svc.UpsertProfile(r.Context(), &profile); err != nil {
		if errors.Is(err, schedule.ErrInvalidSchedule) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("profile upsert failed", "provider_id", providerID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, &profile)
}

type recurrenceRequest struct {
	Frequency  string `json:"frequency"`
	Interval   int    `json:"interval"`
	Until      *int64 `json:"until,omitempty"`
	DaysOfWeek []int  `json:"days_of_week,omitempty"`
}

type timeOffRequest struct {
	StartTime   int64              `json:"start_time"`
	EndTime     int64              `json:"end_time"`
	Type        string             `json:"type"`
	IsRecurring bool               `json:"is_recurring"`
	Recurrence  *recurrenceRequest `json:"recurrence,omitempty"`
}

type timeOffResponse struct {
	ID          string             `json:"id"`
	ProviderID  string             `json:"provider_id"`
	StartTime   int64              `json:"start_time"`
	EndTime     int64              `json:"end_time"`
	Type        string             `json:"type"`
	IsRecurring bool               `json:"is_recurring"`
	Recurrence  *recurrenceRequest `json:"recurrence,omitempty"`
	CreatedAt   int64              `json:"created_at"`
}

func toTimeOffResponse(p *timeoff.Period) timeOffResponse {
	resp := timeOffResponse{
		ID:          p.ID.String(),
		ProviderID:  p.ProviderID,
		StartTime:   p.StartTime.UnixMilli(),
		EndTime:     p.EndTime.UnixMilli(),
		Type:        string(p.Type),
		IsRecurring: p.IsRecurring,
		CreatedAt:   p.CreatedAt.UnixMilli(),
	}
	if p.Recurrence != nil {
		rr := &recurrenceRequest{
			Frequency: string(p.Recurrence.Frequency),
			Interval:  p.Recurrence.Interval,
		}
		if p.Recurrence.Until != nil {
			ms := p.Recurrence.Until.UnixMilli()
			rr.Until = &ms
		}
		for _, d := range p.Recurrence.DaysOfWeek {
			rr.DaysOfWeek = append(rr.DaysOfWeek, int(d))
		}
		resp.Recurrence = rr
	}
	return resp
}

// AddTimeOff records a blackout period.
// POST /providers/{providerID}/timeoff
func (h *AvailabilityHandler) AddTimeOff(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	if providerID == "" {
		jsonError(w, "missing providerID", http.StatusBadRequest)
		return
	}
	var req timeOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	period := &timeoff.Period{
		ID:          uuid.New(),
		ProviderID:  providerID,
		StartTime:   time.UnixMilli(req.StartTime).UTC(),
		EndTime:     time.UnixMilli(req.EndTime).UTC(),
		Type:        timeoff.PeriodType(req.Type),
		IsRecurring: req.IsRecurring,
	}
	if period.Type == "" {
		period.Type = timeoff.TypeOther
	}
	if req.Recurrence != nil {
		rule := &timeoff.Rule{
			Frequency: timeoff.Frequency(req.Recurrence.Frequency),
			Interval:  req.Recurrence.Interval,
		}
		if req.Recurrence.Until != nil {
			until := time.UnixMilli(*req.Recurrence.Until).UTC()
			rule.Until = &until
		}
		for _, d := range req.Recurrence.DaysOfWeek {
			rule.DaysOfWeek = append(rule.DaysOfWeek, schedule.Weekday(d))
		}
		period.Recurrence = rule
	}

	if err := h.svc.AddTimeOff(r.Context(), period); err != nil {
		if errors.Is(err, timeoff.ErrInvalidPeriod) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("time off create failed", "provider_id", providerID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toTimeOffResponse(period))
}

// ListTimeOff returns periods relevant to a range.
// GET /providers/{providerID}/timeoff?from=&to=
func (h *AvailabilityHandler) ListTimeOff(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	if providerID == "" {
		jsonError(w, "missing providerID", http.StatusBadRequest)
		return
	}
	from, ok := parseMillis(r, "from")
	if !ok {
		jsonError(w, "from must be epoch milliseconds", http.StatusBadRequest)
		return
	}
	to, ok := parseMillis(r, "to")
	if !ok {
		jsonError(w, "to must be epoch milliseconds", http.StatusBadRequest)
		return
	}

	periods, err := h.svc.ListTimeOff(r.Context(), providerID, from, to)
	if err != nil {
		h.logger.Error("time off list failed", "provider_id", providerID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]timeOffResponse, 0, len(periods))
	for i := range periods {
		out = append(out, toTimeOffResponse(&periods[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"periods": out, "total": len(out)})
}

// RemoveTimeOff deletes an owned blackout period.
// DELETE /providers/{providerID}/timeoff/{periodID}
func (h *AvailabilityHandler) RemoveTimeOff(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	periodID, err := uuid.Parse(chi.URLParam(r, "periodID"))
	if providerID == "" || err != nil {
		jsonError(w, "invalid provider or period id", http.StatusBadRequest)
		return
	}

	if err := h.svc.RemoveTimeOff(r.Context(), providerID, periodID); err != nil {
		if errors.Is(err, timeoff.ErrNotFound) {
			jsonError(w, "time off period not found", http.StatusNotFound)
			return
		}
		h.logger.Error("time off remove failed", "provider_id", providerID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
