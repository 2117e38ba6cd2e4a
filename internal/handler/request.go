package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
)

// RequestHandler holds the HTTP handlers for participation requests.
type RequestHandler struct {
	svc *service.RequestService
	log *zap.Logger
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(svc *service.RequestService, log *zap.Logger) *RequestHandler {
	return &RequestHandler{svc: svc, log: log}
}

// Submit handles POST /users/{userId}/requests?eventId=
// Performs a concurrency-safe submission for the specified event.
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		writeServiceError(w, h.log, fmt.Errorf("%w: parameter eventId is required", model.ErrValidation))
		return
	}

	req, err := h.svc.SubmitRequest(r.Context(), chi.URLParam(r, "userId"), eventID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListUserRequests handles GET /users/{userId}/requests
func (h *RequestHandler) ListUserRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.ListUserRequests(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// Cancel handles PATCH /users/{userId}/requests/{requestId}/cancel
func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.CancelRequest(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "requestId"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ListEventRequests handles GET /users/{userId}/events/{eventId}/requests
// Returns every request filed for the initiator's event.
func (h *RequestHandler) ListEventRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.ListEventRequests(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "eventId"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// Moderate handles PATCH /users/{userId}/events/{eventId}/requests
// Confirms or rejects a batch of pending requests.
func (h *RequestHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	var body model.StatusUpdateRequest
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	result, err := h.svc.ModerateRequests(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "eventId"), body)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
