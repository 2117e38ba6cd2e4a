package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
)

// EventHandler holds the HTTP handlers for event lifecycle endpoints.
type EventHandler struct {
	svc *service.EventService
	log *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

// CreateEvent handles POST /users/{userId}/events
// Creates a PENDING event owned by the user.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.NewEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), chi.URLParam(r, "userId"), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListUserEvents handles GET /users/{userId}/events
func (h *EventHandler) ListUserEvents(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	events, err := h.svc.ListUserEvents(r.Context(), chi.URLParam(r, "userId"), page)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	shorts := make([]model.EventShort, 0, len(events))
	for i := range events {
		shorts = append(shorts, events[i].Short())
	}
	writeJSON(w, http.StatusOK, shorts)
}

// GetUserEvent handles GET /users/{userId}/events/{eventId}
func (h *EventHandler) GetUserEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetUserEvent(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "eventId"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// EditUserEvent handles PATCH /users/{userId}/events/{eventId}
// Applies the initiator's patch and optional review action.
func (h *EventHandler) EditUserEvent(w http.ResponseWriter, r *http.Request) {
	var patch model.UpdateEventRequest
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	event, err := h.svc.EditEventAsUser(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "eventId"), patch)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// SearchEventsAdmin handles GET /admin/events
// Filters: users, states, categories, rangeStart, rangeEnd, from, size.
func (h *EventHandler) SearchEventsAdmin(w http.ResponseWriter, r *http.Request) {
	f := model.AdminEventFilter{
		Users:      queryList(r, "users"),
		Categories: queryList(r, "categories"),
	}
	for _, s := range queryList(r, "states") {
		state, err := model.ParseEventState(s)
		if err != nil {
			writeServiceError(w, h.log, badParam("states", err))
			return
		}
		f.States = append(f.States, state)
	}

	var err error
	if f.RangeStart, err = queryTime(r, "rangeStart"); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if f.RangeEnd, err = queryTime(r, "rangeEnd"); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if f.Page, err = queryPage(r); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	events, err := h.svc.SearchEventsAdmin(r.Context(), f)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// EditAdminEvent handles PATCH /admin/events/{eventId}
// Publishes or rejects the event and applies any field changes.
func (h *EventHandler) EditAdminEvent(w http.ResponseWriter, r *http.Request) {
	var patch model.UpdateEventRequest
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	event, err := h.svc.EditEventAsAdmin(r.Context(), chi.URLParam(r, "eventId"), patch)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// SearchEvents handles GET /events
// Filters: text, categories, paid, rangeStart, rangeEnd, onlyAvailable,
// sort, from, size. Only published events are returned.
func (h *EventHandler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	f := model.PublicEventFilter{
		Text:       r.URL.Query().Get("text"),
		Categories: queryList(r, "categories"),
		Sort:       model.SortOrder(r.URL.Query().Get("sort")),
	}

	var err error
	if f.Paid, err = queryBool(r, "paid"); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	onlyAvailable, err := queryBool(r, "onlyAvailable")
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	f.OnlyAvailable = onlyAvailable != nil && *onlyAvailable
	if f.RangeStart, err = queryTime(r, "rangeStart"); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if f.RangeEnd, err = queryTime(r, "rangeEnd"); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if f.Page, err = queryPage(r); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	events, err := h.svc.SearchEvents(r.Context(), f, hitFrom(r))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
// Returns a published event with its view count.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetPublishedEvent(r.Context(), chi.URLParam(r, "id"), hitFrom(r))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}
