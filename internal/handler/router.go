package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter builds the chi router with the global middleware stack and
// every API route.
func NewRouter(events *EventHandler, requests *RequestHandler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(log))             // structured access log
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	// Private API: acting user in the path.
	r.Route("/users/{userId}", func(r chi.Router) {
		r.Post("/events", events.CreateEvent)
		r.Get("/events", events.ListUserEvents)
		r.Get("/events/{eventId}", events.GetUserEvent)
		r.Patch("/events/{eventId}", events.EditUserEvent)
		r.Get("/events/{eventId}/requests", requests.ListEventRequests)
		r.Patch("/events/{eventId}/requests", requests.Moderate)

		r.Post("/requests", requests.Submit)
		r.Get("/requests", requests.ListUserRequests)
		r.Patch("/requests/{requestId}/cancel", requests.Cancel)
	})

	r.Route("/admin/events", func(r chi.Router) {
		r.Get("/", events.SearchEventsAdmin)
		r.Patch("/{eventId}", events.EditAdminEvent)
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", events.SearchEvents)
		r.Get("/{id}", events.GetEvent)
	})

	return r
}
