// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/stats"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason, msg string) {
	writeJSON(w, status, model.ErrorResponse{
		Error:     msg,
		Status:    strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_")),
		Reason:    reason,
		Timestamp: model.NewDateTime(time.Now().UTC()),
	})
}

// writeServiceError maps a domain error kind onto its HTTP status.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "The required object was not found.", err.Error())
	case errors.Is(err, model.ErrAccessDenied),
		errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrDuplicateRequest),
		errors.Is(err, model.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "For the requested operation the conditions are not met.", err.Error())
	case errors.Is(err, model.ErrInvalidSchedule),
		errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrUnsupportedAction):
		writeError(w, http.StatusBadRequest, "Incorrectly made request.", err.Error())
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Unexpected error.", "internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", model.ErrValidation, err)
	}
	return nil
}

// hitFrom describes the current request for the statistics collector.
func hitFrom(r *http.Request) stats.Hit {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return stats.Hit{URI: r.URL.Path, IP: ip, Timestamp: time.Now().UTC()}
}

// ─── Query parameters ─────────────────────────────────────────────────────────

func badParam(name string, err error) error {
	return fmt.Errorf("%w: parameter %s: %v", model.ErrValidation, name, err)
}

func queryPage(r *http.Request) (model.Page, error) {
	page := model.DefaultPage
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, badParam("from", fmt.Errorf("must be a non-negative integer, got %q", v))
		}
		page.From = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return page, badParam("size", fmt.Errorf("must be a positive integer, got %q", v))
		}
		page.Size = n
	}
	return page, nil
}

// queryList accepts both repeated and comma-separated values.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := model.ParseDateTime(v)
	if err != nil {
		return nil, badParam(name, err)
	}
	return &t, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, badParam(name, err)
	}
	return &b, nil
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
