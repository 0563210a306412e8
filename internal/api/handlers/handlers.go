// Package handlers implements the finbot HTTP endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dvloznov/finbot/internal/api/middleware"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/rs/zerolog"
)

// Clock returns the current time. Handlers default to time.Now.
type Clock func() time.Time

func orNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeStoreError maps data service errors to status codes.
func writeStoreError(w http.ResponseWriter, log zerolog.Logger, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, store.ErrInvalid):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Str("resource", what).Msg("Data service request failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to process "+what)
	}
}

// monthParam parses ?month=YYYY-MM, defaulting to the current month.
func monthParam(r *http.Request, now Clock) (domain.Month, error) {
	s := r.URL.Query().Get("month")
	if s == "" {
		return domain.MonthOf(now()), nil
	}
	return domain.ParseMonth(s)
}

// Health handles GET /health
func Health(now Clock) http.HandlerFunc {
	now = orNow(now)
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   now().Format(time.RFC3339),
		})
	}
}
