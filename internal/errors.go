package internal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"vendorbook-api/internal/store"
)

// ValidationError reports a request the client must fix.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NotFoundError reports an id that does not resolve to a vendor.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string { return e.Reason }

// StorageError wraps an engine failure. Only Reason reaches the client.
type StorageError struct {
	Op     string
	Reason string
	Err    error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// respondError classifies err and writes the matching status and body.
// Anything that is not a validation or not-found error is reported as an
// opaque storage failure.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		valErr *ValidationError
		nfErr  *NotFoundError
		stErr  *StorageError
	)
	switch {
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: valErr.Reason})
	case errors.As(err, &nfErr):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: nfErr.Reason})
	case errors.As(err, &stErr):
		s.logStorageError(r, stErr.Op, stErr.Err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: stErr.Reason})
	default:
		s.logStorageError(r, "unknown", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

func (s *Server) logStorageError(r *http.Request, op string, err error) {
	attrs := []any{
		slog.String("op", op),
		slog.Any("error", err),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	}
	if code := store.SQLState(err); code != "" {
		attrs = append(attrs, slog.String("sqlstate", code))
	}
	s.Metrics.StorageFailure(op)
	s.Logger.Error("storage failure", attrs...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
