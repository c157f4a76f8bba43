package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/gemini"
	"github.com/sakshipatil0812/FinancialyAI/internal/log"
	"github.com/sakshipatil0812/FinancialyAI/internal/storage"
)

const (
	maxBodyBytes   = 1 << 20  // regular JSON payloads
	maxUploadBytes = 16 << 20 // base64 receipt images and statements
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads one JSON body into v, capping the body at limit
// bytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return json.NewDecoder(r.Body).Decode(v)
}

// validationErrors are the domain rejections that map to 422.
var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrEmptyName,
	core.ErrEmptyKeyword,
	core.ErrInvalidDate,
	core.ErrInvalidDateRange,
	core.ErrUnknownCategory,
	core.ErrUnknownPayer,
	core.ErrUnknownMember,
	core.ErrSplitMismatch,
	core.ErrInvalidFrequency,
	core.ErrDuplicateBudget,
	core.ErrUnknownGoal,
	core.ErrUnknownTrip,
}

// statusForError folds the error taxonomy onto HTTP statuses: domain
// validation 422, missing rows 404, oracle trouble 502, anything else
// a plain 500.
func statusForError(err error) int {
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, gemini.ErrUnavailable) || errors.Is(err, gemini.ErrSchemaMismatch) {
		return http.StatusBadGateway
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// respondError maps an engine error onto the wire. Store faults log at
// error, oracle trouble at warn; client mistakes stay at debug.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, op string, args ...any) {
	status := statusForError(err)
	fields := append([]any{log.FieldOperation, op, log.FieldError, err}, args...)
	switch {
	case status == http.StatusBadGateway:
		s.logger.WarnContext(r.Context(), "Oracle call failed", fields...)
	case status >= 500:
		s.logger.ErrorContext(r.Context(), "Request failed", fields...)
	default:
		s.logger.DebugContext(r.Context(), "Request rejected", fields...)
	}
	writeError(w, status, err.Error())
}

// orEmpty keeps empty collections as [] on the wire instead of null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
