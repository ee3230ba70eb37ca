package httpapi

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/bookstore/services/library/internal/apperr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string                   `json:"error"`
	Message string                   `json:"message"`
	Details []apperr.ValidationError `json:"details,omitempty"`
}

// SuccessResponse wraps the payload of a successful request.
type SuccessResponse struct {
	Data any `json:"data"`
}

// WriteJSON writes data with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteNoContent writes an empty 204.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError renders err with the status matching its kind. Store and
// internal failures do not leak their message.
func WriteError(w http.ResponseWriter, err error) error {
	status := StatusFor(err)
	resp := ErrorResponse{
		Error:   apperr.Code(err),
		Message: err.Error(),
	}

	var many validationErrors
	var one apperr.ValidationError
	switch {
	case errors.As(err, &many):
		resp.Details = many
	case errors.As(err, &one):
		resp.Details = []apperr.ValidationError{one}
	}

	switch status {
	case http.StatusServiceUnavailable:
		resp.Message = "storage unavailable"
	case http.StatusInternalServerError:
		resp.Message = "internal server error"
	}

	return WriteJSON(w, status, resp)
}

// StatusFor maps an error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrDuplicateISBN),
		errors.Is(err, apperr.ErrBookBorrowed),
		errors.Is(err, apperr.ErrAlreadyBorrowed),
		errors.Is(err, apperr.ErrNoOpenBorrowing):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
