package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookstore/services/library/internal/apperr"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.ErrBookNotFound, http.StatusNotFound},
		{apperr.ErrMemberNotFound, http.StatusNotFound},
		{apperr.ErrDuplicateISBN, http.StatusConflict},
		{apperr.ErrBookBorrowed, http.StatusConflict},
		{apperr.ErrAlreadyBorrowed, http.StatusConflict},
		{apperr.ErrNoOpenBorrowing, http.StatusConflict},
		{apperr.Invalid("name", "is required"), http.StatusBadRequest},
		{validationErrors{{Field: "a"}, {Field: "b"}}, http.StatusBadRequest},
		{apperr.Store("get book", errors.New("connection reset")), http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", apperr.ErrBookNotFound), http.StatusNotFound},
		{errors.New("surprise"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestWriteErrorHidesStoreDetails(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteError(w, apperr.Store("get book", errors.New("dial tcp 10.0.0.1:5432"))))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
	assert.JSONEq(t, `{"error":"STORE_ERROR","message":"storage unavailable"}`, w.Body.String())
}

func TestWriteErrorValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteError(w, apperr.Invalid("isbn", "is required")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{
		"error":"VALIDATION_ERROR",
		"message":"isbn: is required",
		"details":[{"field":"isbn","message":"is required"}]
	}`, w.Body.String())
}
