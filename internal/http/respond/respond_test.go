package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/citizen-portal/internal/auth"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{fmt.Errorf("%w: signature", auth.ErrInvalidToken), http.StatusUnauthorized, "invalid_token"},
		{auth.ErrExpiredToken, http.StatusUnauthorized, "expired_token"},
		{auth.ErrUnknownSubject, http.StatusUnauthorized, "unknown_subject"},
		{storage.ErrDuplicateEmail, http.StatusBadRequest, "duplicate_email"},
		{fmt.Errorf("create user: %w", storage.ErrDuplicateNationalID), http.StatusBadRequest, "duplicate_national_id"},
		{auth.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
		{fmt.Errorf("register: %w", auth.ErrPasswordTooLong), http.StatusBadRequest, "password_too_long"},
		{auth.ErrInvalidNationalIDFormat, http.StatusBadRequest, "invalid_national_id_format"},
		{auth.ErrMissingFields, http.StatusBadRequest, "missing_fields"},
		{auth.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
		{fmt.Errorf("role 3: %w", storage.ErrNotFound), http.StatusNotFound, "not_found"},
		{storage.ErrAlreadyExists, http.StatusConflict, "already_exists"},
		{ErrForbidden, http.StatusForbidden, "forbidden"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := Status(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestFromErrorUnauthorizedSetsChallenge(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, slog.New(slog.NewTextHandler(io.Discard, nil)), auth.ErrInvalidCredentials)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "invalid_credentials", body.Code)
	assert.Equal(t, "Unauthorized", body.Error)
	assert.Equal(t, auth.ErrInvalidCredentials.Error(), body.Message)
}

func TestFromErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, slog.New(slog.NewTextHandler(io.Discard, nil)), errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal_error", body.Code)
	assert.NotContains(t, body.Message, "connection refused")
}

func TestFromErrorDuplicateMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, slog.Default(), storage.ErrDuplicateEmail)

	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", body.Message)
	assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
}
