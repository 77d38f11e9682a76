package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hongminglow/citizen-portal/internal/auth"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

// ErrForbidden is returned when an authenticated caller lacks a permission.
var ErrForbidden = errors.New("not enough permissions")

// ErrorBody is the shared error envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type mapping struct {
	err     error
	status  int
	code    string
	message string
}

// errorTable is checked in order with errors.Is; the duplicate sentinels wrap
// storage.ErrAlreadyExists and must come before it.
var errorTable = []mapping{
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", ""},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", ""},
	{auth.ErrExpiredToken, http.StatusUnauthorized, "expired_token", ""},
	{auth.ErrUnknownSubject, http.StatusUnauthorized, "unknown_subject", ""},
	{auth.ErrDuplicateEmail, http.StatusBadRequest, "duplicate_email", "Email already registered"},
	{auth.ErrDuplicateNationalID, http.StatusBadRequest, "duplicate_national_id", "National ID already registered"},
	{auth.ErrWeakPassword, http.StatusBadRequest, "weak_password", ""},
	{auth.ErrPasswordTooLong, http.StatusBadRequest, "password_too_long", ""},
	{auth.ErrInvalidNationalIDFormat, http.StatusBadRequest, "invalid_national_id_format", ""},
	{auth.ErrMissingFields, http.StatusBadRequest, "missing_fields", ""},
	{auth.ErrInvalidEmail, http.StatusBadRequest, "invalid_email", ""},
	{storage.ErrNotFound, http.StatusNotFound, "not_found", ""},
	{storage.ErrAlreadyExists, http.StatusConflict, "already_exists", ""},
	{ErrForbidden, http.StatusForbidden, "forbidden", ""},
}

// JSON writes data as the response body.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("respond: encode payload failed", "err", err)
	}
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorBody{Code: code, Error: http.StatusText(status), Message: message})
}

// Status returns the HTTP status and error code for err.
func Status(err error) (int, string) {
	if m, ok := lookup(err); ok {
		return m.status, m.code
	}
	return http.StatusInternalServerError, "internal_error"
}

// FromError translates err through the error table. Unmapped errors are logged
// and answered with a generic 500.
func FromError(w http.ResponseWriter, logger *slog.Logger, err error) {
	m, ok := lookup(err)
	if !ok {
		logger.Error("request failed", "err", err)
		Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if m.status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	// sentinel text only; wrapped context stays server side
	message := m.message
	if message == "" {
		message = m.err.Error()
	}
	Error(w, m.status, m.code, message)
}

func lookup(err error) (mapping, bool) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return mapping{}, false
}
