package auth

import (
	"errors"

	"github.com/hongminglow/citizen-portal/internal/storage"
)

// Authentication failures.
var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrExpiredToken       = errors.New("token has expired")
	ErrUnknownSubject     = errors.New("token subject does not match any user")
)

// Registration failures. The duplicate errors alias the storage sentinels so a
// unique-constraint race at insert time is reported the same way as the pre-check.
var (
	ErrMissingFields           = errors.New("email, password, first name, last name and national id are required")
	ErrInvalidEmail            = errors.New("email address is not valid")
	ErrDuplicateEmail          = storage.ErrDuplicateEmail
	ErrDuplicateNationalID     = storage.ErrDuplicateNationalID
	ErrWeakPassword            = errors.New("password must be at least 6 characters long")
	ErrPasswordTooLong         = errors.New("password must be at most 72 bytes long")
	ErrInvalidNationalIDFormat = errors.New("national id must be exactly 9 digits")
)
