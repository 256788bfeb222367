package apperrors

import (
	"net/http"
)

// Factories for the enrollment conflict taxonomy and other domain errors.

func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrDuplicateEmail means another user already owns this email. Raised
// proactively or translated from a unique-constraint violation.
func ErrDuplicateEmail(err error) *AppError {
	return Wrap(err, CodeDuplicateEmail, "enrollment", "A user with this email already exists", http.StatusConflict)
}

// ErrDuplicateWhatsapp means another user already owns this WhatsApp number.
// The number is never silently reassigned.
func ErrDuplicateWhatsapp(err error) *AppError {
	return Wrap(err, CodeDuplicateWhatsapp, "enrollment", "Another user already owns this WhatsApp number", http.StatusConflict)
}

// ErrDuplicateEntry covers a unique-constraint violation that could not be
// attributed to a specific column.
func ErrDuplicateEntry(err error) *AppError {
	return Wrap(err, CodeDuplicateEntry, "enrollment", "Duplicate entry", http.StatusConflict)
}

// ErrAuthSignupFailed means the external identity provider rejected or
// failed the signup call; the whole enrollment aborts.
func ErrAuthSignupFailed(err error) *AppError {
	return Wrap(err, CodeAuthSignupFailed, "enrollment", "Identity provider signup failed", http.StatusBadGateway)
}

// ErrInvalidWhatsapp means the verification oracle reports the number as not
// a reachable WhatsApp account.
var ErrInvalidWhatsapp = New(
	CodeInvalidWhatsapp,
	"enrollment",
	"WhatsApp number is not valid or not reachable",
	http.StatusBadRequest,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// ErrInvalidCredentials deliberately does not distinguish an unknown email
// from a wrong password.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)
