package apperrors

type ErrorCode string

const (
	// System
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Generic business codes
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"

	// Uniqueness conflicts raised by enrollment. Webhooks retry, so the
	// caller must be able to tell "already happened" from "invalid".
	CodeDuplicateEmail    ErrorCode = "DUPLICATE_EMAIL"
	CodeDuplicateWhatsapp ErrorCode = "DUPLICATE_WHATSAPP"
	CodeDuplicateEntry    ErrorCode = "DUPLICATE_ENTRY"

	// Upstream collaborators
	CodeAuthSignupFailed ErrorCode = "AUTH_SIGNUP_FAILED"
	CodeInvalidWhatsapp  ErrorCode = "INVALID_WHATSAPP"

	// Auth
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
)
