package handlers

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// Error codes returned in the "code" field of error bodies
const (
	CodeValidation         = "validation_failed"
	CodeNotFound           = "not_found"
	CodeSelectionLocked    = "selection_locked"
	CodeConflict           = "conflict"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeCSRF               = "csrf_invalid"
	CodeRateLimited        = "rate_limited"
	CodeInternal           = "internal_error"
)

const (
	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrInternalServerError = "Internal server error"
)
