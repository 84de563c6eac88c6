package auth

// Error codes carried by apperrors.AppError values produced in this package.
const (
	CodeInvalidInput       = "invalid_input"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeAuthError          = "auth_error"
)
