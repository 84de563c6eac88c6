package auth

import "time"

// Config drives authentication behavior.
type Config struct {
	Secret   string
	TokenTTL time.Duration
}

// Admin is an operator allowed to curate the FAQ table.
type Admin struct {
	Username     string
	PasswordHash string
}

// LoginRequest captures login details.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the signed token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
}

// Claims are extracted from the JWT token.
type Claims struct {
	Username  string
	ExpiresAt time.Time
}
