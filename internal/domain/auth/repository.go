package auth

import "context"

// Repository looks up administrators.
type Repository interface {
	GetByUsername(ctx context.Context, username string) (Admin, bool, error)
}
