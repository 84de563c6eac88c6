package adminrepo

import (
	"context"
	"strings"
	"sync"

	"github.com/yanqian/faqbot/internal/domain/auth"
)

// StaticRepository serves administrators declared in configuration.
type StaticRepository struct {
	mu     sync.RWMutex
	admins map[string]auth.Admin
}

// NewStaticRepository indexes the admins by lowercase username.
func NewStaticRepository(admins []auth.Admin) *StaticRepository {
	repo := &StaticRepository{admins: make(map[string]auth.Admin, len(admins))}
	for _, admin := range admins {
		repo.Put(admin)
	}
	return repo
}

// Put adds or replaces an admin.
func (r *StaticRepository) Put(admin auth.Admin) {
	username := strings.ToLower(strings.TrimSpace(admin.Username))
	if username == "" || admin.PasswordHash == "" {
		return
	}
	admin.Username = username
	r.mu.Lock()
	r.admins[username] = admin
	r.mu.Unlock()
}

// GetByUsername returns the admin registered under username.
func (r *StaticRepository) GetByUsername(_ context.Context, username string) (auth.Admin, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	admin, ok := r.admins[strings.ToLower(strings.TrimSpace(username))]
	return admin, ok, nil
}

// Len reports how many admins are registered.
func (r *StaticRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.admins)
}

var _ auth.Repository = (*StaticRepository)(nil)
