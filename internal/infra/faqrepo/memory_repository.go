package faqrepo

import (
	"context"
	"sync"

	"github.com/yanqian/faqbot/internal/domain/faq"
	"github.com/yanqian/faqbot/pkg/util"
)

// MemoryRepository is an in-memory faq.Repository used for tests/dev.
// Rows keep insertion order so index ties resolve the same way as the SQL backends.
type MemoryRepository struct {
	mu      sync.RWMutex
	order   []string
	records map[string]faq.Entry
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]faq.Entry),
	}
}

// LoadAll implements faq.Repository.
func (r *MemoryRepository) LoadAll(_ context.Context) ([]faq.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]faq.Entry, 0, len(r.order))
	for _, question := range r.order {
		out = append(out, r.records[question])
	}
	return out, nil
}

// Upsert implements faq.Repository.
func (r *MemoryRepository) Upsert(_ context.Context, question, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[question]; !ok {
		r.order = append(r.order, question)
	}
	r.records[question] = faq.Entry{
		Question:  question,
		Answer:    answer,
		UpdatedAt: util.NowUTC(),
	}
	return nil
}

// Delete implements faq.Repository.
func (r *MemoryRepository) Delete(_ context.Context, question string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[question]; !ok {
		return false, nil
	}
	delete(r.records, question)
	for i, q := range r.order {
		if q == question {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Len reports the number of stored rows.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

var _ faq.Repository = (*MemoryRepository)(nil)
