package faqrepo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS faq (
	id         BIGSERIAL PRIMARY KEY,
	question   TEXT NOT NULL UNIQUE,
	answer     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresRepository implements faq.Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the faq table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, postgresSchema)
	return err
}

// LoadAll returns every row in insertion order.
func (r *PostgresRepository) LoadAll(ctx context.Context) ([]faq.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT question, answer, updated_at
		FROM faq
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []faq.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Upsert inserts the row or replaces the answer of the row with the same question.
func (r *PostgresRepository) Upsert(ctx context.Context, question, answer string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO faq (question, answer)
		VALUES ($1, $2)
		ON CONFLICT (question)
		DO UPDATE SET answer = EXCLUDED.answer, updated_at = now()
	`, question, answer)
	return err
}

// Delete removes the row keyed by question.
func (r *PostgresRepository) Delete(ctx context.Context, question string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM faq WHERE question = $1`, question)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (faq.Entry, error) {
	var entry faq.Entry
	if err := row.Scan(&entry.Question, &entry.Answer, &entry.UpdatedAt); err != nil {
		return faq.Entry{}, err
	}
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	return entry, nil
}

var _ faq.Repository = (*PostgresRepository)(nil)
