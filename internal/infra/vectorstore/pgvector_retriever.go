package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

// PgvectorRetriever ranks passages stored in Postgres by pgvector cosine distance.
type PgvectorRetriever struct {
	pool     *pgxpool.Pool
	embedder Embedder
	table    string
}

// NewPgvectorRetriever constructs the retriever over table (default knowledge_passages).
func NewPgvectorRetriever(pool *pgxpool.Pool, embedder Embedder, table string) *PgvectorRetriever {
	if table == "" {
		table = "knowledge_passages"
	}
	return &PgvectorRetriever{
		pool:     pool,
		embedder: embedder,
		table:    pgx.Identifier{table}.Sanitize(),
	}
}

// EnsureSchema creates the extension and the passages table when missing.
func (r *PgvectorRetriever) EnsureSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("vector dimensions must be positive, got %d", dimensions)
	}
	if _, err := r.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id        BIGSERIAL PRIMARY KEY,
			source    TEXT NOT NULL,
			content   TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, r.table, dimensions))
	if err != nil {
		return fmt.Errorf("create passages table: %w", err)
	}
	return nil
}

// Count reports how many passages are stored.
func (r *PgvectorRetriever) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return n, nil
}

// Ingest embeds passages and inserts them in one batch, replacing earlier rows of the same sources.
func (r *PgvectorRetriever) Ingest(ctx context.Context, passages []Passage) error {
	if len(passages) == 0 {
		return nil
	}
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Content
	}
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed passages: %w", err)
	}
	if len(vectors) != len(passages) {
		return fmt.Errorf("embedder returned %d vectors for %d passages", len(vectors), len(passages))
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ingest: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source = ANY($1)`, r.table), distinctSources(passages)); err != nil {
		return fmt.Errorf("clear previous passages: %w", err)
	}
	batch := &pgx.Batch{}
	insert := fmt.Sprintf(`INSERT INTO %s (source, content, embedding) VALUES ($1, $2, $3)`, r.table)
	for i, p := range passages {
		batch.Queue(insert, p.Source, p.Content, pgvector.NewVector(vectors[i]))
	}
	results := tx.SendBatch(ctx, batch)
	for range passages {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert passage: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	return tx.Commit(ctx)
}

func distinctSources(passages []Passage) []string {
	seen := make(map[string]struct{}, len(passages))
	var out []string
	for _, p := range passages {
		if _, ok := seen[p.Source]; ok {
			continue
		}
		seen[p.Source] = struct{}{}
		out = append(out, p.Source)
	}
	return out
}

// RetrieveSimilarPassages implements faq.PassageRetriever.
func (r *PgvectorRetriever) RetrieveSimilarPassages(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT content
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, r.table), pgvector.NewVector(vectors[0]), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passages []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		passages = append(passages, content)
	}
	return passages, rows.Err()
}

var (
	_ faq.PassageRetriever = (*PgvectorRetriever)(nil)
	_ Ingester             = (*PgvectorRetriever)(nil)
)
