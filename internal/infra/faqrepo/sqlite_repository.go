package faqrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yanqian/faqbot/internal/domain/faq"
	"github.com/yanqian/faqbot/pkg/util"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS faq (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	question   TEXT NOT NULL UNIQUE,
	answer     TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteRepository keeps the FAQ table in an embedded SQLite file, for single-node
// deployments without Postgres.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open faq db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate faq db: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// LoadAll implements faq.Repository.
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]faq.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT question, answer, updated_at FROM faq ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []faq.Entry
	for rows.Next() {
		var (
			entry   faq.Entry
			updated string
		)
		if err := rows.Scan(&entry.Question, &entry.Answer, &updated); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			entry.UpdatedAt = ts
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Upsert implements faq.Repository.
func (r *SQLiteRepository) Upsert(ctx context.Context, question, answer string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO faq (question, answer, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (question)
		DO UPDATE SET answer = excluded.answer, updated_at = excluded.updated_at
	`, question, answer, util.NowUTC().Format(time.RFC3339Nano))
	return err
}

// Delete implements faq.Repository.
func (r *SQLiteRepository) Delete(ctx context.Context, question string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM faq WHERE question = ?`, question)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ faq.Repository = (*SQLiteRepository)(nil)
