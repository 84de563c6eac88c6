package faq

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/faqbot/pkg/errors"
)

// WriteBackJob is the queue job name for persisting a generated answer.
const WriteBackJob = "faq.write_back"

const writeBackTimeout = 10 * time.Second

// Learner persists generated answers so the next identical question is served by the index.
type Learner struct {
	repo      Repository
	rebuilder *Rebuilder
	logger    *slog.Logger
}

// NewLearner constructs a Learner.
func NewLearner(repo Repository, rebuilder *Rebuilder, logger *slog.Logger) *Learner {
	return &Learner{
		repo:      repo,
		rebuilder: rebuilder,
		logger:    logger.With("component", "faq.learner"),
	}
}

// Learn upserts {question, answer} keyed by exact question text and schedules a rebuild.
// Concurrent calls for the same question are serialized by the store; last writer wins.
func (l *Learner) Learn(ctx context.Context, question, answer string) error {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return apperrors.Wrap(CodeInvalidInput, "question and answer are required", nil)
	}
	if err := l.repo.Upsert(ctx, question, answer); err != nil {
		writeBacksTotal.WithLabelValues("error").Inc()
		return apperrors.Wrap(CodeStoreUnavailable, "failed to persist faq entry", err)
	}
	writeBacksTotal.WithLabelValues("ok").Inc()
	if l.rebuilder != nil {
		l.rebuilder.Trigger()
	}
	return nil
}

// HandleJob adapts Learn to queue delivery. Failures are logged and dropped.
func (l *Learner) HandleJob(ctx context.Context, name string, payload map[string]any) {
	if name != WriteBackJob {
		l.logger.Warn("unknown job ignored", "job", name)
		return
	}
	question, _ := payload["question"].(string)
	answer, _ := payload["answer"].(string)

	ctx, cancel := context.WithTimeout(ctx, writeBackTimeout)
	defer cancel()
	if err := l.Learn(ctx, question, answer); err != nil {
		l.logger.Warn("queued write-back failed", "error", err)
	}
}

func writeBackPayload(question, answer string) map[string]any {
	return map[string]any{"question": question, "answer": answer}
}
