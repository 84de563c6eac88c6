package faq

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/faqbot/pkg/errors"
)

// Service exposes the chatbot and its administration.
type Service interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	Trending(ctx context.Context) ([]TrendingQuery, error)

	// Warmup seeds an empty table (when a seed is configured) and publishes the first index.
	Warmup(ctx context.Context) error
	ListEntries(ctx context.Context) ([]Entry, error)
	SaveEntry(ctx context.Context, entry Entry) error
	DeleteEntry(ctx context.Context, question string) (bool, error)
	Rebuild(ctx context.Context) (RebuildReport, error)
	Import(ctx context.Context, r io.Reader) (ImportReport, error)
	Generate(ctx context.Context, count int) (GenerateReport, error)
	Stats() IndexStats
}

type service struct {
	cfg       Config
	selector  *Selector
	rebuilder *Rebuilder
	learner   *Learner
	repo      Repository
	store     Store
	queue     JobQueue
	generator *Generator
	seed      SeedSource
	logger    *slog.Logger
}

// NewService wires up the FAQ domain. queue, generator and seed may be nil:
// write-back then runs inline, generation is disabled and nothing is seeded.
func NewService(
	cfg Config,
	selector *Selector,
	rebuilder *Rebuilder,
	learner *Learner,
	repo Repository,
	store Store,
	queue JobQueue,
	generator *Generator,
	seed SeedSource,
	logger *slog.Logger,
) Service {
	cfg.Messages = withDefaultMessages(cfg.Messages)
	return &service{
		cfg:       cfg,
		selector:  selector,
		rebuilder: rebuilder,
		learner:   learner,
		repo:      repo,
		store:     store,
		queue:     queue,
		generator: generator,
		seed:      seed,
		logger:    logger.With("component", "faq.service"),
	}
}

func (s *service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	start := time.Now()
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return ChatResponse{}, apperrors.Wrap(CodeInvalidInput, s.cfg.Messages.EmptyQuestion, nil)
	}

	outcome := s.selector.Respond(ctx, question, sanitizeMode(req.Mode) == ModeRegenerate)
	if s.shouldLearn(outcome.Source) {
		s.writeBack(ctx, question, outcome.Answer)
	}

	if err := s.store.IncrementQuery(ctx, Normalize(question), question); err != nil {
		s.logger.Warn("faq trending increment failed", "error", err)
	}

	resp := ChatResponse{
		Reply:      outcome.Answer,
		Model:      outcome.Source,
		DurationMs: time.Since(start).Milliseconds(),
		TokenUsage: outcome.Usage,
	}
	if outcome.Source == SourceKNN {
		distance := outcome.Distance
		resp.Distance = &distance
		resp.MatchedQuestion = outcome.MatchedQuestion
	}
	s.logger.Info("faq answered", "source", outcome.Source, "duration_ms", resp.DurationMs)
	return resp, nil
}

func (s *service) Trending(ctx context.Context) ([]TrendingQuery, error) {
	recs, err := s.store.TopQueries(ctx, s.cfg.TopRecommendations)
	if err != nil {
		return nil, apperrors.Wrap(CodeFAQError, "failed to load trending queries", err)
	}
	return recs, nil
}

func (s *service) Warmup(ctx context.Context) error {
	if s.seed != nil {
		if err := s.seedIfEmpty(ctx); err != nil {
			s.logger.Warn("faq seed failed", "source", s.seed.Describe(), "error", err)
		}
	}
	_, err := s.rebuilder.Rebuild(ctx)
	return err
}

func (s *service) ListEntries(ctx context.Context) ([]Entry, error) {
	entries, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap(CodeStoreUnavailable, "failed to load faq entries", err)
	}
	return entries, nil
}

func (s *service) SaveEntry(ctx context.Context, entry Entry) error {
	return s.learner.Learn(ctx, entry.Question, entry.Answer)
}

func (s *service) DeleteEntry(ctx context.Context, question string) (bool, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return false, apperrors.Wrap(CodeInvalidInput, "question is required", nil)
	}
	deleted, err := s.repo.Delete(ctx, question)
	if err != nil {
		return false, apperrors.Wrap(CodeStoreUnavailable, "failed to delete faq entry", err)
	}
	if deleted {
		s.rebuilder.Trigger()
	}
	return deleted, nil
}

func (s *service) Rebuild(ctx context.Context) (RebuildReport, error) {
	return s.rebuilder.Rebuild(ctx)
}

func (s *service) Import(ctx context.Context, r io.Reader) (ImportReport, error) {
	entries, skipped, err := ParseSeedCSV(r)
	if err != nil {
		return ImportReport{}, apperrors.Wrap(CodeInvalidInput, "invalid csv", err)
	}
	report, err := s.upsertAll(ctx, entries)
	report.Skipped += skipped
	if err != nil {
		return report, err
	}
	if _, err := s.rebuilder.Rebuild(ctx); err != nil {
		return report, err
	}
	return report, nil
}

func (s *service) Generate(ctx context.Context, count int) (GenerateReport, error) {
	if s.generator == nil {
		return GenerateReport{}, errGeneratorDisabled
	}
	if count <= 0 {
		return GenerateReport{}, apperrors.Wrap(CodeInvalidInput, "count must be positive", nil)
	}
	if s.cfg.MaxGenerate > 0 && count > s.cfg.MaxGenerate {
		return GenerateReport{}, apperrors.Wrap(CodeInvalidInput, "count exceeds the per-request limit", nil)
	}
	report, err := s.generator.Generate(ctx, count)
	if len(report.Entries) > 0 {
		if _, upsertErr := s.upsertAll(ctx, report.Entries); upsertErr != nil {
			return report, upsertErr
		}
		s.rebuilder.Trigger()
	}
	return report, err
}

func (s *service) Stats() IndexStats {
	idx := s.selector.Index()
	if idx == nil {
		return IndexStats{}
	}
	return IndexStats{Entries: idx.Len(), Vocabulary: idx.VocabularySize()}
}

func (s *service) shouldLearn(source Source) bool {
	if !s.cfg.WriteBack.Enabled {
		return false
	}
	switch source {
	case SourceGenerative:
		return true
	case SourceGenerativeUngrounded:
		return s.cfg.WriteBack.PersistUngrounded
	default:
		return false
	}
}

// writeBack never fails the request: the reply is already computed.
func (s *service) writeBack(ctx context.Context, question, answer string) {
	ctx = context.WithoutCancel(ctx)
	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, WriteBackJob, writeBackPayload(question, answer)); err != nil {
			s.logger.Warn("faq write-back enqueue failed", "error", err)
		}
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeBackTimeout)
	defer cancel()
	if err := s.learner.Learn(ctx, question, answer); err != nil {
		s.logger.Warn("faq write-back failed", "error", err)
	}
}

func (s *service) seedIfEmpty(ctx context.Context) error {
	existing, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	rc, err := s.seed.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()
	entries, skipped, err := ParseSeedCSV(rc)
	if err != nil {
		return err
	}
	report, err := s.upsertAll(ctx, entries)
	if err != nil {
		return err
	}
	s.logger.Info("faq table seeded", "source", s.seed.Describe(), "imported", report.Imported, "skipped", report.Skipped+skipped)
	return nil
}

func (s *service) upsertAll(ctx context.Context, entries []Entry) (ImportReport, error) {
	var report ImportReport
	for _, entry := range entries {
		if err := s.repo.Upsert(ctx, entry.Question, entry.Answer); err != nil {
			return report, apperrors.Wrap(CodeStoreUnavailable, "failed to import faq entry", err)
		}
		report.Imported++
	}
	return report, nil
}

func sanitizeMode(mode Mode) Mode {
	if Mode(strings.ToLower(string(mode))) == ModeRegenerate {
		return ModeRegenerate
	}
	return ModeNormal
}
