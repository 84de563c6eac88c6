package faq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/yanqian/faqbot/pkg/errors"
)

// IndexPublisher receives freshly built snapshots.
type IndexPublisher interface {
	SwapIndex(idx *Index) *Index
}

// Rebuilder reloads the FAQ table into a new index and publishes it atomically.
// Builds are single-flight; triggers that arrive during a build coalesce into one follow-up build.
type Rebuilder struct {
	repo      Repository
	publisher IndexPublisher
	logger    *slog.Logger
	refresh   time.Duration

	mu      sync.Mutex
	trigger chan struct{}
}

// NewRebuilder constructs a Rebuilder. refresh > 0 adds a periodic reload so several
// instances sharing one table converge.
func NewRebuilder(repo Repository, publisher IndexPublisher, refresh time.Duration, logger *slog.Logger) *Rebuilder {
	return &Rebuilder{
		repo:      repo,
		publisher: publisher,
		refresh:   refresh,
		logger:    logger.With("component", "faq.rebuilder"),
		trigger:   make(chan struct{}, 1),
	}
}

// Rebuild loads every entry, builds a snapshot off to the side, then swaps it in.
// A load failure keeps the previous snapshot. An empty table publishes nil.
func (r *Rebuilder) Rebuild(ctx context.Context) (RebuildReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	entries, err := r.repo.LoadAll(ctx)
	if err != nil {
		rebuildsTotal.WithLabelValues("store_unavailable").Inc()
		r.logger.Warn("faq load failed, keeping previous index", "error", err)
		return RebuildReport{}, apperrors.Wrap(CodeStoreUnavailable, "failed to load faq entries", err)
	}

	idx, err := BuildIndex(entries)
	if err != nil && !errors.Is(err, ErrEmptyCorpus) {
		rebuildsTotal.WithLabelValues("error").Inc()
		return RebuildReport{}, apperrors.Wrap(CodeIndexUnavailable, "failed to build index", err)
	}
	r.publisher.SwapIndex(idx)

	elapsed := time.Since(start)
	rebuildDuration.Observe(elapsed.Seconds())
	indexEntries.Set(float64(idx.Len()))
	if idx == nil {
		rebuildsTotal.WithLabelValues("empty").Inc()
		r.logger.Warn("faq table is empty, knn tier has no index")
	} else {
		rebuildsTotal.WithLabelValues("ok").Inc()
		r.logger.Info("faq index published", "entries", idx.Len(), "vocabulary", idx.VocabularySize(), "duration_ms", elapsed.Milliseconds())
	}
	return RebuildReport{
		Entries:    idx.Len(),
		Vocabulary: idx.VocabularySize(),
		DurationMs: elapsed.Milliseconds(),
	}, nil
}

// Trigger requests an asynchronous rebuild without blocking.
func (r *Rebuilder) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run serves triggers and the optional refresh ticker until ctx is done.
func (r *Rebuilder) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if r.refresh > 0 {
		ticker := time.NewTicker(r.refresh)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.trigger:
		case <-tick:
		}
		if _, err := r.Rebuild(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("background rebuild failed", "error", err)
		}
	}
}
