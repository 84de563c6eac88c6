package faq

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Selector routes a question to the FAQ index or to the generative answerer.
// It owns the published index; readers never block on a rebuild.
type Selector struct {
	cfg             SelectorConfig
	answerer        Answerer
	generativeReady bool
	index           atomic.Pointer[Index]
	logger          *slog.Logger
}

// NewSelector resolves tier availability once. A nil answerer with the generative
// tier enabled means it failed to initialize; requests that reach it get Messages.InternalError.
func NewSelector(cfg SelectorConfig, answerer Answerer, logger *slog.Logger) *Selector {
	if cfg.GenerativeTimeout <= 0 {
		cfg.GenerativeTimeout = DefaultGenerativeTimeout
	}
	if cfg.DistanceThreshold < 0 {
		cfg.DistanceThreshold = DefaultDistanceThreshold
	}
	if strings.TrimSpace(cfg.UngroundedSentinel) == "" {
		cfg.UngroundedSentinel = DefaultUngroundedAnswer
	}
	cfg.Messages = withDefaultMessages(cfg.Messages)

	s := &Selector{
		cfg:             cfg,
		answerer:        answerer,
		generativeReady: answerer != nil,
		logger:          logger.With("component", "faq.selector"),
	}
	if cfg.Tiers.Generative && !s.generativeReady {
		s.logger.Error("generative tier enabled but not initialized")
	}
	s.logger.Info("model selector ready",
		"knn", cfg.Tiers.KNN,
		"generative", cfg.Tiers.Generative,
		"generative_ready", s.generativeReady,
		"threshold", cfg.DistanceThreshold,
	)
	return s
}

// SwapIndex publishes idx (nil clears it) and returns the previous snapshot.
func (s *Selector) SwapIndex(idx *Index) *Index {
	return s.index.Swap(idx)
}

// Index returns the currently published snapshot, possibly nil.
func (s *Selector) Index() *Index {
	return s.index.Load()
}

// Respond answers question. It never fails: tier errors become fixed messages.
func (s *Selector) Respond(ctx context.Context, question string, forceGenerative bool) Outcome {
	if s.cfg.Tiers.KNN && !forceGenerative {
		match := s.index.Load().Query(question)
		if match.Found {
			knnDistance.Observe(match.Distance)
		}
		if match.Found && match.Distance <= s.cfg.DistanceThreshold && strings.TrimSpace(match.Answer) != "" {
			s.logger.Debug("knn hit", "distance", match.Distance, "matched", match.Question)
			return s.finish(Outcome{
				Answer:          match.Answer,
				Source:          SourceKNN,
				Distance:        match.Distance,
				MatchedQuestion: match.Question,
			})
		}
		s.logger.Debug("knn miss", "found", match.Found, "distance", match.Distance)
	}

	if s.cfg.Tiers.Generative {
		if !s.generativeReady {
			return s.finish(Outcome{Answer: s.cfg.Messages.InternalError, Source: SourceUnavailable, Distance: 1.0})
		}
		return s.finish(s.generate(ctx, question))
	}

	return s.finish(Outcome{Answer: s.cfg.Messages.NoAnswer, Source: SourceUnavailable, Distance: 1.0})
}

func (s *Selector) generate(ctx context.Context, question string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GenerativeTimeout)
	defer cancel()

	start := time.Now()
	gen, err := s.answerer.Answer(ctx, question)
	if err != nil {
		generativeLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		s.logger.Warn("generative answer failed", "error", err)
		return Outcome{Answer: s.cfg.Messages.GenerativeFailure, Source: SourceUnavailable, Distance: 1.0}
	}
	generativeLatency.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	source := SourceGenerative
	if isUngrounded(gen.Text, s.cfg.UngroundedSentinel) {
		source = SourceGenerativeUngrounded
	}
	out := Outcome{Answer: gen.Text, Source: source, Distance: 1.0}
	if !gen.Usage.IsZero() {
		usage := gen.Usage
		out.Usage = &usage
	}
	return out
}

func (s *Selector) finish(out Outcome) Outcome {
	recordSelection(out.Source)
	return out
}

// isUngrounded compares on normalized tokens so quoting and punctuation do not matter.
func isUngrounded(answer, sentinel string) bool {
	want := Normalize(sentinel)
	return want != "" && Normalize(answer) == want
}

func withDefaultMessages(m Messages) Messages {
	defaults := DefaultMessages()
	if strings.TrimSpace(m.InternalError) == "" {
		m.InternalError = defaults.InternalError
	}
	if strings.TrimSpace(m.GenerativeFailure) == "" {
		m.GenerativeFailure = defaults.GenerativeFailure
	}
	if strings.TrimSpace(m.NoAnswer) == "" {
		m.NoAnswer = defaults.NoAnswer
	}
	if strings.TrimSpace(m.EmptyQuestion) == "" {
		m.EmptyQuestion = defaults.EmptyQuestion
	}
	return m
}
