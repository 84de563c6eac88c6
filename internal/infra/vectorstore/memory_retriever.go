package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

type storedPassage struct {
	passage   Passage
	embedding []float32
}

// MemoryRetriever keeps embedded passages in process memory and ranks them by cosine similarity.
type MemoryRetriever struct {
	embedder Embedder
	logger   *slog.Logger

	mu       sync.RWMutex
	passages []storedPassage
}

// NewMemoryRetriever constructs an empty retriever.
func NewMemoryRetriever(embedder Embedder, logger *slog.Logger) *MemoryRetriever {
	return &MemoryRetriever{
		embedder: embedder,
		logger:   logger.With("component", "vectorstore.memory"),
	}
}

// Ingest embeds and appends passages.
func (r *MemoryRetriever) Ingest(ctx context.Context, passages []Passage) error {
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

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range passages {
		r.passages = append(r.passages, storedPassage{passage: p, embedding: vectors[i]})
	}
	r.logger.Info("passages ingested", "added", len(passages), "total", len(r.passages))
	return nil
}

// Len reports the number of stored passages.
func (r *MemoryRetriever) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.passages)
}

// RetrieveSimilarPassages implements faq.PassageRetriever. Passages with no positive
// similarity are never returned.
func (r *MemoryRetriever) RetrieveSimilarPassages(ctx context.Context, query string, k int) ([]string, error) {
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
	queryVec := vectors[0]

	type scored struct {
		index int
		score float64
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	candidates := make([]scored, 0, len(r.passages))
	for i, p := range r.passages {
		if score := cosineSimilarity(queryVec, p.embedding); score > 0 {
			candidates = append(candidates, scored{index: i, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = r.passages[c.index].passage.Content
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	length := len(a)
	if len(b) < length {
		length = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < length; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var (
	_ faq.PassageRetriever = (*MemoryRetriever)(nil)
	_ Ingester             = (*MemoryRetriever)(nil)
)
