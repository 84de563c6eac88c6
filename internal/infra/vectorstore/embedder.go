package vectorstore

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"strings"

	"github.com/yanqian/faqbot/internal/domain/faq"
	"github.com/yanqian/faqbot/internal/infra/llm/chatgpt"
)

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingClient is the subset of the chatgpt client used for embeddings.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, req chatgpt.EmbeddingRequest) (chatgpt.EmbeddingResponse, error)
}

// maxBatchTokens keeps one embeddings request under provider caps.
const maxBatchTokens = 200_000

// ChatGPTEmbedder calls an OpenAI-compatible embeddings API (OpenAI, or Ollama serving nomic-embed-text).
type ChatGPTEmbedder struct {
	client  EmbeddingClient
	model   string
	counter faq.TokenCounter
	logger  *slog.Logger
}

// NewChatGPTEmbedder constructs an embedder backed by the chat client.
func NewChatGPTEmbedder(client EmbeddingClient, model string, logger *slog.Logger) *ChatGPTEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatGPTEmbedder{
		client:  client,
		model:   strings.TrimSpace(model),
		counter: faq.EstimateCounter{},
		logger:  logger.With("component", "vectorstore.embedder"),
	}
}

// Embed batches texts by estimated token count.
func (e *ChatGPTEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var (
		out         [][]float32
		batch       []string
		batchTokens int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		resp, err := e.client.CreateEmbedding(ctx, chatgpt.EmbeddingRequest{Model: e.model, Input: batch})
		if err != nil {
			return fmt.Errorf("create embedding: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return fmt.Errorf("embedding result count mismatch: expected %d, got %d", len(batch), len(resp.Data))
		}
		vectors := make([][]float32, len(batch))
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(vectors) {
				return fmt.Errorf("embedding index %d out of range", item.Index)
			}
			vectors[item.Index] = append([]float32(nil), item.Embedding...)
		}
		out = append(out, vectors...)
		batch = batch[:0]
		batchTokens = 0
		return nil
	}

	for _, text := range texts {
		tokens := e.counter.Count(text)
		if tokens > maxBatchTokens {
			return nil, fmt.Errorf("text too large for embedding request: estimated tokens=%d", tokens)
		}
		if batchTokens+tokens > maxBatchTokens && len(batch) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, text)
		batchTokens += tokens
	}
	if err := flush(); err != nil {
		return nil, err
	}
	e.logger.Debug("texts embedded", "count", len(out))
	return out, nil
}

// HashingEmbedder avoids network calls: normalized tokens are hashed into a fixed number
// of buckets, so texts sharing words land close together.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder constructs the embedder.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 1024
	}
	return &HashingEmbedder{dim: dim}
}

// Embed implements Embedder. Vectors are L2-normalized; text without tokens maps to the zero vector.
func (e *HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector := make([]float32, e.dim)
		for _, token := range strings.Fields(faq.Normalize(text)) {
			hash := fnv.New32a()
			_, _ = hash.Write([]byte(token))
			vector[hash.Sum32()%uint32(e.dim)]++
		}
		var sum float64
		for _, v := range vector {
			sum += float64(v) * float64(v)
		}
		if sum > 0 {
			norm := float32(math.Sqrt(sum))
			for j := range vector {
				vector[j] /= norm
			}
		}
		vectors[i] = vector
	}
	return vectors, nil
}

var (
	_ Embedder = (*ChatGPTEmbedder)(nil)
	_ Embedder = (*HashingEmbedder)(nil)
)
