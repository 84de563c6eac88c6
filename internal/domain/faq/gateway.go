package faq

import (
	"context"
	"io"

	"github.com/yanqian/faqbot/internal/infra/llm/chatgpt"
)

// Repository is the relational FAQ table.
type Repository interface {
	// LoadAll returns every entry; order is the index order.
	LoadAll(ctx context.Context) ([]Entry, error)
	// Upsert inserts or overwrites the answer for an exact question text.
	Upsert(ctx context.Context, question, answer string) error
	// Delete removes a row; only administrative paths call it.
	Delete(ctx context.Context, question string) (bool, error)
}

// PassageRetriever returns the k passages most similar to query, best first.
type PassageRetriever interface {
	RetrieveSimilarPassages(ctx context.Context, query string, k int) ([]string, error)
}

// ChatClient is the OpenAI-compatible completion endpoint.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// JobQueue defers write-back work.
type JobQueue interface {
	Enqueue(ctx context.Context, name string, payload any) error
}

// SeedSource opens the CSV used to populate an empty FAQ table.
type SeedSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Describe() string
}
