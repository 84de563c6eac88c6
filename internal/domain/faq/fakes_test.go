package faq

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/yanqian/faqbot/internal/infra/llm/chatgpt"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryRepo struct {
	mu        sync.Mutex
	order     []string
	answers   map[string]string
	loads     int
	loadErr   error
	upsertErr error
}

func newMemoryRepo(entries ...Entry) *memoryRepo {
	r := &memoryRepo{answers: make(map[string]string)}
	for _, e := range entries {
		_ = r.Upsert(context.Background(), e.Question, e.Answer)
	}
	return r
}

func (r *memoryRepo) LoadAll(context.Context) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	out := make([]Entry, 0, len(r.order))
	for _, q := range r.order {
		out = append(out, Entry{Question: q, Answer: r.answers[q]})
	}
	return out, nil
}

func (r *memoryRepo) Upsert(_ context.Context, question, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	if _, ok := r.answers[question]; !ok {
		r.order = append(r.order, question)
	}
	r.answers[question] = answer
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, question string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.answers[question]; !ok {
		return false, nil
	}
	delete(r.answers, question)
	for i, q := range r.order {
		if q == question {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *memoryRepo) loadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

func (r *memoryRepo) answer(question string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.answers[question]
	return a, ok
}

func (r *memoryRepo) setLoadErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadErr = err
}

type stubAnswerer struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, question string) (Generation, error)
	calls []string
}

func (a *stubAnswerer) Answer(ctx context.Context, question string) (Generation, error) {
	a.mu.Lock()
	a.calls = append(a.calls, question)
	a.mu.Unlock()
	if a.fn == nil {
		return Generation{Text: "respuesta generada"}, nil
	}
	return a.fn(ctx, question)
}

func (a *stubAnswerer) questions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func fixedAnswer(text string) *stubAnswerer {
	return &stubAnswerer{fn: func(context.Context, string) (Generation, error) {
		return Generation{Text: text}, nil
	}}
}

type stubRetriever struct {
	passages []string
	err      error
	queries  []string
	ks       []int
}

func (r *stubRetriever) RetrieveSimilarPassages(_ context.Context, query string, k int) ([]string, error) {
	r.queries = append(r.queries, query)
	r.ks = append(r.ks, k)
	if r.err != nil {
		return nil, r.err
	}
	if k < len(r.passages) {
		return r.passages[:k], nil
	}
	return r.passages, nil
}

type stubChat struct {
	fn       func(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
	requests []chatgpt.ChatCompletionRequest
}

func (c *stubChat) CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	c.requests = append(c.requests, req)
	return c.fn(ctx, req)
}

func chatReply(content string) chatgpt.ChatCompletionResponse {
	return chatgpt.ChatCompletionResponse{
		Choices: []chatgpt.Choice{{Message: chatgpt.Message{Role: "assistant", Content: content}}},
	}
}

type memoryStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{counts: make(map[string]int64)}
}

func (s *memoryStore) IncrementQuery(_ context.Context, canonical, _ string) error {
	if canonical == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[canonical]++
	return nil
}

func (s *memoryStore) TopQueries(_ context.Context, limit int) ([]TrendingQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TrendingQuery, 0, len(s.counts))
	for q, c := range s.counts {
		out = append(out, TrendingQuery{Query: q, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type recordingQueue struct {
	mu       sync.Mutex
	names    []string
	payloads []map[string]any
}

func (q *recordingQueue) Enqueue(_ context.Context, name string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.names = append(q.names, name)
	typed, _ := payload.(map[string]any)
	q.payloads = append(q.payloads, typed)
	return nil
}

type stringSeed struct {
	body   string
	opened int
}

func (s *stringSeed) Open(context.Context) (io.ReadCloser, error) {
	s.opened++
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func (s *stringSeed) Describe() string { return "inline" }
