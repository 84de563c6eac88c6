package faq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/yanqian/faqbot/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/faqbot/pkg/errors"
)

// Generator drafts synthetic FAQ pairs from the document store: pick a seed topic,
// pull its passages and ask the model for one JSON question/answer pair.
type Generator struct {
	cfg       GeneratorConfig
	client    ChatClient
	retriever PassageRetriever
	logger    *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator constructs a Generator. rng may be nil.
func NewGenerator(cfg GeneratorConfig, client ChatClient, retriever PassageRetriever, rng *rand.Rand, logger *slog.Logger) (*Generator, error) {
	if client == nil || retriever == nil {
		return nil, errors.New("generator requires a chat client and a passage retriever")
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = DefaultTopics()
	}
	if strings.TrimSpace(cfg.Prompt) == "" {
		cfg.Prompt = DefaultGeneratorPrompt
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultGeneratorTopK
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Generator{
		cfg:       cfg,
		client:    client,
		retriever: retriever,
		rng:       rng,
		logger:    logger.With("component", "faq.generator"),
	}, nil
}

// Generate drafts up to count pairs. Malformed model output is skipped; attempts are bounded.
// When no pair was produced and the model call failed, the last failure is returned.
func (g *Generator) Generate(ctx context.Context, count int) (GenerateReport, error) {
	report := GenerateReport{Requested: count}
	if count <= 0 {
		return report, nil
	}
	maxAttempts := g.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = count * 3
	}

	var lastErr error
	for len(report.Entries) < count && report.Attempts < maxAttempts {
		if err := ctx.Err(); err != nil {
			return report, classifyGenerativeError(ctx, "generation interrupted", err)
		}
		report.Attempts++

		topic := g.pickTopic()
		passages, err := g.retriever.RetrieveSimilarPassages(ctx, topic, g.cfg.TopK)
		if err != nil {
			return report, classifyGenerativeError(ctx, "passage retrieval failed", err)
		}
		if len(passages) == 0 {
			continue
		}

		prompt := renderPrompt(g.cfg.Prompt, strings.Join(passages, "\n\n---\n\n"), topic, "")
		resp, err := g.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
			Model:          g.cfg.Model,
			Messages:       []chatgpt.Message{{Role: "user", Content: prompt}},
			Temperature:    g.cfg.Temperature,
			ResponseFormat: &chatgpt.ResponseFormat{Type: "json_object"},
		})
		if err != nil {
			lastErr = err
			g.logger.Warn("generation call failed", "topic", topic, "error", err)
			continue
		}
		if len(resp.Choices) == 0 {
			continue
		}
		entry, ok := parseGeneratedPair(resp.Choices[0].Message.Content)
		if !ok {
			g.logger.Debug("discarding malformed pair", "topic", topic)
			continue
		}
		report.Entries = append(report.Entries, entry)
	}
	report.Generated = len(report.Entries)
	if report.Generated < count {
		g.logger.Warn("generation stopped early", "requested", count, "generated", report.Generated, "attempts", report.Attempts)
	}
	if report.Generated == 0 && lastErr != nil {
		return report, classifyGenerativeError(ctx, "chat completion failed", lastErr)
	}
	return report, nil
}

func (g *Generator) pickTopic() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.Topics[g.rng.Intn(len(g.cfg.Topics))]
}

type generatedPair struct {
	Pregunta  string `json:"pregunta"`
	Respuesta string `json:"respuesta"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

func parseGeneratedPair(raw string) (Entry, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return Entry{}, false
	}

	var pair generatedPair
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &pair); err != nil {
		return Entry{}, false
	}
	question := firstNonEmpty(pair.Pregunta, pair.Question)
	answer := firstNonEmpty(pair.Respuesta, pair.Answer)
	if question == "" || answer == "" {
		return Entry{}, false
	}
	return Entry{Question: question, Answer: answer}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

var errGeneratorDisabled = apperrors.Wrap(CodeFAQError, "faq generation is not configured", nil)
