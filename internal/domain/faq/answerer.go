package faq

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/yanqian/faqbot/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/faqbot/pkg/errors"
	"github.com/yanqian/faqbot/pkg/metrics"
)

// Generation is a model reply with its token accounting.
type Generation struct {
	Text  string
	Usage metrics.TokenUsage
}

// Answerer produces a grounded answer for a question it has never seen.
type Answerer interface {
	Answer(ctx context.Context, question string) (Generation, error)
}

// RAGAnswerer retrieves passages from the document store and asks the chat model
// to answer from them only.
type RAGAnswerer struct {
	cfg       AnswererConfig
	client    ChatClient
	retriever PassageRetriever
	counter   TokenCounter
	logger    *slog.Logger
}

// NewRAGAnswerer validates its collaborators; an error here means the generative tier is down.
func NewRAGAnswerer(cfg AnswererConfig, client ChatClient, retriever PassageRetriever, counter TokenCounter, logger *slog.Logger) (*RAGAnswerer, error) {
	if client == nil {
		return nil, errors.New("rag answerer requires a chat client")
	}
	if retriever == nil {
		return nil, errors.New("rag answerer requires a passage retriever")
	}
	if strings.TrimSpace(cfg.Prompt) == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if strings.TrimSpace(cfg.UngroundedSentinel) == "" {
		cfg.UngroundedSentinel = DefaultUngroundedAnswer
	}
	if counter == nil {
		counter = EstimateCounter{}
	}
	return &RAGAnswerer{
		cfg:       cfg,
		client:    client,
		retriever: retriever,
		counter:   counter,
		logger:    logger.With("component", "faq.answerer"),
	}, nil
}

// Answer implements Answerer.
func (a *RAGAnswerer) Answer(ctx context.Context, question string) (Generation, error) {
	passages, err := a.retriever.RetrieveSimilarPassages(ctx, question, a.cfg.TopK)
	if err != nil {
		return Generation{}, classifyGenerativeError(ctx, "passage retrieval failed", err)
	}
	passages = a.fitContext(passages, question)
	if len(passages) == 0 {
		a.logger.Debug("no passages retrieved, replying ungrounded")
		return Generation{Text: a.cfg.UngroundedSentinel}, nil
	}

	prompt := renderPrompt(a.cfg.Prompt, strings.Join(passages, "\n\n"), question, a.cfg.UngroundedSentinel)
	resp, err := a.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       a.cfg.Model,
		Messages:    []chatgpt.Message{{Role: "user", Content: prompt}},
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		return Generation{}, classifyGenerativeError(ctx, "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return Generation{}, apperrors.Wrap(CodeGenerativeUnreachable, "model returned no choices", nil)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Generation{}, apperrors.Wrap(CodeGenerativeUnreachable, "model returned an empty answer", nil)
	}
	return Generation{
		Text: text,
		Usage: metrics.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// fitContext keeps passages in rank order until MaxContextTokens is reached.
// The best passage is always kept.
func (a *RAGAnswerer) fitContext(passages []string, question string) []string {
	kept := make([]string, 0, len(passages))
	for _, p := range passages {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	if a.cfg.MaxContextTokens <= 0 || len(kept) == 0 {
		return kept
	}
	used := a.counter.Count(renderPrompt(a.cfg.Prompt, "", question, a.cfg.UngroundedSentinel))
	out := kept[:0]
	for i, p := range kept {
		cost := a.counter.Count(p)
		if i > 0 && used+cost > a.cfg.MaxContextTokens {
			a.logger.Debug("context budget reached", "kept", i, "retrieved", len(kept))
			break
		}
		used += cost
		out = append(out, p)
	}
	return out
}

func renderPrompt(template, contextText, question, sentinel string) string {
	return strings.NewReplacer(
		"{context}", contextText,
		"{question}", question,
		"{sentinel}", sentinel,
	).Replace(template)
}

func classifyGenerativeError(ctx context.Context, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.Wrap(CodeGenerativeTimeout, message, err)
	}
	return apperrors.Wrap(CodeGenerativeUnreachable, message, err)
}

var _ Answerer = (*RAGAnswerer)(nil)
