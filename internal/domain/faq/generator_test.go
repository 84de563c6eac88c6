package faq

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faqbot/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/faqbot/pkg/errors"
)

func TestParseGeneratedPair(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Entry
		ok   bool
	}{
		{
			name: "spanish keys",
			raw:  `{"pregunta": "¿Cuándo es la inscripción?", "respuesta": "En agosto."}`,
			want: Entry{Question: "¿Cuándo es la inscripción?", Answer: "En agosto."},
			ok:   true,
		},
		{
			name: "fenced english keys",
			raw:  "```json\n{\"question\": \"q\", \"answer\": \"a\"}\n```",
			want: Entry{Question: "q", Answer: "a"},
			ok:   true,
		},
		{
			name: "surrounding chatter",
			raw:  `Claro, aquí está: {"pregunta": " q ", "respuesta": " a "} ¡Suerte!`,
			want: Entry{Question: "q", Answer: "a"},
			ok:   true,
		},
		{name: "missing answer", raw: `{"pregunta": "q"}`},
		{name: "not json", raw: "sin formato"},
		{name: "broken json", raw: `{"pregunta": "q", }`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseGeneratedPair(tc.raw)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestGenerator_SkipsMalformedOutputWithinAttemptBudget(t *testing.T) {
	replies := []string{
		"no es json",
		`{"pregunta": "¿Dónde pago?", "respuesta": "En caja."}`,
		`{"pregunta": ""}`,
		`{"pregunta": "¿Cuándo?", "respuesta": "En agosto."}`,
	}
	calls := 0
	chat := &stubChat{fn: func(context.Context, chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
		reply := replies[calls%len(replies)]
		calls++
		return chatReply(reply), nil
	}}
	retriever := &stubRetriever{passages: []string{"p1", "p2", "p3", "p4"}}
	gen, err := NewGenerator(GeneratorConfig{Topics: []string{"cuotas"}}, chat, retriever, rand.New(rand.NewSource(1)), newTestLogger())
	require.NoError(t, err)

	report, err := gen.Generate(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 2, report.Generated)
	require.Equal(t, 4, report.Attempts)
	require.Equal(t, "¿Dónde pago?", report.Entries[0].Question)
	require.Equal(t, "¿Cuándo?", report.Entries[1].Question)

	require.Equal(t, []int{DefaultGeneratorTopK, DefaultGeneratorTopK, DefaultGeneratorTopK, DefaultGeneratorTopK}, retriever.ks)
	require.Equal(t, "cuotas", retriever.queries[0])
	req := chat.requests[0]
	require.NotNil(t, req.ResponseFormat)
	require.Equal(t, "json_object", req.ResponseFormat.Type)
	require.Contains(t, req.Messages[0].Content, "p1\n\n---\n\np2\n\n---\n\np3")
}

func TestGenerator_StopsAfterMaxAttempts(t *testing.T) {
	chat := &stubChat{fn: func(context.Context, chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
		return chatgpt.ChatCompletionResponse{}, errors.New("rate limited")
	}}
	gen, err := NewGenerator(GeneratorConfig{MaxAttempts: 5}, chat, &stubRetriever{passages: []string{"p"}}, nil, newTestLogger())
	require.NoError(t, err)

	report, err := gen.Generate(context.Background(), 3)
	require.Equal(t, CodeGenerativeUnreachable, apperrors.CodeOf(err))
	require.ErrorContains(t, err, "rate limited")
	require.Zero(t, report.Generated)
	require.Equal(t, 5, report.Attempts)
}

func TestGenerator_PartialSuccessIgnoresEarlierFailures(t *testing.T) {
	calls := 0
	chat := &stubChat{fn: func(context.Context, chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
		calls++
		if calls == 1 {
			return chatgpt.ChatCompletionResponse{}, errors.New("timeout upstream")
		}
		return chatReply(`{"pregunta": "¿Dónde pago?", "respuesta": "En caja."}`), nil
	}}
	gen, err := NewGenerator(GeneratorConfig{MaxAttempts: 5}, chat, &stubRetriever{passages: []string{"p"}}, nil, newTestLogger())
	require.NoError(t, err)

	report, err := gen.Generate(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, report.Generated)
	require.Equal(t, 2, report.Attempts)
}

func TestGenerator_RetrievalFailureAborts(t *testing.T) {
	chat := &stubChat{}
	gen, err := NewGenerator(GeneratorConfig{}, chat, &stubRetriever{err: errors.New("down")}, nil, newTestLogger())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), 1)
	require.Equal(t, CodeGenerativeUnreachable, apperrors.CodeOf(err))
	require.Empty(t, chat.requests)
}

func TestNewGenerator_RequiresCollaborators(t *testing.T) {
	_, err := NewGenerator(GeneratorConfig{}, nil, &stubRetriever{}, nil, newTestLogger())
	require.Error(t, err)
}
