package faq

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faqbot/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/faqbot/pkg/errors"
)

type serviceFixture struct {
	svc       Service
	repo      *memoryRepo
	selector  *Selector
	rebuilder *Rebuilder
	store     *memoryStore
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	cfg       Config
	answerer  Answerer
	queue     JobQueue
	generator *Generator
	seed      SeedSource
}

func withWriteBack(wb WriteBackConfig) fixtureOption {
	return func(c *fixtureConfig) { c.cfg.WriteBack = wb }
}

func withQueue(q JobQueue) fixtureOption {
	return func(c *fixtureConfig) { c.queue = q }
}

func withSeed(s SeedSource) fixtureOption {
	return func(c *fixtureConfig) { c.seed = s }
}

func withGenerator(g *Generator) fixtureOption {
	return func(c *fixtureConfig) { c.generator = g }
}

func newServiceFixture(t *testing.T, answerer Answerer, repo *memoryRepo, opts ...fixtureOption) serviceFixture {
	t.Helper()
	fc := fixtureConfig{
		cfg: Config{
			TopRecommendations: 5,
			WriteBack:          WriteBackConfig{Enabled: true},
			MaxGenerate:        10,
		},
		answerer: answerer,
	}
	for _, opt := range opts {
		opt(&fc)
	}

	logger := newTestLogger()
	sel := NewSelector(SelectorConfig{
		Tiers:             Tiers{KNN: true, Generative: true},
		DistanceThreshold: 0.4,
		GenerativeTimeout: time.Second,
	}, fc.answerer, logger)
	rebuilder := NewRebuilder(repo, sel, 0, logger)
	learner := NewLearner(repo, rebuilder, logger)
	store := newMemoryStore()
	svc := NewService(fc.cfg, sel, rebuilder, learner, repo, store, fc.queue, fc.generator, fc.seed, logger)
	_, err := rebuilder.Rebuild(context.Background())
	require.NoError(t, err)
	return serviceFixture{svc: svc, repo: repo, selector: sel, rebuilder: rebuilder, store: store}
}

func TestService_ScenarioD_LearnsGeneratedAnswer(t *testing.T) {
	answerer := fixedAnswer("Se solicita en la ventanilla de servicios escolares.")
	f := newServiceFixture(t, answerer, newMemoryRepo(Entry{Question: "costo credencial", Answer: "$50"}))
	ctx := context.Background()
	question := "¿Cómo tramito la constancia de estudios?"

	first, err := f.svc.Chat(ctx, ChatRequest{Message: question})
	require.NoError(t, err)
	require.Equal(t, SourceGenerative, first.Model)
	require.Nil(t, first.Distance)

	stored, ok := f.repo.answer(question)
	require.True(t, ok)
	require.Equal(t, first.Reply, stored)

	_, err = f.rebuilder.Rebuild(ctx)
	require.NoError(t, err)

	second, err := f.svc.Chat(ctx, ChatRequest{Message: question})
	require.NoError(t, err)
	require.Equal(t, SourceKNN, second.Model)
	require.Equal(t, first.Reply, second.Reply)
	require.NotNil(t, second.Distance)
	require.Equal(t, 0.0, *second.Distance)
	require.Equal(t, question, second.MatchedQuestion)
	require.Len(t, answerer.questions(), 1)
}

func TestService_KNNAnswerIsNotWrittenBack(t *testing.T) {
	repo := newMemoryRepo(Entry{Question: "costo credencial", Answer: "$50"})
	f := newServiceFixture(t, fixedAnswer("generada"), repo)

	resp, err := f.svc.Chat(context.Background(), ChatRequest{Message: "costo de la credencial"})
	require.NoError(t, err)
	require.Equal(t, SourceKNN, resp.Model)
	_, ok := repo.answer("costo de la credencial")
	require.False(t, ok)
}

func TestService_WriteBackDisabled(t *testing.T) {
	repo := newMemoryRepo()
	f := newServiceFixture(t, fixedAnswer("generada"), repo, withWriteBack(WriteBackConfig{}))

	resp, err := f.svc.Chat(context.Background(), ChatRequest{Message: "pregunta nueva"})
	require.NoError(t, err)
	require.Equal(t, SourceGenerative, resp.Model)
	_, ok := repo.answer("pregunta nueva")
	require.False(t, ok)
}

func TestService_UngroundedAnswers(t *testing.T) {
	cases := []struct {
		name    string
		persist bool
	}{
		{name: "skipped by default", persist: false},
		{name: "persisted when configured", persist: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemoryRepo()
			f := newServiceFixture(t, fixedAnswer(DefaultUngroundedAnswer), repo,
				withWriteBack(WriteBackConfig{Enabled: true, PersistUngrounded: tc.persist}))

			resp, err := f.svc.Chat(context.Background(), ChatRequest{Message: "¿quién ganó el mundial?"})
			require.NoError(t, err)
			require.Equal(t, SourceGenerativeUngrounded, resp.Model)
			_, ok := repo.answer("¿quién ganó el mundial?")
			require.Equal(t, tc.persist, ok)
		})
	}
}

func TestService_FailureMessagesAreNotWrittenBack(t *testing.T) {
	repo := newMemoryRepo()
	answerer := &stubAnswerer{fn: func(context.Context, string) (Generation, error) {
		return Generation{}, errors.New("boom")
	}}
	f := newServiceFixture(t, answerer, repo)

	resp, err := f.svc.Chat(context.Background(), ChatRequest{Message: "pregunta nueva"})
	require.NoError(t, err)
	require.Equal(t, SourceUnavailable, resp.Model)
	require.Equal(t, DefaultMessages().GenerativeFailure, resp.Reply)
	_, ok := repo.answer("pregunta nueva")
	require.False(t, ok)
}

func TestService_WriteBackErrorDoesNotFailReply(t *testing.T) {
	repo := newMemoryRepo()
	f := newServiceFixture(t, fixedAnswer("generada"), repo)
	repo.mu.Lock()
	repo.upsertErr = errors.New("disk full")
	repo.mu.Unlock()

	resp, err := f.svc.Chat(context.Background(), ChatRequest{Message: "pregunta nueva"})
	require.NoError(t, err)
	require.Equal(t, "generada", resp.Reply)
}

func TestService_WriteBackThroughQueue(t *testing.T) {
	repo := newMemoryRepo()
	queue := &recordingQueue{}
	f := newServiceFixture(t, fixedAnswer("generada"), repo, withQueue(queue))

	_, err := f.svc.Chat(context.Background(), ChatRequest{Message: "  pregunta nueva  "})
	require.NoError(t, err)

	require.Equal(t, []string{WriteBackJob}, queue.names)
	require.Equal(t, "pregunta nueva", queue.payloads[0]["question"])
	require.Equal(t, "generada", queue.payloads[0]["answer"])
	_, ok := repo.answer("pregunta nueva")
	require.False(t, ok)

	learner := NewLearner(repo, f.rebuilder, newTestLogger())
	learner.HandleJob(context.Background(), queue.names[0], queue.payloads[0])
	stored, ok := repo.answer("pregunta nueva")
	require.True(t, ok)
	require.Equal(t, "generada", stored)
}

func TestService_RegenerateForcesGenerative(t *testing.T) {
	answerer := fixedAnswer("versión nueva")
	repo := newMemoryRepo(Entry{Question: "costo credencial", Answer: "$50"})
	f := newServiceFixture(t, answerer, repo)

	resp, err := f.svc.Chat(context.Background(), ChatRequest{Message: "costo credencial", Mode: "REGENERATE"})
	require.NoError(t, err)
	require.Equal(t, SourceGenerative, resp.Model)
	stored, _ := repo.answer("costo credencial")
	require.Equal(t, "versión nueva", stored)
}

func TestService_RegeneratedAnswerServedForSameText(t *testing.T) {
	answerer := fixedAnswer("$75")
	repo := newMemoryRepo(Entry{Question: "¿Costo de credencial?", Answer: "$50"})
	f := newServiceFixture(t, answerer, repo)
	ctx := context.Background()

	regenerated, err := f.svc.Chat(ctx, ChatRequest{Message: "costo de credencial", Mode: ModeRegenerate})
	require.NoError(t, err)
	require.Equal(t, "$75", regenerated.Reply)
	stored, ok := repo.answer("costo de credencial")
	require.True(t, ok)
	require.Equal(t, "$75", stored)

	_, err = f.rebuilder.Rebuild(ctx)
	require.NoError(t, err)

	again, err := f.svc.Chat(ctx, ChatRequest{Message: "costo de credencial"})
	require.NoError(t, err)
	require.Equal(t, SourceKNN, again.Model)
	require.Equal(t, "$75", again.Reply)
	require.Equal(t, "costo de credencial", again.MatchedQuestion)

	original, err := f.svc.Chat(ctx, ChatRequest{Message: "¿Costo de credencial?"})
	require.NoError(t, err)
	require.Equal(t, "$50", original.Reply)
	require.Len(t, answerer.questions(), 1)
}

func TestService_EmptyMessage(t *testing.T) {
	f := newServiceFixture(t, fixedAnswer("generada"), newMemoryRepo())

	_, err := f.svc.Chat(context.Background(), ChatRequest{Message: "   \n"})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, CodeInvalidInput))
	require.Equal(t, DefaultMessages().EmptyQuestion, apperrors.MessageOf(err))
}

func TestService_TrendingCountsNormalizedQuestions(t *testing.T) {
	f := newServiceFixture(t, fixedAnswer("generada"), newMemoryRepo(Entry{Question: "costo credencial", Answer: "$50"}))
	ctx := context.Background()

	for _, q := range []string{"¿Costo de la credencial?", "costo credencial", "horario biblioteca"} {
		_, err := f.svc.Chat(ctx, ChatRequest{Message: q})
		require.NoError(t, err)
	}

	trending, err := f.svc.Trending(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, trending)
	require.Equal(t, "costo credencial", trending[0].Query)
	require.EqualValues(t, 2, trending[0].Count)
}

func TestService_LearnIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	f := newServiceFixture(t, fixedAnswer("generada"), repo)
	ctx := context.Background()

	require.NoError(t, f.svc.SaveEntry(ctx, Entry{Question: "costo credencial", Answer: "$50"}))
	require.NoError(t, f.svc.SaveEntry(ctx, Entry{Question: "costo credencial", Answer: "$50"}))
	entries, err := f.svc.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, f.svc.SaveEntry(ctx, Entry{Question: "costo credencial", Answer: "$60"}))
	stored, _ := repo.answer("costo credencial")
	require.Equal(t, "$60", stored)
}

func TestService_DeleteEntry(t *testing.T) {
	repo := newMemoryRepo(Entry{Question: "costo credencial", Answer: "$50"})
	f := newServiceFixture(t, fixedAnswer("generada"), repo)
	ctx := context.Background()

	deleted, err := f.svc.DeleteEntry(ctx, "costo credencial")
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = f.svc.DeleteEntry(ctx, "costo credencial")
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = f.svc.DeleteEntry(ctx, " ")
	require.True(t, apperrors.IsCode(err, CodeInvalidInput))
}

func TestService_ImportRebuildsIndex(t *testing.T) {
	repo := newMemoryRepo()
	f := newServiceFixture(t, fixedAnswer("generada"), repo)
	csvBody := "pregunta,respuesta\n" +
		"costo credencial,$50\n" +
		"horario biblioteca,\"8 a 20, lunes a viernes\"\n" +
		"pregunta sin respuesta,\n"

	report, err := f.svc.Import(context.Background(), strings.NewReader(csvBody))
	require.NoError(t, err)
	require.Equal(t, 2, report.Imported)
	require.Equal(t, 1, report.Skipped)
	require.Equal(t, 2, f.selector.Index().Len())

	resp, err := f.svc.Chat(context.Background(), ChatRequest{Message: "horario de la biblioteca"})
	require.NoError(t, err)
	require.Equal(t, SourceKNN, resp.Model)
	require.Equal(t, "8 a 20, lunes a viernes", resp.Reply)
}

func TestService_ImportRejectsMalformedCSV(t *testing.T) {
	f := newServiceFixture(t, fixedAnswer("generada"), newMemoryRepo())
	_, err := f.svc.Import(context.Background(), strings.NewReader("a,\"b\n"))
	require.True(t, apperrors.IsCode(err, CodeInvalidInput))
}

func TestService_WarmupSeedsEmptyTable(t *testing.T) {
	seed := &stringSeed{body: "question,answer\ncosto credencial,$50\n"}
	repo := newMemoryRepo()
	f := newServiceFixture(t, fixedAnswer("generada"), repo, withSeed(seed))

	require.Equal(t, IndexStats{}, f.svc.Stats())
	require.NoError(t, f.svc.Warmup(context.Background()))
	require.Equal(t, 1, seed.opened)
	require.Equal(t, 1, f.selector.Index().Len())

	require.NoError(t, f.svc.Warmup(context.Background()))
	require.Equal(t, 1, seed.opened)
}

func TestService_WarmupKeepsExistingTable(t *testing.T) {
	seed := &stringSeed{body: "costo credencial,$50\n"}
	repo := newMemoryRepo(Entry{Question: "horario biblioteca", Answer: "8 a 20"})
	f := newServiceFixture(t, fixedAnswer("generada"), repo, withSeed(seed))

	require.NoError(t, f.svc.Warmup(context.Background()))
	require.Zero(t, seed.opened)
	require.Equal(t, 1, f.selector.Index().Len())
	require.Equal(t, IndexStats{Entries: 1, Vocabulary: 2}, f.svc.Stats())
}

func TestService_GenerateDisabled(t *testing.T) {
	f := newServiceFixture(t, fixedAnswer("generada"), newMemoryRepo())
	_, err := f.svc.Generate(context.Background(), 3)
	require.True(t, apperrors.IsCode(err, CodeFAQError))
}

func TestService_GenerateStoresPairs(t *testing.T) {
	chat := &stubChat{fn: func(context.Context, chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
		return chatReply(`{"pregunta": "¿Dónde pago la credencial?", "respuesta": "En caja."}`), nil
	}}
	generator, err := NewGenerator(GeneratorConfig{Topics: []string{"credencial"}}, chat, &stubRetriever{passages: []string{"La credencial se paga en caja."}}, nil, newTestLogger())
	require.NoError(t, err)
	repo := newMemoryRepo()
	f := newServiceFixture(t, fixedAnswer("generada"), repo, withGenerator(generator))

	_, err = f.svc.Generate(context.Background(), 11)
	require.True(t, apperrors.IsCode(err, CodeInvalidInput))

	report, err := f.svc.Generate(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 2, report.Generated)
	stored, ok := repo.answer("¿Dónde pago la credencial?")
	require.True(t, ok)
	require.Equal(t, "En caja.", stored)
}
