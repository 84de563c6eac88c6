package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faqbot/internal/domain/faq"
	"github.com/yanqian/faqbot/internal/infra/config"
	"github.com/yanqian/faqbot/internal/infra/faqrepo"
)

func TestApp_RunWarmsUpAndShutsDown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := faqrepo.NewMemoryRepository()
	require.NoError(t, repo.Upsert(context.Background(), "¿Costo de credencial?", "$50"))

	sel := faq.NewSelector(faq.SelectorConfig{Tiers: faq.Tiers{KNN: true}, DistanceThreshold: 0.4}, nil, logger)
	rebuilder := faq.NewRebuilder(repo, sel, 0, logger)
	learner := faq.NewLearner(repo, rebuilder, logger)
	svc := faq.NewService(faq.Config{}, sel, rebuilder, learner, repo, noopStore{}, nil, nil, nil, logger)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	server := &http.Server{Addr: addr, Handler: http.NotFoundHandler()}
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: addr}}
	app := NewApp(cfg, logger, server, svc, rebuilder)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		return svc.Stats().Entries == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

type noopStore struct{}

func (noopStore) IncrementQuery(context.Context, string, string) error { return nil }

func (noopStore) TopQueries(context.Context, int) ([]faq.TrendingQuery, error) { return nil, nil }
