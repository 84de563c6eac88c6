package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yanqian/faqbot/internal/domain/faq"
	"github.com/yanqian/faqbot/internal/infra/config"
)

const (
	warmupTimeout   = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// App encapsulates the HTTP server and the index rebuild loop.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	server    *http.Server
	faqSvc    faq.Service
	rebuilder *faq.Rebuilder
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, faqSvc faq.Service, rebuilder *faq.Rebuilder) *App {
	return &App{
		cfg:       cfg,
		logger:    logger.With("component", "bootstrap"),
		server:    server,
		faqSvc:    faqSvc,
		rebuilder: rebuilder,
	}
}

// Run publishes the first index, then serves until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	warmCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	if err := a.faqSvc.Warmup(warmCtx); err != nil {
		a.logger.Warn("faq warmup failed, serving without an index until the next rebuild", "error", err)
	} else {
		stats := a.faqSvc.Stats()
		a.logger.Info("faq index ready", "entries", stats.Entries, "vocabulary", stats.Vocabulary)
	}
	cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return a.rebuilder.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
