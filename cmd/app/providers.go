package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/faqbot/internal/domain/auth"
	"github.com/yanqian/faqbot/internal/domain/faq"
	"github.com/yanqian/faqbot/internal/infra/adminrepo"
	"github.com/yanqian/faqbot/internal/infra/config"
	"github.com/yanqian/faqbot/internal/infra/faqrepo"
	"github.com/yanqian/faqbot/internal/infra/faqstore"
	"github.com/yanqian/faqbot/internal/infra/llm/chatgpt"
	"github.com/yanqian/faqbot/internal/infra/queue"
	"github.com/yanqian/faqbot/internal/infra/seed"
	"github.com/yanqian/faqbot/internal/infra/vectorstore"
)

const ingestTimeout = 10 * time.Minute

func provideFAQConfig(cfg *config.Config) faq.Config {
	return cfg.FAQ.ServiceConfig()
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:   cfg.Auth.Secret,
		TokenTTL: cfg.Auth.TokenTTL,
	}
}

func provideAuthRepository(cfg *config.Config, logger *slog.Logger) auth.Repository {
	admins := make([]auth.Admin, 0, len(cfg.Auth.Admins))
	for _, a := range cfg.Auth.Admins {
		admins = append(admins, auth.Admin{Username: a.Username, PasswordHash: a.PasswordHash})
	}
	repo := adminrepo.NewStaticRepository(admins)
	if repo.Len() == 0 {
		logger.Warn("no admins configured, admin endpoints will reject every login")
	}
	return repo
}

func provideChatGPTClient(cfg *config.Config, logger *slog.Logger) *chatgpt.Client {
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	if err != nil {
		logger.Error("llm client unavailable", "error", err)
		return nil
	}
	return client
}

// providePostgresPool returns a nil pool when no DSN is configured or the database is unreachable.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func()) {
	dsn := strings.TrimSpace(cfg.FAQ.Postgres.DSN)
	if dsn == "" {
		return nil, func() {}
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn", "error", err)
		return nil, func() {}
	}
	if cfg.FAQ.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.FAQ.Postgres.MaxConns
	}
	if cfg.FAQ.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.FAQ.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool", "error", err)
		return nil, func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed", "error", err)
		pool.Close()
		return nil, func() {}
	}
	logger.Info("postgres connected")
	return pool, pool.Close
}

// provideValkeyClient returns nil when redis is disabled or unreachable.
func provideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, func()) {
	if !cfg.FAQ.Redis.Enabled {
		return nil, func() {}
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		logger.Error("invalid valkey configuration", "error", err)
		return nil, func() {}
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client", "error", err)
		return nil, func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed", "error", err)
		client.Close()
		return nil, func() {}
	}
	logger.Info("valkey connected", "addr", cfg.FAQ.Redis.Addr)
	return client, client.Close
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.FAQ.Redis.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.FAQ.Redis.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.FAQ.Redis.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

// provideFAQRepository prefers Postgres, then an SQLite file, then memory.
func provideFAQRepository(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (faq.Repository, func(), error) {
	if pool != nil {
		repo := faqrepo.NewPostgresRepository(pool)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		logger.Info("faq postgres repository enabled")
		return repo, func() {}, nil
	}
	if path := strings.TrimSpace(cfg.FAQ.SQLite.Path); path != "" {
		repo, err := faqrepo.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("faq sqlite repository enabled", "path", path)
		return repo, func() { _ = repo.Close() }, nil
	}
	logger.Info("faq database not configured, using memory repository")
	return faqrepo.NewMemoryRepository(), func() {}, nil
}

func provideFAQStore(cfg *config.Config, client valkey.Client, logger *slog.Logger) faq.Store {
	if client == nil {
		return faqstore.NewMemoryStore()
	}
	logger.Info("faq valkey trending store enabled")
	return faqstore.NewValkeyStore(client, cfg.FAQ.Redis.Prefix)
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) faq.TokenCounter {
	counter, err := faq.NewTiktokenCounter(cfg.FAQ.TokenEncoding)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, estimating tokens", "encoding", cfg.FAQ.TokenEncoding, "error", err)
		return faq.EstimateCounter{}
	}
	return counter
}

func provideEmbedder(cfg *config.Config, client *chatgpt.Client, logger *slog.Logger) vectorstore.Embedder {
	if cfg.VectorStore.HashEmbedding || client == nil {
		dims := 0
		if cfg.VectorStore.Provider == config.VectorStorePgvector {
			dims = cfg.VectorStore.Dimensions
		}
		logger.Info("using hashing embedder", "dimensions", dims)
		return vectorstore.NewHashingEmbedder(dims)
	}
	return vectorstore.NewChatGPTEmbedder(client, cfg.LLM.EmbeddingModel, logger)
}

// provideRetriever builds the passage store and ingests cfg.VectorStore.PassagesPath into it.
func provideRetriever(cfg *config.Config, pool *pgxpool.Pool, embedder vectorstore.Embedder, logger *slog.Logger) faq.PassageRetriever {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	if cfg.VectorStore.Provider == config.VectorStorePgvector {
		if pool == nil {
			logger.Error("pgvector selected but postgres is unavailable, using memory passages")
		} else {
			retriever := vectorstore.NewPgvectorRetriever(pool, embedder, cfg.VectorStore.Table)
			if err := retriever.EnsureSchema(ctx, cfg.VectorStore.Dimensions); err != nil {
				logger.Error("pgvector schema setup failed", "error", err)
				return retriever
			}
			count, err := retriever.Count(ctx)
			if err == nil && count == 0 {
				ingestPassages(ctx, cfg, retriever, logger)
			}
			logger.Info("pgvector retriever enabled", "table", cfg.VectorStore.Table, "passages", count)
			return retriever
		}
	}

	retriever := vectorstore.NewMemoryRetriever(embedder, logger)
	ingestPassages(ctx, cfg, retriever, logger)
	logger.Info("memory retriever enabled", "passages", retriever.Len())
	return retriever
}

func ingestPassages(ctx context.Context, cfg *config.Config, ingester vectorstore.Ingester, logger *slog.Logger) {
	root := strings.TrimSpace(cfg.VectorStore.PassagesPath)
	if root == "" {
		return
	}
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		logger.Warn("passages directory missing, generative answers will be ungrounded", "path", root)
		return
	}
	passages, err := vectorstore.LoadDocuments(root, vectorstore.NewChunker(cfg.VectorStore.ChunkWords, cfg.VectorStore.ChunkOverlap))
	if err != nil {
		logger.Error("load passages failed", "path", root, "error", err)
		return
	}
	if err := ingester.Ingest(ctx, passages); err != nil {
		logger.Error("ingest passages failed", "path", root, "error", err)
		return
	}
	logger.Info("passages ingested", "path", root, "count", len(passages))
}

// provideAnswerer returns a nil Answerer when the generative tier cannot start; the
// selector then answers generative requests with the internal error message.
func provideAnswerer(cfg *config.Config, client *chatgpt.Client, retriever faq.PassageRetriever, counter faq.TokenCounter, logger *slog.Logger) faq.Answerer {
	if !cfg.FAQ.Tiers.Generative {
		return nil
	}
	if client == nil {
		return nil
	}
	answerer, err := faq.NewRAGAnswerer(faq.AnswererConfig{
		Model:              cfg.LLM.Model,
		Temperature:        cfg.LLM.Temperature,
		Prompt:             cfg.FAQ.Prompt,
		TopK:               cfg.FAQ.TopK,
		MaxContextTokens:   cfg.FAQ.MaxContextTokens,
		UngroundedSentinel: cfg.FAQ.UngroundedSentinel,
	}, client, retriever, counter, logger)
	if err != nil {
		logger.Error("generative answerer unavailable", "error", err)
		return nil
	}
	return answerer
}

func provideSelector(cfg *config.Config, answerer faq.Answerer, logger *slog.Logger) *faq.Selector {
	return faq.NewSelector(cfg.FAQ.SelectorConfig(), answerer, logger)
}

func provideRebuilder(cfg *config.Config, repo faq.Repository, selector *faq.Selector, logger *slog.Logger) *faq.Rebuilder {
	return faq.NewRebuilder(repo, selector, cfg.FAQ.RefreshInterval, logger)
}

func provideGenerator(cfg *config.Config, client *chatgpt.Client, retriever faq.PassageRetriever, logger *slog.Logger) *faq.Generator {
	if !cfg.FAQ.Generator.Enabled || client == nil {
		return nil
	}
	generator, err := faq.NewGenerator(faq.GeneratorConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.FAQ.Generator.Temperature,
		Prompt:      cfg.FAQ.Generator.Prompt,
		Topics:      cfg.FAQ.Generator.Topics,
		TopK:        cfg.FAQ.Generator.TopK,
		MaxAttempts: cfg.FAQ.Generator.MaxAttempts,
	}, client, retriever, nil, logger)
	if err != nil {
		logger.Error("faq generator unavailable", "error", err)
		return nil
	}
	return generator
}

func provideSeedSource(cfg *config.Config, logger *slog.Logger) faq.SeedSource {
	if path := strings.TrimSpace(cfg.FAQ.Seed.Path); path != "" {
		return seed.NewFileSource(path)
	}
	r2 := cfg.FAQ.Seed.R2
	if r2.Bucket == "" {
		return nil
	}
	source, err := seed.NewR2Source(seed.R2Options{
		Endpoint:  r2.Endpoint,
		AccessKey: r2.AccessKey,
		SecretKey: r2.SecretKey,
		Bucket:    r2.Bucket,
		Region:    r2.Region,
		Key:       r2.Key,
	}, logger)
	if err != nil {
		logger.Error("r2 seed source unavailable", "error", err)
		return nil
	}
	return source
}

// provideWriteBackQueue returns nil for synchronous write-back. Deliveries go to the learner.
func provideWriteBackQueue(cfg *config.Config, client valkey.Client, learner *faq.Learner, logger *slog.Logger) (faq.JobQueue, func()) {
	if !cfg.FAQ.WriteBack.Enabled || !cfg.FAQ.WriteBack.Async {
		return nil, func() {}
	}
	var q queue.HandlerQueue
	if client != nil {
		q = queue.NewValkeyQueue(client, cfg.FAQ.WriteBack.QueueKey, logger)
		logger.Info("durable write-back queue enabled", "key", cfg.FAQ.WriteBack.QueueKey)
	} else {
		q = queue.NewImmediateQueue(nil)
	}
	q.SetHandler(learner.HandleJob)
	return q, func() {
		if err := q.Close(); err != nil {
			logger.Warn("write-back queue close failed", "error", err)
		}
	}
}
