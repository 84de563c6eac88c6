package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faqbot/internal/domain/auth"
	"github.com/yanqian/faqbot/internal/domain/faq"
	"github.com/yanqian/faqbot/internal/infra/config"
	apperrors "github.com/yanqian/faqbot/pkg/errors"
)

func TestRouter_ChatSuccess(t *testing.T) {
	distance := 0.0
	svc := &stubFAQ{
		chatFn: func(_ context.Context, req faq.ChatRequest) (faq.ChatResponse, error) {
			require.Equal(t, "costo de credencial", req.Message)
			require.Equal(t, faq.ModeRegenerate, req.Mode)
			return faq.ChatResponse{Reply: "$50", Model: faq.SourceKNN, Distance: &distance, MatchedQuestion: "¿Costo de credencial?"}, nil
		},
	}
	server := newRouterUnderTest(t, svc, &stubAuth{}, nil)

	rec := performRequest(server, http.MethodPost, "/api/v1/chat", `{"message":"costo de credencial","mode":"regenerate"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "$50", got["reply"])
	require.Equal(t, "knn", got["model"])
	require.Equal(t, 0.0, got["distance"])
	require.Equal(t, "¿Costo de credencial?", got["matchedQuestion"])
}

func TestRouter_ChatEmptyMessage(t *testing.T) {
	svc := &stubFAQ{
		chatFn: func(context.Context, faq.ChatRequest) (faq.ChatResponse, error) {
			return faq.ChatResponse{}, apperrors.Wrap(faq.CodeInvalidInput, "Por favor escribe algo.", nil)
		},
	}
	rec := performRequest(newRouterUnderTest(t, svc, &stubAuth{}, nil), http.MethodPost, "/api/v1/chat", `{"message":"  "}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_input", body["error"]["code"])
	require.Equal(t, "Por favor escribe algo.", body["error"]["message"])
}

func TestRouter_ChatInvalidJSON(t *testing.T) {
	rec := performRequest(newRouterUnderTest(t, &stubFAQ{}, &stubAuth{}, nil), http.MethodPost, "/api/v1/chat", `{"message":123}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_request", body["error"]["code"])
	require.NotEmpty(t, body["error"]["message"])
}

func TestRouter_Trending(t *testing.T) {
	svc := &stubFAQ{
		trendingFn: func(context.Context) ([]faq.TrendingQuery, error) {
			return []faq.TrendingQuery{{Query: "costo credencial", Count: 3}}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/faq/trending", nil)
	rec := httptest.NewRecorder()
	newRouterUnderTest(t, svc, &stubAuth{}, nil).Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"recommendations":[{"query":"costo credencial","count":3}]`)
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	svc := &stubFAQ{stats: faq.IndexStats{Entries: 3, Vocabulary: 7}}
	server := newRouterUnderTest(t, svc, &stubAuth{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.JSONEq(t, `{"status":"ok","index":{"entries":3,"vocabulary":7}}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "faqbot_http_requests_total")
}

func TestRouter_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	newRouterUnderTest(t, &stubFAQ{}, &stubAuth{}, nil).Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Login(t *testing.T) {
	authSvc := &stubAuth{
		loginFn: func(_ context.Context, req auth.LoginRequest) (auth.LoginResponse, error) {
			if req.Password != "secreto123" {
				return auth.LoginResponse{}, apperrors.Wrap(auth.CodeInvalidCredentials, "invalid username or password", nil)
			}
			return auth.LoginResponse{Token: "good", Username: req.Username}, nil
		},
	}
	server := newRouterUnderTest(t, &stubFAQ{}, authSvc, nil)

	rec := performRequest(server, http.MethodPost, "/api/v1/admin/login", `{"username":"ana","password":"secreto123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"token":"good"`)

	rec = performRequest(server, http.MethodPost, "/api/v1/admin/login", `{"username":"ana","password":"otra"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_credentials", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	svc := &stubFAQ{
		listFn: func(context.Context) ([]faq.Entry, error) {
			return []faq.Entry{{Question: "q", Answer: "a"}}, nil
		},
	}
	server := newRouterUnderTest(t, svc, &stubAuth{}, nil)

	rec := performRequest(server, http.MethodGet, "/api/v1/admin/faq", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = performRequest(server, http.MethodGet, "/api/v1/admin/faq", "", "bad")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "invalid_token", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = performRequest(server, http.MethodGet, "/api/v1/admin/faq", "", "good")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":1`)
}

func TestRouter_AdminErrorsMapToStatus(t *testing.T) {
	svc := &stubFAQ{
		listFn: func(context.Context) ([]faq.Entry, error) {
			return nil, apperrors.Wrap(faq.CodeStoreUnavailable, "failed to load faq entries", io.ErrUnexpectedEOF)
		},
		deleteFn: func(context.Context, string) (bool, error) { return false, nil },
		generateFn: func(context.Context, int) (faq.GenerateReport, error) {
			return faq.GenerateReport{}, apperrors.Wrap(faq.CodeGenerativeUnreachable, "retrieval failed", nil)
		},
	}
	server := newRouterUnderTest(t, svc, &stubAuth{}, nil)

	rec := performRequest(server, http.MethodGet, "/api/v1/admin/faq", "", "good")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "store_unavailable", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = performRequest(server, http.MethodDelete, "/api/v1/admin/faq?question=nada", "", "good")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = performRequest(server, http.MethodPost, "/api/v1/admin/faq/generate", `{"count":2}`, "good")
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRouter_ImportRawCSV(t *testing.T) {
	var received string
	svc := &stubFAQ{
		importFn: func(_ context.Context, r io.Reader) (faq.ImportReport, error) {
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			received = string(data)
			return faq.ImportReport{Imported: 1}, nil
		},
	}
	server := newRouterUnderTest(t, svc, &stubAuth{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/faq/import", strings.NewReader("question,answer\nq,a\n"))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "question,answer\nq,a\n", received)
	require.JSONEq(t, `{"imported":1,"skipped":0}`, rec.Body.String())
}

func TestRouter_RetriesTransientFailures(t *testing.T) {
	calls := 0
	svc := &stubFAQ{
		saveFn: func(_ context.Context, entry faq.Entry) error {
			calls++
			require.Equal(t, "q", entry.Question)
			if calls == 1 {
				return apperrors.Wrap(faq.CodeStoreUnavailable, "failed to persist faq entry", nil)
			}
			return nil
		},
	}
	server := newRouterUnderTest(t, svc, &stubAuth{}, func(cfg *config.Config) {
		cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond}
	})

	rec := performRequest(server, http.MethodPut, "/api/v1/admin/faq", `{"question":"q","answer":"a"}`, "good")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, calls)
}

func TestRouter_DoesNotRetryUpstreamFailures(t *testing.T) {
	calls := 0
	svc := &stubFAQ{
		generateFn: func(context.Context, int) (faq.GenerateReport, error) {
			calls++
			return faq.GenerateReport{}, apperrors.Wrap(faq.CodeGenerativeUnreachable, "model unreachable", nil)
		},
	}
	server := newRouterUnderTest(t, svc, &stubAuth{}, func(cfg *config.Config) {
		cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond}
	})

	rec := performRequest(server, http.MethodPost, "/api/v1/admin/faq/generate", `{"count":2}`, "good")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, 1, calls)
}

func TestRouter_RateLimit(t *testing.T) {
	svc := &stubFAQ{
		chatFn: func(context.Context, faq.ChatRequest) (faq.ChatResponse, error) {
			return faq.ChatResponse{Reply: "ok"}, nil
		},
	}
	server := newRouterUnderTest(t, svc, &stubAuth{}, func(cfg *config.Config) {
		cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	})

	rec := performRequest(server, http.MethodPost, "/api/v1/chat", `{"message":"hola"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = performRequest(server, http.MethodPost, "/api/v1/chat", `{"message":"hola"}`, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func performRequest(server *http.Server, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, faqSvc faq.Service, authSvc auth.Service, mutate func(*config.Config)) *http.Server {
	t.Helper()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			AllowedOrigins: []string{
				"http://localhost:5173",
			},
		},
	}
	if mutate != nil {
		mutate(cfg)
	}
	return NewRouter(cfg, NewHandler(faqSvc, authSvc, newTestLogger()))
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

type stubFAQ struct {
	chatFn     func(ctx context.Context, req faq.ChatRequest) (faq.ChatResponse, error)
	trendingFn func(ctx context.Context) ([]faq.TrendingQuery, error)
	listFn     func(ctx context.Context) ([]faq.Entry, error)
	saveFn     func(ctx context.Context, entry faq.Entry) error
	deleteFn   func(ctx context.Context, question string) (bool, error)
	importFn   func(ctx context.Context, r io.Reader) (faq.ImportReport, error)
	generateFn func(ctx context.Context, count int) (faq.GenerateReport, error)
	stats      faq.IndexStats
}

func (s *stubFAQ) Chat(ctx context.Context, req faq.ChatRequest) (faq.ChatResponse, error) {
	if s.chatFn != nil {
		return s.chatFn(ctx, req)
	}
	return faq.ChatResponse{}, nil
}

func (s *stubFAQ) Trending(ctx context.Context) ([]faq.TrendingQuery, error) {
	if s.trendingFn != nil {
		return s.trendingFn(ctx)
	}
	return nil, nil
}

func (s *stubFAQ) Warmup(context.Context) error { return nil }

func (s *stubFAQ) ListEntries(ctx context.Context) ([]faq.Entry, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *stubFAQ) SaveEntry(ctx context.Context, entry faq.Entry) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, entry)
	}
	return nil
}

func (s *stubFAQ) DeleteEntry(ctx context.Context, question string) (bool, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, question)
	}
	return true, nil
}

func (s *stubFAQ) Rebuild(context.Context) (faq.RebuildReport, error) {
	return faq.RebuildReport{}, nil
}

func (s *stubFAQ) Import(ctx context.Context, r io.Reader) (faq.ImportReport, error) {
	if s.importFn != nil {
		return s.importFn(ctx, r)
	}
	return faq.ImportReport{}, nil
}

func (s *stubFAQ) Generate(ctx context.Context, count int) (faq.GenerateReport, error) {
	if s.generateFn != nil {
		return s.generateFn(ctx, count)
	}
	return faq.GenerateReport{}, nil
}

func (s *stubFAQ) Stats() faq.IndexStats { return s.stats }

type stubAuth struct {
	loginFn func(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error)
}

func (s *stubAuth) Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, req)
	}
	return auth.LoginResponse{}, nil
}

func (s *stubAuth) ValidateToken(_ context.Context, token string) (auth.Claims, error) {
	if token != "good" {
		return auth.Claims{}, apperrors.Wrap(auth.CodeInvalidToken, "token validation failed", nil)
	}
	return auth.Claims{Username: "ana"}, nil
}
