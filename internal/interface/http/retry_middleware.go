package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yanqian/faqbot/internal/infra/config"
)

const maxReplayableBody = 1 << 20

// retryPolicy replays admin writes that failed on a transient store or index error.
// Upstream model failures (502, 504) are surfaced as-is.
type retryPolicy struct {
	attempts int
	backoff  time.Duration
	skip     []string
	logger   *slog.Logger
}

func withRetry(next http.Handler, cfg config.RetryConfig, logger *slog.Logger) http.Handler {
	if !cfg.Enabled || cfg.MaxAttempts <= 1 {
		return next
	}
	p := &retryPolicy{
		attempts: cfg.MaxAttempts,
		backoff:  cfg.BaseBackoff,
		skip:     cfg.Exclude,
		logger:   logger,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.applies(r) {
			next.ServeHTTP(w, r)
			return
		}
		p.serve(next, w, r)
	})
}

func (p *retryPolicy) applies(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return false
	}
	for _, prefix := range p.skip {
		if prefix != "" && strings.HasPrefix(r.URL.Path, prefix) {
			return false
		}
	}
	return true
}

func (p *retryPolicy) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	payload, err := bufferBody(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var last *bufferedResponse
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if attempt > 1 {
			if !pause(r.Context(), p.backoff<<(attempt-2)) {
				return
			}
			retriesTotal.WithLabelValues(r.URL.Path).Inc()
		}
		replay := r.Clone(r.Context())
		replay.Body = io.NopCloser(bytes.NewReader(payload))
		replay.ContentLength = int64(len(payload))

		last = &bufferedResponse{header: make(http.Header), status: http.StatusOK}
		next.ServeHTTP(last, replay)
		if !transientStatus(last.status) {
			break
		}
		p.logger.Warn("transient failure on admin write",
			"path", r.URL.Path,
			"status", last.status,
			"attempt", attempt,
			"request_id", last.header.Get(requestIDHeader),
		)
	}
	last.flushTo(w)
}

func transientStatus(status int) bool {
	return status == http.StatusInternalServerError || status == http.StatusServiceUnavailable
}

func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(nil, r.Body, maxReplayableBody))
}

// bufferedResponse holds one attempt's response until it is known to be final.
type bufferedResponse struct {
	header  http.Header
	body    bytes.Buffer
	status  int
	written bool
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if !b.written {
		b.status = status
		b.written = true
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.written = true
	return b.body.Write(p)
}

func (b *bufferedResponse) Flush() {}

func (b *bufferedResponse) flushTo(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range b.header {
		dst[k] = append([]string(nil), v...)
	}
	w.WriteHeader(b.status)
	_, _ = w.Write(b.body.Bytes())
}
