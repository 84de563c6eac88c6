package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yanqian/faqbot/internal/domain/auth"
	"github.com/yanqian/faqbot/internal/domain/faq"
)

const defaultTimeout = 3 * time.Minute

// APIError is the decoded {error:{code,message}} envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("faqbot: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("faqbot: %s (%d): %s", e.Code, e.Status, e.Message)
}

// Client calls the faqbot HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New constructs a client for baseURL. token may be empty for public endpoints.
func New(baseURL, token string, logger *slog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("faqbot base url cannot be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid faqbot base url: %w", err)
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With("component", "client"),
	}, nil
}

// Chat sends one question; regenerate skips the FAQ table.
func (c *Client) Chat(ctx context.Context, message string, regenerate bool) (faq.ChatResponse, error) {
	req := faq.ChatRequest{Message: message, Mode: faq.ModeNormal}
	if regenerate {
		req.Mode = faq.ModeRegenerate
	}
	var out faq.ChatResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/chat", req, &out)
	return out, err
}

// Trending lists the most asked questions.
func (c *Client) Trending(ctx context.Context) ([]faq.TrendingQuery, error) {
	var out struct {
		Recommendations []faq.TrendingQuery `json:"recommendations"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/faq/trending", nil, &out)
	return out.Recommendations, err
}

// Login exchanges admin credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (auth.LoginResponse, error) {
	var out auth.LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/admin/login", auth.LoginRequest{Username: username, Password: password}, &out)
	return out, err
}

// ListEntries returns the FAQ table.
func (c *Client) ListEntries(ctx context.Context) ([]faq.Entry, error) {
	var out struct {
		Entries []faq.Entry `json:"entries"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/admin/faq", nil, &out)
	return out.Entries, err
}

// SaveEntry inserts or overwrites one entry.
func (c *Client) SaveEntry(ctx context.Context, entry faq.Entry) error {
	return c.doJSON(ctx, http.MethodPut, "/api/v1/admin/faq", entry, nil)
}

// DeleteEntry removes one entry by exact question text.
func (c *Client) DeleteEntry(ctx context.Context, question string) error {
	path := "/api/v1/admin/faq?question=" + url.QueryEscape(question)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// Rebuild asks the server to reload the index.
func (c *Client) Rebuild(ctx context.Context) (faq.RebuildReport, error) {
	var out faq.RebuildReport
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/admin/faq/rebuild", nil, &out)
	return out, err
}

// Import uploads a question,answer CSV.
func (c *Client) Import(ctx context.Context, csv io.Reader) (faq.ImportReport, error) {
	var out faq.ImportReport
	err := c.do(ctx, http.MethodPost, "/api/v1/admin/faq/import", "text/csv", csv, &out)
	return out, err
}

// Generate drafts count synthetic entries on the server.
func (c *Client) Generate(ctx context.Context, count int) (faq.GenerateReport, error) {
	var out faq.GenerateReport
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/admin/faq/generate", map[string]int{"count": count}, &out)
	return out, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request %s: %w", path, err)
		}
		body = bytes.NewReader(encoded)
	}
	return c.do(ctx, method, path, "application/json", body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("faqbot request", "method", method, "path", path, "status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(), "request_id", resp.Header.Get("X-Request-ID"))

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
