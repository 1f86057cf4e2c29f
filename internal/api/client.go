package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/habitr/internal/logger"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the hosted API the web client talks to.
const DefaultBaseURL = "https://lifeplanner.pythonanywhere.com/api"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Error is a non-2xx response from the API.
type Error struct {
	Status    int
	Detail    string
	RequestID string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Detail)
}

func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RatePerSecond caps outgoing requests; zero disables pacing.
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
}

// Client talks to the habit REST API. Configure the token source and the
// unauthorized hook before sharing it between goroutines.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter

	token          func() string
	onUnauthorized func()
}

func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &Client{baseURL: base, http: hc, limiter: limiter}
}

func (c *Client) BaseURL() string { return c.baseURL }

// SetTokenSource sets the function that supplies the bearer token. An empty
// token sends the request unauthenticated.
func (c *Client) SetTokenSource(fn func() string) { c.token = fn }

// OnUnauthorized registers a hook run whenever the API answers 401.
func (c *Client) OnUnauthorized(fn func()) { c.onUnauthorized = fn }

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, jsonBody(nil), out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, jsonBody(in), out)
}

func (c *Client) patch(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, jsonBody(in), out)
}

func (c *Client) put(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, jsonBody(in), out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, jsonBody(nil), nil)
}

// body is an encoded request payload with its content type.
type body struct {
	contentType string
	data        []byte
	err         error
}

func jsonBody(v any) body {
	if v == nil {
		return body{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return body{err: fmt.Errorf("marshal request: %w", err)}
	}
	return body{contentType: "application/json", data: data}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, b body, out any) error {
	if b.err != nil {
		return b.err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if b.data != nil {
		reader = bytes.NewReader(b.data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if b.contentType != "" {
		req.Header.Set("Content-Type", b.contentType)
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("api request failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, RequestID: reqID, Detail: readDetail(resp.Body)}
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		logger.Warn("api error", "method", method, "path", path, "status", resp.StatusCode, "detail", apiErr.Detail)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// readDetail extracts a human message from a DRF error body: either
// {"detail": "..."} or a field -> messages map.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if d, ok := obj["detail"]; ok {
		var s string
		if json.Unmarshal(d, &s) == nil {
			return s
		}
	}

	fields := make([]string, 0, len(obj))
	for k := range obj {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	var parts []string
	for _, k := range fields {
		var msgs []string
		if json.Unmarshal(obj[k], &msgs) == nil {
			parts = append(parts, k+": "+strings.Join(msgs, " "))
			continue
		}
		var s string
		if json.Unmarshal(obj[k], &s) == nil {
			parts = append(parts, k+": "+s)
		}
	}
	return strings.Join(parts, "; ")
}
