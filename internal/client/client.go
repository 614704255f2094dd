package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/markis/studio/internal/config"
	"github.com/markis/studio/internal/logger"
	"github.com/markis/studio/internal/stream"
)

const (
	generatePath = "/generate/stream"
	defaultCount = 4
	userAgent    = "studio-cli"
)

// ErrEmptyPrompt is returned when a generation is requested without a prompt.
var ErrEmptyPrompt = errors.New("prompt is required")

// GenerateRequest describes one call to the streaming generation endpoint.
type GenerateRequest struct {
	Prompt          string
	Count           int
	Title           string
	ContextImageIDs []string
}

// BuildGenerateURL returns the streaming generation URL for req under base.
func BuildGenerateURL(base string, req GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", ErrEmptyPrompt
	}

	u, err := url.Parse(strings.TrimRight(base, "/") + generatePath)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}

	count := req.Count
	if count <= 0 {
		count = defaultCount
	}

	q := url.Values{}
	q.Set("prompt", req.Prompt)
	q.Set("count", strconv.Itoa(count))
	if req.Title != "" {
		q.Set("title", req.Title)
	}
	if len(req.ContextImageIDs) > 0 {
		q.Set("context_image_ids", strings.Join(req.ContextImageIDs, ","))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Client talks to the studio backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the shared transport, mostly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the client logger; the decoder inherits it.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

func New(cfg config.Config, opts ...Option) *Client {
	c := &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// defaultHeaders returns the default headers for the API requests.
func (c *Client) defaultHeaders() map[string]string {
	headers := map[string]string{
		"Accept":        "text/event-stream",
		"Cache-Control": "no-cache",
		"User-Agent":    userAgent,
	}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}
	return headers
}

// GenerateStream starts a generation and returns a decoder over its event
// stream. Error statuses are not treated as failures here; the decoder reports
// them as an error event. The caller owns the decoder and must drain or Close it.
func (c *Client) GenerateStream(ctx context.Context, req GenerateRequest) (*stream.Decoder, error) {
	target, err := BuildGenerateURL(c.baseURL, req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.defaultHeaders() {
		httpReq.Header.Set(k, v)
	}

	c.logger.Debug("starting generation", "url", target, "count", req.Count)

	resp, err := c.client(ctx).Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	c.logger.Debug("generation stream opened", "status", resp.StatusCode)
	return stream.NewDecoder(resp, stream.WithLogger(c.logger)), nil
}

var (
	httpClient     *http.Client
	httpClientOnce sync.Once
)

func (c *Client) client(ctx context.Context) *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return getHTTPClient(ctx)
}

// getHTTPClient returns a copy of the shared HTTP client, bounded by the
// context deadline when there is one.
func getHTTPClient(ctx context.Context) *http.Client {
	httpClientOnce.Do(func() {
		transport := &http.Transport{
			Proxy:              http.ProxyFromEnvironment,
			MaxIdleConns:       100,
			IdleConnTimeout:    90 * time.Second,
			DisableCompression: false,
			DisableKeepAlives:  false,
			ForceAttemptHTTP2:  true,
		}

		transport.DialContext = (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext

		httpClient = &http.Client{
			Transport: transport,
		}
	})

	// Streams are open-ended, so only a context deadline bounds them.
	clientCopy := *httpClient
	if deadline, ok := ctx.Deadline(); ok {
		clientCopy.Timeout = time.Until(deadline)
	}
	return &clientCopy
}
