// Package api is the HTTP client of the wedding planner API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"wedding-planner/internal/apperr"
	"wedding-planner/internal/models"
	"wedding-planner/internal/offline"
)

// CodeHeader carries the wedding code on every scoped request
const CodeHeader = "X-Wedding-Code"

// Paths of the scoped endpoints, relative to the base URL
const (
	PathBootstrap  = "/bootstrap"
	PathHealth     = "/health"
	PathCities     = "/cities"
	PathCategories = "/categories"
	PathGuests     = "/guests"
	PathChecks     = "/checks"
)

type Client struct {
	baseURL string
	code    string
	http    *http.Client
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log.With().Str("component", "api").Logger() }
}

// WithCode scopes the client to a wedding from the start
func WithCode(code string) Option {
	return func(c *Client) { c.code = code }
}

// New creates a client for the API rooted at baseURL, e.g. http://host/api
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scoped returns a copy of c that sends code with every request
func (c *Client) Scoped(code string) *Client {
	cp := *c
	cp.code = code
	return &cp
}

// Code returns the wedding code the client is scoped to
func (c *Client) Code() string {
	return c.code
}

// Health probes the API. It satisfies netwatch.Probe.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, PathHealth, "", nil)
	return err
}

// Bootstrap fetches the full dataset of the scoped wedding. An unknown or
// expired code yields a dataset with Found false.
func (c *Client) Bootstrap(ctx context.Context) (models.Bootstrap, error) {
	var data models.Bootstrap
	raw, err := c.do(ctx, http.MethodGet, PathBootstrap, c.code, nil)
	if err != nil {
		return data, err
	}
	if err := decode(raw, &data); err != nil {
		return data, err
	}
	return data, nil
}

// Send issues a scoped write and returns the raw response body
func (c *Client) Send(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, method, path, c.code, body)
}

// Replay issues a queued mutation under the code it was recorded with
func (c *Client) Replay(ctx context.Context, m offline.Mutation) (json.RawMessage, error) {
	var body any
	if len(m.Body) > 0 {
		body = m.Body
	}
	wcode := m.Code
	if wcode == "" {
		wcode = c.code
	}
	return c.do(ctx, m.Method, m.URL, wcode, body)
}

func (c *Client) do(ctx context.Context, method, path, wcode string, body any) (json.RawMessage, error) {
	var r io.Reader
	if body != nil {
		var b []byte
		switch v := body.(type) {
		case json.RawMessage:
			b = v
		default:
			var err error
			if b, err = json.Marshal(body); err != nil {
				return nil, fmt.Errorf("failed to encode request: %w", err)
			}
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if wcode != "" {
		req.Header.Set(CodeHeader, wcode)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.Transient, "network unavailable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "failed to read response", err)
	}

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("Request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e models.ErrorBody
		_ = json.Unmarshal(raw, &e)
		return nil, apperr.FromStatus(resp.StatusCode, e.Error)
	}
	return raw, nil
}

func decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return apperr.Wrap(apperr.Transient, "malformed response", err)
	}
	return nil
}
