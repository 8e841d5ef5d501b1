package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultRequestTimeout = 15 * time.Second

// ErrUnauthorized is returned when the backend rejects the session token.
// The client also fires the unauthorized hook so the session can be torn
// down globally, overriding any caller-local error handling.
var ErrUnauthorized = errors.New("authentication required")

// TokenSource supplies the current bearer token for authenticated calls.
type TokenSource func() string

// ClientConfig customizes the REST client.
type ClientConfig struct {
	BaseURL            string
	Token              TokenSource
	OnUnauthorized     func()
	HTTPClient         *http.Client
	InsecureSkipVerify bool
	Logger             *slog.Logger
}

// Client talks to the router management backend's JSON API.
type Client struct {
	baseURL        string
	token          TokenSource
	onUnauthorized func()
	http           *http.Client
	logger         *slog.Logger

	unauthorizedMu    sync.Mutex
	unauthorizedFired bool
}

func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
		if cfg.InsecureSkipVerify {
			httpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- opt-in for self-signed appliance certs.
			}
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "api")
	}

	return &Client{
		baseURL:        base,
		token:          cfg.Token,
		onUnauthorized: cfg.OnUnauthorized,
		http:           httpClient,
		logger:         logger,
	}, nil
}

// ResetSession re-arms the unauthorized hook after a fresh login.
func (c *Client) ResetSession() {
	c.unauthorizedMu.Lock()
	c.unauthorizedFired = false
	c.unauthorizedMu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := strings.TrimSpace(c.token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("unauthorized response, invalidating session", "path", path)
		c.fireUnauthorized()

		return ErrUnauthorized
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		detail := strings.TrimSpace(string(raw))
		if detail == "" {
			return fmt.Errorf("request %s %s: unexpected status %d", method, path, resp.StatusCode)
		}

		return fmt.Errorf("request %s %s: unexpected status %d: %s", method, path, resp.StatusCode, detail)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

func (c *Client) fireUnauthorized() {
	if c.onUnauthorized == nil {
		return
	}

	c.unauthorizedMu.Lock()
	fired := c.unauthorizedFired
	c.unauthorizedFired = true
	c.unauthorizedMu.Unlock()

	if !fired {
		c.onUnauthorized()
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}
