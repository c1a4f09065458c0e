package hrisapi

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

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const maxBodyBytes = 4 << 20

type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	AuthErrorCode string
	UserAgent     string
}

// SessionExpiredFunc is called when the backend reports that the stored
// token is no longer valid.
type SessionExpiredFunc func(ctx context.Context, err *APIError)

// Client talks to the HRIS backend. A nil token source sends anonymous
// requests.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	maxRetries    int
	retryDelay    time.Duration
	authErrorCode string
	userAgent     string

	onSessionExpired SessionExpiredFunc
}

func NewClient(cfg Config, tokens oauth2.TokenSource) *Client {
	var transport http.RoundTripper = http.DefaultTransport
	if tokens != nil {
		transport = &oauth2.Transport{
			Source: markedTokenSource{src: tokens},
			Base:   http.DefaultTransport,
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: timeout, Transport: transport},
		maxRetries:    maxRetries,
		retryDelay:    cfg.RetryDelay,
		authErrorCode: cfg.AuthErrorCode,
		userAgent:     cfg.UserAgent,
	}
}

// OnSessionExpired registers the global logout hook.
func (c *Client) OnSessionExpired(fn SessionExpiredFunc) {
	c.onSessionExpired = fn
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any, header http.Header) (*Envelope, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body, header)
}

// Do sends the request and decodes the envelope. Network errors and 5xx
// responses are retried up to MaxRetries times with a fixed delay.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any, header http.Header) (*Envelope, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	requestID := uuid.Must(uuid.NewV7()).String()

	for attempt := 0; ; attempt++ {
		env, err := c.send(ctx, method, endpoint, payload, header, requestID)
		if err == nil {
			return env, nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() || attempt >= c.maxRetries || ctx.Err() != nil {
			if apiErr != nil && apiErr.Kind == KindAuth {
				c.checkSessionExpired(ctx, apiErr)
			}
			return env, err
		}

		slog.Warn("hris api call failed, retrying",
			"method", method,
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"error", err,
		)

		if c.retryDelay > 0 {
			timer := time.NewTimer(c.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, &APIError{Kind: KindNetwork, Message: "request cancelled", Err: ctx.Err()}
			case <-timer.C:
			}
		}
	}
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, header http.Header, requestID string) (*Envelope, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var tokErr *tokenError
		if errors.As(err, &tokErr) {
			return nil, &APIError{Kind: KindAuth, Message: "no usable session token", Err: tokErr.err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &APIError{Kind: KindNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, StatusCode: resp.StatusCode, Message: "read response body", Err: err}
	}

	slog.Debug("hris api call",
		"method", method,
		"url", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)

	env := &Envelope{Raw: raw}
	decodeErr := json.Unmarshal(raw, env)
	if decodeErr != nil {
		env = &Envelope{Raw: raw}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.message()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return env, &APIError{
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Code:       env.code(),
			Message:    msg,
		}
	}

	if decodeErr != nil {
		return nil, &APIError{Kind: KindDecode, StatusCode: resp.StatusCode, Message: "invalid response body", Err: decodeErr}
	}

	if !env.OK() {
		msg := env.message()
		if msg == "" {
			msg = "request was not accepted"
		}
		return env, &APIError{
			Kind:       KindRejected,
			StatusCode: resp.StatusCode,
			Code:       env.code(),
			Message:    msg,
		}
	}

	return env, nil
}

func (c *Client) checkSessionExpired(ctx context.Context, apiErr *APIError) {
	if c.onSessionExpired == nil || apiErr.StatusCode != http.StatusUnauthorized {
		return
	}
	if c.authErrorCode != "" && apiErr.Code != c.authErrorCode {
		return
	}
	c.onSessionExpired(ctx, apiErr)
}

// markedTokenSource tags token failures so send can tell them apart from
// transport errors.
type markedTokenSource struct {
	src oauth2.TokenSource
}

func (m markedTokenSource) Token() (*oauth2.Token, error) {
	tok, err := m.src.Token()
	if err != nil {
		return nil, &tokenError{err: err}
	}
	return tok, nil
}
