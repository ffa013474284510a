package sellerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Reauthenticator re-establishes an expired seller-panel session and
// returns the fresh credential set. Implemented out of scope by a
// browser-automation login flow; the client depends only on this contract.
type Reauthenticator interface {
	Reauthenticate(ctx context.Context) (CredentialSet, error)
}

// sleepFunc blocks for d or until ctx is cancelled. Injected in tests.
type sleepFunc func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// requestOutcome tags the result of one transport attempt so the retry
// loop can branch on data instead of re-inspecting status codes.
type requestOutcome int

const (
	outcomeOK requestOutcome = iota
	outcomeAuthExpired
	outcomeRateLimited
	outcomeFatal
)

// Client executes requests against the seller panel with rate-limit
// backoff, 401 recovery through the Reauthenticator, and transient-network
// retry. One Client is safe for concurrent use.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	store      CredentialStore
	reauth     Reauthenticator
	logger     *zap.Logger
	sleep      sleepFunc
}

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithReauthenticator wires the re-authentication collaborator
func WithReauthenticator(r Reauthenticator) ClientOption {
	return func(c *Client) { c.reauth = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

// withSleep overrides the backoff sleeper, used by tests
func withSleep(s sleepFunc) ClientOption {
	return func(c *Client) { c.sleep = s }
}

// NewClient creates a resilient seller API client
func NewClient(cfg *Config, store CredentialStore, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("seller api: credential store is required")
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		store:      store,
		logger:     zap.NewNop(),
		sleep:      contextSleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get executes a GET request and returns the response body. Retry and
// recovery behavior, in order of precedence:
//
//  1. 401: re-authenticate once through the collaborator, replace the
//     credential store, retry the same request; a second 401 or a failed
//     re-authentication yields *AuthError.
//  2. 429: sleep Retry-After seconds when the header is numeric, otherwise
//     BackoffBase*2^attempt, up to MaxRateLimitRetries attempts, then
//     *RateLimitError.
//  3. Transport errors: exponential backoff up to MaxNetworkRetries
//     attempts, then *NetworkError.
//  4. Any other non-2xx: *HTTPError immediately.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	var (
		rateAttempts int
		netAttempts  int
		reauthed     bool
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		status, body, retryAfterHeader, err := c.send(ctx, rawURL, query)
		if err != nil {
			netAttempts++
			if netAttempts >= c.cfg.MaxNetworkRetries {
				return nil, &NetworkError{Attempts: netAttempts, Err: err}
			}
			delay := c.cfg.BackoffBase << (netAttempts - 1)
			c.logger.Warn("request failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", netAttempts),
				zap.Duration("delay", delay),
				zap.Error(err))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		switch c.classify(status) {
		case outcomeOK:
			return body, nil

		case outcomeAuthExpired:
			if reauthed {
				return nil, &AuthError{Reason: "still unauthorized after re-authentication"}
			}
			if c.reauth == nil {
				return nil, &AuthError{Reason: "session expired and no re-authenticator configured"}
			}
			c.logger.Warn("session expired, re-authenticating", zap.String("url", rawURL))
			fresh, err := c.reauth.Reauthenticate(ctx)
			if err != nil {
				return nil, &AuthError{Reason: "re-authentication failed", Err: err}
			}
			if err := c.store.Replace(fresh); err != nil {
				return nil, &AuthError{Reason: "storing fresh credentials failed", Err: err}
			}
			reauthed = true
			continue

		case outcomeRateLimited:
			rateAttempts++
			if rateAttempts > c.cfg.MaxRateLimitRetries {
				return nil, &RateLimitError{Attempts: rateAttempts - 1}
			}
			delay := c.retryAfter(retryAfterHeader, rateAttempts)
			c.logger.Warn("rate limited, backing off",
				zap.String("url", rawURL),
				zap.Int("attempt", rateAttempts),
				zap.Duration("delay", delay))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue

		default:
			return nil, &HTTPError{Status: status, BodySnippet: snippet(body)}
		}
	}
}

// GetJSON executes Get and decodes the body into out
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	body, err := c.Get(ctx, rawURL, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}

// send performs one transport attempt: attaches the current credentials,
// executes the request and drains the body.
func (c *Client) send(ctx context.Context, rawURL string, query url.Values) (int, []byte, string, error) {
	u := rawURL
	if len(query) > 0 {
		u = rawURL + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, "", fmt.Errorf("seller api: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	creds, err := c.store.Current()
	if err != nil {
		return 0, nil, "", err
	}
	for _, cred := range creds {
		req.AddCookie(&http.Cookie{Name: cred.Name, Value: cred.Value})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, "", err
	}
	return resp.StatusCode, body, resp.Header.Get("Retry-After"), nil
}

func (c *Client) classify(status int) requestOutcome {
	switch {
	case status >= 200 && status < 300:
		return outcomeOK
	case status == http.StatusUnauthorized:
		return outcomeAuthExpired
	case status == http.StatusTooManyRequests:
		return outcomeRateLimited
	default:
		return outcomeFatal
	}
}

// retryAfter derives the 429 backoff: the numeric Retry-After value when
// the server sent one, exponential backoff otherwise.
func (c *Client) retryAfter(retryAfterHeader string, attempt int) time.Duration {
	if secs, err := strconv.Atoi(retryAfterHeader); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return c.cfg.BackoffBase << (attempt - 1)
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
