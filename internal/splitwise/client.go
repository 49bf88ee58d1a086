// Package splitwise is an HTTP client for the Splitwise expense-sharing API,
// covering the group, expense, and OAuth2 operations Tripdesk uses.
// Services depend on the Client interface, not the HTTP implementation,
// which allows unit tests to substitute a mock.
package splitwise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Client is the capability surface services consume. Every call takes the
// acting user's bearer token; the client itself holds no user credential.
type Client interface {
	// GetCurrentUser returns the provider account the token belongs to.
	GetCurrentUser(ctx context.Context, token string) (User, error)

	// CreateGroup creates a new expense group with the given members.
	CreateGroup(ctx context.Context, token, name string, members []GroupMember) (Group, error)

	// AddUserToGroup adds one member to an existing group. Adding a user who
	// is already a member is a no-op at the provider, so retries are safe.
	AddUserToGroup(ctx context.Context, token, groupID string, member GroupMember) error

	// CreateExpense records a new expense in a group.
	CreateExpense(ctx context.Context, token string, in ExpenseParams) (Expense, error)

	// UpdateExpense replaces the mutable fields of an existing expense.
	UpdateExpense(ctx context.Context, token, expenseID string, in ExpenseParams) (Expense, error)

	// DeleteExpense removes an expense by provider id.
	DeleteExpense(ctx context.Context, token, expenseID string) error

	// AuthorizeURL returns the provider consent page URL for the OAuth2
	// authorization-code flow, carrying the given anti-forgery state.
	AuthorizeURL(state string) string

	// ExchangeCode trades an authorization code for a bearer token.
	ExchangeCode(ctx context.Context, code string) (Token, error)
}

// Error is a failure reported by the provider itself: a non-2xx status or a
// 2xx envelope carrying an error payload. Transport and context errors are
// returned as-is so callers can distinguish a timeout from a rejection.
type Error struct {
	Code    int // HTTP status code of the provider response
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("splitwise: %s (status %d)", e.Message, e.Code)
}

// Config carries the settings for the HTTP client. Zero-value base URLs and
// timeout fall back to the production defaults.
type Config struct {
	// APIBaseURL is the REST API root, e.g. https://secure.splitwise.com/api/v3.0.
	APIBaseURL string
	// AuthBaseURL is the OAuth2 root, e.g. https://secure.splitwise.com.
	AuthBaseURL string
	// ConsumerKey and ConsumerSecret identify this application to the provider.
	ConsumerKey    string
	ConsumerSecret string
	// RedirectURL is the registered OAuth2 callback of this deployment.
	RedirectURL string
	// Timeout bounds every provider call. Defaults to 10s.
	Timeout time.Duration
	// HTTPClient overrides the underlying transport. Defaults to a plain
	// http.Client; the per-call context deadline does the timekeeping.
	HTTPClient *http.Client
}

const (
	defaultAPIBaseURL  = "https://secure.splitwise.com/api/v3.0"
	defaultAuthBaseURL = "https://secure.splitwise.com"
	defaultTimeout     = 10 * time.Second

	// retryBase seeds the fibonacci backoff used on idempotent calls.
	retryBase       = 200 * time.Millisecond
	retryMaxRetries = 2
)

// httpClient is the HTTP implementation of Client.
type httpClient struct {
	apiBase        string
	authBase       string
	consumerKey    string
	consumerSecret string
	redirectURL    string
	timeout        time.Duration
	httpc          *http.Client
}

// New constructs a Client over the provider's REST API.
func New(cfg Config) Client {
	c := &httpClient{
		apiBase:        strings.TrimRight(cfg.APIBaseURL, "/"),
		authBase:       strings.TrimRight(cfg.AuthBaseURL, "/"),
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		redirectURL:    cfg.RedirectURL,
		timeout:        cfg.Timeout,
		httpc:          cfg.HTTPClient,
	}
	if c.apiBase == "" {
		c.apiBase = defaultAPIBaseURL
	}
	if c.authBase == "" {
		c.authBase = defaultAuthBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.httpc == nil {
		c.httpc = &http.Client{}
	}
	return c
}

// apiErrors is the provider's error payload shape: {"errors": {"base": [...]}}.
type apiErrors struct {
	Base []string `json:"base"`
}

func (e apiErrors) empty() bool { return len(e.Base) == 0 }

func (e apiErrors) join() string { return strings.Join(e.Base, "; ") }

// get performs an authenticated GET against the API base and decodes the
// JSON response into out.
func (c *httpClient) get(ctx context.Context, token, path string, out any) error {
	return c.roundTrip(ctx, token, http.MethodGet, c.apiBase+path, nil, out)
}

// post performs an authenticated form-encoded POST against the API base and
// decodes the JSON response into out.
func (c *httpClient) post(ctx context.Context, token, path string, form url.Values, out any) error {
	return c.roundTrip(ctx, token, http.MethodPost, c.apiBase+path, form, out)
}

// roundTrip executes one provider call under the configured timeout.
// Provider-level failures (non-2xx) come back as *Error; transport and
// context errors are wrapped but not converted, preserving errors.Is checks
// for context.DeadlineExceeded.
func (c *httpClient) roundTrip(ctx context.Context, token, method, rawURL string, form url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Code: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts a human-readable message from an error response body,
// falling back to the HTTP status line.
func errorMessage(raw []byte, status string) string {
	var payload struct {
		Error  string    `json:"error"`
		Errors apiErrors `json:"errors"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if !payload.Errors.empty() {
			return payload.Errors.join()
		}
	}
	return status
}

// withRetry runs fn with fibonacci backoff, retrying transport failures and
// provider 5xx responses. 4xx responses are never retried.
func withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(retryMaxRetries, retry.NewFibonacci(retryBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var pe *Error
		if errors.As(err, &pe) {
			if pe.Code >= 500 {
				return retry.RetryableError(err)
			}
			return err
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return retry.RetryableError(err)
	})
}
