// Package zendesk is a minimal client for the ticketing platform's REST API.
package zendesk

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/commentsense/internal/domain/model"
	"github.com/okian/commentsense/pkg/metrics"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 512
)

// Client is a ticketing REST API client authenticated with an API token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authHeader string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a client for domain (a host such as acme.zendesk.com,
// or a full base URL). Requests authenticate as "<email>/token:<apiKey>".
func NewClient(domain, email, apiKey string, opts ...Option) (*Client, error) {
	base, err := baseURL(domain)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: defaultTimeout},
		authHeader: BasicAuth(email, apiKey),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BasicAuth builds the Authorization header value for API token auth.
func BasicAuth(email, apiKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(email+"/token:"+apiKey))
}

func baseURL(domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", ErrMissingDomain
	}
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	u, err := url.Parse(domain)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid domain %q", ErrMissingDomain, domain)
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}

// Result is what the caller learns from an update.
type Result struct {
	StatusCode int
	Header     http.Header
}

// UpdateTicket PUTs update to /api/v2/tickets/{id}.json.
func (c *Client) UpdateTicket(ctx context.Context, ticketID string, update model.TicketUpdate) (Result, error) {
	if ticketID == "" {
		return Result{}, ErrMissingTicketID
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return Result{}, fmt.Errorf("marshal ticket update: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v2/tickets/%s.json", c.baseURL, url.PathEscape(ticketID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordDependencyCall("zendesk", float64(time.Since(start).Milliseconds()), err)
		return Result{}, fmt.Errorf("update ticket %s: %w", ticketID, err)
	}
	defer resp.Body.Close()

	res := Result{StatusCode: resp.StatusCode, Header: resp.Header}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err = fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
		metrics.RecordDependencyCall("zendesk", float64(time.Since(start).Milliseconds()), err)
		return res, fmt.Errorf("update ticket %s: %w", ticketID, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	metrics.RecordDependencyCall("zendesk", float64(time.Since(start).Milliseconds()), nil)
	return res, nil
}
