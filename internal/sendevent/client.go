package sendevent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/commentsense/internal/domain/model"
)

// Result classifies a webhook answer.
type Result string

// Results of one submission.
const (
	ResultAccepted  Result = "accepted"
	ResultDuplicate Result = "duplicate"
	ResultFailed    Result = "failed"
)

// Client talks to the webhook server.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client with a request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Submit posts ev to /events, or /events/sync when sync is set, and
// returns the classification and raw body.
func (c *Client) Submit(ctx context.Context, ev model.Event, sync bool) (Result, []byte, error) {
	path := "/events"
	if sync {
		path = "/events/sync"
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return ResultFailed, nil, fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return ResultFailed, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ResultFailed, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ResultFailed, nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return ResultAccepted, body, nil
	case http.StatusOK:
		var ack ackResponse
		if json.Unmarshal(body, &ack) == nil && ack.Duplicate {
			return ResultDuplicate, body, nil
		}
		return ResultAccepted, body, nil
	default:
		return ResultFailed, body, fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// Outcome fetches /outcomes/{id}. found is false on 404.
func (c *Client) Outcome(ctx context.Context, eventID string) (out model.Outcome, found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/outcomes/"+eventID, http.NoBody)
	if err != nil {
		return model.Outcome{}, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return model.Outcome{}, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return model.Outcome{}, false, fmt.Errorf("decode outcome: %w", err)
		}
		return out, true, nil
	case http.StatusNotFound:
		return model.Outcome{}, false, nil
	default:
		return model.Outcome{}, false, fmt.Errorf("outcome %s: status %d", eventID, resp.StatusCode)
	}
}

// Healthy checks /healthz.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz returned %d", resp.StatusCode)
	}
	return nil
}
