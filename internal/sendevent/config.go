// Package sendevent posts sample ticket comment events to a running
// webhook server for manual end-to-end checks and light load.
package sendevent

import (
	"time"

	"github.com/okian/commentsense/internal/domain/model"
)

// Defaults used by the CLI.
const (
	DefaultURL     = "http://localhost:9080"
	DefaultBody    = "Bonjour, ceci est urgent"
	DefaultTicket  = "123"
	DefaultTimeout = 30 * time.Second
)

// Config describes what to send.
type Config struct {
	BaseURL  string
	Body     string
	TicketID string
	Priority string
	Type     string
	Public   bool
	Sync     bool

	// Count events are sent by Workers concurrent senders. Each event gets
	// its own id so none are treated as duplicates.
	Count   int
	Workers int

	Timeout time.Duration

	// Wait polls for the first event's outcome this long; zero skips it.
	Wait time.Duration
}

// NewConfig returns a Config for one public comment on ticket 123.
func NewConfig() *Config {
	return &Config{
		BaseURL:  DefaultURL,
		Body:     DefaultBody,
		TicketID: DefaultTicket,
		Type:     model.EventTypeCommentCreated,
		Public:   true,
		Count:    1,
		Workers:  1,
		Timeout:  DefaultTimeout,
	}
}

// Stats summarizes a run.
type Stats struct {
	Submitted int
	Accepted  int
	Duplicate int
	Failed    int
	Duration  time.Duration
	EventIDs  []string
}
