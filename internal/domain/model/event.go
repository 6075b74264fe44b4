// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Well-known values of the ticketing platform and the translation pipeline.
const (
	EventTypeCommentCreated = "Comment Created"
	PriorityUrgent          = "Urgent"
	LanguageEnglish         = "en"
	LanguageAuto            = "auto"
)

// Event is the notification envelope delivered for a ticket change.
// Only Detail.TicketEvent is read by the pipeline.
type Event struct {
	ID         string    `json:"id,omitempty"`
	DetailType string    `json:"detail-type,omitempty"`
	Source     string    `json:"source,omitempty"`
	Time       time.Time `json:"time,omitempty"`
	Detail     Detail    `json:"detail"`
}

// Detail wraps the ticket event payload.
type Detail struct {
	TicketEvent TicketEvent `json:"ticket_event"`
}

// TicketEvent describes what happened to a ticket.
type TicketEvent struct {
	Type    string  `json:"type"`
	Comment Comment `json:"comment"`
	Ticket  Ticket  `json:"ticket"`
}

// Comment is a message attached to a ticket.
type Comment struct {
	Body     string `json:"body"`
	IsPublic bool   `json:"is_public"`
}

// Ticket identifies the ticket the comment belongs to.
type Ticket struct {
	ID       TicketID `json:"id"`
	Priority string   `json:"priority,omitempty"`
}

// TicketID is the ticket identifier; the platform sends it as a number but
// some relays stringify it, so both forms decode.
type TicketID string

// UnmarshalJSON accepts a JSON string or number.
func (id *TicketID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = TicketID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("ticket id must be a string or number: %w", err)
	}
	*id = TicketID(n.String())
	return nil
}

// String returns the identifier as text.
func (id TicketID) String() string { return string(id) }

// TicketEvent returns the inner ticket event.
func (e *Event) TicketEvent() TicketEvent { return e.Detail.TicketEvent }

// TicketID returns the ticket identifier carried by the event.
func (e *Event) TicketID() string { return e.Detail.TicketEvent.Ticket.ID.String() }
