// Package annotate builds the texts the pipeline writes to people and tickets.
package annotate

import (
	"encoding/json"
	"fmt"

	"github.com/okian/commentsense/internal/domain/model"
)

const (
	tagPrefix         = "Sentiment_"
	translationHeader = "---English Translation of Body---\n"
	scoreHeader       = "\n\n---Sentiment score---\n"
)

// SentimentTag returns the ticket tag for a sentiment label, e.g. Sentiment_NEGATIVE.
func SentimentTag(label string) string {
	return tagPrefix + label
}

// NotificationMessage is the SMS text sent for an urgent ticket.
func NotificationMessage(ticketID, english string) string {
	return fmt.Sprintf("New Urgent Ticket! ID = %s; Description: %s", ticketID, english)
}

// CommentBody renders the private note: the English text followed by the
// serialized score breakdown.
func CommentBody(english string, score model.SentimentScore) (string, error) {
	raw, err := json.Marshal(score)
	if err != nil {
		return "", fmt.Errorf("marshal sentiment score: %w", err)
	}
	return translationHeader + english + scoreHeader + string(raw), nil
}

// TicketUpdate builds the ticket update carrying one sentiment tag and a
// private comment.
func TicketUpdate(s model.Sentiment, english string) (model.TicketUpdate, error) {
	body, err := CommentBody(english, s.Score)
	if err != nil {
		return model.TicketUpdate{}, err
	}
	return model.TicketUpdate{Ticket: model.TicketChanges{
		Tags:    []string{SentimentTag(s.Label)},
		Comment: model.TicketComment{Body: body, Public: false},
	}}, nil
}
