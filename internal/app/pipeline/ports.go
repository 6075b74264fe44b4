package pipeline

import (
	"context"

	"github.com/okian/commentsense/internal/adapters/zendesk"
	"github.com/okian/commentsense/internal/domain/model"
)

// Translator renders text into the target language and reports the
// detected source language.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (model.Translation, error)
}

// Notifier sends a text message to a phone.
type Notifier interface {
	Notify(ctx context.Context, msg model.Notification) error
}

// Analyzer detects language and sentiment.
type Analyzer interface {
	DetectDominantLanguage(ctx context.Context, text string) (string, error)
	DetectSentiment(ctx context.Context, text, lang string) (model.Sentiment, error)
}

// TicketUpdater writes changes back to a ticket.
type TicketUpdater interface {
	UpdateTicket(ctx context.Context, ticketID string, update model.TicketUpdate) (zendesk.Result, error)
}

// Ledger stores outcomes.
type Ledger interface {
	Record(ctx context.Context, o model.Outcome) error
}

// OutcomePublisher announces outcomes to other systems.
type OutcomePublisher interface {
	Publish(ctx context.Context, o model.Outcome) error
}
