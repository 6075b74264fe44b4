package sendevent

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/commentsense/internal/domain/model"
)

const (
	detailType = "Support Ticket: Comment Created"
	source     = "commentsense.send-event"
)

// BuildEvent creates an envelope from cfg with a fresh id.
func BuildEvent(cfg *Config) model.Event {
	return model.Event{
		ID:         uuid.NewString(),
		DetailType: detailType,
		Source:     source,
		Time:       time.Now().UTC(),
		Detail: model.Detail{TicketEvent: model.TicketEvent{
			Type:    cfg.Type,
			Comment: model.Comment{Body: cfg.Body, IsPublic: cfg.Public},
			Ticket:  model.Ticket{ID: model.TicketID(cfg.TicketID), Priority: cfg.Priority},
		}},
	}
}
