package model

import "time"

// Translation is the English rendering of a comment.
type Translation struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// SentimentScore is the per-category confidence breakdown. Field names match
// the analysis service so the serialized form in ticket notes stays familiar.
type SentimentScore struct {
	Positive float32 `json:"Positive"`
	Negative float32 `json:"Negative"`
	Neutral  float32 `json:"Neutral"`
	Mixed    float32 `json:"Mixed"`
}

// Sentiment is the result of sentiment analysis on the translated text.
type Sentiment struct {
	Label        string         `json:"label"`
	Score        SentimentScore `json:"score"`
	LanguageCode string         `json:"language_code"`
	// SourceLanguage echoes the comment's original detected language.
	SourceLanguage string `json:"source_language"`
}

// Notification is a text message to the on-call phone.
type Notification struct {
	Message     string `json:"message"`
	PhoneNumber string `json:"phone_number"`
}

// TicketUpdate is the body of the ticket update request.
type TicketUpdate struct {
	Ticket TicketChanges `json:"ticket"`
}

// TicketChanges lists the fields changed on the ticket.
type TicketChanges struct {
	Tags    []string      `json:"tags"`
	Comment TicketComment `json:"comment"`
}

// TicketComment is a comment added to the ticket.
type TicketComment struct {
	Body   string `json:"body"`
	Public bool   `json:"public"`
}

// Outcome records what one pipeline run did.
type Outcome struct {
	EventID       string       `json:"event_id" dynamodbav:"event_id"`
	TicketID      string       `json:"ticket_id" dynamodbav:"ticket_id"`
	Priority      string       `json:"priority,omitempty" dynamodbav:"priority,omitempty"`
	Skipped       bool         `json:"skipped,omitempty" dynamodbav:"skipped,omitempty"`
	SkipReason    string       `json:"skip_reason,omitempty" dynamodbav:"skip_reason,omitempty"`
	Translation   *Translation `json:"translation,omitempty" dynamodbav:"translation,omitempty"`
	Sentiment     *Sentiment   `json:"sentiment,omitempty" dynamodbav:"sentiment,omitempty"`
	Notified      bool         `json:"notified" dynamodbav:"notified"`
	TicketUpdated bool         `json:"ticket_updated" dynamodbav:"ticket_updated"`
	FailedStep    string       `json:"failed_step,omitempty" dynamodbav:"failed_step,omitempty"`
	Error         string       `json:"error,omitempty" dynamodbav:"error,omitempty"`
	StartedAt     time.Time    `json:"started_at" dynamodbav:"started_at"`
	Duration      string       `json:"duration" dynamodbav:"duration"`
}
