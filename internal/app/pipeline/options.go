package pipeline

import (
	"time"

	"github.com/okian/commentsense/pkg/logger"
)

// Option configures a Processor.
type Option func(*Processor)

// WithTranslator sets the translation port.
func WithTranslator(t Translator) Option {
	return func(p *Processor) { p.translator = t }
}

// WithNotifier sets the SMS port.
func WithNotifier(n Notifier) Option {
	return func(p *Processor) { p.notifier = n }
}

// WithAnalyzer sets the language and sentiment port.
func WithAnalyzer(a Analyzer) Option {
	return func(p *Processor) { p.analyzer = a }
}

// WithTicketUpdater sets the ticketing port.
func WithTicketUpdater(u TicketUpdater) Option {
	return func(p *Processor) { p.tickets = u }
}

// WithLedger adds an outcome store. Optional.
func WithLedger(l Ledger) Option {
	return func(p *Processor) { p.ledger = l }
}

// WithOutcomePublisher adds an outcome publisher. Optional.
func WithOutcomePublisher(pub OutcomePublisher) Option {
	return func(p *Processor) { p.publisher = pub }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPhoneNumber sets the on-call phone that receives urgent-ticket texts.
func WithPhoneNumber(number string) Option {
	return func(p *Processor) { p.phoneNumber = number }
}

// WithForcedPriority overrides every ticket's priority. An empty value
// makes the ticket's own priority decide.
func WithForcedPriority(priority string) Option {
	return func(p *Processor) { p.forcedPriority = priority }
}

// WithStepTimeout bounds each external call. Zero disables the bound.
func WithStepTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d >= 0 {
			p.stepTimeout = d
		}
	}
}
