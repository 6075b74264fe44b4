// Package pipeline runs one ticket comment through translation, paging,
// sentiment analysis and ticket annotation.
//
// Steps run in order and the first failure stops the chain. The urgent
// page runs next to the analysis steps and is joined before Process
// returns, so its failure is reported with the rest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/commentsense/internal/domain/annotate"
	"github.com/okian/commentsense/internal/domain/model"
	"github.com/okian/commentsense/pkg/logger"
	"github.com/okian/commentsense/pkg/metrics"
)

const defaultStepTimeout = 20 * time.Second

// Skip reasons recorded in outcomes and metrics.
const (
	skipNotComment = "not_comment"
	skipNotPublic  = "not_public"
)

// Processor is stateless per event and safe for concurrent use.
type Processor struct {
	translator Translator
	notifier   Notifier
	analyzer   Analyzer
	tickets    TicketUpdater
	ledger     Ledger
	publisher  OutcomePublisher

	phoneNumber    string
	forcedPriority string
	stepTimeout    time.Duration

	logger logger.Logger
}

// New builds a Processor. Translator, Notifier, Analyzer and TicketUpdater
// are required.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		forcedPriority: model.PriorityUrgent,
		stepTimeout:    defaultStepTimeout,
		logger:         logger.Get().Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}

	var missing []string
	if p.translator == nil {
		missing = append(missing, "translator")
	}
	if p.notifier == nil {
		missing = append(missing, "notifier")
	}
	if p.analyzer == nil {
		missing = append(missing, "analyzer")
	}
	if p.tickets == nil {
		missing = append(missing, "ticket updater")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingDependency, strings.Join(missing, ", "))
	}
	return p, nil
}

// Process runs the pipeline for one event. Skipped events return
// ErrNotComment or ErrNotPublic and make no external calls. Any other
// error is a *StepError (or several joined) naming the failed step; the
// returned Outcome is always populated.
func (p *Processor) Process(ctx context.Context, ev *model.Event) (out model.Outcome, err error) {
	start := time.Now()
	te := ev.TicketEvent()

	out = model.Outcome{
		EventID:   ev.ID,
		TicketID:  ev.TicketID(),
		StartedAt: start.UTC(),
	}
	if out.EventID == "" {
		out.EventID = uuid.NewString()
	}
	metrics.RecordEventReceived()

	log := p.logger.With(
		logger.String("event_id", out.EventID),
		logger.String("ticket_id", out.TicketID),
	)
	defer func() { p.finish(ctx, log, &out, err, start) }()

	switch {
	case te.Type != model.EventTypeCommentCreated:
		out.Skipped, out.SkipReason = true, skipNotComment
		return out, ErrNotComment
	case !te.Comment.IsPublic:
		out.Skipped, out.SkipReason = true, skipNotPublic
		return out, ErrNotPublic
	}

	out.Priority = p.priority(te.Ticket.Priority)

	tr, err := p.translate(ctx, log, te.Comment.Body)
	if err != nil {
		return out, err
	}
	out.Translation = &tr

	var page errgroup.Group
	urgent := strings.EqualFold(out.Priority, model.PriorityUrgent)
	if urgent {
		ticketID := out.TicketID
		page.Go(func() error { return p.notify(ctx, log, ticketID, tr.Text) })
	}

	analyzeErr := p.analyze(ctx, log, &out, tr)
	pageErr := page.Wait()
	out.Notified = urgent && pageErr == nil

	return out, errors.Join(analyzeErr, pageErr)
}

// priority returns the effective priority for a ticket.
func (p *Processor) priority(ticketPriority string) string {
	if p.forcedPriority != "" {
		return p.forcedPriority
	}
	return ticketPriority
}

func (p *Processor) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.stepTimeout > 0 {
		return context.WithTimeout(ctx, p.stepTimeout)
	}
	return context.WithCancel(ctx)
}

func (p *Processor) translate(ctx context.Context, log logger.Logger, body string) (model.Translation, error) {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	tr, err := p.translator.Translate(ctx, body, model.LanguageAuto, model.LanguageEnglish)
	if err != nil {
		log.Error(ctx, "translation failed", logger.Error(err))
		return model.Translation{}, &StepError{Step: StepTranslate, Err: err}
	}
	metrics.RecordSourceLanguage(tr.SourceLanguage)
	log.Debug(ctx, "comment translated",
		logger.String("source_language", tr.SourceLanguage),
		logger.Int("chars", len(tr.Text)),
	)
	return tr, nil
}

func (p *Processor) notify(ctx context.Context, log logger.Logger, ticketID, english string) error {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	err := p.notifier.Notify(ctx, model.Notification{
		Message:     annotate.NotificationMessage(ticketID, english),
		PhoneNumber: p.phoneNumber,
	})
	metrics.RecordNotification(err)
	if err != nil {
		log.Error(ctx, "urgent notification failed", logger.Error(err))
		return &StepError{Step: StepNotify, Err: err}
	}
	log.Info(ctx, "urgent notification sent")
	return nil
}

// analyze runs language detection, sentiment detection and, for comments
// not written in English, the ticket annotation.
func (p *Processor) analyze(ctx context.Context, log logger.Logger, out *model.Outcome, tr model.Translation) error {
	lang, err := p.detectLanguage(ctx, tr.Text)
	if err != nil {
		log.Error(ctx, "language detection failed", logger.Error(err))
		return &StepError{Step: StepLanguage, Err: err}
	}

	s, err := p.detectSentiment(ctx, tr.Text, lang)
	if err != nil {
		log.Error(ctx, "sentiment detection failed", logger.Error(err), logger.String("language", lang))
		return &StepError{Step: StepSentiment, Err: err}
	}
	s.SourceLanguage = tr.SourceLanguage
	out.Sentiment = &s
	metrics.RecordSentiment(s.Label)
	log.Debug(ctx, "sentiment detected",
		logger.String("label", s.Label),
		logger.String("language", lang),
	)

	if strings.EqualFold(s.SourceLanguage, model.LanguageEnglish) {
		log.Debug(ctx, "comment already in English, ticket left unchanged")
		return nil
	}

	update, err := annotate.TicketUpdate(s, tr.Text)
	if err != nil {
		return &StepError{Step: StepAnnotate, Err: err}
	}

	uctx, cancel := p.stepContext(ctx)
	defer cancel()
	res, err := p.tickets.UpdateTicket(uctx, out.TicketID, update)
	if err != nil {
		log.Error(ctx, "ticket update failed", logger.Error(err), logger.Int("status", res.StatusCode))
		return &StepError{Step: StepUpdateTicket, Err: err}
	}
	out.TicketUpdated = true
	metrics.RecordTicketAnnotated()
	log.Info(ctx, "ticket annotated",
		logger.Int("status", res.StatusCode),
		logger.Any("headers", res.Header),
		logger.String("tag", update.Ticket.Tags[0]),
	)
	return nil
}

func (p *Processor) detectLanguage(ctx context.Context, text string) (string, error) {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()
	return p.analyzer.DetectDominantLanguage(ctx, text)
}

func (p *Processor) detectSentiment(ctx context.Context, text, lang string) (model.Sentiment, error) {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()
	return p.analyzer.DetectSentiment(ctx, text, lang)
}

// finish is the single exit for every run: it stamps the outcome, records
// metrics and hands processed outcomes to the sinks.
func (p *Processor) finish(ctx context.Context, log logger.Logger, out *model.Outcome, err error, start time.Time) {
	elapsed := time.Since(start)
	out.Duration = elapsed.String()
	metrics.RecordPipelineLatency(float64(elapsed.Milliseconds()))

	if out.Skipped {
		metrics.RecordEventSkipped(out.SkipReason)
		log.Debug(ctx, "event skipped", logger.String("reason", out.SkipReason))
		return
	}

	if err != nil {
		out.FailedStep = FailedStep(err)
		out.Error = err.Error()
		metrics.RecordEventFailed(out.FailedStep)
		log.Warn(ctx, "event failed",
			logger.String("step", out.FailedStep),
			logger.Duration("duration", elapsed),
		)
	} else {
		metrics.RecordEventProcessed()
		log.Info(ctx, "event processed",
			logger.Bool("notified", out.Notified),
			logger.Bool("ticket_updated", out.TicketUpdated),
			logger.Duration("duration", elapsed),
		)
	}

	sinkCtx := context.WithoutCancel(ctx)
	if p.ledger != nil {
		lctx, cancel := p.stepContext(sinkCtx)
		if lerr := p.ledger.Record(lctx, *out); lerr != nil {
			metrics.RecordSinkError("ledger")
			log.Error(ctx, "outcome ledger write failed", logger.Error(lerr))
		}
		cancel()
	}
	if p.publisher != nil {
		pctx, cancel := p.stepContext(sinkCtx)
		if perr := p.publisher.Publish(pctx, *out); perr != nil {
			metrics.RecordSinkError("publisher")
			log.Error(ctx, "outcome publish failed", logger.Error(perr))
		}
		cancel()
	}
}
