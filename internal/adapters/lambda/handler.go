// Package lambda adapts the comment pipeline to the AWS Lambda runtime.
package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/okian/commentsense/internal/app/pipeline"
	"github.com/okian/commentsense/internal/domain/model"
	"github.com/okian/commentsense/pkg/logger"
)

const contentTypeJSON = "application/json"

// Processor runs the pipeline for one event.
type Processor interface {
	Process(ctx context.Context, ev *model.Event) (model.Outcome, error)
}

// Response is the object returned to the invoking runtime.
type Response struct {
	StatusCode string            `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers"`
}

// Handler serves Lambda invocations.
type Handler struct {
	processor Processor
	logger    logger.Logger
}

// NewHandler wraps a processor.
func NewHandler(p Processor) *Handler {
	return &Handler{processor: p, logger: logger.Get().Named("lambda")}
}

// Handle decodes the invocation payload and runs it. Skipped events answer
// true; everything else answers a Response. Pipeline failures are reported
// in the Response and never as a Go error, so the runtime does not retry
// and resend pages.
func (h *Handler) Handle(ctx context.Context, payload json.RawMessage) (any, error) {
	log := h.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = log.With(logger.String("request_id", lc.AwsRequestID))
	}

	var ev model.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Warn(ctx, "undecodable event", logger.Error(err))
		return Failure(fmt.Errorf("decode event: %w", err)), nil
	}

	out, err := h.processor.Process(ctx, &ev)
	if pipeline.IsSkip(err) {
		return true, nil
	}
	if err != nil {
		return Failure(err), nil
	}
	return Success(out), nil
}

// Success builds a 200 response carrying the outcome as JSON.
func Success(out model.Outcome) Response {
	body, err := json.Marshal(out)
	if err != nil {
		return Failure(fmt.Errorf("encode outcome: %w", err))
	}
	return respond(http.StatusOK, string(body))
}

// Failure builds a 400 response carrying the error message.
func Failure(err error) Response {
	return respond(http.StatusBadRequest, err.Error())
}

func respond(status int, body string) Response {
	return Response{
		StatusCode: strconv.Itoa(status),
		Body:       body,
		Headers:    map[string]string{"Content-Type": contentTypeJSON},
	}
}
