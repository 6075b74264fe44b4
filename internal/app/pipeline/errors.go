package pipeline

import (
	"errors"
	"fmt"
)

// Skip reasons. A skipped event is not an error for the caller; Process
// returns these so adapters can answer with the short-circuit value.
var (
	ErrNotComment = errors.New("event is not a created comment")
	ErrNotPublic  = errors.New("comment is not public")
)

// ErrMissingDependency is returned by New when a required port is not set.
var ErrMissingDependency = errors.New("missing dependency")

// Pipeline steps, used in StepError and as metric labels.
const (
	StepTranslate    = "translate"
	StepNotify       = "notify"
	StepLanguage     = "detect_language"
	StepSentiment    = "detect_sentiment"
	StepAnnotate     = "annotate"
	StepUpdateTicket = "update_ticket"
)

// StepError reports which pipeline step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// IsSkip reports whether err means the event was intentionally ignored.
func IsSkip(err error) bool {
	return errors.Is(err, ErrNotComment) || errors.Is(err, ErrNotPublic)
}

// FailedStep returns the step recorded in err, or "" when err carries none.
func FailedStep(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}
