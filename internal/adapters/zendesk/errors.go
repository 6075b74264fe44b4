package zendesk

import "errors"

// Sentinel kinds for ticketing API errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected status from ticketing api")
	ErrMissingTicketID  = errors.New("ticket id is required")
	ErrMissingDomain    = errors.New("ticketing domain is required")
)
