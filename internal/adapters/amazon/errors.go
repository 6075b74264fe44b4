package amazon

import "errors"

// Sentinel kinds for AWS adapter errors.
var (
	ErrEmptyResponse = errors.New("empty response from service")
	ErrNoLanguage    = errors.New("no dominant language detected")
	ErrNoRecipient   = errors.New("no phone number configured")
)
