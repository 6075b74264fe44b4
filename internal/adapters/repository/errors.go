package repository

import "errors"

// Sentinel kinds for outcome store errors.
var (
	ErrNotFound    = errors.New("outcome not found")
	ErrMissingID   = errors.New("outcome has no event id")
	ErrNoTableName = errors.New("table name is required")
)
