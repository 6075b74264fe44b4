// Package repository stores pipeline outcomes so a run can be inspected
// after the fact.
package repository

import (
	"context"

	"github.com/okian/commentsense/internal/domain/model"
)

// Store persists one outcome per processed event.
type Store interface {
	// Record writes outcome, replacing any earlier outcome for the same event id.
	Record(ctx context.Context, outcome model.Outcome) error

	// Get returns the outcome for eventID or ErrNotFound.
	Get(ctx context.Context, eventID string) (model.Outcome, error)
}
