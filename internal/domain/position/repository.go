package position

import (
	"context"
)

// Repository defines the interface for ledger row access.
//
// Implementations must guarantee at most one live row per trade number;
// a store found holding two live rows for the same number surfaces
// errors.ErrStoreConsistency from GetLive.
type Repository interface {
	// Create appends a new position row
	Create(ctx context.Context, position *Position) error

	// GetLive returns the live (open or partially closed) position for a
	// trade number, or errors.ErrPositionNotFound
	GetLive(ctx context.Context, tradeNumber int) (*Position, error)

	// ListLive returns every live position
	ListLive(ctx context.Context) ([]*Position, error)

	// Update persists the full state of an existing position
	Update(ctx context.Context, position *Position) error

	// UpdateMark persists only the quote-derived fields of a live position
	UpdateMark(ctx context.Context, tradeNumber int, mark Mark) error
}
