package outbound

import (
	"context"

	"auction-ledger-service/internal/domain/bid"
	"auction-ledger-service/internal/domain/shared"
)

// IdentityRegistry assigns fresh identifiers to users and items. Identifiers
// are unique, start at 1 and increase monotonically; gaps are acceptable on
// failure but duplicates never are.
type IdentityRegistry interface {
	// RegisterUser persists a new user and returns its identity
	RegisterUser(ctx context.Context) (shared.User, error)

	// RegisterItem persists a new item and returns its identity
	RegisterItem(ctx context.Context) (shared.Item, error)
}

// BidLedger is the append-only store of accepted bids. Accept serializes the
// outbid check per item: concurrent accepts on the same item never commit out
// of strictly-increasing order, and accepts on different items do not block
// one another.
type BidLedger interface {
	// Accept records the bid if it strictly exceeds the item's current
	// highest bid. Returns shared.ErrUnknownItem / shared.ErrUnknownUser on
	// referential violations and *shared.BidTooLowError when outbid.
	Accept(ctx context.Context, b bid.Bid) error

	// WinningBid returns the bid with the maximum amount for the item, or
	// nil if the item has no bids. Absence is not an error.
	WinningBid(ctx context.Context, itemID int64) (*bid.Bid, error)

	// AllBidsForItem returns every accepted bid for the item, ordered by
	// amount ascending. Empty if none exist.
	AllBidsForItem(ctx context.Context, itemID int64) ([]bid.Bid, error)

	// AllItemsForUser returns the distinct items the user has bid on,
	// ordered by item identifier ascending. Empty if the user never bid.
	AllItemsForUser(ctx context.Context, userID int64) ([]int64, error)
}
