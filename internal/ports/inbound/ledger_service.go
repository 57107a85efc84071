package inbound

import (
	"context"

	"auction-ledger-service/internal/domain/bid"
	"auction-ledger-service/internal/domain/shared"
)

// LedgerService defines the caller-facing auction ledger operations
type LedgerService interface {
	// RegisterUser registers a new user and returns its identity
	RegisterUser(ctx context.Context) (shared.User, error)

	// RegisterItem registers a new item and returns its identity
	RegisterItem(ctx context.Context) (shared.Item, error)

	// SubmitBid submits a bid for acceptance by the ledger
	SubmitBid(ctx context.Context, req SubmitBidRequest) (bid.Bid, error)

	// WinningBid returns the current winning bid for an item, nil if none
	WinningBid(ctx context.Context, itemID int64) (*bid.Bid, error)

	// AllBidsForItem returns the item's bid history, amount ascending
	AllBidsForItem(ctx context.Context, itemID int64) ([]bid.Bid, error)

	// AllItemsForUser returns the distinct items the user has bid on
	AllItemsForUser(ctx context.Context, userID int64) ([]int64, error)
}

// request to submit a bid
type SubmitBidRequest struct {
	ItemID int64 `json:"item_id"`
	UserID int64 `json:"user_id"`
	Amount int64 `json:"amount"`
}
