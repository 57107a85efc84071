package shared

import (
	"errors"
	"fmt"
)

// Domain-specific errors
var (
	// Ledger rejection errors
	ErrUnknownItem = errors.New("bid references an unregistered item")
	ErrUnknownUser = errors.New("bid references an unregistered user")
	ErrBidTooLow   = errors.New("bid amount must be higher than current winning bid")

	// Backend errors
	ErrBackendUnavailable = errors.New("persistence backend unavailable")

	// WebSocket message validation errors
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrItemIDRequired      = errors.New("item_id is required")
	ErrUserIDRequired      = errors.New("user_id is required")
	ErrInvalidAmount       = errors.New("valid amount is required")
	ErrUnknownMessageType  = errors.New("unknown message type")

	// WebSocket handler specific errors
	ErrClientEventChannelNotFound = errors.New("client event channel not found")
)

// BidTooLowError rejects a bid that did not strictly exceed the current
// winning amount. MinimumAllowed is the smallest amount that would have
// succeeded at decision time; it may be stale by the time of resubmission.
type BidTooLowError struct {
	ItemID         int64
	Amount         int64
	MinimumAllowed int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("the bid of %d on item %d was too low; minimum allowed bid: %d",
		e.Amount, e.ItemID, e.MinimumAllowed)
}

// Is makes errors.Is(err, ErrBidTooLow) match the typed rejection.
func (e *BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}
