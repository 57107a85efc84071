package memory

import (
	"context"
	"sort"
	"sync"

	"auction-ledger-service/internal/domain/bid"
	"auction-ledger-service/internal/domain/shared"
)

// Ledger is an in-memory, append-only bid ledger. The check-then-append
// sequence in Accept is serialized per item through a lock table keyed by
// item id, so bids on different items never contend. The store itself is
// guarded by a single RWMutex, which gives every read a consistent snapshot.
type Ledger struct {
	registry *Registry

	mu        sync.RWMutex
	bids      map[int64][]bid.Bid // itemID -> accepted bids, amount ascending
	userItems map[int64][]int64   // userID -> distinct item ids bid on

	lockMu    sync.Mutex
	itemLocks map[int64]*sync.Mutex
}

// NewLedger creates a new in-memory ledger backed by the given registry
func NewLedger(registry *Registry) *Ledger {
	return &Ledger{
		registry:  registry,
		bids:      make(map[int64][]bid.Bid),
		userItems: make(map[int64][]int64),
		itemLocks: make(map[int64]*sync.Mutex),
	}
}

// itemLock returns the mutex serializing accept decisions for an item,
// creating it on first use. Locks are never removed; items are never deleted.
func (l *Ledger) itemLock(itemID int64) *sync.Mutex {
	l.lockMu.Lock()
	defer l.lockMu.Unlock()

	lock, ok := l.itemLocks[itemID]
	if !ok {
		lock = &sync.Mutex{}
		l.itemLocks[itemID] = lock
	}
	return lock
}

// Accept records the bid if it strictly exceeds the item's current highest
// accepted amount. Exactly one item-scoped lock is held per call.
func (l *Ledger) Accept(ctx context.Context, newBid bid.Bid) error {
	itemLock := l.itemLock(newBid.ItemID)
	itemLock.Lock()
	defer itemLock.Unlock()

	if !l.registry.HasItem(newBid.ItemID) {
		return shared.ErrUnknownItem
	}
	if !l.registry.HasUser(newBid.UserID) {
		return shared.ErrUnknownUser
	}

	l.mu.RLock()
	history := l.bids[newBid.ItemID]
	var currentMax int64
	hasBids := len(history) > 0
	if hasBids {
		currentMax = history[len(history)-1].Amount
	}
	l.mu.RUnlock()

	if hasBids && !newBid.Outbids(currentMax) {
		return &shared.BidTooLowError{
			ItemID:         newBid.ItemID,
			Amount:         newBid.Amount,
			MinimumAllowed: currentMax + 1,
		}
	}

	l.mu.Lock()
	// Accepted amounts only ever increase, so appending keeps the slice
	// sorted by amount ascending.
	l.bids[newBid.ItemID] = append(l.bids[newBid.ItemID], newBid)
	l.recordUserItem(newBid.UserID, newBid.ItemID)
	l.mu.Unlock()

	return nil
}

// recordUserItem tracks the distinct items a user has bid on. Caller holds l.mu.
func (l *Ledger) recordUserItem(userID, itemID int64) {
	for _, id := range l.userItems[userID] {
		if id == itemID {
			return
		}
	}
	l.userItems[userID] = append(l.userItems[userID], itemID)
}

// WinningBid returns the highest accepted bid for an item, nil if none exist
func (l *Ledger) WinningBid(ctx context.Context, itemID int64) (*bid.Bid, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	history := l.bids[itemID]
	if len(history) == 0 {
		return nil, nil
	}

	winning := history[len(history)-1]
	return &winning, nil
}

// AllBidsForItem returns all accepted bids for an item, amount ascending
func (l *Ledger) AllBidsForItem(ctx context.Context, itemID int64) ([]bid.Bid, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	history := l.bids[itemID]
	if len(history) == 0 {
		return nil, nil
	}

	return append([]bid.Bid(nil), history...), nil
}

// AllItemsForUser returns the distinct items a user has bid on, id ascending
func (l *Ledger) AllItemsForUser(ctx context.Context, userID int64) ([]int64, error) {
	l.mu.RLock()
	itemIDs := append([]int64(nil), l.userItems[userID]...)
	l.mu.RUnlock()

	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })
	return itemIDs, nil
}
