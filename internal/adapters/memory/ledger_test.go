package memory

import (
	"context"
	"sort"
	"sync"
	"testing"

	"auction-ledger-service/internal/domain/bid"
	"auction-ledger-service/internal/domain/shared"

	"github.com/stretchr/testify/require"
)

// Helper to build a ledger with n registered users and m registered items
func newLedgerWith(t *testing.T, users, items int) (*Ledger, *Registry) {
	t.Helper()

	registry := NewRegistry()
	ctx := context.Background()
	for i := 0; i < users; i++ {
		_, err := registry.RegisterUser(ctx)
		require.NoError(t, err)
	}
	for i := 0; i < items; i++ {
		_, err := registry.RegisterItem(ctx)
		require.NoError(t, err)
	}
	return NewLedger(registry), registry
}

func TestLedger_Accept(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name    string
		seed    []bid.Bid
		bid     bid.Bid
		wantErr error
	}{
		{name: "first_bid", bid: bid.Bid{ItemID: 1, UserID: 1, Amount: 10}},
		{name: "first_bid_zero_amount", bid: bid.Bid{ItemID: 1, UserID: 1, Amount: 0}},
		{name: "unknown_item", bid: bid.Bid{ItemID: 99, UserID: 1, Amount: 10}, wantErr: shared.ErrUnknownItem},
		{name: "unknown_user", bid: bid.Bid{ItemID: 1, UserID: 99, Amount: 10}, wantErr: shared.ErrUnknownUser},
		{
			name: "higher_bid_accepted",
			seed: []bid.Bid{{ItemID: 1, UserID: 1, Amount: 10}},
			bid:  bid.Bid{ItemID: 1, UserID: 2, Amount: 11},
		},
		{
			name:    "equal_bid_rejected",
			seed:    []bid.Bid{{ItemID: 1, UserID: 1, Amount: 10}},
			bid:     bid.Bid{ItemID: 1, UserID: 2, Amount: 10},
			wantErr: shared.ErrBidTooLow,
		},
		{
			name:    "lower_bid_rejected",
			seed:    []bid.Bid{{ItemID: 1, UserID: 1, Amount: 10}},
			bid:     bid.Bid{ItemID: 1, UserID: 2, Amount: 3},
			wantErr: shared.ErrBidTooLow,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ledger, _ := newLedgerWith(t, 2, 2)
			for _, b := range tc.seed {
				require.NoError(t, ledger.Accept(ctx, b))
			}

			err := ledger.Accept(ctx, tc.bid)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				history, err := ledger.AllBidsForItem(ctx, tc.bid.ItemID)
				require.NoError(t, err)
				require.Contains(t, history, tc.bid)
			}
		})
	}

	t.Run("rejection_carries_minimum_allowed", func(t *testing.T) {
		t.Parallel()

		ledger, _ := newLedgerWith(t, 2, 1)
		require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: 1, Amount: 42}))

		err := ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: 2, Amount: 42})
		var tooLow *shared.BidTooLowError
		require.ErrorAs(t, err, &tooLow)
		require.Equal(t, int64(43), tooLow.MinimumAllowed)
	})

	t.Run("rejected_bid_leaves_ledger_unchanged", func(t *testing.T) {
		t.Parallel()

		ledger, _ := newLedgerWith(t, 1, 1)

		before, err := ledger.AllBidsForItem(ctx, 1)
		require.NoError(t, err)

		err = ledger.Accept(ctx, bid.Bid{ItemID: 99, UserID: 1, Amount: 10})
		require.ErrorIs(t, err, shared.ErrUnknownItem)

		after, err := ledger.AllBidsForItem(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, before, after)
	})
}

func TestLedger_WinningBid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no_bids_is_absent_not_error", func(t *testing.T) {
		t.Parallel()

		ledger, _ := newLedgerWith(t, 1, 1)

		// Twice, to confirm the empty result is stable
		for i := 0; i < 2; i++ {
			winning, err := ledger.WinningBid(ctx, 1)
			require.NoError(t, err)
			require.Nil(t, winning)
		}

		// An unregistered item also yields absent, not an error
		winning, err := ledger.WinningBid(ctx, 99)
		require.NoError(t, err)
		require.Nil(t, winning)
	})

	t.Run("winning_bid_is_maximum", func(t *testing.T) {
		t.Parallel()

		ledger, _ := newLedgerWith(t, 2, 1)
		require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: 1, Amount: 4}))
		require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: 2, Amount: 5}))

		winning, err := ledger.WinningBid(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, &bid.Bid{ItemID: 1, UserID: 2, Amount: 5}, winning)
	})
}

func TestLedger_AllBidsForItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger, _ := newLedgerWith(t, 2, 2)

	require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: 1, Amount: 4}))
	require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: 2, Amount: 5}))
	require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: 2, UserID: 2, Amount: 1}))

	history, err := ledger.AllBidsForItem(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []bid.Bid{
		{ItemID: 1, UserID: 1, Amount: 4},
		{ItemID: 1, UserID: 2, Amount: 5},
	}, history)

	// Empty sequence, not an error, for an item without bids
	empty, err := ledger.AllBidsForItem(ctx, 99)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestLedger_AllItemsForUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("distinct_items_once_each", func(t *testing.T) {
		t.Parallel()

		ledger, _ := newLedgerWith(t, 1, 1)
		require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: 1, Amount: 1}))
		require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: 1, Amount: 2}))

		items, err := ledger.AllItemsForUser(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, []int64{1}, items)
	})

	t.Run("ordered_by_item_id_ascending", func(t *testing.T) {
		t.Parallel()

		ledger, _ := newLedgerWith(t, 1, 3)
		require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: 3, UserID: 1, Amount: 1}))
		require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: 1, Amount: 1}))
		require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: 2, UserID: 1, Amount: 1}))

		items, err := ledger.AllItemsForUser(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, []int64{1, 2, 3}, items)
	})

	t.Run("no_bids_is_empty", func(t *testing.T) {
		t.Parallel()

		ledger, _ := newLedgerWith(t, 1, 1)
		items, err := ledger.AllItemsForUser(ctx, 1)
		require.NoError(t, err)
		require.Empty(t, items)
	})
}

func TestLedger_ConcurrentAccept(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("racing_bids_never_both_win_at_equal_amounts", func(t *testing.T) {
		t.Parallel()

		ledger, _ := newLedgerWith(t, 2, 1)

		errs := make(chan error, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			userID := int64(i + 1)
			go func() {
				defer wg.Done()
				errs <- ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: userID, Amount: 100})
			}()
		}
		wg.Wait()
		close(errs)

		accepted := 0
		for err := range errs {
			if err == nil {
				accepted++
			} else {
				require.ErrorIs(t, err, shared.ErrBidTooLow)
			}
		}
		require.Equal(t, 1, accepted)
	})

	t.Run("higher_racing_bid_always_lands", func(t *testing.T) {
		t.Parallel()

		ledger, _ := newLedgerWith(t, 2, 1)

		type outcome struct {
			amount int64
			err    error
		}
		results := make(chan outcome, 2)
		var wg sync.WaitGroup
		for i, amount := range []int64{10, 20} {
			wg.Add(1)
			userID := int64(i + 1)
			amount := amount
			go func() {
				defer wg.Done()
				err := ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: userID, Amount: amount})
				results <- outcome{amount: amount, err: err}
			}()
		}
		wg.Wait()
		close(results)

		// The higher bid must be accepted regardless of arrival order; the
		// lower one is accepted only if it committed first.
		for res := range results {
			if res.amount == 20 {
				require.NoError(t, res.err)
			} else if res.err != nil {
				require.ErrorIs(t, res.err, shared.ErrBidTooLow)
			}
		}

		winning, err := ledger.WinningBid(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, int64(20), winning.Amount)
	})

	t.Run("history_stays_strictly_increasing", func(t *testing.T) {
		t.Parallel()

		ledger, _ := newLedgerWith(t, 50, 1)

		var wg sync.WaitGroup
		for i := 1; i <= 50; i++ {
			wg.Add(1)
			i := i
			go func() {
				defer wg.Done()
				// Losing bidders just get rejected; the invariant under test
				// is the order of what was accepted.
				ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: int64(i), Amount: int64(i)})
			}()
		}
		wg.Wait()

		history, err := ledger.AllBidsForItem(ctx, 1)
		require.NoError(t, err)
		require.NotEmpty(t, history)
		for i := 1; i < len(history); i++ {
			require.Greater(t, history[i].Amount, history[i-1].Amount)
		}

		winning, err := ledger.WinningBid(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, int64(50), winning.Amount)
	})

	t.Run("different_items_do_not_contend", func(t *testing.T) {
		t.Parallel()

		const items = 20
		ledger, _ := newLedgerWith(t, 1, items)

		errs := make(chan error, items)
		var wg sync.WaitGroup
		for i := 1; i <= items; i++ {
			wg.Add(1)
			itemID := int64(i)
			go func() {
				defer wg.Done()
				errs <- ledger.Accept(ctx, bid.Bid{ItemID: itemID, UserID: 1, Amount: 7})
			}()
		}
		wg.Wait()
		close(errs)

		// Same amount on every item: no cross-item serialization means no
		// rejections at all.
		for err := range errs {
			require.NoError(t, err)
		}

		items1, err := ledger.AllItemsForUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, items1, items)
		require.True(t, sort.SliceIsSorted(items1, func(i, j int) bool { return items1[i] < items1[j] }))
	})

	t.Run("concurrent_reads_during_writes", func(t *testing.T) {
		t.Parallel()

		ledger, _ := newLedgerWith(t, 1, 1)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 1; i <= 100; i++ {
				ledger.Accept(ctx, bid.Bid{ItemID: 1, UserID: 1, Amount: int64(i)})
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				history, err := ledger.AllBidsForItem(ctx, 1)
				require.NoError(t, err)
				for j := 1; j < len(history); j++ {
					require.Greater(t, history[j].Amount, history[j-1].Amount)
				}
			}
		}()
		wg.Wait()
	})
}

func TestLedger_OutbidSequence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger, registry := newLedgerWith(t, 0, 0)

	item, err := registry.RegisterItem(ctx)
	require.NoError(t, err)
	u1, err := registry.RegisterUser(ctx)
	require.NoError(t, err)
	u2, err := registry.RegisterUser(ctx)
	require.NoError(t, err)

	require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: item.ID, UserID: u1.ID, Amount: 4}))
	require.NoError(t, ledger.Accept(ctx, bid.Bid{ItemID: item.ID, UserID: u2.ID, Amount: 5}))

	winning, err := ledger.WinningBid(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, &bid.Bid{ItemID: item.ID, UserID: u2.ID, Amount: 5}, winning)

	err = ledger.Accept(ctx, bid.Bid{ItemID: item.ID, UserID: u1.ID, Amount: 5})
	var tooLow *shared.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	require.Equal(t, int64(6), tooLow.MinimumAllowed)

	history, err := ledger.AllBidsForItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, []bid.Bid{
		{ItemID: item.ID, UserID: u1.ID, Amount: 4},
		{ItemID: item.ID, UserID: u2.ID, Amount: 5},
	}, history)
}
