package db

import (
	"context"
	"database/sql"
	"fmt"

	"auction-ledger-service/internal/domain/bid"
	"auction-ledger-service/internal/domain/shared"
)

// LedgerRepository implements the bid ledger interface. Bids are append-only
// and never updated or deleted.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

/*
Accept records a bid inside a single transaction:
 1. Lock the item row (FOR UPDATE). This both validates that the item exists
    and serializes concurrent accepts on the same item; accepts on other
    items take other row locks and proceed in parallel.
 2. Validate that the user exists.
 3. Read the current maximum accepted amount for the item.
 4. Insert the bid only if it strictly exceeds that maximum.

At most one row lock is taken per call, so accepts cannot deadlock.
*/
func (r *LedgerRepository) Accept(ctx context.Context, newBid bid.Bid) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		itemQuery := `
			SELECT item_id
			FROM items
			WHERE item_id = $1
			FOR UPDATE
		`

		var lockedItemID int64
		err := tx.QueryRowContext(ctx, itemQuery, newBid.ItemID).Scan(&lockedItemID)
		if err != nil {
			if err == sql.ErrNoRows {
				return shared.ErrUnknownItem
			}
			return fmt.Errorf("%w: failed to lock item: %v", shared.ErrBackendUnavailable, err)
		}

		userQuery := `
			SELECT user_id
			FROM users
			WHERE user_id = $1
		`

		var userID int64
		err = tx.QueryRowContext(ctx, userQuery, newBid.UserID).Scan(&userID)
		if err != nil {
			if err == sql.ErrNoRows {
				return shared.ErrUnknownUser
			}
			return fmt.Errorf("%w: failed to check user: %v", shared.ErrBackendUnavailable, err)
		}

		maxQuery := `
			SELECT MAX(amount)
			FROM bids
			WHERE item_id = $1
		`

		var currentMax sql.NullInt64
		if err := tx.QueryRowContext(ctx, maxQuery, newBid.ItemID).Scan(&currentMax); err != nil {
			return fmt.Errorf("%w: failed to read current winning amount: %v", shared.ErrBackendUnavailable, err)
		}

		if currentMax.Valid && currentMax.Int64 >= newBid.Amount {
			return &shared.BidTooLowError{
				ItemID:         newBid.ItemID,
				Amount:         newBid.Amount,
				MinimumAllowed: currentMax.Int64 + 1,
			}
		}

		insertQuery := `
			INSERT INTO bids (item_id, user_id, amount)
			VALUES ($1, $2, $3)
		`

		if _, err := tx.ExecContext(ctx, insertQuery, newBid.ItemID, newBid.UserID, newBid.Amount); err != nil {
			return fmt.Errorf("%w: failed to record bid: %v", shared.ErrBackendUnavailable, err)
		}

		return nil
	})
}

// WinningBid retrieves the highest bid for an item, nil if the item has no bids
func (r *LedgerRepository) WinningBid(ctx context.Context, itemID int64) (*bid.Bid, error) {
	query := `
		SELECT item_id, user_id, amount
		FROM bids
		WHERE item_id = $1
		ORDER BY amount DESC
		LIMIT 1
	`

	var winning bid.Bid
	err := r.conn.GetDB().QueryRowContext(ctx, query, itemID).Scan(
		&winning.ItemID,
		&winning.UserID,
		&winning.Amount,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to get winning bid: %v", shared.ErrBackendUnavailable, err)
	}

	return &winning, nil
}

// AllBidsForItem retrieves all accepted bids for an item, amount ascending
func (r *LedgerRepository) AllBidsForItem(ctx context.Context, itemID int64) ([]bid.Bid, error) {
	query := `
		SELECT item_id, user_id, amount
		FROM bids
		WHERE item_id = $1
		ORDER BY amount
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get bids: %v", shared.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	var bids []bid.Bid
	for rows.Next() {
		var b bid.Bid
		if err := rows.Scan(&b.ItemID, &b.UserID, &b.Amount); err != nil {
			return nil, fmt.Errorf("%w: failed to scan bid: %v", shared.ErrBackendUnavailable, err)
		}
		bids = append(bids, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating bids: %v", shared.ErrBackendUnavailable, err)
	}

	return bids, nil
}

// AllItemsForUser retrieves the distinct items a user has bid on, item id ascending
func (r *LedgerRepository) AllItemsForUser(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT DISTINCT item_id
		FROM bids
		WHERE user_id = $1
		ORDER BY item_id
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get items for user: %v", shared.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	var items []int64
	for rows.Next() {
		var itemID int64
		if err := rows.Scan(&itemID); err != nil {
			return nil, fmt.Errorf("%w: failed to scan item id: %v", shared.ErrBackendUnavailable, err)
		}
		items = append(items, itemID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating items: %v", shared.ErrBackendUnavailable, err)
	}

	return items, nil
}
