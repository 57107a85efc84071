package db

import "fmt"

// The bids table carries no surrogate key: a bid is identified by what it
// says. The unique constraint on (item_id, amount) backs the tie policy at
// the storage level.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGSERIAL NOT NULL PRIMARY KEY
	)`,

	`CREATE TABLE IF NOT EXISTS items (
		item_id BIGSERIAL NOT NULL PRIMARY KEY
	)`,

	`CREATE TABLE IF NOT EXISTS bids (
		item_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		amount  BIGINT NOT NULL,
		CONSTRAINT bids_fk_items FOREIGN KEY (item_id) REFERENCES items (item_id),
		CONSTRAINT bids_fk_users FOREIGN KEY (user_id) REFERENCES users (user_id),
		CONSTRAINT bids_item_amount_unique UNIQUE (item_id, amount)
	)`,

	`CREATE INDEX IF NOT EXISTS bids_user_idx ON bids (user_id, item_id)`,
}

// InitSchema creates the ledger tables if they do not exist yet
func (client *Connection) InitSchema() error {
	for _, stmt := range ddl {
		if _, err := client.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialise schema: %w", err)
		}
	}
	return nil
}
