package db

import (
	"context"
	"fmt"

	"auction-ledger-service/internal/domain/shared"
)

// IdentityRepository implements the identity registry interface on top of
// the database's auto-increment sequences. Uniqueness of the issued
// identifiers is guaranteed by the backend; gaps may occur on rollback.
type IdentityRepository struct {
	conn *Connection
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(conn *Connection) *IdentityRepository {
	return &IdentityRepository{conn: conn}
}

// RegisterUser persists a new user row and returns its generated identity
func (r *IdentityRepository) RegisterUser(ctx context.Context) (shared.User, error) {
	query := `
		INSERT INTO users DEFAULT VALUES
		RETURNING user_id
	`

	var user shared.User
	if err := r.conn.GetDB().QueryRowContext(ctx, query).Scan(&user.ID); err != nil {
		return shared.User{}, fmt.Errorf("%w: failed to register user: %v", shared.ErrBackendUnavailable, err)
	}

	return user, nil
}

// RegisterItem persists a new item row and returns its generated identity
func (r *IdentityRepository) RegisterItem(ctx context.Context) (shared.Item, error) {
	query := `
		INSERT INTO items DEFAULT VALUES
		RETURNING item_id
	`

	var item shared.Item
	if err := r.conn.GetDB().QueryRowContext(ctx, query).Scan(&item.ID); err != nil {
		return shared.Item{}, fmt.Errorf("%w: failed to register item: %v", shared.ErrBackendUnavailable, err)
	}

	return item, nil
}
