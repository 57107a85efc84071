package db

import (
	"auction-ledger-service/internal/ports/outbound"
)

// RepositoryFactory creates and manages all database repositories
type RepositoryFactory struct {
	conn *Connection
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(conn *Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// GetIdentityRegistry returns the identity registry
func (f *RepositoryFactory) GetIdentityRegistry() outbound.IdentityRegistry {
	return NewIdentityRepository(f.conn)
}

// GetBidLedger returns the bid ledger
func (f *RepositoryFactory) GetBidLedger() outbound.BidLedger {
	return NewLedgerRepository(f.conn)
}
