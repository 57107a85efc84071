package bid

// Bid represents an accepted or submitted bid on an item. Accepted bids are
// immutable; the ledger never updates or deletes them.
type Bid struct {
	ItemID int64 `json:"item_id"`
	UserID int64 `json:"user_id"`
	Amount int64 `json:"amount"`
}

// Outbids returns true if the bid strictly exceeds the given amount.
// Equal amounts always lose, which keeps the winning bid unique.
func (b Bid) Outbids(amount int64) bool {
	return b.Amount > amount
}
