package shared

// User represents a registered bidder. Identifiers are assigned by the
// identity registry, start at 1 and are never reused.
type User struct {
	ID int64 `json:"id"`
}

// Item represents an item that can be bid on
type Item struct {
	ID int64 `json:"id"`
}
