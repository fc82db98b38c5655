package deck

import (
	"encoding/json"
	"fmt"
)

// Order is the card ordering code stored in a filtered deck term.
type Order int

const (
	OrderOldestSeen Order = iota
	OrderRandom
	OrderIntervalsAscending
	OrderIntervalsDescending
	OrderLapses
	OrderAdded
	OrderDue
	OrderLatestAdded
	OrderOverdue
)

var orderNames = [...]string{
	OrderOldestSeen:          "oldest seen first",
	OrderRandom:              "random",
	OrderIntervalsAscending:  "increasing intervals",
	OrderIntervalsDescending: "decreasing intervals",
	OrderLapses:              "most lapses",
	OrderAdded:               "order added",
	OrderDue:                 "order due",
	OrderLatestAdded:         "latest added first",
	OrderOverdue:             "relative overdueness",
}

// Valid reports whether o is a known ordering code.
func (o Order) Valid() bool {
	return o >= OrderOldestSeen && o <= OrderOverdue
}

// String returns the human-readable ordering name.
func (o Order) String() string {
	if o.Valid() {
		return orderNames[o]
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// Term is one search term of a filtered deck: the cards matching Query, at most
// Limit of them, gathered in Order.
type Term struct {
	Query string
	Limit int
	Order Order
}

// MarshalJSON encodes the term as the array [query, limit, order].
func (t Term) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.Query, t.Limit, int(t.Order)})
}

// UnmarshalJSON decodes the array form written by MarshalJSON.
func (t *Term) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("term: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("term: want 3 elements, got %d", len(raw))
	}
	var (
		query string
		limit int
		order int
	)
	if err := json.Unmarshal(raw[0], &query); err != nil {
		return fmt.Errorf("term query: %w", err)
	}
	if err := json.Unmarshal(raw[1], &limit); err != nil {
		return fmt.Errorf("term limit: %w", err)
	}
	if err := json.Unmarshal(raw[2], &order); err != nil {
		return fmt.Errorf("term order: %w", err)
	}
	*t = Term{Query: query, Limit: limit, Order: Order(order)}
	return nil
}
