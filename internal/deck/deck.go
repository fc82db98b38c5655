package deck

// Deck is a regular (non-filtered) deck that custom study sessions draw cards from.
type Deck struct {
	// ID is a ULID that uniquely identifies this deck
	ID string `json:"id"`

	// Name is the deck name as provided by the user. "::" separates subdecks.
	Name string `json:"name"`

	// NameNorm is the normalized name used for lookups
	NameNorm string `json:"-"`

	// Dyn is true for filtered decks
	Dyn bool `json:"dyn"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Card queues, matching the values stored in the cards table.
const (
	QueueSuspended = -1
	QueueNew       = 0
	QueueLearn     = 1
	QueueReview    = 2
	QueueDayLearn  = 3
)

// Card is the subset of card scheduling state the collection needs to answer
// scheduler counts and search queries.
type Card struct {
	ID     string
	DeckID string
	Tags   []string
	Queue  int
	// Due is a day index for review cards and a position for new cards.
	Due      int
	Interval int
	Lapses   int
	AddedAt  int64
}

// Review is a single answer recorded in the review log.
type Review struct {
	CardID string
	// Ease is the answer button: 1 again, 2 hard, 3 good, 4 easy.
	Ease       int
	ReviewedAt int64
}
