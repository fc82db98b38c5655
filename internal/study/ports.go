package study

import (
	"context"
	"sync"

	"github.com/hpungsan/cram/internal/deck"
)

// Scheduler answers the card counts the gate needs. Results must reflect the
// collection as it is at call time.
type Scheduler interface {
	NewCount(ctx context.Context, deckID string) (int, error)
	ReviewCount(ctx context.Context, deckID string) (int, error)
	MatchingCount(ctx context.Context, query string) (int, error)
}

// DeckStore reads base decks and writes filtered decks.
type DeckStore interface {
	Deck(ctx context.Context, id string) (*deck.Deck, error)
	// FindDeckByName returns nil, nil when no deck has the name.
	FindDeckByName(ctx context.Context, name string) (*deck.Filtered, error)
	Save(ctx context.Context, cfg *deck.Filtered) (string, error)
}

// Collection is a ready collection: both ports behind one write lock. Ready
// fails once the collection can no longer be used.
type Collection interface {
	sync.Locker
	Scheduler
	DeckStore
	Ready() error
}
