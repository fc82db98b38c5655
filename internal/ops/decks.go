package ops

import (
	"context"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
)

// ListDecksInput contains parameters for the ListDecks operation.
type ListDecksInput struct {
	IncludeFiltered bool
}

// ListDecksOutput contains the result of the ListDecks operation.
type ListDecksOutput struct {
	Items []deck.Deck `json:"items"`
	Total int         `json:"total"`
}

// ListDecks lists decks ordered by name. Filtered decks are left out unless requested.
func ListDecks(ctx context.Context, rt *Runtime, input ListDecksInput) (*ListDecksOutput, error) {
	all, err := rt.Coll.Decks(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]deck.Deck, 0, len(all))
	for _, d := range all {
		if d.Dyn && !input.IncludeFiltered {
			continue
		}
		items = append(items, d)
	}

	return &ListDecksOutput{Items: items, Total: len(items)}, nil
}

// CreateDeckInput contains parameters for the CreateDeck operation.
type CreateDeckInput struct {
	Name string // required
}

// CreateDeckOutput contains the result of the CreateDeck operation.
type CreateDeckOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateDeck adds a regular deck.
func CreateDeck(ctx context.Context, rt *Runtime, input CreateDeckInput) (*CreateDeckOutput, error) {
	if deck.Normalize(input.Name) == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}

	d, err := rt.Coll.CreateDeck(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	return &CreateDeckOutput{ID: d.ID, Name: d.Name}, nil
}
