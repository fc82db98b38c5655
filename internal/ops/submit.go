package ops

import (
	"context"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/study"
)

// SubmitInput contains parameters for the Submit operation.
type SubmitInput struct {
	DeckID  string        // deck id, or
	Deck    string        // deck name
	Option  string        // required
	Value   *int          // optional, option default when nil
	Tags    []string      // review_by_tag only
	Preview *deck.Preview // preview_new only
}

// SubmitOutput contains the result of the Submit operation.
type SubmitOutput struct {
	ID            string         `json:"id"`
	Option        study.Option   `json:"option"`
	Created       bool           `json:"created"`
	CountersReset bool           `json:"counters_reset"`
	Config        *deck.Filtered `json:"config"`
}

// Submit builds the custom study session for the chosen option and commits it.
func Submit(ctx context.Context, rt *Runtime, input SubmitInput) (*SubmitOutput, error) {
	o, err := study.ParseOption(input.Option)
	if err != nil {
		return nil, err
	}

	deckID, err := resolveDeckID(ctx, rt, input.DeckID, input.Deck)
	if err != nil {
		return nil, err
	}

	params := study.Params{
		Value:   input.Value,
		Tags:    input.Tags,
		Preview: input.Preview,
	}
	committed, err := rt.Study.Submit(ctx, o, params, deckID)
	if err != nil {
		return nil, err
	}

	return &SubmitOutput{
		ID:            committed.ID,
		Option:        committed.Option,
		Created:       committed.Created,
		CountersReset: committed.CountersReset,
		Config:        committed.Config,
	}, nil
}
