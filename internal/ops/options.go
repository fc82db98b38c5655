package ops

import (
	"context"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/study"
)

// ListOptionsInput contains parameters for the ListOptions operation.
type ListOptionsInput struct {
	DeckID string // deck id, or
	Deck   string // deck name
}

// OptionInfo describes one offered option and its parameter.
type OptionInfo struct {
	Option  study.Option `json:"option"`
	Label   string       `json:"label"`
	Help    string       `json:"help"`
	Shape   study.Shape  `json:"shape"`
	Default int          `json:"default,omitempty"`
	Max     int          `json:"max,omitempty"`
}

// ListOptionsOutput contains the result of the ListOptions operation.
type ListOptionsOutput struct {
	Deck    deck.Deck    `json:"deck"`
	Counts  study.Counts `json:"counts"`
	Options []OptionInfo `json:"options"`
}

// ListOptions returns the study options offered for a deck, in priority order.
func ListOptions(ctx context.Context, rt *Runtime, input ListOptionsInput) (*ListOptionsOutput, error) {
	deckID, err := resolveDeckID(ctx, rt, input.DeckID, input.Deck)
	if err != nil {
		return nil, err
	}

	set, err := rt.Study.Options(ctx, deckID)
	if err != nil {
		return nil, err
	}

	defaults := rt.Study.Builder().Defaults()
	infos := make([]OptionInfo, 0, len(set.Options))
	for _, o := range set.Options {
		infos = append(infos, DescribeOption(o, defaults))
	}

	return &ListOptionsOutput{
		Deck:    *set.Deck,
		Counts:  set.Counts,
		Options: infos,
	}, nil
}

// DescribeOption returns the display metadata of o.
func DescribeOption(o study.Option, defaults study.Defaults) OptionInfo {
	return OptionInfo{
		Option:  o,
		Label:   o.Label(),
		Help:    o.Help(),
		Shape:   o.Shape(),
		Default: o.Default(defaults),
		Max:     o.Max(),
	}
}
