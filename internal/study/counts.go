package study

import (
	"context"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
	"github.com/hpungsan/cram/internal/search"
)

// Counts is a snapshot of the scheduler counts for one base deck.
type Counts struct {
	DeckID string `json:"deck_id"`
	New    int    `json:"new"`
	Review int    `json:"review"`
	Marked int    `json:"marked"`
}

// ReadCounts queries s for the counts of base. Any scheduler failure is reported
// as SCHEDULER_UNAVAILABLE.
func ReadCounts(ctx context.Context, s Scheduler, base *deck.Deck) (Counts, error) {
	c := Counts{DeckID: base.ID}
	var err error

	if c.New, err = s.NewCount(ctx, base.ID); err != nil {
		return Counts{}, errors.NewSchedulerUnavailable(err)
	}
	if c.Review, err = s.ReviewCount(ctx, base.ID); err != nil {
		return Counts{}, errors.NewSchedulerUnavailable(err)
	}
	if c.Marked, err = s.MatchingCount(ctx, search.All(search.Deck(base.Name), search.Marked)); err != nil {
		return Counts{}, errors.NewSchedulerUnavailable(err)
	}
	return c, nil
}
