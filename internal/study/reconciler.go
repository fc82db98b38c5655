package study

import (
	"context"

	"github.com/hpungsan/cram/internal/config"
	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
)

// CounterPolicy decides whether an existing session keeps its per-day counters.
type CounterPolicy string

const (
	ResetOnChange CounterPolicy = config.CounterResetOnChange
	AlwaysReset   CounterPolicy = config.CounterAlwaysReset
	Preserve      CounterPolicy = config.CounterPreserve
)

// Committed is a session configuration as written to the collection.
type Committed struct {
	ID     string         `json:"id"`
	Option Option         `json:"option"`
	Config *deck.Filtered `json:"config"`
	// Created is true when no session existed before the commit.
	Created bool `json:"created"`
	// CountersReset is true when the per-day counters start from zero.
	CountersReset bool `json:"counters_reset"`
}

// Reconciler merges a freshly built configuration into the existing session,
// if any, and writes the result.
type Reconciler struct {
	store  DeckStore
	policy CounterPolicy
}

// NewReconciler returns a Reconciler writing through store. An empty policy
// means ResetOnChange.
func NewReconciler(store DeckStore, policy CounterPolicy) *Reconciler {
	if policy == "" {
		policy = ResetOnChange
	}
	return &Reconciler{store: store, policy: policy}
}

// Commit writes cfg as the custom study session. When existing is the current
// session, its id and display flags are kept and its counters follow the
// reconciler's policy. cfg is not modified.
func (r *Reconciler) Commit(ctx context.Context, cfg *deck.Filtered, existing *deck.Filtered) (*Committed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	rec := cfg.Clone()
	rec.Name = deck.CustomStudyName
	rec.USN = deck.UnsyncedUSN
	rec.ResetCounters()
	out := &Committed{Option: Option(rec.Option), Created: true, CountersReset: true}

	if existing != nil {
		if existing.Dyn != 1 || deck.Normalize(existing.Name) != deck.Normalize(deck.CustomStudyName) {
			return nil, errors.NewSessionConflict(existing.Name)
		}
		rec.ID = existing.ID
		rec.BrowserCollapsed = existing.BrowserCollapsed
		rec.Collapsed = existing.Collapsed
		out.Created = false

		if r.keepCounters(existing.Option, rec.Option) {
			rec.NewToday = existing.NewToday
			rec.RevToday = existing.RevToday
			rec.LrnToday = existing.LrnToday
			rec.TimeToday = existing.TimeToday
			out.CountersReset = false
		}
	} else {
		rec.ID = ""
	}

	id, err := r.store.Save(ctx, rec)
	if err != nil {
		return nil, errors.NewCommitFailed(err)
	}
	rec.ID = id
	out.ID = id
	out.Config = rec
	return out, nil
}

func (r *Reconciler) keepCounters(prev, next string) bool {
	switch r.policy {
	case Preserve:
		return true
	case AlwaysReset:
		return false
	}
	return prev != "" && prev == next
}
