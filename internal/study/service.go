package study

import (
	"context"
	"fmt"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
)

// OptionSet is the gate result for one base deck.
type OptionSet struct {
	Deck    *deck.Deck `json:"deck"`
	Counts  Counts     `json:"counts"`
	Options []Option   `json:"options"`
}

// Service is the entry point for listing and submitting custom study options.
// Every call that reads counts or writes the session holds the collection lock
// for its whole duration.
type Service struct {
	coll       Collection
	builder    *Builder
	reconciler *Reconciler
}

// NewService returns a Service over coll.
func NewService(coll Collection, builder *Builder, policy CounterPolicy) *Service {
	if builder == nil {
		builder = NewBuilder(DefaultsFromConfig(nil))
	}
	return &Service{
		coll:       coll,
		builder:    builder,
		reconciler: NewReconciler(coll, policy),
	}
}

// Builder returns the builder the service uses.
func (s *Service) Builder() *Builder {
	return s.builder
}

// ready guards every call: without a ready collection nothing is queried.
func (s *Service) ready() error {
	if s == nil || s.coll == nil {
		return errors.NewSchedulerUnavailable(fmt.Errorf("collection not loaded"))
	}
	if err := s.coll.Ready(); err != nil {
		return errors.NewSchedulerUnavailable(err)
	}
	return nil
}

// ListVisibleOptions returns the options offered for deckID, in priority order.
func (s *Service) ListVisibleOptions(ctx context.Context, deckID string) ([]Option, error) {
	set, err := s.Options(ctx, deckID)
	if err != nil {
		return nil, err
	}
	return set.Options, nil
}

// Options returns the visible options for deckID together with the counts that
// decided them.
func (s *Service) Options(ctx context.Context, deckID string) (*OptionSet, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.coll.Lock()
	defer s.coll.Unlock()

	base, counts, err := s.gateInputs(ctx, deckID)
	if err != nil {
		return nil, err
	}
	return &OptionSet{Deck: base, Counts: counts, Options: VisibleOptions(base.ID, counts)}, nil
}

// Submit builds the session for o and commits it. Parameters are validated
// before the lock is taken; the gate check and the commit run under one
// acquisition.
func (s *Service) Submit(ctx context.Context, o Option, p Params, deckID string) (*Committed, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.builder.Validate(o, p); err != nil {
		return nil, err
	}

	s.coll.Lock()
	defer s.coll.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	base, counts, err := s.gateInputs(ctx, deckID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.builder.BuildChecked(o, p, base, counts)
	if err != nil {
		return nil, err
	}

	existing, err := s.coll.FindDeckByName(ctx, deck.CustomStudyName)
	if err != nil {
		return nil, passOrUnavailable(err)
	}

	return s.reconciler.Commit(ctx, cfg, existing)
}

// Session returns the current custom study session, or nil when there is none.
func (s *Service) Session(ctx context.Context) (*deck.Filtered, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.coll.Lock()
	defer s.coll.Unlock()

	f, err := s.coll.FindDeckByName(ctx, deck.CustomStudyName)
	if err != nil {
		return nil, passOrUnavailable(err)
	}
	return f, nil
}

// gateInputs resolves the base deck and reads its counts. The caller holds the lock.
func (s *Service) gateInputs(ctx context.Context, deckID string) (*deck.Deck, Counts, error) {
	if deckID == "" {
		return nil, Counts{}, errors.NewInvalidRequest("deck id is required")
	}
	base, err := s.coll.Deck(ctx, deckID)
	if err != nil {
		return nil, Counts{}, passOrUnavailable(err)
	}
	if base.Dyn {
		return nil, Counts{}, errors.NewInvalidRequest(fmt.Sprintf("deck %q is a filtered deck", base.Name))
	}
	counts, err := ReadCounts(ctx, s.coll, base)
	if err != nil {
		return nil, Counts{}, err
	}
	return base, counts, nil
}

// passOrUnavailable keeps errors that describe the request and reports every
// other failure as SCHEDULER_UNAVAILABLE.
func passOrUnavailable(err error) error {
	if errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrSessionConflict) {
		return err
	}
	return errors.NewSchedulerUnavailable(err)
}
