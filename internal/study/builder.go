package study

import (
	"fmt"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
	"github.com/hpungsan/cram/internal/search"
)

// Builder turns an option and its parameters into a session configuration.
// It is pure: it reads nothing but its arguments.
type Builder struct {
	defaults Defaults
}

// NewBuilder returns a Builder that fills omitted parameters from d.
func NewBuilder(d Defaults) *Builder {
	return &Builder{defaults: d}
}

// Defaults returns the defaults the builder applies.
func (b *Builder) Defaults() Defaults {
	return b.defaults
}

// Validate checks p against the parameter shape of o.
func (b *Builder) Validate(o Option, p Params) error {
	_, err := resolve(o, p, b.defaults)
	return err
}

// Build returns the session configuration for o drawing from base. The result
// has no id; the reconciler assigns one.
func (b *Builder) Build(o Option, p Params, base *deck.Deck) (*deck.Filtered, error) {
	r, err := resolve(o, p, b.defaults)
	if err != nil {
		return nil, err
	}
	return b.build(o, r, base)
}

// BuildChecked is Build preceded by the gate: an option that counts says is not
// offered for base fails with NOTHING_TO_EXTEND or OPTION_UNAVAILABLE.
func (b *Builder) BuildChecked(o Option, p Params, base *deck.Deck, counts Counts) (*deck.Filtered, error) {
	r, err := resolve(o, p, b.defaults)
	if err != nil {
		return nil, err
	}
	if err := checkEligible(o, base, counts); err != nil {
		return nil, err
	}
	return b.build(o, r, base)
}

func checkEligible(o Option, base *deck.Deck, counts Counts) error {
	if base == nil {
		return errors.NewInvalidRequest("base deck is required")
	}
	if IsVisible(o, base.ID, counts) {
		return nil
	}
	if def, ok := lookup(o); ok && def.extend {
		return errors.NewNothingToExtend(string(o), base.ID)
	}
	return errors.NewOptionUnavailable(string(o), base.ID)
}

func (b *Builder) build(o Option, r resolved, base *deck.Deck) (*deck.Filtered, error) {
	if base == nil {
		return nil, errors.NewInvalidRequest("base deck is required")
	}
	if base.Dyn {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("deck %q is a filtered deck and cannot be studied from", base.Name))
	}
	def, _ := lookup(o)

	cfg := deck.NewFiltered()
	cfg.Terms = []deck.Term{def.term(search.Deck(base.Name), r)}
	cfg.Resched = def.resched
	if o == PreviewNew {
		cfg.Preview = r.preview
	}
	cfg.Option = string(o)
	return cfg, nil
}
