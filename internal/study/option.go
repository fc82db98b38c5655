// Package study turns a custom study choice into the configuration of the
// collection's single custom study session deck.
package study

import (
	"strings"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
	"github.com/hpungsan/cram/internal/search"
)

// Option is a custom study option.
type Option string

const (
	ExtendNew       Option = "extend_new"
	ExtendReview    Option = "extend_review"
	ReviewForgotten Option = "review_forgotten"
	StudyAhead      Option = "study_ahead"
	PreviewNew      Option = "preview_new"
	ReviewByTag     Option = "review_by_tag"
	ReviewMarked    Option = "review_marked"
)

// Shape is the kind of parameter an option accepts.
type Shape string

const (
	ShapeNone        Shape = "none"
	ShapePositiveInt Shape = "positive_int"
	ShapeTagSet      Shape = "tag_set"
)

// Upper bounds for option parameters.
const (
	MaxExtend    = 9999
	MaxAheadDays = 9999
)

// optionDef is one catalog row: everything that differs between options.
type optionDef struct {
	option  Option
	label   string
	help    string
	shape   Shape
	max     int
	resched bool
	// extend options report NOTHING_TO_EXTEND rather than OPTION_UNAVAILABLE.
	extend   bool
	visible  func(Counts) bool
	fallback func(Defaults) int
	term     func(scope string, p resolved) deck.Term
}

func always(Counts) bool { return true }

// catalog lists every option in display priority order.
var catalog = []optionDef{
	{
		option:   ExtendNew,
		label:    "Increase today's new card limit",
		help:     "Adds up to **N** more *new* cards from this deck to today's study.",
		shape:    ShapePositiveInt,
		max:      MaxExtend,
		resched:  true,
		extend:   true,
		visible:  func(c Counts) bool { return c.New > 0 },
		fallback: func(d Defaults) int { return d.ExtendNew },
		term: func(scope string, p resolved) deck.Term {
			return deck.Term{Query: search.All(scope, search.IsNew), Limit: p.value, Order: deck.OrderAdded}
		},
	},
	{
		option:   ExtendReview,
		label:    "Increase today's review card limit",
		help:     "Adds up to **N** more cards that are *due for review* today.",
		shape:    ShapePositiveInt,
		max:      MaxExtend,
		resched:  true,
		extend:   true,
		visible:  func(c Counts) bool { return c.Review > 0 },
		fallback: func(d Defaults) int { return d.ExtendReview },
		term: func(scope string, p resolved) deck.Term {
			return deck.Term{Query: search.All(scope, search.IsDue), Limit: p.value, Order: deck.OrderDue}
		},
	},
	{
		option:   ReviewForgotten,
		label:    "Review forgotten cards",
		help:     "Cards you answered **Again** in the last *N* days, in random order.",
		shape:    ShapePositiveInt,
		max:      search.MaxRatedDays,
		resched:  true,
		visible:  always,
		fallback: func(d Defaults) int { return d.ForgottenDays },
		term: func(scope string, p resolved) deck.Term {
			return deck.Term{Query: search.All(scope, search.Rated(p.value, 1)), Limit: deck.MaxSize, Order: deck.OrderRandom}
		},
	},
	{
		option:   StudyAhead,
		label:    "Review ahead",
		help:     "Review cards that become due in the next *N* days.",
		shape:    ShapePositiveInt,
		max:      MaxAheadDays,
		resched:  true,
		visible:  always,
		fallback: func(d Defaults) int { return d.AheadDays },
		term: func(scope string, p resolved) deck.Term {
			return deck.Term{Query: search.All(scope, search.PropDue("<=", p.value)), Limit: deck.MaxSize, Order: deck.OrderDue}
		},
	},
	{
		option:   PreviewNew,
		label:    "Preview new cards",
		help:     "Look at cards added in the last *N* days **without** changing their schedule.",
		shape:    ShapePositiveInt,
		max:      search.MaxAddedDays,
		resched:  false,
		visible:  func(c Counts) bool { return c.New > 0 },
		fallback: func(d Defaults) int { return d.PreviewDays },
		term: func(scope string, p resolved) deck.Term {
			return deck.Term{Query: search.All(scope, search.IsNew, search.Added(p.value)), Limit: deck.MaxSize, Order: deck.OrderOldestSeen}
		},
	},
	{
		option:   ReviewByTag,
		label:    "Study by tag",
		help:     "Cards carrying **any** of the chosen tags, at most *N* of them, in random order.",
		shape:    ShapeTagSet,
		max:      deck.MaxSize,
		resched:  true,
		visible:  always,
		fallback: func(d Defaults) int { return d.TagLimit },
		term: func(scope string, p resolved) deck.Term {
			tags := make([]string, len(p.tags))
			for i, t := range p.tags {
				tags[i] = search.Tag(t)
			}
			return deck.Term{Query: search.All(scope, search.Any(tags...)), Limit: p.value, Order: deck.OrderRandom}
		},
	},
	{
		option:  ReviewMarked,
		label:   "Review marked cards",
		help:    "Every card tagged `marked`, in due order.",
		shape:   ShapeNone,
		resched: true,
		visible: func(c Counts) bool { return c.Marked > 0 },
		term: func(scope string, _ resolved) deck.Term {
			return deck.Term{Query: search.All(scope, search.Marked), Limit: deck.MaxSize, Order: deck.OrderDue}
		},
	},
}

func lookup(o Option) (*optionDef, bool) {
	for i := range catalog {
		if catalog[i].option == o {
			return &catalog[i], true
		}
	}
	return nil, false
}

// Catalog returns every option in priority order.
func Catalog() []Option {
	opts := make([]Option, len(catalog))
	for i, def := range catalog {
		opts[i] = def.option
	}
	return opts
}

// ParseOption parses an option name. Matching ignores case and surrounding space.
func ParseOption(s string) (Option, error) {
	o := Option(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := lookup(o); !ok {
		return "", errors.NewUnknownOption(s)
	}
	return o, nil
}

// Valid reports whether o is in the catalog.
func (o Option) Valid() bool {
	_, ok := lookup(o)
	return ok
}

func (o Option) String() string { return string(o) }

// Label is the short display name of o.
func (o Option) Label() string {
	if def, ok := lookup(o); ok {
		return def.label
	}
	return string(o)
}

// Help is a one-line markdown description of o.
func (o Option) Help() string {
	if def, ok := lookup(o); ok {
		return def.help
	}
	return ""
}

// Shape is the parameter shape o accepts.
func (o Option) Shape() Shape {
	if def, ok := lookup(o); ok {
		return def.shape
	}
	return ShapeNone
}

// Max is the largest value o accepts, or 0 when o takes no value.
func (o Option) Max() int {
	if def, ok := lookup(o); ok {
		return def.max
	}
	return 0
}

// Default is the value used when a parameter is omitted, or 0 when o takes none.
func (o Option) Default(d Defaults) int {
	if def, ok := lookup(o); ok && def.fallback != nil {
		return def.fallback(d)
	}
	return 0
}

// Resched reports whether sessions built from o reschedule cards normally.
func (o Option) Resched() bool {
	if def, ok := lookup(o); ok {
		return def.resched
	}
	return false
}
