package study

import (
	"fmt"
	"strings"

	"github.com/hpungsan/cram/internal/config"
	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
)

// Params are the user-supplied parameters of an option. A nil Value selects the
// option's default.
type Params struct {
	// Value is the count or day window for positive_int options and the card
	// limit for review_by_tag.
	Value *int `json:"value,omitempty"`
	// Tags is the tag set for review_by_tag.
	Tags []string `json:"tags,omitempty"`
	// Preview overrides the configured preview timing for preview_new.
	Preview *deck.Preview `json:"preview,omitempty"`
}

// Int returns a pointer to v, for filling Params.Value.
func Int(v int) *int { return &v }

// Defaults are the values applied when parameters are omitted.
type Defaults struct {
	ExtendNew     int
	ExtendReview  int
	AheadDays     int
	ForgottenDays int
	PreviewDays   int
	TagLimit      int
	// Preview is the timing written for preview_new sessions.
	Preview deck.Preview
}

// DefaultsFromConfig reads option defaults from cfg.
func DefaultsFromConfig(cfg *config.Config) Defaults {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return Defaults{
		ExtendNew:     cfg.ExtendNewDefault,
		ExtendReview:  cfg.ExtendReviewDefault,
		AheadDays:     cfg.AheadDaysDefault,
		ForgottenDays: cfg.ForgottenDaysDefault,
		PreviewDays:   cfg.PreviewDaysDefault,
		TagLimit:      cfg.TagLimitDefault,
		Preview: deck.Preview{
			Delay:     cfg.PreviewDelay,
			AgainSecs: cfg.PreviewAgainSecs,
			HardSecs:  cfg.PreviewHardSecs,
			GoodSecs:  cfg.PreviewGoodSecs,
		},
	}
}

// resolved holds validated parameters with defaults applied.
type resolved struct {
	value   int
	tags    []string
	preview deck.Preview
}

// resolve validates p against the shape of o and fills in defaults. It never
// touches the collection.
func resolve(o Option, p Params, d Defaults) (resolved, error) {
	def, ok := lookup(o)
	if !ok {
		return resolved{}, errors.NewUnknownOption(string(o))
	}
	name := string(o)
	var r resolved

	switch def.shape {
	case ShapeNone:
		if p.Value != nil || len(p.Tags) > 0 {
			return r, errors.NewInvalidParameter(name, "takes no parameter")
		}
	case ShapePositiveInt:
		if len(p.Tags) > 0 {
			return r, errors.NewInvalidParameter(name, "does not take tags")
		}
	case ShapeTagSet:
		tags, err := validateTags(name, p.Tags)
		if err != nil {
			return r, err
		}
		r.tags = tags
	}

	if def.shape != ShapeNone {
		r.value = def.fallback(d)
		if p.Value != nil {
			r.value = *p.Value
		}
		if r.value < 1 {
			return r, errors.NewInvalidParameter(name, fmt.Sprintf("value must be a positive integer, got %d", r.value))
		}
		if def.max > 0 && r.value > def.max {
			return r, errors.NewInvalidParameter(name, fmt.Sprintf("value must be at most %d, got %d", def.max, r.value))
		}
	}

	if p.Preview != nil && o != PreviewNew {
		return r, errors.NewInvalidParameter(name, "preview timing applies only to preview_new")
	}
	if o == PreviewNew {
		r.preview = d.Preview
		if p.Preview != nil {
			pv := *p.Preview
			if pv.Delay < 0 || pv.AgainSecs < 0 || pv.HardSecs < 0 || pv.GoodSecs < 0 {
				return r, errors.NewInvalidParameter(name, "preview timing must not be negative")
			}
			r.preview = pv
		}
	}

	return r, nil
}

func validateTags(option string, tags []string) ([]string, error) {
	for _, t := range tags {
		if strings.ContainsAny(strings.TrimSpace(t), " \t\r\n\"") {
			return nil, errors.NewInvalidParameter(option, fmt.Sprintf("tag %q must not contain whitespace or quotes", t))
		}
	}
	norm := deck.NormalizeTags(tags)
	if len(norm) == 0 {
		return nil, errors.NewInvalidParameter(option, "at least one tag is required")
	}
	return norm, nil
}
