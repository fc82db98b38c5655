// Package search builds and compiles card search queries for filtered decks.
//
// Queries use the collection's search syntax: space-separated terms are ANDed,
// "or" joins alternatives, parentheses group, and a leading "-" negates.
package search

import (
	"fmt"
	"strings"
)

// Fixed terms used by the custom study options.
const (
	IsNew    = "is:new"
	IsDue    = "is:due"
	IsReview = "is:review"
	Marked   = "tag:marked"
)

// Deck returns a term matching cards in the named deck and its subdecks.
func Deck(name string) string {
	return `deck:"` + quote(name) + `"`
}

// Tag returns a term matching cards carrying tag.
func Tag(tag string) string {
	if strings.ContainsAny(tag, " \t()\"") {
		return `"tag:` + quote(tag) + `"`
	}
	return "tag:" + tag
}

// PropDue returns a term comparing a review card's due date, in days relative to
// today, against days.
func PropDue(op string, days int) string {
	return fmt.Sprintf("prop:due%s%d", op, days)
}

// Rated returns a term matching cards answered with ease in the last days days.
func Rated(days, ease int) string {
	return fmt.Sprintf("rated:%d:%d", days, ease)
}

// Added returns a term matching cards added in the last days days.
func Added(days int) string {
	return fmt.Sprintf("added:%d", days)
}

// All joins terms so that every one must match. Empty terms are skipped.
func All(terms ...string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Any joins terms so that at least one must match. Empty terms are skipped.
func Any(terms ...string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, " or ") + ")"
}

// quote escapes backslashes and double quotes for use inside a quoted term.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
