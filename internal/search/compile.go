package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
)

const secondsPerDay = 86400

// Limits on relative-day searches.
const (
	MaxRatedDays = 365
	MaxAddedDays = 36500
)

// Env carries the collection state a query is evaluated against.
type Env struct {
	// Today is the collection's current day index.
	Today int
	// DayCutoff is the Unix time at which Today ends.
	DayCutoff int64
}

// Compile parses query and translates it into a SQL predicate over the cards
// table aliased as "c". The returned args bind the predicate's placeholders in order.
func Compile(query string, env Env) (string, []any, error) {
	n, err := Parse(query)
	if err != nil {
		return "", nil, errors.NewInvalidRequest(fmt.Sprintf("invalid search %q: %v", query, err))
	}
	c := &compiler{env: env}
	if err := c.emit(n); err != nil {
		return "", nil, errors.NewInvalidRequest(fmt.Sprintf("invalid search %q: %v", query, err))
	}
	return c.sql.String(), c.args, nil
}

type compiler struct {
	env  Env
	sql  strings.Builder
	args []any
}

func (c *compiler) emit(n Node) error {
	switch n := n.(type) {
	case And:
		if len(n.Nodes) == 0 {
			c.sql.WriteString("1=1")
			return nil
		}
		return c.join(n.Nodes, " AND ")
	case Or:
		return c.join(n.Nodes, " OR ")
	case Not:
		c.sql.WriteString("NOT ")
		c.sql.WriteString("(")
		if err := c.emit(n.Node); err != nil {
			return err
		}
		c.sql.WriteString(")")
		return nil
	case Term:
		return c.term(n)
	}
	return fmt.Errorf("unknown node %T", n)
}

func (c *compiler) join(nodes []Node, sep string) error {
	c.sql.WriteString("(")
	for i, child := range nodes {
		if i > 0 {
			c.sql.WriteString(sep)
		}
		if err := c.emit(child); err != nil {
			return err
		}
	}
	c.sql.WriteString(")")
	return nil
}

func (c *compiler) write(fragment string, args ...any) {
	c.sql.WriteString(fragment)
	c.args = append(c.args, args...)
}

func (c *compiler) term(t Term) error {
	switch t.Field {
	case "deck":
		return c.deck(t.Value)
	case "tag":
		return c.tag(t.Value)
	case "is":
		return c.is(t.Value)
	case "prop":
		return c.prop(t.Value)
	case "rated":
		return c.rated(t.Value)
	case "added":
		return c.added(t.Value)
	}
	return fmt.Errorf("unsupported field %q", t.Field)
}

func (c *compiler) deck(name string) error {
	norm := deck.Normalize(name)
	if norm == "" {
		return fmt.Errorf("deck: name is required")
	}
	// Names match literally, so a deck called "*" scopes to its own cards.
	c.write(`c.deck_id IN (SELECT id FROM decks WHERE name_norm = ? OR name_norm LIKE ? ESCAPE '\')`,
		norm, escapeLike(norm)+"::%")
	return nil
}

func (c *compiler) tag(tag string) error {
	norm := deck.Normalize(tag)
	if norm == "" {
		return fmt.Errorf("tag: value is required")
	}
	pattern := strings.ReplaceAll(escapeLike(norm), "*", "%")
	// Untagged cards pad to "  ", which "% % %" would match.
	c.write(`(c.tags != '' AND (' ' || c.tags || ' ') LIKE ? ESCAPE '\')`, "% "+pattern+" %")
	return nil
}

func (c *compiler) is(value string) error {
	switch strings.ToLower(value) {
	case "new":
		c.write("c.queue = 0")
	case "learn":
		c.write("c.queue IN (1, 3)")
	case "review":
		c.write("c.queue IN (2, 3)")
	case "due":
		c.write("(c.queue IN (1, 2, 3) AND c.due <= ?)", c.env.Today)
	case "suspended":
		c.write("c.queue = -1")
	default:
		return fmt.Errorf("unsupported is:%s", value)
	}
	return nil
}

var propOperators = []string{"<=", ">=", "!=", "<", ">", "="}

func (c *compiler) prop(value string) error {
	for _, op := range propOperators {
		key, num, found := strings.Cut(value, op)
		if !found {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return fmt.Errorf("prop:%s: %q is not an integer", key, num)
		}
		sqlOp := op
		if op == "=" {
			sqlOp = "=="
		}
		switch strings.ToLower(key) {
		case "due":
			c.write(fmt.Sprintf("(c.queue IN (2, 3) AND (c.due - ?) %s ?)", sqlOp), c.env.Today, n)
		case "ivl":
			c.write(fmt.Sprintf("(c.queue IN (2, 3) AND c.ivl %s ?)", sqlOp), n)
		case "lapses":
			c.write(fmt.Sprintf("c.lapses %s ?", sqlOp), n)
		default:
			return fmt.Errorf("unsupported prop:%s", key)
		}
		return nil
	}
	return fmt.Errorf("prop:%s: missing comparison operator", value)
}

func (c *compiler) rated(value string) error {
	daysStr, easeStr, hasEase := strings.Cut(value, ":")
	days, err := strconv.Atoi(daysStr)
	if err != nil || days < 1 || days > MaxRatedDays {
		return fmt.Errorf("rated: days must be between 1 and %d", MaxRatedDays)
	}
	cutoff := c.env.DayCutoff - int64(days)*secondsPerDay
	if !hasEase {
		c.write("EXISTS (SELECT 1 FROM revlog r WHERE r.card_id = c.id AND r.reviewed_at >= ?)", cutoff)
		return nil
	}
	ease, err := strconv.Atoi(easeStr)
	if err != nil || ease < 1 || ease > 4 {
		return fmt.Errorf("rated: ease must be between 1 and 4")
	}
	c.write("EXISTS (SELECT 1 FROM revlog r WHERE r.card_id = c.id AND r.reviewed_at >= ? AND r.ease = ?)", cutoff, ease)
	return nil
}

func (c *compiler) added(value string) error {
	days, err := strconv.Atoi(value)
	if err != nil || days < 1 || days > MaxAddedDays {
		return fmt.Errorf("added: days must be between 1 and %d", MaxAddedDays)
	}
	c.write("c.added_at >= ?", c.env.DayCutoff-int64(days)*secondsPerDay)
	return nil
}

// escapeLike escapes LIKE wildcards so s matches literally with ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
