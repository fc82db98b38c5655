package search

import (
	"fmt"
	"strings"
)

// Node is a parsed search expression.
type Node interface {
	node()
}

// And matches when every child matches.
type And struct{ Nodes []Node }

// Or matches when any child matches.
type Or struct{ Nodes []Node }

// Not negates its child.
type Not struct{ Node Node }

// Term is a single "field:value" search term.
type Term struct {
	Field string
	Value string
}

func (And) node()  {}
func (Or) node()   {}
func (Not) node()  {}
func (Term) node() {}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokOpen
	tokClose
	tokNot
	tokAnd
	tokOr
)

type token struct {
	kind tokenKind
	text string
}

// Parse parses a search query into an expression tree.
// An empty query parses to an empty And, which matches every card.
func Parse(query string) (Node, error) {
	tokens, err := lex(query)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	if len(tokens) == 0 {
		return And{}, nil
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("unexpected %q at position %d", p.tokens[p.pos].text, p.pos)
	}
	return n, nil
}

// lex splits query into tokens. Quotes may wrap a whole term ("tag:a b") or only
// its value (deck:"a b"); backslash escapes the next character inside quotes.
func lex(query string) ([]token, error) {
	var tokens []token
	runes := []rune(query)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokOpen, text: "("})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokClose, text: ")"})
			i++
		case r == '-' && i+1 < len(runes) && (runes[i+1] == '(' || runes[i+1] == '-'):
			tokens = append(tokens, token{kind: tokNot, text: "-"})
			i++
		default:
			var b strings.Builder
			negated := false
			if r == '-' {
				negated = true
				i++
			}
			quoted := false
			inQuotes := false
			for i < len(runes) {
				c := runes[i]
				if inQuotes {
					switch c {
					case '\\':
						if i+1 >= len(runes) {
							return nil, fmt.Errorf("dangling escape at end of query")
						}
						b.WriteRune(runes[i+1])
						i += 2
						continue
					case '"':
						inQuotes = false
						i++
						continue
					}
					b.WriteRune(c)
					i++
					continue
				}
				if c == '"' {
					inQuotes = true
					quoted = true
					i++
					continue
				}
				if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == ')' {
					break
				}
				b.WriteRune(c)
				i++
			}
			if inQuotes {
				return nil, fmt.Errorf("unterminated quote")
			}
			text := b.String()
			if negated {
				tokens = append(tokens, token{kind: tokNot, text: "-"})
			}
			if !quoted && !negated {
				switch strings.ToLower(text) {
				case "and":
					tokens = append(tokens, token{kind: tokAnd, text: text})
					continue
				case "or":
					tokens = append(tokens, token{kind: tokOr, text: text})
					continue
				}
			}
			if text == "" {
				return nil, fmt.Errorf("empty search term")
			}
			tokens = append(tokens, token{kind: tokWord, text: text})
		}
	}
	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	nodes := []Node{first}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOr {
			break
		}
		p.pos++
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, next)
	}
	if len(nodes) == 1 {
		return first, nil
	}
	return Or{Nodes: nodes}, nil
}

func (p *parser) parseAnd() (Node, error) {
	var nodes []Node
	for {
		tok, ok := p.peek()
		if !ok || tok.kind == tokClose || tok.kind == tokOr {
			break
		}
		if tok.kind == tokAnd {
			if len(nodes) == 0 {
				return nil, fmt.Errorf("%q without a left operand", tok.text)
			}
			p.pos++
			continue
		}
		n, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	switch len(nodes) {
	case 0:
		return nil, fmt.Errorf("expected a search term")
	case 1:
		return nodes[0], nil
	}
	return And{Nodes: nodes}, nil
}

func (p *parser) parseUnary() (Node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of query")
	}
	switch tok.kind {
	case tokNot:
		p.pos++
		n, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{Node: n}, nil
	case tokOpen:
		p.pos++
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokClose {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return n, nil
	case tokWord:
		p.pos++
		field, value, found := strings.Cut(tok.text, ":")
		if !found || field == "" {
			return nil, fmt.Errorf("unsupported search term %q: expected field:value", tok.text)
		}
		return Term{Field: strings.ToLower(field), Value: value}, nil
	}
	return nil, fmt.Errorf("unexpected %q", tok.text)
}
