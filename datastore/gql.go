/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import (
	"strconv"
	"strings"

	"github.com/strandsoft/docstore/errors"
)

// GqlQuery is a textual query. It is parsed client-side into the same
// structured form a *Query resolves to, so both run through one pipeline.
//
// Supported grammar:
//
//	SELECT * | __key__ | prop[, prop...]
//	FROM kind
//	[WHERE prop op literal [AND ...]]
//	[ORDER BY prop [ASC|DESC][, ...]]
//	[LIMIT n] [OFFSET n]
//
// Literals are single-quoted strings, integers, floats, true, false, null,
// or @name placeholders bound via Bind.
type GqlQuery struct {
	query    string
	bindings map[string]any
}

// NewGqlQuery creates a textual query. Parsing is deferred until the query
// runs, so construction never fails.
func NewGqlQuery(query string) *GqlQuery {
	return &GqlQuery{query: query, bindings: make(map[string]any)}
}

// Bind sets the value for an @name placeholder and returns the query for
// chaining.
func (g *GqlQuery) Bind(name string, value any) *GqlQuery {
	g.bindings[name] = value
	return g
}

// QueryString returns the raw query text.
func (g *GqlQuery) QueryString() string { return g.query }

func (g *GqlQuery) resolve() (*Query, error) {
	p := &gqlParser{toks: tokenizeGql(g.query), bindings: g.bindings}
	q, err := p.parse()
	if err != nil {
		return nil, errors.Wrap(errors.InvalidArgument, "parsing gql query", err)
	}
	return q.resolve()
}

type gqlParser struct {
	toks     []string
	pos      int
	bindings map[string]any
}

func tokenizeGql(s string) []string {
	var toks []string
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == ',' || c == '*':
			toks = append(toks, string(c))
			i++
		case c == '\'':
			j := i + 1
			for j < len(s) && s[j] != '\'' {
				j++
			}
			if j < len(s) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		case c == '<' || c == '>':
			if i+1 < len(s) && s[i+1] == '=' {
				toks = append(toks, s[i:i+2])
				i += 2
			} else {
				toks = append(toks, string(c))
				i++
			}
		case c == '=':
			toks = append(toks, "=")
			i++
		default:
			j := i
			for j < len(s) && !strings.ContainsRune(" \t\n\r,=<>'", rune(s[j])) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		}
	}
	return toks
}

func (p *gqlParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *gqlParser) next() string {
	t := p.peek()
	if t != "" {
		p.pos++
	}
	return t
}

func (p *gqlParser) expectKeyword(kw string) error {
	if !strings.EqualFold(p.peek(), kw) {
		return errors.Newf(errors.InvalidArgument, "expected %s near %q", kw, p.peek())
	}
	p.pos++
	return nil
}

func (p *gqlParser) parse() (*Query, error) {
	if err := p.expectKeyword("select"); err != nil {
		return nil, err
	}
	var projection []string
	keysOnly := false
	switch {
	case p.peek() == "*":
		p.next()
	case strings.EqualFold(p.peek(), KeyProperty):
		p.next()
		keysOnly = true
	default:
		for {
			t := p.next()
			if t == "" || t == "," {
				return nil, errors.New(errors.InvalidArgument, "expected property name in select list")
			}
			projection = append(projection, t)
			if p.peek() != "," {
				break
			}
			p.next()
		}
	}
	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	kind := p.next()
	if kind == "" {
		return nil, errors.New(errors.InvalidArgument, "expected kind after FROM")
	}

	q := NewQuery(kind)
	if keysOnly {
		q = q.KeysOnly()
	}
	if len(projection) > 0 {
		q = q.Project(projection...)
	}

	if strings.EqualFold(p.peek(), "where") {
		p.next()
		for {
			prop := p.next()
			op := p.next()
			lit := p.next()
			if prop == "" || op == "" || lit == "" {
				return nil, errors.New(errors.InvalidArgument, "incomplete WHERE condition")
			}
			val, err := p.literal(lit)
			if err != nil {
				return nil, err
			}
			q = q.FilterField(prop, op, val)
			if !strings.EqualFold(p.peek(), "and") {
				break
			}
			p.next()
		}
	}

	if strings.EqualFold(p.peek(), "order") {
		p.next()
		if err := p.expectKeyword("by"); err != nil {
			return nil, err
		}
		for {
			prop := p.next()
			if prop == "" {
				return nil, errors.New(errors.InvalidArgument, "expected property after ORDER BY")
			}
			switch {
			case strings.EqualFold(p.peek(), "desc"):
				p.next()
				q = q.Order("-" + prop)
			case strings.EqualFold(p.peek(), "asc"):
				p.next()
				q = q.Order(prop)
			default:
				q = q.Order(prop)
			}
			if p.peek() != "," {
				break
			}
			p.next()
		}
	}

	if strings.EqualFold(p.peek(), "limit") {
		p.next()
		n, err := p.intToken("LIMIT")
		if err != nil {
			return nil, err
		}
		q = q.Limit(n)
	}
	if strings.EqualFold(p.peek(), "offset") {
		p.next()
		n, err := p.intToken("OFFSET")
		if err != nil {
			return nil, err
		}
		q = q.Offset(n)
	}
	if t := p.peek(); t != "" {
		return nil, errors.Newf(errors.InvalidArgument, "unexpected token %q", t)
	}
	return q, nil
}

func (p *gqlParser) intToken(clause string) (int, error) {
	t := p.next()
	n, err := strconv.Atoi(t)
	if err != nil || n < 0 {
		return 0, errors.Newf(errors.InvalidArgument, "invalid %s value %q", clause, t)
	}
	return n, nil
}

func (p *gqlParser) literal(tok string) (any, error) {
	switch {
	case strings.HasPrefix(tok, "'"):
		if !strings.HasSuffix(tok, "'") || len(tok) < 2 {
			return nil, errors.Newf(errors.InvalidArgument, "unterminated string literal %s", tok)
		}
		return tok[1 : len(tok)-1], nil
	case strings.HasPrefix(tok, "@"):
		v, ok := p.bindings[tok[1:]]
		if !ok {
			return nil, errors.Newf(errors.InvalidArgument, "unbound placeholder %s", tok)
		}
		return v, nil
	case strings.EqualFold(tok, "true"):
		return true, nil
	case strings.EqualFold(tok, "false"):
		return false, nil
	case strings.EqualFold(tok, "null"):
		return nil, nil
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f, nil
	}
	return nil, errors.Newf(errors.InvalidArgument, "invalid literal %q", tok)
}
