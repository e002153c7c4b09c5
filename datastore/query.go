/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/strandsoft/docstore/errors"
)

// ResultType identifies the row shape a query yields.
type ResultType int

const (
	// ResultFull yields *Entity rows.
	ResultFull ResultType = iota + 1
	// ResultKeyOnly yields *Key rows.
	ResultKeyOnly
	// ResultProjection yields *ProjectionEntity rows.
	ResultProjection
)

func (t ResultType) String() string {
	switch t {
	case ResultFull:
		return "full"
	case ResultKeyOnly:
		return "key-only"
	case ResultProjection:
		return "projection"
	}
	return "unknown"
}

// KeyProperty is the pseudo-property naming an entity's key in orderings
// and projections.
const KeyProperty = "__key__"

// Filter is a single property predicate.
type Filter struct {
	Property string
	Op       string // one of =, <, <=, >, >=
	Value    Value
}

// Order is a single sort directive. Property may be KeyProperty.
type Order struct {
	Property   string
	Descending bool
}

// Queryable is either a structured *Query or a textual *GqlQuery.
type Queryable interface {
	resolve() (*Query, error)
}

// Query is a structured query descriptor. Methods derive modified copies,
// so a query value can be shared and extended safely.
type Query struct {
	kind       string
	namespace  string
	ancestor   *Key
	filters    []Filter
	orders     []Order
	projection []string
	groupBy    []string
	limit      int
	offset     int
	keysOnly   bool
	err        error
}

// NewQuery creates a query over the given kind.
func NewQuery(kind string) *Query {
	return &Query{kind: kind, limit: -1}
}

func (q *Query) clone() *Query {
	c := *q
	c.filters = append([]Filter(nil), q.filters...)
	c.orders = append([]Order(nil), q.orders...)
	c.projection = append([]string(nil), q.projection...)
	c.groupBy = append([]string(nil), q.groupBy...)
	return &c
}

// Namespace restricts the query to a namespace other than the client's.
func (q *Query) Namespace(ns string) *Query {
	c := q.clone()
	c.namespace = ns
	return c
}

// FilterField adds a property predicate. Supported ops: =, <, <=, >, >=.
func (q *Query) FilterField(property, op string, value any) *Query {
	c := q.clone()
	switch op {
	case "=", "<", "<=", ">", ">=":
	default:
		c.err = errors.Newf(errors.InvalidArgument, "invalid filter operator %q", op)
		return c
	}
	v, err := wrapValue(value)
	if err != nil {
		c.err = err
		return c
	}
	c.filters = append(c.filters, Filter{Property: property, Op: op, Value: v})
	return c
}

// Ancestor restricts results to entities under the given key.
func (q *Query) Ancestor(key *Key) *Query {
	c := q.clone()
	c.ancestor = key
	return c
}

// Order adds a sort directive; prefix the property with '-' for descending.
func (q *Query) Order(property string) *Query {
	c := q.clone()
	o := Order{Property: property}
	if strings.HasPrefix(property, "-") {
		o = Order{Property: property[1:], Descending: true}
	}
	c.orders = append(c.orders, o)
	return c
}

// Project restricts result rows to the named properties.
func (q *Query) Project(properties ...string) *Query {
	c := q.clone()
	c.projection = append(c.projection, properties...)
	return c
}

// GroupBy keeps the first row per distinct combination of the named
// properties; non-grouped projected properties read from that first row.
func (q *Query) GroupBy(properties ...string) *Query {
	c := q.clone()
	c.groupBy = append(c.groupBy, properties...)
	return c
}

// KeysOnly makes the query yield keys instead of entities.
func (q *Query) KeysOnly() *Query {
	c := q.clone()
	c.keysOnly = true
	return c
}

// Limit caps the number of rows; negative means no limit.
func (q *Query) Limit(limit int) *Query {
	c := q.clone()
	c.limit = limit
	return c
}

// Offset skips the first rows of the result.
func (q *Query) Offset(offset int) *Query {
	c := q.clone()
	c.offset = offset
	return c
}

// ResultType reports the row shape this query yields.
func (q *Query) ResultType() ResultType {
	switch {
	case q.keysOnly:
		return ResultKeyOnly
	case len(q.projection) > 0:
		return ResultProjection
	default:
		return ResultFull
	}
}

func (q *Query) resolve() (*Query, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.kind == "" {
		return nil, errors.New(errors.InvalidArgument, "query kind must not be empty")
	}
	return q, nil
}

func (q *Query) toRequest(dataset, namespace string) *QueryRequest {
	ns := namespace
	if q.namespace != "" {
		ns = q.namespace
	}
	return &QueryRequest{
		Dataset:    dataset,
		Namespace:  ns,
		Kind:       q.kind,
		Ancestor:   q.ancestor,
		Filters:    append([]Filter(nil), q.filters...),
		Orders:     append([]Order(nil), q.orders...),
		Projection: append([]string(nil), q.projection...),
		GroupBy:    append([]string(nil), q.groupBy...),
		Limit:      q.limit,
		Offset:     q.offset,
		KeysOnly:   q.keysOnly,
	}
}

// QueryRequest is the resolved structured form handed to a Remote. Drivers
// receive only this; textual queries are parsed before they get here.
type QueryRequest struct {
	Dataset    string
	Namespace  string
	Kind       string
	Ancestor   *Key
	Filters    []Filter
	Orders     []Order
	Projection []string
	GroupBy    []string
	Limit      int
	Offset     int
	KeysOnly   bool
	Cursor     string
	Txn        []byte
}

// Match reports whether an entity satisfies the request's kind, ancestor
// and property filters.
func (r *QueryRequest) Match(e *Entity) bool {
	key := e.Key()
	if key.Kind() != r.Kind || key.Dataset() != r.Dataset || key.Namespace() != r.Namespace {
		return false
	}
	if r.Ancestor != nil && !hasAncestor(key, r.Ancestor) {
		return false
	}
	for _, f := range r.Filters {
		v, err := e.GetValue(f.Property)
		if err != nil {
			return false
		}
		c, ok := compareValues(v, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case "=":
			ok = c == 0
		case "<":
			ok = c < 0
		case "<=":
			ok = c <= 0
		case ">":
			ok = c > 0
		case ">=":
			ok = c >= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

// Evaluate runs the full result pipeline over candidate rows: filter, sort,
// group, offset/limit, project. Every driver shares this one semantics;
// drivers only differ in how they gather candidates.
func (r *QueryRequest) Evaluate(rows []*Entity) []*Entity {
	var out []*Entity
	for _, e := range rows {
		if r.Match(e) {
			out = append(out, e)
		}
	}
	r.sortRows(out)
	if len(r.GroupBy) > 0 {
		out = r.groupRows(out)
	}
	if r.Offset > 0 {
		if r.Offset >= len(out) {
			out = nil
		} else {
			out = out[r.Offset:]
		}
	}
	if r.Limit >= 0 && len(out) > r.Limit {
		out = out[:r.Limit]
	}
	if len(r.Projection) > 0 {
		projected := make([]*Entity, len(out))
		for i, e := range out {
			projected[i] = r.projectRow(e)
		}
		out = projected
	}
	return out
}

func (r *QueryRequest) sortRows(rows []*Entity) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		for _, o := range r.Orders {
			c := compareByProperty(a, b, o.Property)
			if o.Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		// Stable key order keeps results deterministic.
		return compareKeys(a.Key(), b.Key()) < 0
	})
}

func compareByProperty(a, b *Entity, property string) int {
	if property == KeyProperty {
		return compareKeys(a.Key(), b.Key())
	}
	av, aerr := a.GetValue(property)
	bv, berr := b.GetValue(property)
	switch {
	case aerr != nil && berr != nil:
		return 0
	case aerr != nil:
		return -1
	case berr != nil:
		return 1
	}
	if c, ok := compareValues(av, bv); ok {
		return c
	}
	return 0
}

func (r *QueryRequest) groupRows(rows []*Entity) []*Entity {
	seen := make(map[string]bool)
	var out []*Entity
	for _, e := range rows {
		var sb strings.Builder
		for _, p := range r.GroupBy {
			if v, err := e.GetValue(p); err == nil {
				sb.WriteString(groupKeyPart(v))
			}
			sb.WriteByte(0)
		}
		k := sb.String()
		if !seen[k] {
			seen[k] = true
			out = append(out, e)
		}
	}
	return out
}

func groupKeyPart(v Value) string {
	return fmt.Sprintf("%s:%v", v.typ, v.payload)
}

func (r *QueryRequest) projectRow(e *Entity) *Entity {
	b := NewEntityBuilder(e.Key())
	for _, p := range r.Projection {
		if p == KeyProperty {
			continue
		}
		if v, err := e.GetValue(p); err == nil {
			b.Set(p, v)
		}
	}
	projected, _ := b.Build()
	return projected
}

// compareValues orders two values of comparable variants. Integers and
// doubles compare numerically across variants; otherwise differing variants
// are incomparable.
func compareValues(a, b Value) (int, bool) {
	if a.typ == TypeInt && b.typ == TypeFloat {
		return compareFloats(float64(a.payload.(int64)), b.payload.(float64)), true
	}
	if a.typ == TypeFloat && b.typ == TypeInt {
		return compareFloats(a.payload.(float64), float64(b.payload.(int64))), true
	}
	if a.typ != b.typ {
		return 0, false
	}
	switch a.typ {
	case TypeNull:
		return 0, true
	case TypeBool:
		av, bv := a.payload.(bool), b.payload.(bool)
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case TypeInt:
		av, bv := a.payload.(int64), b.payload.(int64)
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case TypeFloat:
		return compareFloats(a.payload.(float64), b.payload.(float64)), true
	case TypeString:
		return strings.Compare(a.payload.(string), b.payload.(string)), true
	case TypeTime:
		at, bt := a.payload.(time.Time), b.payload.(time.Time)
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	case TypeKey:
		return compareKeys(a.payload.(*Key), b.payload.(*Key)), true
	default:
		if a.Equal(b) {
			return 0, true
		}
		return 0, false
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Results is a lazy, single-pass sequence of typed query rows. It is not
// restartable; a second iteration requires rerunning the query.
type Results struct {
	ctx        context.Context
	remote     Remote
	req        *QueryRequest
	resultType ResultType
	buf        []*Entity
	idx        int
	started    bool
	done       bool
	err        error
}

// ResultType reports the resolved row type, so callers of an ambiguously
// typed query can safely downcast rows.
func (r *Results) ResultType() ResultType { return r.resultType }

// HasNext reports whether another row is available, fetching the next page
// when needed. Fetch failures surface on the following Next call.
func (r *Results) HasNext() bool {
	if r.err != nil {
		return true // stays pending until Next consumes it
	}
	for r.idx >= len(r.buf) {
		if r.done {
			return false
		}
		if err := r.fetch(); err != nil {
			r.err = err
			return true // surface the error from Next
		}
	}
	return true
}

// Next returns the next row: *Entity, *Key or *ProjectionEntity depending
// on ResultType.
func (r *Results) Next() (any, error) {
	if r.err != nil {
		err := r.err
		r.err = nil
		r.done = true
		return nil, err
	}
	if !r.HasNext() {
		return nil, errors.New(errors.FailedPrecondition, "no more query results")
	}
	if r.err != nil {
		err := r.err
		r.err = nil
		r.done = true
		return nil, err
	}
	e := r.buf[r.idx]
	r.idx++
	switch r.resultType {
	case ResultKeyOnly:
		return e.Key(), nil
	case ResultProjection:
		return &ProjectionEntity{Entity: *e}, nil
	default:
		return e, nil
	}
}

func (r *Results) fetch() error {
	r.started = true
	page, err := r.remote.RunQuery(r.ctx, r.req)
	if err != nil {
		return err
	}
	r.buf = append(r.buf, page.Rows...)
	r.req.Cursor = page.Cursor
	if !page.More {
		r.done = true
	}
	return nil
}
