/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandsoft/docstore/errors"
)

func personEntity(t *testing.T, name string, age int64, city string) *Entity {
	t.Helper()
	key, err := NewKeyBuilder("ds1", "Person").Name(name).Build()
	require.NoError(t, err)
	e, err := NewEntityBuilder(key).
		SetString("name", name).
		SetInt("age", age).
		SetString("city", city).
		Build()
	require.NoError(t, err)
	return e
}

func people(t *testing.T) []*Entity {
	return []*Entity{
		personEntity(t, "alice", 30, "Oslo"),
		personEntity(t, "bob", 25, "Oslo"),
		personEntity(t, "carol", 35, "Bergen"),
		personEntity(t, "dave", 25, "Bergen"),
	}
}

func requestFor(t *testing.T, q *Query) *QueryRequest {
	t.Helper()
	resolved, err := q.resolve()
	require.NoError(t, err)
	return resolved.toRequest("ds1", "")
}

func rowNames(t *testing.T, rows []*Entity) []string {
	out := make([]string, len(rows))
	for i, e := range rows {
		name, err := e.GetString("name")
		require.NoError(t, err)
		out[i] = name
	}
	return out
}

func TestQueryFilter(t *testing.T) {
	req := requestFor(t, NewQuery("Person").FilterField("age", ">=", 30))
	rows := req.Evaluate(people(t))
	assert.ElementsMatch(t, []string{"alice", "carol"}, rowNames(t, rows))

	req = requestFor(t, NewQuery("Person").
		FilterField("city", "=", "Oslo").
		FilterField("age", "<", 30))
	rows = req.Evaluate(people(t))
	assert.Equal(t, []string{"bob"}, rowNames(t, rows))
}

func TestQueryFilterInvalidOperator(t *testing.T) {
	_, err := NewQuery("Person").FilterField("age", "!=", 1).resolve()
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestQueryOrder(t *testing.T) {
	req := requestFor(t, NewQuery("Person").Order("-age").Order("name"))
	rows := req.Evaluate(people(t))
	assert.Equal(t, []string{"carol", "alice", "bob", "dave"}, rowNames(t, rows))
}

func TestQueryDefaultKeyOrder(t *testing.T) {
	req := requestFor(t, NewQuery("Person"))
	rows := req.Evaluate(people(t))
	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, rowNames(t, rows))
}

func TestQueryLimitOffset(t *testing.T) {
	req := requestFor(t, NewQuery("Person").Order("name").Offset(1).Limit(2))
	rows := req.Evaluate(people(t))
	assert.Equal(t, []string{"bob", "carol"}, rowNames(t, rows))

	req = requestFor(t, NewQuery("Person").Offset(10))
	assert.Empty(t, req.Evaluate(people(t)))
}

func TestQueryProjectionAndGroupBy(t *testing.T) {
	req := requestFor(t, NewQuery("Person").Project("city").Order("name"))
	rows := req.Evaluate(people(t))
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"city"}, rows[0].Names())

	req = requestFor(t, NewQuery("Person").GroupBy("city").Order("name"))
	rows = req.Evaluate(people(t))
	assert.Equal(t, []string{"alice", "carol"}, rowNames(t, rows))
}

func TestQueryAncestor(t *testing.T) {
	parent, err := NewKeyBuilder("ds1", "Org").Name("acme").Build()
	require.NoError(t, err)
	childKey, err := ChildKeyBuilder(parent, "Person").Name("eve").Build()
	require.NoError(t, err)
	child, err := NewEntityBuilder(childKey).SetString("name", "eve").Build()
	require.NoError(t, err)

	req := requestFor(t, NewQuery("Person").Ancestor(parent))
	rows := req.Evaluate(append(people(t), child))
	assert.Equal(t, []string{"eve"}, rowNames(t, rows))
}

func TestQueryResultType(t *testing.T) {
	assert.Equal(t, ResultFull, NewQuery("Person").ResultType())
	assert.Equal(t, ResultKeyOnly, NewQuery("Person").KeysOnly().ResultType())
	assert.Equal(t, ResultProjection, NewQuery("Person").Project("age").ResultType())
}

func TestQueryDeriveDoesNotMutate(t *testing.T) {
	base := NewQuery("Person").FilterField("age", ">", 10)
	derived := base.FilterField("city", "=", "Oslo").Limit(1)

	baseReq := requestFor(t, base)
	assert.Len(t, baseReq.Filters, 1)
	assert.Equal(t, -1, baseReq.Limit)

	derivedReq := requestFor(t, derived)
	assert.Len(t, derivedReq.Filters, 2)
	assert.Equal(t, 1, derivedReq.Limit)
}

func TestCompareValuesNumericCross(t *testing.T) {
	c, ok := compareValues(NewInt(2), NewFloat(2.5))
	require.True(t, ok)
	assert.Equal(t, -1, c)

	c, ok = compareValues(NewFloat(3), NewInt(2))
	require.True(t, ok)
	assert.Equal(t, 1, c)

	_, ok = compareValues(NewString("a"), NewInt(1))
	assert.False(t, ok)
}

func TestGqlSelectAll(t *testing.T) {
	q, err := NewGqlQuery("SELECT * FROM Person WHERE age >= 30 ORDER BY age DESC LIMIT 5").resolve()
	require.NoError(t, err)
	req := q.toRequest("ds1", "")
	assert.Equal(t, "Person", req.Kind)
	require.Len(t, req.Filters, 1)
	assert.Equal(t, ">=", req.Filters[0].Op)
	require.Len(t, req.Orders, 1)
	assert.True(t, req.Orders[0].Descending)
	assert.Equal(t, 5, req.Limit)
}

func TestGqlSelectKeysAndProjection(t *testing.T) {
	q, err := NewGqlQuery("SELECT __key__ FROM Person").resolve()
	require.NoError(t, err)
	assert.Equal(t, ResultKeyOnly, q.ResultType())

	q, err = NewGqlQuery("SELECT name, age FROM Person").resolve()
	require.NoError(t, err)
	assert.Equal(t, ResultProjection, q.ResultType())
	req := q.toRequest("ds1", "")
	assert.Equal(t, []string{"name", "age"}, req.Projection)
}

func TestGqlLiteralsAndBindings(t *testing.T) {
	q, err := NewGqlQuery("SELECT * FROM Person WHERE name = 'alice' AND active = true").resolve()
	require.NoError(t, err)
	req := q.toRequest("ds1", "")
	require.Len(t, req.Filters, 2)
	assert.Equal(t, "alice", req.Filters[0].Value.Get())
	assert.Equal(t, true, req.Filters[1].Value.Get())

	bound, err := NewGqlQuery("SELECT * FROM Person WHERE age > @min").
		Bind("min", 21).resolve()
	require.NoError(t, err)
	req = bound.toRequest("ds1", "")
	require.Len(t, req.Filters, 1)
	assert.Equal(t, int64(21), req.Filters[0].Value.Get())
}

func TestGqlParseErrors(t *testing.T) {
	cases := []string{
		"FROM Person",
		"SELECT * Person",
		"SELECT * FROM",
		"SELECT * FROM Person WHERE age",
		"SELECT * FROM Person WHERE age > @unbound",
		"SELECT * FROM Person LIMIT x",
		"SELECT * FROM Person garbage",
	}
	for _, src := range cases {
		_, err := NewGqlQuery(src).resolve()
		assert.True(t, errors.IsInvalidArgument(err), "query %q", src)
	}
}

// scriptedRemote pages query rows for Results iteration tests.
type scriptedRemote struct {
	Remote
	pages [][]*Entity
	calls int
}

func (r *scriptedRemote) RunQuery(_ context.Context, _ *QueryRequest) (*QueryPage, error) {
	page := r.pages[r.calls]
	r.calls++
	return &QueryPage{Rows: page, More: r.calls < len(r.pages)}, nil
}

func TestResultsIteratesAcrossPages(t *testing.T) {
	all := people(t)
	remote := &scriptedRemote{pages: [][]*Entity{all[:2], all[2:]}}
	ds, err := New(remote, Config{Dataset: "ds1"})
	require.NoError(t, err)

	res, err := ds.Run(context.Background(), NewQuery("Person"))
	require.NoError(t, err)
	assert.Equal(t, ResultFull, res.ResultType())

	var got []string
	for res.HasNext() {
		row, err := res.Next()
		require.NoError(t, err)
		name, err := row.(*Entity).GetString("name")
		require.NoError(t, err)
		got = append(got, name)
	}
	assert.Len(t, got, 4)
	assert.Equal(t, 2, remote.calls)

	_, err = res.Next()
	assert.True(t, errors.IsFailedPrecondition(err))
}

// failingRemote serves one page, then fails every later fetch.
type failingRemote struct {
	Remote
	page  []*Entity
	calls int
}

func (r *failingRemote) RunQuery(_ context.Context, _ *QueryRequest) (*QueryPage, error) {
	r.calls++
	if r.calls == 1 {
		return &QueryPage{Rows: r.page, More: true}, nil
	}
	return nil, errors.New(errors.Internal, "query backend unavailable")
}

func TestResultsFetchErrorSurvivesRepeatedHasNext(t *testing.T) {
	all := people(t)
	remote := &failingRemote{page: all[:1]}
	ds, err := New(remote, Config{Dataset: "ds1"})
	require.NoError(t, err)

	res, err := ds.Run(context.Background(), NewQuery("Person"))
	require.NoError(t, err)

	require.True(t, res.HasNext())
	_, err = res.Next()
	require.NoError(t, err)

	// polling HasNext repeatedly must not swallow the pending fetch error
	require.True(t, res.HasNext())
	require.True(t, res.HasNext())
	_, err = res.Next()
	require.Error(t, err)

	assert.False(t, res.HasNext())
	_, err = res.Next()
	assert.True(t, errors.IsFailedPrecondition(err))
}

func TestResultsTypedRows(t *testing.T) {
	all := people(t)
	remote := &scriptedRemote{pages: [][]*Entity{all}}
	ds, err := New(remote, Config{Dataset: "ds1"})
	require.NoError(t, err)

	res, err := ds.Run(context.Background(), NewQuery("Person").KeysOnly())
	require.NoError(t, err)
	require.True(t, res.HasNext())
	row, err := res.Next()
	require.NoError(t, err)
	_, ok := row.(*Key)
	assert.True(t, ok)

	remote = &scriptedRemote{pages: [][]*Entity{all}}
	ds, err = New(remote, Config{Dataset: "ds1"})
	require.NoError(t, err)
	res, err = ds.Run(context.Background(), NewQuery("Person").Project("age"))
	require.NoError(t, err)
	require.True(t, res.HasNext())
	row, err = res.Next()
	require.NoError(t, err)
	_, ok = row.(*ProjectionEntity)
	assert.True(t, ok)
}
