/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandsoft/docstore/errors"
)

func TestValueConstructors(t *testing.T) {
	assert.Equal(t, TypeNull, NewNull().Type())
	assert.Equal(t, true, NewBool(true).Get())
	assert.Equal(t, int64(7), NewInt(7).Get())
	assert.Equal(t, 1.5, NewFloat(1.5).Get())
	assert.Equal(t, "hi", NewString("hi").Get())
	assert.Equal(t, []byte{1, 2}, NewBytes([]byte{1, 2}).Get())
}

func TestValueIndexedTriState(t *testing.T) {
	v := NewString("x")
	assert.False(t, v.HasIndexed())
	assert.Nil(t, v.Indexed())

	indexed, err := v.ToBuilder().Indexed(true).Build()
	require.NoError(t, err)
	require.True(t, indexed.HasIndexed())
	assert.True(t, *indexed.Indexed())

	cleared, err := indexed.ToBuilder().ClearIndexed().Build()
	require.NoError(t, err)
	assert.False(t, cleared.HasIndexed())

	// explicitly false and unset are distinct
	off, err := v.ToBuilder().Indexed(false).Build()
	require.NoError(t, err)
	assert.True(t, off.HasIndexed())
	assert.False(t, v.Equal(off))
}

func TestValueMeaning(t *testing.T) {
	v := NewInt(1)
	_, ok := v.Meaning()
	assert.False(t, ok)

	m, err := v.ToBuilder().Meaning(9).Build()
	require.NoError(t, err)
	got, ok := m.Meaning()
	require.True(t, ok)
	assert.Equal(t, 9, got)
	assert.False(t, v.Equal(m))
}

func TestValueTimeTruncatedToMicros(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	v := NewTime(ts)
	got := v.Get().(time.Time)
	assert.Equal(t, ts.Truncate(time.Microsecond), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestValueGetReturnsCopies(t *testing.T) {
	b := []byte{1, 2, 3}
	v := NewBytes(b)
	b[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, v.Get())

	got := v.Get().([]byte)
	got[1] = 9
	assert.Equal(t, []byte{1, 2, 3}, v.Get())

	list := NewList(NewInt(1))
	elems := list.Get().([]Value)
	elems[0] = NewInt(2)
	assert.Equal(t, int64(1), list.Get().([]Value)[0].Get())
}

func TestValueEqual(t *testing.T) {
	assert.True(t, NewInt(3).Equal(NewInt(3)))
	assert.False(t, NewInt(3).Equal(NewInt(4)))
	assert.False(t, NewInt(3).Equal(NewFloat(3)))
	assert.True(t, NewList(NewInt(1), NewString("a")).Equal(NewList(NewInt(1), NewString("a"))))
	assert.False(t, NewList(NewInt(1)).Equal(NewList(NewInt(1), NewInt(2))))
	assert.True(t, NewRaw(json.RawMessage(`{"a":1}`)).Equal(NewRaw(json.RawMessage(`{"a":1}`))))
}

func TestValueBuilderTypeMismatch(t *testing.T) {
	_, err := NewInt(1).ToBuilder().Set("not an int").Build()
	assert.True(t, errors.IsInvalidArgument(err))

	v, err := NewInt(1).ToBuilder().Set(int64(5)).Build()
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Get())
}

func TestWrapValue(t *testing.T) {
	cases := []struct {
		in   any
		want ValueType
	}{
		{nil, TypeNull},
		{true, TypeBool},
		{42, TypeInt},
		{int64(42), TypeInt},
		{int32(42), TypeInt},
		{3.14, TypeFloat},
		{float32(3), TypeFloat},
		{"s", TypeString},
		{[]byte{1}, TypeBytes},
		{time.Now(), TypeTime},
	}
	for _, tc := range cases {
		v, err := wrapValue(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, v.Type(), "wrapping %T", tc.in)
	}

	_, err := wrapValue(struct{}{})
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestNestedEntityValueDefaultsUnindexed(t *testing.T) {
	key, err := NewKeyBuilder("ds1", "Addr").Name("home").Build()
	require.NoError(t, err)
	nested, err := NewEntityBuilder(key).SetString("city", "Oslo").Build()
	require.NoError(t, err)

	v := NewEntityValue(nested)
	require.True(t, v.HasIndexed())
	assert.False(t, *v.Indexed())
}
