/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/strandsoft/docstore/errors"
)

// ValueType tags the variant a Value carries. The set is closed: every
// property of every entity holds exactly one of these.
type ValueType int

const (
	TypeNull ValueType = iota + 1
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeBytes
	TypeTime
	TypeKey
	TypeEntity
	TypeRaw
	TypeList
)

var valueTypeNames = map[ValueType]string{
	TypeNull:   "null",
	TypeBool:   "bool",
	TypeInt:    "int",
	TypeFloat:  "float",
	TypeString: "string",
	TypeBytes:  "bytes",
	TypeTime:   "time",
	TypeKey:    "key",
	TypeEntity: "entity",
	TypeRaw:    "raw",
	TypeList:   "list",
}

func (t ValueType) String() string {
	if n, ok := valueTypeNames[t]; ok {
		return n
	}
	return "unknown"
}

// Value is an immutable tagged property value. Besides the payload it
// carries two index-control attributes passed through to the store: a
// tri-state indexed flag (unset means "use store default") and an optional
// integer meaning tag, opaque to this layer.
type Value struct {
	typ     ValueType
	payload any
	indexed *bool
	meaning *int
}

// NewNull creates a null value.
func NewNull() Value { return Value{typ: TypeNull} }

// NewBool creates a boolean value.
func NewBool(b bool) Value { return Value{typ: TypeBool, payload: b} }

// NewInt creates a 64-bit integer value.
func NewInt(i int64) Value { return Value{typ: TypeInt, payload: i} }

// NewFloat creates a double-precision value.
func NewFloat(f float64) Value { return Value{typ: TypeFloat, payload: f} }

// NewString creates a string value.
func NewString(s string) Value { return Value{typ: TypeString, payload: s} }

// NewBytes creates a binary blob value. The bytes are copied.
func NewBytes(b []byte) Value {
	return Value{typ: TypeBytes, payload: append([]byte(nil), b...)}
}

// NewTime creates a timestamp value. The store keeps microsecond precision,
// so the time is truncated accordingly and normalized to UTC.
func NewTime(t time.Time) Value {
	return Value{typ: TypeTime, payload: t.UTC().Truncate(time.Microsecond)}
}

// NewKeyValue creates a key-reference value.
func NewKeyValue(k *Key) Value { return Value{typ: TypeKey, payload: k} }

// NewEntityValue creates a nested-entity value. Entities are excluded from
// indexing by default since their contents are not atomically indexable, so
// the indexed attribute is explicitly false unless overridden.
func NewEntityValue(e EntityLike) Value {
	indexed := false
	return Value{typ: TypeEntity, payload: e.partial(), indexed: &indexed}
}

// NewRaw creates an opaque value carrying store-encoded bytes the client
// passes through untouched. The bytes are copied.
func NewRaw(raw json.RawMessage) Value {
	return Value{typ: TypeRaw, payload: json.RawMessage(append([]byte(nil), raw...))}
}

// NewList creates an ordered-list value. The element slice is copied.
func NewList(elems ...Value) Value {
	return Value{typ: TypeList, payload: append([]Value(nil), elems...)}
}

// Type returns the variant tag.
func (v Value) Type() ValueType { return v.typ }

// Get returns the payload. Mutable payloads (blobs, raw bytes, lists) are
// returned as copies so no reference obtained from a value can mutate it.
func (v Value) Get() any {
	switch p := v.payload.(type) {
	case []byte:
		return append([]byte(nil), p...)
	case json.RawMessage:
		return json.RawMessage(append([]byte(nil), p...))
	case []Value:
		return append([]Value(nil), p...)
	default:
		return v.payload
	}
}

// HasIndexed reports whether an explicit indexed flag was set, as opposed
// to "unset, use the store default".
func (v Value) HasIndexed() bool { return v.indexed != nil }

// Indexed returns the indexed flag, nil when unset.
func (v Value) Indexed() *bool {
	if v.indexed == nil {
		return nil
	}
	b := *v.indexed
	return &b
}

// HasMeaning reports whether a meaning tag was set.
func (v Value) HasMeaning() bool { return v.meaning != nil }

// Meaning returns the meaning tag and whether one was set.
func (v Value) Meaning() (int, bool) {
	if v.meaning == nil {
		return 0, false
	}
	return *v.meaning, true
}

// ToBuilder returns a builder pre-populated with this value's state, for
// copy-with-modification.
func (v Value) ToBuilder() *ValueBuilder {
	b := &ValueBuilder{typ: v.typ, payload: v.payload}
	if v.indexed != nil {
		i := *v.indexed
		b.indexed = &i
	}
	if v.meaning != nil {
		m := *v.meaning
		b.meaning = &m
	}
	return b
}

// Equal reports structural equality: same variant, equal payload, equal
// indexed tri-state, equal meaning. Values of different variants are never
// equal, even with coercible payloads.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	if (v.indexed == nil) != (o.indexed == nil) {
		return false
	}
	if v.indexed != nil && *v.indexed != *o.indexed {
		return false
	}
	if (v.meaning == nil) != (o.meaning == nil) {
		return false
	}
	if v.meaning != nil && *v.meaning != *o.meaning {
		return false
	}
	switch v.typ {
	case TypeNull:
		return true
	case TypeBytes:
		return bytes.Equal(v.payload.([]byte), o.payload.([]byte))
	case TypeRaw:
		return bytes.Equal(v.payload.(json.RawMessage), o.payload.(json.RawMessage))
	case TypeTime:
		return v.payload.(time.Time).Equal(o.payload.(time.Time))
	case TypeKey:
		return v.payload.(*Key).Equal(o.payload.(*Key))
	case TypeEntity:
		return v.payload.(*PartialEntity).Equal(o.payload.(*PartialEntity))
	case TypeList:
		a, b := v.payload.([]Value), o.payload.([]Value)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	default:
		return v.payload == o.payload
	}
}

// ValueBuilder stages a value before it is frozen by Build. A zero builder
// is not usable; start from a constructor value's ToBuilder.
type ValueBuilder struct {
	typ     ValueType
	payload any
	indexed *bool
	meaning *int
}

// Indexed sets an explicit indexed flag.
func (b *ValueBuilder) Indexed(indexed bool) *ValueBuilder {
	b.indexed = &indexed
	return b
}

// ClearIndexed returns the indexed flag to the unset tri-state.
func (b *ValueBuilder) ClearIndexed() *ValueBuilder {
	b.indexed = nil
	return b
}

// Meaning sets the meaning tag.
func (b *ValueBuilder) Meaning(meaning int) *ValueBuilder {
	b.meaning = &meaning
	return b
}

// Set replaces the payload. The payload must match the builder's variant.
func (b *ValueBuilder) Set(payload any) *ValueBuilder {
	v, err := wrapValue(payload)
	if err != nil || v.typ != b.typ {
		// Keep the mismatch; Build reports it.
		b.payload = payload
		return b
	}
	b.payload = v.payload
	return b
}

// Build freezes the staged state into an immutable Value.
func (b *ValueBuilder) Build() (Value, error) {
	v := Value{typ: b.typ}
	switch p := b.payload.(type) {
	case nil:
		if b.typ != TypeNull {
			return Value{}, errors.Newf(errors.InvalidArgument,
				"nil payload for %s value", b.typ)
		}
	case []byte:
		v.payload = append([]byte(nil), p...)
	case json.RawMessage:
		v.payload = json.RawMessage(append([]byte(nil), p...))
	case []Value:
		v.payload = append([]Value(nil), p...)
	default:
		v.payload = b.payload
	}
	if !payloadMatches(v.typ, v.payload) {
		return Value{}, errors.Newf(errors.InvalidArgument,
			"payload %T does not match %s value", b.payload, b.typ)
	}
	if b.indexed != nil {
		i := *b.indexed
		v.indexed = &i
	}
	if b.meaning != nil {
		m := *b.meaning
		v.meaning = &m
	}
	return v, nil
}

func payloadMatches(t ValueType, payload any) bool {
	switch t {
	case TypeNull:
		return payload == nil
	case TypeBool:
		_, ok := payload.(bool)
		return ok
	case TypeInt:
		_, ok := payload.(int64)
		return ok
	case TypeFloat:
		_, ok := payload.(float64)
		return ok
	case TypeString:
		_, ok := payload.(string)
		return ok
	case TypeBytes:
		_, ok := payload.([]byte)
		return ok
	case TypeTime:
		_, ok := payload.(time.Time)
		return ok
	case TypeKey:
		k, ok := payload.(*Key)
		return ok && k != nil
	case TypeEntity:
		e, ok := payload.(*PartialEntity)
		return ok && e != nil
	case TypeRaw:
		_, ok := payload.(json.RawMessage)
		return ok
	case TypeList:
		_, ok := payload.([]Value)
		return ok
	default:
		return false
	}
}

// wrapValue converts a Go primitive into the matching value variant. It
// backs the convenience setters on entity builders and query filters.
func wrapValue(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return NewNull(), nil
	case Value:
		return t, nil
	case bool:
		return NewBool(t), nil
	case int:
		return NewInt(int64(t)), nil
	case int32:
		return NewInt(int64(t)), nil
	case int64:
		return NewInt(t), nil
	case float32:
		return NewFloat(float64(t)), nil
	case float64:
		return NewFloat(t), nil
	case string:
		return NewString(t), nil
	case json.RawMessage:
		return NewRaw(t), nil
	case []byte:
		return NewBytes(t), nil
	case time.Time:
		return NewTime(t), nil
	case *Key:
		return NewKeyValue(t), nil
	case *PartialEntity:
		return NewEntityValue(t), nil
	case *Entity:
		return NewEntityValue(t), nil
	case []Value:
		return NewList(t...), nil
	default:
		return Value{}, errors.Newf(errors.InvalidArgument,
			"unsupported property value type %T", v)
	}
}
