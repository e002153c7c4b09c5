/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import (
	"time"

	"github.com/strandsoft/docstore/errors"
)

// EntityLike is satisfied by *PartialEntity and *Entity, letting mutation
// staging accept either while preserving key completeness.
type EntityLike interface {
	partial() *PartialEntity
}

// PartialEntity is an immutable container of named property values under a
// key that may still be incomplete. Property names are unique; insertion
// order is preserved for enumeration but is not significant for equality.
type PartialEntity struct {
	key   *PartialKey
	ckey  *Key // non-nil when the key is complete
	names []string
	props map[string]Value
}

func (e *PartialEntity) partial() *PartialEntity { return e }

// Key returns the (possibly incomplete) key.
func (e *PartialEntity) Key() *PartialKey { return e.key }

// HasCompleteKey reports whether the key carries a terminal id or name.
func (e *PartialEntity) HasCompleteKey() bool { return e.ckey != nil }

// CompleteKey returns the complete key, nil when the key is incomplete.
func (e *PartialEntity) CompleteKey() *Key { return e.ckey }

// Names returns the property names in insertion order.
func (e *PartialEntity) Names() []string {
	return append([]string(nil), e.names...)
}

// Contains reports whether the named property is present. It never fails.
func (e *PartialEntity) Contains(name string) bool {
	_, ok := e.props[name]
	return ok
}

// Properties returns a copy of the name to value mapping.
func (e *PartialEntity) Properties() map[string]Value {
	out := make(map[string]Value, len(e.props))
	for k, v := range e.props {
		out[k] = v
	}
	return out
}

// GetValue returns the named property's value, failing with NotFound when
// the name is absent.
func (e *PartialEntity) GetValue(name string) (Value, error) {
	v, ok := e.props[name]
	if !ok {
		return Value{}, errors.Newf(errors.NotFound, "no property %q", name)
	}
	return v, nil
}

func (e *PartialEntity) typedValue(name string, t ValueType) (Value, error) {
	v, err := e.GetValue(name)
	if err != nil {
		return Value{}, err
	}
	if v.typ != t {
		return Value{}, errors.Newf(errors.InvalidArgument,
			"property %q holds a %s value, not %s", name, v.typ, t)
	}
	return v, nil
}

// IsNull reports whether the named property holds a null value. An absent
// property fails with NotFound.
func (e *PartialEntity) IsNull(name string) (bool, error) {
	v, err := e.GetValue(name)
	if err != nil {
		return false, err
	}
	return v.typ == TypeNull, nil
}

// GetString returns a string property, failing on a missing name or a
// non-string variant.
func (e *PartialEntity) GetString(name string) (string, error) {
	v, err := e.typedValue(name, TypeString)
	if err != nil {
		return "", err
	}
	return v.payload.(string), nil
}

// GetInt returns an integer property.
func (e *PartialEntity) GetInt(name string) (int64, error) {
	v, err := e.typedValue(name, TypeInt)
	if err != nil {
		return 0, err
	}
	return v.payload.(int64), nil
}

// GetBool returns a boolean property.
func (e *PartialEntity) GetBool(name string) (bool, error) {
	v, err := e.typedValue(name, TypeBool)
	if err != nil {
		return false, err
	}
	return v.payload.(bool), nil
}

// GetFloat returns a double property.
func (e *PartialEntity) GetFloat(name string) (float64, error) {
	v, err := e.typedValue(name, TypeFloat)
	if err != nil {
		return 0, err
	}
	return v.payload.(float64), nil
}

// GetBytes returns a copy of a blob property.
func (e *PartialEntity) GetBytes(name string) ([]byte, error) {
	v, err := e.typedValue(name, TypeBytes)
	if err != nil {
		return nil, err
	}
	return v.Get().([]byte), nil
}

// GetTime returns a timestamp property.
func (e *PartialEntity) GetTime(name string) (time.Time, error) {
	v, err := e.typedValue(name, TypeTime)
	if err != nil {
		return time.Time{}, err
	}
	return v.payload.(time.Time), nil
}

// GetKey returns a key-reference property.
func (e *PartialEntity) GetKey(name string) (*Key, error) {
	v, err := e.typedValue(name, TypeKey)
	if err != nil {
		return nil, err
	}
	return v.payload.(*Key), nil
}

// GetEntity returns a nested-entity property.
func (e *PartialEntity) GetEntity(name string) (*PartialEntity, error) {
	v, err := e.typedValue(name, TypeEntity)
	if err != nil {
		return nil, err
	}
	return v.payload.(*PartialEntity), nil
}

// GetList returns a copy of a list property's elements.
func (e *PartialEntity) GetList(name string) ([]Value, error) {
	v, err := e.typedValue(name, TypeList)
	if err != nil {
		return nil, err
	}
	return v.Get().([]Value), nil
}

// Equal reports structural equality of key and properties. A partial entity
// holding a complete key equals an Entity with the same key and properties.
func (e *PartialEntity) Equal(o *PartialEntity) bool {
	if e == nil || o == nil {
		return e == o
	}
	if (e.ckey == nil) != (o.ckey == nil) {
		return false
	}
	if e.ckey != nil {
		if !e.ckey.Equal(o.ckey) {
			return false
		}
	} else if !e.key.Equal(o.key) {
		return false
	}
	if len(e.props) != len(o.props) {
		return false
	}
	for name, v := range e.props {
		ov, ok := o.props[name]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Entity is a PartialEntity whose key is complete.
type Entity struct {
	PartialEntity
}

// Key returns the complete key.
func (e *Entity) Key() *Key { return e.ckey }

// Equal reports structural equality of key and properties.
func (e *Entity) Equal(o *Entity) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.PartialEntity.Equal(&o.PartialEntity)
}

// EntityBuilder builds PartialEntity and Entity values, including
// building from an existing instance and re-keying it.
type EntityBuilder struct {
	key   *PartialKey
	ckey  *Key
	names []string
	props map[string]Value
}

// NewEntityBuilder starts a builder for an entity under a complete key.
func NewEntityBuilder(key *Key) *EntityBuilder {
	return &EntityBuilder{
		key:   &key.PartialKey,
		ckey:  key,
		props: make(map[string]Value),
	}
}

// NewPartialEntityBuilder starts a builder under a possibly incomplete key.
func NewPartialEntityBuilder(key *PartialKey) *EntityBuilder {
	return &EntityBuilder{key: key, props: make(map[string]Value)}
}

// EntityBuilderFrom starts a builder pre-populated with an existing
// entity's key and properties.
func EntityBuilderFrom(e EntityLike) *EntityBuilder {
	pe := e.partial()
	return &EntityBuilder{
		key:   pe.key,
		ckey:  pe.ckey,
		names: append([]string(nil), pe.names...),
		props: pe.Properties(),
	}
}

// Key re-keys the entity under a complete key, preserving all properties.
// This is how a partial entity becomes an Entity once the store has
// allocated an id.
func (b *EntityBuilder) Key(key *Key) *EntityBuilder {
	b.key = &key.PartialKey
	b.ckey = key
	return b
}

// PartialKey re-keys the entity under an incomplete key.
func (b *EntityBuilder) PartialKey(key *PartialKey) *EntityBuilder {
	b.key = key
	b.ckey = nil
	return b
}

// Set sets a property. Re-setting an existing name keeps its original
// position in the enumeration order.
func (b *EntityBuilder) Set(name string, value Value) *EntityBuilder {
	if _, exists := b.props[name]; !exists {
		b.names = append(b.names, name)
	}
	b.props[name] = value
	return b
}

// SetAny sets a property from a Go primitive, auto-wrapped to the matching
// variant. Unsupported payload types fail at Build.
func (b *EntityBuilder) SetAny(name string, value any) *EntityBuilder {
	v, err := wrapValue(value)
	if err != nil {
		// Record a raw-typed sentinel; Build reports the mismatch.
		v = Value{typ: 0, payload: value}
	}
	return b.Set(name, v)
}

// SetString sets a string property.
func (b *EntityBuilder) SetString(name, value string) *EntityBuilder {
	return b.Set(name, NewString(value))
}

// SetInt sets an integer property.
func (b *EntityBuilder) SetInt(name string, value int64) *EntityBuilder {
	return b.Set(name, NewInt(value))
}

// SetBool sets a boolean property.
func (b *EntityBuilder) SetBool(name string, value bool) *EntityBuilder {
	return b.Set(name, NewBool(value))
}

// SetFloat sets a double property.
func (b *EntityBuilder) SetFloat(name string, value float64) *EntityBuilder {
	return b.Set(name, NewFloat(value))
}

// SetTime sets a timestamp property.
func (b *EntityBuilder) SetTime(name string, value time.Time) *EntityBuilder {
	return b.Set(name, NewTime(value))
}

// SetBytes sets a blob property.
func (b *EntityBuilder) SetBytes(name string, value []byte) *EntityBuilder {
	return b.Set(name, NewBytes(value))
}

// SetNull sets a null property.
func (b *EntityBuilder) SetNull(name string) *EntityBuilder {
	return b.Set(name, NewNull())
}

// Remove drops a property if present.
func (b *EntityBuilder) Remove(name string) *EntityBuilder {
	if _, ok := b.props[name]; !ok {
		return b
	}
	delete(b.props, name)
	for i, n := range b.names {
		if n == name {
			b.names = append(b.names[:i], b.names[i+1:]...)
			break
		}
	}
	return b
}

// Clear drops all properties, retaining the key.
func (b *EntityBuilder) Clear() *EntityBuilder {
	b.names = nil
	b.props = make(map[string]Value)
	return b
}

func (b *EntityBuilder) snapshot() (*PartialEntity, error) {
	props := make(map[string]Value, len(b.props))
	for name, v := range b.props {
		if v.typ == 0 {
			return nil, errors.Newf(errors.InvalidArgument,
				"property %q has an unsupported value type %T", name, v.payload)
		}
		props[name] = v
	}
	return &PartialEntity{
		key:   b.key,
		ckey:  b.ckey,
		names: append([]string(nil), b.names...),
		props: props,
	}, nil
}

// BuildPartial freezes the staged state into a PartialEntity. The key may
// be complete or incomplete.
func (b *EntityBuilder) BuildPartial() (*PartialEntity, error) {
	return b.snapshot()
}

// Build freezes the staged state into an Entity. The key must be complete.
func (b *EntityBuilder) Build() (*Entity, error) {
	if b.ckey == nil {
		return nil, errors.New(errors.InvalidArgument,
			"entity requires a complete key; use BuildPartial for incomplete keys")
	}
	pe, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	return &Entity{PartialEntity: *pe}, nil
}

// asEntity promotes a partial entity with a complete key. Used when
// materializing commit responses and query rows.
func asEntity(pe *PartialEntity) (*Entity, error) {
	if pe.ckey == nil {
		return nil, errors.New(errors.InvalidArgument, "entity key is incomplete")
	}
	return &Entity{PartialEntity: *pe}, nil
}
