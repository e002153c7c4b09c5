/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/strandsoft/docstore/datastore"
	"github.com/strandsoft/docstore/registry"
)

// TypedStore provides type-safe operations for a specific type T, mapping
// struct fields to entity properties through their JSON encoding. The kind
// comes from the kind registry; entities are named by the caller.
type TypedStore[T any] struct {
	ds      *datastore.DataStore
	factory *datastore.KeyFactory
}

// NewTypedStore creates a TypedStore for type T over an opened client.
// T must have been registered with registry.RegisterKind.
func NewTypedStore[T any](ds *datastore.DataStore) (*TypedStore[T], error) {
	kind, ok := registry.GetKind[T]()
	if !ok {
		var zero T
		return nil, fmt.Errorf("no kind registered for type %T", zero)
	}
	return &TypedStore[T]{ds: ds, factory: ds.NewKeyFactory(kind)}, nil
}

// Put stores v under the given name, creating or replacing.
func (s *TypedStore[T]) Put(ctx context.Context, name string, v T) error {
	key, err := s.factory.NewKeyWithName(name)
	if err != nil {
		return err
	}
	e, err := encodeTyped(key, v)
	if err != nil {
		return err
	}
	return s.ds.Put(ctx, e)
}

// Get retrieves the value stored under the given name, nil when absent.
func (s *TypedStore[T]) Get(ctx context.Context, name string) (*T, error) {
	key, err := s.factory.NewKeyWithName(name)
	if err != nil {
		return nil, err
	}
	e, err := s.ds.Get(ctx, key)
	if err != nil || e == nil {
		return nil, err
	}
	return decodeTyped[T](e)
}

// Delete removes the value stored under the given name.
func (s *TypedStore[T]) Delete(ctx context.Context, name string) error {
	key, err := s.factory.NewKeyWithName(name)
	if err != nil {
		return err
	}
	return s.ds.Delete(ctx, key)
}

// List returns every stored value of the kind, in key order.
func (s *TypedStore[T]) List(ctx context.Context) ([]T, error) {
	kind, _ := registry.GetKind[T]()
	res, err := s.ds.Run(ctx, datastore.NewQuery(kind))
	if err != nil {
		return nil, err
	}
	var out []T
	for res.HasNext() {
		row, err := res.Next()
		if err != nil {
			return nil, err
		}
		v, err := decodeTyped[T](row.(*datastore.Entity))
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func encodeTyped[T any](key *datastore.Key, v T) (*datastore.Entity, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("type %T does not encode to a JSON object: %w", v, err)
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	b := datastore.NewEntityBuilder(key)
	for _, name := range names {
		val, err := fieldValue(fields[name])
		if err != nil {
			return nil, err
		}
		b.Set(name, val)
	}
	return b.Build()
}

// fieldValue maps a decoded JSON field to a typed value. Scalars map to
// their native variants; arrays and objects stay as raw JSON so they round
// trip without a schema.
func fieldValue(x any) (datastore.Value, error) {
	switch v := x.(type) {
	case nil:
		return datastore.NewNull(), nil
	case bool:
		return datastore.NewBool(v), nil
	case string:
		return datastore.NewString(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return datastore.NewInt(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return datastore.Value{}, fmt.Errorf("invalid number %q: %w", v.String(), err)
		}
		return datastore.NewFloat(f), nil
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return datastore.Value{}, fmt.Errorf("failed to marshal field: %w", err)
		}
		return datastore.NewRaw(raw), nil
	}
}

func decodeTyped[T any](e *datastore.Entity) (*T, error) {
	fields := make(map[string]any, len(e.Names()))
	for _, name := range e.Names() {
		v, err := e.GetValue(name)
		if err != nil {
			return nil, err
		}
		x, err := fieldJSON(v)
		if err != nil {
			return nil, err
		}
		fields[name] = x
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stored fields: %w", err)
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into %T: %w", out, err)
	}
	return out, nil
}

func fieldJSON(v datastore.Value) (any, error) {
	switch v.Type() {
	case datastore.TypeNull:
		return nil, nil
	case datastore.TypeRaw:
		return v.Get().(json.RawMessage), nil
	case datastore.TypeKey:
		return v.Get().(*datastore.Key).String(), nil
	default:
		return v.Get(), nil
	}
}
