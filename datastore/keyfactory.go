/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

// KeyFactory builds keys for one dataset, namespace and kind, so call
// sites don't repeat the client identity. Obtain one from
// DataStore.NewKeyFactory; the zero value is not usable.
type KeyFactory struct {
	dataset   string
	namespace string
	kind      string
	ancestors []PathElement
}

func newKeyFactory(dataset, namespace, kind string) *KeyFactory {
	return &KeyFactory{dataset: dataset, namespace: namespace, kind: kind}
}

// Kind returns a factory for another kind with the same identity and
// ancestors.
func (f *KeyFactory) Kind(kind string) *KeyFactory {
	c := *f
	c.kind = kind
	c.ancestors = append([]PathElement(nil), f.ancestors...)
	return &c
}

// Ancestors returns a factory producing keys under the given path.
func (f *KeyFactory) Ancestors(ancestors ...PathElement) *KeyFactory {
	c := *f
	c.ancestors = append(append([]PathElement(nil), f.ancestors...), ancestors...)
	return &c
}

func (f *KeyFactory) builder() *KeyBuilder {
	b := NewKeyBuilder(f.dataset, f.kind).Namespace(f.namespace)
	if len(f.ancestors) > 0 {
		b = b.Ancestors(f.ancestors...)
	}
	return b
}

// NewKey returns an incomplete key awaiting an allocated id.
func (f *KeyFactory) NewKey() (*PartialKey, error) {
	return f.builder().BuildPartial()
}

// NewKeyWithID returns a complete key with a caller-chosen numeric id.
func (f *KeyFactory) NewKeyWithID(id int64) (*Key, error) {
	return f.builder().ID(id).Build()
}

// NewKeyWithName returns a complete key with a caller-chosen name.
func (f *KeyFactory) NewKeyWithName(name string) (*Key, error) {
	return f.builder().Name(name).Build()
}
