/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import (
	"strconv"
	"strings"

	"github.com/strandsoft/docstore/errors"
)

// PathElement is a single element in a key's ancestor path. An element is
// complete when it carries an id or a name; only the terminal element of a
// partial key may be incomplete.
type PathElement struct {
	kind string
	id   int64
	name string
}

// PathElementID creates a complete path element identified by a numeric id.
func PathElementID(kind string, id int64) PathElement {
	return PathElement{kind: kind, id: id}
}

// PathElementName creates a complete path element identified by a name.
func PathElementName(kind, name string) PathElement {
	return PathElement{kind: kind, name: name}
}

// Kind returns the element's kind.
func (p PathElement) Kind() string { return p.kind }

// ID returns the numeric id, zero when the element is named or incomplete.
func (p PathElement) ID() int64 { return p.id }

// Name returns the name, empty when the element is numeric or incomplete.
func (p PathElement) Name() string { return p.name }

// HasID reports whether the element is identified by a numeric id.
func (p PathElement) HasID() bool { return p.id != 0 }

// HasName reports whether the element is identified by a name.
func (p PathElement) HasName() bool { return p.name != "" }

// Complete reports whether the element has an id or a name.
func (p PathElement) Complete() bool { return p.HasID() || p.HasName() }

func (p PathElement) String() string {
	switch {
	case p.HasID():
		return p.kind + ":" + strconv.FormatInt(p.id, 10)
	case p.HasName():
		return p.kind + ":" + strconv.Quote(p.name)
	default:
		return p.kind
	}
}

// PartialKey identifies a kind within a dataset, namespace and ancestor
// path, without naming a particular entity. Submitting a partial key for a
// mutation makes the store allocate the terminal id.
type PartialKey struct {
	dataset   string
	namespace string
	kind      string
	ancestors []PathElement
}

// Dataset returns the dataset the key belongs to.
func (k *PartialKey) Dataset() string { return k.dataset }

// Namespace returns the optional namespace, empty for the default one.
func (k *PartialKey) Namespace() string { return k.namespace }

// Kind returns the kind of the terminal path element.
func (k *PartialKey) Kind() string { return k.kind }

// Ancestors returns the ordered chain of complete elements above this key.
func (k *PartialKey) Ancestors() []PathElement {
	out := make([]PathElement, len(k.ancestors))
	copy(out, k.ancestors)
	return out
}

// Path returns the full path including the (incomplete) terminal element.
func (k *PartialKey) Path() []PathElement {
	out := make([]PathElement, 0, len(k.ancestors)+1)
	out = append(out, k.ancestors...)
	return append(out, PathElement{kind: k.kind})
}

// Equal reports structural equality: dataset, namespace, ancestor chain
// (lexical by sequence) and kind.
func (k *PartialKey) Equal(o *PartialKey) bool {
	if k == nil || o == nil {
		return k == o
	}
	if k.dataset != o.dataset || k.namespace != o.namespace || k.kind != o.kind {
		return false
	}
	if len(k.ancestors) != len(o.ancestors) {
		return false
	}
	for i, a := range k.ancestors {
		if a != o.ancestors[i] {
			return false
		}
	}
	return true
}

func (k *PartialKey) String() string {
	var sb strings.Builder
	sb.WriteString(k.dataset)
	sb.WriteByte('|')
	sb.WriteString(k.namespace)
	for _, a := range k.ancestors {
		sb.WriteByte('/')
		sb.WriteString(a.String())
	}
	sb.WriteByte('/')
	sb.WriteString(k.kind)
	return sb.String()
}

// Key is a PartialKey whose terminal element is complete: it carries exactly
// one of a numeric id or a name.
type Key struct {
	PartialKey
	id   int64
	name string
}

// HasID reports whether the key's terminal element carries a numeric id.
func (k *Key) HasID() bool { return k.id != 0 }

// HasName reports whether the key's terminal element carries a name.
func (k *Key) HasName() bool { return k.name != "" }

// ID returns the terminal id, zero for named keys.
func (k *Key) ID() int64 { return k.id }

// Name returns the terminal name, empty for numeric keys.
func (k *Key) Name() string { return k.name }

// PathElement returns the complete terminal element.
func (k *Key) PathElement() PathElement {
	return PathElement{kind: k.kind, id: k.id, name: k.name}
}

// Path returns the full path including the terminal element.
func (k *Key) Path() []PathElement {
	out := make([]PathElement, 0, len(k.ancestors)+1)
	out = append(out, k.ancestors...)
	return append(out, k.PathElement())
}

// IncompleteKey strips the terminal id or name, yielding the partial key a
// fresh id can be allocated for.
func (k *Key) IncompleteKey() *PartialKey {
	pk := k.PartialKey
	pk.ancestors = k.Ancestors()
	return &pk
}

// Equal reports structural equality including the terminal id or name.
func (k *Key) Equal(o *Key) bool {
	if k == nil || o == nil {
		return k == o
	}
	return k.id == o.id && k.name == o.name && k.PartialKey.Equal(&o.PartialKey)
}

func (k *Key) String() string {
	var sb strings.Builder
	sb.WriteString(k.dataset)
	sb.WriteByte('|')
	sb.WriteString(k.namespace)
	for _, a := range k.ancestors {
		sb.WriteByte('/')
		sb.WriteString(a.String())
	}
	sb.WriteByte('/')
	sb.WriteString(k.PathElement().String())
	return sb.String()
}

// compareKeys orders keys by dataset, namespace and then path, elementwise.
// Within an element, ids order before names, ids numerically, names
// lexically. This is the "__key__" sort order.
// hasAncestor reports whether anc's full path is a prefix of key's path,
// the key itself included.
func hasAncestor(key, anc *Key) bool {
	if key.Dataset() != anc.Dataset() || key.Namespace() != anc.Namespace() {
		return false
	}
	kp, ap := key.Path(), anc.Path()
	if len(ap) > len(kp) {
		return false
	}
	for i, el := range ap {
		if comparePathElements(el, kp[i]) != 0 {
			return false
		}
	}
	return true
}

func compareKeys(a, b *Key) int {
	if c := strings.Compare(a.dataset, b.dataset); c != 0 {
		return c
	}
	if c := strings.Compare(a.namespace, b.namespace); c != 0 {
		return c
	}
	pa, pb := a.Path(), b.Path()
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if c := comparePathElements(pa[i], pb[i]); c != 0 {
			return c
		}
	}
	return len(pa) - len(pb)
}

func comparePathElements(a, b PathElement) int {
	if c := strings.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	switch {
	case a.HasID() && b.HasID():
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	case a.HasID():
		return -1
	case b.HasID():
		return 1
	default:
		return strings.Compare(a.name, b.name)
	}
}

// KeyBuilder builds PartialKey and Key values. The zero value is not usable;
// construct one with NewKeyBuilder, KeyBuilderFrom, PartialKeyBuilderFrom or
// ChildKeyBuilder.
type KeyBuilder struct {
	dataset   string
	namespace string
	kind      string
	ancestors []PathElement
	id        int64
	name      string
}

// NewKeyBuilder starts a builder from raw dataset and kind.
func NewKeyBuilder(dataset, kind string) *KeyBuilder {
	return &KeyBuilder{dataset: dataset, kind: kind}
}

// PartialKeyBuilderFrom starts a builder pre-populated from an existing
// partial key, for copy-and-override construction.
func PartialKeyBuilderFrom(k *PartialKey) *KeyBuilder {
	return &KeyBuilder{
		dataset:   k.dataset,
		namespace: k.namespace,
		kind:      k.kind,
		ancestors: k.Ancestors(),
	}
}

// KeyBuilderFrom starts a builder pre-populated from an existing key,
// including its terminal id or name.
func KeyBuilderFrom(k *Key) *KeyBuilder {
	b := PartialKeyBuilderFrom(&k.PartialKey)
	b.id = k.id
	b.name = k.name
	return b
}

// ChildKeyBuilder starts a builder for a child of parent with the given
// kind. The parent's full path becomes the ancestor chain.
func ChildKeyBuilder(parent *Key, kind string) *KeyBuilder {
	return &KeyBuilder{
		dataset:   parent.dataset,
		namespace: parent.namespace,
		kind:      kind,
		ancestors: parent.Path(),
	}
}

// Dataset overrides the dataset.
func (b *KeyBuilder) Dataset(dataset string) *KeyBuilder {
	b.dataset = dataset
	return b
}

// Namespace overrides the namespace.
func (b *KeyBuilder) Namespace(namespace string) *KeyBuilder {
	b.namespace = namespace
	return b
}

// Kind overrides the terminal kind.
func (b *KeyBuilder) Kind(kind string) *KeyBuilder {
	b.kind = kind
	return b
}

// Ancestors replaces the ancestor chain.
func (b *KeyBuilder) Ancestors(ancestors ...PathElement) *KeyBuilder {
	b.ancestors = append([]PathElement(nil), ancestors...)
	return b
}

// ID sets the terminal id, clearing any name.
func (b *KeyBuilder) ID(id int64) *KeyBuilder {
	b.id = id
	b.name = ""
	return b
}

// Name sets the terminal name, clearing any id.
func (b *KeyBuilder) Name(name string) *KeyBuilder {
	b.name = name
	b.id = 0
	return b
}

func (b *KeyBuilder) validate() error {
	if b.dataset == "" {
		return errors.New(errors.InvalidArgument, "key dataset must not be empty")
	}
	if b.kind == "" {
		return errors.New(errors.InvalidArgument, "key kind must not be empty")
	}
	for i, a := range b.ancestors {
		if a.kind == "" {
			return errors.Newf(errors.InvalidArgument, "ancestor %d has an empty kind", i)
		}
		if !a.Complete() {
			return errors.Newf(errors.InvalidArgument,
				"ancestor %d (%s) must have an id or a name", i, a.kind)
		}
		if a.HasID() && a.HasName() {
			return errors.Newf(errors.InvalidArgument,
				"ancestor %d (%s) has both an id and a name", i, a.kind)
		}
	}
	return nil
}

// BuildPartial builds a PartialKey, leaving the terminal element incomplete
// regardless of any id or name set on the builder.
func (b *KeyBuilder) BuildPartial() (*PartialKey, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &PartialKey{
		dataset:   b.dataset,
		namespace: b.namespace,
		kind:      b.kind,
		ancestors: append([]PathElement(nil), b.ancestors...),
	}, nil
}

// Build builds a complete Key. The terminal element must carry an id or a
// name.
func (b *KeyBuilder) Build() (*Key, error) {
	pk, err := b.BuildPartial()
	if err != nil {
		return nil, err
	}
	if b.id == 0 && b.name == "" {
		return nil, errors.New(errors.InvalidArgument, "key must have an id or a name")
	}
	return &Key{PartialKey: *pk, id: b.id, name: b.name}, nil
}

// CompleteKey builds a Key for a partial key and a store-allocated id.
func CompleteKey(pk *PartialKey, id int64) (*Key, error) {
	if id == 0 {
		return nil, errors.New(errors.InvalidArgument, "allocated id must not be zero")
	}
	return PartialKeyBuilderFrom(pk).ID(id).Build()
}
