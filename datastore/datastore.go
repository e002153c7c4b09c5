/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/strandsoft/docstore/errors"
)

// Config carries the identity every key created or checked by a client
// must match.
type Config struct {
	Dataset   string
	Namespace string
}

func (c Config) validate() error {
	if c.Dataset == "" {
		return errors.New(errors.InvalidArgument, "dataset must not be empty")
	}
	return nil
}

// DataStore is a client for one dataset and namespace. All reads and writes
// go through the Remote it was opened with. A DataStore is safe for
// concurrent use.
type DataStore struct {
	remote Remote
	cfg    Config
	coord  Coordinator
}

// New creates a client over the given remote.
func New(remote Remote, cfg Config, opts ...Option) (*DataStore, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if remote == nil {
		return nil, errors.New(errors.InvalidArgument, "remote must not be nil")
	}
	ds := &DataStore{remote: remote, cfg: cfg, coord: noopCoordinator{}}
	for _, opt := range opts {
		opt(ds)
	}
	return ds, nil
}

// Option customizes a DataStore.
type Option func(*DataStore)

// WithCoordinator installs an ambient transaction coordinator. When the
// coordinator reports an active scope, one-shot writes join its
// transaction instead of committing directly.
func WithCoordinator(c Coordinator) Option {
	return func(ds *DataStore) { ds.coord = c }
}

// Dataset returns the dataset this client operates on.
func (ds *DataStore) Dataset() string { return ds.cfg.Dataset }

// Namespace returns the client's default namespace.
func (ds *DataStore) Namespace() string { return ds.cfg.Namespace }

// NewKeyFactory returns a factory producing keys stamped with the client's
// dataset and namespace.
func (ds *DataStore) NewKeyFactory(kind string) *KeyFactory {
	return newKeyFactory(ds.cfg.Dataset, ds.cfg.Namespace, kind)
}

func (ds *DataStore) checkKeyed(keys ...*Key) error {
	for _, k := range keys {
		if k == nil {
			return errors.New(errors.InvalidArgument, "key must not be nil")
		}
		if k.Dataset() != ds.cfg.Dataset {
			return errors.Newf(errors.InvalidArgument,
				"key dataset %q does not match client dataset %q", k.Dataset(), ds.cfg.Dataset)
		}
	}
	return nil
}

// Get fetches the entity for a key. A missing key yields (nil, nil).
func (ds *DataStore) Get(ctx context.Context, key *Key) (*Entity, error) {
	got, err := ds.GetMulti(ctx, key)
	if err != nil {
		return nil, err
	}
	return got[0], nil
}

// GetMulti fetches entities for several keys in one round trip. The result
// is positional: result[i] is the entity for keys[i], nil when absent.
// Duplicate keys are fetched once and fanned back out.
func (ds *DataStore) GetMulti(ctx context.Context, keys ...*Key) ([]*Entity, error) {
	return ds.lookup(ctx, nil, keys)
}

func (ds *DataStore) lookup(ctx context.Context, txn []byte, keys []*Key) ([]*Entity, error) {
	if err := ds.checkKeyed(keys...); err != nil {
		return nil, err
	}
	unique := make([]*Key, 0, len(keys))
	index := make(map[string]int, len(keys))
	for _, k := range keys {
		if _, ok := index[k.String()]; !ok {
			index[k.String()] = len(unique)
			unique = append(unique, k)
		}
	}
	found, err := ds.remote.Lookup(ctx, unique, txn)
	if err != nil {
		return nil, err
	}
	out := make([]*Entity, len(keys))
	for i, k := range keys {
		out[i] = found[index[k.String()]]
	}
	return out, nil
}

// Run executes a structured or textual query and returns a lazy result
// sequence.
func (ds *DataStore) Run(ctx context.Context, q Queryable) (*Results, error) {
	return ds.run(ctx, nil, q)
}

func (ds *DataStore) run(ctx context.Context, txn []byte, q Queryable) (*Results, error) {
	resolved, err := q.resolve()
	if err != nil {
		return nil, err
	}
	req := resolved.toRequest(ds.cfg.Dataset, ds.cfg.Namespace)
	req.Txn = txn
	return &Results{
		ctx:        ctx,
		remote:     ds.remote,
		req:        req,
		resultType: resolved.ResultType(),
	}, nil
}

// AllocateID reserves a fresh numeric id for a partial key.
func (ds *DataStore) AllocateID(ctx context.Context, key *PartialKey) (*Key, error) {
	got, err := ds.AllocateIDs(ctx, key)
	if err != nil {
		return nil, err
	}
	return got[0], nil
}

// AllocateIDs reserves fresh ids for several partial keys positionally.
// Allocated ids are consumed even if the caller never writes them.
func (ds *DataStore) AllocateIDs(ctx context.Context, keys ...*PartialKey) ([]*Key, error) {
	for _, k := range keys {
		if k == nil {
			return nil, errors.New(errors.InvalidArgument, "key must not be nil")
		}
		if k.Dataset() != ds.cfg.Dataset {
			return nil, errors.Newf(errors.InvalidArgument,
				"key dataset %q does not match client dataset %q", k.Dataset(), ds.cfg.Dataset)
		}
	}
	return ds.remote.AllocateIDs(ctx, keys)
}

// Add writes entities that must not already exist. Entities with incomplete
// keys get server-allocated ids; the returned slice is positional, holding
// the completed entity for each input. Under an ambient transaction, ids
// for incomplete keys are allocated up front so the completed entities can
// be returned before the scope commits.
func (ds *DataStore) Add(ctx context.Context, entities ...EntityLike) ([]*Entity, error) {
	if txn, ok := ds.coord.Ambient(ctx); ok {
		completed, err := ds.completeAll(ctx, entities)
		if err != nil {
			return nil, err
		}
		likes := make([]EntityLike, len(completed))
		for i, e := range completed {
			likes[i] = e
		}
		if err := txn.Add(likes...); err != nil {
			return nil, err
		}
		return completed, nil
	}
	b := ds.NewBatch()
	if err := b.Add(entities...); err != nil {
		return nil, err
	}
	resp, err := b.Submit(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Entities(), nil
}

func (ds *DataStore) completeAll(ctx context.Context, entities []EntityLike) ([]*Entity, error) {
	out := make([]*Entity, len(entities))
	var partials []*PartialKey
	var at []int
	for i, e := range entities {
		if e == nil {
			return nil, errors.New(errors.InvalidArgument, "entity must not be nil")
		}
		pe := e.partial()
		if pe.HasCompleteKey() {
			e, err := asEntity(pe)
			if err != nil {
				return nil, err
			}
			out[i] = e
		} else {
			partials = append(partials, pe.Key())
			at = append(at, i)
		}
	}
	if len(partials) == 0 {
		return out, nil
	}
	keys, err := ds.AllocateIDs(ctx, partials...)
	if err != nil {
		return nil, err
	}
	for j, i := range at {
		e, err := EntityBuilderFrom(entities[i]).Key(keys[j]).Build()
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// Put writes entities unconditionally, creating or replacing.
func (ds *DataStore) Put(ctx context.Context, entities ...*Entity) error {
	if txn, ok := ds.coord.Ambient(ctx); ok {
		return txn.Put(entities...)
	}
	b := ds.NewBatch()
	if err := b.Put(entities...); err != nil {
		return err
	}
	_, err := b.Submit(ctx)
	return err
}

// Update overwrites entities that must already exist.
func (ds *DataStore) Update(ctx context.Context, entities ...*Entity) error {
	if txn, ok := ds.coord.Ambient(ctx); ok {
		return txn.Update(entities...)
	}
	b := ds.NewBatch()
	if err := b.Update(entities...); err != nil {
		return err
	}
	_, err := b.Submit(ctx)
	return err
}

// Delete removes the entities for the given keys. Deleting an absent key
// is not an error.
func (ds *DataStore) Delete(ctx context.Context, keys ...*Key) error {
	if txn, ok := ds.coord.Ambient(ctx); ok {
		return txn.Delete(keys...)
	}
	b := ds.NewBatch()
	if err := b.Delete(keys...); err != nil {
		return err
	}
	_, err := b.Submit(ctx)
	return err
}

// NewBatch starts an empty single-use batch.
func (ds *DataStore) NewBatch() *Batch {
	return &Batch{writer: newWriter(ds, "batch")}
}

// NewTransaction begins a remote transaction and returns a handle over it.
func (ds *DataStore) NewTransaction(ctx context.Context) (*Transaction, error) {
	handle, err := ds.remote.BeginTransaction(ctx)
	if err != nil {
		return nil, err
	}
	return &Transaction{writer: newWriter(ds, "transaction"), handle: handle}, nil
}

// RunInTransaction begins a transaction, calls fn with it, and commits.
// If fn returns an error the transaction rolls back and that error is
// returned. Aborted commits are not retried here; retry policy belongs to
// the caller, who knows whether fn is safe to rerun.
func (ds *DataStore) RunInTransaction(ctx context.Context, fn func(*Transaction) error) error {
	txn, err := ds.NewTransaction(ctx)
	if err != nil {
		return err
	}
	if err := fn(txn); err != nil {
		_ = txn.Rollback(ctx)
		return err
	}
	_, err = txn.Commit(ctx)
	return err
}
