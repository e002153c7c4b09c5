/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/strandsoft/docstore/errors"
)

type writerState int

const (
	writerOpen writerState = iota
	writerSubmitted
	writerRolledBack
)

// writer is the staging core shared by Batch and Transaction: an ordered
// mutation list with single-use semantics. Once a submit attempt has been
// sent to the store the writer is unusable regardless of outcome; failures
// raised before anything is sent leave it open.
type writer struct {
	ds      *DataStore
	label   string
	state   writerState
	muts    []Mutation
	addEnts []*PartialEntity
}

func newWriter(ds *DataStore, label string) *writer {
	return &writer{ds: ds, label: label}
}

func (w *writer) ensureOpen() error {
	if w.state != writerOpen {
		return errors.Newf(errors.FailedPrecondition, "%s is no longer usable", w.label)
	}
	return nil
}

func (w *writer) checkEntities(entities []EntityLike) ([]*PartialEntity, error) {
	out := make([]*PartialEntity, len(entities))
	for i, e := range entities {
		if e == nil {
			return nil, errors.New(errors.InvalidArgument, "entity must not be nil")
		}
		pe := e.partial()
		if pe.Key().Dataset() != w.ds.cfg.Dataset {
			return nil, errors.Newf(errors.InvalidArgument,
				"entity dataset %q does not match client dataset %q",
				pe.Key().Dataset(), w.ds.cfg.Dataset)
		}
		out[i] = pe
	}
	return out, nil
}

// Add stages inserts. Entities with incomplete keys are allowed; the store
// allocates their ids at submit.
func (w *writer) Add(entities ...EntityLike) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	pes, err := w.checkEntities(entities)
	if err != nil {
		return err
	}
	for _, pe := range pes {
		w.muts = append(w.muts, Mutation{Op: OpInsert, Entity: pe})
		w.addEnts = append(w.addEnts, pe)
	}
	return nil
}

// Put stages unconditional writes.
func (w *writer) Put(entities ...*Entity) error {
	return w.stageComplete(OpUpsert, entities)
}

// Update stages writes that require the key to already exist.
func (w *writer) Update(entities ...*Entity) error {
	return w.stageComplete(OpUpdate, entities)
}

func (w *writer) stageComplete(op MutationOp, entities []*Entity) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	likes := make([]EntityLike, len(entities))
	for i, e := range entities {
		likes[i] = e
	}
	pes, err := w.checkEntities(likes)
	if err != nil {
		return err
	}
	for _, pe := range pes {
		w.muts = append(w.muts, Mutation{Op: op, Entity: pe})
	}
	return nil
}

// Delete stages removals. Deleting an absent key is not an error.
func (w *writer) Delete(keys ...*Key) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	if err := w.ds.checkKeyed(keys...); err != nil {
		return err
	}
	for _, k := range keys {
		w.muts = append(w.muts, Mutation{Op: OpDelete, Key: k})
	}
	return nil
}

func (w *writer) submit(ctx context.Context, txn []byte) (*CommitResult, error) {
	if err := w.ensureOpen(); err != nil {
		return nil, err
	}
	w.state = writerSubmitted
	return w.ds.remote.Commit(ctx, w.muts, txn)
}

// completedAdds shapes the commit result back into complete entities, one
// per Add call in call order, allocated keys filled in positionally.
func (w *writer) completedAdds(res *CommitResult) ([]*Entity, error) {
	out := make([]*Entity, len(w.addEnts))
	next := 0
	for i, pe := range w.addEnts {
		if pe.HasCompleteKey() {
			e, err := asEntity(pe)
			if err != nil {
				return nil, err
			}
			out[i] = e
			continue
		}
		if next >= len(res.AllocatedKeys) {
			return nil, errors.New(errors.Internal, "commit result is missing allocated keys")
		}
		e, err := EntityBuilderFrom(pe).Key(res.AllocatedKeys[next]).Build()
		if err != nil {
			return nil, err
		}
		out[i] = e
		next++
	}
	return out, nil
}

// Batch stages mutations and submits them in one all-or-nothing request.
// A Batch is single-use and not safe for concurrent staging.
type Batch struct {
	*writer
}

// BatchResponse reports a successful submit.
type BatchResponse struct {
	generated []*Key
	completed []*Entity
}

// GeneratedKeys returns the keys allocated for incomplete-keyed Add calls,
// in the order those calls were issued.
func (r *BatchResponse) GeneratedKeys() []*Key {
	return append([]*Key(nil), r.generated...)
}

// Entities returns a complete entity per Add call in call order, with
// allocated keys filled in.
func (r *BatchResponse) Entities() []*Entity {
	return append([]*Entity(nil), r.completed...)
}

// Submit sends the staged mutations in one request. After the request has
// been sent the batch is spent, whatever the outcome.
func (b *Batch) Submit(ctx context.Context) (*BatchResponse, error) {
	res, err := b.submit(ctx, nil)
	if err != nil {
		return nil, err
	}
	completed, err := b.completedAdds(res)
	if err != nil {
		return nil, err
	}
	return &BatchResponse{
		generated: append([]*Key(nil), res.AllocatedKeys...),
		completed: completed,
	}, nil
}
