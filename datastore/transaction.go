/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/strandsoft/docstore/errors"
)

// Transaction stages mutations like a Batch and additionally serves reads
// and queries from the consistent snapshot established when it began. The
// store rejects the commit with an Aborted error when anything the
// transaction read or wrote was concurrently modified after the snapshot.
//
// A Transaction is single-use: after Commit has been sent or Rollback has
// run, every further call fails with FailedPrecondition. Rollback itself
// is idempotent.
type Transaction struct {
	*writer
	handle []byte
}

// Active reports whether the transaction can still stage, read and commit.
func (t *Transaction) Active() bool { return t.state == writerOpen }

// Get reads a key within the transaction snapshot. A missing key yields
// (nil, nil).
func (t *Transaction) Get(ctx context.Context, key *Key) (*Entity, error) {
	got, err := t.GetMulti(ctx, key)
	if err != nil {
		return nil, err
	}
	return got[0], nil
}

// GetMulti reads several keys within the transaction snapshot, positional
// like DataStore.GetMulti.
func (t *Transaction) GetMulti(ctx context.Context, keys ...*Key) ([]*Entity, error) {
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}
	return t.ds.lookup(ctx, t.handle, keys)
}

// Run executes a query within the transaction snapshot.
func (t *Transaction) Run(ctx context.Context, q Queryable) (*Results, error) {
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}
	return t.ds.run(ctx, t.handle, q)
}

// Commit sends the staged mutations together with the transaction handle.
// An Aborted error means a conflicting concurrent write was detected and
// nothing was applied; the caller may retry with a fresh transaction.
func (t *Transaction) Commit(ctx context.Context) (*BatchResponse, error) {
	res, err := t.submit(ctx, t.handle)
	if err != nil {
		return nil, err
	}
	completed, err := t.completedAdds(res)
	if err != nil {
		return nil, err
	}
	return &BatchResponse{
		generated: append([]*Key(nil), res.AllocatedKeys...),
		completed: completed,
	}, nil
}

// Rollback discards the staged mutations and releases the handle. Calling
// it again is a no-op; calling it after Commit fails.
func (t *Transaction) Rollback(ctx context.Context) error {
	switch t.state {
	case writerSubmitted:
		return errors.New(errors.FailedPrecondition, "transaction already committed")
	case writerRolledBack:
		return nil
	}
	t.state = writerRolledBack
	return t.ds.remote.Rollback(ctx, t.handle)
}
