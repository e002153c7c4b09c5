/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import (
	"context"
)

// MutationOp identifies what a staged mutation does to its target key.
type MutationOp int

const (
	// OpInsert adds a new entity; the commit fails with AlreadyExists when
	// the key is already present.
	OpInsert MutationOp = iota + 1

	// OpUpsert replaces unconditionally regardless of prior existence.
	OpUpsert

	// OpUpdate replaces an existing entity; the commit fails with NotFound
	// when the key is absent.
	OpUpdate

	// OpDelete removes the key; deleting an absent key is not an error.
	OpDelete
)

func (op MutationOp) String() string {
	switch op {
	case OpInsert:
		return "insert"
	case OpUpsert:
		return "upsert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Mutation is one staged operation, recorded in submission order. Entity is
// set for insert/upsert/update, Key for delete. An insert's entity may
// carry an incomplete key; the store allocates the id during commit.
type Mutation struct {
	Op     MutationOp
	Entity *PartialEntity
	Key    *Key
}

// CommitResult reports a successful commit. AllocatedKeys holds the
// complete keys assigned to incomplete-keyed inserts, in mutation order.
type CommitResult struct {
	AllocatedKeys []*Key
}

// QueryPage is one lazily fetched page of query rows. Rows are full
// entities; the caller shapes them into keys or projections per the query's
// result type.
type QueryPage struct {
	Rows   []*Entity
	Cursor string
	More   bool
}

// Remote is the store collaborator the client core drives. Implementations
// own wire encoding, transport, retries and credentials; the core issues
// exactly one Remote call per submit/commit/get/run/allocate invocation.
//
// A non-nil txn argument scopes the call to the consistent snapshot of the
// transaction it was issued from.
type Remote interface {
	// Lookup resolves keys to entities, nil for absent keys, same length
	// and order as the input.
	Lookup(ctx context.Context, keys []*Key, txn []byte) ([]*Entity, error)

	// RunQuery returns the next page for the request, honoring its cursor.
	RunQuery(ctx context.Context, req *QueryRequest) (*QueryPage, error)

	// Commit applies the mutations atomically. With a transaction handle it
	// must detect write-write conflicts against the snapshot and fail the
	// whole commit with an Aborted error. No partial commit is observable.
	Commit(ctx context.Context, mutations []Mutation, txn []byte) (*CommitResult, error)

	// BeginTransaction establishes a snapshot and returns its opaque handle.
	BeginTransaction(ctx context.Context) ([]byte, error)

	// Rollback releases a transaction handle. Rolling back an unknown or
	// already released handle is not an error.
	Rollback(ctx context.Context, txn []byte) error

	// AllocateIDs completes partial keys, same length and order as the
	// input; duplicate inputs each get their own freshly allocated id.
	AllocateIDs(ctx context.Context, keys []*PartialKey) ([]*Key, error)
}
