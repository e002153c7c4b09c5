/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import "context"

// Coordinator exposes an ambient transaction scope. When a scope is active
// for a context, one-shot writes issued with that context join the scope's
// transaction instead of committing on their own; the scope owner commits
// or rolls back.
type Coordinator interface {
	// Ambient returns the transaction governing ctx, if any.
	Ambient(ctx context.Context) (*Transaction, bool)
}

type noopCoordinator struct{}

func (noopCoordinator) Ambient(context.Context) (*Transaction, bool) { return nil, false }

type txnCtxKey struct{}

// WithTransaction returns a context whose one-shot writes join txn when the
// client was opened with the ContextCoordinator.
func WithTransaction(ctx context.Context, txn *Transaction) context.Context {
	return context.WithValue(ctx, txnCtxKey{}, txn)
}

// ContextCoordinator resolves the ambient transaction from context values
// set by WithTransaction. Spent transactions are ignored.
type ContextCoordinator struct{}

func (ContextCoordinator) Ambient(ctx context.Context) (*Transaction, bool) {
	txn, ok := ctx.Value(txnCtxKey{}).(*Transaction)
	if !ok || txn == nil || !txn.Active() {
		return nil, false
	}
	return txn, true
}
