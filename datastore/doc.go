/*
Package datastore is the typed client model for a remote schemaless
document store: keys with ancestor paths, tagged immutable values,
entities, queries, and staged mutations submitted one-shot, batched, or
inside an optimistic-concurrency transaction.

The package talks to the store through the Remote interface:

	type Remote interface {
	    Lookup(ctx context.Context, keys []*Key, txn []byte) ([]*Entity, error)
	    RunQuery(ctx context.Context, req *QueryRequest) (*QueryPage, error)
	    Commit(ctx context.Context, mutations []Mutation, txn []byte) (*CommitResult, error)
	    BeginTransaction(ctx context.Context) ([]byte, error)
	    Rollback(ctx context.Context, txn []byte) error
	    AllocateIDs(ctx context.Context, keys []*PartialKey) ([]*Key, error)
	}

Implementations:
  - memstore: in-memory store for tests and local development
  - ddb: DynamoDB-backed store using single-table design

Values, keys and entities are immutable once built; builders stage changes
and produce fresh instances, so shared data never needs defensive copying
by callers.
*/
package datastore
