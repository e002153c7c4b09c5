/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/strandsoft/docstore/datastore"
	"github.com/strandsoft/docstore/errors"
	"github.com/strandsoft/docstore/registry"
)

func init() {
	registry.RegisterDriver("mem", func(map[string]string) (datastore.Remote, error) {
		return New(), nil
	})
}

// version is one committed state of a key. A nil entity is a tombstone, so
// deletes stay visible to conflict detection.
type version struct {
	seq    uint64
	entity *datastore.Entity
}

// record holds the committed versions of one key, oldest first. Records are
// never removed; reads pick the version visible at their snapshot.
type record struct {
	versions []version
}

func (r *record) latest() version {
	return r.versions[len(r.versions)-1]
}

func (r *record) at(snapshot uint64) *datastore.Entity {
	for i := len(r.versions) - 1; i >= 0; i-- {
		if r.versions[i].seq <= snapshot {
			return r.versions[i].entity
		}
	}
	return nil
}

type txnState struct {
	snapshot uint64
	// keys read or written through the transaction; any of them changing
	// after the snapshot aborts the commit
	touched map[string]bool
}

// Store is an in-memory Remote for tests and local development. All state
// lives in process; a Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	seq     uint64
	nextID  int64
	records map[string]*record
	txns    map[string]*txnState
}

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:  1,
		records: make(map[string]*record),
		txns:    make(map[string]*txnState),
	}
}

var _ datastore.Remote = (*Store)(nil)

// Lookup resolves keys to stored entities, nil for absent keys. Reads
// issued with a transaction handle observe the transaction's snapshot and
// join its conflict set.
func (s *Store) Lookup(_ context.Context, keys []*datastore.Key, txn []byte) ([]*datastore.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.txnFor(txn)
	if err != nil {
		return nil, err
	}
	out := make([]*datastore.Entity, len(keys))
	for i, k := range keys {
		ks := k.String()
		if state != nil {
			state.touched[ks] = true
		}
		if rec, ok := s.records[ks]; ok {
			if state != nil {
				out[i] = rec.at(state.snapshot)
			} else {
				out[i] = rec.latest().entity
			}
		}
	}
	return out, nil
}

// RunQuery evaluates the request over the full table and returns all rows
// in a single page.
func (s *Store) RunQuery(_ context.Context, req *datastore.QueryRequest) (*datastore.QueryPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.txnFor(req.Txn)
	if err != nil {
		return nil, err
	}
	rows := make([]*datastore.Entity, 0, len(s.records))
	for _, rec := range s.records {
		e := rec.latest().entity
		if state != nil {
			e = rec.at(state.snapshot)
		}
		if e != nil {
			rows = append(rows, e)
		}
	}
	out := req.Evaluate(rows)
	if state != nil {
		for _, e := range out {
			state.touched[e.Key().String()] = true
		}
	}
	return &datastore.QueryPage{Rows: out, More: false}, nil
}

// Commit validates then applies all mutations, so failures never leave a
// partial write behind. With a transaction handle it first checks every
// touched and written key against the snapshot and aborts on conflict.
func (s *Store) Commit(_ context.Context, mutations []datastore.Mutation, txn []byte) (*datastore.CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state *txnState
	if txn != nil {
		var ok bool
		state, ok = s.txns[string(txn)]
		if !ok {
			return nil, errors.New(errors.FailedPrecondition, "unknown transaction handle")
		}
		// the handle is consumed whatever the outcome
		delete(s.txns, string(txn))
		if err := s.checkConflicts(state, mutations); err != nil {
			return nil, err
		}
	}

	type staged struct {
		key    string
		entity *datastore.Entity // nil deletes
	}
	var apply []staged
	var allocated []*datastore.Key

	for _, m := range mutations {
		switch m.Op {
		case datastore.OpDelete:
			apply = append(apply, staged{key: m.Key.String()})
		case datastore.OpInsert, datastore.OpUpsert, datastore.OpUpdate:
			e, key, err := s.materialize(m, &allocated)
			if err != nil {
				return nil, err
			}
			if m.Op == datastore.OpInsert && s.stored(key) != nil {
				return nil, errors.Newf(errors.AlreadyExists, "key %s already exists", key)
			}
			if m.Op == datastore.OpUpdate && s.stored(key) == nil {
				return nil, errors.Newf(errors.NotFound, "key %s not found", key)
			}
			apply = append(apply, staged{key: key, entity: e})
		default:
			return nil, errors.Newf(errors.InvalidArgument, "unknown mutation op %v", m.Op)
		}
	}

	for _, st := range apply {
		s.seq++
		rec, ok := s.records[st.key]
		if !ok {
			rec = &record{}
			s.records[st.key] = rec
		}
		rec.versions = append(rec.versions, version{seq: s.seq, entity: st.entity})
	}
	return &datastore.CommitResult{AllocatedKeys: allocated}, nil
}

// stored returns the current committed entity for a key, nil when absent
// or deleted.
func (s *Store) stored(ks string) *datastore.Entity {
	rec, ok := s.records[ks]
	if !ok {
		return nil
	}
	return rec.latest().entity
}

func (s *Store) checkConflicts(state *txnState, mutations []datastore.Mutation) error {
	conflicts := func(ks string) bool {
		// deletes leave a tombstone version, so they conflict like any write
		rec, ok := s.records[ks]
		return ok && rec.latest().seq > state.snapshot
	}
	for ks := range state.touched {
		if conflicts(ks) {
			return errors.Newf(errors.Aborted, "concurrent modification of %s", ks)
		}
	}
	for _, m := range mutations {
		var ks string
		switch {
		case m.Key != nil:
			ks = m.Key.String()
		case m.Entity != nil && m.Entity.HasCompleteKey():
			ks = m.Entity.CompleteKey().String()
		default:
			continue
		}
		if conflicts(ks) {
			return errors.Newf(errors.Aborted, "concurrent modification of %s", ks)
		}
	}
	return nil
}

// materialize resolves a write mutation to its stored entity, allocating
// an id when the insert carries an incomplete key.
func (s *Store) materialize(m datastore.Mutation, allocated *[]*datastore.Key) (*datastore.Entity, string, error) {
	if m.Entity.HasCompleteKey() {
		e, err := datastore.EntityBuilderFrom(m.Entity).Build()
		if err != nil {
			return nil, "", err
		}
		return e, e.Key().String(), nil
	}
	if m.Op != datastore.OpInsert {
		return nil, "", errors.New(errors.InvalidArgument, "incomplete key on non-insert mutation")
	}
	key, err := datastore.CompleteKey(m.Entity.Key(), s.takeID())
	if err != nil {
		return nil, "", err
	}
	e, err := datastore.EntityBuilderFrom(m.Entity).Key(key).Build()
	if err != nil {
		return nil, "", err
	}
	*allocated = append(*allocated, key)
	return e, key.String(), nil
}

func (s *Store) takeID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// BeginTransaction snapshots the current write sequence and returns a
// fresh opaque handle.
func (s *Store) BeginTransaction(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := uuid.NewString()
	s.txns[handle] = &txnState{snapshot: s.seq, touched: make(map[string]bool)}
	return []byte(handle), nil
}

// Rollback discards transaction state. Unknown handles are ignored.
func (s *Store) Rollback(_ context.Context, txn []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.txns, string(txn))
	return nil
}

// AllocateIDs completes partial keys with fresh ids, one per input even
// when inputs repeat.
func (s *Store) AllocateIDs(_ context.Context, keys []*datastore.PartialKey) ([]*datastore.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*datastore.Key, len(keys))
	for i, pk := range keys {
		key, err := datastore.CompleteKey(pk, s.takeID())
		if err != nil {
			return nil, err
		}
		out[i] = key
	}
	return out, nil
}

func (s *Store) txnFor(txn []byte) (*txnState, error) {
	if txn == nil {
		return nil, nil
	}
	state, ok := s.txns[string(txn)]
	if !ok {
		return nil, errors.New(errors.FailedPrecondition, "unknown transaction handle")
	}
	return state, nil
}
