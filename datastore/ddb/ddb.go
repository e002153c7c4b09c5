/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/strandsoft/docstore/datastore"
	"github.com/strandsoft/docstore/errors"
	"github.com/strandsoft/docstore/registry"
)

// KindIndex is the GSI serving kind queries; its partition key is
// dataset|namespace|kind and its sort key is the entity key string.
const KindIndex = "gsi1"

const counterPrefix = "__id_alloc__|"

func init() {
	registry.RegisterDriver("dynamodb", func(params map[string]string) (datastore.Remote, error) {
		client, err := NewDynamoDBClient(
			params["access_key"], params["secret_key"], params["region"], params["endpoint"])
		if err != nil {
			return nil, err
		}
		table := params["table"]
		if table == "" {
			return nil, errors.New(errors.InvalidArgument, "dynamodb driver requires a table parameter")
		}
		return New(client, table), nil
	})
}

// Client is the slice of the DynamoDB API the store uses. *sdk.Client
// satisfies it; tests substitute a fake.
type Client interface {
	BatchGetItem(ctx context.Context, in *sdk.BatchGetItemInput, opts ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error)
	Query(ctx context.Context, in *sdk.QueryInput, opts ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *sdk.TransactWriteItemsInput, opts ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error)
	UpdateItem(ctx context.Context, in *sdk.UpdateItemInput, opts ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
}

// NewDynamoDBClient initializes a DynamoDB client using AWS credentials.
// An empty access key falls back to the default credential chain; endpoint
// overrides the service endpoint for local stacks.
func NewDynamoDBClient(awsAccessKey, awsSecretKey, awsRegion, endpoint string) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(awsRegion)}
	if awsAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsAccessKey, awsSecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(context.TODO(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	var clientOpts []func(*sdk.Options)
	if endpoint != "" {
		clientOpts = append(clientOpts, func(o *sdk.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	return sdk.NewFromConfig(cfg, clientOpts...), nil
}

// txnReads tracks the revision of every key a transaction has read, empty
// string for keys observed absent. Commit turns these into condition
// checks so any concurrent change aborts the whole write.
type txnReads struct {
	revs map[string]string
}

// record keeps the revision observed on the first read of a key. Later
// reads must not displace it, or the commit condition would check a
// post-snapshot revision and miss the conflict.
func (r *txnReads) record(ks, rev string) {
	if _, ok := r.revs[ks]; !ok {
		r.revs[ks] = rev
	}
}

// Store implements datastore.Remote on a single DynamoDB table. Snapshot
// state lives client-side: a transaction handle maps to the revisions it
// has read, and commit enforces them with conditional writes.
type Store struct {
	client Client
	table  string

	mu   sync.Mutex
	txns map[string]*txnReads
}

// New constructs a Store over an existing client and table.
func New(client Client, table string) *Store {
	return &Store{client: client, table: table, txns: make(map[string]*txnReads)}
}

var _ datastore.Remote = (*Store)(nil)

func itemKey(ks string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: ks},
		"sk": &types.AttributeValueMemberS{Value: ks},
	}
}

// Lookup fetches keys with BatchGetItem, chunked to the API limit of 100.
func (s *Store) Lookup(ctx context.Context, keys []*datastore.Key, txn []byte) ([]*datastore.Entity, error) {
	reads, err := s.readsFor(txn)
	if err != nil {
		return nil, err
	}

	found := make(map[string]*datastore.Entity, len(keys))
	revs := make(map[string]string, len(keys))
	for start := 0; start < len(keys); start += 100 {
		end := start + 100
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]
		reqKeys := make([]map[string]types.AttributeValue, len(chunk))
		for i, k := range chunk {
			reqKeys[i] = itemKey(k.String())
		}
		pending := map[string]types.KeysAndAttributes{s.table: {Keys: reqKeys, ConsistentRead: aws.Bool(true)}}
		for len(pending) > 0 {
			out, err := s.client.BatchGetItem(ctx, &sdk.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, fmt.Errorf("BatchGetItem error: %w", err)
			}
			for _, item := range out.Responses[s.table] {
				e, rev, err := decodeItem(item)
				if err != nil {
					return nil, err
				}
				ks := e.Key().String()
				found[ks] = e
				revs[ks] = rev
			}
			pending = nil
			if kas, ok := out.UnprocessedKeys[s.table]; ok && len(kas.Keys) > 0 {
				pending = map[string]types.KeysAndAttributes{s.table: kas}
			}
		}
	}

	out := make([]*datastore.Entity, len(keys))
	for i, k := range keys {
		ks := k.String()
		out[i] = found[ks]
		if reads != nil {
			reads.record(ks, revs[ks])
		}
	}
	return out, nil
}

// RunQuery pulls the kind partition from the GSI and evaluates the request
// client-side, so both drivers share one query semantics.
func (s *Store) RunQuery(ctx context.Context, req *datastore.QueryRequest) (*datastore.QueryPage, error) {
	reads, err := s.readsFor(req.Txn)
	if err != nil {
		return nil, err
	}

	rows, revs, err := s.fetchKind(ctx, kindPartition(req.Dataset, req.Namespace, req.Kind))
	if err != nil {
		return nil, err
	}
	out := req.Evaluate(rows)
	if reads != nil {
		for _, e := range out {
			ks := e.Key().String()
			reads.record(ks, revs[ks])
		}
	}
	return &datastore.QueryPage{Rows: out, More: false}, nil
}

func (s *Store) fetchKind(ctx context.Context, partition string) ([]*datastore.Entity, map[string]string, error) {
	var rows []*datastore.Entity
	revs := make(map[string]string)
	var start map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &sdk.QueryInput{
			TableName:              aws.String(s.table),
			IndexName:              aws.String(KindIndex),
			KeyConditionExpression: aws.String("gsi1pk = :p"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":p": &types.AttributeValueMemberS{Value: partition},
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("Query error: %w", err)
		}
		for _, item := range out.Items {
			e, rev, err := decodeItem(item)
			if err != nil {
				return nil, nil, err
			}
			rows = append(rows, e)
			revs[e.Key().String()] = rev
		}
		if out.LastEvaluatedKey == nil {
			return rows, revs, nil
		}
		start = out.LastEvaluatedKey
	}
}

// Commit applies the mutations with one TransactWriteItems call. With a
// transaction handle, every revision the transaction read is enforced by a
// condition, so the whole write cancels when anything changed after the
// snapshot. DynamoDB permits one operation per item per transaction, so a
// key may appear in at most one mutation.
func (s *Store) Commit(ctx context.Context, mutations []datastore.Mutation, txn []byte) (*datastore.CommitResult, error) {
	var reads *txnReads
	if txn != nil {
		s.mu.Lock()
		var ok bool
		reads, ok = s.txns[string(txn)]
		if ok {
			delete(s.txns, string(txn))
		}
		s.mu.Unlock()
		if !ok {
			return nil, errors.New(errors.FailedPrecondition, "unknown transaction handle")
		}
	}

	allocated, completed, err := s.allocateForInserts(ctx, mutations)
	if err != nil {
		return nil, err
	}

	var items []types.TransactWriteItem
	// failure code per transact item, for cancellation-reason mapping
	var failCodes []errors.Code
	written := make(map[string]bool, len(mutations))

	for i, m := range mutations {
		var ks string
		var item types.TransactWriteItem
		code := errors.Aborted

		switch m.Op {
		case datastore.OpDelete:
			ks = m.Key.String()
			del := &types.Delete{TableName: aws.String(s.table), Key: itemKey(ks)}
			if cond, vals := s.revCondition(reads, ks); cond != "" {
				del.ConditionExpression = aws.String(cond)
				del.ExpressionAttributeValues = vals
			}
			item = types.TransactWriteItem{Delete: del}
		case datastore.OpInsert, datastore.OpUpsert, datastore.OpUpdate:
			e := completed[i]
			ks = e.Key().String()
			encoded, err := encodeItem(e, uuid.NewString())
			if err != nil {
				return nil, err
			}
			put := &types.Put{TableName: aws.String(s.table), Item: encoded}
			switch {
			case m.Op == datastore.OpInsert:
				put.ConditionExpression = aws.String("attribute_not_exists(pk)")
				if reads == nil || !readAbsent(reads, ks) {
					code = errors.AlreadyExists
				}
			case m.Op == datastore.OpUpdate:
				cond, vals := s.revCondition(reads, ks)
				if cond == "" {
					cond = "attribute_exists(pk)"
					code = errors.NotFound
				}
				put.ConditionExpression = aws.String(cond)
				put.ExpressionAttributeValues = vals
			default:
				if cond, vals := s.revCondition(reads, ks); cond != "" {
					put.ConditionExpression = aws.String(cond)
					put.ExpressionAttributeValues = vals
				}
			}
			item = types.TransactWriteItem{Put: put}
		default:
			return nil, errors.Newf(errors.InvalidArgument, "unknown mutation op %v", m.Op)
		}

		if written[ks] {
			return nil, errors.Newf(errors.InvalidArgument, "multiple mutations for key %s", ks)
		}
		written[ks] = true
		items = append(items, item)
		failCodes = append(failCodes, code)
	}

	// reads not covered by a write become bare condition checks
	if reads != nil {
		for ks, rev := range reads.revs {
			if written[ks] {
				continue
			}
			check := &types.ConditionCheck{TableName: aws.String(s.table), Key: itemKey(ks)}
			if rev == "" {
				check.ConditionExpression = aws.String("attribute_not_exists(pk)")
			} else {
				check.ConditionExpression = aws.String("rev = :r")
				check.ExpressionAttributeValues = map[string]types.AttributeValue{
					":r": &types.AttributeValueMemberS{Value: rev},
				}
			}
			items = append(items, types.TransactWriteItem{ConditionCheck: check})
			failCodes = append(failCodes, errors.Aborted)
		}
	}

	if len(items) > 0 {
		_, err = s.client.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{TransactItems: items})
		if err := s.mapTransactionError(err, failCodes); err != nil {
			return nil, err
		}
	}
	return &datastore.CommitResult{AllocatedKeys: allocated}, nil
}

// allocateForInserts completes incomplete-keyed inserts up front and
// returns the mutation-order allocated keys plus a completed entity per
// write mutation index.
func (s *Store) allocateForInserts(ctx context.Context, mutations []datastore.Mutation) ([]*datastore.Key, map[int]*datastore.Entity, error) {
	completed := make(map[int]*datastore.Entity, len(mutations))
	var partials []*datastore.PartialKey
	var at []int
	for i, m := range mutations {
		if m.Entity == nil {
			continue
		}
		if m.Entity.HasCompleteKey() {
			e, err := datastore.EntityBuilderFrom(m.Entity).Build()
			if err != nil {
				return nil, nil, err
			}
			completed[i] = e
			continue
		}
		if m.Op != datastore.OpInsert {
			return nil, nil, errors.New(errors.InvalidArgument, "incomplete key on non-insert mutation")
		}
		partials = append(partials, m.Entity.Key())
		at = append(at, i)
	}
	if len(partials) == 0 {
		return nil, completed, nil
	}
	keys, err := s.AllocateIDs(ctx, partials)
	if err != nil {
		return nil, nil, err
	}
	for j, i := range at {
		e, err := datastore.EntityBuilderFrom(mutations[i].Entity).Key(keys[j]).Build()
		if err != nil {
			return nil, nil, err
		}
		completed[i] = e
	}
	return keys, completed, nil
}

func readAbsent(reads *txnReads, ks string) bool {
	rev, ok := reads.revs[ks]
	return ok && rev == ""
}

// revCondition builds the optimistic condition for a key the transaction
// read, empty when the key was never read.
func (s *Store) revCondition(reads *txnReads, ks string) (string, map[string]types.AttributeValue) {
	if reads == nil {
		return "", nil
	}
	rev, ok := reads.revs[ks]
	if !ok {
		return "", nil
	}
	if rev == "" {
		return "attribute_not_exists(pk)", nil
	}
	return "rev = :r", map[string]types.AttributeValue{
		":r": &types.AttributeValueMemberS{Value: rev},
	}
}

// mapTransactionError translates a cancelled transaction into the failure
// code of the first condition that did not hold.
func (s *Store) mapTransactionError(err error, failCodes []errors.Code) error {
	if err == nil {
		return nil
	}
	var txErr *types.TransactionCanceledException
	if stderrors.As(err, &txErr) {
		slog.Warn("commit cancelled", "table", s.table, "reasons", len(txErr.CancellationReasons))
		for i, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" && i < len(failCodes) {
				return errors.Wrap(failCodes[i], "commit condition failed", err)
			}
		}
		return errors.Wrap(errors.Aborted, "transaction cancelled", err)
	}
	return fmt.Errorf("TransactWriteItems error: %w", err)
}

// BeginTransaction issues a fresh handle. The snapshot is represented by
// the revisions recorded as the transaction reads; nothing is stored
// server-side until commit.
func (s *Store) BeginTransaction(_ context.Context) ([]byte, error) {
	handle := uuid.NewString()
	s.mu.Lock()
	s.txns[handle] = &txnReads{revs: make(map[string]string)}
	s.mu.Unlock()
	return []byte(handle), nil
}

// Rollback discards local transaction state. Unknown handles are ignored.
func (s *Store) Rollback(_ context.Context, txn []byte) error {
	s.mu.Lock()
	delete(s.txns, string(txn))
	s.mu.Unlock()
	return nil
}

// AllocateIDs reserves id blocks from per-dataset counter items with an
// atomic ADD, so ids are unique even across concurrent allocators.
func (s *Store) AllocateIDs(ctx context.Context, keys []*datastore.PartialKey) ([]*datastore.Key, error) {
	counts := make(map[string]int64)
	for _, pk := range keys {
		counts[pk.Dataset()]++
	}
	next := make(map[string]int64, len(counts))
	for dataset, n := range counts {
		end, err := s.reserveBlock(ctx, dataset, n)
		if err != nil {
			return nil, err
		}
		next[dataset] = end - n + 1
	}
	out := make([]*datastore.Key, len(keys))
	for i, pk := range keys {
		id := next[pk.Dataset()]
		next[pk.Dataset()]++
		key, err := datastore.CompleteKey(pk, id)
		if err != nil {
			return nil, err
		}
		out[i] = key
	}
	return out, nil
}

func (s *Store) reserveBlock(ctx context.Context, dataset string, n int64) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              itemKey(counterPrefix + dataset),
		UpdateExpression: aws.String("ADD id_seq :n"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n": &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("UpdateItem error: %w", err)
	}
	var end int64
	if err := attributevalue.Unmarshal(out.Attributes["id_seq"], &end); err != nil {
		return 0, fmt.Errorf("failed to unmarshal allocated id: %w", err)
	}
	return end, nil
}

func (s *Store) readsFor(txn []byte) (*txnReads, error) {
	if txn == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reads, ok := s.txns[string(txn)]
	if !ok {
		return nil, errors.New(errors.FailedPrecondition, "unknown transaction handle")
	}
	return reads, nil
}
