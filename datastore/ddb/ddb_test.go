/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandsoft/docstore/datastore"
	"github.com/strandsoft/docstore/errors"
)

// fakeClient captures inputs and replays scripted outputs.
type fakeClient struct {
	batchGetIn  []*sdk.BatchGetItemInput
	batchGetOut []*sdk.BatchGetItemOutput

	queryIn  []*sdk.QueryInput
	queryOut []*sdk.QueryOutput

	transactIn  []*sdk.TransactWriteItemsInput
	transactErr error

	updateIn  []*sdk.UpdateItemInput
	updateSeq int64
}

func (f *fakeClient) BatchGetItem(_ context.Context, in *sdk.BatchGetItemInput, _ ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error) {
	f.batchGetIn = append(f.batchGetIn, in)
	out := f.batchGetOut[len(f.batchGetIn)-1]
	return out, nil
}

func (f *fakeClient) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.queryIn = append(f.queryIn, in)
	out := f.queryOut[len(f.queryIn)-1]
	return out, nil
}

func (f *fakeClient) TransactWriteItems(_ context.Context, in *sdk.TransactWriteItemsInput, _ ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error) {
	f.transactIn = append(f.transactIn, in)
	if f.transactErr != nil {
		return nil, f.transactErr
	}
	return &sdk.TransactWriteItemsOutput{}, nil
}

func (f *fakeClient) UpdateItem(_ context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	f.updateIn = append(f.updateIn, in)
	var n int64
	if v, ok := in.ExpressionAttributeValues[":n"].(*types.AttributeValueMemberN); ok {
		n, _ = strconv.ParseInt(v.Value, 10, 64)
	}
	f.updateSeq += n
	return &sdk.UpdateItemOutput{
		Attributes: map[string]types.AttributeValue{
			"id_seq": &types.AttributeValueMemberN{Value: strconv.FormatInt(f.updateSeq, 10)},
		},
	}, nil
}

func testEntity(t *testing.T, name string, n int64) *datastore.Entity {
	t.Helper()
	key, err := datastore.NewKeyBuilder("ds1", "User").Name(name).Build()
	require.NoError(t, err)
	e, err := datastore.NewEntityBuilder(key).SetInt("n", n).Build()
	require.NoError(t, err)
	return e
}

func TestLookupShapesResults(t *testing.T) {
	e := testEntity(t, "alice", 1)
	item, err := encodeItem(e, "rev-1")
	require.NoError(t, err)

	client := &fakeClient{batchGetOut: []*sdk.BatchGetItemOutput{
		{Responses: map[string][]map[string]types.AttributeValue{"tbl": {item}}},
	}}
	store := New(client, "tbl")

	missing, err := datastore.NewKeyBuilder("ds1", "User").Name("ghost").Build()
	require.NoError(t, err)

	got, err := store.Lookup(context.Background(), []*datastore.Key{missing, e.Key()}, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0])
	require.NotNil(t, got[1])
	assert.True(t, e.Equal(got[1]))

	require.Len(t, client.batchGetIn, 1)
	assert.Len(t, client.batchGetIn[0].RequestItems["tbl"].Keys, 2)
}

func TestLookupRetriesUnprocessedKeys(t *testing.T) {
	e := testEntity(t, "alice", 1)
	item, err := encodeItem(e, "rev-1")
	require.NoError(t, err)

	client := &fakeClient{batchGetOut: []*sdk.BatchGetItemOutput{
		{UnprocessedKeys: map[string]types.KeysAndAttributes{
			"tbl": {Keys: []map[string]types.AttributeValue{itemKey(e.Key().String())}},
		}},
		{Responses: map[string][]map[string]types.AttributeValue{"tbl": {item}}},
	}}
	store := New(client, "tbl")

	got, err := store.Lookup(context.Background(), []*datastore.Key{e.Key()}, nil)
	require.NoError(t, err)
	require.NotNil(t, got[0])
	assert.Len(t, client.batchGetIn, 2)
}

func TestCommitInsertCondition(t *testing.T) {
	client := &fakeClient{}
	store := New(client, "tbl")
	e := testEntity(t, "alice", 1)

	_, err := store.Commit(context.Background(), []datastore.Mutation{
		{Op: datastore.OpInsert, Entity: &e.PartialEntity},
	}, nil)
	require.NoError(t, err)

	require.Len(t, client.transactIn, 1)
	items := client.transactIn[0].TransactItems
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Put)
	assert.Equal(t, "attribute_not_exists(pk)", aws.ToString(items[0].Put.ConditionExpression))
}

func TestCommitAlreadyExistsMapping(t *testing.T) {
	code := "ConditionalCheckFailed"
	client := &fakeClient{transactErr: &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: &code}},
	}}
	store := New(client, "tbl")
	e := testEntity(t, "alice", 1)

	_, err := store.Commit(context.Background(), []datastore.Mutation{
		{Op: datastore.OpInsert, Entity: &e.PartialEntity},
	}, nil)
	assert.True(t, errors.IsAlreadyExists(err))
}

func TestCommitDuplicateKeyRejected(t *testing.T) {
	client := &fakeClient{}
	store := New(client, "tbl")
	e := testEntity(t, "alice", 1)

	_, err := store.Commit(context.Background(), []datastore.Mutation{
		{Op: datastore.OpUpsert, Entity: &e.PartialEntity},
		{Op: datastore.OpDelete, Key: e.Key()},
	}, nil)
	assert.True(t, errors.IsInvalidArgument(err))
	assert.Empty(t, client.transactIn)
}

func TestTransactionReadBecomesCondition(t *testing.T) {
	e := testEntity(t, "alice", 1)
	item, err := encodeItem(e, "rev-7")
	require.NoError(t, err)
	client := &fakeClient{batchGetOut: []*sdk.BatchGetItemOutput{
		{Responses: map[string][]map[string]types.AttributeValue{"tbl": {item}}},
	}}
	store := New(client, "tbl")

	txn, err := store.BeginTransaction(context.Background())
	require.NoError(t, err)
	_, err = store.Lookup(context.Background(), []*datastore.Key{e.Key()}, txn)
	require.NoError(t, err)

	updated := testEntity(t, "alice", 2)
	_, err = store.Commit(context.Background(), []datastore.Mutation{
		{Op: datastore.OpUpdate, Entity: &updated.PartialEntity},
	}, txn)
	require.NoError(t, err)

	items := client.transactIn[0].TransactItems
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Put)
	assert.Equal(t, "rev = :r", aws.ToString(items[0].Put.ConditionExpression))
	rev := items[0].Put.ExpressionAttributeValues[":r"].(*types.AttributeValueMemberS)
	assert.Equal(t, "rev-7", rev.Value)

	// the handle is consumed by the commit
	_, err = store.Commit(context.Background(), nil, txn)
	assert.True(t, errors.IsFailedPrecondition(err))
}

func TestTransactionKeepsFirstReadRevision(t *testing.T) {
	e := testEntity(t, "alice", 1)
	itemOld, err := encodeItem(e, "rev-1")
	require.NoError(t, err)
	bumped := testEntity(t, "alice", 2)
	itemNew, err := encodeItem(bumped, "rev-2")
	require.NoError(t, err)

	client := &fakeClient{batchGetOut: []*sdk.BatchGetItemOutput{
		{Responses: map[string][]map[string]types.AttributeValue{"tbl": {itemOld}}},
		{Responses: map[string][]map[string]types.AttributeValue{"tbl": {itemNew}}},
	}}
	store := New(client, "tbl")

	txn, err := store.BeginTransaction(context.Background())
	require.NoError(t, err)
	// the key is read twice; an external write bumps the rev in between
	_, err = store.Lookup(context.Background(), []*datastore.Key{e.Key()}, txn)
	require.NoError(t, err)
	_, err = store.Lookup(context.Background(), []*datastore.Key{e.Key()}, txn)
	require.NoError(t, err)

	updated := testEntity(t, "alice", 3)
	_, err = store.Commit(context.Background(), []datastore.Mutation{
		{Op: datastore.OpUpdate, Entity: &updated.PartialEntity},
	}, txn)
	require.NoError(t, err)

	// the commit condition enforces the revision from the first read
	items := client.transactIn[0].TransactItems
	require.Len(t, items, 1)
	rev := items[0].Put.ExpressionAttributeValues[":r"].(*types.AttributeValueMemberS)
	assert.Equal(t, "rev-1", rev.Value)
}

func TestTransactionReadAbsentAborts(t *testing.T) {
	client := &fakeClient{batchGetOut: []*sdk.BatchGetItemOutput{{}}}
	store := New(client, "tbl")
	e := testEntity(t, "alice", 1)

	txn, err := store.BeginTransaction(context.Background())
	require.NoError(t, err)
	got, err := store.Lookup(context.Background(), []*datastore.Key{e.Key()}, txn)
	require.NoError(t, err)
	require.Nil(t, got[0])

	code := "ConditionalCheckFailed"
	client.transactErr = &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: &code}},
	}
	_, err = store.Commit(context.Background(), []datastore.Mutation{
		{Op: datastore.OpInsert, Entity: &e.PartialEntity},
	}, txn)
	// the insert saw the key absent inside the transaction, so a failed
	// condition means a concurrent writer got there first
	assert.True(t, errors.IsAborted(err))
}

func TestUnreadKeysBecomeConditionChecks(t *testing.T) {
	e := testEntity(t, "alice", 1)
	item, err := encodeItem(e, "rev-1")
	require.NoError(t, err)
	client := &fakeClient{batchGetOut: []*sdk.BatchGetItemOutput{
		{Responses: map[string][]map[string]types.AttributeValue{"tbl": {item}}},
	}}
	store := New(client, "tbl")

	txn, err := store.BeginTransaction(context.Background())
	require.NoError(t, err)
	_, err = store.Lookup(context.Background(), []*datastore.Key{e.Key()}, txn)
	require.NoError(t, err)

	other := testEntity(t, "bob", 2)
	_, err = store.Commit(context.Background(), []datastore.Mutation{
		{Op: datastore.OpUpsert, Entity: &other.PartialEntity},
	}, txn)
	require.NoError(t, err)

	items := client.transactIn[0].TransactItems
	require.Len(t, items, 2)
	require.NotNil(t, items[1].ConditionCheck)
	assert.Equal(t, "rev = :r", aws.ToString(items[1].ConditionCheck.ConditionExpression))
}

func TestRollbackDiscardsHandle(t *testing.T) {
	store := New(&fakeClient{}, "tbl")
	txn, err := store.BeginTransaction(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.Rollback(context.Background(), txn))
	require.NoError(t, store.Rollback(context.Background(), txn))

	_, err = store.Commit(context.Background(), nil, txn)
	assert.True(t, errors.IsFailedPrecondition(err))
}

func TestAllocateIDsBlocks(t *testing.T) {
	client := &fakeClient{}
	store := New(client, "tbl")

	pk, err := datastore.NewKeyBuilder("ds1", "User").BuildPartial()
	require.NoError(t, err)

	keys, err := store.AllocateIDs(context.Background(), []*datastore.PartialKey{pk, pk, pk})
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.Equal(t, int64(1), keys[0].ID())
	assert.Equal(t, int64(2), keys[1].ID())
	assert.Equal(t, int64(3), keys[2].ID())
	// one counter update reserves the whole block
	assert.Len(t, client.updateIn, 1)

	more, err := store.AllocateIDs(context.Background(), []*datastore.PartialKey{pk})
	require.NoError(t, err)
	assert.Equal(t, int64(4), more[0].ID())
}

func TestRunQueryPaginatesGSI(t *testing.T) {
	a := testEntity(t, "alice", 1)
	b := testEntity(t, "bob", 2)
	itemA, err := encodeItem(a, "r1")
	require.NoError(t, err)
	itemB, err := encodeItem(b, "r2")
	require.NoError(t, err)

	client := &fakeClient{queryOut: []*sdk.QueryOutput{
		{Items: []map[string]types.AttributeValue{itemA}, LastEvaluatedKey: itemKey("cursor")},
		{Items: []map[string]types.AttributeValue{itemB}},
	}}
	store := New(client, "tbl")

	page, err := store.RunQuery(context.Background(), &datastore.QueryRequest{
		Dataset: "ds1",
		Kind:    "User",
		Orders:  []datastore.Order{{Property: "n"}},
		Limit:   -1,
	})
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)
	assert.False(t, page.More)

	require.Len(t, client.queryIn, 2)
	assert.Equal(t, KindIndex, aws.ToString(client.queryIn[0].IndexName))
	part := client.queryIn[0].ExpressionAttributeValues[":p"].(*types.AttributeValueMemberS)
	assert.Equal(t, "ds1||User", part.Value)
	assert.NotNil(t, client.queryIn[1].ExclusiveStartKey)
}
