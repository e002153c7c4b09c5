/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandsoft/docstore/datastore/testmodels"
	"github.com/strandsoft/docstore/registry"
)

func init() {
	registry.RegisterKind[testmodels.Profile]("Profile")
}

func profileStore(t *testing.T) *TypedStore[testmodels.Profile] {
	t.Helper()
	ds, err := Open(DefaultOptions())
	require.NoError(t, err)
	store, err := NewTypedStore[testmodels.Profile](ds)
	require.NoError(t, err)
	return store
}

func TestTypedStoreRoundTrip(t *testing.T) {
	store := profileStore(t)
	ctx := context.Background()

	created := strfmt.DateTime(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	in := testmodels.Profile{
		ID:        aws.String("alice"),
		Email:     aws.String("alice@example.com"),
		Age:       34,
		Tags:      []string{"admin", "beta"},
		CreatedAt: &created,
		UpdatedAt: &created,
	}
	require.NoError(t, store.Put(ctx, "alice", in))

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", aws.ToString(got.ID))
	assert.Equal(t, "alice@example.com", aws.ToString(got.Email))
	assert.Equal(t, int64(34), got.Age)
	assert.Equal(t, []string{"admin", "beta"}, got.Tags)
	require.NotNil(t, got.CreatedAt)
	assert.Equal(t, created.String(), got.CreatedAt.String())
}

func TestTypedStoreGetAbsent(t *testing.T) {
	store := profileStore(t)

	got, err := store.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTypedStorePutReplaces(t *testing.T) {
	store := profileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "bob", testmodels.Profile{ID: aws.String("bob"), Age: 20}))
	require.NoError(t, store.Put(ctx, "bob", testmodels.Profile{ID: aws.String("bob"), Age: 21}))

	got, err := store.Get(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(21), got.Age)
}

func TestTypedStoreDelete(t *testing.T) {
	store := profileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "carol", testmodels.Profile{ID: aws.String("carol")}))
	require.NoError(t, store.Delete(ctx, "carol"))

	got, err := store.Get(ctx, "carol")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTypedStoreList(t *testing.T) {
	store := profileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", testmodels.Profile{ID: aws.String("a"), Age: 1}))
	require.NoError(t, store.Put(ctx, "b", testmodels.Profile{ID: aws.String("b"), Age: 2}))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", aws.ToString(all[0].ID))
	assert.Equal(t, "b", aws.ToString(all[1].ID))
}

func TestNewTypedStoreUnregisteredType(t *testing.T) {
	ds, err := Open(DefaultOptions())
	require.NoError(t, err)

	type orphan struct{ Name string }
	_, err = NewTypedStore[orphan](ds)
	assert.Error(t, err)
}
