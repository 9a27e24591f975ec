package docstore_test

import (
	"context"
	"testing"

	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *docstore.BadgerStore {
	t.Helper()
	s, err := docstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

const coll = "gramPanchayats/gp1/demographics"

func TestBadgerStore_CreateGetAndServerTimestamps(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, coll, docstore.Record{
		"villageId": "v1",
		"year":      2024,
		"createdAt": docstore.ServerTimestamp,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := s.Get(ctx, docstore.Join(coll, id))
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, "v1", snap.Data["villageId"])
	assert.Equal(t, float64(2024), snap.Data["year"])

	stamp, ok := snap.Data["createdAt"].(string)
	require.True(t, ok, "server timestamp should be stored as a string")
	assert.Len(t, stamp, len("2006-01-02T15:04:05.000000000Z"))
	assert.False(t, snap.CreateTime.IsZero())
}

func TestBadgerStore_GetMissingReturnsNil(t *testing.T) {
	s := openStore(t)
	snap, err := s.Get(context.Background(), coll+"/nope")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestBadgerStore_ListFiltersAndOrders(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, coll+"/a", docstore.Record{"year": 2024, "villageId": "v2", "rank": 2}))
	require.NoError(t, s.Set(ctx, coll+"/b", docstore.Record{"year": 2023, "villageId": "v1", "rank": 1}))
	require.NoError(t, s.Set(ctx, coll+"/c", docstore.Record{"year": 2024, "villageId": "v1", "rank": 3}))
	// nested collections must not leak into the parent listing
	require.NoError(t, s.Set(ctx, "gramPanchayats/gp1", docstore.Record{"name": "GP"}))
	require.NoError(t, s.Set(ctx, "gramPanchayats/gp2/demographics/x", docstore.Record{"year": 2024}))

	snaps, err := s.List(ctx, coll, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("year", 2024)},
		OrderBy: []docstore.Order{docstore.OrderBy("rank", docstore.Desc)},
	})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "c", snaps[0].ID)
	assert.Equal(t, "a", snaps[1].ID)

	snaps, err = s.List(ctx, coll, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("villageId", "v1"), docstore.Where("year", 2023)},
	})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "b", snaps[0].ID)

	tenants, err := s.List(ctx, "gramPanchayats", docstore.Query{})
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, "gp1", tenants[0].ID)
}

func TestBadgerStore_UpdateMergesAndRequiresDocument(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	path := coll + "/d1"
	require.NoError(t, s.Set(ctx, path, docstore.Record{"male": 1, "female": 2, "source": "survey"}))

	require.NoError(t, s.Update(ctx, path, docstore.Record{"male": 5}))
	snap, err := s.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, float64(5), snap.Data["male"])
	assert.Equal(t, float64(2), snap.Data["female"])
	assert.Equal(t, "survey", snap.Data["source"])

	err = s.Update(ctx, coll+"/missing", docstore.Record{"male": 1})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestBadgerStore_BatchWriteAndDelete(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, coll+"/keep", docstore.Record{"n": 1}))
	require.NoError(t, s.Set(ctx, coll+"/gone", docstore.Record{"n": 2}))

	err := s.BatchWrite(ctx, []docstore.Write{
		{Path: coll + "/keep", Data: docstore.Record{"m": 9}, Merge: true},
		{Path: coll + "/gone", Delete: true},
		{Path: coll + "/new", Data: docstore.Record{"n": 3}},
	})
	require.NoError(t, err)

	snaps, err := s.List(ctx, coll, docstore.Query{})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "keep", snaps[0].ID)
	assert.Equal(t, float64(1), snaps[0].Data["n"])
	assert.Equal(t, float64(9), snaps[0].Data["m"])
	assert.Equal(t, "new", snaps[1].ID)

	require.NoError(t, s.Delete(ctx, coll+"/does-not-exist"))
}

func TestBadgerStore_SetPreservesCreateTime(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	path := coll + "/p"
	require.NoError(t, s.Set(ctx, path, docstore.Record{"v": 1}))
	first, err := s.Get(ctx, path)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, path, docstore.Record{"v": 2}))
	second, err := s.Get(ctx, path)
	require.NoError(t, err)
	assert.True(t, first.CreateTime.Equal(second.CreateTime))
	assert.Equal(t, float64(2), second.Data["v"])
}

func TestBadgerStore_RejectsBadPaths(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, "gramPanchayats/gp1", docstore.Record{})
	assert.Error(t, err, "a document path is not a collection")
	_, err = s.Get(ctx, "gramPanchayats")
	assert.Error(t, err)
	_, err = s.List(ctx, "a//b", docstore.Query{})
	assert.Error(t, err)
}
