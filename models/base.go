package models

import (
	"context"
	"errors"

	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/grampanchayat/villagestats_backend/tenantpath"
	"github.com/grampanchayat/villagestats_backend/utils"
)

var errStoreNotReady = errors.New("document store is not connected")

func getStore() (docstore.Store, error) {
	s := config.GetDocStore()
	if s == nil {
		return nil, &utils.StoreError{Op: "connect", Err: errStoreNotReady}
	}
	return s, nil
}

// tenantCollection resolves the store and the tenant collection in one step.
func tenantCollection(ctx context.Context, entity tenantpath.Entity) (docstore.Store, string, error) {
	collection, err := tenantpath.Collection(ctx, entity)
	if err != nil {
		return nil, "", err
	}
	s, err := getStore()
	if err != nil {
		return nil, "", err
	}
	return s, collection, nil
}

func listDocuments[T any](ctx context.Context, s docstore.Store, collection string, q docstore.Query, op string) ([]*T, error) {
	snaps, err := s.List(ctx, collection, q)
	if err != nil {
		return nil, utils.WrapStoreError(op, err)
	}
	results := make([]*T, 0, len(snaps))
	for _, snap := range snaps {
		var item T
		if err := docstore.Decode(snap, &item); err != nil {
			return nil, utils.WrapStoreError(op, err)
		}
		results = append(results, &item)
	}
	return results, nil
}

func getDocument[T any](ctx context.Context, s docstore.Store, path string, op string) (*T, error) {
	snap, err := s.Get(ctx, path)
	if err != nil {
		return nil, utils.WrapStoreError(op, err)
	}
	if snap == nil {
		return nil, nil
	}
	var item T
	if err := docstore.Decode(*snap, &item); err != nil {
		return nil, utils.WrapStoreError(op, err)
	}
	return &item, nil
}

// storedFields encodes v for writing, dropping the fields the store owns.
func storedFields(v any) (docstore.Record, error) {
	rec, err := docstore.Encode(v)
	if err != nil {
		return nil, err
	}
	delete(rec, "id")
	delete(rec, "createdAt")
	delete(rec, "updatedAt")
	return rec, nil
}

// invalidateSummaries drops cached summaries; cache trouble never fails a write.
func invalidateSummaries(ctx context.Context, years ...int) {
	tenantId, err := tenantpath.TenantFromContext(ctx)
	if err != nil {
		return
	}
	if err := utils.InvalidateSummaryCache(ctx, tenantId, years...); err != nil {
		config.LogError(config.GetLogger(), "Models", "invalidateSummaries", "drop cached summaries", map[string]any{"tenantId": tenantId, "years": years}, err)
	}
}
