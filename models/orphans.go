package models

import (
	"context"

	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/grampanchayat/villagestats_backend/tenantpath"
	"github.com/grampanchayat/villagestats_backend/utils"
)

// OrphanedRecord is a statistics row whose village no longer exists.
type OrphanedRecord struct {
	Table     string `json:"table"`
	ID        string `json:"id"`
	VillageId string `json:"villageId"`
	Year      int    `json:"year"`
	path      string
}

type villageRef struct {
	ID        string `json:"id"`
	VillageId string `json:"villageId"`
	Year      int    `json:"year"`
}

// FindOrphanedStatistics scans all four statistics tables for rows that
// point at a village missing from the registry.
func FindOrphanedStatistics(ctx context.Context) ([]OrphanedRecord, error) {
	villages, err := ListVillages(ctx)
	if err != nil {
		return nil, err
	}
	registered := make(map[string]bool, len(villages))
	for _, v := range villages {
		registered[v.ID] = true
	}

	var orphans []OrphanedRecord
	for _, entity := range tenantpath.StatisticsEntities {
		s, collection, err := tenantCollection(ctx, entity)
		if err != nil {
			return nil, err
		}
		refs, err := listDocuments[villageRef](ctx, s, collection, docstore.Query{}, "list "+string(entity))
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			if registered[ref.VillageId] {
				continue
			}
			orphans = append(orphans, OrphanedRecord{
				Table:     string(entity),
				ID:        ref.ID,
				VillageId: ref.VillageId,
				Year:      ref.Year,
				path:      docstore.Join(collection, ref.ID),
			})
		}
	}
	return orphans, nil
}

// CountVillageStatistics counts the statistics rows that reference villageId.
func CountVillageStatistics(ctx context.Context, villageId string) (int, error) {
	count := 0
	for _, entity := range tenantpath.StatisticsEntities {
		s, collection, err := tenantCollection(ctx, entity)
		if err != nil {
			return 0, err
		}
		snaps, err := s.List(ctx, collection, docstore.Query{
			Filters: []docstore.Filter{docstore.Where("villageId", villageId)},
		})
		if err != nil {
			return 0, utils.WrapStoreError("count "+string(entity), err)
		}
		count += len(snaps)
	}
	return count, nil
}

// PurgeOrphanedStatistics deletes every orphaned row and returns what it removed.
func PurgeOrphanedStatistics(ctx context.Context) ([]OrphanedRecord, error) {
	tenantId, err := tenantpath.TenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	release, err := utils.TenantLock(ctx, tenantId, "OrphanPurge", "Models", "PurgeOrphanedStatistics")
	if err != nil {
		return nil, err
	}
	defer release()

	orphans, err := FindOrphanedStatistics(ctx)
	if err != nil {
		return nil, err
	}
	if len(orphans) == 0 {
		return orphans, nil
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	writes := make([]docstore.Write, 0, len(orphans))
	for _, o := range orphans {
		writes = append(writes, docstore.Write{Path: o.path, Delete: true})
	}
	if err := s.BatchWrite(ctx, writes); err != nil {
		config.LogError(config.GetLogger(), "Models", "PurgeOrphanedStatistics", "delete orphaned rows", tenantId, err)
		return nil, utils.WrapStoreError("purge orphans", err)
	}
	orphansPurged.Add(float64(len(orphans)))
	invalidateSummaries(ctx)
	return orphans, nil
}
