package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/grampanchayat/villagestats_backend/tenantpath"
	"github.com/grampanchayat/villagestats_backend/utils"
	"github.com/grampanchayat/villagestats_backend/workflow"
)

// VillageYear identifies the statistics of one village in one year.
type VillageYear struct {
	VillageId string `json:"villageId"`
	Year      int    `json:"year"`
}

// UpsertResult describes a committed bulk upsert.
type UpsertResult struct {
	Table   string        `json:"table"`
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Years   []int         `json:"years"`
	Targets []VillageYear `json:"-"`
}

// statisticsTable holds what differs between the four per-year tables.
type statisticsTable[T any] struct {
	entity    tenantpath.Entity
	name      string
	key       func(*T) string
	target    func(*T) VillageYear
	normalize func(*T)
}

func (t statisticsTable[T]) getByYear(ctx context.Context, year int) ([]*T, error) {
	s, collection, err := tenantCollection(ctx, t.entity)
	if err != nil {
		return nil, err
	}
	return listDocuments[T](ctx, s, collection, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("year", year)},
	}, "list "+t.name)
}

func (t statisticsTable[T]) listAll(ctx context.Context) ([]*T, error) {
	s, collection, err := tenantCollection(ctx, t.entity)
	if err != nil {
		return nil, err
	}
	return listDocuments[T](ctx, s, collection, docstore.Query{}, "list "+t.name)
}

// bulkUpsert overwrites the rows whose natural key already exists for the
// year and inserts the rest. The whole batch is validated before anything is
// written. Submitted records replace stored fields; nothing is carried over.
// The caller's records are left as they were; normalization works on copies.
func (t statisticsTable[T]) bulkUpsert(ctx context.Context, records []*T) (*UpsertResult, error) {
	started := time.Now()
	result := &UpsertResult{Table: t.name}
	if len(records) == 0 {
		return result, nil
	}

	normalized := make([]*T, 0, len(records))
	for i, in := range records {
		if in == nil {
			upsertRecords.WithLabelValues(t.name, "rejected").Add(float64(len(records)))
			return nil, utils.NewValidationError(fmt.Sprintf("records[%d]", i), "is required")
		}
		copied := *in
		r := &copied
		t.normalize(r)
		if err := utils.ValidateStruct(r); err != nil {
			upsertRecords.WithLabelValues(t.name, "rejected").Add(float64(len(records)))
			var ve *utils.ValidationError
			if errors.As(err, &ve) {
				return nil, &utils.ValidationError{Field: fmt.Sprintf("records[%d].%s", i, ve.Field), Message: ve.Message}
			}
			return nil, err
		}
		if err := ValidateYear(t.target(r).Year); err != nil {
			upsertRecords.WithLabelValues(t.name, "rejected").Add(float64(len(records)))
			return nil, utils.NewValidationError(fmt.Sprintf("records[%d].year", i), "must be between %d and %d", MinYear, MaxYear)
		}
		normalized = append(normalized, r)
	}

	s, collection, err := tenantCollection(ctx, t.entity)
	if err != nil {
		return nil, err
	}

	// last occurrence of a key wins
	latest := make(map[string]*T, len(normalized))
	order := make([]string, 0, len(normalized))
	years := map[int]bool{}
	for _, r := range normalized {
		k := t.key(r)
		if _, seen := latest[k]; !seen {
			order = append(order, k)
		}
		latest[k] = r
		years[t.target(r).Year] = true
	}

	existing := map[string]string{}
	for year := range years {
		rows, err := t.getByYear(ctx, year)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			existing[t.key(row)] = documentId(row)
		}
	}

	writes := make([]docstore.Write, 0, len(order))
	seenTarget := map[VillageYear]bool{}
	for _, k := range order {
		r := latest[k]
		data, err := storedFields(r)
		if err != nil {
			return nil, utils.WrapStoreError("encode "+t.name, err)
		}
		data["updatedAt"] = docstore.ServerTimestamp
		if id, ok := existing[k]; ok {
			writes = append(writes, docstore.Write{Path: docstore.Join(collection, id), Data: data, Merge: true})
			result.Updated++
		} else {
			data["createdAt"] = docstore.ServerTimestamp
			writes = append(writes, docstore.Write{Path: docstore.Join(collection, uuid.NewString()), Data: data})
			result.Created++
		}
		if vy := t.target(r); !seenTarget[vy] {
			seenTarget[vy] = true
			result.Targets = append(result.Targets, vy)
		}
	}

	if err := s.BatchWrite(ctx, writes); err != nil {
		upsertRecords.WithLabelValues(t.name, "failed").Add(float64(len(writes)))
		return nil, utils.WrapStoreError("save "+t.name, err)
	}

	for y := range years {
		result.Years = append(result.Years, y)
	}
	sort.Ints(result.Years)
	upsertRecords.WithLabelValues(t.name, "created").Add(float64(result.Created))
	upsertRecords.WithLabelValues(t.name, "updated").Add(float64(result.Updated))
	upsertDuration.WithLabelValues(t.name).Observe(time.Since(started).Seconds())
	invalidateSummaries(ctx, result.Years...)
	t.notify(ctx, result)
	return result, nil
}

func (t statisticsTable[T]) notify(ctx context.Context, result *UpsertResult) {
	tenantId, err := tenantpath.TenantFromContext(ctx)
	if err != nil {
		return
	}
	villageIds := make([]string, 0, len(result.Targets))
	seen := map[string]bool{}
	for _, vy := range result.Targets {
		if !seen[vy.VillageId] {
			seen[vy.VillageId] = true
			villageIds = append(villageIds, vy.VillageId)
		}
	}
	workflow.NotifyStatisticsUpdated(ctx, workflow.StatisticsUpdated{
		TenantId:   tenantId,
		Table:      t.name,
		Years:      result.Years,
		VillageIds: villageIds,
		Records:    result.Created + result.Updated,
	})
}

// identified is implemented by every statistics record.
type identified interface {
	documentId() string
}

func documentId[T any](row *T) string {
	if r, ok := any(row).(identified); ok {
		return r.documentId()
	}
	return ""
}

func villageYearKey(villageId string, year int) string {
	return fmt.Sprintf("%s|%d", villageId, year)
}
