package models

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/grampanchayat/villagestats_backend/tenantpath"
	"github.com/grampanchayat/villagestats_backend/utils"
)

const (
	MinYear = 1900
	MaxYear = 2100
)

type StatisticsYear struct {
	ID        string     `json:"id"`
	Year      int        `json:"year"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return utils.NewValidationError("year", "must be between %d and %d", MinYear, MaxYear)
	}
	return nil
}

// ListYears returns the registered years, newest first.
func ListYears(ctx context.Context) ([]int, error) {
	s, collection, err := tenantCollection(ctx, tenantpath.StatisticsYears)
	if err != nil {
		return nil, err
	}
	rows, err := listDocuments[StatisticsYear](ctx, s, collection, docstore.Query{}, "list years")
	if err != nil {
		return nil, err
	}
	years := make([]int, 0, len(rows))
	for _, r := range rows {
		years = append(years, r.Year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// AddYear registers year. The year doubles as the document id, so a tenant
// can hold each year once.
func AddYear(ctx context.Context, year int) (*StatisticsYear, error) {
	if err := ValidateYear(year); err != nil {
		return nil, err
	}
	s, collection, err := tenantCollection(ctx, tenantpath.StatisticsYears)
	if err != nil {
		return nil, err
	}
	path := docstore.Join(collection, strconv.Itoa(year))
	existing, err := s.Get(ctx, path)
	if err != nil {
		return nil, utils.WrapStoreError("add year", err)
	}
	if existing != nil {
		return nil, utils.NewValidationError("year", "%d already exists", year)
	}
	if err := s.Set(ctx, path, docstore.Record{
		"year":      year,
		"createdAt": docstore.ServerTimestamp,
	}); err != nil {
		return nil, utils.WrapStoreError("add year", err)
	}
	return getDocument[StatisticsYear](ctx, s, path, "add year")
}

// LatestYear reports false when no year is registered.
func LatestYear(ctx context.Context) (int, bool, error) {
	years, err := ListYears(ctx)
	if err != nil {
		return 0, false, err
	}
	if len(years) == 0 {
		return 0, false, nil
	}
	return years[0], true, nil
}

// ensureYear registers year unless it is already present.
func ensureYear(ctx context.Context, year int) error {
	_, err := AddYear(ctx, year)
	if utils.IsValidationError(err) && ValidateYear(year) == nil {
		return nil
	}
	return err
}
