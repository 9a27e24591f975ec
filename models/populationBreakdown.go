package models

import (
	"context"
	"strings"
	"time"

	"github.com/grampanchayat/villagestats_backend/tenantpath"
)

type Category string

const (
	CategoryST    Category = "ST"
	CategorySC    Category = "SC"
	CategoryOBC   Category = "OBC"
	CategoryOther Category = "OTHER"
)

// Categories is the fixed display order of the social categories.
var Categories = []Category{CategoryST, CategorySC, CategoryOBC, CategoryOther}

type PopulationBreakdown struct {
	ID          string     `json:"id,omitempty"`
	VillageId   string     `json:"villageId" validate:"notblank"`
	Year        int        `json:"year"`
	Category    Category   `json:"category" validate:"oneof=ST SC OBC OTHER"`
	MaleCount   int        `json:"maleCount" validate:"gte=0"`
	FemaleCount int        `json:"femaleCount" validate:"gte=0"`
	TotalCount  int        `json:"totalCount" validate:"gte=0"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func (b *PopulationBreakdown) documentId() string { return b.ID }

func (b *PopulationBreakdown) Normalize() {
	b.VillageId = strings.TrimSpace(b.VillageId)
	b.Category = Category(strings.ToUpper(strings.TrimSpace(string(b.Category))))
	b.TotalCount = b.MaleCount + b.FemaleCount
}

var breakdownTable = statisticsTable[PopulationBreakdown]{
	entity: tenantpath.PopulationBreakdowns,
	name:   "populationBreakdowns",
	key: func(b *PopulationBreakdown) string {
		return villageYearKey(b.VillageId, b.Year) + "|" + string(b.Category)
	},
	target:    func(b *PopulationBreakdown) VillageYear { return VillageYear{VillageId: b.VillageId, Year: b.Year} },
	normalize: (*PopulationBreakdown).Normalize,
}

func GetPopulationBreakdownsByYear(ctx context.Context, year int) ([]*PopulationBreakdown, error) {
	return breakdownTable.getByYear(ctx, year)
}

// BulkUpsertPopulationBreakdowns saves the breakdown rows and then rewrites
// the demographics of every affected village from the stored category sums.
// Independently entered demographics for those villages are overwritten.
// A failed sync fails the call; the committed breakdown rows stay, and saving
// the batch again repairs the demographics.
func BulkUpsertPopulationBreakdowns(ctx context.Context, records []*PopulationBreakdown) (*UpsertResult, error) {
	result, err := breakdownTable.bulkUpsert(ctx, records)
	if err != nil {
		return nil, err
	}
	if _, err := SyncDemographicsFromBreakdowns(ctx, result.Targets); err != nil {
		return nil, err
	}
	return result, nil
}
