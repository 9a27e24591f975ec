package models

import (
	"context"
	"strings"
	"time"

	"github.com/grampanchayat/villagestats_backend/tenantpath"
)

type Demographics struct {
	ID               string     `json:"id,omitempty"`
	VillageId        string     `json:"villageId" validate:"notblank"`
	Year             int        `json:"year"`
	TotalPopulation  int        `json:"totalPopulation" validate:"gte=0"`
	MalePopulation   int        `json:"malePopulation" validate:"gte=0"`
	FemalePopulation int        `json:"femalePopulation" validate:"gte=0"`
	Source           string     `json:"source"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

func (d *Demographics) documentId() string { return d.ID }

// Normalize recomputes the total from the male and female counts.
func (d *Demographics) Normalize() {
	d.VillageId = strings.TrimSpace(d.VillageId)
	d.Source = strings.TrimSpace(d.Source)
	d.TotalPopulation = d.MalePopulation + d.FemalePopulation
}

var demographicsTable = statisticsTable[Demographics]{
	entity:    tenantpath.Demographics,
	name:      "demographics",
	key:       func(d *Demographics) string { return villageYearKey(d.VillageId, d.Year) },
	target:    func(d *Demographics) VillageYear { return VillageYear{VillageId: d.VillageId, Year: d.Year} },
	normalize: (*Demographics).Normalize,
}

func GetDemographicsByYear(ctx context.Context, year int) ([]*Demographics, error) {
	return demographicsTable.getByYear(ctx, year)
}

func BulkUpsertDemographics(ctx context.Context, records []*Demographics) (*UpsertResult, error) {
	return demographicsTable.bulkUpsert(ctx, records)
}
