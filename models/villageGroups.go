package models

import (
	"context"
	"strings"
	"time"

	"github.com/grampanchayat/villagestats_backend/tenantpath"
)

type VillageGroups struct {
	ID                   string     `json:"id,omitempty"`
	VillageId            string     `json:"villageId" validate:"notblank"`
	Year                 int        `json:"year"`
	MahilaBachatGatCount int        `json:"mahilaBachatGatCount" validate:"gte=0"`
	YuvakMandalCount     int        `json:"yuvakMandalCount" validate:"gte=0"`
	KisanGatCount        int        `json:"kisanGatCount" validate:"gte=0"`
	OtherGroupCount      int        `json:"otherGroupCount" validate:"gte=0"`
	CreatedAt            *time.Time `json:"createdAt,omitempty"`
	UpdatedAt            *time.Time `json:"updatedAt,omitempty"`
}

func (g *VillageGroups) documentId() string { return g.ID }

func (g *VillageGroups) Total() int {
	return g.MahilaBachatGatCount + g.YuvakMandalCount + g.KisanGatCount + g.OtherGroupCount
}

var groupsTable = statisticsTable[VillageGroups]{
	entity:    tenantpath.VillageGroups,
	name:      "villageGroups",
	key:       func(g *VillageGroups) string { return villageYearKey(g.VillageId, g.Year) },
	target:    func(g *VillageGroups) VillageYear { return VillageYear{VillageId: g.VillageId, Year: g.Year} },
	normalize: func(g *VillageGroups) { g.VillageId = strings.TrimSpace(g.VillageId) },
}

func GetVillageGroupsByYear(ctx context.Context, year int) ([]*VillageGroups, error) {
	return groupsTable.getByYear(ctx, year)
}

func BulkUpsertVillageGroups(ctx context.Context, records []*VillageGroups) (*UpsertResult, error) {
	return groupsTable.bulkUpsert(ctx, records)
}
