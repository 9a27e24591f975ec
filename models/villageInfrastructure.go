package models

import (
	"context"
	"strings"
	"time"

	"github.com/grampanchayat/villagestats_backend/tenantpath"
)

type VillageInfrastructure struct {
	ID        string `json:"id,omitempty"`
	VillageId string `json:"villageId" validate:"notblank"`
	Year      int    `json:"year"`

	// water supply sources
	PrivateWells      int    `json:"privateWells" validate:"gte=0"`
	PublicWells       int    `json:"publicWells" validate:"gte=0"`
	NitScheme         int    `json:"nitScheme" validate:"gte=0"`
	Handpumps         int    `json:"handpumps" validate:"gte=0"`
	WaterFilterPlant  int    `json:"waterFilterPlant" validate:"gte=0"`
	PrivatePonds      int    `json:"privatePonds" validate:"gte=0"`
	WaterTankCapacity string `json:"waterTankCapacity"`

	// tap connections
	Families              int    `json:"families" validate:"gte=0"`
	OldTapConnections     int    `json:"oldTapConnections" validate:"gte=0"`
	NewTapConnections     int    `json:"newTapConnections" validate:"gte=0"`
	TotalTapConnections   int    `json:"totalTapConnections" validate:"gte=0"`
	PrivateWellsForTap    int    `json:"privateWellsForTap" validate:"gte=0"`
	PendingTapConnections int    `json:"pendingTapConnections" validate:"gte=0"`
	Notes                 string `json:"notes"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (v *VillageInfrastructure) documentId() string { return v.ID }

// Normalize recomputes the total tap connections from old and new.
func (v *VillageInfrastructure) Normalize() {
	v.VillageId = strings.TrimSpace(v.VillageId)
	v.WaterTankCapacity = strings.TrimSpace(v.WaterTankCapacity)
	v.TotalTapConnections = v.OldTapConnections + v.NewTapConnections
}

var infrastructureTable = statisticsTable[VillageInfrastructure]{
	entity:    tenantpath.Infrastructure,
	name:      "infrastructure",
	key:       func(v *VillageInfrastructure) string { return villageYearKey(v.VillageId, v.Year) },
	target:    func(v *VillageInfrastructure) VillageYear { return VillageYear{VillageId: v.VillageId, Year: v.Year} },
	normalize: (*VillageInfrastructure).Normalize,
}

func GetVillageInfrastructureByYear(ctx context.Context, year int) ([]*VillageInfrastructure, error) {
	return infrastructureTable.getByYear(ctx, year)
}

func BulkUpsertVillageInfrastructure(ctx context.Context, records []*VillageInfrastructure) (*UpsertResult, error) {
	return infrastructureTable.bulkUpsert(ctx, records)
}
