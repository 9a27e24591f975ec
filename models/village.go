package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/grampanchayat/villagestats_backend/tenantpath"
	"github.com/grampanchayat/villagestats_backend/utils"
)

type Village struct {
	ID        string     `json:"id"`
	NameEn    string     `json:"nameEn"`
	NameMr    string     `json:"nameMr"`
	Code      string     `json:"code,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type NewVillage struct {
	NameEn string  `json:"nameEn" validate:"notblank"`
	NameMr string  `json:"nameMr" validate:"notblank"`
	Code   *string `json:"code"`
}

// VillageUpdate carries the fields to change; nil fields are left alone.
type VillageUpdate struct {
	NameEn *string `json:"nameEn"`
	NameMr *string `json:"nameMr"`
	Code   *string `json:"code"`
}

func (input *NewVillage) validate() error {
	input.NameEn = strings.TrimSpace(input.NameEn)
	input.NameMr = strings.TrimSpace(input.NameMr)
	return utils.ValidateStruct(input)
}

func (input *VillageUpdate) validate() error {
	if input.NameEn != nil && strings.TrimSpace(*input.NameEn) == "" {
		return utils.NewValidationError("nameEn", "is required")
	}
	if input.NameMr != nil && strings.TrimSpace(*input.NameMr) == "" {
		return utils.NewValidationError("nameMr", "is required")
	}
	return nil
}

// ListVillages returns the registry in creation order.
func ListVillages(ctx context.Context) ([]*Village, error) {
	s, collection, err := tenantCollection(ctx, tenantpath.Villages)
	if err != nil {
		return nil, err
	}
	return listDocuments[Village](ctx, s, collection, docstore.Query{
		OrderBy: []docstore.Order{docstore.OrderBy("createdAt", docstore.Asc)},
	}, "list villages")
}

func GetVillage(ctx context.Context, id string) (*Village, error) {
	path, err := tenantpath.Document(ctx, tenantpath.Villages, id)
	if err != nil {
		if errors.Is(err, tenantpath.ErrTenantMissing) {
			return nil, err
		}
		return nil, utils.NewNotFoundError("village", id)
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	village, err := getDocument[Village](ctx, s, path, "get village")
	if err != nil {
		return nil, err
	}
	if village == nil {
		return nil, utils.NewNotFoundError("village", id)
	}
	return village, nil
}

func CreateVillage(ctx context.Context, input *NewVillage) (*Village, error) {
	if input == nil {
		return nil, utils.NewValidationError("village", "is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	s, collection, err := tenantCollection(ctx, tenantpath.Villages)
	if err != nil {
		return nil, err
	}

	data := docstore.Record{
		"nameEn":    input.NameEn,
		"nameMr":    input.NameMr,
		"createdAt": docstore.ServerTimestamp,
		"updatedAt": docstore.ServerTimestamp,
	}
	if code := strings.TrimSpace(utils.DereferencePtr(input.Code, "")); code != "" {
		data["code"] = code
	}
	id, err := s.Create(ctx, collection, data)
	if err != nil {
		return nil, utils.WrapStoreError("create village", err)
	}
	villageOps.WithLabelValues("create").Inc()
	invalidateSummaries(ctx)
	return GetVillage(ctx, id)
}

func UpdateVillage(ctx context.Context, id string, input *VillageUpdate) (*Village, error) {
	if input == nil {
		return nil, utils.NewValidationError("village", "is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	if _, err := GetVillage(ctx, id); err != nil {
		return nil, err
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	path, err := tenantpath.Document(ctx, tenantpath.Villages, id)
	if err != nil {
		return nil, err
	}

	patch := docstore.Record{"updatedAt": docstore.ServerTimestamp}
	if input.NameEn != nil {
		patch["nameEn"] = strings.TrimSpace(*input.NameEn)
	}
	if input.NameMr != nil {
		patch["nameMr"] = strings.TrimSpace(*input.NameMr)
	}
	if input.Code != nil {
		patch["code"] = strings.TrimSpace(*input.Code)
	}
	if err := s.Update(ctx, path, patch); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, utils.NewNotFoundError("village", id)
		}
		return nil, utils.WrapStoreError("update village", err)
	}
	villageOps.WithLabelValues("update").Inc()
	invalidateSummaries(ctx)
	return GetVillage(ctx, id)
}

// DeleteVillage removes the village only. Its statistics rows stay behind as
// orphans until PurgeOrphanedStatistics runs.
func DeleteVillage(ctx context.Context, id string) (*Village, error) {
	village, err := GetVillage(ctx, id)
	if err != nil {
		return nil, err
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	path, err := tenantpath.Document(ctx, tenantpath.Villages, id)
	if err != nil {
		return nil, err
	}
	if err := s.Delete(ctx, path); err != nil {
		return nil, utils.WrapStoreError("delete village", err)
	}
	villageOps.WithLabelValues("delete").Inc()
	invalidateSummaries(ctx)
	return village, nil
}
