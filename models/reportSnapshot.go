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

const ReportTypeFull = "FULL"

// ReportSnapshot records a rendered report that was archived to blob storage.
type ReportSnapshot struct {
	ID          string     `json:"id"`
	Year        int        `json:"year"`
	Title       string     `json:"title" validate:"notblank"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Format      string     `json:"format" validate:"oneof=pdf xlsx"`
	FileName    string     `json:"fileName" validate:"notblank"`
	FileUrl     string     `json:"fileUrl"`
	ObjectKey   string     `json:"objectKey"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

func CreateReportSnapshot(ctx context.Context, input *ReportSnapshot) (*ReportSnapshot, error) {
	if input == nil {
		return nil, utils.NewValidationError("report", "is required")
	}
	if input.Type == "" {
		input.Type = ReportTypeFull
	}
	input.Format = strings.ToLower(input.Format)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := ValidateYear(input.Year); err != nil {
		return nil, err
	}
	s, collection, err := tenantCollection(ctx, tenantpath.Reports)
	if err != nil {
		return nil, err
	}
	data, err := storedFields(input)
	if err != nil {
		return nil, err
	}
	data["createdAt"] = docstore.ServerTimestamp
	id, err := s.Create(ctx, collection, data)
	if err != nil {
		return nil, utils.WrapStoreError("create report", err)
	}
	return GetReportSnapshot(ctx, id)
}

func GetReportSnapshot(ctx context.Context, id string) (*ReportSnapshot, error) {
	path, err := tenantpath.Document(ctx, tenantpath.Reports, id)
	if err != nil {
		if errors.Is(err, tenantpath.ErrTenantMissing) {
			return nil, err
		}
		return nil, utils.NewNotFoundError("report", id)
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	report, err := getDocument[ReportSnapshot](ctx, s, path, "get report")
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, utils.NewNotFoundError("report", id)
	}
	return report, nil
}

// ListReportSnapshots returns archived reports newest first, optionally for one year.
func ListReportSnapshots(ctx context.Context, year *int) ([]*ReportSnapshot, error) {
	s, collection, err := tenantCollection(ctx, tenantpath.Reports)
	if err != nil {
		return nil, err
	}
	q := docstore.Query{OrderBy: []docstore.Order{docstore.OrderBy("createdAt", docstore.Desc)}}
	if year != nil {
		q.Filters = append(q.Filters, docstore.Where("year", *year))
	}
	return listDocuments[ReportSnapshot](ctx, s, collection, q, "list reports")
}

// DeleteReportSnapshot removes the record; the caller deletes the archived object.
func DeleteReportSnapshot(ctx context.Context, id string) (*ReportSnapshot, error) {
	report, err := GetReportSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	path, err := tenantpath.Document(ctx, tenantpath.Reports, id)
	if err != nil {
		return nil, err
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	if err := s.Delete(ctx, path); err != nil {
		return nil, utils.WrapStoreError("delete report", err)
	}
	return report, nil
}
