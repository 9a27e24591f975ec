package reports

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/tenantpath"
	"github.com/grampanchayat/villagestats_backend/utils"
)

type BlobReader interface {
	Download(ctx context.Context, objectKey string, limit int64) ([]byte, error)
}

// BlobStore is the object storage used for archived reports and logos.
type BlobStore interface {
	BlobReader
	Upload(ctx context.Context, objectKey string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, objectKey string) error
}

const (
	archiveUploadAttempts       = 3
	maxArchiveBytes       int64 = 50 << 20
)

func archiveObjectKey(tenantId string, fileName string) string {
	return path.Join(config.ReportArchivePrefix(), tenantId, fileName)
}

// ArchiveReport uploads doc and records it as a report snapshot. The
// uploaded object is removed again if the snapshot cannot be saved.
func ArchiveReport(ctx context.Context, blobs BlobStore, doc *Document, description string) (*models.ReportSnapshot, error) {
	if blobs == nil {
		return nil, fmt.Errorf("report archive storage is not configured")
	}
	if doc == nil || len(doc.Data) == 0 {
		return nil, utils.NewValidationError("document", "is empty")
	}
	tenantId, err := tenantpath.TenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "reports.ArchiveReport")
	defer span.End()

	objectKey := archiveObjectKey(tenantId, doc.FileName)
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	var url string
	err = backoff.Retry(
		func() error {
			var uploadErr error
			url, uploadErr = blobs.Upload(ctx, objectKey, doc.Data, doc.ContentType)
			return uploadErr
		},
		backoff.WithContext(
			backoff.WithMaxRetries(policy, archiveUploadAttempts-1),
			ctx,
		),
	)
	if err != nil {
		archiveTotal.WithLabelValues("upload_error").Inc()
		span.RecordError(err)
		config.LogError(config.GetLogger(), "Reports", "ArchiveReport", "upload report", objectKey, err)
		return nil, err
	}

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = DefaultTitle
	}
	snapshot, err := models.CreateReportSnapshot(ctx, &models.ReportSnapshot{
		Year:        doc.Year,
		Title:       title,
		Description: description,
		Type:        models.ReportTypeFull,
		Format:      string(doc.Format),
		FileName:    doc.FileName,
		FileUrl:     url,
		ObjectKey:   objectKey,
	})
	if err != nil {
		archiveTotal.WithLabelValues("record_error").Inc()
		if delErr := blobs.Delete(ctx, objectKey); delErr != nil {
			config.LogError(config.GetLogger(), "Reports", "ArchiveReport", "remove orphaned upload", objectKey, delErr)
		}
		return nil, err
	}
	archiveTotal.WithLabelValues("ok").Inc()
	return snapshot, nil
}

// DeleteArchivedReport removes the snapshot record and then its object.
// A failed object delete is logged, the record stays deleted.
func DeleteArchivedReport(ctx context.Context, blobs BlobStore, id string) (*models.ReportSnapshot, error) {
	snapshot, err := models.DeleteReportSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if blobs != nil && snapshot.ObjectKey != "" {
		if err := blobs.Delete(ctx, snapshot.ObjectKey); err != nil {
			config.LogError(config.GetLogger(), "Reports", "DeleteArchivedReport", "delete report object", snapshot.ObjectKey, err)
		}
	}
	return snapshot, nil
}

// OpenArchivedReport downloads an archived report's bytes.
func OpenArchivedReport(ctx context.Context, blobs BlobReader, id string) (*models.ReportSnapshot, []byte, error) {
	snapshot, err := models.GetReportSnapshot(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if blobs == nil {
		return nil, nil, fmt.Errorf("report archive storage is not configured")
	}
	data, err := blobs.Download(ctx, snapshot.ObjectKey, maxArchiveBytes)
	if err != nil {
		return nil, nil, err
	}
	return snapshot, data, nil
}
