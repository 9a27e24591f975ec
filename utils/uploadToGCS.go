package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// getGoogleClient initializes a Google Cloud Storage client.
// Prefers ADC; GCS_CREDENTIALS_JSON supplies explicit JSON credentials (e.g. locally).
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

// GCSBlobStore stores rendered reports and tenant logos in one bucket.
type GCSBlobStore struct {
	Bucket string
}

// NewGCSBlobStoreFromEnv reads GCS_BUCKET.
func NewGCSBlobStoreFromEnv() (*GCSBlobStore, error) {
	bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if bucket == "" {
		return nil, errors.New("GCS_BUCKET is required")
	}
	return &GCSBlobStore{Bucket: bucket}, nil
}

// Upload writes data under objectKey and returns its access URL.
func (g *GCSBlobStore) Upload(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	wc := client.Bucket(g.Bucket).Object(objectKey).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to upload bytes to Google Cloud Storage: %v", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}
	return BuildObjectAccessURL(g.Bucket, objectKey), nil
}

// Download reads at most limit bytes of objectKey.
func (g *GCSBlobStore) Download(ctx context.Context, objectKey string, limit int64) ([]byte, error) {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	reader, err := client.Bucket(g.Bucket).Object(objectKey).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, NewNotFoundError("object", objectKey)
		}
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("object %s exceeds %d bytes", objectKey, limit)
	}
	return data, nil
}

// Delete removes objectKey; a missing object is not an error.
func (g *GCSBlobStore) Delete(ctx context.Context, objectKey string) error {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	err = client.Bucket(g.Bucket).Object(objectKey).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// BuildObjectAccessURL honours STORAGE_ACCESS_BASE_URL ("{objectKey}" placeholder
// or prefix) and falls back to the public storage.googleapis.com URL.
func BuildObjectAccessURL(bucket string, objectKey string) string {
	base := strings.TrimSpace(os.Getenv("STORAGE_ACCESS_BASE_URL"))
	if base != "" {
		if strings.Contains(base, "{objectKey}") {
			return strings.ReplaceAll(base, "{objectKey}", objectKey)
		}
		return strings.TrimRight(base, "/") + "/" + objectKey
	}
	return "https://storage.googleapis.com/" + bucket + "/" + objectKey
}
