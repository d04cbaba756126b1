// Package export writes Parquet snapshots of the analysis table to an
// object store, either a local directory or a GCS bucket.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/tigerroll/gridpulse/internal/config"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// ObjectStore is the upload surface the exporter writes through.
type ObjectStore interface {
	// Upload writes the data stream to objectName.
	Upload(ctx context.Context, objectName string, data io.Reader, contentType string) error
	// Close releases any held client resources.
	Close() error
}

// NewObjectStore creates the store selected by the export configuration.
func NewObjectStore(ctx context.Context, cfg config.ExportConfig) (ObjectStore, error) {
	switch cfg.Type {
	case "local":
		return newLocalStore(cfg.BaseDir)
	case "gcs":
		return newGCSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported export storage type: %s", cfg.Type)
	}
}

// localStore writes objects as files under a base directory.
type localStore struct {
	baseDir string
}

func newLocalStore(baseDir string) (*localStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("local export storage requires a base directory")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export base directory '%s': %w", baseDir, err)
	}
	return &localStore{baseDir: baseDir}, nil
}

func (s *localStore) Upload(ctx context.Context, objectName string, data io.Reader, contentType string) error {
	if strings.Contains(objectName, "..") {
		return fmt.Errorf("object name '%s' escapes the base directory", objectName)
	}
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", fullPath, err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", fullPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("failed to write '%s': %w", fullPath, err)
	}
	logger.Debugf("Export written to local file %s", fullPath)
	return nil
}

func (s *localStore) Close() error {
	return nil
}

// gcsStore writes objects into a GCS bucket under an optional prefix.
type gcsStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func newGCSStore(ctx context.Context, cfg config.ExportConfig) (*gcsStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs export storage requires a bucket name")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &gcsStore{client: client, bucket: cfg.Bucket, prefix: cfg.BaseDir}, nil
}

func (s *gcsStore) Upload(ctx context.Context, objectName string, data io.Reader, contentType string) error {
	name := objectName
	if s.prefix != "" {
		name = strings.TrimSuffix(s.prefix, "/") + "/" + objectName
	}

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload gs://%s/%s: %w", s.bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", s.bucket, name, err)
	}
	logger.Debugf("Export uploaded to gs://%s/%s", s.bucket, name)
	return nil
}

func (s *gcsStore) Close() error {
	return s.client.Close()
}
