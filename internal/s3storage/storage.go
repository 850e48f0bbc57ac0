// Package s3storage archives accepted bulk uploads in MinIO/S3.
package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/uniz-user-service/internal/config"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv"
)

// Storage wraps MinIO/S3 interactions for upload archives.
type Storage struct {
	client *minio.Client
	bucket string
	region string
	now    func() time.Time
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client: client,
		bucket: cfg.S3Bucket,
		region: cfg.S3Region,
		now:    time.Now,
	}, nil
}

// EnsureBucket makes sure the archive bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// ArchiveUpload stores the raw upload and returns its object key.
func (s *Storage) ArchiveUpload(ctx context.Context, identity, filename string, data []byte) (string, error) {
	key := ObjectKey(identity, filename, s.now())
	opts := minio.PutObjectOptions{
		ContentType:  contentType(filename),
		UserMetadata: map[string]string{"uploaded-by": identity},
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return "", fmt.Errorf("upload archive object: %w", err)
	}
	return key, nil
}

// ObjectKey builds uploads/<identity>/<utc timestamp>-<file name>.
func ObjectKey(identity, filename string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return fmt.Sprintf("uploads/%s/%s-%s", identity, at.UTC().Format("20060102T150405Z"), name)
}

func contentType(filename string) string {
	if strings.EqualFold(path.Ext(filename), ".csv") {
		return csvContentType
	}
	return xlsxContentType
}
