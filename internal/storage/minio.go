package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/oklog/ulid/v2"
	"github.com/prudhvinik1/medsync/internal/config"
	"github.com/prudhvinik1/medsync/internal/xerrors"
	"go.uber.org/zap"
)

type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *zap.Logger
}

func NewMinioStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("error checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("error creating bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created bucket", zap.String("bucket", cfg.Bucket))
	}

	return &MinioStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    logger,
	}, nil
}

func (s *MinioStore) PublicURL() string {
	return s.publicURL
}

func (s *MinioStore) Upload(ctx context.Context, file File, destination string) (string, error) {
	key := path.Join(destination, ulid.Make().String()+extension(file.Name))

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(file.Data), file.Size(), minio.PutObjectOptions{
		ContentType: file.ContentType,
	})
	if err != nil {
		s.logger.Error("failed to upload object", zap.String("key", key), zap.Error(err))
		return "", xerrors.ErrFileUploadFailed
	}

	url := s.publicURL + "/" + key
	s.logger.Info("uploaded object", zap.String("url", url), zap.Int64("size", file.Size()))
	return url, nil
}

func (s *MinioStore) Delete(ctx context.Context, url string) error {
	key, ok := s.objectKey(url)
	if !ok {
		return nil
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}

	s.logger.Info("deleted object", zap.String("key", key))
	return nil
}

func (s *MinioStore) objectKey(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// extension keeps a short alphanumeric suffix from the client filename.
func extension(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
