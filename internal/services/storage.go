package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"polydate-server/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageService stores profile photos in MinIO. The rest of the
// system only ever sees the resulting URLs.
type StorageService struct {
	cfg    *config.Config
	client *minio.Client
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &StorageService{cfg: cfg, client: client}, nil
}

func (s *StorageService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.PhotoBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.PhotoBucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// UploadPhoto streams a photo into the bucket under a unique key and
// returns its public URL.
func (s *StorageService) UploadPhoto(ctx context.Context, userID uint, file io.Reader, size int64, originalName, contentType string) (string, error) {
	ext := path.Ext(originalName)
	key := fmt.Sprintf("profile_photos/%d_%s%s", userID, uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, s.cfg.PhotoBucket, key, file, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	protocol := "http"
	if s.cfg.MinIOUseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, s.cfg.MinIOEndpoint, s.cfg.PhotoBucket, key), nil
}

func (s *StorageService) DeletePhoto(ctx context.Context, url string) error {
	key := s.keyFromURL(url)
	if key == "" {
		return fmt.Errorf("invalid photo URL")
	}
	if err := s.client.RemoveObject(ctx, s.cfg.PhotoBucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

func (s *StorageService) keyFromURL(url string) string {
	marker := "/" + s.cfg.PhotoBucket + "/"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return ""
	}
	return url[idx+len(marker):]
}
