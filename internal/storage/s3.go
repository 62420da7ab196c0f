package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/arturkryukov/artstore/media-module/internal/config"
	"github.com/arturkryukov/artstore/media-module/internal/domain/model"
)

// S3 — бэкенд хранения в S3-совместимом облаке.
// Покрывает AWS S3 и DigitalOcean Spaces: Spaces реализуют S3 API,
// различие только в endpoint и регионе.
type S3 struct {
	client *minio.Client
	bucket string
	name   model.StorageProvider
	logger *slog.Logger
}

// NewS3 создаёт S3-бэкенд по конфигурации.
func NewS3(cfg *config.Config, logger *slog.Logger) (*S3, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания S3-клиента: %w", err)
	}

	return &S3{
		client: client,
		bucket: cfg.S3Bucket,
		name:   model.StorageProvider(cfg.StorageType),
		logger: logger.With("backend", cfg.StorageType, "bucket", cfg.S3Bucket),
	}, nil
}

// Upload загружает объект в бакет. При size = -1 клиент использует
// multipart-загрузку.
func (s *S3) Upload(ctx context.Context, reader io.Reader, size int64, path, contentType string) bool {
	_, err := s.client.PutObject(ctx, s.bucket, path, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Error("ошибка загрузки объекта", "path", path, "error", err)
		return false
	}
	return true
}

// Delete удаляет объект из бакета. Отсутствие объекта — успех.
func (s *S3) Delete(ctx context.Context, path string) bool {
	err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
	if err != nil {
		var respErr minio.ErrorResponse
		if errors.As(err, &respErr) && respErr.Code == "NoSuchKey" {
			return true
		}
		s.logger.Error("ошибка удаления объекта", "path", path, "error", err)
		return false
	}
	return true
}

// SignedURL генерирует presigned GET URL с ограниченным сроком действия.
func (s *S3) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, bool) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, path, ttl, nil)
	if err != nil {
		s.logger.Error("ошибка генерации подписанного URL", "path", path, "error", err)
		return "", false
	}
	return u.String(), true
}

// Exists проверяет наличие объекта в бакете.
func (s *S3) Exists(ctx context.Context, path string) bool {
	_, err := s.client.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{})
	return err == nil
}

// Name возвращает тип бэкенда (s3 или do).
func (s *S3) Name() model.StorageProvider {
	return s.name
}

// Ping проверяет доступность бакета.
func (s *S3) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("бакет %s недоступен: %w", s.bucket, err)
	}
	if !exists {
		return fmt.Errorf("бакет %s не существует", s.bucket)
	}
	return nil
}
