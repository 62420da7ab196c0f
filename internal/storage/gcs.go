package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/arturkryukov/artstore/media-module/internal/config"
	"github.com/arturkryukov/artstore/media-module/internal/domain/model"
)

// GCS — бэкенд хранения в Google Cloud Storage.
// Подписанные URL генерируются по схеме V4 от имени сервисного
// аккаунта клиента.
type GCS struct {
	client *gcstorage.Client
	bucket string
	logger *slog.Logger
}

// NewGCS создаёт GCS-бэкенд. При заданном файле сервисного аккаунта
// использует его, иначе — Application Default Credentials.
func NewGCS(cfg *config.Config, logger *slog.Logger) (*GCS, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if cfg.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
	}

	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCS-клиента: %w", err)
	}

	return &GCS{
		client: client,
		bucket: cfg.GCSBucket,
		logger: logger.With("backend", "gcs", "bucket", cfg.GCSBucket),
	}, nil
}

// Upload записывает объект в бакет. size не используется: writer
// GCS сам буферизует данные по чанкам.
func (g *GCS) Upload(ctx context.Context, reader io.Reader, size int64, path, contentType string) bool {
	w := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, reader); err != nil {
		w.Close()
		g.logger.Error("ошибка записи объекта", "path", path, "error", err)
		return false
	}
	if err := w.Close(); err != nil {
		g.logger.Error("ошибка завершения записи объекта", "path", path, "error", err)
		return false
	}
	return true
}

// Delete удаляет объект из бакета. Отсутствие объекта — успех.
func (g *GCS) Delete(ctx context.Context, path string) bool {
	err := g.client.Bucket(g.bucket).Object(path).Delete(ctx)
	if err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return true
		}
		g.logger.Error("ошибка удаления объекта", "path", path, "error", err)
		return false
	}
	return true
}

// SignedURL генерирует V4 signed URL с ограниченным сроком действия.
func (g *GCS) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, bool) {
	u, err := g.client.Bucket(g.bucket).SignedURL(path, &gcstorage.SignedURLOptions{
		Scheme:  gcstorage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		g.logger.Error("ошибка генерации подписанного URL", "path", path, "error", err)
		return "", false
	}
	return u, true
}

// Exists проверяет наличие объекта в бакете.
func (g *GCS) Exists(ctx context.Context, path string) bool {
	_, err := g.client.Bucket(g.bucket).Object(path).Attrs(ctx)
	return err == nil
}

// Name возвращает тип бэкенда.
func (g *GCS) Name() model.StorageProvider {
	return model.ProviderGCS
}

// Ping проверяет доступность бакета.
func (g *GCS) Ping(ctx context.Context) error {
	if _, err := g.client.Bucket(g.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("бакет %s недоступен: %w", g.bucket, err)
	}
	return nil
}

// Close закрывает GCS-клиент.
func (g *GCS) Close() error {
	return g.client.Close()
}
