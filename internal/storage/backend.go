package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/arturkryukov/artstore/media-module/internal/config"
	"github.com/arturkryukov/artstore/media-module/internal/domain/model"
)

// Backend — единый интерфейс бэкенда хранения медиафайлов.
// Ошибки бэкенда не поднимаются наверх: Upload и Delete возвращают
// признак успеха, SignedURL — признак наличия URL. Детали ошибок
// логируются на границе бэкенда.
type Backend interface {
	// Upload записывает содержимое reader по относительному пути path.
	// size — размер данных в байтах (-1, если неизвестен).
	// Возвращает true при успехе.
	Upload(ctx context.Context, reader io.Reader, size int64, path, contentType string) bool

	// Delete удаляет файл по пути. Отсутствие файла — успех (идемпотентность).
	Delete(ctx context.Context, path string) bool

	// SignedURL возвращает URL для доступа к файлу с ограниченным сроком
	// действия. При невозможности сгенерировать URL возвращает ("", false).
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, bool)

	// Exists проверяет наличие файла в хранилище.
	Exists(ctx context.Context, path string) bool

	// Name возвращает тип бэкенда (local, s3, do, gcs).
	Name() model.StorageProvider

	// Ping проверяет доступность хранилища. Используется в readiness probe.
	Ping(ctx context.Context) error
}

// New создаёт бэкенд хранения по типу из конфигурации.
func New(cfg *config.Config, logger *slog.Logger) (Backend, error) {
	switch cfg.StorageType {
	case "local":
		return NewLocal(cfg.MediaRoot, cfg.MediaURL, logger)
	case "s3", "do":
		return NewS3(cfg, logger)
	case "gcs":
		return NewGCS(cfg, logger)
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища: %q", cfg.StorageType)
	}
}
