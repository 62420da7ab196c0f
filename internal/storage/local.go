package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arturkryukov/artstore/media-module/internal/domain/model"
)

// Local — бэкенд хранения на локальном диске.
// Файлы раскладываются по иерархии путей под mediaRoot, публичные URL
// формируются конкатенацией mediaURL и пути. URL не подписываются:
// доступ к локальным файлам контролирует фронтовый веб-сервер.
type Local struct {
	mediaRoot string
	mediaURL  string
	logger    *slog.Logger
}

// NewLocal создаёт локальный бэкенд. Директория mediaRoot создаётся,
// если не существует.
func NewLocal(mediaRoot, mediaURL string, logger *slog.Logger) (*Local, error) {
	if err := os.MkdirAll(mediaRoot, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию медиафайлов %s: %w", mediaRoot, err)
	}

	return &Local{
		mediaRoot: mediaRoot,
		mediaURL:  mediaURL,
		logger:    logger.With("backend", "local"),
	}, nil
}

// Upload записывает данные на диск. size не используется.
// Паттерн: temp файл → запись → fsync → atomic rename.
func (l *Local) Upload(ctx context.Context, reader io.Reader, size int64, path, contentType string) bool {
	fullPath := filepath.Join(l.mediaRoot, filepath.FromSlash(path))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		l.logger.Error("ошибка создания директории", "path", path, "error", err)
		return false
	}

	tmpPath := fullPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		l.logger.Error("ошибка создания временного файла", "path", path, "error", err)
		return false
	}

	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(tmpPath)
		l.logger.Error("ошибка записи данных", "path", path, "error", err)
		return false
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		l.logger.Error("ошибка fsync", "path", path, "error", err)
		return false
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		l.logger.Error("ошибка закрытия файла", "path", path, "error", err)
		return false
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		l.logger.Error("ошибка атомарного переименования", "path", path, "error", err)
		return false
	}

	return true
}

// Delete удаляет файл с диска. Отсутствие файла — успех.
func (l *Local) Delete(ctx context.Context, path string) bool {
	fullPath := filepath.Join(l.mediaRoot, filepath.FromSlash(path))

	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		l.logger.Error("ошибка удаления файла", "path", path, "error", err)
		return false
	}
	return true
}

// SignedURL для локального бэкенда возвращает публичный URL без подписи.
// TTL игнорируется.
func (l *Local) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, bool) {
	return l.mediaURL + path, true
}

// Exists проверяет наличие файла на диске.
func (l *Local) Exists(ctx context.Context, path string) bool {
	fullPath := filepath.Join(l.mediaRoot, filepath.FromSlash(path))
	_, err := os.Stat(fullPath)
	return err == nil
}

// Name возвращает тип бэкенда.
func (l *Local) Name() model.StorageProvider {
	return model.ProviderLocal
}

// Ping проверяет доступность директории медиафайлов.
func (l *Local) Ping(ctx context.Context) error {
	if _, err := os.Stat(l.mediaRoot); err != nil {
		return fmt.Errorf("директория медиафайлов недоступна: %w", err)
	}
	return nil
}

// MediaRoot возвращает корневую директорию медиафайлов.
// Используется для раздачи статики через HTTP-сервер.
func (l *Local) MediaRoot() string {
	return l.mediaRoot
}
