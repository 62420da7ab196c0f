// Пакет storage — бэкенды хранения медиафайлов: локальный диск,
// S3-совместимые облака (AWS S3, DigitalOcean Spaces) и Google Cloud Storage.
// Все бэкенды реализуют единый интерфейс Backend.
package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arturkryukov/artstore/media-module/internal/domain/model"
)

// GeneratePath генерирует относительный путь хранения медиафайла.
// Формат: {год}/{месяц:02d}/{event_id|none}/{media_type}/{uuid}{ext}
// Пример: 2026/09/E42/photo/a1b2c3d4-....jpg
//
// Расширение берётся из оригинального имени и приводится к нижнему
// регистру. Файлы без события попадают в сегмент "none".
func GeneratePath(eventID *string, mediaType model.MediaType, originalName string, now time.Time) string {
	event := "none"
	if eventID != nil && *eventID != "" {
		event = *eventID
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	filename := uuid.New().String() + ext

	return fmt.Sprintf("%d/%02d/%s/%s/%s",
		now.Year(), int(now.Month()), event, mediaType, filename)
}
