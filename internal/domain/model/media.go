// Пакет model — доменные модели Media Module.
// MediaFile — единая структура метаданных медиафайла, используется
// как in-memory представление и как строка таблицы media_files.
package model

import (
	"time"
)

// MediaType — тип медиафайла в портале.
type MediaType string

const (
	// TypePhoto — фотография (обрабатывается Processor-ом)
	TypePhoto MediaType = "photo"
	// TypeVideo — видео (загружается как есть, без транскодирования)
	TypeVideo MediaType = "video"
	// TypeReel — короткое вертикальное видео
	TypeReel MediaType = "reel"
)

// Valid проверяет, что значение является допустимым типом медиа.
func (t MediaType) Valid() bool {
	switch t {
	case TypePhoto, TypeVideo, TypeReel:
		return true
	}
	return false
}

// StorageProvider — провайдер хранилища, в котором лежит файл.
type StorageProvider string

const (
	// ProviderLocal — локальная файловая система
	ProviderLocal StorageProvider = "local"
	// ProviderS3 — AWS S3
	ProviderS3 StorageProvider = "s3"
	// ProviderDO — DigitalOcean Spaces (S3-совместимый API)
	ProviderDO StorageProvider = "do"
	// ProviderGCS — Google Cloud Storage
	ProviderGCS StorageProvider = "gcs"
)

// MediaStatus — статус медиафайла.
type MediaStatus string

const (
	// StatusActive — файл доступен для выдачи
	StatusActive MediaStatus = "active"
	// StatusDeleted — помечен на удаление (физическое удаление — purge)
	StatusDeleted MediaStatus = "deleted"
)

// MediaFile — метаданные загруженного медиафайла.
// Соответствует строке таблицы media_files.
type MediaFile struct {
	// ID — уникальный идентификатор (UUID v4)
	ID string `json:"id"`

	// EventID — идентификатор события-владельца (nil для несвязанных файлов)
	EventID *string `json:"event_id,omitempty"`

	// UploadedBy — идентификатор пользователя (sub из JWT)
	UploadedBy string `json:"uploaded_by"`

	// OriginalName — оригинальное имя файла при загрузке
	OriginalName string `json:"original_name"`

	// FilePath — путь объекта в хранилище.
	// Формат: {year}/{month}/{event_id|none}/{media_type}/{uuid}{ext}
	FilePath string `json:"file_path"`

	// MimeType — MIME-тип, выведенный из расширения файла
	MimeType string `json:"mime_type"`

	// MediaType — тип медиа (photo, video, reel)
	MediaType MediaType `json:"media_type"`

	// Size — размер сохранённого объекта в байтах.
	// Для изображений — размер после перекодирования в JPEG.
	Size int64 `json:"size"`

	// Width, Height — размеры в пикселях до перекодирования (только изображения)
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`

	// Duration — длительность видео в секундах.
	// Заполняется внешней фоновой задачей, при загрузке всегда nil.
	Duration *float64 `json:"duration,omitempty"`

	// StorageProvider — бэкенд, в котором хранится объект
	StorageProvider StorageProvider `json:"storage_provider"`

	// Status — текущий статус файла
	Status MediaStatus `json:"status"`

	// CreatedAt, UpdatedAt — метки времени записи (UTC)
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsImage проверяет, что файл является фотографией.
func (m *MediaFile) IsImage() bool {
	return m.MediaType == TypePhoto
}

// IsVideo проверяет, что файл является видео или reel.
func (m *MediaFile) IsVideo() bool {
	return m.MediaType == TypeVideo || m.MediaType == TypeReel
}

// IsActive проверяет, что файл в активном состоянии.
func (m *MediaFile) IsActive() bool {
	return m.Status == StatusActive
}
