// Пакет service — бизнес-логика Media Module.
// upload.go — оркестратор загрузки медиафайлов.
// Полный цикл: валидация → генерация пути → обработка изображения →
// запись в бэкенд → подписанный URL. Ошибки этапов не поднимаются
// наверх: результат каждого файла самодостаточен.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arturkryukov/artstore/media-module/internal/api/middleware"
	"github.com/arturkryukov/artstore/media-module/internal/domain/model"
	"github.com/arturkryukov/artstore/media-module/internal/storage"
)

// UploadParams — параметры загрузки одного файла.
type UploadParams struct {
	// Reader — содержимое файла; курсор должен стоять в начале
	Reader io.ReadSeeker
	// Filename — оригинальное имя файла
	Filename string
	// Size — размер файла в байтах
	Size int64
	// EventID — идентификатор события (опционально)
	EventID *string
	// MediaType — тип медиа (photo, video, reel)
	MediaType model.MediaType
	// UploadedBy — subject пользователя из JWT
	UploadedBy string
}

// UploadResult — результат загрузки одного файла.
type UploadResult struct {
	Success     bool                  `json:"success"`
	Filename    string                `json:"filename"`
	FilePath    string                `json:"file_path,omitempty"`
	FileInfo    FileInfo              `json:"file_info"`
	SignedURL   string                `json:"signed_url,omitempty"`
	StorageType model.StorageProvider `json:"storage_type"`
	Errors      []string              `json:"errors,omitempty"`
}

// BulkResult — результат массовой загрузки.
type BulkResult struct {
	TotalFiles        int             `json:"total_files"`
	SuccessCount      int             `json:"success_count"`
	ErrorCount        int             `json:"error_count"`
	SuccessfulUploads []*UploadResult `json:"successful_uploads"`
	FailedUploads     []*UploadResult `json:"failed_uploads"`
}

// Uploader — оркестратор конвейера загрузки.
type Uploader struct {
	validator    *Validator
	processor    *Processor
	backend      storage.Backend
	signedURLTTL time.Duration
	workers      int
	logger       *slog.Logger
}

// NewUploader создаёт оркестратор загрузки.
func NewUploader(validator *Validator, processor *Processor, backend storage.Backend,
	signedURLTTL time.Duration, workers int, logger *slog.Logger,
) *Uploader {
	return &Uploader{
		validator:    validator,
		processor:    processor,
		backend:      backend,
		signedURLTTL: signedURLTTL,
		workers:      workers,
		logger:       logger.With(slog.String("component", "uploader")),
	}
}

// UploadFile выполняет полный цикл загрузки одного файла.
// Паника на любом этапе конвертируется в неуспешный результат:
// один повреждённый файл не должен ронять bulk-загрузку.
func (u *Uploader) UploadFile(ctx context.Context, params UploadParams) (result *UploadResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			u.logger.Error("паника при загрузке файла",
				slog.String("filename", params.Filename),
				slog.Any("panic", r),
			)
			result = &UploadResult{
				Filename:    params.Filename,
				StorageType: u.backend.Name(),
				Errors:      []string{fmt.Sprintf("Upload failed: %v", r)},
			}
		}
		middleware.UploadDuration.Observe(time.Since(start).Seconds())
		if result.Success {
			middleware.UploadsTotal.WithLabelValues("success", string(params.MediaType)).Inc()
		} else {
			middleware.UploadsTotal.WithLabelValues("failure", string(params.MediaType)).Inc()
		}
	}()

	result = &UploadResult{
		Filename:    params.Filename,
		StorageType: u.backend.Name(),
	}

	validation := u.validator.Validate(params.Reader, params.Filename, params.Size)
	result.FileInfo = validation.FileInfo
	if !validation.IsValid {
		result.Errors = validation.Errors
		u.logger.Warn("файл не прошёл валидацию",
			slog.String("filename", params.Filename),
			slog.Any("errors", validation.Errors),
		)
		return result
	}

	path := storage.GeneratePath(params.EventID, params.MediaType, params.Filename, time.Now().UTC())

	// Изображения перекодируются, видео загружаются как есть
	var (
		body        io.Reader = params.Reader
		size                  = params.Size
		contentType           = validation.FileInfo.ContentType
	)
	if validation.FileInfo.IsImage {
		processed, err := u.processor.ProcessImage(params.Reader)
		if err != nil {
			result.Errors = []string{fmt.Sprintf("Upload failed: %s", err.Error())}
			u.logger.Error("ошибка обработки изображения",
				slog.String("filename", params.Filename),
				slog.String("error", err.Error()),
			)
			return result
		}

		body = bytes.NewReader(processed.Data)
		size = int64(len(processed.Data))
		contentType = "image/jpeg"

		// Размер — после перекодирования, габариты — исходные
		result.FileInfo.Size = size
		result.FileInfo.ContentType = contentType
		result.FileInfo.Width = processed.Width
		result.FileInfo.Height = processed.Height
	}

	if !u.backend.Upload(ctx, body, size, path, contentType) {
		result.Errors = []string{"Failed to upload file to storage backend"}
		return result
	}

	signedURL, _ := u.backend.SignedURL(ctx, path, u.signedURLTTL)

	result.Success = true
	result.FilePath = path
	result.SignedURL = signedURL

	middleware.UploadBytes.Add(float64(size))
	u.logger.Info("файл загружен",
		slog.String("filename", params.Filename),
		slog.String("path", path),
		slog.Int64("size", size),
		slog.String("storage", string(u.backend.Name())),
	)

	return result
}

// BulkUpload загружает несколько файлов через ограниченный пул воркеров.
// Каждый файл изолирован; порядок результатов внутри списков совпадает
// с порядком входных файлов.
func (u *Uploader) BulkUpload(ctx context.Context, files []UploadParams) *BulkResult {
	results := make([]*UploadResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)

	for i, params := range files {
		g.Go(func() error {
			results[i] = u.UploadFile(gctx, params)
			return nil
		})
	}

	// Воркеры не возвращают ошибок: единственный выход — завершение всех
	_ = g.Wait()

	bulk := &BulkResult{
		TotalFiles:        len(files),
		SuccessfulUploads: make([]*UploadResult, 0, len(files)),
		FailedUploads:     make([]*UploadResult, 0),
	}
	for _, r := range results {
		if r.Success {
			bulk.SuccessCount++
			bulk.SuccessfulUploads = append(bulk.SuccessfulUploads, r)
		} else {
			bulk.ErrorCount++
			bulk.FailedUploads = append(bulk.FailedUploads, r)
		}
	}

	u.logger.Info("массовая загрузка завершена",
		slog.Int("total", bulk.TotalFiles),
		slog.Int("success", bulk.SuccessCount),
		slog.Int("errors", bulk.ErrorCount),
	)

	return bulk
}

// DeleteObject удаляет файл из бэкенда хранения.
func (u *Uploader) DeleteObject(ctx context.Context, path string) bool {
	ok := u.backend.Delete(ctx, path)
	if ok {
		u.logger.Info("файл удалён из хранилища", slog.String("path", path))
	}
	return ok
}

// SignedURL возвращает подписанный URL для файла.
// При неположительном ttl используется значение по умолчанию.
func (u *Uploader) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, bool) {
	if ttl <= 0 {
		ttl = u.signedURLTTL
	}
	return u.backend.SignedURL(ctx, path, ttl)
}

// Backend возвращает активный бэкенд хранения.
func (u *Uploader) Backend() storage.Backend {
	return u.backend
}
