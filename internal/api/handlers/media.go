// media.go — HTTP handlers операций над медиафайлами.
// Upload (одиночный и bulk), List, Get, Signed URL, Delete.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/arturkryukov/artstore/media-module/internal/api/errors"
	"github.com/arturkryukov/artstore/media-module/internal/api/middleware"
	"github.com/arturkryukov/artstore/media-module/internal/domain/model"
	"github.com/arturkryukov/artstore/media-module/internal/repository"
	"github.com/arturkryukov/artstore/media-module/internal/service"
)

// multipartBufferSize — размер буфера в памяти при парсинге multipart.
// Остальное уходит во временные файлы.
const multipartBufferSize = 32 << 20 // 32 MB

// mediaUploadItem — результат загрузки одного файла в ответе API.
// ID заполняется только для успешно сохранённых файлов.
type mediaUploadItem struct {
	ID string `json:"id,omitempty"`
	*service.UploadResult
}

// mediaListResponse — ответ списка медиафайлов.
type mediaListResponse struct {
	Items   []*model.MediaFile `json:"items"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
	HasMore bool               `json:"has_more"`
}

// mediaDetailResponse — медиафайл с подписанным URL.
type mediaDetailResponse struct {
	*model.MediaFile
	SignedURL string `json:"signed_url,omitempty"`
}

// UploadMedia обрабатывает POST /api/v1/media/upload.
// Multipart form: files (один или несколько), event_id (опционально),
// file_type (photo|video|reel, по умолчанию photo).
// Один файл — 201 с одиночным результатом, несколько — 200 с bulk-результатом.
// Записи в БД создаются только для успешно загруженных файлов.
func (h *APIHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())

	if err := r.ParseMultipartForm(multipartBufferSize); err != nil {
		apierrors.ValidationError(w, "Ошибка парсинга multipart: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		apierrors.ValidationError(w, "Поле 'files' обязательно")
		return
	}

	mediaType := model.TypePhoto
	if v := r.FormValue("file_type"); v != "" {
		mediaType = model.MediaType(v)
		if !mediaType.Valid() {
			apierrors.ValidationError(w, "Недопустимый file_type: "+v)
			return
		}
	}

	var eventID *string
	if v := r.FormValue("event_id"); v != "" {
		eventID = &v
	}

	// Открываем все файлы до запуска конвейера
	params := make([]service.UploadParams, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			apierrors.ValidationError(w, "Ошибка чтения файла "+fh.Filename+": "+err.Error())
			return
		}
		defer f.Close()

		params = append(params, service.UploadParams{
			Reader:     f,
			Filename:   fh.Filename,
			Size:       fh.Size,
			EventID:    eventID,
			MediaType:  mediaType,
			UploadedBy: subject,
		})
	}

	if len(params) == 1 {
		result := h.uploader.UploadFile(r.Context(), params[0])
		item := h.persistResult(r, result, params[0])

		status := http.StatusCreated
		if !result.Success {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, item)
		return
	}

	bulk := h.uploader.BulkUpload(r.Context(), params)

	items := struct {
		TotalFiles        int                `json:"total_files"`
		SuccessCount      int                `json:"success_count"`
		ErrorCount        int                `json:"error_count"`
		SuccessfulUploads []*mediaUploadItem `json:"successful_uploads"`
		FailedUploads     []*mediaUploadItem `json:"failed_uploads"`
	}{
		TotalFiles:        bulk.TotalFiles,
		SuccessCount:      bulk.SuccessCount,
		ErrorCount:        bulk.ErrorCount,
		SuccessfulUploads: make([]*mediaUploadItem, 0, len(bulk.SuccessfulUploads)),
		FailedUploads:     make([]*mediaUploadItem, 0, len(bulk.FailedUploads)),
	}

	common := service.UploadParams{EventID: eventID, MediaType: mediaType, UploadedBy: subject}
	for _, res := range bulk.SuccessfulUploads {
		items.SuccessfulUploads = append(items.SuccessfulUploads, h.persistResult(r, res, common))
	}
	for _, res := range bulk.FailedUploads {
		items.FailedUploads = append(items.FailedUploads, &mediaUploadItem{UploadResult: res})
	}

	writeJSON(w, http.StatusOK, items)
}

// persistResult создаёт запись media_files для успешного результата.
// Ошибка БД не отменяет загрузку: файл уже в хранилище, ответ остаётся
// успешным, но без ID.
func (h *APIHandler) persistResult(r *http.Request, res *service.UploadResult, params service.UploadParams) *mediaUploadItem {
	item := &mediaUploadItem{UploadResult: res}
	if !res.Success {
		return item
	}

	m := &model.MediaFile{
		ID:              uuid.New().String(),
		EventID:         params.EventID,
		UploadedBy:      params.UploadedBy,
		OriginalName:    res.Filename,
		FilePath:        res.FilePath,
		MimeType:        res.FileInfo.ContentType,
		MediaType:       params.MediaType,
		Size:            res.FileInfo.Size,
		StorageProvider: res.StorageType,
		Status:          model.StatusActive,
	}
	if res.FileInfo.Width > 0 {
		w, ht := res.FileInfo.Width, res.FileInfo.Height
		m.Width = &w
		m.Height = &ht
	}

	if err := h.repo.Create(r.Context(), m); err != nil {
		h.logger.Error("Ошибка сохранения записи медиафайла",
			"file_path", res.FilePath, "error", err)
		return item
	}

	middleware.MediaFilesTotal.WithLabelValues(string(model.StatusActive)).Inc()
	item.ID = m.ID
	return item
}

// ListMedia обрабатывает GET /api/v1/media.
// Фильтры: event_id, media_type, uploaded_by. Пагинация: limit, offset.
func (h *APIHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	filters := repository.MediaListFilters{}

	if v := r.URL.Query().Get("event_id"); v != "" {
		filters.EventID = &v
	}
	if v := r.URL.Query().Get("media_type"); v != "" {
		mt := model.MediaType(v)
		if !mt.Valid() {
			apierrors.ValidationError(w, "Недопустимый media_type: "+v)
			return
		}
		filters.MediaType = &mt
	}
	if v := r.URL.Query().Get("uploaded_by"); v != "" {
		filters.UploadedBy = &v
	}

	limit, offset := paginationParams(r)

	items, err := h.repo.List(r.Context(), filters, limit, offset)
	if err != nil {
		h.logger.Error("Ошибка получения списка медиафайлов", "error", err)
		apierrors.InternalError(w, "Ошибка получения списка медиафайлов")
		return
	}
	total, err := h.repo.Count(r.Context(), filters)
	if err != nil {
		h.logger.Error("Ошибка подсчёта медиафайлов", "error", err)
		apierrors.InternalError(w, "Ошибка подсчёта медиафайлов")
		return
	}

	if items == nil {
		items = []*model.MediaFile{}
	}
	writeJSON(w, http.StatusOK, mediaListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// GetMedia обрабатывает GET /api/v1/media/{media_id}.
// Возвращает метаданные со свежим подписанным URL.
func (h *APIHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mediaByID(w, r)
	if !ok {
		return
	}

	signedURL, _ := h.uploader.SignedURL(r.Context(), m.FilePath, 0)
	writeJSON(w, http.StatusOK, mediaDetailResponse{
		MediaFile: m,
		SignedURL: signedURL,
	})
}

// GetSignedURL обрабатывает GET /api/v1/media/{media_id}/signed-url.
// Query: expiration — срок действия в секундах (опционально).
func (h *APIHandler) GetSignedURL(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mediaByID(w, r)
	if !ok {
		return
	}

	var ttl time.Duration
	if v := r.URL.Query().Get("expiration"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			apierrors.ValidationError(w, "Параметр expiration должен быть положительным числом секунд")
			return
		}
		ttl = time.Duration(secs) * time.Second
	}

	signedURL, ok := h.uploader.SignedURL(r.Context(), m.FilePath, ttl)
	if !ok {
		apierrors.StorageError(w, "Не удалось сформировать подписанный URL")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         m.ID,
		"signed_url": signedURL,
	})
}

// DeleteMedia обрабатывает DELETE /api/v1/media/{media_id}.
// Soft delete: запись помечается, физическое удаление выполняет purge.
// Доступ: scope media:admin (проверяется на уровне роутера).
func (h *APIHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mediaByID(w, r)
	if !ok {
		return
	}

	if err := h.repo.MarkDeleted(r.Context(), m.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Медиафайл не найден")
			return
		}
		h.logger.Error("Ошибка удаления медиафайла", "media_id", m.ID, "error", err)
		apierrors.InternalError(w, "Ошибка удаления медиафайла")
		return
	}

	middleware.MediaFilesTotal.WithLabelValues(string(model.StatusActive)).Dec()
	middleware.MediaFilesTotal.WithLabelValues(string(model.StatusDeleted)).Inc()

	h.logger.Info("Медиафайл помечен на удаление",
		"media_id", m.ID,
		"file_path", m.FilePath,
		"deleted_by", middleware.SubjectFromContext(r.Context()),
	)

	w.WriteHeader(http.StatusNoContent)
}

// mediaByID извлекает медиафайл по URL-параметру media_id.
// Пишет ответ об ошибке и возвращает ok=false при любой проблеме.
func (h *APIHandler) mediaByID(w http.ResponseWriter, r *http.Request) (*model.MediaFile, bool) {
	idParam := chi.URLParam(r, "media_id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		apierrors.ValidationError(w, "Некорректный UUID медиафайла: "+idParam)
		return nil, false
	}

	m, err := h.repo.GetByID(r.Context(), id.String())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Медиафайл не найден")
			return nil, false
		}
		h.logger.Error("Ошибка получения медиафайла", "media_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения медиафайла")
		return nil, false
	}
	return m, true
}
