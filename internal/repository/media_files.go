package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/artstore/media-module/internal/domain/model"
)

// MediaRepository — интерфейс CRUD для таблицы media_files.
type MediaRepository interface {
	// Create создаёт новую запись медиафайла.
	Create(ctx context.Context, m *model.MediaFile) error
	// GetByID возвращает медиафайл по UUID. Удалённые записи не возвращаются.
	GetByID(ctx context.Context, mediaID string) (*model.MediaFile, error)
	// List возвращает список активных медиафайлов с фильтрацией.
	List(ctx context.Context, filters MediaListFilters, limit, offset int) ([]*model.MediaFile, error)
	// Count возвращает количество активных медиафайлов с фильтрацией.
	Count(ctx context.Context, filters MediaListFilters) (int, error)
	// MarkDeleted выполняет soft delete (status → deleted).
	MarkDeleted(ctx context.Context, mediaID string) error
	// ListDeleted возвращает записи, помеченные на удаление (для purge).
	ListDeleted(ctx context.Context, limit int) ([]*model.MediaFile, error)
	// Delete физически удаляет запись из БД.
	Delete(ctx context.Context, mediaID string) error
	// Stats возвращает статистику хранилища по активным записям.
	Stats(ctx context.Context) (*StorageStats, error)
	// CountByStatus возвращает количество записей по статусам (для метрик).
	CountByStatus(ctx context.Context) (map[model.MediaStatus]int, error)
}

// MediaListFilters — фильтры для списка медиафайлов.
type MediaListFilters struct {
	EventID    *string
	MediaType  *model.MediaType
	UploadedBy *string
}

// TypeStats — статистика по одному типу медиа.
type TypeStats struct {
	Count int   `json:"count"`
	Bytes int64 `json:"bytes"`
}

// StorageStats — агрегированная статистика хранилища.
type StorageStats struct {
	TotalFiles int                  `json:"total_files"`
	TotalBytes int64                `json:"total_bytes"`
	ByType     map[string]TypeStats `json:"by_type"`
}

// mediaColumns — список колонок media_files в порядке сканирования.
const mediaColumns = `media_id, event_id, uploaded_by, original_name, file_path,
		mime_type, media_type, size, width, height, duration,
		storage_provider, status, created_at, updated_at`

// mediaRepo — реализация MediaRepository.
type mediaRepo struct {
	db DBTX
}

// NewMediaRepository создаёт репозиторий медиафайлов.
func NewMediaRepository(db DBTX) MediaRepository {
	return &mediaRepo{db: db}
}

func (r *mediaRepo) Create(ctx context.Context, m *model.MediaFile) error {
	query := `
		INSERT INTO media_files (media_id, event_id, uploaded_by, original_name, file_path,
			mime_type, media_type, size, width, height, duration, storage_provider, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		m.ID, m.EventID, m.UploadedBy, m.OriginalName, m.FilePath,
		m.MimeType, m.MediaType, m.Size, m.Width, m.Height, m.Duration,
		m.StorageProvider, m.Status,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: медиафайл с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания записи медиафайла: %w", err)
	}
	return nil
}

func (r *mediaRepo) GetByID(ctx context.Context, mediaID string) (*model.MediaFile, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM media_files
		WHERE media_id = $1 AND status != 'deleted'`, mediaColumns)

	m := &model.MediaFile{}
	err := scanMedia(r.db.QueryRow(ctx, query, mediaID), m)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения медиафайла: %w", err)
	}
	return m, nil
}

// buildMediaWhere строит WHERE-условие и аргументы для фильтрации.
// Условие status != 'deleted' добавляется всегда.
func buildMediaWhere(filters MediaListFilters) (string, []any) {
	conditions := []string{"status != 'deleted'"}
	var args []any
	argNum := 1

	if filters.EventID != nil {
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", argNum))
		args = append(args, *filters.EventID)
		argNum++
	}
	if filters.MediaType != nil {
		conditions = append(conditions, fmt.Sprintf("media_type = $%d", argNum))
		args = append(args, *filters.MediaType)
		argNum++
	}
	if filters.UploadedBy != nil {
		conditions = append(conditions, fmt.Sprintf("uploaded_by = $%d", argNum))
		args = append(args, *filters.UploadedBy)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *mediaRepo) List(ctx context.Context, filters MediaListFilters, limit, offset int) ([]*model.MediaFile, error) {
	where, args := buildMediaWhere(filters)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM media_files
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, mediaColumns, where, argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка медиафайлов: %w", err)
	}
	defer rows.Close()

	return collectMedia(rows)
}

func (r *mediaRepo) Count(ctx context.Context, filters MediaListFilters) (int, error) {
	where, args := buildMediaWhere(filters)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM media_files %s`, where)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта медиафайлов: %w", err)
	}
	return count, nil
}

func (r *mediaRepo) MarkDeleted(ctx context.Context, mediaID string) error {
	query := `
		UPDATE media_files
		SET status = 'deleted', updated_at = now()
		WHERE media_id = $1 AND status != 'deleted'`

	tag, err := r.db.Exec(ctx, query, mediaID)
	if err != nil {
		return fmt.Errorf("ошибка пометки медиафайла на удаление: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mediaRepo) ListDeleted(ctx context.Context, limit int) ([]*model.MediaFile, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM media_files
		WHERE status = 'deleted'
		ORDER BY updated_at
		LIMIT $1`, mediaColumns)

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения удалённых медиафайлов: %w", err)
	}
	defer rows.Close()

	return collectMedia(rows)
}

func (r *mediaRepo) Delete(ctx context.Context, mediaID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media_files WHERE media_id = $1`, mediaID)
	if err != nil {
		return fmt.Errorf("ошибка физического удаления записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mediaRepo) Stats(ctx context.Context) (*StorageStats, error) {
	query := `
		SELECT media_type, COUNT(*), COALESCE(SUM(size), 0)
		FROM media_files
		WHERE status != 'deleted'
		GROUP BY media_type`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	defer rows.Close()

	stats := &StorageStats{ByType: make(map[string]TypeStats)}
	for rows.Next() {
		var (
			mediaType string
			count     int
			bytes     int64
		)
		if err := rows.Scan(&mediaType, &count, &bytes); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статистики: %w", err)
		}
		stats.ByType[mediaType] = TypeStats{Count: count, Bytes: bytes}
		stats.TotalFiles += count
		stats.TotalBytes += bytes
	}
	return stats, rows.Err()
}

func (r *mediaRepo) CountByStatus(ctx context.Context) (map[model.MediaStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM media_files GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта по статусам: %w", err)
	}
	defer rows.Close()

	result := make(map[model.MediaStatus]int)
	for rows.Next() {
		var (
			status model.MediaStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статусов: %w", err)
		}
		result[status] = count
	}
	return result, rows.Err()
}

// scanMedia сканирует одну строку media_files в модель.
func scanMedia(row pgx.Row, m *model.MediaFile) error {
	return row.Scan(
		&m.ID, &m.EventID, &m.UploadedBy, &m.OriginalName, &m.FilePath,
		&m.MimeType, &m.MediaType, &m.Size, &m.Width, &m.Height, &m.Duration,
		&m.StorageProvider, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
}

// collectMedia сканирует все строки результата в список моделей.
func collectMedia(rows pgx.Rows) ([]*model.MediaFile, error) {
	var result []*model.MediaFile
	for rows.Next() {
		m := &model.MediaFile{}
		if err := scanMedia(rows, m); err != nil {
			return nil, fmt.Errorf("ошибка сканирования медиафайла: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
