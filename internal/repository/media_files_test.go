package repository

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/arturkryukov/artstore/media-module/internal/config"
	"github.com/arturkryukov/artstore/media-module/internal/database"
	"github.com/arturkryukov/artstore/media-module/internal/domain/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool с очисткой через t.Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("media_module_test"),
		postgres.WithUsername("media"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("MM_INSTANCE_ID", "mm-test")
	os.Setenv("MM_MEDIA_ROOT", t.TempDir())
	os.Setenv("MM_DB_HOST", host)
	os.Setenv("MM_DB_PORT", port.Port())
	os.Setenv("MM_DB_NAME", "media_module_test")
	os.Setenv("MM_DB_USER", "media")
	os.Setenv("MM_DB_PASSWORD", "test-password")
	os.Setenv("MM_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// newTestMedia создаёт тестовую запись медиафайла.
func newTestMedia(eventID *string, mediaType model.MediaType, size int64) *model.MediaFile {
	id := uuid.New().String()
	return &model.MediaFile{
		ID:              id,
		EventID:         eventID,
		UploadedBy:      "user-001",
		OriginalName:    "photo.jpg",
		FilePath:        "2026/09/none/" + string(mediaType) + "/" + id + ".jpg",
		MimeType:        "image/jpeg",
		MediaType:       mediaType,
		Size:            size,
		StorageProvider: model.ProviderLocal,
		Status:          model.StatusActive,
	}
}

func TestMediaCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewMediaRepository(pool)

	width, height := 3000, 2000
	m := newTestMedia(nil, model.TypePhoto, 2048)
	m.Width = &width
	m.Height = &height

	// Create
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if m.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	// Повторный Create с тем же ID — конфликт
	dup := newTestMedia(nil, model.TypePhoto, 100)
	dup.ID = m.ID
	if err := repo.Create(ctx, dup); err == nil {
		t.Error("Повторный Create() должен вернуть ошибку конфликта")
	}

	// GetByID
	got, err := repo.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.OriginalName != "photo.jpg" {
		t.Errorf("OriginalName = %q, хотели %q", got.OriginalName, "photo.jpg")
	}
	if got.Width == nil || *got.Width != 3000 {
		t.Errorf("Width = %v, хотели 3000", got.Width)
	}
	if got.EventID != nil {
		t.Errorf("EventID = %v, хотели nil", got.EventID)
	}

	// GetByID для несуществующего ID
	if _, err := repo.GetByID(ctx, uuid.New().String()); err != ErrNotFound {
		t.Errorf("GetByID() несуществующего: ожидали ErrNotFound, получили %v", err)
	}

	// MarkDeleted
	if err := repo.MarkDeleted(ctx, m.ID); err != nil {
		t.Fatalf("MarkDeleted() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, m.ID); err != ErrNotFound {
		t.Errorf("После MarkDeleted: ожидали ErrNotFound, получили %v", err)
	}

	// Повторный MarkDeleted
	if err := repo.MarkDeleted(ctx, m.ID); err != ErrNotFound {
		t.Errorf("Повторный MarkDeleted: ожидали ErrNotFound, получили %v", err)
	}

	// ListDeleted
	deleted, err := repo.ListDeleted(ctx, 10)
	if err != nil {
		t.Fatalf("ListDeleted() ошибка: %v", err)
	}
	if len(deleted) != 1 || deleted[0].ID != m.ID {
		t.Errorf("ListDeleted() вернул %d записей", len(deleted))
	}

	// Delete (физическое)
	if err := repo.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	deleted2, _ := repo.ListDeleted(ctx, 10)
	if len(deleted2) != 0 {
		t.Errorf("После Delete: ListDeleted вернул %d записей, хотели 0", len(deleted2))
	}
}

func TestMediaListFilters(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewMediaRepository(pool)

	event1 := "event-001"
	event2 := "event-002"

	items := []*model.MediaFile{
		newTestMedia(&event1, model.TypePhoto, 100),
		newTestMedia(&event1, model.TypeVideo, 200),
		newTestMedia(&event2, model.TypePhoto, 300),
		newTestMedia(nil, model.TypeReel, 400),
	}
	for _, m := range items {
		if err := repo.Create(ctx, m); err != nil {
			t.Fatalf("Create() ошибка: %v", err)
		}
	}

	// Без фильтров
	all, err := repo.List(ctx, MediaListFilters{}, 10, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("List() без фильтров вернул %d, хотели 4", len(all))
	}

	// По событию
	byEvent, err := repo.List(ctx, MediaListFilters{EventID: &event1}, 10, 0)
	if err != nil {
		t.Fatalf("List(event) ошибка: %v", err)
	}
	if len(byEvent) != 2 {
		t.Errorf("List(event_id=event-001) вернул %d, хотели 2", len(byEvent))
	}

	// По типу
	photoType := model.TypePhoto
	byType, err := repo.List(ctx, MediaListFilters{MediaType: &photoType}, 10, 0)
	if err != nil {
		t.Fatalf("List(type) ошибка: %v", err)
	}
	if len(byType) != 2 {
		t.Errorf("List(media_type=photo) вернул %d, хотели 2", len(byType))
	}

	// Комбинация фильтров
	both, err := repo.List(ctx, MediaListFilters{EventID: &event1, MediaType: &photoType}, 10, 0)
	if err != nil {
		t.Fatalf("List(event+type) ошибка: %v", err)
	}
	if len(both) != 1 {
		t.Errorf("List(event+type) вернул %d, хотели 1", len(both))
	}

	// Count с фильтром
	count, err := repo.Count(ctx, MediaListFilters{EventID: &event1})
	if err != nil {
		t.Fatalf("Count() ошибка: %v", err)
	}
	if count != 2 {
		t.Errorf("Count(event_id=event-001) = %d, хотели 2", count)
	}

	// Пагинация
	page, err := repo.List(ctx, MediaListFilters{}, 2, 2)
	if err != nil {
		t.Fatalf("List(limit/offset) ошибка: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("List(limit=2, offset=2) вернул %d, хотели 2", len(page))
	}

	// Удалённые не попадают в список
	if err := repo.MarkDeleted(ctx, items[0].ID); err != nil {
		t.Fatalf("MarkDeleted() ошибка: %v", err)
	}
	afterDelete, _ := repo.List(ctx, MediaListFilters{}, 10, 0)
	if len(afterDelete) != 3 {
		t.Errorf("После MarkDeleted: List() вернул %d, хотели 3", len(afterDelete))
	}
}

func TestMediaStats(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewMediaRepository(pool)

	items := []*model.MediaFile{
		newTestMedia(nil, model.TypePhoto, 100),
		newTestMedia(nil, model.TypePhoto, 200),
		newTestMedia(nil, model.TypeVideo, 1000),
	}
	for _, m := range items {
		if err := repo.Create(ctx, m); err != nil {
			t.Fatalf("Create() ошибка: %v", err)
		}
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() ошибка: %v", err)
	}
	if stats.TotalFiles != 3 {
		t.Errorf("TotalFiles = %d, хотели 3", stats.TotalFiles)
	}
	if stats.TotalBytes != 1300 {
		t.Errorf("TotalBytes = %d, хотели 1300", stats.TotalBytes)
	}
	if stats.ByType["photo"].Count != 2 || stats.ByType["photo"].Bytes != 300 {
		t.Errorf("ByType[photo] = %+v, хотели {2 300}", stats.ByType["photo"])
	}
	if stats.ByType["video"].Count != 1 || stats.ByType["video"].Bytes != 1000 {
		t.Errorf("ByType[video] = %+v, хотели {1 1000}", stats.ByType["video"])
	}

	// Удалённые исключаются из статистики
	if err := repo.MarkDeleted(ctx, items[2].ID); err != nil {
		t.Fatalf("MarkDeleted() ошибка: %v", err)
	}
	stats2, _ := repo.Stats(ctx)
	if stats2.TotalFiles != 2 {
		t.Errorf("После MarkDeleted: TotalFiles = %d, хотели 2", stats2.TotalFiles)
	}

	// CountByStatus видит обе группы
	byStatus, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus() ошибка: %v", err)
	}
	if byStatus[model.StatusActive] != 2 || byStatus[model.StatusDeleted] != 1 {
		t.Errorf("CountByStatus = %v, хотели active=2 deleted=1", byStatus)
	}
}
