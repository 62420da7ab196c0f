package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l, err := NewLocal(t.TempDir(), "/media/", logger)
	if err != nil {
		t.Fatalf("ошибка создания локального бэкенда: %v", err)
	}
	return l
}

func TestLocal_UploadAndExists(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	data := []byte("test image bytes")
	ok := l.Upload(ctx, bytes.NewReader(data), int64(len(data)), "2026/09/none/photo/test.jpg", "image/jpeg")
	if !ok {
		t.Fatal("Upload вернул false")
	}

	if !l.Exists(ctx, "2026/09/none/photo/test.jpg") {
		t.Error("файл должен существовать после загрузки")
	}

	// Проверяем содержимое и отсутствие temp файла
	fullPath := filepath.Join(l.MediaRoot(), "2026", "09", "none", "photo", "test.jpg")
	content, err := os.ReadFile(fullPath)
	if err != nil {
		t.Fatalf("ошибка чтения файла: %v", err)
	}
	if !bytes.Equal(content, data) {
		t.Error("содержимое файла не совпадает с загруженным")
	}
	if _, err := os.Stat(fullPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("временный файл не должен оставаться после загрузки")
	}
}

func TestLocal_UploadCreatesDirectories(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	ok := l.Upload(ctx, bytes.NewReader([]byte("x")), 1, "2026/01/E7/video/clip.mp4", "video/mp4")
	if !ok {
		t.Fatal("Upload должен создавать промежуточные директории")
	}
	if !l.Exists(ctx, "2026/01/E7/video/clip.mp4") {
		t.Error("файл должен существовать в глубокой иерархии")
	}
}

func TestLocal_Delete(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	l.Upload(ctx, bytes.NewReader([]byte("x")), 1, "a/b.jpg", "image/jpeg")

	if !l.Delete(ctx, "a/b.jpg") {
		t.Error("Delete существующего файла должен возвращать true")
	}
	if l.Exists(ctx, "a/b.jpg") {
		t.Error("файл не должен существовать после удаления")
	}
}

func TestLocal_DeleteIdempotent(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	// Удаление несуществующего файла — успех
	if !l.Delete(ctx, "no/such/file.jpg") {
		t.Error("Delete несуществующего файла должен возвращать true")
	}
}

func TestLocal_SignedURL(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	url, ok := l.SignedURL(ctx, "2026/09/none/photo/x.jpg", time.Hour)
	if !ok {
		t.Fatal("SignedURL локального бэкенда всегда успешен")
	}
	if url != "/media/2026/09/none/photo/x.jpg" {
		t.Errorf("ожидался URL без подписи, получено %q", url)
	}
}

func TestLocal_Name(t *testing.T) {
	l := newTestLocal(t)
	if l.Name() != "local" {
		t.Errorf("Name: ожидалось 'local', получено %q", l.Name())
	}
}

func TestLocal_Ping(t *testing.T) {
	l := newTestLocal(t)
	if err := l.Ping(context.Background()); err != nil {
		t.Errorf("Ping доступной директории не должен возвращать ошибку: %v", err)
	}
}

func TestLocal_PingMissingRoot(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	l, err := NewLocal(dir, "/media/", logger)
	if err != nil {
		t.Fatalf("ошибка создания бэкенда: %v", err)
	}

	os.RemoveAll(dir)

	if err := l.Ping(context.Background()); err == nil {
		t.Error("Ping удалённой директории должен возвращать ошибку")
	}
}

func TestNewLocal_CreatesRoot(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := filepath.Join(t.TempDir(), "nested", "media")

	if _, err := NewLocal(root, "/media/", logger); err != nil {
		t.Fatalf("NewLocal должен создавать директорию: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("директория должна существовать: %v", err)
	}
}
