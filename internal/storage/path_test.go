package storage

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/arturkryukov/artstore/media-module/internal/domain/model"
)

func TestGeneratePath_Format(t *testing.T) {
	eventID := "E1"
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	path := GeneratePath(&eventID, model.TypePhoto, "photo.JPG", now)

	// 2026/09/E1/photo/{uuid}.jpg
	re := regexp.MustCompile(`^2026/09/E1/photo/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.jpg$`)
	if !re.MatchString(path) {
		t.Errorf("путь не соответствует формату: %q", path)
	}
}

func TestGeneratePath_NoEvent(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	path := GeneratePath(nil, model.TypeVideo, "clip.mp4", now)

	if !strings.HasPrefix(path, "2026/01/none/video/") {
		t.Errorf("путь без события должен содержать сегмент 'none': %q", path)
	}
	if !strings.HasSuffix(path, ".mp4") {
		t.Errorf("путь должен сохранять расширение: %q", path)
	}
}

func TestGeneratePath_EmptyEventID(t *testing.T) {
	empty := ""
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	path := GeneratePath(&empty, model.TypePhoto, "a.png", now)

	if !strings.Contains(path, "/none/") {
		t.Errorf("пустой event_id должен давать сегмент 'none': %q", path)
	}
}

func TestGeneratePath_LowercaseExtension(t *testing.T) {
	now := time.Now()

	path := GeneratePath(nil, model.TypePhoto, "IMG_0042.JPEG", now)

	if !strings.HasSuffix(path, ".jpeg") {
		t.Errorf("расширение должно приводиться к нижнему регистру: %q", path)
	}
}

func TestGeneratePath_NoExtension(t *testing.T) {
	now := time.Now()

	path := GeneratePath(nil, model.TypePhoto, "noext", now)

	parts := strings.Split(path, "/")
	filename := parts[len(parts)-1]
	if strings.Contains(filename, ".") {
		t.Errorf("файл без расширения не должен получать точку: %q", filename)
	}
}

func TestGeneratePath_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		path := GeneratePath(nil, model.TypePhoto, "same.jpg", now)
		if seen[path] {
			t.Fatalf("повторяющийся путь: %q", path)
		}
		seen[path] = true
	}
}

func TestGeneratePath_MonthPadding(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	path := GeneratePath(nil, model.TypeReel, "r.mp4", now)

	if !strings.HasPrefix(path, "2026/03/") {
		t.Errorf("месяц должен дополняться нулём: %q", path)
	}
	if !strings.Contains(path, "/reel/") {
		t.Errorf("тип медиа должен присутствовать в пути: %q", path)
	}
}
