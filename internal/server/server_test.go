package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arturkryukov/artstore/media-module/internal/api/handlers"
	"github.com/arturkryukov/artstore/media-module/internal/config"
)

// TestAdminRoutesFailClosed: в деградированном режиме без аутентификации
// (opts.Auth == nil) scopes в контексте отсутствуют, поэтому
// административные операции всегда отвечают 403. Чтение и загрузка
// при этом остаются доступными.
func TestAdminRoutesFailClosed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handlers.NewAPIHandler(nil, nil, nil, nil, logger)

	srv := New(&config.Config{Port: 8020}, logger, Options{Handler: h})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/api/v1/media/00000000-0000-0000-0000-000000000001"},
		{http.MethodGet, "/api/v1/media/stats"},
		{http.MethodPost, "/api/v1/maintenance/purge"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: статус = %d, хотели 403", tt.method, tt.path, rec.Code)
		}
	}
}

func TestOpenAPIRouteWithoutAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handlers.NewAPIHandler(nil, nil, nil, nil, logger)

	srv := New(&config.Config{Port: 8020}, logger, Options{Handler: h})

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("openapi.json: статус = %d, хотели 200", rec.Code)
	}
}
