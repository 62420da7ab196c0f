package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

// logRecord — поля записи, которые проверяют тесты.
type logRecord struct {
	Level         string `json:"level"`
	Method        string `json:"method"`
	Path          string `json:"path"`
	Status        int    `json:"status"`
	ResponseBytes int64  `json:"response_bytes"`
	ClientIP      string `json:"client_ip"`
}

func captureRequestLog(t *testing.T, status int, body string, prepare func(*http.Request)) logRecord {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media", nil)
	req.RemoteAddr = "192.168.1.10:54321"
	if prepare != nil {
		prepare(req)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var rec logRecord
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("Ошибка разбора записи лога: %v\n%s", err, buf.String())
	}
	return rec
}

func TestRequestLogger_Fields(t *testing.T) {
	rec := captureRequestLog(t, http.StatusOK, "hello", nil)

	if rec.Level != "INFO" {
		t.Errorf("level = %q, хотели INFO", rec.Level)
	}
	if rec.Method != http.MethodGet || rec.Path != "/api/v1/media" {
		t.Errorf("method=%q path=%q", rec.Method, rec.Path)
	}
	if rec.Status != http.StatusOK {
		t.Errorf("status = %d, хотели 200", rec.Status)
	}
	if rec.ResponseBytes != 5 {
		t.Errorf("response_bytes = %d, хотели 5", rec.ResponseBytes)
	}
	if rec.ClientIP != "192.168.1.10" {
		t.Errorf("client_ip = %q, хотели адрес без порта", rec.ClientIP)
	}
}

func TestRequestLogger_ForwardedIP(t *testing.T) {
	rec := captureRequestLog(t, http.StatusOK, "", func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.2")
	})

	if rec.ClientIP != "203.0.113.5" {
		t.Errorf("client_ip = %q, хотели первый адрес X-Forwarded-For", rec.ClientIP)
	}
}

func TestRequestLogger_ErrorLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusNotFound, "WARN"},
		{http.StatusTooManyRequests, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
		{http.StatusNoContent, "INFO"},
	}

	for _, tt := range tests {
		rec := captureRequestLog(t, tt.status, "", nil)
		if rec.Level != tt.level {
			t.Errorf("Статус %d: level = %q, хотели %q", tt.status, rec.Level, tt.level)
		}
	}
}
