// metrics.go — Prometheus HTTP метрики для Media Module.
// Регистрирует метрики: mm_http_requests_total, mm_http_request_duration_seconds.
// Бизнес-метрики (mm_uploads_total, mm_media_files_total и др.)
// обновляются из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_http_requests_total",
			Help: "Общее количество HTTP-запросов к Media Module",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mm_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Media Module в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// UploadsTotal — количество загрузок по результату и типу медиа.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_uploads_total",
			Help: "Общее количество загрузок медиафайлов",
		},
		[]string{"result", "type"},
	)

	// UploadBytes — суммарный объём загруженных данных.
	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mm_upload_bytes_total",
			Help: "Суммарный объём загруженных медиафайлов в байтах",
		},
	)

	// UploadDuration — гистограмма длительности полного цикла загрузки.
	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mm_upload_duration_seconds",
			Help:    "Длительность цикла валидация-обработка-загрузка в секундах",
			Buckets: prometheus.DefBuckets,
		},
	)

	// MediaFilesTotal — текущее количество записей медиафайлов по статусу.
	MediaFilesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mm_media_files_total",
			Help: "Текущее количество записей медиафайлов",
		},
		[]string{"status"},
	)

	// PurgedTotal — количество физически удалённых файлов.
	PurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mm_purged_files_total",
			Help: "Количество физически удалённых файлов фоновой очисткой",
		},
	)

	// RateLimitedTotal — количество запросов, отклонённых rate limiter'ом.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mm_rate_limited_total",
			Help: "Количество запросов, отклонённых по лимиту частоты",
		},
	)

	// BlockedIPTotal — количество запросов, отклонённых IP-фильтром.
	BlockedIPTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mm_blocked_ip_total",
			Help: "Количество запросов, отклонённых IP-фильтром",
		},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем UUID на {id} для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет UUID-сегменты пути на {id} для предотвращения
// взрывного роста кардинальности метрик.
// /api/v1/media/a1b2c3d4-e5f6-7890-abcd-ef1234567890 → /api/v1/media/{id}
func normalizePath(path string) string {
	switch {
	case path == "/health/live":
		return "/health/live"
	case path == "/health/ready":
		return "/health/ready"
	case path == "/metrics":
		return "/metrics"
	case path == "/api/v1/media":
		return "/api/v1/media"
	case path == "/api/v1/media/upload":
		return "/api/v1/media/upload"
	case path == "/api/v1/storage/stats":
		return "/api/v1/storage/stats"
	case path == "/api/v1/maintenance/purge":
		return "/api/v1/maintenance/purge"
	case len(path) > len("/api/v1/media/") && isUUIDSegment(path, "/api/v1/media/"):
		// /api/v1/media/{uuid}/signed-url или /api/v1/media/{uuid}
		suffix := path[len("/api/v1/media/")+36:]
		if suffix == "/signed-url" {
			return "/api/v1/media/{id}/signed-url"
		}
		if suffix == "" {
			return "/api/v1/media/{id}"
		}
	}
	return path
}

// isUUIDSegment проверяет, начинается ли сегмент пути после prefix с UUID.
func isUUIDSegment(path, prefix string) bool {
	if len(path) < len(prefix)+36 {
		return false
	}
	segment := path[len(prefix) : len(prefix)+36]
	// Проверяем формат UUID: 8-4-4-4-12
	if len(segment) != 36 {
		return false
	}
	for i, c := range segment {
		if i == 8 || i == 13 || i == 18 || i == 23 {
			if c != '-' {
				return false
			}
		} else {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
				return false
			}
		}
	}
	return true
}
