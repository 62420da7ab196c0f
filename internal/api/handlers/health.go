// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arturkryukov/artstore/media-module/internal/config"
	"github.com/arturkryukov/artstore/media-module/internal/storage"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// readyCheckTimeout — таймаут каждой проверки готовности.
const readyCheckTimeout = 3 * time.Second

// ReadinessChecker — проверка готовности одной зависимости.
type ReadinessChecker interface {
	CheckReady() (status string, message string)
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	db      ReadinessChecker
	backend storage.Backend
	redis   *redis.Client
}

// NewHealthHandler создаёт обработчик health endpoints.
// redisClient может быть nil: rate limiting выключен.
func NewHealthHandler(db ReadinessChecker, backend storage.Backend, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		db:      db,
		backend: backend,
		redis:   redisClient,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Зависимости не проверяются.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "media-module",
	})
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: PostgreSQL, storage backend, Redis (если настроен).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	checks := map[string]map[string]string{}

	dbStatus, dbMessage := h.db.CheckReady()
	checks["database"] = map[string]string{"status": dbStatus, "message": dbMessage}
	if dbStatus != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	checks["storage"] = h.checkStorage(r.Context())
	if checks["storage"]["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	// Redis не критичен: rate limiter работает в режиме fail-open,
	// поэтому падение Redis не переводит сервис в not ready
	if h.redis != nil {
		checks["redis"] = h.checkRedis(r.Context())
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "media-module",
		"checks":    checks,
	})
}

// checkStorage проверяет доступность storage backend.
func (h *HealthHandler) checkStorage(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, readyCheckTimeout)
	defer cancel()

	if err := h.backend.Ping(ctx); err != nil {
		return map[string]string{
			"status":  statusFail,
			"message": "Хранилище недоступно: " + err.Error(),
			"type":    string(h.backend.Name()),
		}
	}
	return map[string]string{
		"status": "ok",
		"type":   string(h.backend.Name()),
	}
}

// checkRedis проверяет доступность Redis.
func (h *HealthHandler) checkRedis(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, readyCheckTimeout)
	defer cancel()

	if err := h.redis.Ping(ctx).Err(); err != nil {
		return map[string]string{
			"status":  statusFail,
			"message": "Redis недоступен: " + err.Error(),
		}
	}
	return map[string]string{"status": "ok"}
}
