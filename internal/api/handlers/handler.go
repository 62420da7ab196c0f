// Пакет handlers — HTTP-обработчики Media Module.
// handler.go — APIHandler собирает зависимости всех endpoints.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/arturkryukov/artstore/media-module/internal/repository"
	"github.com/arturkryukov/artstore/media-module/internal/service"
)

// maxListLimit — верхняя граница limit в списках.
const maxListLimit = 200

// APIHandler — единый обработчик всех endpoints Media Module.
type APIHandler struct {
	uploader *service.Uploader
	repo     repository.MediaRepository
	purge    *service.PurgeService
	health   *HealthHandler
	logger   *slog.Logger
}

// NewAPIHandler создаёт обработчик API.
func NewAPIHandler(
	uploader *service.Uploader,
	repo repository.MediaRepository,
	purge *service.PurgeService,
	health *HealthHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		uploader: uploader,
		repo:     repo,
		purge:    purge,
		health:   health,
		logger:   logger,
	}
}

// HealthLive делегирует в HealthHandler.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady делегирует в HealthHandler.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// writeJSON сериализует ответ и выставляет статус.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// paginationParams извлекает limit и offset из query string
// с границами по умолчанию.
func paginationParams(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
