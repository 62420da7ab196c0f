// maintenance.go — служебные endpoints: ручной запуск purge и статистика.
package handlers

import (
	"errors"
	"net/http"

	apierrors "github.com/arturkryukov/artstore/media-module/internal/api/errors"
	"github.com/arturkryukov/artstore/media-module/internal/api/middleware"
	"github.com/arturkryukov/artstore/media-module/internal/service"
)

// TriggerPurge обрабатывает POST /api/v1/maintenance/purge.
// Запускает один цикл физического удаления помеченных файлов.
// Если цикл уже выполняется — 409 PURGE_IN_PROGRESS.
// Доступ: scope media:admin (проверяется на уровне роутера).
func (h *APIHandler) TriggerPurge(w http.ResponseWriter, r *http.Request) {
	result, err := h.purge.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrPurgeInProgress) {
			apierrors.PurgeInProgress(w, "Purge уже выполняется")
			return
		}
		h.logger.Error("Ошибка запуска purge",
			"triggered_by", middleware.SubjectFromContext(r.Context()),
			"error", err,
		)
		apierrors.InternalError(w, "Ошибка запуска purge")
		return
	}

	h.logger.Info("Purge запущен вручную",
		"triggered_by", middleware.SubjectFromContext(r.Context()),
		"purged", result.PurgedCount,
		"errors", result.Errors,
	)

	writeJSON(w, http.StatusOK, result)
}

// GetStats обрабатывает GET /api/v1/media/stats.
// Статистика активных файлов: количество и объём по типам.
// Доступ: scope media:admin (проверяется на уровне роутера).
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения статистики", "error", err)
		apierrors.InternalError(w, "Ошибка получения статистики")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"storage_type": h.uploader.Backend().Name(),
		"total_files":  stats.TotalFiles,
		"total_bytes":  stats.TotalBytes,
		"by_type":      stats.ByType,
	})
}
