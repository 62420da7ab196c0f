// purge.go — сервис фоновой очистки удалённых медиафайлов.
//
// Purge физически удаляет объекты со статусом deleted: сначала объект
// в storage backend, затем запись в media_files. Запускается как
// горутина с периодическим тикером (MM_PURGE_INTERVAL), а также
// вручную через POST /api/v1/maintenance/purge.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/artstore/media-module/internal/api/middleware"
	"github.com/arturkryukov/artstore/media-module/internal/repository"
	"github.com/arturkryukov/artstore/media-module/internal/storage"
)

// purgeBatchSize — максимум записей, обрабатываемых за один запуск.
const purgeBatchSize = 500

// ErrPurgeInProgress возвращается при попытке запустить purge,
// когда предыдущий цикл ещё не завершился.
var ErrPurgeInProgress = errors.New("purge уже выполняется")

// Prometheus метрики purge
var (
	// purgeRunsTotal — количество запусков purge.
	purgeRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mm_purge_runs_total",
		Help: "Общее количество запусков purge",
	})

	// purgeDurationSeconds — длительность выполнения purge.
	purgeDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mm_purge_duration_seconds",
		Help:    "Длительность выполнения purge в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// PurgeResult — результат одного запуска purge.
type PurgeResult struct {
	// PurgedCount — количество физически удалённых файлов
	PurgedCount int `json:"purged_count"`
	// Errors — количество ошибок при обработке файлов
	Errors int `json:"errors"`
	// Duration — длительность выполнения
	Duration time.Duration `json:"-"`
	// DurationSeconds — длительность для JSON-ответа
	DurationSeconds float64 `json:"duration_seconds"`
}

// PurgeService — сервис фоновой очистки удалённых медиафайлов.
type PurgeService struct {
	repo     repository.MediaRepository
	backend  storage.Backend
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
}

// NewPurgeService создаёт сервис purge.
func NewPurgeService(
	repo repository.MediaRepository,
	backend storage.Backend,
	interval time.Duration,
	logger *slog.Logger,
) *PurgeService {
	return &PurgeService{
		repo:     repo,
		backend:  backend,
		interval: interval,
		logger:   logger.With(slog.String("component", "purge")),
	}
}

// Start запускает фоновую горутину purge с периодическим тикером.
// Вызывается один раз при старте приложения.
func (p *PurgeService) Start(ctx context.Context) {
	purgeCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	go p.run(purgeCtx)

	p.logger.Info("Purge запущен",
		slog.String("interval", p.interval.String()),
	)
}

// Stop останавливает фоновый процесс purge.
func (p *PurgeService) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.logger.Info("Purge остановлен")
}

// run — основной цикл фоновой горутины.
func (p *PurgeService) run(ctx context.Context) {
	// Первый запуск — сразу после старта
	if _, err := p.RunOnce(ctx); err != nil && !errors.Is(err, ErrPurgeInProgress) {
		p.logger.Error("Purge: ошибка запуска", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil && !errors.Is(err, ErrPurgeInProgress) {
				p.logger.Error("Purge: ошибка запуска", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce выполняет один цикл purge.
// Если предыдущий цикл ещё выполняется, возвращает ErrPurgeInProgress.
//
// Порядок обработки каждой записи:
//  1. Удаление объекта в storage backend (идемпотентно)
//  2. Физическое удаление записи из media_files
//
// Запись удаляется из БД только после успешного удаления объекта,
// иначе объект остался бы в хранилище без ссылки на него.
func (p *PurgeService) RunOnce(ctx context.Context) (*PurgeResult, error) {
	if !p.mu.TryLock() {
		return nil, ErrPurgeInProgress
	}
	defer p.mu.Unlock()

	start := time.Now()
	result := &PurgeResult{}

	p.logger.Debug("Purge запуск начат")

	files, err := p.repo.ListDeleted(ctx, purgeBatchSize)
	if err != nil {
		return nil, err
	}

	for _, m := range files {
		if ctx.Err() != nil {
			break
		}

		if !p.backend.Delete(ctx, m.FilePath) {
			p.logger.Error("Purge: ошибка удаления объекта в хранилище",
				slog.String("media_id", m.ID),
				slog.String("file_path", m.FilePath),
			)
			result.Errors++
			continue
		}

		if err := p.repo.Delete(ctx, m.ID); err != nil {
			p.logger.Error("Purge: ошибка удаления записи",
				slog.String("media_id", m.ID),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}

		p.logger.Debug("Purge: файл удалён",
			slog.String("media_id", m.ID),
			slog.String("file_path", m.FilePath),
		)
		result.PurgedCount++
	}

	result.Duration = time.Since(start)
	result.DurationSeconds = result.Duration.Seconds()

	purgeRunsTotal.Inc()
	purgeDurationSeconds.Observe(result.Duration.Seconds())
	middleware.PurgedTotal.Add(float64(result.PurgedCount))

	p.logger.Info("Purge завершён",
		slog.Int("purged", result.PurgedCount),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}
