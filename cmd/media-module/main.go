// Точка входа Media Module — модуля приёма и хранения медиафайлов.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arturkryukov/artstore/media-module/internal/api/handlers"
	"github.com/arturkryukov/artstore/media-module/internal/api/middleware"
	"github.com/arturkryukov/artstore/media-module/internal/config"
	"github.com/arturkryukov/artstore/media-module/internal/database"
	"github.com/arturkryukov/artstore/media-module/internal/domain/model"
	"github.com/arturkryukov/artstore/media-module/internal/repository"
	"github.com/arturkryukov/artstore/media-module/internal/server"
	"github.com/arturkryukov/artstore/media-module/internal/service"
	"github.com/arturkryukov/artstore/media-module/internal/storage"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Media Module запускается",
		slog.String("instance_id", cfg.InstanceID),
		slog.String("version", config.Version),
		slog.String("storage_type", cfg.StorageType),
		slog.Int("port", cfg.Port),
	)

	ctx := context.Background()

	// --- Инициализация компонентов ---

	// 1. Встроенный OpenAPI контракт
	if err := handlers.ValidateOpenAPI(ctx); err != nil {
		logger.Error("Ошибка OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. PostgreSQL: миграции + пул подключений
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций", slog.String("error", err.Error()))
		os.Exit(1)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.NewMediaRepository(pool)

	// Инициализация gauge метрики записей из БД
	if counts, err := repo.CountByStatus(ctx); err == nil {
		for status, count := range counts {
			middleware.MediaFilesTotal.WithLabelValues(string(status)).Set(float64(count))
		}
	}

	// 3. Storage backend
	backend, err := storage.New(cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища",
			slog.String("storage_type", cfg.StorageType),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("Хранилище инициализировано", slog.String("type", string(backend.Name())))

	// 4. Конвейер загрузки
	validator := service.NewValidator(cfg.MaxFileSize, cfg.MaxImageDimension)
	processor, err := service.NewProcessor(cfg.WatermarkEnabled, cfg.WatermarkText, cfg.WatermarkOpacity, logger)
	if err != nil {
		logger.Error("Ошибка инициализации процессора изображений", slog.String("error", err.Error()))
		os.Exit(1)
	}
	uploader := service.NewUploader(validator, processor, backend, cfg.SignedURLTTL, cfg.UploadWorkers, logger)

	// 5. Фоновые процессы

	// 5.1 Purge — физическое удаление помеченных файлов
	purgeSvc := service.NewPurgeService(repo, backend, cfg.PurgeInterval, logger)
	purgeSvc.Start(ctx)

	// 5.2 topologymetrics — мониторинг зависимостей
	var dephealthSvc *service.DephealthService
	if cfg.JWKSUrl != "" {
		dephealthSvc, err = service.NewDephealthService(
			dephealthName(cfg),
			cfg.DephealthGroup,
			cfg.DephealthDepName,
			cfg.JWKSUrl,
			cfg.DephealthCheckInterval,
			logger,
		)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
			dephealthSvc = nil
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
			dephealthSvc = nil
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("jwks_url", cfg.JWKSUrl),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 6. Redis и rate limiter
	var (
		redisClient *redis.Client
		rateLimiter *middleware.RateLimiter
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rateLimiter = middleware.NewRateLimiter(redisClient, cfg.RateLimitRequests, cfg.RateLimitWindow, logger)
		logger.Info("Rate limiter включён",
			slog.String("redis", cfg.RedisAddr),
			slog.Int("limit", cfg.RateLimitRequests),
			slog.String("window", cfg.RateLimitWindow.String()),
		)
	} else {
		logger.Info("Redis не настроен, rate limiting отключён")
	}

	// 7. IP-фильтр
	var ipFilter *middleware.IPFilter
	if len(cfg.BlockedIPs) > 0 || len(cfg.AllowedIPs) > 0 {
		ipFilter, err = middleware.NewIPFilter(cfg.BlockedIPs, cfg.AllowedIPs, logger)
		if err != nil {
			logger.Error("Ошибка инициализации IP-фильтра", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// 8. JWT middleware
	var jwtAuth *middleware.JWTAuth
	if cfg.JWKSUrl != "" {
		jwtAuth, err = middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:         cfg.JWKSUrl,
			CACertPath:      cfg.JWKSCACert,
			ClientTimeout:   10 * time.Second,
			RefreshInterval: time.Hour,
			JWTLeeway:       30 * time.Second,
		}, logger)
		if err != nil {
			// JWKS недоступен — запускаем без аутентификации (для разработки)
			logger.Warn("JWT JWKS недоступен, запуск без аутентификации",
				slog.String("jwks_url", cfg.JWKSUrl),
				slog.String("error", err.Error()),
			)
			jwtAuth = nil
		} else {
			logger.Info("JWT аутентификация настроена", slog.String("jwks_url", cfg.JWKSUrl))
		}
	} else {
		logger.Warn("MM_JWKS_URL не задан, запуск без аутентификации")
	}

	// 9. Handlers
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), backend, redisClient)
	apiHandler := handlers.NewAPIHandler(uploader, repo, purgeSvc, healthHandler, logger)

	// 10. HTTP-сервер
	opts := server.Options{
		Handler:     apiHandler,
		Auth:        jwtAuth,
		RateLimiter: rateLimiter,
		IPFilter:    ipFilter,
	}
	if backend.Name() == model.ProviderLocal {
		opts.LocalMediaRoot = cfg.MediaRoot
	}

	srv := server.New(cfg, logger, opts)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")

	purgeSvc.Stop()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Media Module остановлен")
}
