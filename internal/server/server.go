// Пакет server — HTTP-сервер Media Module с TLS и graceful shutdown.
// Собирает chi-роутер: маршруты API, health probes, метрики,
// статическая раздача /media/ для локального хранилища.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arturkryukov/artstore/media-module/internal/api/handlers"
	"github.com/arturkryukov/artstore/media-module/internal/api/middleware"
	"github.com/arturkryukov/artstore/media-module/internal/config"
)

// Options — зависимости HTTP-сервера.
// Auth, RateLimiter и IPFilter опциональны: nil отключает слой.
type Options struct {
	Handler *handlers.APIHandler
	// Auth — JWT-аутентификация /api/v1. nil — модуль работает
	// без аутентификации (JWKS недоступен или не настроен).
	Auth *middleware.JWTAuth
	// RateLimiter — ограничение частоты запросов через Redis.
	RateLimiter *middleware.RateLimiter
	// IPFilter — чёрный/белый списки адресов.
	IPFilter *middleware.IPFilter
	// LocalMediaRoot — корень локального хранилища. Непустое значение
	// включает раздачу файлов на /media/.
	LocalMediaRoot string
}

// Server — HTTP-сервер Media Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *Server {
	router := chi.NewRouter()

	// Сквозные middleware
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())
	if opts.IPFilter != nil {
		router.Use(opts.IPFilter.Middleware())
	}

	// Служебные endpoints — без аутентификации и rate limiting
	router.Get("/health/live", opts.Handler.HealthLive)
	router.Get("/health/ready", opts.Handler.HealthReady)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/api/v1/openapi.json", handlers.ServeOpenAPI)

	// Раздача файлов локального хранилища
	if opts.LocalMediaRoot != "" {
		fs := http.StripPrefix("/media/", http.FileServer(http.Dir(opts.LocalMediaRoot)))
		router.Handle("/media/*", fs)
	}

	// API — аутентификация, затем rate limiting (bypass по scope
	// media:admin требует уже распарсенных claims)
	router.Route("/api/v1", func(api chi.Router) {
		if opts.Auth != nil {
			api.Use(opts.Auth.Middleware())
		}
		if opts.RateLimiter != nil {
			api.Use(opts.RateLimiter.Middleware())
		}

		api.Post("/media/upload", opts.Handler.UploadMedia)
		api.Get("/media", opts.Handler.ListMedia)
		api.Get("/media/{media_id}", opts.Handler.GetMedia)
		api.Get("/media/{media_id}/signed-url", opts.Handler.GetSignedURL)

		// Операции только для media:admin
		api.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireScope(middleware.ScopeMediaAdmin))
			admin.Delete("/media/{media_id}", opts.Handler.DeleteMedia)
			admin.Get("/media/stats", opts.Handler.GetStats)
			admin.Post("/maintenance/purge", opts.Handler.TriggerPurge)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Настройка TLS
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом
// из конфигурации.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.Bool("tls", s.cfg.TLSCert != ""),
		)

		var err error
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
