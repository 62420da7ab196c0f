// Пакет config — загрузка и валидация конфигурации Media Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Media Module.
type Config struct {
	// Порт HTTP-сервера (диапазон 8020-8029)
	Port int
	// Уникальный идентификатор экземпляра (например, "mm-moscow-01")
	InstanceID string
	// Тип хранилища: local, s3, do, gcs
	StorageType string

	// --- Локальное хранилище ---
	// Корневая директория медиафайлов (local)
	MediaRoot string
	// Базовый URL выдачи медиафайлов (local), например /media/
	MediaURL string

	// --- S3 / DigitalOcean Spaces ---
	// Endpoint S3-совместимого API
	S3Endpoint string
	// Регион бакета
	S3Region string
	// Имя бакета
	S3Bucket string
	// Ключ доступа
	S3AccessKey string
	// Секретный ключ
	S3SecretKey string
	// Использовать TLS при подключении к S3
	S3UseSSL bool

	// --- Google Cloud Storage ---
	// Имя бакета GCS
	GCSBucket string
	// Путь к JSON-файлу сервисного аккаунта (опционально, иначе ADC)
	GCSCredentialsFile string

	// --- Лимиты и обработка ---
	// Максимальный размер файла в байтах
	MaxFileSize int64
	// Максимальный размер изображения по каждой стороне в пикселях
	MaxImageDimension int
	// Включён ли watermark
	WatermarkEnabled bool
	// Текст watermark
	WatermarkText string
	// Непрозрачность watermark (0.0-1.0)
	WatermarkOpacity float64
	// TTL подписанных URL по умолчанию
	SignedURLTTL time.Duration
	// Количество воркеров bulk-загрузки
	UploadWorkers int

	// --- PostgreSQL ---
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- Redis (rate limiting) ---
	// Адрес Redis (host:port). Пустая строка отключает rate limiting.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Лимит запросов с одного IP за окно
	RateLimitRequests int
	// Длительность окна rate limiting
	RateLimitWindow time.Duration

	// --- IP-фильтрация ---
	// Запрещённые CIDR (через запятую)
	BlockedIPs []string
	// Разрешённые CIDR (через запятую); пустой список — без whitelist
	AllowedIPs []string

	// --- Аутентификация ---
	// URL JWKS endpoint Admin Module (опционально, без него — запуск без аутентификации)
	JWKSUrl string
	// Путь к CA-сертификату для проверки TLS JWKS endpoint (опционально)
	JWKSCACert string

	// --- TLS ---
	TLSCert string
	TLSKey  string

	// --- Логирование ---
	LogLevel  slog.Level
	LogFormat string

	// --- Фоновые процессы ---
	// Интервал запуска purge (физического удаления помеченных файлов)
	PurgeInterval time.Duration
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя зависимости (целевого сервиса) в метриках topologymetrics
	DephealthDepName string
	// Имя владельца пода для метки name в topologymetrics
	DephealthName string

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// MM_PORT — порт HTTP-сервера (по умолчанию 8020)
	port, err := getEnvInt("MM_PORT", 8020)
	if err != nil {
		return nil, fmt.Errorf("MM_PORT: %w", err)
	}
	if port < 8020 || port > 8029 {
		return nil, fmt.Errorf("MM_PORT: значение %d вне допустимого диапазона 8020-8029", port)
	}
	cfg.Port = port

	// MM_INSTANCE_ID — обязательный
	cfg.InstanceID, err = getEnvRequired("MM_INSTANCE_ID")
	if err != nil {
		return nil, err
	}

	// MM_STORAGE_TYPE — тип хранилища (по умолчанию "local")
	cfg.StorageType = getEnvDefault("MM_STORAGE_TYPE", "local")
	switch cfg.StorageType {
	case "local", "s3", "do", "gcs":
	default:
		return nil, fmt.Errorf("MM_STORAGE_TYPE: недопустимое значение %q, допустимые: local, s3, do, gcs", cfg.StorageType)
	}

	switch cfg.StorageType {
	case "local":
		// MM_MEDIA_ROOT — обязательный для local
		cfg.MediaRoot, err = getEnvRequired("MM_MEDIA_ROOT")
		if err != nil {
			return nil, err
		}
		cfg.MediaURL = getEnvDefault("MM_MEDIA_URL", "/media/")
		if !strings.HasSuffix(cfg.MediaURL, "/") {
			cfg.MediaURL += "/"
		}
	case "s3", "do":
		// Бакет и ключи — обязательные для S3-совместимых бэкендов
		cfg.S3Bucket, err = getEnvRequired("MM_S3_BUCKET")
		if err != nil {
			return nil, err
		}
		cfg.S3AccessKey, err = getEnvRequired("MM_S3_ACCESS_KEY")
		if err != nil {
			return nil, err
		}
		cfg.S3SecretKey, err = getEnvRequired("MM_S3_SECRET_KEY")
		if err != nil {
			return nil, err
		}
		if cfg.StorageType == "do" {
			cfg.S3Region = getEnvDefault("MM_S3_REGION", "nyc3")
			cfg.S3Endpoint = getEnvDefault("MM_S3_ENDPOINT",
				fmt.Sprintf("%s.digitaloceanspaces.com", cfg.S3Region))
		} else {
			cfg.S3Region = getEnvDefault("MM_S3_REGION", "us-east-1")
			cfg.S3Endpoint = getEnvDefault("MM_S3_ENDPOINT", "s3.amazonaws.com")
		}
		cfg.S3UseSSL, err = getEnvBool("MM_S3_USE_SSL", true)
		if err != nil {
			return nil, fmt.Errorf("MM_S3_USE_SSL: %w", err)
		}
	case "gcs":
		cfg.GCSBucket, err = getEnvRequired("MM_GCS_BUCKET")
		if err != nil {
			return nil, err
		}
		cfg.GCSCredentialsFile = getEnvDefault("MM_GCS_CREDENTIALS_FILE", "")
	}

	// MM_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 100 MB)
	maxFileSize, err := getEnvInt64("MM_MAX_FILE_SIZE", 100*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("MM_MAX_FILE_SIZE: %w", err)
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("MM_MAX_FILE_SIZE: значение должно быть положительным")
	}
	cfg.MaxFileSize = maxFileSize

	// MM_MAX_IMAGE_DIMENSION — максимальный размер стороны изображения (по умолчанию 4096)
	cfg.MaxImageDimension, err = getEnvInt("MM_MAX_IMAGE_DIMENSION", 4096)
	if err != nil {
		return nil, fmt.Errorf("MM_MAX_IMAGE_DIMENSION: %w", err)
	}
	if cfg.MaxImageDimension <= 0 {
		return nil, fmt.Errorf("MM_MAX_IMAGE_DIMENSION: значение должно быть положительным")
	}

	// MM_WATERMARK_ENABLED — включение watermark (по умолчанию false)
	cfg.WatermarkEnabled, err = getEnvBool("MM_WATERMARK_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("MM_WATERMARK_ENABLED: %w", err)
	}

	// MM_WATERMARK_TEXT — текст watermark
	cfg.WatermarkText = getEnvDefault("MM_WATERMARK_TEXT", "Eddits by Meet Dudhwala")

	// MM_WATERMARK_OPACITY — непрозрачность watermark (по умолчанию 0.3)
	cfg.WatermarkOpacity, err = getEnvFloat("MM_WATERMARK_OPACITY", 0.3)
	if err != nil {
		return nil, fmt.Errorf("MM_WATERMARK_OPACITY: %w", err)
	}
	if cfg.WatermarkOpacity < 0 || cfg.WatermarkOpacity > 1 {
		return nil, fmt.Errorf("MM_WATERMARK_OPACITY: значение %v вне диапазона 0.0-1.0", cfg.WatermarkOpacity)
	}

	// MM_SIGNED_URL_TTL — TTL подписанных URL (по умолчанию 1h)
	cfg.SignedURLTTL, err = getEnvDuration("MM_SIGNED_URL_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("MM_SIGNED_URL_TTL: %w", err)
	}

	// MM_UPLOAD_WORKERS — воркеры bulk-загрузки (по умолчанию 4)
	cfg.UploadWorkers, err = getEnvInt("MM_UPLOAD_WORKERS", 4)
	if err != nil {
		return nil, fmt.Errorf("MM_UPLOAD_WORKERS: %w", err)
	}
	if cfg.UploadWorkers <= 0 {
		return nil, fmt.Errorf("MM_UPLOAD_WORKERS: значение должно быть положительным")
	}

	// --- PostgreSQL ---
	cfg.DBHost, err = getEnvRequired("MM_DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("MM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("MM_DB_PORT: %w", err)
	}
	cfg.DBName = getEnvDefault("MM_DB_NAME", "media_module")
	cfg.DBUser, err = getEnvRequired("MM_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("MM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("MM_DB_SSLMODE", "disable")

	// --- Redis / rate limiting ---
	cfg.RedisAddr = getEnvDefault("MM_REDIS_ADDR", "")
	cfg.RedisPassword = getEnvDefault("MM_REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvInt("MM_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("MM_REDIS_DB: %w", err)
	}
	cfg.RateLimitRequests, err = getEnvInt("MM_RATE_LIMIT_REQUESTS", 100)
	if err != nil {
		return nil, fmt.Errorf("MM_RATE_LIMIT_REQUESTS: %w", err)
	}
	cfg.RateLimitWindow, err = getEnvDuration("MM_RATE_LIMIT_WINDOW", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("MM_RATE_LIMIT_WINDOW: %w", err)
	}

	// --- IP-фильтрация ---
	cfg.BlockedIPs = splitCSV(getEnvDefault("MM_BLOCKED_IPS", ""))
	cfg.AllowedIPs = splitCSV(getEnvDefault("MM_ALLOWED_IPS", ""))

	// MM_JWKS_URL — опциональный (без него — запуск без аутентификации)
	cfg.JWKSUrl = getEnvDefault("MM_JWKS_URL", "")
	cfg.JWKSCACert = getEnvDefault("MM_JWKS_CA_CERT", "")

	// MM_TLS_CERT / MM_TLS_KEY — опциональные, но только парой
	cfg.TLSCert = getEnvDefault("MM_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("MM_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("MM_TLS_CERT и MM_TLS_KEY должны быть заданы вместе")
	}

	// MM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("MM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("MM_LOG_LEVEL: %w", err)
	}

	// MM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("MM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("MM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// MM_PURGE_INTERVAL — интервал purge (по умолчанию 1h)
	cfg.PurgeInterval, err = getEnvDuration("MM_PURGE_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("MM_PURGE_INTERVAL: %w", err)
	}

	// MM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("MM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// MM_DEPHEALTH_GROUP — имя группы в метриках topologymetrics
	cfg.DephealthGroup = getEnvDefault("MM_DEPHEALTH_GROUP", "media-module")

	// MM_DEPHEALTH_DEP_NAME — имя зависимости в метриках topologymetrics
	cfg.DephealthDepName = getEnvDefault("MM_DEPHEALTH_DEP_NAME", "admin-jwks")

	// DEPHEALTH_NAME — имя владельца пода для метки name в topologymetrics
	cfg.DephealthName = getEnvDefault("DEPHEALTH_NAME", "")

	// MM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("MM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает DSN подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvFloat возвращает float64 значение переменной окружения или значение по умолчанию.
func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное число: %q", val)
	}
	return f, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// splitCSV разбирает список значений через запятую, отбрасывая пустые элементы.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
