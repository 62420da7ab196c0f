// ratelimit.go — ограничение частоты запросов по IP через Redis.
// Алгоритм sliding window на sorted sets, атомарность обеспечивает
// Lua-скрипт. При недоступности Redis запросы пропускаются (fail-open):
// деградация лимитера не должна ронять загрузку медиа.
package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apierrors "github.com/arturkryukov/artstore/media-module/internal/api/errors"
)

// rateLimitScript — атомарная проверка sliding window.
// Возвращает {allowed, remaining}.
var rateLimitScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current = redis.call('ZCARD', key)

	if current < limit then
		local counter = redis.call('INCR', key .. ':counter')
		redis.call('ZADD', key, now, now .. ':' .. counter)
		local expire_seconds = math.ceil(window_ms / 1000)
		redis.call('EXPIRE', key, expire_seconds)
		redis.call('EXPIRE', key .. ':counter', expire_seconds)
		return {1, limit - current - 1}
	end

	return {0, 0}
`)

// RateLimiter — middleware ограничения частоты запросов по IP.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewRateLimiter создаёт rate limiter с лимитом limit запросов за window.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		logger: logger.With(slog.String("component", "rate_limiter")),
	}
}

// Middleware возвращает HTTP middleware ограничения частоты.
// Превышение лимита — 429 с заголовками X-RateLimit-*.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Администраторы не лимитируются
			for _, s := range ScopesFromContext(r.Context()) {
				if s == ScopeMediaAdmin {
					next.ServeHTTP(w, r)
					return
				}
			}

			ip := clientIP(r)
			now := time.Now()

			result, err := rateLimitScript.Run(r.Context(), rl.client,
				[]string{"mm:ratelimit:" + ip},
				now.UnixMilli(),
				now.Add(-rl.window).UnixMilli(),
				rl.limit,
				rl.window.Milliseconds(),
			).Int64Slice()
			if err != nil {
				// fail-open: недоступность Redis не блокирует запросы
				rl.logger.Warn("ошибка проверки rate limit, запрос пропущен",
					slog.String("ip", ip),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if len(result) != 2 {
				rl.logger.Warn("неожиданный ответ Redis, запрос пропущен",
					slog.Int("length", len(result)),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result[1], 10))

			if result[0] != 1 {
				RateLimitedTotal.Inc()
				rl.logger.Warn("превышен лимит запросов",
					slog.String("ip", ip),
					slog.Int("limit", rl.limit),
				)
				apierrors.RateLimited(w, "Превышен лимит запросов, повторите позже")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP извлекает IP клиента из запроса.
// X-Forwarded-For имеет приоритет (первый адрес в списке), иначе RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
