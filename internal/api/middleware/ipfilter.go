// ipfilter.go — фильтрация запросов по IP-адресу клиента.
// Поддерживает blacklist и whitelist в виде CIDR или одиночных адресов.
// Порядок проверки: blacklist → whitelist (если задан).
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	apierrors "github.com/arturkryukov/artstore/media-module/internal/api/errors"
)

// IPFilter — middleware фильтрации по IP.
type IPFilter struct {
	blocked []netip.Prefix
	allowed []netip.Prefix
	logger  *slog.Logger
}

// NewIPFilter создаёт IP-фильтр из списков CIDR.
// Одиночные адреса без маски трактуются как /32 (или /128 для IPv6).
func NewIPFilter(blockedCIDRs, allowedCIDRs []string, logger *slog.Logger) (*IPFilter, error) {
	blocked, err := parsePrefixes(blockedCIDRs)
	if err != nil {
		return nil, fmt.Errorf("MM_BLOCKED_IPS: %w", err)
	}
	allowed, err := parsePrefixes(allowedCIDRs)
	if err != nil {
		return nil, fmt.Errorf("MM_ALLOWED_IPS: %w", err)
	}

	return &IPFilter{
		blocked: blocked,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "ip_filter")),
	}, nil
}

// parsePrefixes разбирает список CIDR/адресов в netip.Prefix.
func parsePrefixes(cidrs []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		if strings.Contains(c, "/") {
			p, err := netip.ParsePrefix(c)
			if err != nil {
				return nil, fmt.Errorf("некорректный CIDR %q: %w", c, err)
			}
			prefixes = append(prefixes, p)
			continue
		}

		addr, err := netip.ParseAddr(c)
		if err != nil {
			return nil, fmt.Errorf("некорректный IP-адрес %q: %w", c, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Middleware возвращает HTTP middleware фильтрации по IP.
// Запрос с заблокированного IP или вне whitelist — 403.
// Нераспознанный адрес клиента пропускается: фильтр не должен
// блокировать трафик из-за нестандартного RemoteAddr.
func (f *IPFilter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr, err := netip.ParseAddr(clientIP(r))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			addr = addr.Unmap()

			for _, p := range f.blocked {
				if p.Contains(addr) {
					BlockedIPTotal.Inc()
					f.logger.Warn("запрос с заблокированного IP",
						slog.String("ip", addr.String()),
						slog.String("path", r.URL.Path),
					)
					apierrors.IPBlocked(w, "Доступ с данного IP-адреса запрещён")
					return
				}
			}

			if len(f.allowed) > 0 {
				ok := false
				for _, p := range f.allowed {
					if p.Contains(addr) {
						ok = true
						break
					}
				}
				if !ok {
					BlockedIPTotal.Inc()
					f.logger.Warn("запрос с IP вне whitelist",
						slog.String("ip", addr.String()),
						slog.String("path", r.URL.Path),
					)
					apierrors.IPBlocked(w, "Доступ с данного IP-адреса запрещён")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
