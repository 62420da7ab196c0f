// dephealth_name.go — определение имени вершины графа topologymetrics.
// Приоритет: MM_DEPHEALTH_NAME → имя владельца пода из hostname →
// MM_INSTANCE_ID.
package main

import (
	"os"
	"regexp"
	"strings"

	"github.com/arturkryukov/artstore/media-module/internal/config"
)

var (
	// replicaSetHashRe — хэш ReplicaSet в имени пода Deployment.
	replicaSetHashRe = regexp.MustCompile(`^[a-z0-9]{8,10}$`)
	// podSuffixRe — случайный суффикс имени пода.
	podSuffixRe = regexp.MustCompile(`^[a-z0-9]{5}$`)
	digitsRe    = regexp.MustCompile(`^[0-9]+$`)
	hasDigitRe  = regexp.MustCompile(`[0-9]`)
)

// dephealthName возвращает имя текущего экземпляра для topologymetrics.
func dephealthName(cfg *config.Config) string {
	if cfg.DephealthName != "" {
		return cfg.DephealthName
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return parseOwnerName(hostname)
	}
	return cfg.InstanceID
}

// parseOwnerName извлекает имя владельца пода из hostname.
// Deployment: "media-module-7d8f9b6c4f-x2k9z" → "media-module".
// StatefulSet: "media-module-0" → "media-module".
// Иначе hostname возвращается как есть.
func parseOwnerName(hostname string) string {
	parts := strings.Split(hostname, "-")
	if len(parts) < 2 {
		return hostname
	}

	last := parts[len(parts)-1]

	// StatefulSet: ordinal в конце
	if digitsRe.MatchString(last) {
		return strings.Join(parts[:len(parts)-1], "-")
	}

	// Deployment: <owner>-<replicaset-hash>-<suffix>
	if len(parts) >= 3 {
		hash := parts[len(parts)-2]
		if podSuffixRe.MatchString(last) && replicaSetHashRe.MatchString(hash) && hasDigitRe.MatchString(hash) {
			return strings.Join(parts[:len(parts)-2], "-")
		}
	}

	return hostname
}
