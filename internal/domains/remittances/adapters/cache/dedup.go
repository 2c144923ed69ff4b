package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

const defaultPrefix = "remittances:alerts"

var _ ports.AlertDeduplicator = (*AlertDeduplicator)(nil)

// AlertDeduplicator keeps alert dedup windows in Redis so every scheduler replica shares them.
// A key lives exactly as long as its window.
type AlertDeduplicator struct {
	client redis.UniversalClient
	prefix string
}

func NewAlertDeduplicator(client redis.UniversalClient, prefix string) *AlertDeduplicator {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = defaultPrefix
	}
	return &AlertDeduplicator{client: client, prefix: trimmed}
}

// ShouldEmit sets the (order, severity) key only if absent; SET NX PX makes the check atomic.
func (d *AlertDeduplicator) ShouldEmit(ctx context.Context, orderID string, severity domain.Severity, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	if window < time.Millisecond {
		window = time.Millisecond
	}
	key := fmt.Sprintf("%s:%s:%s", d.prefix, orderID, severity)
	return d.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), window).Result()
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
