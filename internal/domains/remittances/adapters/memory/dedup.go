package memory

import (
	"context"
	"sync"
	"time"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

var _ ports.AlertDeduplicator = (*AlertDeduplicator)(nil)

type dedupKey struct {
	orderID  string
	severity domain.Severity
}

// AlertDeduplicator remembers, per (order, severity), until when further alerts are suppressed
// in this process. Entries whose window has passed are dropped.
type AlertDeduplicator struct {
	mu   sync.Mutex
	seen map[dedupKey]time.Time
	now  func() time.Time
}

func NewAlertDeduplicator() *AlertDeduplicator {
	return &AlertDeduplicator{seen: map[dedupKey]time.Time{}, now: time.Now}
}

// WithClock injects the time source.
func (d *AlertDeduplicator) WithClock(now func() time.Time) {
	if now == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

func (d *AlertDeduplicator) ShouldEmit(_ context.Context, orderID string, severity domain.Severity, window time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for k, until := range d.seen {
		if !now.Before(until) {
			delete(d.seen, k)
		}
	}
	key := dedupKey{orderID: orderID, severity: severity}
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = now.Add(window)
	return true, nil
}
