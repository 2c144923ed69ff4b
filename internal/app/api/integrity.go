package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
)

// ErrNoDatabase is returned by maintenance jobs that only make sense against Postgres.
var ErrNoDatabase = errors.New("POSTGRES_DSN not set or connection failed")

// RunIntegrityCheck replays every order's audit trail once and reports divergent orders.
// Divergence is returned as *domain.IntegrityCheckFailedError and never corrected.
func RunIntegrityCheck(ctx context.Context, cfg Config) error {
	const serviceName = "remittance-integrity-check"
	c, err := bootstrap(ctx, cfg, serviceName)
	if err != nil {
		return err
	}
	defer c.Close()
	if c.db == nil {
		return ErrNoDatabase
	}
	_, orderService, err := c.orderService()
	if err != nil {
		return err
	}
	report, err := orderService.CheckIntegrity(ctx)
	var failed *domain.IntegrityCheckFailedError
	if errors.As(err, &failed) {
		for _, m := range failed.Mismatches {
			c.logger.Error("order status diverges from its audit trail",
				slog.String("order_id", m.OrderID),
				slog.String("persisted_status", string(m.Persisted)),
				slog.String("replayed_status", string(m.Replayed)),
				slog.String("detail", m.Detail),
			)
		}
	}
	if err != nil {
		return err
	}
	c.logger.Info("integrity check completed", slog.Int("checked", report.Checked))
	return nil
}
