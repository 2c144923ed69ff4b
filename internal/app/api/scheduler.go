package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	remittanceobs "github.com/remesas/remittance-api/internal/domains/remittances/adapters/observability"
	"github.com/remesas/remittance-api/internal/domains/remittances/application"
	"github.com/remesas/remittance-api/internal/platform/metrics"
)

// RunAlertScheduler evaluates SLA alerts on ALERT_SCHEDULE until ctx is cancelled. Alerts reach
// API subscribers through the Postgres realtime bridge and chat through the dispatcher.
func RunAlertScheduler(ctx context.Context, cfg Config) error {
	const serviceName = "remittance-alert-scheduler"
	c, err := bootstrap(ctx, cfg, serviceName)
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.logger
	if !cfg.AlertsEnabled {
		logger.Warn("ALERTS_ENABLED is false, alert scheduler idle")
		<-ctx.Done()
		return nil
	}
	if c.bridge == nil {
		logger.Warn("no postgres realtime bridge, alerts reach only subscribers of this process")
	}

	dispatcher := c.dispatcher()
	_, orderService, err := c.orderService(application.WithDispatcher(dispatcher))
	if err != nil {
		return err
	}
	scheduler := application.NewAlertScheduler(orderService, c.deduplicator(ctx),
		application.WithSchedulerNotifier(c.notifier),
		application.WithSchedulerDispatcher(dispatcher),
		application.WithDedupWindows(cfg.DedupWindows()),
		application.WithTickObserver(remittanceobs.NewTickMetrics(metrics.NewAlerts(c.registry))),
		application.WithSchedulerLogger(logger),
	)
	if err := scheduler.Start(ctx, cfg.AlertSchedule); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           metrics.Handler(c.registry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server exited", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()
	<-scheduler.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("alert scheduler stopped")
	return nil
}
