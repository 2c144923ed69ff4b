package api

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	notificationactivities "github.com/remesas/remittance-api/internal/platform/temporal/activities/notifications"
	notificationworkflows "github.com/remesas/remittance-api/internal/platform/temporal/workflows/notifications"
)

// RunWorker executes notification dispatch workflows until ctx is cancelled.
func RunWorker(ctx context.Context, cfg Config) error {
	const serviceName = "remittance-worker"
	c, err := bootstrap(ctx, cfg, serviceName)
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.logger

	temporalClient, err := c.temporalClient()
	if err != nil {
		return fmt.Errorf("failed to create Temporal client: %w", err)
	}
	defer temporalClient.Close()

	activities := notificationactivities.NewActivities(c.publisher())
	w := worker.New(temporalClient, notificationworkflows.NotificationTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(notificationworkflows.NotificationDispatchWorkflow, workflow.RegisterOptions{Name: notificationworkflows.NotificationDispatchWorkflowName})
	w.RegisterActivityWithOptions(activities.Deliver, activity.RegisterOptions{Name: notificationactivities.DeliverNotificationActivityName})

	if err := w.Start(); err != nil {
		return fmt.Errorf("start Temporal worker: %w", err)
	}
	logger.Info("worker listening", slog.String("taskQueue", notificationworkflows.NotificationTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	<-ctx.Done()
	w.Stop()
	logger.Info("Temporal worker stopped")
	return nil
}
