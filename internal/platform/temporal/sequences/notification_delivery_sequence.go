package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
	notificationactivities "github.com/remesas/remittance-api/internal/platform/temporal/activities/notifications"
)

// DeliveryAttempts bounds how many times one notification is tried.
const DeliveryAttempts = 3

// RunNotificationDeliverySequence hands a notification to the transport with bounded retry.
func RunNotificationDeliverySequence(ctx workflow.Context, n ports.Notification) error {
	logger := workflow.GetLogger(ctx)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    DeliveryAttempts,
		},
	}
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, options), notificationactivities.DeliverNotificationActivityName, n).Get(ctx, nil)
	if err != nil {
		logger.Error("notification delivery sequence failed", "notificationId", n.ID, "error", err)
		return err
	}
	logger.Info("notification delivery sequence delivered", "notificationId", n.ID)
	return nil
}
