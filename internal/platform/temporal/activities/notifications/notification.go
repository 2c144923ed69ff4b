package notifications

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"

	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

// DeliverNotificationActivityName hands one notification to the chat transport.
const DeliverNotificationActivityName = "notifications.activities.Deliver"

// Activities groups activities that deliver order notifications.
type Activities struct {
	publisher ports.NotificationPublisher
}

// NewActivities wires the transport into the Temporal activities bundle.
func NewActivities(publisher ports.NotificationPublisher) *Activities {
	return &Activities{publisher: publisher}
}

// Deliver publishes n. Returned errors are retried by the calling sequence.
func (a *Activities) Deliver(ctx context.Context, n ports.Notification) error {
	logger := activity.GetLogger(ctx)
	info := activity.GetInfo(ctx)
	if a == nil || a.publisher == nil {
		logger.Error("notification activity not initialized", "notificationId", n.ID)
		return errors.New("notification activity not initialized")
	}
	logger.Info("Deliver activity started", "notificationId", n.ID, "orderId", n.OrderID, "attempt", info.Attempt)
	if err := a.publisher.Publish(ctx, n); err != nil {
		logger.Warn("Deliver activity failed", "notificationId", n.ID, "attempt", info.Attempt, "error", err)
		return err
	}
	logger.Info("Deliver activity completed", "notificationId", n.ID)
	return nil
}
