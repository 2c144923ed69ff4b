package notifications

import (
	"go.temporal.io/sdk/workflow"

	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
	"github.com/remesas/remittance-api/internal/platform/temporal/sequences"
)

const (
	// NotificationDispatchWorkflowName is the public identifier for registering the workflow.
	NotificationDispatchWorkflowName = "notifications.workflows.Dispatch"
	// NotificationTaskQueue is the queue consumed by the worker delivering notifications.
	NotificationTaskQueue = "REMITTANCE_NOTIFICATIONS"
)

// NotificationDispatchWorkflowInput carries one notification plus the originating trace.
type NotificationDispatchWorkflowInput struct {
	Notification ports.Notification
	TraceID      string
}

// NotificationDispatchWorkflow delivers a notification. Once the bounded retries are spent the
// notification is abandoned; order state is never affected.
func NotificationDispatchWorkflow(ctx workflow.Context, input NotificationDispatchWorkflowInput) error {
	logger := workflow.GetLogger(ctx)
	n := input.Notification
	logger.Info("NotificationDispatchWorkflow started", withTraceID(input.TraceID, "notificationId", n.ID, "orderId", n.OrderID, "kind", string(n.Kind))...)
	if err := sequences.RunNotificationDeliverySequence(ctx, n); err != nil {
		logger.Error("NotificationDispatchWorkflow abandoned notification", withTraceID(input.TraceID, "notificationId", n.ID, "attempts", sequences.DeliveryAttempts, "error", err)...)
		return err
	}
	logger.Info("NotificationDispatchWorkflow completed", withTraceID(input.TraceID, "notificationId", n.ID)...)
	return nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
