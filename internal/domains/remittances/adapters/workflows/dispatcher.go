package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
	"github.com/remesas/remittance-api/internal/platform/temporal/sequences"
	notificationworkflows "github.com/remesas/remittance-api/internal/platform/temporal/workflows/notifications"
)

var (
	_ ports.NotificationDispatcher = (*TemporalDispatcher)(nil)
	_ ports.NotificationDispatcher = (*InlineDispatcher)(nil)
	_ ports.NotificationDispatcher = (*BackgroundDispatcher)(nil)
)

// workflowStarter is the subset of client.Client the dispatcher needs.
type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// TemporalDispatcher starts one NotificationDispatchWorkflow per notification and returns
// without waiting for delivery.
type TemporalDispatcher struct {
	client    workflowStarter
	taskQueue string
}

// NewTemporalDispatcher wires a Temporal client into the dispatcher.
func NewTemporalDispatcher(c client.Client) *TemporalDispatcher {
	return &TemporalDispatcher{client: c, taskQueue: notificationworkflows.NotificationTaskQueue}
}

// Dispatch starts the workflow. The workflow id is derived from the notification id, so a
// repeated dispatch of the same notification is a no-op.
func (d *TemporalDispatcher) Dispatch(ctx context.Context, n ports.Notification) error {
	if d == nil || d.client == nil {
		return errors.New("temporal notification dispatcher not configured")
	}
	options := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("notification-%s", n.ID),
		TaskQueue: d.taskQueue,
	}
	_, err := d.client.ExecuteWorkflow(
		ctx,
		options,
		notificationworkflows.NotificationDispatchWorkflowName,
		notificationworkflows.NotificationDispatchWorkflowInput{Notification: n, TraceID: workflowTraceID(ctx)},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil
		}
		return &domain.NotificationDeliveryError{OrderID: n.OrderID, Kind: string(n.Kind), Err: err}
	}
	return nil
}

// InlineDispatcher publishes directly with the same bounded retry, for tests and dev fallbacks.
type InlineDispatcher struct {
	publisher ports.NotificationPublisher
	attempts  int
	backoff   time.Duration
}

// NewInlineDispatcher wraps a publisher for synchronous delivery.
func NewInlineDispatcher(publisher ports.NotificationPublisher) *InlineDispatcher {
	return &InlineDispatcher{publisher: publisher, attempts: sequences.DeliveryAttempts, backoff: 200 * time.Millisecond}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, n ports.Notification) error {
	if d == nil || d.publisher == nil {
		return errors.New("inline notification dispatcher not configured")
	}
	var err error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		if err = d.publisher.Publish(ctx, n); err == nil {
			return nil
		}
		if attempt == d.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return &domain.NotificationDeliveryError{OrderID: n.OrderID, Kind: string(n.Kind), Err: ctx.Err()}
		case <-time.After(time.Duration(attempt) * d.backoff):
		}
	}
	return &domain.NotificationDeliveryError{OrderID: n.OrderID, Kind: string(n.Kind), Err: err}
}

// BackgroundDispatcher hands each notification to inner on its own goroutine, so the caller
// returns as soon as the transition has committed. Failures are logged here.
type BackgroundDispatcher struct {
	inner  ports.NotificationDispatcher
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewBackgroundDispatcher(inner ports.NotificationDispatcher, logger *slog.Logger) *BackgroundDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackgroundDispatcher{inner: inner, logger: logger}
}

func (d *BackgroundDispatcher) Dispatch(ctx context.Context, n ports.Notification) error {
	if d == nil || d.inner == nil {
		return errors.New("background notification dispatcher not configured")
	}
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.inner.Dispatch(ctx, n); err != nil {
			d.logger.LogAttrs(ctx, slog.LevelWarn, "notification dispatch failed",
				slog.String("order_id", n.OrderID),
				slog.String("event_kind", string(n.Kind)),
				slog.String("error", err.Error()),
			)
		}
	}()
	return nil
}

// Wait blocks until every dispatch already started has finished.
func (d *BackgroundDispatcher) Wait() {
	d.wg.Wait()
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
