package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
	notificationworkflows "github.com/remesas/remittance-api/internal/platform/temporal/workflows/notifications"
)

type recordingStarter struct {
	options []client.StartWorkflowOptions
	args    []interface{}
	err     error
}

func (s *recordingStarter) ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error) {
	s.options = append(s.options, options)
	s.args = append(s.args, args...)
	return nil, s.err
}

type flakyPublisher struct {
	calls   int
	failFor int
}

func (p *flakyPublisher) Publish(ctx context.Context, n ports.Notification) error {
	p.calls++
	if p.calls <= p.failFor {
		return errors.New("broker unavailable")
	}
	return nil
}

var notification = ports.Notification{ID: "n-42", Kind: domain.EventStatusChanged, OrderID: "o-1"}

func TestTemporalDispatcher_StartsWorkflowPerNotification(t *testing.T) {
	starter := &recordingStarter{}
	d := &TemporalDispatcher{client: starter, taskQueue: notificationworkflows.NotificationTaskQueue}

	require.NoError(t, d.Dispatch(context.Background(), notification))

	require.Len(t, starter.options, 1)
	assert.Equal(t, "notification-n-42", starter.options[0].ID)
	assert.Equal(t, notificationworkflows.NotificationTaskQueue, starter.options[0].TaskQueue)
	require.Len(t, starter.args, 1)
	input, ok := starter.args[0].(notificationworkflows.NotificationDispatchWorkflowInput)
	require.True(t, ok)
	assert.Equal(t, notification, input.Notification)
}

func TestTemporalDispatcher_AlreadyStartedIsNotAnError(t *testing.T) {
	starter := &recordingStarter{err: serviceerror.NewWorkflowExecutionAlreadyStarted("started", "", "run-1")}
	d := &TemporalDispatcher{client: starter, taskQueue: notificationworkflows.NotificationTaskQueue}

	assert.NoError(t, d.Dispatch(context.Background(), notification))
}

func TestTemporalDispatcher_WrapsStartFailure(t *testing.T) {
	starter := &recordingStarter{err: errors.New("frontend unavailable")}
	d := &TemporalDispatcher{client: starter, taskQueue: notificationworkflows.NotificationTaskQueue}

	err := d.Dispatch(context.Background(), notification)
	var deliveryErr *domain.NotificationDeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, "o-1", deliveryErr.OrderID)
}

func TestInlineDispatcher_BoundedRetry(t *testing.T) {
	recovers := &flakyPublisher{failFor: 2}
	d := NewInlineDispatcher(recovers)
	d.backoff = time.Millisecond
	require.NoError(t, d.Dispatch(context.Background(), notification))
	assert.Equal(t, 3, recovers.calls)

	down := &flakyPublisher{failFor: 10}
	d = NewInlineDispatcher(down)
	d.backoff = time.Millisecond
	err := d.Dispatch(context.Background(), notification)
	var deliveryErr *domain.NotificationDeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, 3, down.calls)
}

type gatedDispatcher struct {
	release chan struct{}
	got     chan ports.Notification
}

func (d *gatedDispatcher) Dispatch(ctx context.Context, n ports.Notification) error {
	<-d.release
	if err := ctx.Err(); err != nil {
		return err
	}
	d.got <- n
	return errors.New("broker unavailable")
}

func TestBackgroundDispatcher_ReturnsBeforeDelivery(t *testing.T) {
	inner := &gatedDispatcher{release: make(chan struct{}), got: make(chan ports.Notification, 1)}
	d := NewBackgroundDispatcher(inner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Dispatch(ctx, notification))
	// the request that triggered delivery is gone before delivery runs
	cancel()
	close(inner.release)
	d.Wait()

	select {
	case got := <-inner.got:
		assert.Equal(t, notification.OrderID, got.OrderID)
	default:
		t.Fatal("notification was not delivered")
	}
}
