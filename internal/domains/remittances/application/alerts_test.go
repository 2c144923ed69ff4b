package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	remittancememory "github.com/remesas/remittance-api/internal/domains/remittances/adapters/memory"
	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
)

func newScheduler(f *fixture, opts ...SchedulerOption) (*AlertScheduler, *remittancememory.AlertDeduplicator) {
	dedup := remittancememory.NewAlertDeduplicator()
	dedup.WithClock(f.clock.Now)
	base := []SchedulerOption{
		WithSchedulerClock(f.clock.Now),
		WithSchedulerNotifier(f.hub),
		WithSchedulerDispatcher(f.dispatcher),
	}
	return NewAlertScheduler(f.svc, dedup, append(base, opts...)...), dedup
}

func TestEvaluateAlerts_ProcessingThresholds(t *testing.T) {
	f := newFixture(t)
	order := f.advanceTo(t, f.create(t, "100"), domain.StatusProcessing)
	t0 := *order.ProcessingStartedAt

	alerts, err := f.svc.EvaluateAlerts(context.Background(), t0.Add(2*domain.Day-time.Second))
	require.NoError(t, err)
	require.Empty(t, alerts)

	alerts, err = f.svc.EvaluateAlerts(context.Background(), t0.Add(60*time.Hour))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, domain.SeverityWarning, alerts[0].Severity)

	alerts, err = f.svc.EvaluateAlerts(context.Background(), t0.Add(3*domain.Day+144*time.Minute))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, domain.SeverityBreach, alerts[0].Severity)
}

func TestEvaluateAlerts_AwaitingStatesDisabledByDefault(t *testing.T) {
	f := newFixture(t)
	f.create(t, "100")
	alerts, err := f.svc.EvaluateAlerts(context.Background(), f.clock.Now().Add(30*domain.Day))
	require.NoError(t, err)
	require.Empty(t, alerts)
}

func TestEvaluateAlerts_AwaitingProofWhenConfigured(t *testing.T) {
	f := newFixture(t, WithAwaitingProofSLA(domain.SLA{Warning: 12 * time.Hour, Breach: 24 * time.Hour}))
	order := f.create(t, "100")

	alerts, err := f.svc.EvaluateAlerts(context.Background(), order.CreatedAt.Add(13*time.Hour))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, domain.StatusCreated, alerts[0].Status)
	require.Equal(t, domain.SeverityWarning, alerts[0].Severity)
}

func TestAlertScheduler_DedupWindows(t *testing.T) {
	f := newFixture(t)
	order := f.advanceTo(t, f.create(t, "100"), domain.StatusProcessing)
	t0 := *order.ProcessingStartedAt
	scheduler, _ := newScheduler(f)
	sub := f.hub.Subscribe(domain.Filter{All: true})
	defer sub.Close()
	sentBefore := len(f.dispatcher.Sent())

	f.clock.Set(t0.Add(60 * time.Hour))
	result, err := scheduler.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Emitted)

	event := <-sub.Events()
	require.Equal(t, domain.EventAlertRaised, event.Kind)
	require.Equal(t, domain.SeverityWarning, event.Alert.Severity)
	require.Equal(t, alice.ID, event.OwnerID)

	f.clock.Advance(5 * time.Minute)
	result, err = scheduler.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.Emitted)
	require.Equal(t, 1, result.Suppressed)

	f.clock.Set(t0.Add(3*domain.Day + 144*time.Minute))
	result, err = scheduler.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Emitted)

	f.clock.Advance(30 * time.Minute)
	result, err = scheduler.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Suppressed)

	f.clock.Advance(31 * time.Minute)
	result, err = scheduler.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Emitted)

	require.Len(t, f.dispatcher.Sent(), sentBefore+3)
	reloaded, err := f.svc.GetOrder(context.Background(), admin, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.Version, reloaded.Version)
}

type blockingEvaluator struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingEvaluator) EvaluateAlerts(ctx context.Context, _ time.Time) ([]domain.Alert, error) {
	close(b.entered)
	select {
	case <-b.release:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestAlertScheduler_SkipsOverlappingTicks(t *testing.T) {
	evaluator := &blockingEvaluator{entered: make(chan struct{}), release: make(chan struct{})}
	scheduler := NewAlertScheduler(evaluator, remittancememory.NewAlertDeduplicator())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := scheduler.Tick(context.Background())
		assert.NoError(t, err)
	}()
	<-evaluator.entered

	result, err := scheduler.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, result.Skipped)

	close(evaluator.release)
	wg.Wait()
}

func TestAlertScheduler_TickTimeout(t *testing.T) {
	evaluator := &blockingEvaluator{entered: make(chan struct{}), release: make(chan struct{})}
	scheduler := NewAlertScheduler(evaluator, remittancememory.NewAlertDeduplicator(), WithTickTimeout(20*time.Millisecond))

	_, err := scheduler.Tick(context.Background())
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

type failingDedup struct{}

func (failingDedup) ShouldEmit(context.Context, string, domain.Severity, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func TestAlertScheduler_DedupFailureSuppresses(t *testing.T) {
	f := newFixture(t)
	order := f.advanceTo(t, f.create(t, "100"), domain.StatusProcessing)
	f.clock.Set(order.ProcessingStartedAt.Add(4 * domain.Day))
	scheduler := NewAlertScheduler(f.svc, failingDedup{}, WithSchedulerClock(f.clock.Now), WithSchedulerNotifier(f.hub))

	result, err := scheduler.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Suppressed)
	require.Equal(t, 0, result.Emitted)
}

func TestScheduleInterval(t *testing.T) {
	scheduler, _ := newScheduler(newFixture(t))
	require.NoError(t, scheduler.Start(context.Background(), "@every 5m"))
	<-scheduler.Stop().Done()
	require.Equal(t, 5*time.Minute, scheduler.timeout)

	other, _ := newScheduler(newFixture(t))
	require.Error(t, other.Start(context.Background(), "not a schedule"))
}
