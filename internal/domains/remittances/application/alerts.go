package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

// DefaultAlertSchedule is the tick cadence used when none is configured.
const DefaultAlertSchedule = "@every 5m"

// EvaluateAlerts derives the current alerts without deduplication. Processing orders are
// measured against the delivery days captured on the order; created and proof_uploaded
// orders only when their SLA is enabled.
func (s *Service) EvaluateAlerts(ctx context.Context, now time.Time) ([]domain.Alert, error) {
	statuses := []domain.Status{domain.StatusProcessing}
	if s.awaitingProof.Enabled() {
		statuses = append(statuses, domain.StatusCreated)
	}
	if s.awaitingValidation.Enabled() {
		statuses = append(statuses, domain.StatusProofUploaded)
	}
	orders, err := s.repo.ListByStatus(ctx, statuses)
	if err != nil {
		return nil, fmt.Errorf("list timed orders: %w", err)
	}
	alerts := make([]domain.Alert, 0)
	for _, order := range orders {
		if alert, ok := domain.Evaluate(order, s.slaFor(order), now); ok {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

func (s *Service) slaFor(order *domain.Order) domain.SLA {
	switch order.Status {
	case domain.StatusProcessing:
		return domain.DeliverySLA(order.Snapshot.WarningDays, order.Snapshot.MaxDeliveryDays)
	case domain.StatusCreated:
		return s.awaitingProof
	case domain.StatusProofUploaded:
		return s.awaitingValidation
	}
	return domain.SLA{}
}

// AlertEvaluator derives the current alerts at now.
type AlertEvaluator interface {
	EvaluateAlerts(ctx context.Context, now time.Time) ([]domain.Alert, error)
}

// DedupWindows bounds how often the same (order, severity) alert is re-emitted.
type DedupWindows struct {
	Warning time.Duration
	Breach  time.Duration
}

// DefaultDedupWindows re-emits warnings at most daily and breaches at most hourly.
var DefaultDedupWindows = DedupWindows{Warning: 24 * time.Hour, Breach: time.Hour}

func (w DedupWindows) For(severity domain.Severity) time.Duration {
	if severity == domain.SeverityBreach {
		return w.Breach
	}
	return w.Warning
}

// TickResult summarises one scheduler pass.
type TickResult struct {
	Skipped    bool
	Evaluated  int
	Emitted    int
	Suppressed int
}

// TickObserver receives the outcome of every tick.
type TickObserver interface {
	ObserveTick(result TickResult, elapsed time.Duration, err error)
}

// AlertScheduler periodically evaluates SLA alerts and emits the ones outside their dedup
// window. It never writes orders.
type AlertScheduler struct {
	evaluator  AlertEvaluator
	dedup      ports.AlertDeduplicator
	notifier   ports.Notifier
	dispatcher ports.NotificationDispatcher
	observer   TickObserver
	windows    DedupWindows
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string

	running atomic.Bool
	cron    *cron.Cron
}

// SchedulerOption customises the scheduler.
type SchedulerOption func(*AlertScheduler)

func WithSchedulerNotifier(n ports.Notifier) SchedulerOption {
	return func(s *AlertScheduler) { s.notifier = n }
}

func WithSchedulerDispatcher(d ports.NotificationDispatcher) SchedulerOption {
	return func(s *AlertScheduler) { s.dispatcher = d }
}

func WithTickObserver(o TickObserver) SchedulerOption {
	return func(s *AlertScheduler) { s.observer = o }
}

func WithDedupWindows(w DedupWindows) SchedulerOption {
	return func(s *AlertScheduler) {
		if w.Warning > 0 {
			s.windows.Warning = w.Warning
		}
		if w.Breach > 0 {
			s.windows.Breach = w.Breach
		}
	}
}

// WithTickTimeout bounds a single tick. Start derives it from the schedule when unset.
func WithTickTimeout(d time.Duration) SchedulerOption {
	return func(s *AlertScheduler) { s.timeout = d }
}

func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *AlertScheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *AlertScheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func NewAlertScheduler(evaluator AlertEvaluator, dedup ports.AlertDeduplicator, opts ...SchedulerOption) *AlertScheduler {
	s := &AlertScheduler{
		evaluator: evaluator,
		dedup:     dedup,
		windows:   DefaultDedupWindows,
		logger:    slog.Default(),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Tick runs one evaluation pass. A tick that starts while another is still running returns
// immediately with Skipped set.
func (s *AlertScheduler) Tick(ctx context.Context) (TickResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		result := TickResult{Skipped: true}
		s.observe(result, 0, nil)
		return result, nil
	}
	defer s.running.Store(false)

	started := time.Now()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	result, err := s.tick(ctx)
	s.observe(result, time.Since(started), err)
	return result, err
}

func (s *AlertScheduler) tick(ctx context.Context) (TickResult, error) {
	var result TickResult
	alerts, err := s.evaluator.EvaluateAlerts(ctx, s.now().UTC())
	if err != nil {
		return result, err
	}
	result.Evaluated = len(alerts)
	for _, alert := range alerts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		emit, err := s.dedup.ShouldEmit(ctx, alert.OrderID, alert.Severity, s.windows.For(alert.Severity))
		if err != nil {
			// The next tick derives the same alert again.
			s.logger.LogAttrs(ctx, slog.LevelWarn, "alert dedup lookup failed",
				slog.String("order_id", alert.OrderID),
				slog.String("severity", string(alert.Severity)),
				slog.String("error", err.Error()),
			)
			result.Suppressed++
			continue
		}
		if !emit {
			result.Suppressed++
			continue
		}
		publish(ctx, s.notifier, s.dispatcher, s.logger, domain.NewAlertRaisedEvent(s.newID(), alert))
		result.Emitted++
	}
	return result, nil
}

func (s *AlertScheduler) observe(result TickResult, elapsed time.Duration, err error) {
	if s.observer != nil {
		s.observer.ObserveTick(result, elapsed, err)
	}
}

// Start schedules Tick on spec (robfig/cron syntax, e.g. "@every 5m") until Stop.
func (s *AlertScheduler) Start(ctx context.Context, spec string) error {
	if spec == "" {
		spec = DefaultAlertSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parse alert schedule %q: %w", spec, err)
	}
	if s.timeout <= 0 {
		s.timeout = scheduleInterval(schedule, s.now())
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo))
	s.cron = cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	s.cron.Schedule(schedule, cron.FuncJob(func() {
		result, err := s.Tick(ctx)
		if err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "alert tick failed", slog.String("error", err.Error()))
			return
		}
		s.logger.LogAttrs(ctx, slog.LevelInfo, "alert tick finished",
			slog.Bool("skipped", result.Skipped),
			slog.Int("evaluated", result.Evaluated),
			slog.Int("emitted", result.Emitted),
			slog.Int("suppressed", result.Suppressed),
		)
	}))
	s.cron.Start()
	s.logger.Info("scheduled alert evaluation", "schedule", spec, "tick_timeout", s.timeout.String())
	return nil
}

// Stop halts scheduling; the returned context is done once a running tick finishes.
func (s *AlertScheduler) Stop() context.Context {
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return s.cron.Stop()
}

// scheduleInterval measures the gap between two consecutive activations.
func scheduleInterval(schedule cron.Schedule, from time.Time) time.Duration {
	first := schedule.Next(from)
	return schedule.Next(first).Sub(first)
}
