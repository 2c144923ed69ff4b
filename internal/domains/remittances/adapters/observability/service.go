package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

const tracerName = "github.com/remesas/remittance-api/internal/domains/remittances/adapters/observability/service"

// Service decorates the order lifecycle port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

func (s *Service) CreateOrder(ctx context.Context, input ports.CreateOrderInput) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.CreateOrder",
		attribute.String("order.sender_id", input.Actor.ID),
		attribute.String("order.remittance_type_id", input.RemittanceTypeID),
		attribute.String("order.amount_sent", input.AmountSent.String()),
	)
	defer span.End()

	s.logInfo(ctx, "creating order", slog.String("sender_id", input.Actor.ID), slog.String("remittance_type_id", input.RemittanceTypeID))
	order, err := s.inner.CreateOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, domain.ActionCreate, err, "failed to create order", slog.String("sender_id", input.Actor.ID))
	}
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.number", order.DisplayNumber()))
	s.metrics.recordCreated(ctx, order.Kind)
	s.logInfo(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.DisplayNumber()),
		slog.String("commission", order.Settlement.Commission.StringFixed(domain.MinorUnitPlaces)),
		slog.String("amount_to_deliver", order.Settlement.AmountToDeliver.StringFixed(domain.MinorUnitPlaces)),
	)
	return order, nil
}

func (s *Service) UploadProof(ctx context.Context, input ports.UploadProofInput) (*domain.Order, error) {
	return s.transition(ctx, domain.ActionUploadProof, input.TransitionInput, func(ctx context.Context) (*domain.Order, error) {
		return s.inner.UploadProof(ctx, input)
	})
}

func (s *Service) ValidatePayment(ctx context.Context, input ports.TransitionInput) (*domain.Order, error) {
	return s.transition(ctx, domain.ActionValidatePayment, input, func(ctx context.Context) (*domain.Order, error) {
		return s.inner.ValidatePayment(ctx, input)
	})
}

func (s *Service) RejectPayment(ctx context.Context, input ports.RejectPaymentInput) (*domain.Order, error) {
	return s.transition(ctx, domain.ActionRejectPayment, input.TransitionInput, func(ctx context.Context) (*domain.Order, error) {
		return s.inner.RejectPayment(ctx, input)
	})
}

func (s *Service) StartProcessing(ctx context.Context, input ports.TransitionInput) (*domain.Order, error) {
	return s.transition(ctx, domain.ActionStartProcessing, input, func(ctx context.Context) (*domain.Order, error) {
		return s.inner.StartProcessing(ctx, input)
	})
}

func (s *Service) ConfirmDelivery(ctx context.Context, input ports.ConfirmDeliveryInput) (*domain.Order, error) {
	return s.transition(ctx, domain.ActionConfirmDelivery, input.TransitionInput, func(ctx context.Context) (*domain.Order, error) {
		return s.inner.ConfirmDelivery(ctx, input)
	})
}

func (s *Service) Complete(ctx context.Context, input ports.TransitionInput) (*domain.Order, error) {
	return s.transition(ctx, domain.ActionComplete, input, func(ctx context.Context) (*domain.Order, error) {
		return s.inner.Complete(ctx, input)
	})
}

func (s *Service) Cancel(ctx context.Context, input ports.CancelInput) (*domain.Order, error) {
	return s.transition(ctx, domain.ActionCancel, input.TransitionInput, func(ctx context.Context) (*domain.Order, error) {
		return s.inner.Cancel(ctx, input)
	})
}

func (s *Service) transition(ctx context.Context, action domain.Action, input ports.TransitionInput, call func(context.Context) (*domain.Order, error)) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.Transition",
		attribute.String("order.id", input.OrderID),
		attribute.String("order.action", string(action)),
		attribute.String("order.expected_status", string(input.ExpectedStatus)),
		attribute.String("actor.role", string(input.Actor.Role)),
	)
	defer span.End()

	attrs := []slog.Attr{
		slog.String("order_id", input.OrderID),
		slog.String("action", string(action)),
		slog.String("actor_id", input.Actor.ID),
	}
	s.logInfo(ctx, "applying transition", append(attrs, slog.String("expected_status", string(input.ExpectedStatus)))...)
	order, err := call(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, action, err, "transition failed", attrs...)
	}
	span.SetAttributes(attribute.String("order.status", string(order.Status)), attribute.Int64("order.version", order.Version))
	s.metrics.recordTransition(ctx, action, order.Status)
	s.logInfo(ctx, "transition applied", append(attrs, slog.String("status", string(order.Status)), slog.Int64("version", order.Version))...)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.GetOrder", attribute.String("order.id", id))
	defer span.End()

	order, err := s.inner.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, s.handleError(ctx, span, "", err, "failed to load order", slog.String("order_id", id))
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, input ports.ListOrdersInput) ([]*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.ListOrders", attribute.String("actor.role", string(input.Actor.Role)))
	defer span.End()

	orders, err := s.inner.ListOrders(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, "", err, "failed to list orders", slog.String("actor_id", input.Actor.ID))
	}
	span.SetAttributes(attribute.Int("order.result.count", len(orders)))
	return orders, nil
}

func (s *Service) ListAuditTrail(ctx context.Context, actor domain.Actor, orderID string) ([]domain.AuditEntry, error) {
	ctx, span := s.startSpan(ctx, "Service.ListAuditTrail", attribute.String("order.id", orderID))
	defer span.End()

	entries, err := s.inner.ListAuditTrail(ctx, actor, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, "", err, "failed to list audit trail", slog.String("order_id", orderID))
	}
	span.SetAttributes(attribute.Int("audit.entries", len(entries)))
	return entries, nil
}

func (s *Service) ResolveProofLinks(ctx context.Context, actor domain.Actor, orderID string) (*ports.ProofLinks, error) {
	ctx, span := s.startSpan(ctx, "Service.ResolveProofLinks", attribute.String("order.id", orderID))
	defer span.End()

	links, err := s.inner.ResolveProofLinks(ctx, actor, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, "", err, "failed to resolve proof links", slog.String("order_id", orderID))
	}
	return links, nil
}

func (s *Service) Subscribe(ctx context.Context, actor domain.Actor) (ports.Subscription, error) {
	sub, err := s.inner.Subscribe(ctx, actor)
	if err != nil {
		s.logError(ctx, "failed to subscribe", err, slog.String("actor_id", actor.ID))
		return nil, err
	}
	s.logInfo(ctx, "realtime subscription opened", slog.String("actor_id", actor.ID), slog.String("role", string(actor.Role)))
	return sub, nil
}

func (s *Service) EvaluateAlerts(ctx context.Context, now time.Time) ([]domain.Alert, error) {
	ctx, span := s.startSpan(ctx, "Service.EvaluateAlerts")
	defer span.End()

	alerts, err := s.inner.EvaluateAlerts(ctx, now)
	if err != nil {
		return nil, s.handleError(ctx, span, "", err, "failed to evaluate alerts")
	}
	span.SetAttributes(attribute.Int("alerts.count", len(alerts)))
	return alerts, nil
}

func (s *Service) CheckIntegrity(ctx context.Context) (*ports.IntegrityReport, error) {
	ctx, span := s.startSpan(ctx, "Service.CheckIntegrity")
	defer span.End()

	report, err := s.inner.CheckIntegrity(ctx)
	if err != nil {
		var failed *domain.IntegrityCheckFailedError
		if errors.As(err, &failed) {
			for _, m := range failed.Mismatches {
				s.logError(ctx, "audit trail diverges from order status", nil,
					slog.String("order_id", m.OrderID),
					slog.String("persisted", string(m.Persisted)),
					slog.String("replayed", string(m.Replayed)),
					slog.String("detail", m.Detail),
				)
			}
		}
		return report, s.handleError(ctx, span, "", err, "integrity check failed")
	}
	s.logInfo(ctx, "integrity check passed", slog.Int("checked", report.Checked))
	return report, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

// handleError records err on the span. Rejected transitions are expected outcomes and are
// logged at warn with their reason; everything else is an error.
func (s *Service) handleError(ctx context.Context, span trace.Span, action domain.Action, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	var rejected *domain.TransitionRejectedError
	if errors.As(err, &rejected) {
		span.SetAttributes(attribute.String("order.rejection_reason", string(rejected.Reason)))
		s.metrics.recordRejection(ctx, action, rejected.Reason)
		if s.logger != nil {
			attrs = append(attrs, slog.String("reason", string(rejected.Reason)), slog.String("error", err.Error()))
			s.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
		}
		return err
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	ordersCreated metric.Int64Counter
	transitions   metric.Int64Counter
	rejections    metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersCreated, _ := m.Int64Counter("remittances.orders.created", metric.WithDescription("Number of orders created"))
	transitions, _ := m.Int64Counter("remittances.transitions", metric.WithDescription("Number of applied status transitions"))
	rejections, _ := m.Int64Counter("remittances.transition_rejections", metric.WithDescription("Number of rejected status transitions"))
	return serviceMetrics{
		ordersCreated: ordersCreated,
		transitions:   transitions,
		rejections:    rejections,
	}
}

func (m serviceMetrics) recordCreated(ctx context.Context, kind domain.Kind) {
	addCounter(ctx, m.ordersCreated, 1, attribute.String("order.kind", string(kind)))
}

func (m serviceMetrics) recordTransition(ctx context.Context, action domain.Action, status domain.Status) {
	addCounter(ctx, m.transitions, 1, attribute.String("order.action", string(action)), attribute.String("order.status", string(status)))
}

func (m serviceMetrics) recordRejection(ctx context.Context, action domain.Action, reason domain.RejectionReason) {
	addCounter(ctx, m.rejections, 1, attribute.String("order.action", string(action)), attribute.String("order.rejection_reason", string(reason)))
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
