package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/ports"
)

const tracerName = "github.com/remesas/remittance-api/internal/domains/remittancetypes/adapters/observability/service"

// Service decorates the remittance type catalog with tracing and logging.
type Service struct {
	inner  ports.Service
	tracer trace.Tracer
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{inner: inner}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

func (s *Service) CreateType(ctx context.Context, input ports.CreateTypeInput) (*domain.RemittanceType, error) {
	ctx, span := s.tracer.Start(ctx, "Service.CreateType", trace.WithAttributes(attribute.String("remittance_type.code", input.Code)))
	defer span.End()

	rt, err := s.inner.CreateType(ctx, input)
	if err != nil {
		return nil, s.fail(ctx, span, err, "failed to create remittance type", slog.String("code", input.Code))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "remittance type created",
		slog.String("id", rt.ID), slog.String("code", rt.Code), slog.String("actor_id", input.ActorID))
	return rt, nil
}

func (s *Service) ReviseType(ctx context.Context, input ports.ReviseTypeInput) (*domain.RemittanceType, error) {
	ctx, span := s.tracer.Start(ctx, "Service.ReviseType", trace.WithAttributes(attribute.String("remittance_type.id", input.ID)))
	defer span.End()

	rt, err := s.inner.ReviseType(ctx, input)
	if err != nil {
		return nil, s.fail(ctx, span, err, "failed to revise remittance type", slog.String("id", input.ID))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "remittance type revised",
		slog.String("previous_id", input.ID), slog.String("id", rt.ID), slog.Int("version", rt.Version), slog.String("actor_id", input.ActorID))
	return rt, nil
}

func (s *Service) DeactivateType(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "Service.DeactivateType", trace.WithAttributes(attribute.String("remittance_type.id", id)))
	defer span.End()

	if err := s.inner.DeactivateType(ctx, id); err != nil {
		return s.fail(ctx, span, err, "failed to deactivate remittance type", slog.String("id", id))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "remittance type deactivated", slog.String("id", id))
	return nil
}

func (s *Service) GetType(ctx context.Context, id string) (*domain.RemittanceType, error) {
	ctx, span := s.tracer.Start(ctx, "Service.GetType", trace.WithAttributes(attribute.String("remittance_type.id", id)))
	defer span.End()

	rt, err := s.inner.GetType(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, err, "failed to load remittance type", slog.String("id", id))
	}
	return rt, nil
}

func (s *Service) ListTypes(ctx context.Context, activeOnly bool) ([]*domain.RemittanceType, error) {
	ctx, span := s.tracer.Start(ctx, "Service.ListTypes", trace.WithAttributes(attribute.Bool("remittance_type.active_only", activeOnly)))
	defer span.End()

	list, err := s.inner.ListTypes(ctx, activeOnly)
	if err != nil {
		return nil, s.fail(ctx, span, err, "failed to list remittance types")
	}
	span.SetAttributes(attribute.Int("remittance_type.result.count", len(list)))
	return list, nil
}

func (s *Service) Quote(ctx context.Context, id string, amount decimal.Decimal) (*ports.Quote, error) {
	ctx, span := s.tracer.Start(ctx, "Service.Quote", trace.WithAttributes(
		attribute.String("remittance_type.id", id),
		attribute.String("quote.amount", amount.String()),
	))
	defer span.End()

	quote, err := s.inner.Quote(ctx, id, amount)
	if err != nil {
		return nil, s.fail(ctx, span, err, "failed to quote", slog.String("id", id))
	}
	return quote, nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.LogAttrs(ctx, slog.LevelError, msg, append(attrs, slog.String("error", err.Error()))...)
	return err
}

var _ ports.Service = (*Service)(nil)
