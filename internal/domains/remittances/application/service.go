package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
	typesdomain "github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
)

// Service orchestrates the order lifecycle: pricing at creation, guarded transitions with their
// audit entries, realtime events and notification side effects.
type Service struct {
	repo        ports.Repository
	types       ports.RemittanceTypeLookup
	authorizer  ports.Authorizer
	notifier    ports.Notifier
	dispatcher  ports.NotificationDispatcher
	proofs      ports.ProofResolver
	idempotency ports.IdempotencyStore
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
	newEntryID  func() string

	idempotencyWait    time.Duration
	awaitingProof      domain.SLA
	awaitingValidation domain.SLA
}

// Option customises the service.
type Option func(*Service)

func WithAuthorizer(a ports.Authorizer) Option {
	return func(s *Service) {
		if a != nil {
			s.authorizer = a
		}
	}
}

func WithNotifier(n ports.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithDispatcher(d ports.NotificationDispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

func WithProofResolver(r ports.ProofResolver) Option {
	return func(s *Service) { s.proofs = r }
}

// WithIdempotencyStore enables Idempotency-Key replay for CreateOrder.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) { s.idempotency = store }
}

// WithIdempotencyWait bounds how long a retry waits for a concurrent request with the same key.
func WithIdempotencyWait(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idempotencyWait = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides order and event id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithAwaitingProofSLA enables alerts for orders left in created.
func WithAwaitingProofSLA(sla domain.SLA) Option {
	return func(s *Service) { s.awaitingProof = sla }
}

// WithAwaitingValidationSLA enables alerts for proofs waiting on an administrator.
func WithAwaitingValidationSLA(sla domain.SLA) Option {
	return func(s *Service) { s.awaitingValidation = sla }
}

func NewService(repo ports.Repository, types ports.RemittanceTypeLookup, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		types:      types,
		authorizer: RolePolicy{},
		logger:     slog.Default(),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
		newEntryID: func() string { return ulid.Make().String() },

		idempotencyWait: DefaultIdempotencyWait,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateOrder prices the order against the active remittance type and stores it in status created.
func (s *Service) CreateOrder(ctx context.Context, input ports.CreateOrderInput) (*domain.Order, error) {
	if !input.Actor.Valid() {
		return nil, mapError(domain.ErrInvalidActor)
	}
	if err := s.authorizer.Authorize(ctx, input.Actor, domain.ActionCreate, nil); err != nil {
		return nil, err
	}
	if s.idempotency != nil && input.IdempotencyKey != "" {
		return s.createIdempotent(ctx, input)
	}
	return s.createOrder(ctx, input)
}

func (s *Service) createOrder(ctx context.Context, input ports.CreateOrderInput) (*domain.Order, error) {
	rt, err := s.types.GetType(ctx, input.RemittanceTypeID)
	if err != nil {
		return nil, err
	}
	if !rt.Active {
		return nil, &domain.ConfigInactiveError{ConfigID: rt.ID}
	}
	order, err := domain.NewOrder(domain.Draft{
		ID:         s.newID(),
		Kind:       input.Kind,
		SenderID:   input.Actor.ID,
		Snapshot:   snapshotOf(rt),
		Range:      domain.AmountRange{Min: rt.Terms.MinAmount, Max: rt.Terms.MaxAmount},
		AmountSent: input.AmountSent,
		Recipient:  input.Recipient,
	}, s.now().UTC())
	if err != nil {
		return nil, mapError(err)
	}
	genesis := domain.NewGenesisEntry(s.newEntryID(), order, input.Actor)
	saved, err := s.repo.Create(ctx, order, genesis)
	if err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}
	s.emit(ctx, domain.NewStatusChangedEvent(s.newID(), saved, genesis))
	return saved, nil
}

func (s *Service) UploadProof(ctx context.Context, input ports.UploadProofInput) (*domain.Order, error) {
	proof := input.Proof
	return s.transition(ctx, input.TransitionInput, domain.TransitionRequest{Action: domain.ActionUploadProof, Proof: &proof})
}

func (s *Service) ValidatePayment(ctx context.Context, input ports.TransitionInput) (*domain.Order, error) {
	return s.transition(ctx, input, domain.TransitionRequest{Action: domain.ActionValidatePayment})
}

func (s *Service) RejectPayment(ctx context.Context, input ports.RejectPaymentInput) (*domain.Order, error) {
	return s.transition(ctx, input.TransitionInput, domain.TransitionRequest{Action: domain.ActionRejectPayment, Reason: input.Reason})
}

// StartProcessing stamps the timestamp delivery SLA alerts are measured from.
func (s *Service) StartProcessing(ctx context.Context, input ports.TransitionInput) (*domain.Order, error) {
	return s.transition(ctx, input, domain.TransitionRequest{Action: domain.ActionStartProcessing})
}

func (s *Service) ConfirmDelivery(ctx context.Context, input ports.ConfirmDeliveryInput) (*domain.Order, error) {
	proof := input.Proof
	confirmation := input.Confirmation
	return s.transition(ctx, input.TransitionInput, domain.TransitionRequest{
		Action:        domain.ActionConfirmDelivery,
		DeliveryProof: &proof,
		Confirmation:  &confirmation,
	})
}

func (s *Service) Complete(ctx context.Context, input ports.TransitionInput) (*domain.Order, error) {
	return s.transition(ctx, input, domain.TransitionRequest{Action: domain.ActionComplete})
}

func (s *Service) Cancel(ctx context.Context, input ports.CancelInput) (*domain.Order, error) {
	return s.transition(ctx, input.TransitionInput, domain.TransitionRequest{Action: domain.ActionCancel, Reason: input.Reason})
}

// transition hides other senders' orders as not found, runs the guards in order (stale state,
// invalid target, unauthorized actor, missing field), then writes the order and its audit entry with a conditional update.
// The realtime event and notification follow the commit.
func (s *Service) transition(ctx context.Context, input ports.TransitionInput, req domain.TransitionRequest) (*domain.Order, error) {
	if !input.Actor.Valid() {
		return nil, mapError(domain.ErrInvalidActor)
	}
	order, err := s.GetOrder(ctx, input.Actor, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := order.CheckState(input.ExpectedStatus, req.Action); err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(ctx, input.Actor, req.Action, order); err != nil {
		return nil, err
	}
	expectedVersion := order.Version
	req.Actor = input.Actor
	applied, err := order.Apply(req, s.now().UTC())
	if err != nil {
		return nil, err
	}
	entry := domain.NewTransitionEntry(s.newEntryID(), order.ID, applied)
	saved, err := s.repo.ApplyTransition(ctx, order, input.ExpectedStatus, expectedVersion, entry)
	if errors.Is(err, ports.ErrConcurrentUpdate) {
		return nil, s.staleError(ctx, input, req.Action)
	}
	if err != nil {
		return nil, fmt.Errorf("apply %s to order %s: %w", req.Action, input.OrderID, err)
	}
	s.emit(ctx, domain.NewStatusChangedEvent(s.newID(), saved, entry))
	return saved, nil
}

func (s *Service) staleError(ctx context.Context, input ports.TransitionInput, action domain.Action) error {
	rejected := &domain.TransitionRejectedError{
		Reason:   domain.ReasonStaleState,
		OrderID:  input.OrderID,
		Action:   action,
		Expected: input.ExpectedStatus,
	}
	if current, err := s.repo.GetByID(ctx, input.OrderID); err == nil {
		rejected.Current = current.Status
	}
	return rejected
}

// emit publishes the realtime event and hands its notification to the dispatcher.
// Neither can fail the operation that produced the event.
func (s *Service) emit(ctx context.Context, event domain.Event) {
	publish(ctx, s.notifier, s.dispatcher, s.logger, event)
}

func publish(ctx context.Context, notifier ports.Notifier, dispatcher ports.NotificationDispatcher, logger *slog.Logger, event domain.Event) {
	if notifier != nil {
		notifier.Publish(event)
	}
	if dispatcher == nil {
		return
	}
	n := ports.NotificationFromEvent(event)
	if err := dispatcher.Dispatch(context.WithoutCancel(ctx), n); err != nil {
		var deliveryErr *domain.NotificationDeliveryError
		if !errors.As(err, &deliveryErr) {
			deliveryErr = &domain.NotificationDeliveryError{OrderID: event.OrderID, Kind: string(event.Kind), Err: err}
		}
		logger.LogAttrs(ctx, slog.LevelWarn, "notification dispatch failed",
			slog.String("order_id", event.OrderID),
			slog.String("event_kind", string(event.Kind)),
			slog.String("error", deliveryErr.Error()),
		)
	}
}

// GetOrder returns the order when the actor may see it. Senders only see their own orders;
// other orders are reported as not found.
func (s *Service) GetOrder(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	if !actor.Valid() {
		return nil, mapError(domain.ErrInvalidActor)
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.SenderID != actor.ID {
		return nil, ports.ErrNotFound
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, input ports.ListOrdersInput) ([]*domain.Order, error) {
	if !input.Actor.Valid() {
		return nil, mapError(domain.ErrInvalidActor)
	}
	if !input.Actor.IsAdmin() {
		orders, err := s.repo.ListByOwner(ctx, input.Actor.ID)
		if err != nil {
			return nil, err
		}
		return filterByStatus(orders, input.Statuses), nil
	}
	statuses := input.Statuses
	if len(statuses) == 0 {
		statuses = domain.Statuses
	}
	return s.repo.ListByStatus(ctx, statuses)
}

func filterByStatus(orders []*domain.Order, statuses []domain.Status) []*domain.Order {
	if len(statuses) == 0 {
		return orders
	}
	out := make([]*domain.Order, 0, len(orders))
	for _, o := range orders {
		for _, st := range statuses {
			if o.Status == st {
				out = append(out, o)
				break
			}
		}
	}
	return out
}

func (s *Service) ListAuditTrail(ctx context.Context, actor domain.Actor, orderID string) ([]domain.AuditEntry, error) {
	if _, err := s.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListAuditTrail(ctx, orderID)
}

// ResolveProofLinks turns the order's stored proof references into retrievable URLs.
func (s *Service) ResolveProofLinks(ctx context.Context, actor domain.Actor, orderID string) (*ports.ProofLinks, error) {
	order, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	links := &ports.ProofLinks{}
	if order.PaymentProof != nil {
		if links.PaymentProofURL, err = s.resolve(ctx, order.PaymentProof.URL); err != nil {
			return nil, fmt.Errorf("resolve payment proof: %w", err)
		}
	}
	if order.DeliveryProof != nil {
		if links.DeliveryProofURL, err = s.resolve(ctx, order.DeliveryProof.URL); err != nil {
			return nil, fmt.Errorf("resolve delivery proof: %w", err)
		}
	}
	return links, nil
}

func (s *Service) resolve(ctx context.Context, ref string) (string, error) {
	if s.proofs == nil {
		return ref, nil
	}
	return s.proofs.Resolve(ctx, ref)
}

// Subscribe opens a realtime stream: every order for administrators, own orders for senders.
func (s *Service) Subscribe(_ context.Context, actor domain.Actor) (ports.Subscription, error) {
	if !actor.Valid() {
		return nil, mapError(domain.ErrInvalidActor)
	}
	if s.notifier == nil {
		return nil, ErrRealtimeUnavailable
	}
	filter := domain.Filter{OwnerID: actor.ID}
	if actor.IsAdmin() {
		filter = domain.Filter{All: true}
	}
	return s.notifier.Subscribe(filter), nil
}

func snapshotOf(rt *typesdomain.RemittanceType) domain.Snapshot {
	return domain.Snapshot{
		RemittanceTypeID:  rt.ID,
		SourceCurrency:    rt.Terms.SourceCurrency,
		DeliveryCurrency:  rt.Terms.DeliveryCurrency,
		ExchangeRate:      rt.Terms.ExchangeRate,
		CommissionPercent: rt.Terms.CommissionPercent,
		CommissionFixed:   rt.Terms.CommissionFixed,
		WarningDays:       rt.Terms.WarningDays,
		MaxDeliveryDays:   rt.Terms.MaxDeliveryDays,
	}
}

var _ ports.Service = (*Service)(nil)
