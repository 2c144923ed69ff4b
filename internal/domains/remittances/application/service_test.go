package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	remittancememory "github.com/remesas/remittance-api/internal/domains/remittances/adapters/memory"
	"github.com/remesas/remittance-api/internal/domains/remittances/adapters/realtime"
	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
	typesmemory "github.com/remesas/remittance-api/internal/domains/remittancetypes/adapters/memory"
	typesapp "github.com/remesas/remittance-api/internal/domains/remittancetypes/application"
	typesdomain "github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
	typesports "github.com/remesas/remittance-api/internal/domains/remittancetypes/ports"
)

var (
	alice = domain.Actor{ID: "alice", Role: domain.RoleSender}
	bob   = domain.Actor{ID: "bob", Role: domain.RoleSender}
	admin = domain.Actor{ID: "admin", Role: domain.RoleAdmin}
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []ports.Notification
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n ports.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return d.err
}

func (d *recordingDispatcher) Sent() []ports.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ports.Notification(nil), d.sent...)
}

type fixture struct {
	svc        *Service
	repo       *remittancememory.Repository
	types      *typesapp.Service
	hub        *realtime.Hub
	dispatcher *recordingDispatcher
	clock      *clock
	typeID     string
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	types := typesapp.NewService(typesmemory.NewRepository(), typesapp.WithClock(c.Now))
	rt, err := types.CreateType(context.Background(), typesports.CreateTypeInput{
		Code: "USD-CUP",
		Terms: typesdomain.Terms{
			Name:              "Cash delivery in CUP",
			SourceCurrency:    "USD",
			DeliveryCurrency:  "CUP",
			ExchangeRate:      mustDecimal(t, "320"),
			CommissionPercent: mustDecimal(t, "2.5"),
			CommissionFixed:   decimal.Zero,
			MinAmount:         mustDecimal(t, "10"),
			MaxAmount:         mustDecimal(t, "1000"),
			WarningDays:       2,
			MaxDeliveryDays:   3,
		},
		ActorID: admin.ID,
	})
	require.NoError(t, err)

	repo := remittancememory.NewRepository()
	hub := realtime.NewHub()
	dispatcher := &recordingDispatcher{}
	base := []Option{WithClock(c.Now), WithNotifier(hub), WithDispatcher(dispatcher)}
	svc := NewService(repo, types, append(base, opts...)...)
	return &fixture{svc: svc, repo: repo, types: types, hub: hub, dispatcher: dispatcher, clock: c, typeID: rt.ID}
}

func (f *fixture) create(t *testing.T, amount string) *domain.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), ports.CreateOrderInput{
		Actor:            alice,
		RemittanceTypeID: f.typeID,
		AmountSent:       mustDecimal(t, amount),
		Recipient:        domain.Recipient{FullName: "Ana Perez", Phone: "+5355555555"},
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) advanceTo(t *testing.T, order *domain.Order, target domain.Status) *domain.Order {
	t.Helper()
	ctx := context.Background()
	var err error
	path := []domain.Status{domain.StatusCreated, domain.StatusProofUploaded, domain.StatusValidated, domain.StatusProcessing, domain.StatusDelivered, domain.StatusCompleted}
	reached := false
	for _, next := range path {
		if order.Status == target {
			return order
		}
		if !reached {
			reached = next == order.Status
			continue
		}
		in := ports.TransitionInput{OrderID: order.ID, ExpectedStatus: order.Status, Actor: admin}
		switch next {
		case domain.StatusProofUploaded:
			in.Actor = alice
			order, err = f.svc.UploadProof(ctx, ports.UploadProofInput{TransitionInput: in, Proof: domain.ProofReference{URL: "gs://proofs/p.png", Reference: "TX-1"}})
		case domain.StatusValidated:
			order, err = f.svc.ValidatePayment(ctx, in)
		case domain.StatusProcessing:
			order, err = f.svc.StartProcessing(ctx, in)
		case domain.StatusDelivered:
			order, err = f.svc.ConfirmDelivery(ctx, ports.ConfirmDeliveryInput{
				TransitionInput: in,
				Proof:           domain.ProofReference{URL: "gs://proofs/d.png"},
				Confirmation:    domain.DeliveryConfirmation{RecipientName: "Ana Perez", RecipientIDNumber: "85010112345"},
			})
		case domain.StatusCompleted:
			order, err = f.svc.Complete(ctx, in)
		}
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}
	require.Equal(t, target, order.Status)
	return order
}

func TestCreateOrder_ComputesSettlement(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, "100")

	require.Equal(t, domain.StatusCreated, order.Status)
	require.Equal(t, "REM-000001", order.DisplayNumber())
	require.Equal(t, "2.50", order.Settlement.Commission.StringFixed(2))
	require.Equal(t, "31200.00", order.Settlement.AmountToDeliver.StringFixed(2))
	require.Equal(t, "CUP", order.Snapshot.DeliveryCurrency)

	trail, err := f.svc.ListAuditTrail(context.Background(), alice, order.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	require.True(t, trail[0].Genesis())
	require.Len(t, f.dispatcher.Sent(), 1)
}

func TestCreateOrder_AmountOutOfRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateOrder(context.Background(), ports.CreateOrderInput{
		Actor:            alice,
		RemittanceTypeID: f.typeID,
		AmountSent:       mustDecimal(t, "5"),
		Recipient:        domain.Recipient{FullName: "Ana Perez"},
	})
	var rangeErr *domain.AmountOutOfRangeError
	require.True(t, errors.As(err, &rangeErr))
	require.Equal(t, "10", rangeErr.Min.String())
	require.Equal(t, "1000", rangeErr.Max.String())
}

func TestCreateOrder_ConfigInactive(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.types.DeactivateType(context.Background(), f.typeID))

	_, err := f.svc.CreateOrder(context.Background(), ports.CreateOrderInput{
		Actor:            alice,
		RemittanceTypeID: f.typeID,
		AmountSent:       mustDecimal(t, "100"),
		Recipient:        domain.Recipient{FullName: "Ana Perez"},
	})
	var inactive *domain.ConfigInactiveError
	require.True(t, errors.As(err, &inactive))
	require.Equal(t, f.typeID, inactive.ConfigID)
}

func TestCreateOrder_KeepsSnapshotAfterRevision(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, "100")

	current, err := f.types.GetType(context.Background(), f.typeID)
	require.NoError(t, err)
	terms := current.Terms
	terms.ExchangeRate = mustDecimal(t, "400")
	_, err = f.types.ReviseType(context.Background(), typesports.ReviseTypeInput{ID: f.typeID, Terms: terms, ActorID: admin.ID})
	require.NoError(t, err)

	reloaded, err := f.svc.GetOrder(context.Background(), alice, order.ID)
	require.NoError(t, err)
	require.Equal(t, "320", reloaded.Snapshot.ExchangeRate.String())
	require.Equal(t, "31200.00", reloaded.Settlement.AmountToDeliver.StringFixed(2))
}

func TestCreateOrder_InvalidInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateOrder(context.Background(), ports.CreateOrderInput{
		Actor:            alice,
		RemittanceTypeID: f.typeID,
		AmountSent:       mustDecimal(t, "100"),
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrRecipientRequired)
}

func TestTransitions_FullLifecycleWritesTrail(t *testing.T) {
	f := newFixture(t)
	sub := f.hub.Subscribe(domain.Filter{OwnerID: alice.ID})
	defer sub.Close()

	order := f.create(t, "100")
	order = f.advanceTo(t, order, domain.StatusCompleted)
	require.Equal(t, int64(6), order.Version)

	trail, err := f.svc.ListAuditTrail(context.Background(), admin, order.ID)
	require.NoError(t, err)
	require.Len(t, trail, 6)
	status, err := domain.Replay(trail)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, status)
	for i := 1; i < len(trail); i++ {
		require.False(t, trail[i].OccurredAt.Before(trail[i-1].OccurredAt))
		require.Equal(t, trail[i-1].Sequence+1, trail[i].Sequence)
	}

	require.Len(t, sub.Events(), 6)
	first := <-sub.Events()
	require.Equal(t, domain.EventStatusChanged, first.Kind)
	require.Equal(t, domain.StatusCreated, first.StatusChange.To)
	require.Len(t, f.dispatcher.Sent(), 6)
}

func TestValidatePayment_ConcurrentCallersExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	order := f.advanceTo(t, f.create(t, "100"), domain.StatusProofUploaded)

	const callers = 2
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.ValidatePayment(context.Background(), ports.TransitionInput{
				OrderID:        order.ID,
				ExpectedStatus: domain.StatusProofUploaded,
				Actor:          admin,
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var succeeded, stale int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrStaleState):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, stale)

	trail, err := f.svc.ListAuditTrail(context.Background(), admin, order.ID)
	require.NoError(t, err)
	require.Len(t, trail, 3)
}

func TestTransition_GuardOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, "100")
	uploaded := f.advanceTo(t, f.create(t, "100"), domain.StatusProofUploaded)

	// stale wins over every other failure
	_, err := f.svc.ValidatePayment(ctx, ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusProofUploaded, Actor: alice})
	require.ErrorIs(t, err, domain.ErrStaleState)

	// invalid target wins over unauthorized
	_, err = f.svc.Complete(ctx, ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusCreated, Actor: alice})
	require.ErrorIs(t, err, domain.ErrInvalidTarget)

	// unauthorized wins over missing fields
	_, err = f.svc.RejectPayment(ctx, ports.RejectPaymentInput{TransitionInput: ports.TransitionInput{OrderID: uploaded.ID, ExpectedStatus: domain.StatusProofUploaded, Actor: alice}})
	require.ErrorIs(t, err, domain.ErrUnauthorizedActor)
	var rejected *domain.TransitionRejectedError
	require.True(t, errors.As(err, &rejected))
	require.Equal(t, "you are not authorized for this action", rejected.UserMessage())

	_, err = f.svc.Cancel(ctx, ports.CancelInput{TransitionInput: ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusCreated, Actor: alice}})
	require.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestTransition_OtherSendersOrderIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.advanceTo(t, f.create(t, "100"), domain.StatusProcessing)

	_, err := f.svc.GetOrder(ctx, bob, order.ID)
	require.ErrorIs(t, err, ports.ErrNotFound)

	attempts := []error{}
	_, err = f.svc.Cancel(ctx, ports.CancelInput{TransitionInput: ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusCreated, Actor: bob}, Reason: "changed my mind"})
	attempts = append(attempts, err)
	_, err = f.svc.Complete(ctx, ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusProcessing, Actor: bob})
	attempts = append(attempts, err)
	_, err = f.svc.UploadProof(ctx, ports.UploadProofInput{TransitionInput: ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusCreated, Actor: bob}})
	attempts = append(attempts, err)
	for _, err := range attempts {
		require.ErrorIs(t, err, ports.ErrNotFound)
		var rejected *domain.TransitionRejectedError
		require.False(t, errors.As(err, &rejected))
	}

	stored, err := f.svc.GetOrder(ctx, alice, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusProcessing, stored.Status)
}

func TestTransition_SenderCannotAdministrate(t *testing.T) {
	f := newFixture(t)
	order := f.advanceTo(t, f.create(t, "100"), domain.StatusProofUploaded)

	_, err := f.svc.ValidatePayment(context.Background(), ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusProofUploaded, Actor: alice})
	require.ErrorIs(t, err, domain.ErrUnauthorizedActor)

	order = f.advanceTo(t, order, domain.StatusValidated)
	_, err = f.svc.Cancel(context.Background(), ports.CancelInput{
		TransitionInput: ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusValidated, Actor: alice},
		Reason:          "too slow",
	})
	require.ErrorIs(t, err, domain.ErrUnauthorizedActor)

	cancelled, err := f.svc.Cancel(context.Background(), ports.CancelInput{
		TransitionInput: ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusValidated, Actor: admin},
		Reason:          "recipient unreachable",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.Equal(t, admin.ID, cancelled.CancelledBy)
}

func TestCancel_CompletedOrderIsInvalidTarget(t *testing.T) {
	f := newFixture(t)
	order := f.advanceTo(t, f.create(t, "100"), domain.StatusCompleted)

	_, err := f.svc.Cancel(context.Background(), ports.CancelInput{
		TransitionInput: ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusCompleted, Actor: admin},
		Reason:          "too late",
	})
	require.ErrorIs(t, err, domain.ErrInvalidTarget)
}

func TestRejectAndResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.advanceTo(t, f.create(t, "100"), domain.StatusProofUploaded)

	order, err := f.svc.RejectPayment(ctx, ports.RejectPaymentInput{
		TransitionInput: ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusProofUploaded, Actor: admin},
		Reason:          "amount does not match",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, order.Status)
	require.Equal(t, "amount does not match", order.RejectionReason)

	order, err = f.svc.UploadProof(ctx, ports.UploadProofInput{
		TransitionInput: ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusRejected, Actor: alice},
		Proof:           domain.ProofReference{URL: "gs://proofs/second.png"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusProofUploaded, order.Status)
	require.Equal(t, "gs://proofs/second.png", order.PaymentProof.URL)
}

func TestTransition_AuditFailureLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, "100")
	f.repo.FailNextAppend(errors.New("disk full"))

	_, err := f.svc.Cancel(context.Background(), ports.CancelInput{
		TransitionInput: ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusCreated, Actor: alice},
		Reason:          "changed my mind",
	})
	require.ErrorContains(t, err, "disk full")

	reloaded, err := f.svc.GetOrder(context.Background(), alice, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCreated, reloaded.Status)
	trail, err := f.svc.ListAuditTrail(context.Background(), alice, order.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	require.Len(t, f.dispatcher.Sent(), 1)
}

func TestTransition_NotificationFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, "100")
	f.dispatcher.err = errors.New("whatsapp unreachable")

	cancelled, err := f.svc.Cancel(context.Background(), ports.CancelInput{
		TransitionInput: ports.TransitionInput{OrderID: order.ID, ExpectedStatus: domain.StatusCreated, Actor: alice},
		Reason:          "changed my mind",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, cancelled.Status)
}

func TestGetOrder_HidesOtherSendersOrders(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, "100")

	_, err := f.svc.GetOrder(context.Background(), bob, order.ID)
	require.ErrorIs(t, err, ports.ErrNotFound)
	_, err = f.svc.ListAuditTrail(context.Background(), bob, order.ID)
	require.ErrorIs(t, err, ports.ErrNotFound)

	got, err := f.svc.GetOrder(context.Background(), admin, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, "100")
	f.create(t, "200")
	f.advanceTo(t, first, domain.StatusProofUploaded)

	mine, err := f.svc.ListOrders(context.Background(), ports.ListOrdersInput{Actor: alice})
	require.NoError(t, err)
	require.Len(t, mine, 2)

	none, err := f.svc.ListOrders(context.Background(), ports.ListOrdersInput{Actor: bob})
	require.NoError(t, err)
	require.Empty(t, none)

	queue, err := f.svc.ListOrders(context.Background(), ports.ListOrdersInput{Actor: admin, Statuses: []domain.Status{domain.StatusProofUploaded}})
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, first.ID, queue[0].ID)
}

type prefixResolver struct{}

func (prefixResolver) Resolve(_ context.Context, ref string) (string, error) {
	return "https://signed.example/" + ref, nil
}

func TestResolveProofLinks(t *testing.T) {
	f := newFixture(t, WithProofResolver(prefixResolver{}))
	order := f.advanceTo(t, f.create(t, "100"), domain.StatusProofUploaded)

	links, err := f.svc.ResolveProofLinks(context.Background(), alice, order.ID)
	require.NoError(t, err)
	require.Equal(t, "https://signed.example/gs://proofs/p.png", links.PaymentProofURL)
	require.Empty(t, links.DeliveryProofURL)
}

func TestSubscribe_ScopesByRole(t *testing.T) {
	f := newFixture(t)
	adminSub, err := f.svc.Subscribe(context.Background(), admin)
	require.NoError(t, err)
	defer adminSub.Close()
	bobSub, err := f.svc.Subscribe(context.Background(), bob)
	require.NoError(t, err)
	defer bobSub.Close()

	f.create(t, "100")
	require.Len(t, adminSub.Events(), 1)
	require.Empty(t, bobSub.Events())
}

func TestCheckIntegrity(t *testing.T) {
	f := newFixture(t)
	healthy := f.advanceTo(t, f.create(t, "100"), domain.StatusValidated)
	corrupted := f.create(t, "50")

	report, err := f.svc.CheckIntegrity(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Checked)

	f.repo.OverwriteStatus(corrupted.ID, domain.StatusProcessing)
	_, err = f.svc.CheckIntegrity(context.Background())
	var failed *domain.IntegrityCheckFailedError
	require.True(t, errors.As(err, &failed))
	require.Len(t, failed.Mismatches, 1)
	require.Equal(t, corrupted.ID, failed.Mismatches[0].OrderID)
	require.NotEqual(t, healthy.ID, failed.Mismatches[0].OrderID)
}
