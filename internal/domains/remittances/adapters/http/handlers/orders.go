package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/remesas/remittance-api/internal/domains/remittances/adapters/http/auth"
	"github.com/remesas/remittance-api/internal/domains/remittances/adapters/http/mapper"
	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
	apierrors "github.com/remesas/remittance-api/internal/shared/errors"
)

// idempotencyHeader lets a sender retry order submission without creating a duplicate.
const idempotencyHeader = "Idempotency-Key"

// OrderAPI wires HTTP transport with the order lifecycle service.
type OrderAPI struct {
	service   ports.Service
	responder *apierrors.ChainedResponder
	now       func() time.Time
	heartbeat time.Duration
}

// OrderAPIOption customises the handlers.
type OrderAPIOption func(*OrderAPI)

func WithClock(now func() time.Time) OrderAPIOption {
	return func(a *OrderAPI) {
		if now != nil {
			a.now = now
		}
	}
}

// WithHeartbeat sets how often an idle event stream receives a keep-alive comment.
func WithHeartbeat(d time.Duration) OrderAPIOption {
	return func(a *OrderAPI) {
		if d > 0 {
			a.heartbeat = d
		}
	}
}

// NewOrderAPI creates the order handlers backed by service.
func NewOrderAPI(service ports.Service, opts ...OrderAPIOption) *OrderAPI {
	api := &OrderAPI{service: service, responder: NewResponder(), now: time.Now, heartbeat: 25 * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	return api
}

// Register mounts the routes on an authenticated group.
func (api *OrderAPI) Register(r gin.IRouter) {
	orders := r.Group("/orders")
	orders.POST("", api.CreateOrder)
	orders.GET("", api.ListOrders)
	orders.GET("/:orderId", api.GetOrder)
	orders.GET("/:orderId/audit", api.ListAuditTrail)
	orders.GET("/:orderId/proofs", api.ResolveProofLinks)
	orders.POST("/:orderId/proof", api.UploadProof)
	orders.POST("/:orderId/validate", api.ValidatePayment)
	orders.POST("/:orderId/reject", api.RejectPayment)
	orders.POST("/:orderId/start-processing", api.StartProcessing)
	orders.POST("/:orderId/confirm-delivery", api.ConfirmDelivery)
	orders.POST("/:orderId/complete", api.Complete)
	orders.POST("/:orderId/cancel", api.Cancel)

	r.GET("/events", api.Events)

	admin := r.Group("/admin", auth.RequireAdmin())
	admin.GET("/alerts", api.ListAlerts)
	admin.GET("/integrity", api.CheckIntegrity)
}

// Post /v1/orders
func (api *OrderAPI) CreateOrder(c *gin.Context) {
	actor, ok := api.actor(c)
	if !ok {
		return
	}
	var payload mapper.CreateOrder
	if !api.bind(c, &payload) {
		return
	}
	input := mapper.ToCreateInput(actor, payload)
	input.IdempotencyKey = strings.TrimSpace(c.GetHeader(idempotencyHeader))
	order, err := api.service.CreateOrder(c.Request.Context(), input)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapper.FromOrder(order))
}

// Get /v1/orders?status=processing,delivered
func (api *OrderAPI) ListOrders(c *gin.Context) {
	actor, ok := api.actor(c)
	if !ok {
		return
	}
	statuses := mapper.ParseStatuses(c.QueryArray("status"))
	for _, st := range statuses {
		if !st.Valid() {
			api.responder.Respond(c, apierrors.ErrBadRequest.WithDetail("unknown status "+string(st)))
			return
		}
	}
	orders, err := api.service.ListOrders(c.Request.Context(), ports.ListOrdersInput{Actor: actor, Statuses: statuses})
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromOrders(orders))
}

// Get /v1/orders/:orderId
func (api *OrderAPI) GetOrder(c *gin.Context) {
	actor, ok := api.actor(c)
	if !ok {
		return
	}
	order, err := api.service.GetOrder(c.Request.Context(), actor, c.Param("orderId"))
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromOrder(order))
}

// Get /v1/orders/:orderId/audit
func (api *OrderAPI) ListAuditTrail(c *gin.Context) {
	actor, ok := api.actor(c)
	if !ok {
		return
	}
	entries, err := api.service.ListAuditTrail(c.Request.Context(), actor, c.Param("orderId"))
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromAuditTrail(entries))
}

// Get /v1/orders/:orderId/proofs
func (api *OrderAPI) ResolveProofLinks(c *gin.Context) {
	actor, ok := api.actor(c)
	if !ok {
		return
	}
	links, err := api.service.ResolveProofLinks(c.Request.Context(), actor, c.Param("orderId"))
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromProofLinks(links))
}

// Post /v1/orders/:orderId/proof
func (api *OrderAPI) UploadProof(c *gin.Context) {
	var payload mapper.UploadProof
	api.transition(c, &payload, func(in ports.TransitionInput) (*domain.Order, error) {
		return api.service.UploadProof(c.Request.Context(), ports.UploadProofInput{TransitionInput: in, Proof: mapper.ToProof(payload.Proof)})
	}, &payload.Transition)
}

// Post /v1/orders/:orderId/validate
func (api *OrderAPI) ValidatePayment(c *gin.Context) {
	var payload mapper.Transition
	api.transition(c, &payload, func(in ports.TransitionInput) (*domain.Order, error) {
		return api.service.ValidatePayment(c.Request.Context(), in)
	}, &payload)
}

// Post /v1/orders/:orderId/reject
func (api *OrderAPI) RejectPayment(c *gin.Context) {
	var payload mapper.Reasoned
	api.transition(c, &payload, func(in ports.TransitionInput) (*domain.Order, error) {
		return api.service.RejectPayment(c.Request.Context(), ports.RejectPaymentInput{TransitionInput: in, Reason: strings.TrimSpace(payload.Reason)})
	}, &payload.Transition)
}

// Post /v1/orders/:orderId/start-processing
func (api *OrderAPI) StartProcessing(c *gin.Context) {
	var payload mapper.Transition
	api.transition(c, &payload, func(in ports.TransitionInput) (*domain.Order, error) {
		return api.service.StartProcessing(c.Request.Context(), in)
	}, &payload)
}

// Post /v1/orders/:orderId/confirm-delivery
func (api *OrderAPI) ConfirmDelivery(c *gin.Context) {
	var payload mapper.ConfirmDelivery
	api.transition(c, &payload, func(in ports.TransitionInput) (*domain.Order, error) {
		return api.service.ConfirmDelivery(c.Request.Context(), ports.ConfirmDeliveryInput{
			TransitionInput: in,
			Proof:           mapper.ToProof(payload.Proof),
			Confirmation: domain.DeliveryConfirmation{
				RecipientName:     strings.TrimSpace(payload.RecipientName),
				RecipientIDNumber: strings.TrimSpace(payload.RecipientIDNumber),
			},
		})
	}, &payload.Transition)
}

// Post /v1/orders/:orderId/complete
func (api *OrderAPI) Complete(c *gin.Context) {
	var payload mapper.Transition
	api.transition(c, &payload, func(in ports.TransitionInput) (*domain.Order, error) {
		return api.service.Complete(c.Request.Context(), in)
	}, &payload)
}

// Post /v1/orders/:orderId/cancel
func (api *OrderAPI) Cancel(c *gin.Context) {
	var payload mapper.Reasoned
	api.transition(c, &payload, func(in ports.TransitionInput) (*domain.Order, error) {
		return api.service.Cancel(c.Request.Context(), ports.CancelInput{TransitionInput: in, Reason: strings.TrimSpace(payload.Reason)})
	}, &payload.Transition)
}

// transition binds payload, then calls apply with the common transition input read from common.
func (api *OrderAPI) transition(c *gin.Context, payload any, apply func(ports.TransitionInput) (*domain.Order, error), common *mapper.Transition) {
	actor, ok := api.actor(c)
	if !ok {
		return
	}
	if !api.bind(c, payload) {
		return
	}
	order, err := apply(mapper.ToTransitionInput(actor, c.Param("orderId"), *common))
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromOrder(order))
}

// Get /v1/admin/alerts
func (api *OrderAPI) ListAlerts(c *gin.Context) {
	alerts, err := api.service.EvaluateAlerts(c.Request.Context(), api.now().UTC())
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromAlerts(alerts))
}

type integrityMismatch struct {
	OrderID   string `json:"orderId"`
	Persisted string `json:"persistedStatus"`
	Replayed  string `json:"replayedStatus,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type integrityReport struct {
	Healthy    bool                `json:"healthy"`
	Checked    int                 `json:"checked"`
	CheckedAt  time.Time           `json:"checkedAt"`
	Mismatches []integrityMismatch `json:"mismatches,omitempty"`
}

// Get /v1/admin/integrity
// Divergent orders are reported, never corrected.
func (api *OrderAPI) CheckIntegrity(c *gin.Context) {
	report, err := api.service.CheckIntegrity(c.Request.Context())
	var failed *domain.IntegrityCheckFailedError
	if err != nil && !errors.As(err, &failed) {
		api.responder.RespondError(c, err)
		return
	}
	if report == nil {
		report = &ports.IntegrityReport{CheckedAt: api.now().UTC()}
	}
	body := integrityReport{Healthy: failed == nil, Checked: report.Checked, CheckedAt: report.CheckedAt}
	if failed != nil {
		for _, m := range failed.Mismatches {
			body.Mismatches = append(body.Mismatches, integrityMismatch{
				OrderID:   m.OrderID,
				Persisted: string(m.Persisted),
				Replayed:  string(m.Replayed),
				Detail:    m.Detail,
			})
		}
	}
	c.JSON(http.StatusOK, body)
}

func (api *OrderAPI) actor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		api.responder.Respond(c, apierrors.ErrUnauthorized.WithDetail("authentication required"))
		return domain.Actor{}, false
	}
	return actor, true
}

func (api *OrderAPI) bind(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		api.responder.Respond(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
		return false
	}
	return true
}
