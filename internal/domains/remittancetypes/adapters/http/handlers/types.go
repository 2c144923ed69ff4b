package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/remesas/remittance-api/internal/domains/remittances/adapters/http/auth"
	orderhandlers "github.com/remesas/remittance-api/internal/domains/remittances/adapters/http/handlers"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/adapters/http/mapper"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/application"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/ports"
	apierrors "github.com/remesas/remittance-api/internal/shared/errors"
)

// TypeAPI exposes the remittance type catalog. Reads are open to any authenticated actor;
// changes require an administrator.
type TypeAPI struct {
	service   ports.Service
	responder *apierrors.ChainedResponder
}

func NewTypeAPI(service ports.Service) *TypeAPI {
	return &TypeAPI{
		service:   service,
		responder: apierrors.NewChainedResponder("", MapTypeError, orderhandlers.MapOrderError),
	}
}

func (api *TypeAPI) Register(r gin.IRouter) {
	types := r.Group("/remittance-types")
	types.GET("", api.ListTypes)
	types.GET("/:typeId", api.GetType)
	types.GET("/:typeId/quote", api.Quote)
	types.POST("", auth.RequireAdmin(), api.CreateType)
	types.PUT("/:typeId", auth.RequireAdmin(), api.ReviseType)
	types.DELETE("/:typeId", auth.RequireAdmin(), api.DeactivateType)
}

// MapTypeError maps catalog errors to problem details.
func MapTypeError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ports.ErrDuplicate):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrNotLatest):
		return apierrors.ErrConflict.WithDetail("this remittance type was just revised by someone else, please refresh"), true
	case errors.Is(err, domain.ErrAlreadyInactive):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

// Get /v1/remittance-types?active=true
func (api *TypeAPI) ListTypes(c *gin.Context) {
	activeOnly := true
	if raw := c.Query("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			api.responder.BadRequest(c, "active must be a boolean")
			return
		}
		activeOnly = parsed
	}
	types, err := api.service.ListTypes(c.Request.Context(), activeOnly)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromTypes(types))
}

// Get /v1/remittance-types/:typeId
func (api *TypeAPI) GetType(c *gin.Context) {
	rt, err := api.service.GetType(c.Request.Context(), c.Param("typeId"))
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromType(rt))
}

// Get /v1/remittance-types/:typeId/quote?amount=100
func (api *TypeAPI) Quote(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		api.responder.BadRequest(c, "amount must be a decimal number")
		return
	}
	quote, err := api.service.Quote(c.Request.Context(), c.Param("typeId"), amount)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromQuote(quote))
}

// Post /v1/remittance-types
func (api *TypeAPI) CreateType(c *gin.Context) {
	var payload mapper.CreateType
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	actor, _ := auth.ActorFrom(c)
	rt, err := api.service.CreateType(c.Request.Context(), ports.CreateTypeInput{
		Code:    payload.Code,
		Terms:   mapper.ToTerms(payload.Terms),
		ActorID: actor.ID,
	})
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapper.FromType(rt))
}

// Put /v1/remittance-types/:typeId
// Publishes a new version; the addressed version stops accepting orders.
func (api *TypeAPI) ReviseType(c *gin.Context) {
	var payload mapper.Terms
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	actor, _ := auth.ActorFrom(c)
	rt, err := api.service.ReviseType(c.Request.Context(), ports.ReviseTypeInput{
		ID:      c.Param("typeId"),
		Terms:   mapper.ToTerms(payload),
		ActorID: actor.ID,
	})
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapper.FromType(rt))
}

// Delete /v1/remittance-types/:typeId
func (api *TypeAPI) DeactivateType(c *gin.Context) {
	if err := api.service.DeactivateType(c.Request.Context(), c.Param("typeId")); err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
