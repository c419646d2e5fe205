package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	appctx "pharmstock/internal/core/context"
	"pharmstock/internal/core/id"
	"pharmstock/internal/domain/purchase"
	"pharmstock/internal/infrastructure/http/v1/dto"
)

// PurchaseOrderHandler handles purchase order endpoints.
type PurchaseOrderHandler struct {
	*BaseHandler
	service *purchase.Service
}

// NewPurchaseOrderHandler creates a new purchase order handler.
func NewPurchaseOrderHandler(base *BaseHandler, service *purchase.Service) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{BaseHandler: base, service: service}
}

// Create handles POST /purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	order, err := req.ToEntity(appctx.ActorName(ctx))
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(ctx, order); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, order.ID)
}

// Get handles GET /purchase-orders/:id
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(order))
}

// List handles GET /purchase-orders
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var req dto.ListOrdersRequest
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	orders, err := h.service.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:  dto.FromOrders(orders),
		Limit:  req.PageSize,
		Offset: req.Offset(),
	})
}

// UpdateLines handles PUT /purchase-orders/:id/lines
func (h *PurchaseOrderHandler) UpdateLines(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateLinesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.UpdateLines(c.Request.Context(), orderID, lines); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Submit handles POST /purchase-orders/:id/submit
func (h *PurchaseOrderHandler) Submit(c *gin.Context) {
	h.transition(c, h.service.Submit)
}

// Approve handles POST /purchase-orders/:id/approve
func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

// Cancel handles POST /purchase-orders/:id/cancel
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

// Receive handles POST /purchase-orders/:id/receive
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	h.transition(c, h.service.Receive)
}

func (h *PurchaseOrderHandler) transition(c *gin.Context, fn func(ctx context.Context, orderID id.ID) (*purchase.Order, error)) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := fn(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(order))
}
