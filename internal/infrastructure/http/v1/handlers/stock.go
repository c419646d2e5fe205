package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmstock/internal/domain/ledger"
	"pharmstock/internal/infrastructure/http/v1/dto"
)

// StockHandler handles stock ledger endpoints.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// Apply handles POST /items/:id/movements
func (h *StockHandler) Apply(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ApplyMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	movement, err := h.service.Apply(c.Request.Context(), req.ToApplyInput(itemID))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(movement))
}

// History handles GET /items/:id/movements
func (h *StockHandler) History(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.HistoryRequest
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	movements, err := h.service.History(c.Request.Context(), itemID, req.ToFilter(), ledger.Page{
		Limit:  req.PageSize,
		Offset: req.Offset(),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:  dto.FromMovements(movements),
		Limit:  req.PageSize,
		Offset: req.Offset(),
	})
}

// Current handles GET /items/:id/stock
func (h *StockHandler) Current(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	baseUnits, err := h.service.CurrentStock(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.StockResponse{ItemID: itemID.String(), BaseUnits: baseUnits})
}

// Breakdown handles GET /items/:id/stock/breakdown
func (h *StockHandler) Breakdown(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	baseUnits, err := h.service.CurrentStock(ctx, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	breakdown, err := h.service.Breakdown(ctx, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewBreakdownResponse(itemID, baseUnits, breakdown))
}

// Rebuild handles POST /items/:id/stock/rebuild (admin only).
// Replays the ledger and rewrites the cached quantity.
func (h *StockHandler) Rebuild(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	baseUnits, err := h.service.Rebuild(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.RebuildResponse{ItemID: itemID.String(), BaseUnits: baseUnits})
}

// Void handles POST /movements/:id/void (admin only).
// Appends a compensating adjustment; the original entry is never deleted.
func (h *StockHandler) Void(c *gin.Context) {
	movementID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	compensation, err := h.service.Void(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(compensation))
}

// GetMovement handles GET /movements/:id
func (h *StockHandler) GetMovement(c *gin.Context) {
	movementID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	movement, err := h.service.GetByID(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(movement))
}
