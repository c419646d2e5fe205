package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmstock/internal/domain/catalog"
	"pharmstock/internal/domain/pricing"
	"pharmstock/internal/infrastructure/http/v1/dto"
)

// ItemHandler handles catalog item endpoints.
type ItemHandler struct {
	*BaseHandler
	service *catalog.Service
	calc    *pricing.Calculator
}

// NewItemHandler creates a new item handler.
func NewItemHandler(base *BaseHandler, service *catalog.Service, calc *pricing.Calculator) *ItemHandler {
	return &ItemHandler{BaseHandler: base, service: service, calc: calc}
}

// Create handles POST /items
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), item); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, item.ID)
}

// Get handles GET /items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	item, err := h.service.GetByID(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromItem(item))
}

// List handles GET /items
func (h *ItemHandler) List(c *gin.Context) {
	var req dto.ListItemsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	items, err := h.service.List(c.Request.Context(), catalog.Filter{
		Search:   req.Search,
		LowStock: req.LowStock,
		Limit:    req.PageSize,
		Offset:   req.Offset(),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:  dto.FromItems(items),
		Limit:  req.PageSize,
		Offset: req.Offset(),
	})
}

// Update handles PUT /items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	create := dto.CreateItemRequest(req)
	item, err := create.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	item.ID = itemID
	for i := range item.PackagingUnits {
		item.PackagingUnits[i].ItemID = itemID
	}

	if err := h.service.Update(c.Request.Context(), item); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// LowStock handles GET /items/low-stock
func (h *ItemHandler) LowStock(c *gin.Context) {
	items, err := h.service.LowStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItems(items))
}

// Pricing handles GET /items/:id/pricing
func (h *ItemHandler) Pricing(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	item, err := h.service.GetByID(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	cost := h.calc.CostPerBaseUnit(item)
	price := h.calc.SellingPricePerBaseUnit(item)
	h.OK(c, dto.NewPricingResponse(item, cost, price))
}
