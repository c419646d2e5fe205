package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmstock/internal/domain/sales"
	"pharmstock/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles point-of-sale endpoints.
type SaleHandler struct {
	*BaseHandler
	service *sales.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sales.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Apply handles POST /sales
// Retrying the same sale id is safe: the second attempt is rejected as a
// duplicate and stock is deducted exactly once.
func (h *SaleHandler) Apply(c *gin.Context) {
	var req dto.ApplySaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.Apply(c.Request.Context(), sale)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSaleResult(result))
}
