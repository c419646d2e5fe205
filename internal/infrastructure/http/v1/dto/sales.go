package dto

import (
	"time"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/sales"
)

// --- Request DTOs ---

// SaleLineRequest is one sold position.
type SaleLineRequest struct {
	ItemID       string `json:"itemId" binding:"required"`
	UnitLabel    string `json:"unitLabel,omitempty"`
	Quantity     int64  `json:"quantity" binding:"required,gt=0"`
	SellingPrice string `json:"sellingPrice,omitempty"`
}

// ApplySaleRequest applies a point-of-sale transaction. The sale id is the
// idempotency key: retrying the same id never deducts stock twice.
type ApplySaleRequest struct {
	SaleID string            `json:"saleId" binding:"required,uuid"`
	At     *time.Time        `json:"at,omitempty"`
	Lines  []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity converts the request to a domain sale.
func (r *ApplySaleRequest) ToEntity() (*sales.Sale, error) {
	saleID, err := id.Parse(r.SaleID)
	if err != nil {
		return nil, apperror.NewValidation("invalid sale id").WithDetail("saleId", r.SaleID)
	}

	lines := make([]sales.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		itemID, err := id.Parse(l.ItemID)
		if err != nil {
			return nil, apperror.NewValidation("invalid item id").WithDetail("itemId", l.ItemID)
		}
		price := types.ZeroMoney()
		if l.SellingPrice != "" {
			price, err = types.NewMoneyFromString(l.SellingPrice)
			if err != nil {
				return nil, apperror.NewValidation("invalid selling price").
					WithDetail("sellingPrice", l.SellingPrice)
			}
		}
		lines = append(lines, sales.Line{
			ItemID:       itemID,
			UnitLabel:    l.UnitLabel,
			Quantity:     l.Quantity,
			SellingPrice: price,
		})
	}

	return &sales.Sale{ID: saleID, Lines: lines, At: r.At}, nil
}

// --- Response DTOs ---

// SaleResponse reports the movements a sale produced.
type SaleResponse struct {
	SaleID    string             `json:"saleId"`
	Movements []MovementResponse `json:"movements"`
}

// FromSaleResult creates a response from the domain result.
func FromSaleResult(res *sales.Result) SaleResponse {
	return SaleResponse{
		SaleID:    res.SaleID.String(),
		Movements: FromMovements(res.Movements),
	}
}
