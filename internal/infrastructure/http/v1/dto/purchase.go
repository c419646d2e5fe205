package dto

import (
	"time"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/purchase"
)

// --- Request DTOs ---

// OrderLineRequest is one ordered position. ItemID is empty for free-text
// positions that are not stock-tracked.
type OrderLineRequest struct {
	ItemID      string `json:"itemId,omitempty"`
	Description string `json:"description,omitempty"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0"`
	UnitLabel   string `json:"unitLabel,omitempty"`
	UnitCost    string `json:"unitCost" binding:"required"`
}

func (r *OrderLineRequest) parse() (*id.ID, types.Money, error) {
	var itemID *id.ID
	if r.ItemID != "" {
		parsed, err := id.Parse(r.ItemID)
		if err != nil {
			return nil, types.ZeroMoney(), apperror.NewValidation("invalid item id").
				WithDetail("itemId", r.ItemID)
		}
		itemID = &parsed
	}
	cost, err := types.NewMoneyFromString(r.UnitCost)
	if err != nil {
		return nil, types.ZeroMoney(), apperror.NewValidation("invalid unit cost").
			WithDetail("unitCost", r.UnitCost)
	}
	return itemID, cost, nil
}

// CreateOrderRequest creates a DRAFT purchase order.
type CreateOrderRequest struct {
	SupplierRef string             `json:"supplierRef" binding:"required"`
	Lines       []OrderLineRequest `json:"lines" binding:"omitempty,dive"`
}

// ToEntity converts the request to a domain order.
func (r *CreateOrderRequest) ToEntity(createdBy string) (*purchase.Order, error) {
	order := purchase.NewOrder(r.SupplierRef, createdBy)
	for _, line := range r.Lines {
		itemID, cost, err := line.parse()
		if err != nil {
			return nil, err
		}
		order.AddLine(itemID, line.Description, line.Quantity, line.UnitLabel, cost)
	}
	return order, nil
}

// UpdateLinesRequest rewrites the lines of a DRAFT order.
type UpdateLinesRequest struct {
	Lines []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToLines converts the request to domain lines.
func (r *UpdateLinesRequest) ToLines() ([]purchase.Line, error) {
	lines := make([]purchase.Line, 0, len(r.Lines))
	for i, line := range r.Lines {
		itemID, cost, err := line.parse()
		if err != nil {
			return nil, err
		}
		lines = append(lines, purchase.Line{
			LineNo:      i + 1,
			ItemID:      itemID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitLabel:   line.UnitLabel,
			UnitCost:    cost,
			LineTotal:   cost.Mul(types.MoneyFromInt(line.Quantity)),
		})
	}
	return lines, nil
}

// ListOrdersRequest filters order listings.
type ListOrdersRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=DRAFT PENDING APPROVED RECEIVED CANCELLED"`
}

// ToFilter converts the request to a domain filter.
func (r *ListOrdersRequest) ToFilter() purchase.Filter {
	filter := purchase.Filter{Limit: r.PageSize, Offset: r.Offset()}
	if r.Status != "" {
		status := purchase.Status(r.Status)
		filter.Status = &status
	}
	return filter
}

// --- Response DTOs ---

// OrderLineResponse is one ordered position in responses.
type OrderLineResponse struct {
	LineNo      int         `json:"lineNo"`
	ItemID      *string     `json:"itemId,omitempty"`
	Description string      `json:"description,omitempty"`
	Quantity    int64       `json:"quantity"`
	UnitLabel   string      `json:"unitLabel,omitempty"`
	UnitCost    types.Money `json:"unitCost"`
	LineTotal   types.Money `json:"lineTotal"`
}

// OrderResponse represents a purchase order.
type OrderResponse struct {
	ID          string              `json:"id"`
	Number      string              `json:"number"`
	SupplierRef string              `json:"supplierRef"`
	Status      string              `json:"status"`
	TotalAmount types.Money         `json:"totalAmount"`
	CreatedBy   string              `json:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt"`
	ApprovedBy  string              `json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time          `json:"approvedAt,omitempty"`
	ReceivedBy  string              `json:"receivedBy,omitempty"`
	ReceivedAt  *time.Time          `json:"receivedAt,omitempty"`
	Lines       []OrderLineResponse `json:"lines"`
}

// FromOrder creates a response from a domain order.
func FromOrder(order *purchase.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(order.Lines))
	for _, l := range order.Lines {
		line := OrderLineResponse{
			LineNo:      l.LineNo,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitLabel:   l.UnitLabel,
			UnitCost:    l.UnitCost,
			LineTotal:   l.LineTotal,
		}
		if l.ItemID != nil {
			s := l.ItemID.String()
			line.ItemID = &s
		}
		lines = append(lines, line)
	}
	return OrderResponse{
		ID:          order.ID.String(),
		Number:      order.Number,
		SupplierRef: order.SupplierRef,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		CreatedBy:   order.CreatedBy,
		CreatedAt:   order.CreatedAt,
		ApprovedBy:  order.ApprovedBy,
		ApprovedAt:  order.ApprovedAt,
		ReceivedBy:  order.ReceivedBy,
		ReceivedAt:  order.ReceivedAt,
		Lines:       lines,
	}
}

// FromOrders converts a slice of domain orders.
func FromOrders(orders []purchase.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, FromOrder(&orders[i]))
	}
	return out
}
