package dto

import (
	"time"

	"pharmstock/internal/core/id"
	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/ledger"
	"pharmstock/internal/domain/units"
)

// --- Request DTOs ---

// ApplyMovementRequest records one stock movement.
type ApplyMovementRequest struct {
	Kind           string `json:"kind" binding:"required,oneof=PURCHASE SALE LOSS ADJUSTMENT"`
	Quantity       int64  `json:"quantity" binding:"required"`
	UnitLabel      string `json:"unitLabel,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// ToApplyInput converts the request to a ledger apply input.
func (r *ApplyMovementRequest) ToApplyInput(itemID id.ID) ledger.ApplyInput {
	return ledger.ApplyInput{
		ItemID:         itemID,
		Kind:           ledger.Kind(r.Kind),
		Quantity:       r.Quantity,
		UnitLabel:      r.UnitLabel,
		IdempotencyKey: r.IdempotencyKey,
	}
}

// HistoryRequest filters movement history.
type HistoryRequest struct {
	PaginationRequest
	Kind string     `form:"kind" binding:"omitempty,oneof=PURCHASE SALE LOSS ADJUSTMENT"`
	From *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To   *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ToFilter converts the request to a domain history filter.
func (r *HistoryRequest) ToFilter() ledger.HistoryFilter {
	filter := ledger.HistoryFilter{From: r.From, To: r.To}
	if r.Kind != "" {
		kind := ledger.Kind(r.Kind)
		filter.Kind = &kind
	}
	return filter
}

// --- Response DTOs ---

// MovementResponse represents one ledger entry.
type MovementResponse struct {
	ID                 string      `json:"id"`
	ItemID             string      `json:"itemId"`
	Kind               string      `json:"kind"`
	DeltaBaseUnits     int64       `json:"deltaBaseUnits"`
	PreviousQuantity   int64       `json:"previousQuantity"`
	NewQuantity        int64       `json:"newQuantity"`
	CostOfGoods        types.Money `json:"costOfGoods"`
	UnitLabel          string      `json:"unitLabel,omitempty"`
	UnitConfidence     string      `json:"unitConfidence,omitempty"`
	IdempotencyKey     *string     `json:"idempotencyKey,omitempty"`
	CorrectsMovementID *string     `json:"correctsMovementId,omitempty"`
	Actor              string      `json:"actor"`
	CreatedAt          time.Time   `json:"createdAt"`
}

// FromMovement creates a response from a domain movement.
func FromMovement(m *ledger.Movement) MovementResponse {
	resp := MovementResponse{
		ID:               m.ID.String(),
		ItemID:           m.ItemID.String(),
		Kind:             string(m.Kind),
		DeltaBaseUnits:   m.DeltaBaseUnits,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		CostOfGoods:      m.CostOfGoods,
		UnitLabel:        m.UnitLabel,
		UnitConfidence:   string(m.Confidence),
		IdempotencyKey:   m.IdempotencyKey,
		Actor:            m.Actor,
		CreatedAt:        m.CreatedAt,
	}
	if m.CorrectsMovementID != nil {
		s := m.CorrectsMovementID.String()
		resp.CorrectsMovementID = &s
	}
	return resp
}

// FromMovements converts a slice of domain movements.
func FromMovements(movements []ledger.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(movements))
	for i := range movements {
		out = append(out, FromMovement(&movements[i]))
	}
	return out
}

// StockResponse reports the current stock level of an item.
type StockResponse struct {
	ItemID    string `json:"itemId"`
	BaseUnits int64  `json:"baseUnits"`
}

// BreakdownResponse reports stock decomposed for display.
type BreakdownResponse struct {
	ItemID    string `json:"itemId"`
	BaseUnits int64  `json:"baseUnits"`
	Boxes     int64  `json:"boxes"`
	Strips    int64  `json:"strips"`
	Loose     int64  `json:"loose"`
}

// NewBreakdownResponse builds the display breakdown.
func NewBreakdownResponse(itemID id.ID, baseUnits int64, b units.Breakdown) BreakdownResponse {
	return BreakdownResponse{
		ItemID:    itemID.String(),
		BaseUnits: baseUnits,
		Boxes:     b.Boxes,
		Strips:    b.Strips,
		Loose:     b.Loose,
	}
}

// RebuildResponse reports the recomputed stock after a ledger replay.
type RebuildResponse struct {
	ItemID    string `json:"itemId"`
	BaseUnits int64  `json:"baseUnits"`
}
