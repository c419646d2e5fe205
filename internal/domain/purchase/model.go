// Package purchase provides the purchase order document and its lifecycle.
// The state machine gates when order lines are allowed to feed the stock
// ledger: only the APPROVED -> RECEIVED transition applies stock, exactly
// once per line.
package purchase

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/core/types"
)

// Status is the purchase order lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusReceived  Status = "RECEIVED"
	StatusCancelled Status = "CANCELLED"
)

// IsValid checks if the status is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusReceived, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks one-directional lifecycle transitions. CANCELLED is
// reachable from any non-terminal state; RECEIVED is terminal because a
// received order is historical fact.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusPending || target == StatusCancelled
	case StatusPending:
		return target == StatusApproved || target == StatusCancelled
	case StatusApproved:
		return target == StatusReceived || target == StatusCancelled
	case StatusReceived, StatusCancelled:
		return false
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// Order is a purchase order document.
type Order struct {
	ID     id.ID  `db:"id" json:"id"`
	Number string `db:"number" json:"number"`

	SupplierRef string `db:"supplier_ref" json:"supplierRef"`

	Status Status `db:"status" json:"status"`

	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	CreatedBy  string     `db:"created_by" json:"createdBy"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	ApprovedBy string     `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	ReceivedBy string     `db:"received_by" json:"receivedBy,omitempty"`
	ReceivedAt *time.Time `db:"received_at" json:"receivedAt,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one ordered position. ItemID is nil for free-text positions
// (consumables that are not stock-tracked); only resolved lines feed the
// ledger on receive.
type Line struct {
	OrderID id.ID `db:"order_id" json:"-"`
	LineNo  int   `db:"line_no" json:"lineNo"`

	ItemID      *id.ID `db:"item_id" json:"itemId,omitempty"`
	Description string `db:"description" json:"description,omitempty"`

	// Quantity is a count of UnitLabel packages.
	Quantity  int64  `db:"quantity" json:"quantity"`
	UnitLabel string `db:"unit_label" json:"unitLabel"`

	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`
	LineTotal types.Money `db:"line_total" json:"lineTotal"`
}

// NewOrder creates a purchase order in DRAFT.
func NewOrder(supplierRef, createdBy string) *Order {
	return &Order{
		ID:          id.New(),
		SupplierRef: supplierRef,
		Status:      StatusDraft,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
		Lines:       make([]Line, 0),
	}
}

// AddLine appends a line and recalculates totals.
func (o *Order) AddLine(itemID *id.ID, description string, quantity int64, unitLabel string, unitCost types.Money) {
	line := Line{
		OrderID:     o.ID,
		LineNo:      len(o.Lines) + 1,
		ItemID:      itemID,
		Description: description,
		Quantity:    quantity,
		UnitLabel:   unitLabel,
		UnitCost:    unitCost,
		LineTotal:   unitCost.Mul(decimal.NewFromInt(quantity)),
	}
	o.Lines = append(o.Lines, line)
	o.recalculate()
}

func (o *Order) recalculate() {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.LineTotal)
	}
	o.TotalAmount = total
}

// Validate checks document invariants.
func (o *Order) Validate(_ context.Context) error {
	for _, l := range o.Lines {
		if l.ItemID == nil && strings.TrimSpace(l.Description) == "" {
			return apperror.NewValidation("line must reference an item or carry a description")
		}
		if l.Quantity <= 0 {
			return apperror.NewValidation("line quantity must be positive")
		}
		if l.UnitCost.IsNegative() {
			return apperror.NewValidation("line unit cost cannot be negative")
		}
	}
	return nil
}

// CanSubmit checks the DRAFT -> PENDING preconditions: at least one line
// and a supplier reference.
func (o *Order) CanSubmit() error {
	if !o.Status.CanTransitionTo(StatusPending) {
		return apperror.NewInvalidTransition(string(o.Status), "submit")
	}
	if len(o.Lines) == 0 {
		return apperror.NewValidation("order needs at least one line to submit")
	}
	if strings.TrimSpace(o.SupplierRef) == "" {
		return apperror.NewValidation("order needs a supplier reference to submit")
	}
	return nil
}
