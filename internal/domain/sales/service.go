package sales

import (
	"context"
	"fmt"

	"pharmstock/internal/core/id"
	"pharmstock/internal/core/tx"
	"pharmstock/internal/domain/ledger"
	"pharmstock/pkg/logger"
)

// Result reports the movements a sale produced.
type Result struct {
	SaleID    id.ID             `json:"saleId"`
	Movements []ledger.Movement `json:"movements"`
}

// Service applies sales to the stock ledger, all-or-nothing per sale.
type Service struct {
	ledger    *ledger.Service
	txManager tx.Manager
}

// NewService creates a sales service.
func NewService(ledgerSvc *ledger.Service, txManager tx.Manager) *Service {
	return &Service{
		ledger:    ledgerSvc,
		txManager: txManager,
	}
}

// Apply deducts stock for every sale line. All item locks are acquired up
// front in sorted order and every line runs in one transaction: if any line
// has insufficient stock the whole sale is rejected and no prior line
// leaves a partial mutation. Cost of goods is stamped per movement at the
// moment of sale.
func (s *Service) Apply(ctx context.Context, sale *Sale) (*Result, error) {
	if err := sale.Validate(ctx); err != nil {
		return nil, err
	}

	itemIDs := make([]id.ID, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		itemIDs = append(itemIDs, line.ItemID)
	}

	unlock := s.ledger.Guard().LockMany(itemIDs)
	defer unlock()

	result := &Result{SaleID: sale.ID}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, line := range sale.Lines {
			movement, err := s.ledger.ApplyLocked(ctx, ledger.ApplyInput{
				ItemID:         line.ItemID,
				Kind:           ledger.KindSale,
				Quantity:       line.Quantity,
				UnitLabel:      line.UnitLabel,
				IdempotencyKey: sale.ID.String(),
			})
			if err != nil {
				return fmt.Errorf("sale line for item %s: %w", line.ItemID, err)
			}
			result.Movements = append(result.Movements, *movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale applied",
		"sale_id", sale.ID,
		"lines", len(sale.Lines),
	)
	return result, nil
}
