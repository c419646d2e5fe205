package purchase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmstock/internal/core/apperror"
	appctx "pharmstock/internal/core/context"
	"pharmstock/internal/core/id"
	"pharmstock/internal/core/tx"
	"pharmstock/internal/domain/ledger"
	"pharmstock/pkg/logger"
)

// Service drives the purchase order lifecycle. Receiving an APPROVED order
// is the only path from the order to the stock ledger.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	txManager tx.Manager
}

// NewService creates a purchase order service.
func NewService(repo Repository, ledgerSvc *ledger.Service, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
		txManager: txManager,
	}
}

// Create persists a new DRAFT order.
func (s *Service) Create(ctx context.Context, order *Order) error {
	if err := order.Validate(ctx); err != nil {
		return err
	}
	if order.Status == "" {
		order.Status = StatusDraft
	}
	if order.Status != StatusDraft {
		return apperror.NewValidation("new orders start in DRAFT")
	}
	if order.CreatedBy == "" {
		order.CreatedBy = appctx.ActorName(ctx)
	}
	if order.Number == "" {
		order.Number = generateNumber(order.ID, order.CreatedAt)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, order)
	})
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	logger.Info(ctx, "purchase order created", "order_id", order.ID, "supplier", order.SupplierRef)
	return nil
}

// generateNumber builds a human-readable order number from the creation
// date and the id suffix. Uniqueness rides on the id.
func generateNumber(orderID id.ID, createdAt time.Time) string {
	s := orderID.String()
	return fmt.Sprintf("PO-%s-%s", createdAt.UTC().Format("20060102"), strings.ToUpper(s[len(s)-8:]))
}

// GetByID retrieves an order with its lines.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Order, error) {
	return s.repo.List(ctx, filter)
}

// UpdateLines rewrites the order's lines. Permitted only in DRAFT.
func (s *Service) UpdateLines(ctx context.Context, orderID id.ID, lines []Line) error {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != StatusDraft {
		return apperror.NewInvalidTransition(string(order.Status), "edit lines")
	}

	order.Lines = lines
	for i := range order.Lines {
		order.Lines[i].OrderID = orderID
		order.Lines[i].LineNo = i + 1
	}
	if err := order.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.ReplaceLines(ctx, orderID, order.Lines)
	})
}

// Submit moves DRAFT -> PENDING.
func (s *Service) Submit(ctx context.Context, orderID id.ID) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.CanSubmit(); err != nil {
		return nil, err
	}

	prev := order.Status
	order.Status = StatusPending
	if err := s.transition(ctx, order, prev, "submitted"); err != nil {
		return nil, err
	}
	return order, nil
}

// Approve moves PENDING -> APPROVED.
func (s *Service) Approve(ctx context.Context, orderID id.ID) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(StatusApproved) {
		return nil, apperror.NewInvalidTransition(string(order.Status), "approve")
	}

	now := time.Now().UTC()
	prev := order.Status
	order.Status = StatusApproved
	order.ApprovedBy = appctx.ActorName(ctx)
	order.ApprovedAt = &now
	if err := s.transition(ctx, order, prev, "approved"); err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel moves any non-terminal state to CANCELLED. A received order is
// historical fact and cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, orderID id.ID) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(StatusCancelled) {
		return nil, apperror.NewInvalidTransition(string(order.Status), "cancel")
	}

	prev := order.Status
	order.Status = StatusCancelled
	if err := s.transition(ctx, order, prev, "cancelled"); err != nil {
		return nil, err
	}
	return order, nil
}

// Receive moves APPROVED -> RECEIVED and applies one PURCHASE movement per
// resolved line, keyed orderID-lineNo so a retried receive cannot add stock
// twice. All applies plus the status change run in one transaction with all
// item locks held in sorted order: if any line fails, no stock addition is
// visible.
func (s *Service) Receive(ctx context.Context, orderID id.ID) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(StatusReceived) {
		return nil, apperror.NewInvalidTransition(string(order.Status), "receive")
	}

	itemIDs := make([]id.ID, 0, len(order.Lines))
	for _, line := range order.Lines {
		if line.ItemID != nil {
			itemIDs = append(itemIDs, *line.ItemID)
		}
	}

	unlock := s.ledger.Guard().LockMany(itemIDs)
	defer unlock()

	now := time.Now().UTC()
	prev := order.Status
	order.Status = StatusReceived
	order.ReceivedBy = appctx.ActorName(ctx)
	order.ReceivedAt = &now

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Status flips first inside the transaction; the expected-status
		// guard makes concurrent receives lose cleanly.
		if err := s.repo.UpdateStatus(ctx, order, prev); err != nil {
			return err
		}

		for _, line := range order.Lines {
			if line.ItemID == nil {
				continue
			}
			_, err := s.ledger.ApplyLocked(ctx, ledger.ApplyInput{
				ItemID:         *line.ItemID,
				Kind:           ledger.KindPurchase,
				Quantity:       line.Quantity,
				UnitLabel:      line.UnitLabel,
				IdempotencyKey: fmt.Sprintf("%s-%d", order.ID, line.LineNo),
				Actor:          order.ReceivedBy,
			})
			if err != nil {
				return fmt.Errorf("receive line %d: %w", line.LineNo, err)
			}
		}
		return nil
	})
	if err != nil {
		order.Status = prev
		order.ReceivedBy = ""
		order.ReceivedAt = nil
		return nil, err
	}

	logger.Info(ctx, "purchase order received",
		"order_id", order.ID,
		"lines", len(order.Lines),
	)
	return order, nil
}

// transition persists a status change with its audit fields.
func (s *Service) transition(ctx context.Context, order *Order, expected Status, verb string) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.UpdateStatus(ctx, order, expected)
	})
	if err != nil {
		order.Status = expected
		return err
	}

	logger.Info(ctx, "purchase order "+verb, "order_id", order.ID, "status", order.Status)
	return nil
}
