package expenses

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	if id <= 0 {
		return Expense{}, shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, page shared.ListFilters) ([]Expense, error) {
	return s.repo.List(ctx, filter, page.Normalize())
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Expense, error) {
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	if err := shared.ValidateStruct(input); err != nil {
		return Expense{}, err
	}
	if !input.Amount.IsPositive() {
		return Expense{}, shared.Invalid("amount", "must be greater than 0")
	}
	date, err := shared.ParseDate("date", input.Date)
	if err != nil {
		return Expense{}, err
	}
	var created Expense
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = tx.Create(ctx, Expense{
			Description:  input.Description,
			Category:     input.Category,
			Amount:       input.Amount,
			CostCenterID: input.CostCenterID,
			BudgetID:     input.BudgetID,
			FiscalYearID: input.FiscalYearID,
			Date:         date,
			Status:       StatusPending,
			CreatedBy:    shared.ActorFromContext(ctx),
		})
		return err
	})
	return created, err
}

// Approve marks a pending expense approved and rolls its amount into the budget,
// the matching budget category and the cost center in the same transaction.
func (s *Service) Approve(ctx context.Context, id int64) (Expense, error) {
	actor := shared.ActorFromContext(ctx)
	var approved Expense
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		e, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if e.Status != StatusPending {
			return shared.Conflict("expense %d is %s", id, e.Status)
		}
		if err := tx.ApplyBudgetSpend(ctx, e.BudgetID, e.Category, e.Amount); err != nil {
			return err
		}
		if err := tx.AddCostCenterSpent(ctx, e.CostCenterID, e.Amount); err != nil {
			return err
		}
		now := s.now().UTC()
		e.Status = StatusApproved
		e.ApprovedBy = &actor
		e.ApprovedAt = &now
		if err := tx.Update(ctx, e); err != nil {
			return err
		}
		approved = e
		return nil
	})
	if err != nil {
		return Expense{}, err
	}
	s.logger.Info("expense approved",
		slog.Int64("expense_id", id),
		slog.Int64("budget_id", approved.BudgetID),
		slog.String("amount", approved.Amount.StringFixed(2)))
	return approved, nil
}

func (s *Service) Reject(ctx context.Context, id int64, input RejectInput) (Expense, error) {
	input.Reason = strings.TrimSpace(input.Reason)
	if err := shared.ValidateStruct(input); err != nil {
		return Expense{}, err
	}
	actor := shared.ActorFromContext(ctx)
	var rejected Expense
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		e, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if e.Status != StatusPending {
			return shared.Conflict("expense %d is %s", id, e.Status)
		}
		now := s.now().UTC()
		e.Status = StatusRejected
		e.RejectedBy = &actor
		e.RejectedAt = &now
		e.RejectionReason = input.Reason
		if err := tx.Update(ctx, e); err != nil {
			return err
		}
		rejected = e
		return nil
	})
	return rejected, err
}
