package budgets

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (Budget, error) {
	if id <= 0 {
		return Budget{}, shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, page shared.ListFilters) ([]Budget, error) {
	return s.repo.List(ctx, filter, page.Normalize())
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Budget, error) {
	if err := shared.ValidateStruct(input); err != nil {
		return Budget{}, err
	}
	cats, err := mergeCategories(nil, input.Categories)
	if err != nil {
		return Budget{}, err
	}
	if err := checkAmounts(input.TotalBudget, cats); err != nil {
		return Budget{}, err
	}
	b := Budget{
		Name:         strings.TrimSpace(input.Name),
		CostCenterID: input.CostCenterID,
		FiscalYearID: input.FiscalYearID,
		TotalBudget:  input.TotalBudget,
		Spent:        decimal.Zero,
		Status:       StatusPlanning,
		Categories:   cats,
	}
	recompute(&b)
	var created Budget
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		var err error
		created, err = tx.Create(ctx, b)
		return err
	})
	return created, err
}

// Update is the single mutation path for stored budgets; derived fields are
// recomputed before every write.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Budget, error) {
	if id <= 0 {
		return Budget{}, shared.Invalid("id", "must be a positive integer")
	}
	if err := shared.ValidateStruct(input); err != nil {
		return Budget{}, err
	}
	var updated Budget
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		b, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			b.Name = strings.TrimSpace(*input.Name)
		}
		if input.TotalBudget != nil {
			b.TotalBudget = *input.TotalBudget
		}
		if input.Categories != nil {
			if b.Categories, err = mergeCategories(b.Categories, *input.Categories); err != nil {
				return err
			}
		}
		if err := checkAmounts(b.TotalBudget, b.Categories); err != nil {
			return err
		}
		if input.Status != nil && *input.Status != b.Status {
			if transitions[b.Status] != *input.Status {
				return shared.Conflict("budget cannot move from %s to %s", b.Status, *input.Status)
			}
			b.Status = *input.Status
		}
		recompute(&b)
		if err := tx.Update(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	return updated, err
}

// ApplySpend rolls an approved amount into the budget and its matching category.
// The caller owns the transaction repo is bound to.
func ApplySpend(ctx context.Context, repo Repository, budgetID int64, category string, amount decimal.Decimal) (Budget, error) {
	if !amount.IsPositive() {
		return Budget{}, shared.Invalid("amount", "must be greater than 0")
	}
	b, err := repo.GetForUpdate(ctx, budgetID)
	if err != nil {
		return Budget{}, err
	}
	applySpend(&b, category, amount)
	if err := repo.Update(ctx, b); err != nil {
		return Budget{}, err
	}
	return b, nil
}
