package reports

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-budget/internal/budgets"
	"github.com/odyssey-erp/odyssey-budget/internal/costcenters"
	"github.com/odyssey-erp/odyssey-budget/internal/expenses"
	"github.com/odyssey-erp/odyssey-budget/internal/revenues"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// Snapshot is the entity set a report is computed from.
type Snapshot struct {
	CostCenters []costcenters.CostCenter
	Budgets     []budgets.Budget
	Expenses    []expenses.Expense
	Revenues    []revenues.Revenue
}

func (s Snapshot) empty() bool {
	return len(s.CostCenters) == 0 && len(s.Budgets) == 0 && len(s.Expenses) == 0 && len(s.Revenues) == 0
}

// Loader fetches a fresh snapshot for every report request.
type Loader interface {
	Load(ctx context.Context, filters Filters) (Snapshot, error)
}

type (
	costCenterSource interface {
		ListAll(ctx context.Context) ([]costcenters.CostCenter, error)
	}
	budgetSource interface {
		List(ctx context.Context, filter budgets.Filter, page shared.ListFilters) ([]budgets.Budget, error)
	}
	expenseSource interface {
		List(ctx context.Context, filter expenses.Filter, page shared.ListFilters) ([]expenses.Expense, error)
	}
	revenueSource interface {
		List(ctx context.Context, filter revenues.Filter, page shared.ListFilters) ([]revenues.Revenue, error)
	}
)

// StoreLoader reads the four entity sets concurrently from their repositories.
type StoreLoader struct {
	costCenters costCenterSource
	budgets     budgetSource
	expenses    expenseSource
	revenues    revenueSource
}

func NewStoreLoader(cc costCenterSource, b budgetSource, e expenseSource, r revenueSource) *StoreLoader {
	return &StoreLoader{costCenters: cc, budgets: b, expenses: e, revenues: r}
}

func (l *StoreLoader) Load(ctx context.Context, f Filters) (Snapshot, error) {
	var snap Snapshot
	fy := f.FiscalYearID
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.CostCenters, err = l.costCenters.ListAll(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Budgets, err = l.budgets.List(ctx, budgets.Filter{FiscalYearID: &fy, CostCenterID: f.CostCenterID}, shared.ListFilters{})
		return err
	})
	g.Go(func() error {
		var err error
		snap.Expenses, err = l.expenses.List(ctx, expenses.Filter{
			FiscalYearID: &fy,
			CostCenterID: f.CostCenterID,
			Status:       string(expenses.StatusApproved),
			From:         f.StartDate,
			To:           f.EndDate,
		}, shared.ListFilters{})
		return err
	})
	g.Go(func() error {
		var err error
		snap.Revenues, err = l.revenues.List(ctx, revenues.Filter{
			FiscalYearID: &fy,
			CostCenterID: f.CostCenterID,
			Status:       string(revenues.StatusConfirmed),
			From:         f.StartDate,
			To:           f.EndDate,
		}, shared.ListFilters{})
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
