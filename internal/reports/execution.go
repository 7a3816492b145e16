package reports

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-budget/internal/expenses"
	"github.com/odyssey-erp/odyssey-budget/internal/revenues"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type ExecutionStatus string

const (
	ExecutionNormal    ExecutionStatus = "normal"
	ExecutionAttention ExecutionStatus = "attention"
	ExecutionExceeded  ExecutionStatus = "exceeded"
)

type ExecutionRow struct {
	BudgetID           int64           `json:"budget_id"`
	BudgetName         string          `json:"budget_name"`
	CostCenterID       int64           `json:"cost_center_id"`
	CostCenterName     string          `json:"cost_center_name"`
	TotalBudget        decimal.Decimal `json:"total_budget"`
	Spent              decimal.Decimal `json:"spent"`
	ApprovedExpenses   decimal.Decimal `json:"approved_expenses"`
	ConfirmedRevenues  decimal.Decimal `json:"confirmed_revenues"`
	Utilization        float64         `json:"utilization"`
	Variance           decimal.Decimal `json:"variance"`
	VariancePercentage float64         `json:"variance_percentage"`
	Status             ExecutionStatus `json:"status"`
}

func executionStatus(utilization float64) ExecutionStatus {
	switch {
	case utilization > 100:
		return ExecutionExceeded
	case utilization > 90:
		return ExecutionAttention
	default:
		return ExecutionNormal
	}
}

// BudgetExecution reports each budget's utilisation against its rolled-up spend.
func BudgetExecution(snap Snapshot, f Filters) []ExecutionRow {
	rows := make([]ExecutionRow, 0, len(snap.Budgets))
	if len(snap.Budgets) == 0 {
		return rows
	}
	names := make(map[int64]string, len(snap.CostCenters))
	for _, cc := range snap.CostCenters {
		names[cc.ID] = cc.Name
	}
	spentBy := map[int64]decimal.Decimal{}
	for _, e := range snap.Expenses {
		if e.Status == expenses.StatusApproved && f.inWindow(e.Date) {
			spentBy[e.BudgetID] = spentBy[e.BudgetID].Add(e.Amount)
		}
	}
	earnedBy := map[int64]decimal.Decimal{}
	for _, r := range snap.Revenues {
		if r.Status == revenues.StatusConfirmed && f.inWindow(r.Date) {
			earnedBy[r.BudgetID] = earnedBy[r.BudgetID].Add(r.Amount)
		}
	}
	for _, b := range snap.Budgets {
		if b.FiscalYearID != f.FiscalYearID || !f.matchesCostCenter(b.CostCenterID) {
			continue
		}
		variance := b.TotalBudget.Sub(b.Spent)
		rows = append(rows, ExecutionRow{
			BudgetID:           b.ID,
			BudgetName:         b.Name,
			CostCenterID:       b.CostCenterID,
			CostCenterName:     names[b.CostCenterID],
			TotalBudget:        b.TotalBudget,
			Spent:              b.Spent,
			ApprovedExpenses:   spentBy[b.ID],
			ConfirmedRevenues:  earnedBy[b.ID],
			Utilization:        shared.Percent(b.Spent, b.TotalBudget),
			Variance:           variance,
			VariancePercentage: shared.Percent(variance, b.TotalBudget),
			Status:             executionStatus(shared.ExactPercent(b.Spent, b.TotalBudget)),
		})
	}
	return rows
}
