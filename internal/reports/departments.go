package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-budget/internal/revenues"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

const unassignedDepartment = "Unassigned"

type DepartmentRow struct {
	Department        string          `json:"department"`
	CostCenters       int             `json:"cost_centers"`
	TotalBudget       decimal.Decimal `json:"total_budget"`
	Spent             decimal.Decimal `json:"spent"`
	RevenueGenerated  decimal.Decimal `json:"revenue_generated"`
	BudgetUtilization float64         `json:"budget_utilization"`
	Efficiency        float64         `json:"efficiency"`
	Score             int             `json:"score"`
}

// Score combines up to 40 utilisation points with up to 60 efficiency points.
func Score(utilization, efficiency float64) int {
	score := 10
	switch {
	case utilization <= 90:
		score = 40
	case utilization <= 100:
		score = 30
	}
	switch {
	case efficiency >= 150:
		score += 60
	case efficiency >= 100:
		score += 40
	case efficiency >= 50:
		score += 20
	}
	return score
}

// DepartmentPerformance ranks departments by score, highest first.
func DepartmentPerformance(snap Snapshot, f Filters) []DepartmentRow {
	if len(snap.CostCenters) == 0 {
		return []DepartmentRow{}
	}
	deptOf := make(map[int64]string, len(snap.CostCenters))
	byDept := map[string]*DepartmentRow{}
	for _, cc := range snap.CostCenters {
		if !f.matchesCostCenter(cc.ID) {
			continue
		}
		name := strings.TrimSpace(cc.Department)
		if name == "" {
			name = unassignedDepartment
		}
		deptOf[cc.ID] = name
		row, ok := byDept[name]
		if !ok {
			row = &DepartmentRow{Department: name}
			byDept[name] = row
		}
		row.CostCenters++
	}
	for _, b := range snap.Budgets {
		if b.FiscalYearID != f.FiscalYearID {
			continue
		}
		if name, ok := deptOf[b.CostCenterID]; ok {
			row := byDept[name]
			row.TotalBudget = row.TotalBudget.Add(b.TotalBudget)
			row.Spent = row.Spent.Add(b.Spent)
		}
	}
	for _, r := range snap.Revenues {
		if r.Status != revenues.StatusConfirmed || !f.inWindow(r.Date) {
			continue
		}
		if name, ok := deptOf[r.CostCenterID]; ok {
			row := byDept[name]
			row.RevenueGenerated = row.RevenueGenerated.Add(r.Amount)
		}
	}

	rows := make([]DepartmentRow, 0, len(byDept))
	for _, row := range byDept {
		row.BudgetUtilization = shared.Percent(row.Spent, row.TotalBudget)
		row.Efficiency = shared.Percent(row.RevenueGenerated, row.Spent)
		row.Score = Score(shared.ExactPercent(row.Spent, row.TotalBudget),
			shared.ExactPercent(row.RevenueGenerated, row.Spent))
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Department < rows[j].Department
	})
	return rows
}
