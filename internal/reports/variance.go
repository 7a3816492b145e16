package reports

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-budget/internal/expenses"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// VarianceCategories is the fixed category set compared by the variance report.
var VarianceCategories = []string{"Personnel", "Marketing", "Technology", "Operations", "Infrastructure", "Travel"}

type VarianceStatus string

const (
	VarianceFavorable   VarianceStatus = "favorable"
	VarianceNeutral     VarianceStatus = "neutral"
	VarianceUnfavorable VarianceStatus = "unfavorable"
)

type VarianceRow struct {
	Category           string          `json:"category"`
	Budgeted           decimal.Decimal `json:"budgeted"`
	Actual             decimal.Decimal `json:"actual"`
	Variance           decimal.Decimal `json:"variance"`
	VariancePercentage float64         `json:"variance_percentage"`
	Status             VarianceStatus  `json:"status"`
}

func varianceStatus(pct float64) VarianceStatus {
	switch {
	case pct > 5:
		return VarianceFavorable
	case pct < -5:
		return VarianceUnfavorable
	default:
		return VarianceNeutral
	}
}

// categoryMatch is a loose join: the category name only has to appear inside the label.
func categoryMatch(label, category string) bool {
	return strings.Contains(strings.ToLower(label), strings.ToLower(category))
}

// VarianceAnalysis compares budgeted and actual spend per fixed category.
func VarianceAnalysis(snap Snapshot, f Filters) []VarianceRow {
	if len(snap.Budgets) == 0 && len(snap.Expenses) == 0 {
		return []VarianceRow{}
	}
	rows := make([]VarianceRow, 0, len(VarianceCategories))
	for _, category := range VarianceCategories {
		budgeted := decimal.Zero
		for _, b := range snap.Budgets {
			if b.FiscalYearID != f.FiscalYearID || !f.matchesCostCenter(b.CostCenterID) {
				continue
			}
			for _, c := range b.Categories {
				if categoryMatch(c.Name, category) {
					budgeted = budgeted.Add(c.Budgeted)
				}
			}
		}
		actual := decimal.Zero
		for _, e := range snap.Expenses {
			if e.Status != expenses.StatusApproved || !f.matchesCostCenter(e.CostCenterID) || !f.inWindow(e.Date) {
				continue
			}
			if categoryMatch(e.Category, category) {
				actual = actual.Add(e.Amount)
			}
		}
		variance := budgeted.Sub(actual)
		pct := shared.Percent(variance, budgeted)
		rows = append(rows, VarianceRow{
			Category:           category,
			Budgeted:           budgeted,
			Actual:             actual,
			Variance:           variance,
			VariancePercentage: pct,
			Status:             varianceStatus(pct),
		})
	}
	return rows
}
