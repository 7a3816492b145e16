package reports

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-budget/internal/reports/export"
)

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func pct(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func executionTable(rows []ExecutionRow) export.Table {
	t := export.Table{
		Title: "Budget Execution",
		Headers: []string{"Budget", "Cost Center", "Total Budget", "Spent", "Approved Expenses",
			"Confirmed Revenues", "Utilization %", "Variance", "Variance %", "Status"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.BudgetName, r.CostCenterName, money(r.TotalBudget), money(r.Spent),
			money(r.ApprovedExpenses), money(r.ConfirmedRevenues), pct(r.Utilization), money(r.Variance),
			pct(r.VariancePercentage), string(r.Status)})
	}
	return t
}

func varianceTable(rows []VarianceRow) export.Table {
	t := export.Table{
		Title:   "Variance Analysis",
		Headers: []string{"Category", "Budgeted", "Actual", "Variance", "Variance %", "Status"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Category, money(r.Budgeted), money(r.Actual), money(r.Variance),
			pct(r.VariancePercentage), string(r.Status)})
	}
	return t
}

func cashFlowTable(rows []CashFlowRow) export.Table {
	t := export.Table{
		Title:   "Cash Flow",
		Headers: []string{"Period", "Revenues", "Expenses", "Net Flow", "Cumulative Flow"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Period, money(r.Revenues), money(r.Expenses), money(r.NetFlow),
			money(r.CumulativeFlow)})
	}
	return t
}

func departmentTable(rows []DepartmentRow) export.Table {
	t := export.Table{
		Title: "Department Performance",
		Headers: []string{"Department", "Cost Centers", "Total Budget", "Spent", "Revenue", "Utilization %",
			"Efficiency %", "Score"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Department, strconv.Itoa(r.CostCenters), money(r.TotalBudget),
			money(r.Spent), money(r.RevenueGenerated), pct(r.BudgetUtilization), pct(r.Efficiency),
			strconv.Itoa(r.Score)})
	}
	return t
}

func trendTable(rows []TrendRow) export.Table {
	t := export.Table{
		Title:   "Trend Analysis",
		Headers: []string{"Period", "Actual", "Trend", "Projection", "Confidence %"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Period, money(r.Actual), money(r.Trend), money(r.Projection),
			pct(r.Confidence)})
	}
	return t
}
