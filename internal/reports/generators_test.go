package reports

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-budget/internal/budgets"
	"github.com/odyssey-erp/odyssey-budget/internal/costcenters"
	"github.com/odyssey-erp/odyssey-budget/internal/expenses"
	"github.com/odyssey-erp/odyssey-budget/internal/revenues"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func date(month time.Month, day int) time.Time {
	return time.Date(2025, month, day, 0, 0, 0, 0, time.UTC)
}

func approved(id, cc, budget int64, category string, amount int64, at time.Time) expenses.Expense {
	return expenses.Expense{ID: id, CostCenterID: cc, BudgetID: budget, FiscalYearID: 1, Category: category,
		Amount: d(amount), Date: at, Status: expenses.StatusApproved}
}

func confirmed(id, cc, budget int64, amount int64, at time.Time) revenues.Revenue {
	return revenues.Revenue{ID: id, CostCenterID: cc, BudgetID: budget, FiscalYearID: 1, Amount: d(amount),
		Date: at, Status: revenues.StatusConfirmed}
}

var fy1 = Filters{FiscalYearID: 1, Period: PeriodMonthly}

func TestBudgetExecutionScenario(t *testing.T) {
	snap := Snapshot{
		CostCenters: []costcenters.CostCenter{{ID: 7, Name: "Engineering"}},
		Budgets: []budgets.Budget{{ID: 1, Name: "Eng 2025", CostCenterID: 7, FiscalYearID: 1,
			TotalBudget: d(800000), Spent: d(620000)}},
		Expenses: []expenses.Expense{
			approved(1, 7, 1, "Technology", 20000, date(time.March, 3)),
			{ID: 2, BudgetID: 1, Amount: d(999), Date: date(time.March, 4), Status: expenses.StatusPending},
		},
		Revenues: []revenues.Revenue{confirmed(1, 7, 1, 5000, date(time.April, 1))},
	}
	rows := BudgetExecution(snap, fy1)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, 77.5, row.Utilization)
	assert.True(t, row.Variance.Equal(d(180000)), row.Variance.String())
	assert.Equal(t, 22.5, row.VariancePercentage)
	assert.Equal(t, ExecutionNormal, row.Status)
	assert.Equal(t, "Engineering", row.CostCenterName)
	assert.True(t, row.ApprovedExpenses.Equal(d(20000)))
	assert.True(t, row.ConfirmedRevenues.Equal(d(5000)))
}

func TestBudgetExecutionZeroBudgetGuard(t *testing.T) {
	snap := Snapshot{Budgets: []budgets.Budget{{ID: 1, FiscalYearID: 1, TotalBudget: decimal.Zero, Spent: d(50)}}}
	rows := BudgetExecution(snap, fy1)
	require.Len(t, rows, 1)
	for _, v := range []float64{rows[0].Utilization, rows[0].VariancePercentage} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		assert.Zero(t, v)
	}
}

func TestBudgetExecutionStatusTiers(t *testing.T) {
	assert.Equal(t, ExecutionNormal, executionStatus(90))
	assert.Equal(t, ExecutionAttention, executionStatus(90.01))
	assert.Equal(t, ExecutionAttention, executionStatus(100))
	assert.Equal(t, ExecutionExceeded, executionStatus(100.01))
}

func TestBudgetExecutionTierUsesUnroundedUtilization(t *testing.T) {
	snap := Snapshot{Budgets: []budgets.Budget{
		{ID: 1, FiscalYearID: 1, TotalBudget: d(1000000), Spent: d(1000040)},
		{ID: 2, FiscalYearID: 1, TotalBudget: d(1000000), Spent: d(900040)},
	}}
	rows := BudgetExecution(snap, fy1)
	require.Len(t, rows, 2)
	assert.Equal(t, 100.0, rows[0].Utilization)
	assert.Equal(t, ExecutionExceeded, rows[0].Status)
	assert.Equal(t, 90.0, rows[1].Utilization)
	assert.Equal(t, ExecutionAttention, rows[1].Status)
}

func TestBudgetExecutionFiltersScope(t *testing.T) {
	cc := int64(2)
	snap := Snapshot{Budgets: []budgets.Budget{
		{ID: 1, CostCenterID: 1, FiscalYearID: 1, TotalBudget: d(10)},
		{ID: 2, CostCenterID: 2, FiscalYearID: 1, TotalBudget: d(10)},
		{ID: 3, CostCenterID: 2, FiscalYearID: 2, TotalBudget: d(10)},
	}}
	rows := BudgetExecution(snap, Filters{FiscalYearID: 1, CostCenterID: &cc})
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].BudgetID)
}

func TestVarianceAnalysis(t *testing.T) {
	snap := Snapshot{
		Budgets: []budgets.Budget{{ID: 1, FiscalYearID: 1, Categories: []budgets.Category{
			{Name: "Personnel costs", Budgeted: d(1000)},
			{Name: "Tech - Technology", Budgeted: d(500)},
		}}},
		Expenses: []expenses.Expense{
			approved(1, 1, 1, "personnel", 900, date(time.January, 5)),
			approved(2, 1, 1, "Technology licenses", 600, date(time.February, 5)),
			{ID: 3, Category: "Marketing", Amount: d(50), Status: expenses.StatusPending, Date: date(time.March, 1)},
		},
	}
	rows := VarianceAnalysis(snap, fy1)
	require.Len(t, rows, len(VarianceCategories))
	byName := map[string]VarianceRow{}
	for _, r := range rows {
		byName[r.Category] = r
	}
	assert.Equal(t, 10.0, byName["Personnel"].VariancePercentage)
	assert.Equal(t, VarianceFavorable, byName["Personnel"].Status)
	assert.Equal(t, -20.0, byName["Technology"].VariancePercentage)
	assert.Equal(t, VarianceUnfavorable, byName["Technology"].Status)
	assert.True(t, byName["Marketing"].Actual.IsZero())
	assert.Equal(t, VarianceNeutral, byName["Marketing"].Status)
}

func TestCashFlowMonthlyAndRollups(t *testing.T) {
	snap := Snapshot{
		Revenues: []revenues.Revenue{
			confirmed(1, 1, 1, 1000, date(time.January, 10)),
			confirmed(2, 1, 1, 500, date(time.April, 2)),
			{ID: 3, Amount: d(10000), Date: date(time.May, 1), Status: revenues.StatusPending},
		},
		Expenses: []expenses.Expense{
			approved(1, 1, 1, "Travel", 300, date(time.February, 3)),
			approved(2, 1, 1, "Travel", 100, date(time.December, 20)),
		},
	}

	monthly := CashFlow(snap, fy1)
	require.Len(t, monthly, 12)
	assert.Equal(t, "Jan", monthly[0].Period)
	assert.True(t, monthly[1].CumulativeFlow.Equal(d(700)))
	assert.True(t, monthly[4].Revenues.IsZero(), "pending revenue is excluded")
	assert.True(t, monthly[11].CumulativeFlow.Equal(d(1100)))

	quarterly := CashFlow(snap, Filters{FiscalYearID: 1, Period: PeriodQuarterly})
	require.Len(t, quarterly, 4)
	want := []int64{700, 1200, 1200, 1100}
	for i, q := range quarterly {
		assert.Equal(t, quarterLabels[i], q.Period)
		assert.True(t, q.CumulativeFlow.Equal(d(want[i])), "%s cumulative %s", q.Period, q.CumulativeFlow)
	}
	assert.True(t, quarterly[3].NetFlow.Equal(d(-100)))

	yearly := CashFlow(snap, Filters{FiscalYearID: 1, Period: PeriodYearly})
	require.Len(t, yearly, 1)
	assert.True(t, yearly[0].NetFlow.Equal(d(1100)))
}

func TestCashFlowRespectsDateWindow(t *testing.T) {
	from, to := date(time.February, 1), date(time.February, 28)
	snap := Snapshot{Revenues: []revenues.Revenue{
		confirmed(1, 1, 1, 1000, date(time.January, 10)),
		confirmed(2, 1, 1, 200, date(time.February, 10)),
	}}
	rows := CashFlow(snap, Filters{FiscalYearID: 1, StartDate: &from, EndDate: &to})
	require.Len(t, rows, 12)
	assert.True(t, rows[0].Revenues.IsZero())
	assert.True(t, rows[11].CumulativeFlow.Equal(d(200)))
}

func TestDepartmentPerformanceRanking(t *testing.T) {
	snap := Snapshot{
		CostCenters: []costcenters.CostCenter{
			{ID: 1, Department: "Engineering"},
			{ID: 2, Department: "Engineering"},
			{ID: 3, Department: "Sales"},
			{ID: 4},
		},
		Budgets: []budgets.Budget{
			{ID: 1, CostCenterID: 1, FiscalYearID: 1, TotalBudget: d(1000), Spent: d(800)},
			{ID: 2, CostCenterID: 2, FiscalYearID: 1, TotalBudget: d(1000), Spent: d(200)},
			{ID: 3, CostCenterID: 3, FiscalYearID: 1, TotalBudget: d(1000), Spent: d(1100)},
		},
		Revenues: []revenues.Revenue{confirmed(1, 1, 1, 1600, date(time.June, 1))},
	}
	rows := DepartmentPerformance(snap, fy1)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Engineering", unassignedDepartment, "Sales"},
		[]string{rows[0].Department, rows[1].Department, rows[2].Department})

	eng := rows[0]
	assert.Equal(t, 2, eng.CostCenters)
	assert.Equal(t, 50.0, eng.BudgetUtilization)
	assert.Equal(t, 160.0, eng.Efficiency)
	assert.Equal(t, 100, eng.Score)
	assert.Equal(t, 40, rows[1].Score)
	assert.Zero(t, rows[1].Efficiency)
	assert.Equal(t, 10, rows[2].Score)
}

func TestDepartmentScoreUsesUnroundedRatios(t *testing.T) {
	snap := Snapshot{
		CostCenters: []costcenters.CostCenter{{ID: 1, Department: "Ops"}, {ID: 2, Department: "Sales"}},
		Budgets: []budgets.Budget{
			{ID: 1, CostCenterID: 1, FiscalYearID: 1, TotalBudget: d(1000000), Spent: d(900040)},
			{ID: 2, CostCenterID: 2, FiscalYearID: 1, TotalBudget: d(1000000), Spent: d(1000000)},
		},
		// 1,499,960 / 1,000,000 is 149.996%, displayed as 150 but short of the top tier.
		Revenues: []revenues.Revenue{confirmed(1, 2, 2, 1499960, date(time.June, 1))},
	}
	rows := DepartmentPerformance(snap, fy1)
	require.Len(t, rows, 2)
	byDept := map[string]DepartmentRow{rows[0].Department: rows[0], rows[1].Department: rows[1]}

	ops := byDept["Ops"]
	assert.Equal(t, 90.0, ops.BudgetUtilization)
	assert.Equal(t, 30, ops.Score)

	sales := byDept["Sales"]
	assert.Equal(t, 150.0, sales.Efficiency)
	assert.Equal(t, 70, sales.Score)
}

func TestScoreTiers(t *testing.T) {
	assert.Equal(t, 70, Score(95, 100))
	assert.Equal(t, 60, Score(90, 50))
	assert.Equal(t, 50, Score(101, 149.99))
	assert.Equal(t, 10, Score(250, 0))
	for _, u := range []float64{0, 50, 95, 150} {
		for _, e := range []float64{0, 60, 120, 400} {
			s := Score(u, e)
			assert.True(t, s >= 0 && s <= 100)
		}
	}
}

func TestTrendAnalysisLeastSquares(t *testing.T) {
	snap := Snapshot{Expenses: []expenses.Expense{
		approved(1, 1, 1, "Ops", 100, date(time.January, 5)),
		approved(2, 1, 1, "Ops", 200, date(time.February, 5)),
		approved(3, 1, 1, "Ops", 300, date(time.March, 5)),
	}}
	rows := TrendAnalysis(snap, fy1)
	require.Len(t, rows, 12)
	assert.True(t, rows[0].Trend.Equal(d(100)), rows[0].Trend.String())
	assert.True(t, rows[0].Projection.Equal(d(200)))
	assert.True(t, rows[3].Trend.Equal(d(400)))
	assert.True(t, rows[3].Actual.IsZero())
	assert.Equal(t, 100.0, rows[0].Confidence)
	assert.Equal(t, 85.0, rows[3].Confidence)
	assert.Equal(t, 60.0, rows[8].Confidence)
	assert.Equal(t, 60.0, rows[11].Confidence)
}

func TestTrendAnalysisClampsAtZero(t *testing.T) {
	snap := Snapshot{Expenses: []expenses.Expense{
		approved(1, 1, 1, "Ops", 300, date(time.January, 5)),
		approved(2, 1, 1, "Ops", 100, date(time.February, 5)),
	}}
	rows := TrendAnalysis(snap, fy1)
	assert.True(t, rows[1].Projection.IsZero())
	assert.True(t, rows[5].Trend.IsZero())
}

func TestGeneratorsReturnEmptyForEmptySnapshot(t *testing.T) {
	var snap Snapshot
	assert.NotNil(t, BudgetExecution(snap, fy1))
	assert.Empty(t, BudgetExecution(snap, fy1))
	assert.Empty(t, VarianceAnalysis(snap, fy1))
	assert.Empty(t, CashFlow(snap, fy1))
	assert.Empty(t, DepartmentPerformance(snap, fy1))
	assert.Empty(t, TrendAnalysis(snap, fy1))
}
