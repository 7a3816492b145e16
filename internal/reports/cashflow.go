package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-budget/internal/expenses"
	"github.com/odyssey-erp/odyssey-budget/internal/revenues"
)

type CashFlowRow struct {
	Period         string          `json:"period"`
	Revenues       decimal.Decimal `json:"revenues"`
	Expenses       decimal.Decimal `json:"expenses"`
	NetFlow        decimal.Decimal `json:"net_flow"`
	CumulativeFlow decimal.Decimal `json:"cumulative_flow"`
}

// monthBuckets sums amounts into calendar months, January first.
type monthBuckets [12]decimal.Decimal

func (m *monthBuckets) add(t time.Time, amount decimal.Decimal) {
	m[t.Month()-1] = m[t.Month()-1].Add(amount)
}

var quarterLabels = []string{"Q1", "Q2", "Q3", "Q4"}

// CashFlow buckets confirmed revenue and approved expenses into calendar months and
// rolls them up to quarters or a single year when requested.
func CashFlow(snap Snapshot, f Filters) []CashFlowRow {
	var in, out monthBuckets
	seen := false
	for _, r := range snap.Revenues {
		if r.Status == revenues.StatusConfirmed && f.matchesCostCenter(r.CostCenterID) && f.inWindow(r.Date) {
			in.add(r.Date, r.Amount)
			seen = true
		}
	}
	for _, e := range snap.Expenses {
		if e.Status == expenses.StatusApproved && f.matchesCostCenter(e.CostCenterID) && f.inWindow(e.Date) {
			out.add(e.Date, e.Amount)
			seen = true
		}
	}
	if !seen {
		return []CashFlowRow{}
	}

	size := 1
	switch f.Period {
	case PeriodQuarterly:
		size = 3
	case PeriodYearly:
		size = 12
	}
	rows := make([]CashFlowRow, 0, 12/size)
	cumulative := decimal.Zero
	for start := 0; start < 12; start += size {
		row := CashFlowRow{Period: bucketLabel(f.Period, start), Revenues: decimal.Zero, Expenses: decimal.Zero}
		for m := start; m < start+size; m++ {
			row.Revenues = row.Revenues.Add(in[m])
			row.Expenses = row.Expenses.Add(out[m])
		}
		row.NetFlow = row.Revenues.Sub(row.Expenses)
		cumulative = cumulative.Add(row.NetFlow)
		row.CumulativeFlow = cumulative
		rows = append(rows, row)
	}
	return rows
}

func bucketLabel(p Period, start int) string {
	switch p {
	case PeriodQuarterly:
		return quarterLabels[start/3]
	case PeriodYearly:
		return "Year"
	default:
		return time.Month(start + 1).String()[:3]
	}
}
