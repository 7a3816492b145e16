package reports

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-budget/internal/expenses"
)

type TrendRow struct {
	Period     string          `json:"period"`
	Actual     decimal.Decimal `json:"actual"`
	Trend      decimal.Decimal `json:"trend"`
	Projection decimal.Decimal `json:"projection"`
	Confidence float64         `json:"confidence"`
}

// TrendAnalysis fits an ordinary least squares line through monthly approved spend
// up to the last month with data. Trend is the fitted value of the bucket and
// Projection the fitted value of the following one, both floored at zero.
func TrendAnalysis(snap Snapshot, f Filters) []TrendRow {
	var actual monthBuckets
	last := -1
	for _, e := range snap.Expenses {
		if e.Status != expenses.StatusApproved || !f.matchesCostCenter(e.CostCenterID) || !f.inWindow(e.Date) {
			continue
		}
		actual.add(e.Date, e.Amount)
		if idx := int(e.Date.Month()) - 1; idx > last {
			last = idx
		}
	}
	if last < 0 {
		return []TrendRow{}
	}

	ys := make([]float64, last+1)
	for i := range ys {
		ys[i] = actual[i].InexactFloat64()
	}
	intercept, slope := leastSquares(ys)
	fit := func(x int) decimal.Decimal {
		v := math.Max(0, intercept+slope*float64(x))
		return decimal.NewFromFloat(v).Round(2)
	}

	rows := make([]TrendRow, 12)
	for i := range rows {
		rows[i] = TrendRow{
			Period:     time.Month(i + 1).String()[:3],
			Actual:     actual[i],
			Trend:      fit(i),
			Projection: fit(i + 1),
			Confidence: math.Max(60, 100-5*float64(i)),
		}
	}
	return rows
}

// leastSquares fits y = a + b·x over x = 0..n-1.
func leastSquares(ys []float64) (a, b float64) {
	n := float64(len(ys))
	if n == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return sumY / n, 0
	}
	b = (n*sumXY - sumX*sumY) / den
	a = (sumY - b*sumX) / n
	return a, b
}
