package reports

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// Period selects the bucket size of the cash flow report.
type Period string

const (
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// Filters scopes a report. A nil CostCenterID means every cost center.
type Filters struct {
	FiscalYearID int64      `json:"fiscal_year_id" validate:"gt=0"`
	CostCenterID *int64     `json:"cost_center_id,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Period       Period     `json:"period" validate:"omitempty,oneof=monthly quarterly yearly"`
}

// ParseFilters reads filters from query parameters. A missing fiscal_year_id is
// left at zero so the caller can substitute the default fiscal year.
func ParseFilters(q url.Values) (Filters, error) {
	var f Filters
	if raw := strings.TrimSpace(q.Get("fiscal_year_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Filters{}, shared.Invalid("fiscal_year_id", "must be a positive integer")
		}
		f.FiscalYearID = id
	}
	if raw := strings.TrimSpace(q.Get("cost_center_id")); raw != "" && !strings.EqualFold(raw, "all") {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Filters{}, shared.Invalid("cost_center_id", "must be a positive integer or all")
		}
		f.CostCenterID = &id
	}
	for _, spec := range []struct {
		key    string
		target **time.Time
	}{{"start_date", &f.StartDate}, {"end_date", &f.EndDate}} {
		raw := strings.TrimSpace(q.Get(spec.key))
		if raw == "" {
			continue
		}
		t, err := shared.ParseDate(spec.key, raw)
		if err != nil {
			return Filters{}, err
		}
		*spec.target = &t
	}
	f.Period = Period(strings.ToLower(strings.TrimSpace(q.Get("period"))))
	return f, nil
}

// Normalize fills defaults and checks the filter once the fiscal year is known.
func (f Filters) Normalize() (Filters, error) {
	if f.Period == "" {
		f.Period = PeriodMonthly
	}
	if f.FiscalYearID <= 0 {
		return Filters{}, shared.Invalid("fiscal_year_id", "is required and no default fiscal year is set")
	}
	if err := shared.ValidateStruct(f); err != nil {
		return Filters{}, err
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return Filters{}, shared.Invalid("start_date", "must not be after end_date")
	}
	return f, nil
}

// Key identifies the filter set for deduplicating concurrent exports.
func (f Filters) Key() string {
	parts := []string{strconv.FormatInt(f.FiscalYearID, 10), "all", "-", "-", string(f.Period)}
	if f.CostCenterID != nil {
		parts[1] = strconv.FormatInt(*f.CostCenterID, 10)
	}
	if f.StartDate != nil {
		parts[2] = f.StartDate.Format(shared.DateLayout)
	}
	if f.EndDate != nil {
		parts[3] = f.EndDate.Format(shared.DateLayout)
	}
	return strings.Join(parts, ":")
}

func (f Filters) inWindow(t time.Time) bool {
	if f.StartDate != nil && t.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.After(*f.EndDate) {
		return false
	}
	return true
}

func (f Filters) matchesCostCenter(id int64) bool {
	return f.CostCenterID == nil || *f.CostCenterID == id
}
