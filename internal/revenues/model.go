package revenues

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Recurrence string

const (
	RecurrenceNone      Recurrence = "none"
	RecurrenceMonthly   Recurrence = "monthly"
	RecurrenceQuarterly Recurrence = "quarterly"
	RecurrenceYearly    Recurrence = "yearly"
)

// Revenue is income booked against a budget. Only confirmed revenue counts toward
// actuals and business group totals.
type Revenue struct {
	ID                 int64           `json:"id"`
	Description        string          `json:"description"`
	Source             string          `json:"source"`
	Amount             decimal.Decimal `json:"amount"`
	CostCenterID       int64           `json:"cost_center_id"`
	BudgetID           int64           `json:"budget_id"`
	FiscalYearID       int64           `json:"fiscal_year_id"`
	Date               time.Time       `json:"date"`
	Status             Status          `json:"status"`
	ConfirmedBy        *int64          `json:"confirmed_by,omitempty"`
	ConfirmedAt        *time.Time      `json:"confirmed_at,omitempty"`
	CancelledBy        *int64          `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	Recurrence         Recurrence      `json:"recurrence"`
	NextRecurrenceDate *time.Time      `json:"next_recurrence_date,omitempty"`
	CreatedBy          int64           `json:"created_by"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type CreateInput struct {
	Description  string          `json:"description" validate:"required,max=500"`
	Source       string          `json:"source" validate:"max=120"`
	Amount       decimal.Decimal `json:"amount"`
	CostCenterID int64           `json:"cost_center_id" validate:"required,gt=0"`
	BudgetID     int64           `json:"budget_id" validate:"required,gt=0"`
	FiscalYearID int64           `json:"fiscal_year_id" validate:"required,gt=0"`
	Date         string          `json:"date" validate:"required,datetime=2006-01-02"`
	Recurrence   Recurrence      `json:"recurrence" validate:"omitempty,oneof=none monthly quarterly yearly"`
}

type Filter struct {
	FiscalYearID *int64
	CostCenterID *int64
	BudgetID     *int64
	Status       string
	From, To     *time.Time
}
