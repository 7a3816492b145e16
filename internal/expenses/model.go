package expenses

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Expense is money spent against a budget. Only approved expenses count toward actuals.
type Expense struct {
	ID              int64           `json:"id"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	CostCenterID    int64           `json:"cost_center_id"`
	BudgetID        int64           `json:"budget_id"`
	FiscalYearID    int64           `json:"fiscal_year_id"`
	Date            time.Time       `json:"date"`
	Status          Status          `json:"status"`
	ApprovedBy      *int64          `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	RejectedBy      *int64          `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedBy       int64           `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type CreateInput struct {
	Description  string          `json:"description" validate:"required,max=500"`
	Category     string          `json:"category" validate:"required,max=120"`
	Amount       decimal.Decimal `json:"amount"`
	CostCenterID int64           `json:"cost_center_id" validate:"required,gt=0"`
	BudgetID     int64           `json:"budget_id" validate:"required,gt=0"`
	FiscalYearID int64           `json:"fiscal_year_id" validate:"required,gt=0"`
	Date         string          `json:"date" validate:"required,datetime=2006-01-02"`
}

type RejectInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Filter narrows listings; nil means all.
type Filter struct {
	FiscalYearID *int64
	CostCenterID *int64
	BudgetID     *int64
	Status       string
	From, To     *time.Time
}
