package budgets

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates budget lifecycle stages.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusApproved  Status = "approved"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

var transitions = map[Status]Status{
	StatusPlanning: StatusApproved,
	StatusApproved: StatusActive,
	StatusActive:   StatusCompleted,
}

// Category splits a budget by spending category. Percentage is the category's
// share of the total budget.
type Category struct {
	Name       string          `json:"name"`
	Budgeted   decimal.Decimal `json:"budgeted"`
	Spent      decimal.Decimal `json:"spent"`
	Percentage float64         `json:"percentage"`
}

// Budget allocates money to one cost center for one fiscal year.
// Remaining is derived and always equals TotalBudget - Spent.
type Budget struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	CostCenterID int64           `json:"cost_center_id"`
	FiscalYearID int64           `json:"fiscal_year_id"`
	TotalBudget  decimal.Decimal `json:"total_budget"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Status       Status          `json:"status"`
	Categories   []Category      `json:"categories"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CategoryInput is a writable category line.
type CategoryInput struct {
	Name     string          `json:"name" validate:"required,max=120"`
	Budgeted decimal.Decimal `json:"budgeted"`
}

type CreateInput struct {
	Name         string          `json:"name" validate:"max=200"`
	CostCenterID int64           `json:"cost_center_id" validate:"required,gt=0"`
	FiscalYearID int64           `json:"fiscal_year_id" validate:"required,gt=0"`
	TotalBudget  decimal.Decimal `json:"total_budget"`
	Categories   []CategoryInput `json:"categories" validate:"dive"`
}

// UpdateInput is the only way a stored budget changes shape. Nil fields are
// left untouched; a non-nil Categories replaces the whole list.
type UpdateInput struct {
	Name        *string          `json:"name" validate:"omitempty,max=200"`
	TotalBudget *decimal.Decimal `json:"total_budget"`
	Categories  *[]CategoryInput `json:"categories" validate:"omitempty,dive"`
	Status      *Status          `json:"status" validate:"omitempty,oneof=approved active completed"`
}

// Filter narrows budget listings; nil means all.
type Filter struct {
	FiscalYearID *int64
	CostCenterID *int64
	Status       string
}
