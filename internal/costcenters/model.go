package costcenters

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates cost center states.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// PathSeparator joins ancestor codes into a cost center path.
const PathSeparator = "/"

// CostCenter is a budget-owning organisational unit. Level and Path are derived
// from the parent chain and never set by callers.
type CostCenter struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Code            string          `json:"code"`
	ParentID        *int64          `json:"parent_id,omitempty"`
	Level           int             `json:"level"`
	Path            string          `json:"path"`
	Budget          decimal.Decimal `json:"budget"`
	Spent           decimal.Decimal `json:"spent"`
	AllocatedBudget decimal.Decimal `json:"allocated_budget"`
	Department      string          `json:"department"`
	Manager         string          `json:"manager"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Children        []*CostCenter   `json:"children,omitempty"`
}

// CreateInput captures cost center creation.
type CreateInput struct {
	Name            string          `json:"name" validate:"required,max=120"`
	Code            string          `json:"code" validate:"required,max=32,excludesall=/"`
	ParentID        *int64          `json:"parent_id" validate:"omitempty,gt=0"`
	Budget          decimal.Decimal `json:"budget"`
	AllocatedBudget decimal.Decimal `json:"allocated_budget"`
	Department      string          `json:"department" validate:"max=120"`
	Manager         string          `json:"manager" validate:"max=120"`
	Status          Status          `json:"status" validate:"omitempty,oneof=active inactive"`
}

// UpdateInput carries a partial update; nil fields are left untouched.
// Setting ClearParent promotes the node to a root.
type UpdateInput struct {
	Name            *string          `json:"name" validate:"omitempty,max=120"`
	ParentID        *int64           `json:"parent_id" validate:"omitempty,gt=0"`
	ClearParent     bool             `json:"clear_parent"`
	Budget          *decimal.Decimal `json:"budget"`
	AllocatedBudget *decimal.Decimal `json:"allocated_budget"`
	Department      *string          `json:"department" validate:"omitempty,max=120"`
	Manager         *string          `json:"manager" validate:"omitempty,max=120"`
	Status          *Status          `json:"status" validate:"omitempty,oneof=active inactive"`
}
