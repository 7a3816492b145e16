// Package businessgroups groups companies under holding-level business groups
// and keeps the membership ledger and derived counters consistent.
package businessgroups

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates business group states.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusDissolved Status = "dissolved"
)

// Action is the kind of ledger entry.
type Action string

const (
	ActionJoined          Action = "joined"
	ActionLeft            Action = "left"
	ActionTransferredFrom Action = "transferred_from"
	ActionTransferredTo   Action = "transferred_to"
)

// Group is a holding-level grouping of companies. TotalCompanies and TotalRevenue are
// derived and only written by the recount statement.
type Group struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Code           string          `json:"code"`
	Status         Status          `json:"status"`
	TotalCompanies int             `json:"total_companies"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	Headquarters   string          `json:"headquarters"`
	ContactEmail   string          `json:"contact_email"`
	ContactPhone   string          `json:"contact_phone"`
	Description    string          `json:"description"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Membership is one append-only ledger entry.
type Membership struct {
	ID              int64     `json:"id"`
	BusinessGroupID int64     `json:"business_group_id"`
	CompanyID       int64     `json:"company_id"`
	Action          Action    `json:"action"`
	PreviousGroupID *int64    `json:"previous_group_id,omitempty"`
	EffectiveDate   time.Time `json:"effective_date"`
	Reason          string    `json:"reason"`
	CreatedBy       int64     `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// GroupInput captures group creation.
type GroupInput struct {
	Name         string `json:"name" validate:"required,max=200"`
	Code         string `json:"code" validate:"required,max=32"`
	Status       Status `json:"status" validate:"omitempty,oneof=active inactive dissolved"`
	Headquarters string `json:"headquarters" validate:"max=200"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone" validate:"max=50"`
	Description  string `json:"description" validate:"max=2000"`
}

// GroupUpdate is a partial update; nil fields are left untouched.
type GroupUpdate struct {
	Name         *string `json:"name" validate:"omitempty,max=200"`
	Code         *string `json:"code" validate:"omitempty,max=32"`
	Status       *Status `json:"status" validate:"omitempty,oneof=active inactive dissolved"`
	Headquarters *string `json:"headquarters" validate:"omitempty,max=200"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone" validate:"omitempty,max=50"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
}

// AssociateInput attaches a company to a group.
type AssociateInput struct {
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	GroupID   int64  `json:"business_group_id" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"max=500"`
}

// DissociateInput detaches a company from whatever group it is in.
type DissociateInput struct {
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"max=500"`
}

// TransferInput moves a company between two groups.
type TransferInput struct {
	CompanyID   int64  `json:"company_id" validate:"required,gt=0"`
	FromGroupID int64  `json:"from_group_id" validate:"required,gt=0"`
	ToGroupID   int64  `json:"to_group_id" validate:"required,gt=0"`
	Reason      string `json:"reason" validate:"max=500"`
}
