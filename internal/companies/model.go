package companies

import (
	"time"
)

// Company represents a legal entity that may belong to one business group.
// BusinessGroupID and JoinedGroupAt are owned by the membership tracker.
type Company struct {
	ID              int64      `json:"id"`
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	Address         string     `json:"address"`
	TaxID           string     `json:"tax_id"`
	BusinessGroupID *int64     `json:"business_group_id,omitempty"`
	JoinedGroupAt   *time.Time `json:"joined_group_at,omitempty"`
	Version         int64      `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CostCenterLink attributes a cost center's revenue to a company.
type CostCenterLink struct {
	CompanyID    int64     `json:"company_id"`
	CostCenterID int64     `json:"cost_center_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Input is the writable part of a company.
type Input struct {
	Code    string `json:"code" validate:"required,max=32"`
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
	TaxID   string `json:"tax_id" validate:"max=64"`
}

// LinkInput names the cost center to link.
type LinkInput struct {
	CostCenterID int64 `json:"cost_center_id" validate:"required,gt=0"`
}
