package fiscalyears

import "time"

// Status enumerates fiscal year lifecycle stages.
type Status string

const (
	StatusPlanning Status = "planning"
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusArchived Status = "archived"
)

// next is the only forward transition allowed from each status.
var next = map[Status]Status{
	StatusPlanning: StatusActive,
	StatusActive:   StatusClosed,
	StatusClosed:   StatusArchived,
}

// FiscalYear is a budgeting window. At most one fiscal year is the default.
type FiscalYear struct {
	ID        int64     `json:"id"`
	Year      int       `json:"year"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    Status    `json:"status"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput carries dates as YYYY-MM-DD strings.
type CreateInput struct {
	Year      int    `json:"year" validate:"required,gt=0"`
	Name      string `json:"name" validate:"max=120"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	IsDefault bool   `json:"is_default"`
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name      *string `json:"name" validate:"omitempty,max=120"`
	StartDate *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// TransitionInput names the target status.
type TransitionInput struct {
	Status Status `json:"status" validate:"required,oneof=active closed archived"`
}
