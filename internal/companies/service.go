package companies

import (
	"context"
	"strings"

	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Page is one page of companies plus the unpaged total.
type Page struct {
	Items []Company `json:"items"`
	Total int       `json:"total"`
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) (Page, error) {
	items, total, err := s.repo.List(ctx, filters.Normalize())
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	if id <= 0 {
		return Company{}, shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, input Input) (Company, error) {
	input = normalize(input)
	if err := shared.ValidateStruct(input); err != nil {
		return Company{}, err
	}
	return s.repo.Create(ctx, Company{Code: input.Code, Name: input.Name, Address: input.Address, TaxID: input.TaxID})
}

func (s *Service) Update(ctx context.Context, id int64, input Input) (Company, error) {
	if id <= 0 {
		return Company{}, shared.Invalid("id", "must be a positive integer")
	}
	input = normalize(input)
	if err := shared.ValidateStruct(input); err != nil {
		return Company{}, err
	}
	var updated Company
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.Update(ctx, id, input); err != nil {
			return err
		}
		var err error
		updated, err = tx.Get(ctx, id)
		return err
	})
	return updated, err
}

// Delete removes a company that is not attached to any business group.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		c, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if c.BusinessGroupID != nil {
			return shared.Conflict("company %d still belongs to business group %d", id, *c.BusinessGroupID)
		}
		return tx.Delete(ctx, id)
	})
}

func (s *Service) LinkCostCenter(ctx context.Context, companyID int64, input LinkInput) error {
	if err := shared.ValidateStruct(input); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.Get(ctx, companyID); err != nil {
			return err
		}
		return tx.LinkCostCenter(ctx, companyID, input.CostCenterID)
	})
}

func (s *Service) UnlinkCostCenter(ctx context.Context, companyID, costCenterID int64) error {
	if companyID <= 0 || costCenterID <= 0 {
		return shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.UnlinkCostCenter(ctx, companyID, costCenterID)
}

func (s *Service) CostCenters(ctx context.Context, companyID int64) ([]CostCenterLink, error) {
	if _, err := s.Get(ctx, companyID); err != nil {
		return nil, err
	}
	return s.repo.CostCenters(ctx, companyID)
}

func normalize(in Input) Input {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.TaxID = strings.TrimSpace(in.TaxID)
	return in
}
