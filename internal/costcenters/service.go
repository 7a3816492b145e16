package costcenters

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// Service manages cost centers and keeps level/path consistent with the parent chain.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService wires the repository.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Get(ctx context.Context, id int64) (CostCenter, error) {
	if id <= 0 {
		return CostCenter{}, shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]CostCenter, error) {
	return s.repo.List(ctx, filters.Normalize())
}

// Tree loads every cost center and returns the hierarchy roots.
func (s *Service) Tree(ctx context.Context) ([]*CostCenter, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return BuildHierarchy(all), nil
}

func (s *Service) Create(ctx context.Context, input CreateInput) (CostCenter, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if err := shared.ValidateStruct(input); err != nil {
		return CostCenter{}, err
	}
	if input.Budget.IsNegative() {
		return CostCenter{}, shared.Invalid("budget", "must not be negative")
	}
	if input.AllocatedBudget.IsNegative() {
		return CostCenter{}, shared.Invalid("allocated_budget", "must not be negative")
	}
	status := input.Status
	if status == "" {
		status = StatusActive
	}
	cc := CostCenter{
		Name:            input.Name,
		Code:            input.Code,
		ParentID:        input.ParentID,
		Budget:          input.Budget,
		AllocatedBudget: input.AllocatedBudget,
		Department:      strings.TrimSpace(input.Department),
		Manager:         strings.TrimSpace(input.Manager),
		Status:          status,
	}

	var created CostCenter
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		var parent *CostCenter
		if input.ParentID != nil {
			p, err := tx.Get(ctx, *input.ParentID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.Invalid("parent_id", "references an unknown cost center")
				}
				return err
			}
			parent = &p
		}
		cc.Path, cc.Level = ChildPath(parent, cc.Code)
		var err error
		created, err = tx.Create(ctx, cc)
		return err
	})
	if err != nil {
		return CostCenter{}, err
	}
	return created, nil
}

// Update applies a partial update. Re-parenting rewrites level and path for the
// whole subtree in the same transaction.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (CostCenter, error) {
	if id <= 0 {
		return CostCenter{}, shared.Invalid("id", "must be a positive integer")
	}
	if err := shared.ValidateStruct(input); err != nil {
		return CostCenter{}, err
	}
	if input.ClearParent && input.ParentID != nil {
		return CostCenter{}, shared.Invalid("parent_id", "cannot be combined with clear_parent")
	}

	var updated CostCenter
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		next := current
		if err := applyFields(&next, input); err != nil {
			return err
		}

		reparent := input.ClearParent || (input.ParentID != nil && (current.ParentID == nil || *current.ParentID != *input.ParentID))
		if reparent {
			var parent *CostCenter
			if input.ParentID != nil {
				if *input.ParentID == current.ID {
					return shared.Invalid("parent_id", "a cost center cannot be its own parent")
				}
				p, err := tx.Get(ctx, *input.ParentID)
				if err != nil {
					if errors.Is(err, shared.ErrNotFound) {
						return shared.Invalid("parent_id", "references an unknown cost center")
					}
					return err
				}
				if IsDescendantPath(current.Path, p.Path) {
					return shared.Invalid("parent_id", "cannot move a cost center below its own descendant")
				}
				parent = &p
				next.ParentID = &p.ID
			} else {
				next.ParentID = nil
			}
			next.Path, next.Level = ChildPath(parent, current.Code)
		}

		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		if reparent && next.Path != current.Path {
			if err := s.rewriteSubtree(ctx, tx, current, next); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return CostCenter{}, err
	}
	return updated, nil
}

func (s *Service) rewriteSubtree(ctx context.Context, tx Repository, before, after CostCenter) error {
	descendants, err := tx.Descendants(ctx, before.Path)
	if err != nil {
		return err
	}
	delta := after.Level - before.Level
	for _, d := range descendants {
		d.Path = after.Path + strings.TrimPrefix(d.Path, before.Path)
		d.Level += delta
		if err := tx.Update(ctx, d); err != nil {
			return err
		}
	}
	if len(descendants) > 0 {
		s.logger.Info("cost center subtree moved",
			slog.Int64("cost_center_id", before.ID),
			slog.String("from", before.Path),
			slog.String("to", after.Path),
			slog.Int("descendants", len(descendants)))
	}
	return nil
}

func applyFields(cc *CostCenter, input UpdateInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return shared.Invalid("name", "is required")
		}
		cc.Name = name
	}
	if input.Budget != nil {
		if input.Budget.IsNegative() {
			return shared.Invalid("budget", "must not be negative")
		}
		cc.Budget = *input.Budget
	}
	if input.AllocatedBudget != nil {
		if input.AllocatedBudget.IsNegative() {
			return shared.Invalid("allocated_budget", "must not be negative")
		}
		cc.AllocatedBudget = *input.AllocatedBudget
	}
	if input.Department != nil {
		cc.Department = strings.TrimSpace(*input.Department)
	}
	if input.Manager != nil {
		cc.Manager = strings.TrimSpace(*input.Manager)
	}
	if input.Status != nil {
		cc.Status = *input.Status
	}
	return nil
}

// Delete removes a leaf cost center that nothing references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.Get(ctx, id); err != nil {
			return err
		}
		children, err := tx.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return shared.Conflict("cost center has %d child cost centers", children)
		}
		refs, err := tx.CountReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return shared.Conflict("cost center is referenced by %d records", refs)
		}
		return tx.Delete(ctx, id)
	})
}
