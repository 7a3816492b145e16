package businessgroups

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-budget/internal/companies"
	"github.com/odyssey-erp/odyssey-budget/internal/observability"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// Service owns every write to company membership columns, the ledger and the group counters.
type Service struct {
	repo    Repository
	logger  *slog.Logger
	metrics *observability.Domain
	now     func() time.Time
}

func NewService(repo Repository, logger *slog.Logger, metrics *observability.Domain) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, metrics: metrics, now: time.Now}
}

// Associate attaches a company to groupID. A company already in another group is
// re-associated: the previous group gets a left entry and both groups are recounted.
func (s *Service) Associate(ctx context.Context, input AssociateInput) (Membership, error) {
	input.Reason = strings.TrimSpace(input.Reason)
	if err := shared.ValidateStruct(input); err != nil {
		return Membership{}, err
	}
	actor := shared.ActorFromContext(ctx)

	var entry Membership
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := activeTarget(ctx, tx, "business_group_id", input.GroupID); err != nil {
			return err
		}
		company, err := tx.GetCompanyForUpdate(ctx, input.CompanyID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if err := tx.SetCompanyGroup(ctx, company.ID, &input.GroupID, &now, company.Version); err != nil {
			return err
		}
		recount := []int64{input.GroupID}
		var previous *int64
		if prev := company.BusinessGroupID; prev != nil && *prev != input.GroupID {
			previous = prev
			if _, err := tx.InsertMembership(ctx, Membership{
				BusinessGroupID: *prev,
				CompanyID:       company.ID,
				Action:          ActionLeft,
				EffectiveDate:   now,
				Reason:          input.Reason,
				CreatedBy:       actor,
			}); err != nil {
				return err
			}
			s.logger.Info("company re-associated",
				slog.Int64("company_id", company.ID),
				slog.Int64("previous_group_id", *prev),
				slog.Int64("group_id", input.GroupID))
			recount = append(recount, *prev)
		}
		entry, err = tx.InsertMembership(ctx, Membership{
			BusinessGroupID: input.GroupID,
			CompanyID:       company.ID,
			Action:          ActionJoined,
			PreviousGroupID: previous,
			EffectiveDate:   now,
			Reason:          input.Reason,
			CreatedBy:       actor,
		})
		if err != nil {
			return err
		}
		return tx.Recount(ctx, recount...)
	})
	s.observe("associate", err, input.CompanyID)
	return entry, err
}

// Dissociate detaches a company from its current group. A company without a group
// is a no-op and returns (nil, nil).
func (s *Service) Dissociate(ctx context.Context, input DissociateInput) (*Membership, error) {
	input.Reason = strings.TrimSpace(input.Reason)
	if err := shared.ValidateStruct(input); err != nil {
		return nil, err
	}
	actor := shared.ActorFromContext(ctx)

	var entry *Membership
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		company, err := tx.GetCompanyForUpdate(ctx, input.CompanyID)
		if err != nil {
			return err
		}
		if company.BusinessGroupID == nil {
			return nil
		}
		previous := *company.BusinessGroupID
		if err := tx.SetCompanyGroup(ctx, company.ID, nil, nil, company.Version); err != nil {
			return err
		}
		created, err := tx.InsertMembership(ctx, Membership{
			BusinessGroupID: previous,
			CompanyID:       company.ID,
			Action:          ActionLeft,
			EffectiveDate:   s.now().UTC(),
			Reason:          input.Reason,
			CreatedBy:       actor,
		})
		if err != nil {
			return err
		}
		entry = &created
		return tx.Recount(ctx, previous)
	})
	s.observe("dissociate", err, input.CompanyID)
	return entry, err
}

// Transfer moves a company from one group to another. The company update, both
// ledger entries and both recounts commit or roll back together.
func (s *Service) Transfer(ctx context.Context, input TransferInput) ([]Membership, error) {
	input.Reason = strings.TrimSpace(input.Reason)
	if err := shared.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.FromGroupID == input.ToGroupID {
		return nil, shared.Invalid("to_group_id", "must differ from from_group_id")
	}
	actor := shared.ActorFromContext(ctx)

	var entries []Membership
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := activeTarget(ctx, tx, "to_group_id", input.ToGroupID); err != nil {
			return err
		}
		company, err := tx.GetCompanyForUpdate(ctx, input.CompanyID)
		if err != nil {
			return err
		}
		if company.BusinessGroupID == nil || *company.BusinessGroupID != input.FromGroupID {
			return shared.Conflict("company %d is not a member of business group %d", company.ID, input.FromGroupID)
		}
		now := s.now().UTC()
		if err := tx.SetCompanyGroup(ctx, company.ID, &input.ToGroupID, &now, company.Version); err != nil {
			return err
		}
		from := input.FromGroupID
		for _, m := range []Membership{
			{BusinessGroupID: input.FromGroupID, Action: ActionTransferredFrom},
			{BusinessGroupID: input.ToGroupID, Action: ActionTransferredTo},
		} {
			m.CompanyID = company.ID
			m.PreviousGroupID = &from
			m.EffectiveDate = now
			m.Reason = input.Reason
			m.CreatedBy = actor
			created, err := tx.InsertMembership(ctx, m)
			if err != nil {
				return err
			}
			entries = append(entries, created)
		}
		return tx.Recount(ctx, input.FromGroupID, input.ToGroupID)
	})
	s.observe("transfer", err, input.CompanyID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func activeTarget(ctx context.Context, tx TxRepository, field string, groupID int64) (Group, error) {
	g, err := tx.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Group{}, shared.Invalid(field, "references an unknown business group")
		}
		return Group{}, err
	}
	if g.Status == StatusDissolved {
		return Group{}, shared.Invalid(field, "references a dissolved business group")
	}
	return g, nil
}

func (s *Service) observe(action string, err error, companyID int64) {
	s.metrics.ObserveMembership(action, err)
	if err != nil && !errors.Is(err, shared.ErrValidation) {
		s.logger.Warn("membership operation failed",
			slog.String("action", action),
			slog.Int64("company_id", companyID),
			slog.Any("error", err))
	}
}

func (s *Service) CreateGroup(ctx context.Context, input GroupInput) (Group, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Code = strings.TrimSpace(input.Code)
	if err := shared.ValidateStruct(input); err != nil {
		return Group{}, err
	}
	status := input.Status
	if status == "" {
		status = StatusActive
	}
	var created Group
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = tx.CreateGroup(ctx, Group{
			Name:         input.Name,
			Code:         input.Code,
			Status:       status,
			Headquarters: strings.TrimSpace(input.Headquarters),
			ContactEmail: strings.TrimSpace(input.ContactEmail),
			ContactPhone: strings.TrimSpace(input.ContactPhone),
			Description:  strings.TrimSpace(input.Description),
		})
		return err
	})
	return created, err
}

// UpdateGroup applies a partial update. Dissolving is refused while companies are attached.
func (s *Service) UpdateGroup(ctx context.Context, id int64, input GroupUpdate) (Group, error) {
	if id <= 0 {
		return Group{}, shared.Invalid("id", "must be a positive integer")
	}
	if err := shared.ValidateStruct(input); err != nil {
		return Group{}, err
	}
	var updated Group
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := tx.GetGroup(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			if g.Name = strings.TrimSpace(*input.Name); g.Name == "" {
				return shared.Invalid("name", "is required")
			}
		}
		if input.Code != nil {
			if g.Code = strings.TrimSpace(*input.Code); g.Code == "" {
				return shared.Invalid("code", "is required")
			}
		}
		if input.Status != nil && *input.Status != g.Status {
			if *input.Status == StatusDissolved {
				count, err := tx.CountCompanies(ctx, id)
				if err != nil {
					return err
				}
				if count > 0 {
					return shared.Conflict("group has associated companies")
				}
			}
			g.Status = *input.Status
		}
		if input.Headquarters != nil {
			g.Headquarters = strings.TrimSpace(*input.Headquarters)
		}
		if input.ContactEmail != nil {
			g.ContactEmail = strings.TrimSpace(*input.ContactEmail)
		}
		if input.ContactPhone != nil {
			g.ContactPhone = strings.TrimSpace(*input.ContactPhone)
		}
		if input.Description != nil {
			g.Description = strings.TrimSpace(*input.Description)
		}
		if err := tx.UpdateGroup(ctx, g); err != nil {
			return err
		}
		updated, err = tx.GetGroup(ctx, id)
		return err
	})
	return updated, err
}

// DeleteGroup refuses to delete a group that any company references. The count is
// taken inside the delete transaction rather than read from TotalCompanies.
func (s *Service) DeleteGroup(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetGroup(ctx, id); err != nil {
			return err
		}
		count, err := tx.CountCompanies(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return shared.Conflict("group has associated companies")
		}
		return tx.DeleteGroup(ctx, id)
	})
}

func (s *Service) GetGroup(ctx context.Context, id int64) (Group, error) {
	if id <= 0 {
		return Group{}, shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.GetGroup(ctx, id)
}

func (s *Service) ListGroups(ctx context.Context, filters shared.ListFilters) ([]Group, error) {
	return s.repo.ListGroups(ctx, filters.Normalize())
}

func (s *Service) CompaniesByGroup(ctx context.Context, groupID int64) ([]companies.Company, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.repo.CompaniesByGroup(ctx, groupID)
}

func (s *Service) UnassignedCompanies(ctx context.Context) ([]companies.Company, error) {
	return s.repo.UnassignedCompanies(ctx)
}

// MembershipHistory lists a group's ledger newest first. Entries outlive the group itself.
func (s *Service) MembershipHistory(ctx context.Context, groupID int64) ([]Membership, error) {
	if groupID <= 0 {
		return nil, shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.GroupHistory(ctx, groupID)
}

func (s *Service) CompanyHistory(ctx context.Context, companyID int64) ([]Membership, error) {
	if companyID <= 0 {
		return nil, shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.CompanyHistory(ctx, companyID)
}

// ReconcileCounters recomputes the derived counters of every group in one transaction
// and returns how many groups were touched.
func (s *Service) ReconcileCounters(ctx context.Context) (int, error) {
	ids, err := s.repo.GroupIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Recount(ctx, ids...)
	})
	if err != nil {
		s.logger.Error("reconcile group counters", slog.Any("error", err))
		return 0, err
	}
	s.logger.Info("group counters reconciled", slog.Int("groups", len(ids)))
	return len(ids), nil
}
