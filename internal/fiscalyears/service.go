package fiscalyears

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// Service manages fiscal years and the single-default invariant.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Get(ctx context.Context, id int64) (FiscalYear, error) {
	if id <= 0 {
		return FiscalYear{}, shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]FiscalYear, error) {
	return s.repo.List(ctx, filters.Normalize())
}

// Default returns the fiscal year flagged as default.
func (s *Service) Default(ctx context.Context) (FiscalYear, error) {
	return s.repo.Default(ctx)
}

// SetDefault makes id the only default fiscal year.
func (s *Service) SetDefault(ctx context.Context, id int64) (FiscalYear, error) {
	if id <= 0 {
		return FiscalYear{}, shared.Invalid("id", "must be a positive integer")
	}
	var fy FiscalYear
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.Get(ctx, id); err != nil {
			return err
		}
		if err := tx.SetDefault(ctx, id); err != nil {
			return err
		}
		var err error
		fy, err = tx.Get(ctx, id)
		return err
	})
	if err != nil {
		return FiscalYear{}, err
	}
	s.logger.Info("default fiscal year changed", slog.Int64("fiscal_year_id", id), slog.Int("year", fy.Year))
	return fy, nil
}

func (s *Service) Create(ctx context.Context, input CreateInput) (FiscalYear, error) {
	if err := shared.ValidateStruct(input); err != nil {
		return FiscalYear{}, err
	}
	start, end, err := parseRange(input.StartDate, input.EndDate)
	if err != nil {
		return FiscalYear{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "FY " + strconv.Itoa(input.Year)
	}

	var created FiscalYear
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		var err error
		created, err = tx.Create(ctx, FiscalYear{
			Year:      input.Year,
			Name:      name,
			StartDate: start,
			EndDate:   end,
			Status:    StatusPlanning,
		})
		if err != nil || !input.IsDefault {
			return err
		}
		if err := tx.SetDefault(ctx, created.ID); err != nil {
			return err
		}
		created.IsDefault = true
		return nil
	})
	return created, err
}

func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (FiscalYear, error) {
	if id <= 0 {
		return FiscalYear{}, shared.Invalid("id", "must be a positive integer")
	}
	if err := shared.ValidateStruct(input); err != nil {
		return FiscalYear{}, err
	}
	var updated FiscalYear
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		fy, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if fy.Status == StatusArchived {
			return shared.Conflict("fiscal year %d is archived", id)
		}
		if input.Name != nil {
			if fy.Name = strings.TrimSpace(*input.Name); fy.Name == "" {
				return shared.Invalid("name", "is required")
			}
		}
		startRaw, endRaw := fy.StartDate.Format(shared.DateLayout), fy.EndDate.Format(shared.DateLayout)
		if input.StartDate != nil {
			startRaw = *input.StartDate
		}
		if input.EndDate != nil {
			endRaw = *input.EndDate
		}
		if fy.StartDate, fy.EndDate, err = parseRange(startRaw, endRaw); err != nil {
			return err
		}
		if err := tx.Update(ctx, fy); err != nil {
			return err
		}
		updated = fy
		return nil
	})
	return updated, err
}

// Transition advances the status one step along planning, active, closed, archived.
func (s *Service) Transition(ctx context.Context, id int64, input TransitionInput) (FiscalYear, error) {
	if err := shared.ValidateStruct(input); err != nil {
		return FiscalYear{}, err
	}
	var updated FiscalYear
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		fy, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if next[fy.Status] != input.Status {
			return shared.Conflict("fiscal year cannot move from %s to %s", fy.Status, input.Status)
		}
		fy.Status = input.Status
		if err := tx.Update(ctx, fy); err != nil {
			return err
		}
		updated = fy
		return nil
	})
	return updated, err
}

func parseRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := shared.ParseDate("start_date", startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := shared.ParseDate("end_date", endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, shared.Invalid("end_date", "must be after start_date")
	}
	return start, end, nil
}
