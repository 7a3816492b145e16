package revenues

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id int64) (Revenue, error) {
	if id <= 0 {
		return Revenue{}, shared.Invalid("id", "must be a positive integer")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, page shared.ListFilters) ([]Revenue, error) {
	return s.repo.List(ctx, filter, page.Normalize())
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Revenue, error) {
	input.Description = strings.TrimSpace(input.Description)
	input.Source = strings.TrimSpace(input.Source)
	if input.Recurrence == "" {
		input.Recurrence = RecurrenceNone
	}
	if err := shared.ValidateStruct(input); err != nil {
		return Revenue{}, err
	}
	if !input.Amount.IsPositive() {
		return Revenue{}, shared.Invalid("amount", "must be greater than 0")
	}
	date, err := shared.ParseDate("date", input.Date)
	if err != nil {
		return Revenue{}, err
	}
	rv := Revenue{
		Description:  input.Description,
		Source:       input.Source,
		Amount:       input.Amount,
		CostCenterID: input.CostCenterID,
		BudgetID:     input.BudgetID,
		FiscalYearID: input.FiscalYearID,
		Date:         date,
		Status:       StatusPending,
		Recurrence:   input.Recurrence,
		CreatedBy:    shared.ActorFromContext(ctx),
	}
	if next, ok := NextOccurrence(date, date.Day(), rv.Recurrence); ok {
		rv.NextRecurrenceDate = &next
	}
	var created Revenue
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = tx.Create(ctx, rv)
		return err
	})
	return created, err
}

// Confirm books a pending revenue and refreshes the totals of the groups it feeds.
func (s *Service) Confirm(ctx context.Context, id int64) (Revenue, error) {
	actor := shared.ActorFromContext(ctx)
	var out Revenue
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rv, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if rv.Status != StatusPending {
			return shared.Conflict("revenue %d is %s", id, rv.Status)
		}
		now := s.now().UTC()
		rv.Status = StatusConfirmed
		rv.ConfirmedBy = &actor
		rv.ConfirmedAt = &now
		if err := tx.Update(ctx, rv); err != nil {
			return err
		}
		if err := tx.RefreshGroupTotals(ctx, rv.CostCenterID); err != nil {
			return err
		}
		out = rv
		return nil
	})
	if err != nil {
		return Revenue{}, err
	}
	s.logger.Info("revenue confirmed", slog.Int64("revenue_id", id), slog.String("amount", out.Amount.StringFixed(2)))
	return out, nil
}

// Cancel withdraws a pending or confirmed revenue. Cancelling a recurring revenue
// also stops further occurrences.
func (s *Service) Cancel(ctx context.Context, id int64) (Revenue, error) {
	actor := shared.ActorFromContext(ctx)
	var out Revenue
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rv, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if rv.Status == StatusCancelled {
			return shared.Conflict("revenue %d is already cancelled", id)
		}
		wasConfirmed := rv.Status == StatusConfirmed
		now := s.now().UTC()
		rv.Status = StatusCancelled
		rv.CancelledBy = &actor
		rv.CancelledAt = &now
		rv.NextRecurrenceDate = nil
		if err := tx.Update(ctx, rv); err != nil {
			return err
		}
		if wasConfirmed {
			if err := tx.RefreshGroupTotals(ctx, rv.CostCenterID); err != nil {
				return err
			}
		}
		out = rv
		return nil
	})
	return out, err
}

// ProcessRecurring creates a pending copy for every occurrence due on or before asOf
// and advances each template's next date. A failing template is logged and skipped.
func (s *Service) ProcessRecurring(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.repo.DueRecurring(ctx, asOf)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "processing recurring revenues",
		slog.Int("due", len(due)), slog.String("as_of", asOf.Format(shared.DateLayout)))

	created := 0
	for _, template := range due {
		n, err := s.materialize(ctx, template.ID, asOf)
		if err != nil {
			s.logger.ErrorContext(ctx, "recurring revenue failed",
				slog.Int64("revenue_id", template.ID), slog.Any("error", err))
			continue
		}
		created += n
	}
	s.logger.InfoContext(ctx, "recurring revenue processing complete", slog.Int("created", created))
	return created, nil
}

func (s *Service) materialize(ctx context.Context, id int64, asOf time.Time) (int, error) {
	created := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created = 0
		template, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		anchor := template.Date.Day()
		for template.NextRecurrenceDate != nil && !template.NextRecurrenceDate.After(asOf) {
			occurrence := *template.NextRecurrenceDate
			fiscalYear, err := occurrenceFiscalYear(ctx, tx, template, occurrence)
			if err != nil {
				return err
			}
			if _, err := tx.Create(ctx, Revenue{
				Description:  template.Description,
				Source:       template.Source,
				Amount:       template.Amount,
				CostCenterID: template.CostCenterID,
				BudgetID:     template.BudgetID,
				FiscalYearID: fiscalYear,
				Date:         occurrence,
				Status:       StatusPending,
				Recurrence:   RecurrenceNone,
				CreatedBy:    template.CreatedBy,
			}); err != nil {
				return err
			}
			created++
			next, ok := NextOccurrence(occurrence, anchor, template.Recurrence)
			if !ok {
				template.NextRecurrenceDate = nil
				break
			}
			template.NextRecurrenceDate = &next
		}
		return tx.Update(ctx, template)
	})
	return created, err
}

// occurrenceFiscalYear books a copy into the fiscal year covering its date. Dates
// outside every configured year stay with the template's year.
func occurrenceFiscalYear(ctx context.Context, tx TxRepository, template Revenue, occurrence time.Time) (int64, error) {
	id, err := tx.FiscalYearAt(ctx, occurrence)
	if errors.Is(err, shared.ErrNotFound) {
		return template.FiscalYearID, nil
	}
	return id, err
}
