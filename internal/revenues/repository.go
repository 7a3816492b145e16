package revenues

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-budget/internal/businessgroups"
	"github.com/odyssey-erp/odyssey-budget/internal/platform/db"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Revenue, error)
	List(ctx context.Context, filter Filter, page shared.ListFilters) ([]Revenue, error)
	// DueRecurring lists non-cancelled recurring revenues whose next date is on or before asOf.
	DueRecurring(ctx context.Context, asOf time.Time) ([]Revenue, error)
}

type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Revenue, error)
	Create(ctx context.Context, rv Revenue) (Revenue, error)
	Update(ctx context.Context, rv Revenue) error
	// RefreshGroupTotals recounts the business groups reached through the cost center.
	RefreshGroupTotals(ctx context.Context, costCenterID int64) error
	// FiscalYearAt returns the fiscal year whose range covers date, or ErrNotFound.
	FiscalYearAt(ctx context.Context, date time.Time) (int64, error)
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

// Columns is the select list matching Scan.
const Columns = `id, description, source, amount, cost_center_id, budget_id, fiscal_year_id, revenue_date, status,
confirmed_by, confirmed_at, cancelled_by, cancelled_at, recurrence, next_recurrence_date, created_by, created_at, updated_at`

func Scan(row pgx.Row) (Revenue, error) {
	var (
		rv                     Revenue
		amount                 pgtype.Numeric
		status, recurrence     string
		confirmedAt, cancelled pgtype.Timestamptz
		next                   pgtype.Date
	)
	if err := row.Scan(&rv.ID, &rv.Description, &rv.Source, &amount, &rv.CostCenterID, &rv.BudgetID,
		&rv.FiscalYearID, &rv.Date, &status, &rv.ConfirmedBy, &confirmedAt, &rv.CancelledBy, &cancelled,
		&recurrence, &next, &rv.CreatedBy, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
		return Revenue{}, err
	}
	rv.Amount = db.Decimal(amount)
	rv.Status = Status(status)
	rv.Recurrence = Recurrence(recurrence)
	if confirmedAt.Valid {
		t := confirmedAt.Time
		rv.ConfirmedAt = &t
	}
	if cancelled.Valid {
		t := cancelled.Time
		rv.CancelledAt = &t
	}
	if next.Valid {
		t := next.Time
		rv.NextRecurrenceDate = &t
	}
	return rv, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Revenue, error) {
	rv, err := Scan(r.db.QueryRow(ctx, `SELECT `+Columns+` FROM revenues WHERE id = $1`, id))
	if err != nil {
		return Revenue{}, db.MapError("revenues: get", err)
	}
	return rv, nil
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (Revenue, error) {
	rv, err := Scan(r.db.QueryRow(ctx, `SELECT `+Columns+` FROM revenues WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Revenue{}, db.MapError("revenues: lock", err)
	}
	return rv, nil
}

func (r *repository) List(ctx context.Context, filter Filter, page shared.ListFilters) ([]Revenue, error) {
	query, args := ListQuery(filter)
	if page.Limit > 0 {
		args = append(args, page.Limit, page.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	return r.query(ctx, "revenues: list", query, args...)
}

func (r *repository) DueRecurring(ctx context.Context, asOf time.Time) ([]Revenue, error) {
	return r.query(ctx, "revenues: due recurring", `SELECT `+Columns+` FROM revenues
WHERE recurrence <> 'none' AND status <> 'cancelled' AND next_recurrence_date <= $1
ORDER BY next_recurrence_date, id`, asOf)
}

func (r *repository) query(ctx context.Context, op, query string, args ...any) ([]Revenue, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	defer rows.Close()
	out := make([]Revenue, 0)
	for rows.Next() {
		rv, err := Scan(rows)
		if err != nil {
			return nil, db.MapError(op, err)
		}
		out = append(out, rv)
	}
	return out, db.MapError(op, rows.Err())
}

// ListQuery builds the filtered select shared by the API listing and report snapshots.
func ListQuery(filter Filter) (string, []any) {
	query := `SELECT ` + Columns + ` FROM revenues WHERE 1=1`
	args := []any{}
	add := func(clause string, v any) {
		args = append(args, v)
		query += ` AND ` + clause + ` $` + strconv.Itoa(len(args))
	}
	if filter.FiscalYearID != nil {
		add("fiscal_year_id =", *filter.FiscalYearID)
	}
	if filter.CostCenterID != nil {
		add("cost_center_id =", *filter.CostCenterID)
	}
	if filter.BudgetID != nil {
		add("budget_id =", *filter.BudgetID)
	}
	if filter.Status != "" {
		add("status =", filter.Status)
	}
	if filter.From != nil {
		add("revenue_date >=", *filter.From)
	}
	if filter.To != nil {
		add("revenue_date <=", *filter.To)
	}
	return query + ` ORDER BY revenue_date, id`, args
}

func (r *repository) Create(ctx context.Context, rv Revenue) (Revenue, error) {
	created, err := Scan(r.db.QueryRow(ctx, `INSERT INTO revenues
(description, source, amount, cost_center_id, budget_id, fiscal_year_id, revenue_date, status, recurrence,
 next_recurrence_date, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING `+Columns,
		rv.Description, rv.Source, db.Numeric(rv.Amount), rv.CostCenterID, rv.BudgetID, rv.FiscalYearID, rv.Date,
		string(rv.Status), string(rv.Recurrence), rv.NextRecurrenceDate, rv.CreatedBy))
	if err != nil {
		return Revenue{}, db.MapError("revenues: create", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, rv Revenue) error {
	tag, err := r.db.Exec(ctx, `UPDATE revenues SET status = $2, confirmed_by = $3, confirmed_at = $4,
cancelled_by = $5, cancelled_at = $6, next_recurrence_date = $7, updated_at = NOW() WHERE id = $1`,
		rv.ID, string(rv.Status), rv.ConfirmedBy, rv.ConfirmedAt, rv.CancelledBy, rv.CancelledAt, rv.NextRecurrenceDate)
	if err != nil {
		return db.MapError("revenues: update", err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("revenues: update", pgx.ErrNoRows)
	}
	return nil
}

func (r *repository) RefreshGroupTotals(ctx context.Context, costCenterID int64) error {
	return businessgroups.RecountForCostCenter(ctx, r.db, costCenterID)
}

func (r *repository) FiscalYearAt(ctx context.Context, date time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM fiscal_years WHERE $1::date BETWEEN start_date AND end_date
ORDER BY id LIMIT 1`, date).Scan(&id)
	if err != nil {
		return 0, db.MapError("revenues: fiscal year at "+date.Format(shared.DateLayout), err)
	}
	return id, nil
}
