package expenses

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-budget/internal/budgets"
	"github.com/odyssey-erp/odyssey-budget/internal/platform/db"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Expense, error)
	List(ctx context.Context, filter Filter, page shared.ListFilters) ([]Expense, error)
}

// TxRepository covers the writes that must commit together.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Expense, error)
	Create(ctx context.Context, e Expense) (Expense, error)
	Update(ctx context.Context, e Expense) error
	// ApplyBudgetSpend rolls an approved amount into the budget and its category.
	ApplyBudgetSpend(ctx context.Context, budgetID int64, category string, amount decimal.Decimal) error
	AddCostCenterSpent(ctx context.Context, costCenterID int64, amount decimal.Decimal) error
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
const Columns = `id, description, category, amount, cost_center_id, budget_id, fiscal_year_id, expense_date, status,
approved_by, approved_at, rejected_by, rejected_at, rejection_reason, created_by, created_at, updated_at`

// Scan reads one expense row selected with Columns.
func Scan(row pgx.Row) (Expense, error) {
	var (
		e                      Expense
		amount                 pgtype.Numeric
		status                 string
		approvedAt, rejectedAt pgtype.Timestamptz
	)
	if err := row.Scan(&e.ID, &e.Description, &e.Category, &amount, &e.CostCenterID, &e.BudgetID, &e.FiscalYearID,
		&e.Date, &status, &e.ApprovedBy, &approvedAt, &e.RejectedBy, &rejectedAt, &e.RejectionReason,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Expense{}, err
	}
	e.Amount = db.Decimal(amount)
	e.Status = Status(status)
	if approvedAt.Valid {
		t := approvedAt.Time
		e.ApprovedAt = &t
	}
	if rejectedAt.Valid {
		t := rejectedAt.Time
		e.RejectedAt = &t
	}
	return e, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Expense, error) {
	e, err := Scan(r.db.QueryRow(ctx, `SELECT `+Columns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		return Expense{}, db.MapError("expenses: get", err)
	}
	return e, nil
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (Expense, error) {
	e, err := Scan(r.db.QueryRow(ctx, `SELECT `+Columns+` FROM expenses WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Expense{}, db.MapError("expenses: lock", err)
	}
	return e, nil
}

func (r *repository) List(ctx context.Context, filter Filter, page shared.ListFilters) ([]Expense, error) {
	query, args := ListQuery(filter)
	if page.Limit > 0 {
		args = append(args, page.Limit, page.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError("expenses: list", err)
	}
	defer rows.Close()
	out := make([]Expense, 0)
	for rows.Next() {
		e, err := Scan(rows)
		if err != nil {
			return nil, db.MapError("expenses: list", err)
		}
		out = append(out, e)
	}
	return out, db.MapError("expenses: list", rows.Err())
}

// ListQuery builds the filtered select shared by the API listing and report snapshots.
func ListQuery(filter Filter) (string, []any) {
	query := `SELECT ` + Columns + ` FROM expenses WHERE 1=1`
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
		add("expense_date >=", *filter.From)
	}
	if filter.To != nil {
		add("expense_date <=", *filter.To)
	}
	return query + ` ORDER BY expense_date, id`, args
}

func (r *repository) Create(ctx context.Context, e Expense) (Expense, error) {
	created, err := Scan(r.db.QueryRow(ctx, `INSERT INTO expenses
(description, category, amount, cost_center_id, budget_id, fiscal_year_id, expense_date, status, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING `+Columns,
		e.Description, e.Category, db.Numeric(e.Amount), e.CostCenterID, e.BudgetID, e.FiscalYearID, e.Date,
		string(e.Status), e.CreatedBy))
	if err != nil {
		return Expense{}, db.MapError("expenses: create", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, e Expense) error {
	tag, err := r.db.Exec(ctx, `UPDATE expenses SET status = $2, approved_by = $3, approved_at = $4,
rejected_by = $5, rejected_at = $6, rejection_reason = $7, updated_at = NOW() WHERE id = $1`,
		e.ID, string(e.Status), e.ApprovedBy, e.ApprovedAt, e.RejectedBy, e.RejectedAt, e.RejectionReason)
	if err != nil {
		return db.MapError("expenses: update", err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("expenses: update", pgx.ErrNoRows)
	}
	return nil
}

func (r *repository) ApplyBudgetSpend(ctx context.Context, budgetID int64, category string, amount decimal.Decimal) error {
	_, err := budgets.Spend(ctx, r.db, budgetID, category, amount)
	return err
}

func (r *repository) AddCostCenterSpent(ctx context.Context, costCenterID int64, amount decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `UPDATE cost_centers SET spent = spent + $2, updated_at = NOW() WHERE id = $1`,
		costCenterID, db.Numeric(amount))
	if err != nil {
		return db.MapError("expenses: cost center spent", err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("expenses: cost center spent", pgx.ErrNoRows)
	}
	return nil
}
