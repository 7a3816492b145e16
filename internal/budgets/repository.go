package budgets

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-budget/internal/platform/db"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (Budget, error)
	GetForUpdate(ctx context.Context, id int64) (Budget, error)
	List(ctx context.Context, filter Filter, page shared.ListFilters) ([]Budget, error)
	Create(ctx context.Context, b Budget) (Budget, error)
	// Update persists scalar fields and replaces the category lines.
	Update(ctx context.Context, b Budget) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

// Spend applies an approved expense to a budget using a transaction owned by the caller.
func Spend(ctx context.Context, tx db.DBTX, budgetID int64, category string, amount decimal.Decimal) (Budget, error) {
	return ApplySpend(ctx, &repository{db: tx}, budgetID, category, amount)
}

const columns = `id, name, cost_center_id, fiscal_year_id, total_budget, spent, remaining, status, created_at, updated_at`

func scan(row pgx.Row) (Budget, error) {
	var (
		b                       Budget
		total, spent, remaining pgtype.Numeric
		status                  string
	)
	if err := row.Scan(&b.ID, &b.Name, &b.CostCenterID, &b.FiscalYearID, &total, &spent, &remaining, &status,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return Budget{}, err
	}
	b.TotalBudget = db.Decimal(total)
	b.Spent = db.Decimal(spent)
	b.Remaining = db.Decimal(remaining)
	b.Status = Status(status)
	return b, nil
}

func (r *repository) get(ctx context.Context, op, suffix string, id int64) (Budget, error) {
	b, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM budgets WHERE id = $1`+suffix, id))
	if err != nil {
		return Budget{}, db.MapError(op, err)
	}
	cats, err := r.categories(ctx, []int64{b.ID})
	if err != nil {
		return Budget{}, err
	}
	b.Categories = cats[b.ID]
	if b.Categories == nil {
		b.Categories = []Category{}
	}
	return b, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Budget, error) {
	return r.get(ctx, "budgets: get", "", id)
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (Budget, error) {
	return r.get(ctx, "budgets: lock", " FOR UPDATE", id)
}

func (r *repository) categories(ctx context.Context, ids []int64) (map[int64][]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT budget_id, name, budgeted, spent, percentage FROM budget_categories
WHERE budget_id = ANY($1) ORDER BY budget_id, position`, ids)
	if err != nil {
		return nil, db.MapError("budgets: categories", err)
	}
	defer rows.Close()
	out := make(map[int64][]Category, len(ids))
	for rows.Next() {
		var (
			budgetID        int64
			c               Category
			budgeted, spent pgtype.Numeric
			percentage      pgtype.Numeric
		)
		if err := rows.Scan(&budgetID, &c.Name, &budgeted, &spent, &percentage); err != nil {
			return nil, db.MapError("budgets: categories", err)
		}
		c.Budgeted = db.Decimal(budgeted)
		c.Spent = db.Decimal(spent)
		c.Percentage = db.Decimal(percentage).InexactFloat64()
		out[budgetID] = append(out[budgetID], c)
	}
	return out, db.MapError("budgets: categories", rows.Err())
}

func (r *repository) List(ctx context.Context, filter Filter, page shared.ListFilters) ([]Budget, error) {
	query := `SELECT ` + columns + ` FROM budgets WHERE 1=1`
	args := []any{}
	if filter.FiscalYearID != nil {
		args = append(args, *filter.FiscalYearID)
		query += ` AND fiscal_year_id = $` + strconv.Itoa(len(args))
	}
	if filter.CostCenterID != nil {
		args = append(args, *filter.CostCenterID)
		query += ` AND cost_center_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY id`
	if page.Limit > 0 {
		args = append(args, page.Limit, page.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError("budgets: list", err)
	}
	out := make([]Budget, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		b, err := scan(rows)
		if err != nil {
			rows.Close()
			return nil, db.MapError("budgets: list", err)
		}
		out = append(out, b)
		ids = append(ids, b.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, db.MapError("budgets: list", err)
	}
	if len(ids) == 0 {
		return out, nil
	}
	cats, err := r.categories(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Categories = cats[out[i].ID]
		if out[i].Categories == nil {
			out[i].Categories = []Category{}
		}
	}
	return out, nil
}

func (r *repository) Create(ctx context.Context, b Budget) (Budget, error) {
	created, err := scan(r.db.QueryRow(ctx, `INSERT INTO budgets
(name, cost_center_id, fiscal_year_id, total_budget, spent, remaining, status)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+columns,
		b.Name, b.CostCenterID, b.FiscalYearID, db.Numeric(b.TotalBudget), db.Numeric(b.Spent),
		db.Numeric(b.Remaining), string(b.Status)))
	if err != nil {
		return Budget{}, db.MapError("budgets: create", err)
	}
	if err := r.writeCategories(ctx, created.ID, b.Categories); err != nil {
		return Budget{}, err
	}
	created.Categories = b.Categories
	return created, nil
}

func (r *repository) Update(ctx context.Context, b Budget) error {
	tag, err := r.db.Exec(ctx, `UPDATE budgets SET name = $2, total_budget = $3, spent = $4, remaining = $5,
status = $6, updated_at = NOW() WHERE id = $1`,
		b.ID, b.Name, db.Numeric(b.TotalBudget), db.Numeric(b.Spent), db.Numeric(b.Remaining), string(b.Status))
	if err != nil {
		return db.MapError("budgets: update", err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("budgets: update", pgx.ErrNoRows)
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM budget_categories WHERE budget_id = $1`, b.ID); err != nil {
		return db.MapError("budgets: update categories", err)
	}
	return r.writeCategories(ctx, b.ID, b.Categories)
}

func (r *repository) writeCategories(ctx context.Context, budgetID int64, cats []Category) error {
	for i, c := range cats {
		_, err := r.db.Exec(ctx, `INSERT INTO budget_categories (budget_id, position, name, budgeted, spent, percentage)
VALUES ($1, $2, $3, $4, $5, $6)`,
			budgetID, i, c.Name, db.Numeric(c.Budgeted), db.Numeric(c.Spent), db.Numeric(decimal.NewFromFloat(c.Percentage)))
		if err != nil {
			return db.MapError("budgets: write categories", err)
		}
	}
	return nil
}
