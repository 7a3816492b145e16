package costcenters

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-budget/internal/platform/db"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// Repository persists cost centers.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (CostCenter, error)
	List(ctx context.Context, filters shared.ListFilters) ([]CostCenter, error)
	ListAll(ctx context.Context) ([]CostCenter, error)
	Create(ctx context.Context, cc CostCenter) (CostCenter, error)
	Update(ctx context.Context, cc CostCenter) error
	Descendants(ctx context.Context, path string) ([]CostCenter, error)
	CountChildren(ctx context.Context, id int64) (int, error)
	CountReferences(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const selectColumns = `SELECT id, name, code, parent_id, level, path, budget, spent, allocated_budget,
department, manager, status, created_at, updated_at FROM cost_centers`

func scanCostCenter(row pgx.Row) (CostCenter, error) {
	var (
		cc                       CostCenter
		budget, spent, allocated pgtype.Numeric
		status                   string
	)
	err := row.Scan(&cc.ID, &cc.Name, &cc.Code, &cc.ParentID, &cc.Level, &cc.Path,
		&budget, &spent, &allocated, &cc.Department, &cc.Manager, &status, &cc.CreatedAt, &cc.UpdatedAt)
	if err != nil {
		return CostCenter{}, err
	}
	cc.Budget = db.Decimal(budget)
	cc.Spent = db.Decimal(spent)
	cc.AllocatedBudget = db.Decimal(allocated)
	cc.Status = Status(status)
	return cc, nil
}

func (r *repository) collect(ctx context.Context, op, query string, args ...any) ([]CostCenter, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	defer rows.Close()
	out := make([]CostCenter, 0)
	for rows.Next() {
		cc, err := scanCostCenter(rows)
		if err != nil {
			return nil, db.MapError(op, err)
		}
		out = append(out, cc)
	}
	return out, db.MapError(op, rows.Err())
}

func (r *repository) Get(ctx context.Context, id int64) (CostCenter, error) {
	cc, err := scanCostCenter(r.db.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if err != nil {
		return CostCenter{}, db.MapError("costcenters: get", err)
	}
	return cc, nil
}

// List uses a dynamic query because of the optional filters.
func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]CostCenter, error) {
	query := selectColumns + ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		query += ` AND (name ILIKE $` + strconv.Itoa(len(args)) + ` OR code ILIKE $` + strconv.Itoa(len(args)) + `)`
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	args = append(args, filters.Limit, filters.Offset())
	query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	return r.collect(ctx, "costcenters: list", query, args...)
}

func sortOrder(by, dir string) string {
	column := "path"
	switch by {
	case "name", "code", "level", "department":
		column = by
	}
	if dir == "desc" {
		return column + " DESC, id DESC"
	}
	return column + " ASC, id ASC"
}

// ListAll returns every cost center in id order, which is the order the hierarchy builder preserves.
func (r *repository) ListAll(ctx context.Context) ([]CostCenter, error) {
	return r.collect(ctx, "costcenters: list all", selectColumns+` ORDER BY id`)
}

func (r *repository) Create(ctx context.Context, cc CostCenter) (CostCenter, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO cost_centers
(name, code, parent_id, level, path, budget, spent, allocated_budget, department, manager, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, name, code, parent_id, level, path, budget, spent, allocated_budget, department, manager, status, created_at, updated_at`,
		cc.Name, cc.Code, cc.ParentID, cc.Level, cc.Path, db.Numeric(cc.Budget), db.Numeric(cc.Spent),
		db.Numeric(cc.AllocatedBudget), cc.Department, cc.Manager, string(cc.Status))
	created, err := scanCostCenter(row)
	if err != nil {
		return CostCenter{}, db.MapError("costcenters: create", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, cc CostCenter) error {
	tag, err := r.db.Exec(ctx, `UPDATE cost_centers SET name = $2, parent_id = $3, level = $4, path = $5,
budget = $6, allocated_budget = $7, department = $8, manager = $9, status = $10, updated_at = NOW()
WHERE id = $1`,
		cc.ID, cc.Name, cc.ParentID, cc.Level, cc.Path, db.Numeric(cc.Budget), db.Numeric(cc.AllocatedBudget),
		cc.Department, cc.Manager, string(cc.Status))
	if err != nil {
		return db.MapError("costcenters: update", err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("costcenters: update", pgx.ErrNoRows)
	}
	return nil
}

func (r *repository) Descendants(ctx context.Context, path string) ([]CostCenter, error) {
	return r.collect(ctx, "costcenters: descendants",
		selectColumns+` WHERE starts_with(path, $1) ORDER BY level, id`, path+PathSeparator)
}

func (r *repository) CountChildren(ctx context.Context, id int64) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cost_centers WHERE parent_id = $1`, id).Scan(&count); err != nil {
		return 0, db.MapError("costcenters: count children", err)
	}
	return count, nil
}

func (r *repository) CountReferences(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT
 (SELECT COUNT(*) FROM budgets WHERE cost_center_id = $1)
 + (SELECT COUNT(*) FROM expenses WHERE cost_center_id = $1)
 + (SELECT COUNT(*) FROM revenues WHERE cost_center_id = $1)
 + (SELECT COUNT(*) FROM company_cost_centers WHERE cost_center_id = $1)`, id).Scan(&count)
	if err != nil {
		return 0, db.MapError("costcenters: count references", err)
	}
	return count, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cost_centers WHERE id = $1`, id)
	if err != nil {
		return db.MapError("costcenters: delete", err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("costcenters: delete", pgx.ErrNoRows)
	}
	return nil
}
