package fiscalyears

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-budget/internal/platform/db"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (FiscalYear, error)
	List(ctx context.Context, filters shared.ListFilters) ([]FiscalYear, error)
	// Default returns the default fiscal year or ErrNotFound when none is flagged.
	Default(ctx context.Context) (FiscalYear, error)
	Create(ctx context.Context, fy FiscalYear) (FiscalYear, error)
	Update(ctx context.Context, fy FiscalYear) error
	// SetDefault flips is_default for every row in a single statement.
	SetDefault(ctx context.Context, id int64) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const columns = `id, year, name, start_date, end_date, status, is_default, created_at, updated_at`

func scan(row pgx.Row) (FiscalYear, error) {
	var (
		fy     FiscalYear
		status string
	)
	if err := row.Scan(&fy.ID, &fy.Year, &fy.Name, &fy.StartDate, &fy.EndDate, &status, &fy.IsDefault,
		&fy.CreatedAt, &fy.UpdatedAt); err != nil {
		return FiscalYear{}, err
	}
	fy.Status = Status(status)
	return fy, nil
}

func (r *repository) Get(ctx context.Context, id int64) (FiscalYear, error) {
	fy, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM fiscal_years WHERE id = $1`, id))
	if err != nil {
		return FiscalYear{}, db.MapError("fiscalyears: get", err)
	}
	return fy, nil
}

func (r *repository) Default(ctx context.Context) (FiscalYear, error) {
	fy, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM fiscal_years WHERE is_default`))
	if err != nil {
		return FiscalYear{}, db.MapError("fiscalyears: default", err)
	}
	return fy, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]FiscalYear, error) {
	query := `SELECT ` + columns + ` FROM fiscal_years WHERE 1=1`
	args := []any{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		query += ` AND status = $1`
	}
	if filters.SortDir == "asc" && filters.SortBy == "year" {
		query += ` ORDER BY year ASC, id`
	} else {
		query += ` ORDER BY year DESC, id DESC`
	}
	args = append(args, filters.Limit, filters.Offset())
	query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError("fiscalyears: list", err)
	}
	defer rows.Close()
	out := make([]FiscalYear, 0)
	for rows.Next() {
		fy, err := scan(rows)
		if err != nil {
			return nil, db.MapError("fiscalyears: list", err)
		}
		out = append(out, fy)
	}
	return out, db.MapError("fiscalyears: list", rows.Err())
}

func (r *repository) Create(ctx context.Context, fy FiscalYear) (FiscalYear, error) {
	created, err := scan(r.db.QueryRow(ctx, `INSERT INTO fiscal_years (year, name, start_date, end_date, status)
VALUES ($1, $2, $3, $4, $5) RETURNING `+columns, fy.Year, fy.Name, fy.StartDate, fy.EndDate, string(fy.Status)))
	if err != nil {
		return FiscalYear{}, db.MapError("fiscalyears: create", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, fy FiscalYear) error {
	tag, err := r.db.Exec(ctx, `UPDATE fiscal_years SET name = $2, start_date = $3, end_date = $4, status = $5,
updated_at = NOW() WHERE id = $1`, fy.ID, fy.Name, fy.StartDate, fy.EndDate, string(fy.Status))
	if err != nil {
		return db.MapError("fiscalyears: update", err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("fiscalyears: update", pgx.ErrNoRows)
	}
	return nil
}

func (r *repository) SetDefault(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE fiscal_years SET is_default = (id = $1), updated_at = NOW()
WHERE is_default OR id = $1`, id)
	return db.MapError("fiscalyears: set default", err)
}
