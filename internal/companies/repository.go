package companies

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-budget/internal/platform/db"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// Repository persists companies and their cost center links.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, filters shared.ListFilters) ([]Company, int, error)
	Get(ctx context.Context, id int64) (Company, error)
	Create(ctx context.Context, company Company) (Company, error)
	Update(ctx context.Context, id int64, input Input) error
	Delete(ctx context.Context, id int64) error
	LinkCostCenter(ctx context.Context, companyID, costCenterID int64) error
	UnlinkCostCenter(ctx context.Context, companyID, costCenterID int64) error
	CostCenters(ctx context.Context, companyID int64) ([]CostCenterLink, error)
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

const companyColumns = `id, code, name, address, tax_id, business_group_id, joined_group_at, version, created_at, updated_at`

// ScanCompany reads a row selected with the canonical company column list.
func ScanCompany(row pgx.Row) (Company, error) {
	var (
		c        Company
		joinedAt pgtype.Timestamptz
	)
	if err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Address, &c.TaxID, &c.BusinessGroupID,
		&joinedAt, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Company{}, err
	}
	if joinedAt.Valid {
		t := joinedAt.Time
		c.JoinedGroupAt = &t
	}
	return c, nil
}

// Columns exposes the column list matching ScanCompany.
func Columns() string { return companyColumns }

// List uses a dynamic query because of the optional filters.
func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Company, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (name ILIKE $1 OR code ILIKE $1)`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM companies`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.MapError("companies: count", err)
	}

	query := `SELECT ` + companyColumns + ` FROM companies` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	args = append(args, filters.Limit, filters.Offset())
	query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.MapError("companies: list", err)
	}
	defer rows.Close()

	companies := make([]Company, 0)
	for rows.Next() {
		c, err := ScanCompany(rows)
		if err != nil {
			return nil, 0, db.MapError("companies: list", err)
		}
		companies = append(companies, c)
	}
	return companies, total, db.MapError("companies: list", rows.Err())
}

func (r *repository) Get(ctx context.Context, id int64) (Company, error) {
	c, err := ScanCompany(r.db.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		return Company{}, db.MapError("companies: get", err)
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, company Company) (Company, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO companies (code, name, address, tax_id)
VALUES ($1, $2, $3, $4) RETURNING `+companyColumns,
		company.Code, company.Name, company.Address, company.TaxID)
	c, err := ScanCompany(row)
	if err != nil {
		return Company{}, db.MapError("companies: create", err)
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, id int64, input Input) error {
	tag, err := r.db.Exec(ctx, `UPDATE companies SET code = $2, name = $3, address = $4, tax_id = $5,
version = version + 1, updated_at = NOW() WHERE id = $1`,
		id, input.Code, input.Name, input.Address, input.TaxID)
	if err != nil {
		return db.MapError("companies: update", err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("companies: update", pgx.ErrNoRows)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return db.MapError("companies: delete", err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("companies: delete", pgx.ErrNoRows)
	}
	return nil
}

func (r *repository) LinkCostCenter(ctx context.Context, companyID, costCenterID int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO company_cost_centers (company_id, cost_center_id) VALUES ($1, $2)`,
		companyID, costCenterID)
	return db.MapError("companies: link cost center", err)
}

func (r *repository) UnlinkCostCenter(ctx context.Context, companyID, costCenterID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM company_cost_centers WHERE company_id = $1 AND cost_center_id = $2`,
		companyID, costCenterID)
	if err != nil {
		return db.MapError("companies: unlink cost center", err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("companies: unlink cost center", pgx.ErrNoRows)
	}
	return nil
}

func (r *repository) CostCenters(ctx context.Context, companyID int64) ([]CostCenterLink, error) {
	rows, err := r.db.Query(ctx, `SELECT company_id, cost_center_id, created_at FROM company_cost_centers
WHERE company_id = $1 ORDER BY cost_center_id`, companyID)
	if err != nil {
		return nil, db.MapError("companies: cost centers", err)
	}
	defer rows.Close()
	links := make([]CostCenterLink, 0)
	for rows.Next() {
		var l CostCenterLink
		if err := rows.Scan(&l.CompanyID, &l.CostCenterID, &l.CreatedAt); err != nil {
			return nil, db.MapError("companies: cost centers", err)
		}
		links = append(links, l)
	}
	return links, db.MapError("companies: cost centers", rows.Err())
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "code " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
