package businessgroups

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-budget/internal/companies"
	"github.com/odyssey-erp/odyssey-budget/internal/platform/db"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// Repository exposes read views plus a transactional entry point for writes.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetGroup(ctx context.Context, id int64) (Group, error)
	ListGroups(ctx context.Context, filters shared.ListFilters) ([]Group, error)
	CompaniesByGroup(ctx context.Context, groupID int64) ([]companies.Company, error)
	UnassignedCompanies(ctx context.Context) ([]companies.Company, error)
	GroupHistory(ctx context.Context, groupID int64) ([]Membership, error)
	CompanyHistory(ctx context.Context, companyID int64) ([]Membership, error)
	GroupIDs(ctx context.Context) ([]int64, error)
}

// TxRepository is only reachable inside WithTx.
type TxRepository interface {
	GetGroup(ctx context.Context, id int64) (Group, error)
	CreateGroup(ctx context.Context, g Group) (Group, error)
	UpdateGroup(ctx context.Context, g Group) error
	DeleteGroup(ctx context.Context, id int64) error
	// GetCompanyForUpdate locks the company row until the transaction ends.
	GetCompanyForUpdate(ctx context.Context, companyID int64) (companies.Company, error)
	// SetCompanyGroup writes the membership columns only if the company still has
	// expectedVersion; a lost race yields a ConflictError.
	SetCompanyGroup(ctx context.Context, companyID int64, groupID *int64, joinedAt *time.Time, expectedVersion int64) error
	InsertMembership(ctx context.Context, m Membership) (Membership, error)
	// Recount recomputes total_companies and total_revenue for every id in one statement.
	Recount(ctx context.Context, groupIDs ...int64) error
	CountCompanies(ctx context.Context, groupID int64) (int, error)
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

const groupColumns = `id, name, code, status, total_companies, total_revenue, headquarters,
contact_email, contact_phone, description, created_at, updated_at`

func scanGroup(row pgx.Row) (Group, error) {
	var (
		g       Group
		status  string
		revenue pgtype.Numeric
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Code, &status, &g.TotalCompanies, &revenue, &g.Headquarters,
		&g.ContactEmail, &g.ContactPhone, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return Group{}, err
	}
	g.Status = Status(status)
	g.TotalRevenue = db.Decimal(revenue)
	return g, nil
}

func (r *repository) GetGroup(ctx context.Context, id int64) (Group, error) {
	g, err := scanGroup(r.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM business_groups WHERE id = $1`, id))
	if err != nil {
		return Group{}, db.MapError("businessgroups: get", err)
	}
	return g, nil
}

func (r *repository) ListGroups(ctx context.Context, filters shared.ListFilters) ([]Group, error) {
	query := `SELECT ` + groupColumns + ` FROM business_groups WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		query += ` AND (name ILIKE $1 OR code ILIKE $1)`
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	dir := "ASC"
	if filters.SortDir == "desc" {
		dir = "DESC"
	}
	switch filters.SortBy {
	case "code", "total_companies", "total_revenue":
		query += ` ORDER BY ` + filters.SortBy + ` ` + dir + `, id`
	default:
		query += ` ORDER BY name ` + dir + `, id`
	}
	args = append(args, filters.Limit, filters.Offset())
	query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError("businessgroups: list", err)
	}
	defer rows.Close()
	groups := make([]Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, db.MapError("businessgroups: list", err)
		}
		groups = append(groups, g)
	}
	return groups, db.MapError("businessgroups: list", rows.Err())
}

func (r *repository) collectCompanies(ctx context.Context, op, query string, args ...any) ([]companies.Company, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	defer rows.Close()
	out := make([]companies.Company, 0)
	for rows.Next() {
		c, err := companies.ScanCompany(rows)
		if err != nil {
			return nil, db.MapError(op, err)
		}
		out = append(out, c)
	}
	return out, db.MapError(op, rows.Err())
}

func (r *repository) CompaniesByGroup(ctx context.Context, groupID int64) ([]companies.Company, error) {
	return r.collectCompanies(ctx, "businessgroups: companies by group",
		`SELECT `+companies.Columns()+` FROM companies WHERE business_group_id = $1 ORDER BY name, id`, groupID)
}

func (r *repository) UnassignedCompanies(ctx context.Context) ([]companies.Company, error) {
	return r.collectCompanies(ctx, "businessgroups: unassigned companies",
		`SELECT `+companies.Columns()+` FROM companies WHERE business_group_id IS NULL ORDER BY name, id`)
}

const membershipColumns = `id, business_group_id, company_id, action, previous_group_id, effective_date,
reason, created_by, created_at`

func (r *repository) history(ctx context.Context, op, where string, id int64) ([]Membership, error) {
	rows, err := r.db.Query(ctx, `SELECT `+membershipColumns+` FROM business_group_memberships
WHERE `+where+` = $1 ORDER BY created_at DESC, id DESC`, id)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	defer rows.Close()
	out := make([]Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, db.MapError(op, err)
		}
		out = append(out, m)
	}
	return out, db.MapError(op, rows.Err())
}

func scanMembership(row pgx.Row) (Membership, error) {
	var (
		m      Membership
		action string
	)
	if err := row.Scan(&m.ID, &m.BusinessGroupID, &m.CompanyID, &action, &m.PreviousGroupID,
		&m.EffectiveDate, &m.Reason, &m.CreatedBy, &m.CreatedAt); err != nil {
		return Membership{}, err
	}
	m.Action = Action(action)
	return m, nil
}

func (r *repository) GroupHistory(ctx context.Context, groupID int64) ([]Membership, error) {
	return r.history(ctx, "businessgroups: group history", "business_group_id", groupID)
}

func (r *repository) CompanyHistory(ctx context.Context, companyID int64) ([]Membership, error) {
	return r.history(ctx, "businessgroups: company history", "company_id", companyID)
}

func (r *repository) GroupIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM business_groups ORDER BY id`)
	if err != nil {
		return nil, db.MapError("businessgroups: ids", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, db.MapError("businessgroups: ids", err)
	}
	return ids, nil
}

func (r *repository) CreateGroup(ctx context.Context, g Group) (Group, error) {
	created, err := scanGroup(r.db.QueryRow(ctx, `INSERT INTO business_groups
(name, code, status, headquarters, contact_email, contact_phone, description)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+groupColumns,
		g.Name, g.Code, string(g.Status), g.Headquarters, g.ContactEmail, g.ContactPhone, g.Description))
	if err != nil {
		return Group{}, db.MapError("businessgroups: create", err)
	}
	return created, nil
}

func (r *repository) UpdateGroup(ctx context.Context, g Group) error {
	tag, err := r.db.Exec(ctx, `UPDATE business_groups SET name = $2, code = $3, status = $4,
headquarters = $5, contact_email = $6, contact_phone = $7, description = $8, updated_at = NOW()
WHERE id = $1`,
		g.ID, g.Name, g.Code, string(g.Status), g.Headquarters, g.ContactEmail, g.ContactPhone, g.Description)
	if err != nil {
		return db.MapError("businessgroups: update", err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("businessgroups: update", pgx.ErrNoRows)
	}
	return nil
}

func (r *repository) DeleteGroup(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM business_groups WHERE id = $1`, id)
	if err != nil {
		return db.MapError("businessgroups: delete", err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("businessgroups: delete", pgx.ErrNoRows)
	}
	return nil
}

func (r *repository) GetCompanyForUpdate(ctx context.Context, companyID int64) (companies.Company, error) {
	c, err := companies.ScanCompany(r.db.QueryRow(ctx,
		`SELECT `+companies.Columns()+` FROM companies WHERE id = $1 FOR UPDATE`, companyID))
	if err != nil {
		return companies.Company{}, db.MapError("businessgroups: lock company", err)
	}
	return c, nil
}

func (r *repository) SetCompanyGroup(ctx context.Context, companyID int64, groupID *int64, joinedAt *time.Time, expectedVersion int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE companies SET business_group_id = $2, joined_group_at = $3,
version = version + 1, updated_at = NOW() WHERE id = $1 AND version = $4`,
		companyID, groupID, joinedAt, expectedVersion)
	if err != nil {
		return db.MapError("businessgroups: set company group", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.Conflict("company %d was modified concurrently", companyID)
	}
	return nil
}

func (r *repository) InsertMembership(ctx context.Context, m Membership) (Membership, error) {
	created, err := scanMembership(r.db.QueryRow(ctx, `INSERT INTO business_group_memberships
(business_group_id, company_id, action, previous_group_id, effective_date, reason, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+membershipColumns,
		m.BusinessGroupID, m.CompanyID, string(m.Action), m.PreviousGroupID, m.EffectiveDate, m.Reason, m.CreatedBy))
	if err != nil {
		return Membership{}, db.MapError("businessgroups: insert membership", err)
	}
	return created, nil
}

// Revenue is attributed through the company/cost center join table; only confirmed revenue counts.
const recountSet = `UPDATE business_groups g SET
  total_companies = (SELECT COUNT(*) FROM companies c WHERE c.business_group_id = g.id),
  total_revenue = COALESCE((
    SELECT SUM(rv.amount) FROM revenues rv
    WHERE rv.status = 'confirmed' AND rv.cost_center_id IN (
      SELECT ccc.cost_center_id FROM company_cost_centers ccc
      JOIN companies c ON c.id = ccc.company_id
      WHERE c.business_group_id = g.id)), 0),
  updated_at = NOW()
`

func (r *repository) Recount(ctx context.Context, groupIDs ...int64) error {
	if len(groupIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, recountSet+`WHERE g.id = ANY($1)`, groupIDs)
	return db.MapError("businessgroups: recount", err)
}

// RecountForCostCenter refreshes the totals of every group owning a company linked to
// the cost center. It runs on the caller's transaction so revenue status changes and
// group totals commit together.
func RecountForCostCenter(ctx context.Context, tx db.DBTX, costCenterID int64) error {
	_, err := tx.Exec(ctx, recountSet+`WHERE g.id IN (
  SELECT c.business_group_id FROM companies c
  JOIN company_cost_centers ccc ON ccc.company_id = c.id
  WHERE ccc.cost_center_id = $1 AND c.business_group_id IS NOT NULL)`, costCenterID)
	return db.MapError("businessgroups: recount cost center", err)
}

func (r *repository) CountCompanies(ctx context.Context, groupID int64) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM companies WHERE business_group_id = $1`, groupID).Scan(&count); err != nil {
		return 0, db.MapError("businessgroups: count companies", err)
	}
	return count, nil
}
