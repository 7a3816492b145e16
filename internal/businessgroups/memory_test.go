package businessgroups

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-budget/internal/companies"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// memoryRepo honours the WithTx contract: a failing callback leaves no trace.
type memoryRepo struct {
	groups      map[int64]Group
	companies   map[int64]companies.Company
	memberships []Membership
	nextGroup   int64
	nextEntry   int64

	failRecount error
	beforeSet   func(companyID int64)
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{groups: map[int64]Group{}, companies: map[int64]companies.Company{}}
}

func (m *memoryRepo) addCompany(id int64, name string) {
	m.companies[id] = companies.Company{ID: id, Code: fmt.Sprintf("C%d", id), Name: name, Version: 1}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	groups := make(map[int64]Group, len(m.groups))
	for k, v := range m.groups {
		groups[k] = v
	}
	comps := make(map[int64]companies.Company, len(m.companies))
	for k, v := range m.companies {
		comps[k] = v
	}
	entries := append([]Membership(nil), m.memberships...)
	if err := fn(ctx, m); err != nil {
		m.groups, m.companies, m.memberships = groups, comps, entries
		return err
	}
	return nil
}

func (m *memoryRepo) GetGroup(ctx context.Context, id int64) (Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return Group{}, fmt.Errorf("businessgroups: get: %w", shared.ErrNotFound)
	}
	return g, nil
}

func (m *memoryRepo) ListGroups(ctx context.Context, filters shared.ListFilters) ([]Group, error) {
	out := make([]Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepo) filterCompanies(keep func(companies.Company) bool) []companies.Company {
	out := make([]companies.Company, 0)
	for _, c := range m.companies {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryRepo) CompaniesByGroup(ctx context.Context, groupID int64) ([]companies.Company, error) {
	return m.filterCompanies(func(c companies.Company) bool {
		return c.BusinessGroupID != nil && *c.BusinessGroupID == groupID
	}), nil
}

func (m *memoryRepo) UnassignedCompanies(ctx context.Context) ([]companies.Company, error) {
	return m.filterCompanies(func(c companies.Company) bool { return c.BusinessGroupID == nil }), nil
}

func (m *memoryRepo) historyWhere(keep func(Membership) bool) []Membership {
	out := make([]Membership, 0)
	for i := len(m.memberships) - 1; i >= 0; i-- {
		if keep(m.memberships[i]) {
			out = append(out, m.memberships[i])
		}
	}
	return out
}

func (m *memoryRepo) GroupHistory(ctx context.Context, groupID int64) ([]Membership, error) {
	return m.historyWhere(func(e Membership) bool { return e.BusinessGroupID == groupID }), nil
}

func (m *memoryRepo) CompanyHistory(ctx context.Context, companyID int64) ([]Membership, error) {
	return m.historyWhere(func(e Membership) bool { return e.CompanyID == companyID }), nil
}

func (m *memoryRepo) GroupIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(m.groups))
	for id := range m.groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memoryRepo) CreateGroup(ctx context.Context, g Group) (Group, error) {
	for _, existing := range m.groups {
		if existing.Code == g.Code {
			return Group{}, shared.Conflict("businessgroups: create: duplicate entry")
		}
	}
	m.nextGroup++
	g.ID = m.nextGroup
	g.TotalRevenue = decimal.Zero
	m.groups[g.ID] = g
	return g, nil
}

func (m *memoryRepo) UpdateGroup(ctx context.Context, g Group) error {
	current, ok := m.groups[g.ID]
	if !ok {
		return fmt.Errorf("businessgroups: update: %w", shared.ErrNotFound)
	}
	g.TotalCompanies, g.TotalRevenue = current.TotalCompanies, current.TotalRevenue
	m.groups[g.ID] = g
	return nil
}

func (m *memoryRepo) DeleteGroup(ctx context.Context, id int64) error {
	delete(m.groups, id)
	return nil
}

func (m *memoryRepo) GetCompanyForUpdate(ctx context.Context, companyID int64) (companies.Company, error) {
	c, ok := m.companies[companyID]
	if !ok {
		return companies.Company{}, fmt.Errorf("businessgroups: lock company: %w", shared.ErrNotFound)
	}
	return c, nil
}

func (m *memoryRepo) SetCompanyGroup(ctx context.Context, companyID int64, groupID *int64, joinedAt *time.Time, expectedVersion int64) error {
	if m.beforeSet != nil {
		m.beforeSet(companyID)
	}
	c := m.companies[companyID]
	if c.Version != expectedVersion {
		return shared.Conflict("company %d was modified concurrently", companyID)
	}
	c.BusinessGroupID, c.JoinedGroupAt = groupID, joinedAt
	c.Version++
	m.companies[companyID] = c
	return nil
}

func (m *memoryRepo) InsertMembership(ctx context.Context, e Membership) (Membership, error) {
	m.nextEntry++
	e.ID = m.nextEntry
	e.CreatedAt = e.EffectiveDate
	m.memberships = append(m.memberships, e)
	return e, nil
}

func (m *memoryRepo) Recount(ctx context.Context, groupIDs ...int64) error {
	for i, id := range groupIDs {
		if m.failRecount != nil && i == len(groupIDs)-1 && len(groupIDs) > 1 {
			return shared.StoreFailure("businessgroups: recount", m.failRecount)
		}
		g, ok := m.groups[id]
		if !ok {
			continue
		}
		count, _ := m.CountCompanies(ctx, id)
		g.TotalCompanies = count
		m.groups[id] = g
	}
	return nil
}

func (m *memoryRepo) CountCompanies(ctx context.Context, groupID int64) (int, error) {
	count := 0
	for _, c := range m.companies {
		if c.BusinessGroupID != nil && *c.BusinessGroupID == groupID {
			count++
		}
	}
	return count, nil
}

var errInjected = errors.New("injected store failure")
