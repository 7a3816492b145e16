package fiscalyears

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type memoryRepo struct {
	items  map[int64]FiscalYear
	nextID int64
}

func newMemoryRepo() *memoryRepo { return &memoryRepo{items: map[int64]FiscalYear{}} }

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snapshot := make(map[int64]FiscalYear, len(m.items))
	for k, v := range m.items {
		snapshot[k] = v
	}
	if err := fn(ctx, m); err != nil {
		m.items = snapshot
		return err
	}
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (FiscalYear, error) {
	fy, ok := m.items[id]
	if !ok {
		return FiscalYear{}, fmt.Errorf("fiscalyears: get: %w", shared.ErrNotFound)
	}
	return fy, nil
}

func (m *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]FiscalYear, error) {
	out := make([]FiscalYear, 0, len(m.items))
	for _, fy := range m.items {
		out = append(out, fy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out, nil
}

func (m *memoryRepo) Default(ctx context.Context) (FiscalYear, error) {
	for _, fy := range m.items {
		if fy.IsDefault {
			return fy, nil
		}
	}
	return FiscalYear{}, fmt.Errorf("fiscalyears: default: %w", shared.ErrNotFound)
}

func (m *memoryRepo) Create(ctx context.Context, fy FiscalYear) (FiscalYear, error) {
	m.nextID++
	fy.ID = m.nextID
	m.items[fy.ID] = fy
	return fy, nil
}

func (m *memoryRepo) Update(ctx context.Context, fy FiscalYear) error {
	current, ok := m.items[fy.ID]
	if !ok {
		return shared.ErrNotFound
	}
	fy.IsDefault = current.IsDefault
	m.items[fy.ID] = fy
	return nil
}

func (m *memoryRepo) SetDefault(ctx context.Context, id int64) error {
	for k, fy := range m.items {
		fy.IsDefault = k == id
		m.items[k] = fy
	}
	return nil
}

func countDefaults(repo *memoryRepo) int {
	n := 0
	for _, fy := range repo.items {
		if fy.IsDefault {
			n++
		}
	}
	return n
}

func mustCreate(t *testing.T, svc *Service, year int, isDefault bool) FiscalYear {
	t.Helper()
	fy, err := svc.Create(context.Background(), CreateInput{
		Year:      year,
		StartDate: fmt.Sprintf("%d-01-01", year),
		EndDate:   fmt.Sprintf("%d-12-31", year),
		IsDefault: isDefault,
	})
	require.NoError(t, err)
	return fy
}

func TestSetDefaultLeavesExactlyOneDefault(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	a := mustCreate(t, svc, 2024, true)
	b := mustCreate(t, svc, 2025, false)
	c := mustCreate(t, svc, 2026, false)
	require.Equal(t, 1, countDefaults(repo))

	for _, id := range []int64{b.ID, c.ID, c.ID, a.ID} {
		fy, err := svc.SetDefault(ctx, id)
		require.NoError(t, err)
		assert.True(t, fy.IsDefault)
		assert.Equal(t, 1, countDefaults(repo))
		current, err := svc.Default(ctx)
		require.NoError(t, err)
		assert.Equal(t, id, current.ID)
	}
}

func TestSetDefaultUnknownIDLeavesStateUntouched(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	a := mustCreate(t, svc, 2024, true)

	_, err := svc.SetDefault(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.True(t, repo.items[a.ID].IsDefault)
}

func TestCreateValidatesRange(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Year: 2025, StartDate: "2025-12-31", EndDate: "2025-01-01"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Year: 2025, StartDate: "31/12/2025", EndDate: "2025-01-01"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Year: 0, StartDate: "2025-01-01", EndDate: "2025-12-31"})
	require.ErrorIs(t, err, shared.ErrValidation)

	fy, err := svc.Create(ctx, CreateInput{Year: 2025, StartDate: "2025-01-01", EndDate: "2025-12-31"})
	require.NoError(t, err)
	assert.Equal(t, "FY 2025", fy.Name)
	assert.Equal(t, StatusPlanning, fy.Status)
}

func TestTransitionFollowsLifecycle(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()
	fy := mustCreate(t, svc, 2025, false)

	_, err := svc.Transition(ctx, fy.ID, TransitionInput{Status: StatusClosed})
	require.ErrorIs(t, err, shared.ErrConflict)

	for _, status := range []Status{StatusActive, StatusClosed, StatusArchived} {
		fy, err = svc.Transition(ctx, fy.ID, TransitionInput{Status: status})
		require.NoError(t, err)
		assert.Equal(t, status, fy.Status)
	}

	name := "renamed"
	_, err = svc.Update(ctx, fy.ID, UpdateInput{Name: &name})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateKeepsDefaultFlag(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	fy := mustCreate(t, svc, 2025, true)
	end := "2026-03-31"
	updated, err := svc.Update(context.Background(), fy.ID, UpdateInput{EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, 2026, updated.EndDate.Year())
	assert.True(t, repo.items[fy.ID].IsDefault)
}
