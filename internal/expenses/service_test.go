package expenses

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type spend struct {
	budgetID int64
	category string
	amount   decimal.Decimal
}

type memoryRepo struct {
	items        map[int64]Expense
	nextID       int64
	budgetSpends []spend
	costCenter   map[int64]decimal.Decimal
	failCC       bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[int64]Expense{}, costCenter: map[int64]decimal.Decimal{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	items := make(map[int64]Expense, len(m.items))
	for k, v := range m.items {
		items[k] = v
	}
	spends := append([]spend(nil), m.budgetSpends...)
	cc := make(map[int64]decimal.Decimal, len(m.costCenter))
	for k, v := range m.costCenter {
		cc[k] = v
	}
	if err := fn(ctx, m); err != nil {
		m.items, m.budgetSpends, m.costCenter = items, spends, cc
		return err
	}
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Expense, error) {
	e, ok := m.items[id]
	if !ok {
		return Expense{}, fmt.Errorf("expenses: get: %w", shared.ErrNotFound)
	}
	return e, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, id int64) (Expense, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) List(ctx context.Context, filter Filter, page shared.ListFilters) ([]Expense, error) {
	out := make([]Expense, 0, len(m.items))
	for _, e := range m.items {
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryRepo) Create(ctx context.Context, e Expense) (Expense, error) {
	m.nextID++
	e.ID = m.nextID
	m.items[e.ID] = e
	return e, nil
}

func (m *memoryRepo) Update(ctx context.Context, e Expense) error {
	m.items[e.ID] = e
	return nil
}

func (m *memoryRepo) ApplyBudgetSpend(ctx context.Context, budgetID int64, category string, amount decimal.Decimal) error {
	m.budgetSpends = append(m.budgetSpends, spend{budgetID, category, amount})
	return nil
}

func (m *memoryRepo) AddCostCenterSpent(ctx context.Context, costCenterID int64, amount decimal.Decimal) error {
	if m.failCC {
		return shared.StoreFailure("expenses: cost center spent", errors.New("connection reset"))
	}
	m.costCenter[costCenterID] = m.costCenter[costCenterID].Add(amount)
	return nil
}

func validInput() CreateInput {
	return CreateInput{
		Description:  "Laptop",
		Category:     "Technology",
		Amount:       decimal.NewFromInt(1500),
		CostCenterID: 3,
		BudgetID:     7,
		FiscalYearID: 1,
		Date:         "2025-03-14",
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := shared.ContextWithActor(context.Background(), 5)

	in := validInput()
	in.Amount = decimal.Zero
	_, err := svc.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = validInput()
	in.Date = "14-03-2025"
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	e, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, e.Status)
	assert.Equal(t, int64(5), e.CreatedBy)
	assert.Equal(t, 14, e.Date.Day())
}

func TestApproveRollsUpSpent(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := shared.ContextWithActor(context.Background(), 8)
	e, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, int64(8), *approved.ApprovedBy)
	require.Len(t, repo.budgetSpends, 1)
	assert.Equal(t, spend{7, "Technology", decimal.NewFromInt(1500)}, repo.budgetSpends[0])
	assert.True(t, repo.costCenter[3].Equal(decimal.NewFromInt(1500)))

	_, err = svc.Approve(ctx, e.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
	assert.Len(t, repo.budgetSpends, 1, "second approval must not double count")
}

func TestApproveRollsBackOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	e, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	repo.failCC = true
	_, err = svc.Approve(ctx, e.ID)
	require.ErrorIs(t, err, shared.ErrStore)
	assert.Empty(t, repo.budgetSpends)
	assert.Equal(t, StatusPending, repo.items[e.ID].Status)
}

func TestReject(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	e, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Reject(ctx, e.ID, RejectInput{Reason: "  "})
	require.ErrorIs(t, err, shared.ErrValidation)

	rejected, err := svc.Reject(ctx, e.ID, RejectInput{Reason: "duplicate receipt"})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "duplicate receipt", rejected.RejectionReason)

	_, err = svc.Approve(ctx, e.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
	assert.Empty(t, repo.budgetSpends)
}
