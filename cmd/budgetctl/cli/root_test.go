package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-budget/internal/costcenters"
	"github.com/odyssey-erp/odyssey-budget/internal/fiscalyears"
)

type stubYears struct{ got int64 }

func (s *stubYears) SetDefault(_ context.Context, id int64) (fiscalyears.FiscalYear, error) {
	s.got = id
	return fiscalyears.FiscalYear{ID: id, Year: 2024}, nil
}

type stubGroups struct{}

func (stubGroups) ReconcileCounters(context.Context) (int, error) { return 3, nil }

type stubTree struct{}

func (stubTree) Tree(context.Context) ([]*costcenters.CostCenter, error) {
	child := &costcenters.CostCenter{Code: "DEV", Name: "Development", Budget: decimal.NewFromInt(500)}
	return []*costcenters.CostCenter{{Code: "TI", Name: "Technology", Budget: decimal.NewFromInt(1000), Children: []*costcenters.CostCenter{child}}}, nil
}

type stubJobs struct{ err error }

func (s stubJobs) Trigger(_ context.Context, name string) (string, error) {
	return "task-1", s.err
}

func run(t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	released := false
	root := NewRootCmd(func(context.Context) (*Deps, func(), error) {
		return deps, func() { released = true }, nil
	})
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		assert.True(t, released)
	}
	return out.String(), err
}

func TestSetDefaultFiscalYear(t *testing.T) {
	years := &stubYears{}
	out, err := run(t, &Deps{FiscalYears: years}, "fiscal-year", "set-default", "7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), years.got)
	assert.Contains(t, out, "fiscal year 7 (2024) is now the default")

	_, err = run(t, &Deps{FiscalYears: years}, "fiscal-year", "set-default", "abc")
	assert.Error(t, err)
}

func TestGroupsReconcile(t *testing.T) {
	out, err := run(t, &Deps{Groups: stubGroups{}}, "groups", "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "reconciled 3 groups")
}

func TestCostCentersTree(t *testing.T) {
	out, err := run(t, &Deps{CostCenters: stubTree{}}, "cost-centers", "tree")
	require.NoError(t, err)
	assert.Contains(t, out, "TI  Technology  budget=1000.00")
	assert.Contains(t, out, "\n  DEV  Development  budget=500.00")
}

func TestJobsTrigger(t *testing.T) {
	out, err := run(t, &Deps{Jobs: stubJobs{}}, "jobs", "trigger", "groups:reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "enqueued groups:reconcile as task-1")

	_, err = run(t, &Deps{Jobs: stubJobs{err: errors.New("redis down")}}, "jobs", "trigger", "groups:reconcile")
	assert.EqualError(t, err, "redis down")
}

func TestMigrate(t *testing.T) {
	called := false
	out, err := run(t, &Deps{Migrate: func() error { called = true; return nil }}, "migrate")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, out, "migrations applied")
}
