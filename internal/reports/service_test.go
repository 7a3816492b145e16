package reports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-budget/internal/budgets"
	"github.com/odyssey-erp/odyssey-budget/internal/costcenters"
	"github.com/odyssey-erp/odyssey-budget/internal/expenses"
	"github.com/odyssey-erp/odyssey-budget/internal/observability"
	"github.com/odyssey-erp/odyssey-budget/internal/reports/export"
	"github.com/odyssey-erp/odyssey-budget/internal/revenues"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type staticLoader struct {
	mu    sync.Mutex
	snap  Snapshot
	err   error
	calls []Filters
}

func (l *staticLoader) Load(ctx context.Context, f Filters) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, f)
	return l.snap, l.err
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		CostCenters: []costcenters.CostCenter{{ID: 7, Name: "Engineering", Department: "R&D"}},
		Budgets: []budgets.Budget{{ID: 1, Name: "Eng", CostCenterID: 7, FiscalYearID: 1,
			TotalBudget: d(800000), Spent: d(620000)}},
		Expenses: []expenses.Expense{approved(1, 7, 1, "Technology", 620000, date(time.March, 3))},
		Revenues: []revenues.Revenue{confirmed(1, 7, 1, 900000, date(time.April, 1))},
	}
}

type fixture struct {
	svc      *Service
	loader   *staticLoader
	mr       *miniredis.Miniredis
	registry *prometheus.Registry
}

// counter reads one labelled sample from the fixture registry.
func (fx *fixture) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := fx.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func newFixture(t *testing.T, renderers export.Registry) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	if renderers == nil {
		renderers = export.Registry{export.FormatCSV: export.CSVRenderer{}, export.FormatExcel: export.ExcelRenderer{}}
	}
	loader := &staticLoader{snap: sampleSnapshot()}
	registry := prometheus.NewRegistry()
	svc := NewService(loader, renderers, NewArtifactStore(client, time.Hour), observability.NewDomain(registry),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC) }
	return &fixture{svc: svc, loader: loader, mr: mr, registry: registry}
}

func TestParseFilters(t *testing.T) {
	f, err := ParseFilters(url.Values{
		"fiscal_year_id": {"3"}, "cost_center_id": {"all"}, "start_date": {"2025-01-01"}, "period": {"Quarterly"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.FiscalYearID)
	assert.Nil(t, f.CostCenterID)
	require.NotNil(t, f.StartDate)
	assert.Equal(t, PeriodQuarterly, f.Period)

	_, err = ParseFilters(url.Values{"cost_center_id": {"x"}})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = ParseFilters(url.Values{"start_date": {"01/02/2025"}})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestFiltersNormalize(t *testing.T) {
	_, err := Filters{}.Normalize()
	require.ErrorIs(t, err, shared.ErrValidation)

	start, end := date(time.June, 1), date(time.May, 1)
	_, err = Filters{FiscalYearID: 1, StartDate: &start, EndDate: &end}.Normalize()
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = Filters{FiscalYearID: 1, Period: "weekly"}.Normalize()
	require.ErrorIs(t, err, shared.ErrValidation)

	f, err := Filters{FiscalYearID: 1}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PeriodMonthly, f.Period)
}

func TestServiceRecomputesOnEveryCall(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	first, err := fx.svc.BudgetExecution(ctx, Filters{FiscalYearID: 1})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 77.5, first[0].Utilization)

	fx.loader.snap.Budgets[0].Spent = d(880000)
	second, err := fx.svc.BudgetExecution(ctx, Filters{FiscalYearID: 1})
	require.NoError(t, err)
	assert.Equal(t, 110.0, second[0].Utilization)
	assert.Equal(t, ExecutionExceeded, second[0].Status)
	assert.Len(t, fx.loader.calls, 2)
	assert.Equal(t, 2.0, fx.counter(t, "budget_report_generations_total", map[string]string{"report": "execution", "outcome": "success"}))
}

func TestServiceGenerateAllTypes(t *testing.T) {
	fx := newFixture(t, nil)
	for _, report := range []Type{TypeExecution, TypeVariance, TypeCashFlow, TypeDepartments, TypeTrend} {
		rows, err := fx.svc.Generate(context.Background(), report, Filters{FiscalYearID: 1})
		require.NoError(t, err, report)
		assert.NotNil(t, rows, report)
	}
	_, err := fx.svc.Generate(context.Background(), "pivot", Filters{FiscalYearID: 1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestServicePropagatesLoaderFailure(t *testing.T) {
	fx := newFixture(t, nil)
	fx.loader.err = shared.StoreFailure("budgets: list", errors.New("connection refused"))
	_, err := fx.svc.CashFlow(context.Background(), Filters{FiscalYearID: 1})
	require.ErrorIs(t, err, shared.ErrStore)
}

func TestServiceEmptySnapshot(t *testing.T) {
	fx := newFixture(t, nil)
	fx.loader.snap = Snapshot{}
	rows, err := fx.svc.DepartmentPerformance(context.Background(), Filters{FiscalYearID: 1})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

var artifactPattern = regexp.MustCompile(`^execution-20250301-[0-9a-f-]{36}\.csv$`)

func TestExportStoresRetrievableArtifact(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	artifact, err := fx.svc.Export(ctx, TypeExecution, Filters{FiscalYearID: 1}, export.FormatCSV)
	require.NoError(t, err)
	assert.Regexp(t, artifactPattern, artifact.Name)
	assert.Equal(t, "text/csv", artifact.ContentType)

	stored, data, err := fx.svc.Artifact(ctx, artifact.Name)
	require.NoError(t, err)
	assert.Equal(t, artifact.Name, stored.Name)
	assert.Equal(t, artifact.Size, len(data))
	assert.True(t, strings.HasPrefix(string(data), "Budget,Cost Center,Total Budget"))
	assert.Contains(t, string(data), "77.50")

	fx.mr.FastForward(2 * time.Hour)
	_, _, err = fx.svc.Artifact(ctx, artifact.Name)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestExportViaGotenberg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer srv.Close()
	fx := newFixture(t, export.Registry{export.FormatPDF: &export.PDFRenderer{Endpoint: srv.URL}})

	artifact, err := fx.svc.Export(context.Background(), TypeTrend, Filters{FiscalYearID: 1}, export.FormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(artifact.Name, ".pdf"))
	_, data, err := fx.svc.Artifact(context.Background(), artifact.Name)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 fake", string(data))
	assert.Equal(t, 1.0, fx.counter(t, "budget_report_exports_total", map[string]string{"format": "pdf", "outcome": "success"}))
}

// gatedRenderer blocks every render until release is closed and fails if its
// context was cancelled in the meantime.
type gatedRenderer struct {
	export.CSVRenderer
	started chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	renders int
}

func (g *gatedRenderer) Render(ctx context.Context, table export.Table) ([]byte, error) {
	g.mu.Lock()
	g.renders++
	g.mu.Unlock()
	g.once.Do(func() { close(g.started) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.CSVRenderer.Render(ctx, table)
}

func TestExportSharedRenderSurvivesFirstCallerCancel(t *testing.T) {
	gate := &gatedRenderer{started: make(chan struct{}), release: make(chan struct{})}
	fx := newFixture(t, export.Registry{export.FormatCSV: gate})
	f := Filters{FiscalYearID: 1}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := fx.svc.Export(firstCtx, TypeExecution, f, export.FormatCSV)
		firstErr <- err
	}()
	<-gate.started

	type result struct {
		artifact Artifact
		err      error
	}
	second := make(chan result, 1)
	go func() {
		artifact, err := fx.svc.Export(context.Background(), TypeExecution, f, export.FormatCSV)
		second <- result{artifact, err}
	}()
	// Let the second caller join the in-flight render.
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(gate.release)

	res := <-second
	require.NoError(t, res.err)
	_, data, err := fx.svc.Artifact(context.Background(), res.artifact.Name)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Budget,Cost Center,Total Budget"))
	gate.mu.Lock()
	defer gate.mu.Unlock()
	assert.Equal(t, 1, gate.renders)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.svc.Export(context.Background(), TypeExecution, Filters{FiscalYearID: 1}, export.FormatPDF)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAsyncExportLifecycle(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	req, err := fx.svc.QueueExport(ctx, ExportRequest{Report: TypeVariance, Format: "excel", Filters: Filters{FiscalYearID: 1}})
	require.NoError(t, err)
	require.NotEmpty(t, req.ID)

	status, err := fx.svc.ExportStatus(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, ExportPending, status.State)

	require.NoError(t, fx.svc.RunExport(ctx, req))
	status, err = fx.svc.ExportStatus(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, ExportReady, status.State)
	require.NotNil(t, status.Artifact)
	assert.True(t, strings.HasSuffix(status.Artifact.Name, ".xlsx"))

	_, err = fx.svc.ExportStatus(ctx, "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAsyncExportRecordsFailure(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	req, err := fx.svc.QueueExport(ctx, ExportRequest{Report: TypeExecution, Format: "csv", Filters: Filters{FiscalYearID: 1}})
	require.NoError(t, err)

	fx.loader.err = shared.StoreFailure("expenses: list", errors.New("timeout"))
	require.Error(t, fx.svc.RunExport(ctx, req))

	status, err := fx.svc.ExportStatus(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, ExportFailed, status.State)
	assert.Contains(t, status.Error, "timeout")
}

func TestQueueExportValidates(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.svc.QueueExport(context.Background(), ExportRequest{Report: TypeExecution, Format: "docx", Filters: Filters{FiscalYearID: 1}})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = fx.svc.QueueExport(context.Background(), ExportRequest{Report: TypeExecution, Format: "csv"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

type fakeSources struct {
	budgetFilter budgets.Filter
	expFilter    expenses.Filter
	revFilter    revenues.Filter
	fail         error
}

func (f *fakeSources) ListAll(ctx context.Context) ([]costcenters.CostCenter, error) {
	return []costcenters.CostCenter{{ID: 1}}, nil
}

type budgetsFake struct{ *fakeSources }

func (b budgetsFake) List(ctx context.Context, filter budgets.Filter, page shared.ListFilters) ([]budgets.Budget, error) {
	b.budgetFilter = filter
	return []budgets.Budget{{ID: 1}}, nil
}

type expensesFake struct{ *fakeSources }

func (e expensesFake) List(ctx context.Context, filter expenses.Filter, page shared.ListFilters) ([]expenses.Expense, error) {
	e.expFilter = filter
	return nil, e.fail
}

type revenuesFake struct{ *fakeSources }

func (r revenuesFake) List(ctx context.Context, filter revenues.Filter, page shared.ListFilters) ([]revenues.Revenue, error) {
	r.revFilter = filter
	return []revenues.Revenue{{ID: 1}}, nil
}

func TestStoreLoaderScopesQueries(t *testing.T) {
	src := &fakeSources{}
	loader := NewStoreLoader(src, budgetsFake{src}, expensesFake{src}, revenuesFake{src})
	cc := int64(4)
	snap, err := loader.Load(context.Background(), Filters{FiscalYearID: 2, CostCenterID: &cc})
	require.NoError(t, err)
	assert.Len(t, snap.CostCenters, 1)
	assert.Len(t, snap.Revenues, 1)
	assert.Equal(t, int64(2), *src.budgetFilter.FiscalYearID)
	assert.Equal(t, string(expenses.StatusApproved), src.expFilter.Status)
	assert.Equal(t, string(revenues.StatusConfirmed), src.revFilter.Status)
	assert.Equal(t, int64(4), *src.revFilter.CostCenterID)

	src.fail = shared.StoreFailure("expenses: list", errors.New("boom"))
	_, err = loader.Load(context.Background(), Filters{FiscalYearID: 2})
	require.ErrorIs(t, err, shared.ErrStore)
}
