package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/odyssey-budget/internal/jobs"
	"github.com/odyssey-erp/odyssey-budget/internal/reports"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

type fakeReconciler struct {
	n     int
	err   error
	calls int
}

func (f *fakeReconciler) ReconcileCounters(context.Context) (int, error) {
	f.calls++
	return f.n, f.err
}

type fakeRecurrence struct {
	asOf time.Time
}

func (f *fakeRecurrence) ProcessRecurring(_ context.Context, asOf time.Time) (int, error) {
	f.asOf = asOf
	return 2, nil
}

type fakeRunner struct {
	got reports.ExportRequest
	err error
}

func (f *fakeRunner) RunExport(_ context.Context, req reports.ExportRequest) error {
	f.got = req
	return f.err
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestGroupsReconcileJob(t *testing.T) {
	svc := &fakeReconciler{n: 4}
	job := NewGroupsReconcileJob(svc, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Handle(context.Background(), NewGroupsReconcileTask()))
	assert.Equal(t, 1, svc.calls)

	svc.err = errors.New("db down")
	assert.Error(t, job.Handle(context.Background(), NewGroupsReconcileTask()))
}

func TestRecurringRevenueJobUsesPayloadDate(t *testing.T) {
	svc := &fakeRecurrence{}
	job := NewRecurringRevenueJob(svc, nil, nil)
	asOf := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	task, err := NewRecurringRevenueTask(asOf)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.True(t, svc.asOf.Equal(asOf))

	fixed := time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return fixed }
	task, _ = NewRecurringRevenueTask(time.Time{})
	require.NoError(t, job.Handle(context.Background(), task))
	assert.True(t, svc.asOf.Equal(fixed))
}

func TestRecurringRevenueJobRejectsGarbage(t *testing.T) {
	job := NewRecurringRevenueJob(&fakeRecurrence{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskRecurringRevenue, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestReportExportJobSkipsRetryOnValidation(t *testing.T) {
	runner := &fakeRunner{}
	job := NewReportExportJob(runner, nil, nil)
	req := reports.ExportRequest{ID: "exp-1", Report: reports.TypeExecution, Format: "csv"}
	task, err := NewReportExportTask(req)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, "exp-1", runner.got.ID)

	runner.err = shared.Invalid("format", "unsupported")
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)

	runner.err = shared.StoreFailure("reports: put", errors.New("redis gone"))
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestClientEnqueueExport(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := NewClientWith(fake)
	req := reports.ExportRequest{ID: "exp-9", Report: reports.TypeTrend, Format: "pdf"}
	require.NoError(t, client.EnqueueExport(context.Background(), req))
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TaskReportExport, fake.tasks[0].Type())

	var decoded reports.ExportRequest
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &decoded))
	assert.Equal(t, "exp-9", decoded.ID)

	fake.err = asynq.ErrTaskIDConflict
	assert.ErrorIs(t, client.EnqueueExport(context.Background(), req), shared.ErrConflict)
}

func TestClientTrigger(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := NewClientWith(fake)
	id, err := client.Trigger(context.Background(), TaskGroupsReconcile)
	require.NoError(t, err)
	assert.Equal(t, "t-1", id)

	_, err = client.Trigger(context.Background(), "mail:send")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

type fakeInspector map[string]*asynq.QueueInfo

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	info, ok := f[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func TestHealthReportsQueues(t *testing.T) {
	h := NewHandler(fakeInspector{QueueDefault: {Queue: QueueDefault, Pending: 3, Retry: 1}}, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body []queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, 3, body[0].Pending)
	assert.Equal(t, 1, body[0].Failed)
	assert.Equal(t, QueueReports, body[1].Queue)
}
