package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-budget/internal/jobs"
)

// GroupReconciler recomputes derived group counters.
type GroupReconciler interface {
	ReconcileCounters(ctx context.Context) (int, error)
}

// GroupsReconcileJob repairs company_count and total_revenue drift.
type GroupsReconcileJob struct {
	Service GroupReconciler
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewGroupsReconcileJob constructs the job handler.
func NewGroupsReconcileJob(service GroupReconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *GroupsReconcileJob {
	return &GroupsReconcileJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle executes the reconcile.
func (j *GroupsReconcileJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Service == nil {
		return errors.New("groups reconcile: dependencies not configured")
	}
	tracker := j.Metrics.Track(TaskGroupsReconcile)
	defer func() { err = tracker.End(err) }()

	n, err := j.Service.ReconcileCounters(ctx)
	if err != nil {
		logger(j.Logger).Error("groups reconcile", slog.Any("error", err))
		return err
	}
	j.Metrics.AddItems(TaskGroupsReconcile, n)
	logger(j.Logger).Info("groups reconcile complete", slog.Int("groups", n))
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
