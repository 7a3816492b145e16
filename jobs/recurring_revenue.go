package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-budget/internal/jobs"
)

// RecurrenceProcessor materializes due recurring revenues.
type RecurrenceProcessor interface {
	ProcessRecurring(ctx context.Context, asOf time.Time) (int, error)
}

// RecurringRevenueJob runs the daily recurrence sweep.
type RecurringRevenueJob struct {
	Service RecurrenceProcessor
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewRecurringRevenueJob constructs the job handler.
func NewRecurringRevenueJob(service RecurrenceProcessor, logger *slog.Logger, metrics *jobmetrics.Metrics) *RecurringRevenueJob {
	return &RecurringRevenueJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the sweep.
func (j *RecurringRevenueJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Service == nil {
		return errors.New("recurring revenue: dependencies not configured")
	}
	var payload RecurringRevenuePayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.now()
	}

	tracker := j.Metrics.Track(TaskRecurringRevenue)
	defer func() { err = tracker.End(err) }()

	created, err := j.Service.ProcessRecurring(ctx, asOf)
	if err != nil {
		logger(j.Logger).Error("recurring revenue", slog.Any("error", err))
		return err
	}
	j.Metrics.AddItems(TaskRecurringRevenue, created)
	return nil
}

func (j *RecurringRevenueJob) now() time.Time {
	if j.clock == nil {
		return time.Now().UTC()
	}
	return j.clock()
}
