package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-budget/internal/jobs"
	"github.com/odyssey-erp/odyssey-budget/internal/reports"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// ExportRunner renders a queued export and records its status.
type ExportRunner interface {
	RunExport(ctx context.Context, req reports.ExportRequest) error
}

// ReportExportJob renders exports off the request path.
type ReportExportJob struct {
	Service ExportRunner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReportExportJob constructs the job handler.
func NewReportExportJob(service ExportRunner, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportExportJob {
	return &ReportExportJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle executes one export. Validation failures are not retried.
func (j *ReportExportJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Service == nil {
		return errors.New("report export: dependencies not configured")
	}
	var req reports.ExportRequest
	if err := json.Unmarshal(task.Payload(), &req); err != nil || req.ID == "" {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskReportExport)
	defer func() { err = tracker.End(err) }()

	if err = j.Service.RunExport(ctx, req); err != nil {
		logger(j.Logger).Error("report export",
			slog.String("export_id", req.ID), slog.String("report", string(req.Report)), slog.Any("error", err))
		if errors.Is(err, shared.ErrValidation) || errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}
