package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-budget/internal/reports"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueReports carries report exports so slow renders do not starve maintenance jobs.
	QueueReports = "reports"

	// TaskGroupsReconcile recomputes business group counters.
	TaskGroupsReconcile = "groups:reconcile"
	// TaskRecurringRevenue materializes due recurring revenues.
	TaskRecurringRevenue = "revenues:recurring"
	// TaskReportExport renders a queued report export.
	TaskReportExport = "reports:export"
)

// RecurringRevenuePayload pins the processing date. A zero AsOf means "today".
type RecurringRevenuePayload struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// NewGroupsReconcileTask constructs the reconcile task.
func NewGroupsReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskGroupsReconcile, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
}

// NewRecurringRevenueTask constructs the recurring revenue task.
func NewRecurringRevenueTask(asOf time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(RecurringRevenuePayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecurringRevenue, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewReportExportTask wraps an export request. The request ID doubles as the
// task ID so a duplicate enqueue is rejected by the broker.
func NewReportExportTask(req reports.ExportRequest) (*asynq.Task, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportExport, body,
		asynq.Queue(QueueReports),
		asynq.TaskID(req.ID),
		asynq.MaxRetry(2),
		asynq.Timeout(2*time.Minute),
	), nil
}
