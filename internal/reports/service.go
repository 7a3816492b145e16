package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-budget/internal/observability"
	"github.com/odyssey-erp/odyssey-budget/internal/reports/export"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// Type names one of the five reports; the value doubles as the URL segment.
type Type string

const (
	TypeExecution   Type = "execution"
	TypeVariance    Type = "variance"
	TypeCashFlow    Type = "cash-flow"
	TypeDepartments Type = "departments"
	TypeTrend       Type = "trend"
)

func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case TypeExecution, TypeVariance, TypeCashFlow, TypeDepartments, TypeTrend:
		return t, nil
	default:
		return "", shared.Invalid("report", "unknown report type")
	}
}

// exportTimeout bounds a shared render once it no longer follows any caller's context.
const exportTimeout = 2 * time.Minute

// Service loads a snapshot per call and runs the matching generator. Results are
// never cached.
type Service struct {
	loader    Loader
	renderers export.Registry
	artifacts *ArtifactStore
	metrics   *observability.Domain
	logger    *slog.Logger
	exports   singleflight.Group
	now       func() time.Time
}

func NewService(loader Loader, renderers export.Registry, artifacts *ArtifactStore, metrics *observability.Domain, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		loader:    loader,
		renderers: renderers,
		artifacts: artifacts,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

func run[T any](ctx context.Context, s *Service, report Type, f Filters, gen func(Snapshot, Filters) []T) (rows []T, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveReport(string(report), start, err) }()

	f, err = f.Normalize()
	if err != nil {
		return nil, err
	}
	snap, err := s.loader.Load(ctx, f)
	if err != nil {
		return nil, err
	}
	if snap.empty() {
		return []T{}, nil
	}
	return gen(snap, f), nil
}

func (s *Service) BudgetExecution(ctx context.Context, f Filters) ([]ExecutionRow, error) {
	return run(ctx, s, TypeExecution, f, BudgetExecution)
}

func (s *Service) VarianceAnalysis(ctx context.Context, f Filters) ([]VarianceRow, error) {
	return run(ctx, s, TypeVariance, f, VarianceAnalysis)
}

func (s *Service) CashFlow(ctx context.Context, f Filters) ([]CashFlowRow, error) {
	return run(ctx, s, TypeCashFlow, f, CashFlow)
}

func (s *Service) DepartmentPerformance(ctx context.Context, f Filters) ([]DepartmentRow, error) {
	return run(ctx, s, TypeDepartments, f, DepartmentPerformance)
}

func (s *Service) TrendAnalysis(ctx context.Context, f Filters) ([]TrendRow, error) {
	return run(ctx, s, TypeTrend, f, TrendAnalysis)
}

// Generate runs a report by type and returns its rows, used by the HTTP layer.
func (s *Service) Generate(ctx context.Context, report Type, f Filters) (any, error) {
	switch report {
	case TypeExecution:
		return s.BudgetExecution(ctx, f)
	case TypeVariance:
		return s.VarianceAnalysis(ctx, f)
	case TypeCashFlow:
		return s.CashFlow(ctx, f)
	case TypeDepartments:
		return s.DepartmentPerformance(ctx, f)
	case TypeTrend:
		return s.TrendAnalysis(ctx, f)
	default:
		return nil, shared.Invalid("report", "unknown report type")
	}
}

func (s *Service) table(ctx context.Context, report Type, f Filters) (export.Table, error) {
	rows, err := s.Generate(ctx, report, f)
	if err != nil {
		return export.Table{}, err
	}
	switch v := rows.(type) {
	case []ExecutionRow:
		return executionTable(v), nil
	case []VarianceRow:
		return varianceTable(v), nil
	case []CashFlowRow:
		return cashFlowTable(v), nil
	case []DepartmentRow:
		return departmentTable(v), nil
	case []TrendRow:
		return trendTable(v), nil
	}
	return export.Table{}, fmt.Errorf("reports: no table for %s", report)
}

// ArtifactName builds <report>-<yyyymmdd>-<uuid>.<ext>.
func ArtifactName(report Type, at time.Time, ext string) string {
	return fmt.Sprintf("%s-%s-%s.%s", report, at.UTC().Format("20060102"), uuid.NewString(), ext)
}

// Export renders a report and stores it as a named artifact. Identical concurrent
// exports share a single render.
func (s *Service) Export(ctx context.Context, report Type, f Filters, format export.Format) (artifact Artifact, err error) {
	defer func() { s.metrics.ObserveExport(string(format), err) }()

	renderer, err := s.renderers.Lookup(format)
	if err != nil {
		return Artifact{}, shared.Invalid("format", err.Error())
	}
	if s.artifacts == nil {
		return Artifact{}, shared.StoreFailure("reports: export", fmt.Errorf("artifact store not configured"))
	}
	f, err = f.Normalize()
	if err != nil {
		return Artifact{}, err
	}

	key := strings.Join([]string{string(report), string(format), f.Key()}, "|")
	ch := s.exports.DoChan(key, func() (any, error) {
		// Callers that joined later must not fail because the first one gave up.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exportTimeout)
		defer cancel()
		table, err := s.table(ctx, report, f)
		if err != nil {
			return nil, err
		}
		data, err := renderer.Render(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("reports: render %s: %w", format, err)
		}
		now := s.now().UTC()
		artifact := Artifact{
			Name:        ArtifactName(report, now, renderer.Extension()),
			Report:      report,
			Format:      string(format),
			ContentType: renderer.ContentType(),
			Size:        len(data),
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.artifacts.TTL()),
		}
		if err := s.artifacts.Put(ctx, artifact, data); err != nil {
			return nil, err
		}
		return artifact, nil
	})
	select {
	case <-ctx.Done():
		return Artifact{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.logger.Warn("report export failed", slog.String("report", string(report)),
				slog.String("format", string(format)), slog.Any("error", res.Err))
			return Artifact{}, res.Err
		}
		artifact = res.Val.(Artifact)
		s.logger.Info("report exported", slog.String("artifact", artifact.Name), slog.Bool("shared", res.Shared))
		return artifact, nil
	}
}

// Artifact returns a stored export by name.
func (s *Service) Artifact(ctx context.Context, name string) (Artifact, []byte, error) {
	if s.artifacts == nil {
		return Artifact{}, nil, fmt.Errorf("reports: artifact %s: %w", name, shared.ErrNotFound)
	}
	return s.artifacts.Get(ctx, name)
}

// ExportRequest is the payload of an asynchronous export.
type ExportRequest struct {
	ID      string  `json:"id"`
	Report  Type    `json:"report"`
	Format  string  `json:"format"`
	Filters Filters `json:"filters"`
}

// QueueExport validates the request and records it as pending. The caller hands
// the request to the job queue afterwards.
func (s *Service) QueueExport(ctx context.Context, req ExportRequest) (ExportRequest, error) {
	if _, err := s.renderers.Lookup(export.Format(req.Format)); err != nil {
		return ExportRequest{}, shared.Invalid("format", err.Error())
	}
	f, err := req.Filters.Normalize()
	if err != nil {
		return ExportRequest{}, err
	}
	req.Filters = f
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if s.artifacts == nil {
		return ExportRequest{}, shared.StoreFailure("reports: queue export", fmt.Errorf("artifact store not configured"))
	}
	err = s.artifacts.SetStatus(ctx, ExportStatus{
		ID: req.ID, Report: req.Report, Format: req.Format, State: ExportPending, UpdatedAt: s.now().UTC(),
	})
	return req, err
}

// RunExport executes a queued export and records its outcome.
func (s *Service) RunExport(ctx context.Context, req ExportRequest) error {
	if s.artifacts == nil {
		return shared.StoreFailure("reports: run export", fmt.Errorf("artifact store not configured"))
	}
	status := ExportStatus{ID: req.ID, Report: req.Report, Format: req.Format}
	artifact, err := s.Export(ctx, req.Report, req.Filters, export.Format(req.Format))
	status.UpdatedAt = s.now().UTC()
	if err != nil {
		status.State = ExportFailed
		status.Error = err.Error()
	} else {
		status.State = ExportReady
		status.Artifact = &artifact
	}
	if serr := s.artifacts.SetStatus(ctx, status); serr != nil {
		return serr
	}
	return err
}

func (s *Service) ExportStatus(ctx context.Context, id string) (ExportStatus, error) {
	if s.artifacts == nil {
		return ExportStatus{}, fmt.Errorf("reports: export %s: %w", id, shared.ErrNotFound)
	}
	return s.artifacts.Status(ctx, id)
}
