package reports

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-budget/internal/fiscalyears"
	"github.com/odyssey-erp/odyssey-budget/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-budget/internal/reports/export"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

const requestTimeout = 15 * time.Second

// DefaultYear resolves the fiscal year used when a request names none.
type DefaultYear interface {
	Default(ctx context.Context) (fiscalyears.FiscalYear, error)
}

// Enqueuer hands an export to the background worker.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, req ExportRequest) error
}

type Handler struct {
	logger   *slog.Logger
	service  *Service
	years    DefaultYear
	enqueuer Enqueuer
}

func NewHandler(logger *slog.Logger, service *Service, years DefaultYear, enqueuer Enqueuer) *Handler {
	return &Handler{logger: logger, service: service, years: years, enqueuer: enqueuer}
}

// MountRoutes attaches /reports routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/artifacts/{name}", h.artifact)
	r.Get("/exports/{id}", h.exportStatus)
	r.Get("/{type}", h.generate)
	r.Post("/{type}/export", h.export)
}

func (h *Handler) filters(r *http.Request) (Filters, error) {
	f, err := ParseFilters(r.URL.Query())
	if err != nil {
		return Filters{}, err
	}
	if f.FiscalYearID == 0 && h.years != nil {
		fy, err := h.years.Default(r.Context())
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return Filters{}, err
		}
		f.FiscalYearID = fy.ID
	}
	return f.Normalize()
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	report, err := ParseType(chi.URLParam(r, "type"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	f, err := h.filters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rows, err := h.service.Generate(ctx, report, f)
	if err != nil {
		h.logger.Error("generate report failed", slog.String("report", string(report)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

type exportBody struct {
	Format string `json:"format" validate:"required,oneof=pdf excel csv"`
	Async  bool   `json:"async"`
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	report, err := ParseType(chi.URLParam(r, "type"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var body exportBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := shared.ValidateStruct(body); err != nil {
		httpx.RespondError(w, err)
		return
	}
	f, err := h.filters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if body.Async && h.enqueuer != nil {
		req, err := h.service.QueueExport(r.Context(), ExportRequest{Report: report, Format: body.Format, Filters: f})
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		if err := h.enqueuer.EnqueueExport(r.Context(), req); err != nil {
			h.logger.Error("enqueue export failed", slog.Any("error", err))
			httpx.RespondError(w, shared.StoreFailure("reports: enqueue export", err))
			return
		}
		w.Header().Set("Location", "/api/v1/reports/exports/"+req.ID)
		httpx.JSON(w, http.StatusAccepted, ExportStatus{ID: req.ID, Report: report, Format: body.Format, State: ExportPending})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	artifact, err := h.service.Export(ctx, report, f, export.Format(body.Format))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/reports/artifacts/"+artifact.Name)
	httpx.JSON(w, http.StatusCreated, artifact)
}

func (h *Handler) artifact(w http.ResponseWriter, r *http.Request) {
	artifact, data, err := h.service.Artifact(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+artifact.Name+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) exportStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.ExportStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}
