package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-budget/internal/budgets"
	"github.com/odyssey-erp/odyssey-budget/internal/businessgroups"
	"github.com/odyssey-erp/odyssey-budget/internal/companies"
	"github.com/odyssey-erp/odyssey-budget/internal/costcenters"
	"github.com/odyssey-erp/odyssey-budget/internal/expenses"
	"github.com/odyssey-erp/odyssey-budget/internal/fiscalyears"
	"github.com/odyssey-erp/odyssey-budget/internal/observability"
	"github.com/odyssey-erp/odyssey-budget/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-budget/internal/reports"
	"github.com/odyssey-erp/odyssey-budget/internal/revenues"
	"github.com/odyssey-erp/odyssey-budget/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	CostCenterHandler    *costcenters.Handler
	CompanyHandler       *companies.Handler
	BusinessGroupHandler *businessgroups.Handler
	FiscalYearHandler    *fiscalyears.Handler
	BudgetHandler        *budgets.Handler
	ExpenseHandler       *expenses.Handler
	RevenueHandler       *revenues.Handler
	ReportHandler        *reports.Handler
	JobHandler           *jobs.Handler
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.CostCenterHandler != nil {
			r.Route("/cost-centers", params.CostCenterHandler.MountRoutes)
		}
		r.Route("/companies", func(r chi.Router) {
			if params.CompanyHandler != nil {
				params.CompanyHandler.MountRoutes(r)
			}
			if params.BusinessGroupHandler != nil {
				params.BusinessGroupHandler.MountCompanyRoutes(r)
			}
		})
		if params.BusinessGroupHandler != nil {
			r.Route("/business-groups", params.BusinessGroupHandler.MountRoutes)
		}
		if params.FiscalYearHandler != nil {
			r.Route("/fiscal-years", params.FiscalYearHandler.MountRoutes)
		}
		if params.BudgetHandler != nil {
			r.Route("/budgets", params.BudgetHandler.MountRoutes)
		}
		if params.ExpenseHandler != nil {
			r.Route("/expenses", params.ExpenseHandler.MountRoutes)
		}
		if params.RevenueHandler != nil {
			r.Route("/revenues", params.RevenueHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			r.Route("/reports", params.ReportHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", r.URL.Path)
	})
	return r
}
