package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-budget/internal/budgets"
	"github.com/odyssey-erp/odyssey-budget/internal/businessgroups"
	"github.com/odyssey-erp/odyssey-budget/internal/companies"
	"github.com/odyssey-erp/odyssey-budget/internal/costcenters"
	"github.com/odyssey-erp/odyssey-budget/internal/expenses"
	"github.com/odyssey-erp/odyssey-budget/internal/fiscalyears"
	"github.com/odyssey-erp/odyssey-budget/internal/observability"
	"github.com/odyssey-erp/odyssey-budget/internal/reports"
	"github.com/odyssey-erp/odyssey-budget/internal/reports/export"
	"github.com/odyssey-erp/odyssey-budget/internal/revenues"
)

// Services is the domain layer shared by the server, the worker and budgetctl.
type Services struct {
	CostCenters    *costcenters.Service
	Companies      *companies.Service
	BusinessGroups *businessgroups.Service
	FiscalYears    *fiscalyears.Service
	Budgets        *budgets.Service
	Expenses       *expenses.Service
	Revenues       *revenues.Service
	Reports        *reports.Service
}

// NewServices wires repositories and services over one pool and Redis client.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, domain *observability.Domain, logger *slog.Logger) *Services {
	costCenterRepo := costcenters.NewRepository(pool)
	budgetRepo := budgets.NewRepository(pool)
	expenseRepo := expenses.NewRepository(pool)
	revenueRepo := revenues.NewRepository(pool)

	ttl := 24 * time.Hour
	gotenberg := ""
	if cfg != nil {
		ttl = cfg.ExportTTL
		gotenberg = cfg.GotenbergURL
	}
	renderers := export.Registry{
		export.FormatPDF:   &export.PDFRenderer{Endpoint: gotenberg, Client: &http.Client{Timeout: 60 * time.Second}},
		export.FormatExcel: export.ExcelRenderer{},
		export.FormatCSV:   export.CSVRenderer{},
	}
	loader := reports.NewStoreLoader(costCenterRepo, budgetRepo, expenseRepo, revenueRepo)

	return &Services{
		CostCenters:    costcenters.NewService(costCenterRepo, logger),
		Companies:      companies.NewService(companies.NewRepository(pool)),
		BusinessGroups: businessgroups.NewService(businessgroups.NewRepository(pool), logger, domain),
		FiscalYears:    fiscalyears.NewService(fiscalyears.NewRepository(pool), logger),
		Budgets:        budgets.NewService(budgetRepo),
		Expenses:       expenses.NewService(expenseRepo, logger),
		Revenues:       revenues.NewService(revenueRepo, logger),
		Reports:        reports.NewService(loader, renderers, reports.NewArtifactStore(redisClient, ttl), domain, logger),
	}
}
