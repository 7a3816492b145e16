package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-budget/internal/app"
	"github.com/odyssey-erp/odyssey-budget/internal/budgets"
	"github.com/odyssey-erp/odyssey-budget/internal/businessgroups"
	"github.com/odyssey-erp/odyssey-budget/internal/companies"
	"github.com/odyssey-erp/odyssey-budget/internal/costcenters"
	"github.com/odyssey-erp/odyssey-budget/internal/expenses"
	"github.com/odyssey-erp/odyssey-budget/internal/fiscalyears"
	"github.com/odyssey-erp/odyssey-budget/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-budget/internal/platform/db"
	"github.com/odyssey-erp/odyssey-budget/internal/revenues"
	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// seed loads a small demo dataset through the services.
func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := shared.ContextWithActor(context.Background(), 1)

	if err := db.RunMigrations(cfg.PGDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()
	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer redisClient.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc := app.NewServices(cfg, pool, redisClient, nil, logger)

	year := time.Now().Year()
	fmt.Println("→ Seeding fiscal year...")
	fy, err := svc.FiscalYears.Create(ctx, fiscalyears.CreateInput{
		Year:      year,
		Name:      fmt.Sprintf("FY %d", year),
		StartDate: fmt.Sprintf("%d-01-01", year),
		EndDate:   fmt.Sprintf("%d-12-31", year),
		IsDefault: true,
	})
	if err != nil {
		log.Fatalf("seed fiscal year: %v", err)
	}

	fmt.Println("→ Seeding cost centers...")
	centers, err := seedCostCenters(ctx, svc.CostCenters)
	if err != nil {
		log.Fatalf("seed cost centers: %v", err)
	}

	fmt.Println("→ Seeding business groups...")
	if err := seedGroups(ctx, svc.BusinessGroups, svc.Companies, centers["TI"]); err != nil {
		log.Fatalf("seed groups: %v", err)
	}

	fmt.Println("→ Seeding budgets and transactions...")
	if err := seedLedger(ctx, svc, fy.ID, centers, year); err != nil {
		log.Fatalf("seed ledger: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedCostCenters(ctx context.Context, svc *costcenters.Service) (map[string]int64, error) {
	rows := []struct {
		code, name, parent, department string
		budget                         int64
	}{
		{"TI", "Technology", "", "Technology", 500000},
		{"DEV", "Development", "TI", "Technology", 300000},
		{"OPS", "Operations", "", "Operations", 200000},
		{"MKT", "Marketing", "", "", 150000},
	}
	ids := map[string]int64{}
	for _, row := range rows {
		input := costcenters.CreateInput{
			Name:       row.name,
			Code:       row.code,
			Budget:     decimal.NewFromInt(row.budget),
			Department: row.department,
		}
		if row.parent != "" {
			parent := ids[row.parent]
			input.ParentID = &parent
		}
		cc, err := svc.Create(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", row.code, err)
		}
		ids[row.code] = cc.ID
	}
	return ids, nil
}

func seedGroups(ctx context.Context, groups *businessgroups.Service, comps *companies.Service, costCenterID int64) error {
	group, err := groups.CreateGroup(ctx, businessgroups.GroupInput{Name: "Nusantara Holdings", Code: "NUS", Headquarters: "Jakarta"})
	if err != nil {
		return err
	}
	for _, in := range []companies.Input{
		{Code: "NUS-01", Name: "Nusantara Digital"},
		{Code: "NUS-02", Name: "Nusantara Logistik"},
	} {
		company, err := comps.Create(ctx, in)
		if err != nil {
			return err
		}
		if err := comps.LinkCostCenter(ctx, company.ID, companies.LinkInput{CostCenterID: costCenterID}); err != nil {
			return err
		}
		if _, err := groups.Associate(ctx, businessgroups.AssociateInput{CompanyID: company.ID, GroupID: group.ID, Reason: "seed"}); err != nil {
			return err
		}
	}
	return nil
}

func seedLedger(ctx context.Context, svc *app.Services, fyID int64, centers map[string]int64, year int) error {
	for code, total := range map[string]int64{"TI": 400000, "DEV": 250000, "OPS": 180000, "MKT": 120000} {
		budget, err := svc.Budgets.Create(ctx, budgets.CreateInput{
			Name:         code + " operating budget",
			CostCenterID: centers[code],
			FiscalYearID: fyID,
			TotalBudget:  decimal.NewFromInt(total),
			Categories: []budgets.CategoryInput{
				{Name: "Personnel", Budgeted: decimal.NewFromInt(total / 2)},
				{Name: "Technology", Budgeted: decimal.NewFromInt(total / 4)},
			},
		})
		if err != nil {
			return fmt.Errorf("budget %s: %w", code, err)
		}
		for month := 1; month <= 3; month++ {
			expense, err := svc.Expenses.Create(ctx, expenses.CreateInput{
				Description:  fmt.Sprintf("%s payroll %02d", code, month),
				Category:     "Personnel",
				Amount:       decimal.NewFromInt(total / 30),
				CostCenterID: centers[code],
				BudgetID:     budget.ID,
				FiscalYearID: fyID,
				Date:         fmt.Sprintf("%d-%02d-25", year, month),
			})
			if err != nil {
				return fmt.Errorf("expense %s: %w", code, err)
			}
			if _, err := svc.Expenses.Approve(ctx, expense.ID); err != nil {
				return fmt.Errorf("approve %s: %w", code, err)
			}
		}
		revenue, err := svc.Revenues.Create(ctx, revenues.CreateInput{
			Description:  code + " service fees",
			Source:       "services",
			Amount:       decimal.NewFromInt(total / 10),
			CostCenterID: centers[code],
			BudgetID:     budget.ID,
			FiscalYearID: fyID,
			Date:         fmt.Sprintf("%d-01-31", year),
			Recurrence:   revenues.RecurrenceMonthly,
		})
		if err != nil {
			return fmt.Errorf("revenue %s: %w", code, err)
		}
		if _, err := svc.Revenues.Confirm(ctx, revenue.ID); err != nil {
			return fmt.Errorf("confirm %s: %w", code, err)
		}
	}
	return nil
}
