package budgets

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

// recompute refreshes every derived field of b.
func recompute(b *Budget) {
	b.Remaining = b.TotalBudget.Sub(b.Spent)
	for i := range b.Categories {
		b.Categories[i].Percentage = shared.Percent(b.Categories[i].Budgeted, b.TotalBudget)
	}
}

func checkAmounts(total decimal.Decimal, categories []Category) error {
	if total.IsNegative() {
		return shared.Invalid("total_budget", "must not be negative")
	}
	sum := decimal.Zero
	for _, c := range categories {
		if c.Budgeted.IsNegative() {
			return shared.Invalid("categories", "budgeted amounts must not be negative")
		}
		sum = sum.Add(c.Budgeted)
	}
	if sum.GreaterThan(total) {
		return shared.Invalid("categories", "sum "+sum.StringFixed(2)+" exceeds total budget "+total.StringFixed(2))
	}
	return nil
}

// mergeCategories keeps the spent amount of categories that survive a replacement, matched by name.
func mergeCategories(current []Category, inputs []CategoryInput) ([]Category, error) {
	spent := make(map[string]decimal.Decimal, len(current))
	for _, c := range current {
		spent[strings.ToLower(c.Name)] = c.Spent
	}
	seen := make(map[string]bool, len(inputs))
	out := make([]Category, 0, len(inputs))
	for _, in := range inputs {
		name := strings.TrimSpace(in.Name)
		key := strings.ToLower(name)
		if seen[key] {
			return nil, shared.Invalid("categories", "duplicate category "+name)
		}
		seen[key] = true
		out = append(out, Category{Name: name, Budgeted: in.Budgeted, Spent: spent[key]})
	}
	return out, nil
}

// applySpend adds amount to the budget and to the category whose name matches, if any.
func applySpend(b *Budget, category string, amount decimal.Decimal) {
	b.Spent = b.Spent.Add(amount)
	for i := range b.Categories {
		if strings.EqualFold(b.Categories[i].Name, strings.TrimSpace(category)) {
			b.Categories[i].Spent = b.Categories[i].Spent.Add(amount)
			break
		}
	}
	recompute(b)
}
