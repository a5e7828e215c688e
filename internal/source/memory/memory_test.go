package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"budgetflow/internal/core"
)

const seedTOML = `
[[periods]]
id = "p-mar"
name = "March 2025"
month = 3
year = 2025

[[periods]]
id = "p-feb"
name = "February 2025"
month = 2
year = 2025

[[categories]]
id = "c-rent"
name = "Rent"

[[categories]]
id = "c-food"
name = "Food"
frequency = "biweekly"
default_day = 5

[[budgets]]
id = "b2"
period_id = "p-mar"
category_id = "c-food"
amount = "300,00"
payment_method = "debit"
default_date = "2025-03-05"

[[budgets]]
id = "b1"
period_id = "p-mar"
category_id = "c-rent"
amount = "900.00"
payment_method = "Credit"
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestOpenSeed(t *testing.T) {
	s, err := Open(writeSeed(t, seedTOML))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	ctx := context.Background()

	periods, err := s.ListPeriods(ctx)
	if err != nil || len(periods) != 2 {
		t.Fatalf("ListPeriods() = %v, %v", periods, err)
	}
	if periods[0].ID != "p-mar" {
		t.Errorf("ListPeriods()[0] = %s, want newest period first", periods[0].ID)
	}

	budgets, err := s.ListPeriodBudgets(ctx, "p-mar")
	if err != nil {
		t.Fatalf("ListPeriodBudgets() error: %v", err)
	}
	if len(budgets) != 2 {
		t.Fatalf("ListPeriodBudgets() len = %d, want 2", len(budgets))
	}
	// b1 has no default date and sorts first.
	if budgets[0].ID != "b1" || budgets[1].ID != "b2" {
		t.Errorf("order = %s,%s, want b1,b2", budgets[0].ID, budgets[1].ID)
	}

	food := budgets[1]
	if food.CategoryName != "Food" || food.Frequency != "biweekly" {
		t.Errorf("category not joined: %+v", food)
	}
	if food.CategoryDefaultDay == nil || *food.CategoryDefaultDay != 5 {
		t.Errorf("CategoryDefaultDay = %v, want 5", food.CategoryDefaultDay)
	}
	if food.PeriodMonth != time.March || food.PeriodYear != 2025 {
		t.Errorf("period not joined: %v %d", food.PeriodMonth, food.PeriodYear)
	}
	if food.Total.Cents != 30000 {
		t.Errorf("Total = %d, want 30000", food.Total.Cents)
	}
	if budgets[0].PaymentMethod != core.PaymentCredit {
		t.Errorf("PaymentMethod = %q, want credit", budgets[0].PaymentMethod)
	}
}

func TestOpenMissingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	periods, _ := s.ListPeriods(context.Background())
	if len(periods) != 0 {
		t.Errorf("expected empty store, got %v", periods)
	}
}

func TestOpenRejectsBadSeed(t *testing.T) {
	bads := []string{
		"[[periods]]\nid = \"p\"\nname = \"x\"\nmonth = 13\nyear = 2025\n",
		"[[budgets]]\nid = \"b\"\nperiod_id = \"p\"\ncategory_id = \"c\"\namount = \"-4\"\npayment_method = \"cash\"\n",
		"not = [valid",
	}
	for i, content := range bads {
		if _, err := Open(writeSeed(t, content)); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestGetPeriodNotFound(t *testing.T) {
	s := New()
	_, err := s.GetPeriod(context.Background(), "nope")
	if !errors.Is(err, core.ErrPeriodNotFound) {
		t.Errorf("GetPeriod() error = %v, want ErrPeriodNotFound", err)
	}
	if _, err := s.ListPeriodBudgets(context.Background(), "nope"); !errors.Is(err, core.ErrPeriodNotFound) {
		t.Errorf("ListPeriodBudgets() error = %v, want ErrPeriodNotFound", err)
	}
}

func TestCreatePersistsToSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "seed.toml")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	p, err := s.CreatePeriod(ctx, core.Period{Name: "April 2025", Month: time.April, Year: 2025})
	if err != nil {
		t.Fatalf("CreatePeriod() error: %v", err)
	}
	if p.ID == "" {
		t.Fatal("CreatePeriod() did not assign an id")
	}
	c, err := s.CreateCategory(ctx, core.Category{Name: "Gym", Frequency: "custom", StepDays: 7, Count: 4})
	if err != nil {
		t.Fatalf("CreateCategory() error: %v", err)
	}
	if _, err := s.CreateBudget(ctx, core.Budget{
		PeriodID:      p.ID,
		CategoryID:    c.ID,
		Total:         core.Money{Cents: 4000},
		PaymentMethod: core.PaymentCash,
	}); err != nil {
		t.Fatalf("CreateBudget() error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	budgets, err := reopened.ListPeriodBudgets(ctx, p.ID)
	if err != nil || len(budgets) != 1 {
		t.Fatalf("reopened budgets = %v, %v", budgets, err)
	}
	if budgets[0].Total.Cents != 4000 || budgets[0].CustomCount != 4 {
		t.Errorf("reopened budget = %+v", budgets[0])
	}
}

func TestCreateBudgetRequiresParents(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.CreateBudget(ctx, core.Budget{
		PeriodID:      "p",
		CategoryID:    "c",
		Total:         core.Money{Cents: 1},
		PaymentMethod: core.PaymentCash,
	})
	if !errors.Is(err, core.ErrPeriodNotFound) {
		t.Errorf("CreateBudget() error = %v, want ErrPeriodNotFound", err)
	}
}

func TestCreateCategoryRejectsBadPolicy(t *testing.T) {
	_, err := New().CreateCategory(context.Background(), core.Category{Name: "X", Frequency: "monthly"})
	if !errors.Is(err, core.ErrInvalidRecurrenceConfig) {
		t.Errorf("CreateCategory() error = %v, want ErrInvalidRecurrenceConfig", err)
	}
}

func TestCreateRollsBackWhenFlushFails(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.toml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.CreatePeriod(ctx, core.Period{ID: "p1", Name: "March 2025", Month: time.March, Year: 2025}); err != nil {
		t.Fatalf("CreatePeriod() error = %v", err)
	}
	if _, err := s.CreateCategory(ctx, core.Category{ID: "c1", Name: "Rent"}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	// A directory at the seed path makes the final rename fail.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(path, "blocker"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := s.CreatePeriod(ctx, core.Period{ID: "p2", Name: "April 2025", Month: time.April, Year: 2025}); err == nil {
		t.Fatal("CreatePeriod() error = nil, want flush error")
	}
	if _, err := s.GetPeriod(ctx, "p2"); !errors.Is(err, core.ErrPeriodNotFound) {
		t.Errorf("GetPeriod(p2) error = %v, want ErrPeriodNotFound", err)
	}

	if _, err := s.CreateCategory(ctx, core.Category{ID: "c2", Name: "Food"}); err == nil {
		t.Fatal("CreateCategory() error = nil, want flush error")
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(cats) != 1 {
		t.Errorf("len(ListCategories()) = %d, want 1", len(cats))
	}

	if _, err := s.CreateBudget(ctx, core.Budget{
		ID: "b1", PeriodID: "p1", CategoryID: "c1",
		Total: core.Money{Cents: 1000}, PaymentMethod: core.PaymentCash,
	}); err == nil {
		t.Fatal("CreateBudget() error = nil, want flush error")
	}
	budgets, err := s.ListPeriodBudgets(ctx, "p1")
	if err != nil {
		t.Fatalf("ListPeriodBudgets() error = %v", err)
	}
	if len(budgets) != 0 {
		t.Errorf("len(ListPeriodBudgets()) = %d, want 0", len(budgets))
	}
}
