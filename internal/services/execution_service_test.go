package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"budgetflow/internal/core"
	"budgetflow/internal/log"
)

type fakeSource struct {
	periods     map[string]core.Period
	budgets     map[string][]core.Budget
	budgetsErr  error
	periodCalls int
	budgetCalls int
}

func (f *fakeSource) GetPeriod(_ context.Context, id string) (core.Period, error) {
	f.periodCalls++
	p, ok := f.periods[id]
	if !ok {
		return core.Period{}, fmt.Errorf("period %q: %w", id, core.ErrPeriodNotFound)
	}
	return p, nil
}

func (f *fakeSource) ListPeriods(context.Context) ([]core.Period, error) {
	out := make([]core.Period, 0, len(f.periods))
	for _, p := range f.periods {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeSource) ListPeriodBudgets(_ context.Context, periodID string) ([]core.Budget, error) {
	f.budgetCalls++
	if f.budgetsErr != nil {
		return nil, f.budgetsErr
	}
	return f.budgets[periodID], nil
}

func newMarchSource(budgets ...core.Budget) *fakeSource {
	return &fakeSource{
		periods: map[string]core.Period{
			"p1": {ID: "p1", Name: "March 2025", Month: time.March, Year: 2025},
		},
		budgets: map[string][]core.Budget{"p1": budgets},
	}
}

func marchBudget(id string, cents int64, freq string, defaultDay int) core.Budget {
	b := budget(cents, freq, time.March, 2025)
	b.ID = id
	b.CategoryID = "cat-" + id
	b.DefaultDate = core.NewDate(2025, 3, defaultDay)
	return b
}

func TestExecutionDaily(t *testing.T) {
	src := newMarchSource(
		marchBudget("b1", 4000, "", 1),
		marchBudget("b2", 6000, "", 2),
	)
	svc := NewExecutionService(src, log.Discard())

	report, err := svc.Execution(context.Background(), "p1", core.ViewDaily)
	if err != nil {
		t.Fatalf("Execution() error = %v", err)
	}
	if report.PeriodID != "p1" || report.PeriodName != "March 2025" || report.ViewMode != core.ViewDaily {
		t.Errorf("report header = %s/%s/%s", report.PeriodID, report.PeriodName, report.ViewMode)
	}
	if len(report.Data) != 2 {
		t.Fatalf("Data len = %d, want 2", len(report.Data))
	}
	if report.Summary.PeakDate != "2025-03-02" || report.Summary.AveragePerDay.Cents != 5000 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if len(report.Skipped) != 0 {
		t.Errorf("Skipped = %v, want none", report.Skipped)
	}
}

func TestExecutionRejectsViewModeBeforeFetch(t *testing.T) {
	src := newMarchSource()
	svc := NewExecutionService(src, log.Discard())

	_, err := svc.Execution(context.Background(), "p1", core.ViewMode("monthly"))
	if !errors.Is(err, core.ErrInvalidViewMode) {
		t.Fatalf("Execution() error = %v, want ErrInvalidViewMode", err)
	}
	if src.periodCalls != 0 || src.budgetCalls != 0 {
		t.Errorf("store touched: %d period / %d budget calls", src.periodCalls, src.budgetCalls)
	}
	if !strings.Contains(err.Error(), "daily") || !strings.Contains(err.Error(), "weekly") {
		t.Errorf("error %q does not name the accepted modes", err)
	}
}

func TestExecutionPeriodNotFound(t *testing.T) {
	svc := NewExecutionService(newMarchSource(), log.Discard())
	_, err := svc.Execution(context.Background(), "missing", core.ViewDaily)
	if !errors.Is(err, core.ErrPeriodNotFound) {
		t.Errorf("Execution() error = %v, want ErrPeriodNotFound", err)
	}
}

func TestExecutionStoreFailure(t *testing.T) {
	src := newMarchSource()
	src.budgetsErr = errors.New("connection reset")
	svc := NewExecutionService(src, log.Discard())

	_, err := svc.Execution(context.Background(), "p1", core.ViewWeekly)
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("Execution() error = %v, want wrapped store error", err)
	}
}

func TestExecutionEmptyPeriod(t *testing.T) {
	svc := NewExecutionService(newMarchSource(), log.Discard())

	report, err := svc.Execution(context.Background(), "p1", core.ViewDaily)
	if err != nil {
		t.Fatalf("Execution() error = %v", err)
	}

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if data, ok := decoded["data"].([]any); !ok || len(data) != 0 {
		t.Errorf("data = %v, want []", decoded["data"])
	}
	if details, ok := decoded["budgetDetails"].(map[string]any); !ok || len(details) != 0 {
		t.Errorf("budgetDetails = %v, want {}", decoded["budgetDetails"])
	}
	summary := decoded["summary"].(map[string]any)
	if summary["totalBudget"] != 0.0 || summary["averagePerDay"] != 0.0 || summary["bucketCount"] != 0.0 {
		t.Errorf("summary = %v, want zeroes", summary)
	}
}

func TestExecutionIsolatesBadBudgets(t *testing.T) {
	bad := marchBudget("bad", 1000, "monthly", 3)
	badDay := 40
	worse := marchBudget("worse", 1000, "", 3)
	worse.CategoryDefaultDay = &badDay

	src := newMarchSource(
		marchBudget("b1", 10001, "biweekly", 1),
		bad,
		worse,
	)
	svc := NewExecutionService(src, log.Discard())

	report, err := svc.Execution(context.Background(), "p1", core.ViewDaily)
	if err != nil {
		t.Fatalf("Execution() error = %v", err)
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("Skipped = %v, want 2 entries", report.Skipped)
	}
	if report.Skipped[0].BudgetID != "bad" || !strings.Contains(report.Skipped[0].Reason, "recurrence") {
		t.Errorf("Skipped[0] = %+v", report.Skipped[0])
	}
	if report.Skipped[1].BudgetID != "worse" || !strings.Contains(report.Skipped[1].Reason, "start day") {
		t.Errorf("Skipped[1] = %+v", report.Skipped[1])
	}
	if report.Summary.TotalBudget.Cents != 10001 || report.Summary.InstallmentCount != 2 {
		t.Errorf("summary = %+v, want the good budget only", report.Summary)
	}
}

func TestInstallments(t *testing.T) {
	src := newMarchSource(
		marchBudget("b1", 10000, "triweekly", 5),
		marchBudget("b2", 2500, "", 28),
	)
	svc := NewExecutionService(src, log.Discard())

	inst, err := svc.Installments(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Installments() error = %v", err)
	}
	if len(inst.Payments) != 4 {
		t.Fatalf("Payments = %d, want 4", len(inst.Payments))
	}
	wantDates := []string{"2025-03-05", "2025-03-15", "2025-03-25", "2025-03-28"}
	for i, p := range inst.Payments {
		if p.Date.String() != wantDates[i] {
			t.Errorf("payment %d date = %s, want %s", i, p.Date, wantDates[i])
		}
	}
}

func TestPeriods(t *testing.T) {
	svc := NewExecutionService(newMarchSource(), log.Discard())
	periods, err := svc.Periods(context.Background())
	if err != nil || len(periods) != 1 {
		t.Errorf("Periods() = %v, %v", periods, err)
	}
}
