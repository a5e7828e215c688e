package services

import (
	"context"
	"fmt"
	"time"

	"budgetflow/internal/core"
	"budgetflow/internal/log"
	"budgetflow/internal/source"
)

// DefaultFetchTimeout bounds each store round trip made while building a report.
const DefaultFetchTimeout = 7 * time.Second

// PeriodInstallments is the flat expansion of every budget in a period.
type PeriodInstallments struct {
	Period   core.Period            `json:"-"`
	Payments []core.ExpandedPayment `json:"installments"`
	Skipped  []core.SkippedBudget   `json:"skippedBudgets"`
}

// ExecutionService builds execution reports from a budget source.
type ExecutionService struct {
	source       source.Reader
	logger       *log.Logger
	structured   *log.StructuredLogger
	fetchTimeout time.Duration
}

func NewExecutionService(src source.Reader, logger *log.Logger) *ExecutionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentExecution)
	return &ExecutionService{
		source:       src,
		logger:       logger,
		structured:   log.NewStructuredLogger(logger),
		fetchTimeout: DefaultFetchTimeout,
	}
}

// SetFetchTimeout overrides DefaultFetchTimeout. Non-positive values are ignored.
func (s *ExecutionService) SetFetchTimeout(d time.Duration) {
	if d > 0 {
		s.fetchTimeout = d
	}
}

// Execution aggregates the installments of a period's budgets. The view mode
// is checked before the store is queried. Budgets whose data cannot be
// expanded are reported in Skipped instead of failing the report.
func (s *ExecutionService) Execution(ctx context.Context, periodID string, mode core.ViewMode) (*core.ExecutionReport, error) {
	if _, err := GetBucketStrategy(mode); err != nil {
		return nil, err
	}

	inst, err := s.Installments(ctx, periodID)
	if err != nil {
		return nil, err
	}

	agg, err := Aggregate(inst.Payments, mode)
	if err != nil {
		return nil, err
	}

	report := core.EmptyReport(inst.Period, mode)
	report.Data = agg.Buckets
	report.BudgetDetails = agg.Details
	report.Summary = agg.Summary
	report.Skipped = inst.Skipped

	s.structured.LogReport(ctx, periodID, string(mode), len(report.Data), report.Summary.InstallmentCount, len(report.Skipped))
	return report, nil
}

// Installments expands every budget of the period, in budget order.
func (s *ExecutionService) Installments(ctx context.Context, periodID string) (*PeriodInstallments, error) {
	period, budgets, err := s.fetch(ctx, periodID)
	if err != nil {
		return nil, err
	}

	out := &PeriodInstallments{
		Period:   period,
		Payments: []core.ExpandedPayment{},
		Skipped:  []core.SkippedBudget{},
	}
	for _, b := range budgets {
		payments, err := expandBudget(b)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping budget with invalid data",
				log.NewFields().
					WithPeriod(periodID, "").
					WithBudget(b.ID, b.CategoryID, b.Total.Cents).
					WithOperation(log.OpExpand).
					WithError(err).
					ToSlice()...)
			out.Skipped = append(out.Skipped, core.SkippedBudget{BudgetID: b.ID, Reason: err.Error()})
			continue
		}
		out.Payments = append(out.Payments, payments...)
	}
	return out, nil
}

// Periods lists every known period.
func (s *ExecutionService) Periods(ctx context.Context) ([]core.Period, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	periods, err := s.source.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

func (s *ExecutionService) fetch(ctx context.Context, periodID string) (core.Period, []core.Budget, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	period, err := s.source.GetPeriod(ctx, periodID)
	if err != nil {
		return core.Period{}, nil, fmt.Errorf("get period: %w", err)
	}
	budgets, err := s.source.ListPeriodBudgets(ctx, periodID)
	if err != nil {
		return core.Period{}, nil, fmt.Errorf("list budgets: %w", err)
	}
	return period, budgets, nil
}

func expandBudget(b core.Budget) ([]core.ExpandedPayment, error) {
	day, err := ResolveStartDay(b)
	if err != nil {
		return nil, err
	}
	return Expand(b, day)
}
