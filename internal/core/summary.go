package core

import "fmt"

const (
	ViewDaily  ViewMode = "daily"
	ViewWeekly ViewMode = "weekly"
)

// ViewMode selects how installments are bucketed.
type ViewMode string

// ParseViewMode defaults to daily when s is empty. Only the exact lowercase
// names are accepted.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case "", ViewDaily:
		return ViewDaily, nil
	case ViewWeekly:
		return ViewWeekly, nil
	default:
		return "", fmt.Errorf("%w (got %q)", ErrInvalidViewMode, s)
	}
}

// Bucket is one row of an execution report. Daily buckets fill Date; weekly
// buckets fill the ISO week fields.
type Bucket struct {
	Key              string `json:"key"`
	Date             string `json:"date,omitempty"`
	ISOYear          int    `json:"isoYear,omitempty"`
	Week             int    `json:"week,omitempty"`
	WeekStart        string `json:"weekStart,omitempty"`
	WeekEnd          string `json:"weekEnd,omitempty"`
	Amount           Money  `json:"amount"`
	BudgetCount      int    `json:"budgetCount"`
	InstallmentCount int    `json:"installmentCount"`
}

// BucketDetail is the drill-down record of one installment inside a bucket.
type BucketDetail struct {
	BudgetID      string        `json:"budgetId"`
	CategoryID    string        `json:"categoryId"`
	CategoryName  string        `json:"categoryName"`
	Amount        Money         `json:"amount"`
	Date          Date          `json:"date"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

type ExecutionSummary struct {
	TotalBudget      Money  `json:"totalBudget"`
	AveragePerDay    Money  `json:"averagePerDay"`
	PeakDate         string `json:"peakDate"`
	PeakKey          string `json:"peakKey"`
	PeakAmount       Money  `json:"peakAmount"`
	BucketCount      int    `json:"bucketCount"`
	InstallmentCount int    `json:"installmentCount"`
}

// SkippedBudget names a budget left out of a report and why.
type SkippedBudget struct {
	BudgetID string `json:"budgetId"`
	Reason   string `json:"reason"`
}

// ExecutionReport is the aggregated view of a period's budgets.
type ExecutionReport struct {
	PeriodID      string                    `json:"periodId"`
	PeriodName    string                    `json:"periodName"`
	ViewMode      ViewMode                  `json:"viewMode"`
	Data          []Bucket                  `json:"data"`
	Summary       ExecutionSummary          `json:"summary"`
	BudgetDetails map[string][]BucketDetail `json:"budgetDetails"`
	Skipped       []SkippedBudget           `json:"skippedBudgets"`
}

// EmptyReport returns a report with non-nil collections, so it serialises
// as data: [] and budgetDetails: {}.
func EmptyReport(p Period, mode ViewMode) *ExecutionReport {
	return &ExecutionReport{
		PeriodID:      p.ID,
		PeriodName:    p.Name,
		ViewMode:      mode,
		Data:          []Bucket{},
		BudgetDetails: map[string][]BucketDetail{},
		Skipped:       []SkippedBudget{},
	}
}
