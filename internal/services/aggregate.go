package services

import (
	"sort"

	"budgetflow/internal/core"
)

// Aggregation is the bucketed view of a list of installments.
type Aggregation struct {
	Buckets []core.Bucket
	Details map[string][]core.BucketDetail
	Summary core.ExecutionSummary
}

// Aggregate groups installments into buckets for the view mode, sorts them
// ascending and computes the summary. Ties for the peak keep the earliest
// bucket.
func Aggregate(payments []core.ExpandedPayment, mode core.ViewMode) (Aggregation, error) {
	strategy, err := GetBucketStrategy(mode)
	if err != nil {
		return Aggregation{}, err
	}

	agg := Aggregation{
		Buckets: []core.Bucket{},
		Details: map[string][]core.BucketDetail{},
	}

	byKey := make(map[string]*core.Bucket)
	budgetsByKey := make(map[string]map[string]struct{})
	for _, p := range payments {
		b := strategy.Bucket(p.Date)
		existing, ok := byKey[b.Key]
		if !ok {
			existing = &b
			byKey[b.Key] = existing
			budgetsByKey[b.Key] = make(map[string]struct{})
		}
		existing.Amount = existing.Amount.Add(p.Amount)
		existing.InstallmentCount++
		budgetsByKey[b.Key][p.BudgetID] = struct{}{}

		agg.Details[b.Key] = append(agg.Details[b.Key], core.BucketDetail{
			BudgetID:      p.BudgetID,
			CategoryID:    p.CategoryID,
			CategoryName:  p.CategoryName,
			Amount:        p.Amount,
			Date:          p.Date,
			PaymentMethod: p.PaymentMethod,
		})
		agg.Summary.TotalBudget = agg.Summary.TotalBudget.Add(p.Amount)
	}

	for key, b := range byKey {
		b.BudgetCount = len(budgetsByKey[key])
		agg.Buckets = append(agg.Buckets, *b)
	}
	sort.Slice(agg.Buckets, func(i, j int) bool {
		return strategy.Less(agg.Buckets[i], agg.Buckets[j])
	})

	agg.Summary.BucketCount = len(agg.Buckets)
	agg.Summary.InstallmentCount = len(payments)
	agg.Summary.AveragePerDay = agg.Summary.TotalBudget.DivRound(len(agg.Buckets))
	for i, b := range agg.Buckets {
		if i == 0 || b.Amount.Cents > agg.Summary.PeakAmount.Cents {
			agg.Summary.PeakAmount = b.Amount
			agg.Summary.PeakKey = b.Key
			agg.Summary.PeakDate = strategy.PeakDate(b)
		}
	}
	return agg, nil
}
