// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for execution bucketing.
// Each view mode (daily, weekly) has its own strategy that decides which
// bucket an installment falls in and how buckets are labelled and ordered.

package services

import (
	"fmt"
	"time"

	"budgetflow/internal/core"
)

// BucketStrategy is the strategy interface for grouping installments.
type BucketStrategy interface {
	// Bucket returns the empty bucket that the date belongs to, with its key
	// and date labels filled in.
	Bucket(d core.Date) core.Bucket
	// Less orders buckets ascending.
	Less(a, b core.Bucket) bool
	// PeakDate is the date reported for a bucket in the summary.
	PeakDate(b core.Bucket) string
}

// DailyBucketer groups installments by calendar date.
type DailyBucketer struct{}

func (DailyBucketer) Bucket(d core.Date) core.Bucket {
	key := d.String()
	return core.Bucket{Key: key, Date: key}
}

// Less compares keys, which are YYYY-MM-DD and so sort lexically.
func (DailyBucketer) Less(a, b core.Bucket) bool { return a.Key < b.Key }

func (DailyBucketer) PeakDate(b core.Bucket) string { return b.Date }

// WeeklyBucketer groups installments by ISO week. WeekStart sets which day
// the reported week bounds begin on; ISO weeks start on Monday.
type WeeklyBucketer struct {
	WeekStart time.Weekday
}

func (w WeeklyBucketer) Bucket(d core.Date) core.Bucket {
	key, year, week := core.ISOWeekKey(d.Time)
	start, end := core.WeekBounds(d.Time, w.WeekStart)
	return core.Bucket{
		Key:       key,
		ISOYear:   year,
		Week:      week,
		WeekStart: core.Date{Time: start}.String(),
		WeekEnd:   core.Date{Time: end}.String(),
	}
}

func (WeeklyBucketer) Less(a, b core.Bucket) bool {
	if a.ISOYear != b.ISOYear {
		return a.ISOYear < b.ISOYear
	}
	return a.Week < b.Week
}

func (WeeklyBucketer) PeakDate(b core.Bucket) string { return b.WeekStart }

// bucketStrategies maps view modes to their corresponding bucketers.
var bucketStrategies = map[core.ViewMode]BucketStrategy{
	core.ViewDaily:  DailyBucketer{},
	core.ViewWeekly: WeeklyBucketer{WeekStart: time.Monday},
}

// GetBucketStrategy returns the bucketer for a view mode.
// Unknown modes wrap core.ErrInvalidViewMode.
func GetBucketStrategy(mode core.ViewMode) (BucketStrategy, error) {
	strategy, ok := bucketStrategies[mode]
	if !ok {
		return nil, fmt.Errorf("%w (got %q)", core.ErrInvalidViewMode, mode)
	}
	return strategy, nil
}
