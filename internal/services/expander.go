package services

import (
	"fmt"

	"budgetflow/internal/core"
)

// ResolveStartDay picks the day-of-month of a budget's first installment:
// the category's default day, else the day of the budget's default date,
// else the 1st.
func ResolveStartDay(b core.Budget) (int, error) {
	if b.CategoryDefaultDay != nil {
		day := *b.CategoryDefaultDay
		if day < 1 || day > 31 {
			return 0, fmt.Errorf("%w: category default day %d", core.ErrInvalidStartDay, day)
		}
		return day, nil
	}
	if !b.DefaultDate.IsEmpty() {
		return b.DefaultDate.Day(), nil
	}
	return 1, nil
}

// Expand splits a budget into dated installments inside its period month.
//
// Installment i falls on startDay + i*step, clamped to the last day of the
// month. Every installment but the last gets total/N cents and the last one
// also takes the remainder, so the amounts always sum to the total. Totals
// smaller than N cents produce one 1-cent installment per cent; a zero total
// produces none.
func Expand(b core.Budget, startDay int) ([]core.ExpandedPayment, error) {
	if startDay < 1 || startDay > 31 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidStartDay, startDay)
	}
	if b.Total.Cents < 0 {
		return nil, fmt.Errorf("%w: negative total %d cents", core.ErrInvalidAmount, b.Total.Cents)
	}
	if b.PeriodMonth < 1 || b.PeriodMonth > 12 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidMonth, b.PeriodMonth)
	}
	rec, err := b.Recurrence()
	if err != nil {
		return nil, err
	}

	if b.Total.Cents == 0 {
		return []core.ExpandedPayment{}, nil
	}

	n := rec.Installments()
	if int64(n) > b.Total.Cents {
		n = int(b.Total.Cents)
	}

	parts := b.Total.Split(n)
	payments := make([]core.ExpandedPayment, 0, n)
	for i, amount := range parts {
		day := core.ClampDayToMonth(startDay+i*rec.StepDays(), b.PeriodMonth, b.PeriodYear)
		payments = append(payments, core.ExpandedPayment{
			BudgetID:      b.ID,
			CategoryID:    b.CategoryID,
			CategoryName:  b.CategoryName,
			PeriodID:      b.PeriodID,
			Date:          core.NewDate(b.PeriodYear, int(b.PeriodMonth), day),
			Amount:        amount,
			PaymentMethod: b.PaymentMethod,
		})
	}
	return payments, nil
}
