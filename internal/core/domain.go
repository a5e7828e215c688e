package core

import (
	"errors"
	"strings"
	"time"
)

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCredit PaymentMethod = "credit"
	PaymentDebit  PaymentMethod = "debit"
)

const isoDateLayout = "2006-01-02"

type (
	PaymentMethod string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Period is a calendar month accounting window.
	Period struct {
		ID    string
		Name  string
		Month time.Month // calendar month, 1-12
		Year  int
	}

	// Category carries the recurrence policy shared by its budgets.
	Category struct {
		ID         string
		Name       string
		Frequency  string
		DefaultDay *int // preferred day-of-month, nil when unset
		StepDays   int  // custom cadence only
		Count      int  // custom cadence only
	}

	// Budget is a planned amount for one category inside one period, with the
	// category's recurrence policy joined in.
	Budget struct {
		ID            string
		CategoryID    string
		CategoryName  string
		PeriodID      string
		Total         Money
		PaymentMethod PaymentMethod

		Frequency      string
		CustomStepDays int
		CustomCount    int

		CategoryDefaultDay *int
		DefaultDate        Date // zero when the budget has no stored default date

		PeriodMonth time.Month
		PeriodYear  int
	}

	// ExpandedPayment is one dated installment of a budget.
	ExpandedPayment struct {
		BudgetID      string        `json:"budgetId"`
		CategoryID    string        `json:"categoryId"`
		CategoryName  string        `json:"categoryName"`
		PeriodID      string        `json:"periodId"`
		Date          Date          `json:"date"`
		Amount        Money         `json:"amount"`
		PaymentMethod PaymentMethod `json:"paymentMethod"`
	}
)

var (
	ErrInvalidDay              = errors.New("invalid day")
	ErrInvalidMonth            = errors.New("invalid month")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrInvalidRecurrenceConfig = errors.New("invalid recurrence configuration")
	ErrInvalidStartDay         = errors.New("invalid start day")
	ErrInvalidViewMode         = errors.New("invalid view mode: must be one of daily, weekly")
	ErrPeriodNotFound          = errors.New("period not found")
	ErrEmptyName               = errors.New("empty name")
	ErrEmptyID                 = errors.New("empty id")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(isoDateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(isoDateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParsePaymentMethod normalises a payment method name.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	pm := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !pm.IsValid() {
		return "", ErrInvalidPaymentMethod
	}
	return pm, nil
}

func (pm PaymentMethod) IsValid() bool {
	switch pm {
	case PaymentCash, PaymentCredit, PaymentDebit:
		return true
	default:
		return false
	}
}

func (p Period) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.Month < time.January || p.Month > time.December {
		return ErrInvalidMonth
	}
	if p.Year < 1 {
		return errors.New("invalid year")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.DefaultDay != nil && (*c.DefaultDay < 1 || *c.DefaultDay > 31) {
		return ErrInvalidStartDay
	}
	if _, err := ParseRecurrence(c.Frequency, c.StepDays, c.Count); err != nil {
		return err
	}
	return nil
}

// Validate checks the fields a budget row needs before it is stored. Recurrence
// problems are reported by expansion, not here, since they come from the category.
func (b Budget) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(b.PeriodID) == "" {
		return errors.New("empty period id")
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return errors.New("empty category id")
	}
	if b.Total.Cents < 0 {
		return ErrInvalidAmount
	}
	if !b.PaymentMethod.IsValid() {
		return ErrInvalidPaymentMethod
	}
	if !b.DefaultDate.IsEmpty() {
		if err := b.DefaultDate.Validate(); err != nil {
			return errors.New("invalid default date: " + err.Error())
		}
	}
	return nil
}

// Recurrence parses the budget's recurrence policy.
func (b Budget) Recurrence() (Recurrence, error) {
	return ParseRecurrence(b.Frequency, b.CustomStepDays, b.CustomCount)
}
