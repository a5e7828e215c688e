package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2025, 3, 7)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-03-07"` {
		t.Errorf("Marshal() = %s, want %q", b, "2025-03-07")
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Errorf("Unmarshal() = %v, want %v", back, d)
	}

	var empty Date
	if err := json.Unmarshal([]byte(`null`), &empty); err != nil || !empty.IsEmpty() {
		t.Errorf("Unmarshal(null) = %v, %v; want empty date", empty, err)
	}
}

func TestParsePaymentMethod(t *testing.T) {
	cases := []struct {
		in   string
		want PaymentMethod
		ok   bool
	}{
		{"cash", PaymentCash, true},
		{" Credit ", PaymentCredit, true},
		{"DEBIT", PaymentDebit, true},
		{"cheque", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParsePaymentMethod(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParsePaymentMethod(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidPaymentMethod) {
			t.Errorf("ParsePaymentMethod(%q) error = %v, want ErrInvalidPaymentMethod", tc.in, err)
		}
	}
}

func TestPeriodValidate(t *testing.T) {
	good := Period{ID: "p1", Name: "March 2025", Month: time.March, Year: 2025}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Period{
		{ID: "", Name: "n", Month: time.March, Year: 2025},
		{ID: "p", Name: " ", Month: time.March, Year: 2025},
		{ID: "p", Name: "n", Month: 0, Year: 2025},
		{ID: "p", Name: "n", Month: 13, Year: 2025},
		{ID: "p", Name: "n", Month: time.March, Year: 0},
	}
	for i, p := range bads {
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	day := 5
	badDay := 32

	good := []Category{
		{ID: "c1", Name: "Rent"},
		{ID: "c2", Name: "Food", Frequency: "biweekly", DefaultDay: &day},
		{ID: "c3", Name: "Gym", Frequency: "custom", StepDays: 7, Count: 4},
	}
	for i, c := range good {
		if err := c.Validate(); err != nil {
			t.Fatalf("good case %d: %v", i, err)
		}
	}

	cases := []struct {
		c    Category
		want error
	}{
		{Category{ID: "", Name: "x"}, ErrEmptyID},
		{Category{ID: "c", Name: ""}, ErrEmptyName},
		{Category{ID: "c", Name: "x", DefaultDay: &badDay}, ErrInvalidStartDay},
		{Category{ID: "c", Name: "x", Frequency: "monthly"}, ErrInvalidRecurrenceConfig},
		{Category{ID: "c", Name: "x", Frequency: "custom", StepDays: 0, Count: 2}, ErrInvalidRecurrenceConfig},
	}
	for i, tc := range cases {
		if err := tc.c.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("case %d: Validate() = %v, want %v", i, err, tc.want)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{
		ID:            "b1",
		PeriodID:      "p1",
		CategoryID:    "c1",
		Total:         Money{Cents: 10000},
		PaymentMethod: PaymentCash,
		DefaultDate:   NewDate(2025, 3, 5),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := good
	zero.Total = Money{}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero total should be accepted, got %v", err)
	}

	bads := []func(b *Budget){
		func(b *Budget) { b.ID = "" },
		func(b *Budget) { b.PeriodID = "" },
		func(b *Budget) { b.CategoryID = "" },
		func(b *Budget) { b.Total = Money{Cents: -1} },
		func(b *Budget) { b.PaymentMethod = "wire" },
	}
	for i, mutate := range bads {
		b := good
		mutate(&b)
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
