package core

import (
	"fmt"
	"strings"
)

const (
	RecurrenceNone      RecurrenceKind = "none"
	RecurrenceBiweekly  RecurrenceKind = "biweekly"
	RecurrenceTriweekly RecurrenceKind = "triweekly"
	RecurrenceCustom    RecurrenceKind = "custom"
)

const maxCustomValue = 31

type RecurrenceKind string

// Recurrence is the closed set of splitting policies. Every variant must say
// how many installments it produces and how far apart they are, so a new
// policy cannot be added without defining both.
type Recurrence interface {
	Kind() RecurrenceKind
	// Installments is the number of parts the budget total is split into.
	Installments() int
	// StepDays is the distance in days between consecutive installments.
	StepDays() int

	recurrence()
}

type (
	NoRecurrence struct{}
	Biweekly     struct{}
	Triweekly    struct{}

	CustomRecurrence struct {
		Step  int
		Count int
	}
)

func (NoRecurrence) Kind() RecurrenceKind { return RecurrenceNone }
func (NoRecurrence) Installments() int    { return 1 }
func (NoRecurrence) StepDays() int        { return 0 }
func (NoRecurrence) recurrence()          {}

func (Biweekly) Kind() RecurrenceKind { return RecurrenceBiweekly }
func (Biweekly) Installments() int    { return 2 }
func (Biweekly) StepDays() int        { return 15 }
func (Biweekly) recurrence()          {}

func (Triweekly) Kind() RecurrenceKind { return RecurrenceTriweekly }
func (Triweekly) Installments() int    { return 3 }
func (Triweekly) StepDays() int        { return 10 }
func (Triweekly) recurrence()          {}

func (CustomRecurrence) Kind() RecurrenceKind { return RecurrenceCustom }
func (c CustomRecurrence) Installments() int  { return c.Count }
func (c CustomRecurrence) StepDays() int      { return c.Step }
func (CustomRecurrence) recurrence()          {}

// ParseRecurrence builds a Recurrence from a stored frequency name. step and
// count are only read for the custom cadence.
func ParseRecurrence(frequency string, step, count int) (Recurrence, error) {
	switch RecurrenceKind(strings.ToLower(strings.TrimSpace(frequency))) {
	case "", "null", RecurrenceNone:
		return NoRecurrence{}, nil
	case RecurrenceBiweekly:
		return Biweekly{}, nil
	case RecurrenceTriweekly:
		return Triweekly{}, nil
	case RecurrenceCustom:
		if step < 1 || step > maxCustomValue {
			return nil, fmt.Errorf("%w: custom step %d days out of range 1-%d", ErrInvalidRecurrenceConfig, step, maxCustomValue)
		}
		if count < 1 || count > maxCustomValue {
			return nil, fmt.Errorf("%w: custom count %d out of range 1-%d", ErrInvalidRecurrenceConfig, count, maxCustomValue)
		}
		return CustomRecurrence{Step: step, Count: count}, nil
	default:
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRecurrenceConfig, frequency)
	}
}
