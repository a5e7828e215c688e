package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Actions carried by BudgetChangedMessage
const (
	ActionPeriodCreated   = "period_created"
	ActionCategoryCreated = "category_created"
	ActionBudgetCreated   = "budget_created"

	// ActionResync is delivered locally after a consumer reconnects, since
	// changes published in between were not received.
	ActionResync = "resync"
)

// BudgetChangedMessage tells report consumers that the budgets behind a
// period changed. An empty PeriodID means every period may be affected,
// which is the case for category changes.
type BudgetChangedMessage struct {
	PeriodID  string    `json:"periodId,omitempty"`
	BudgetID  string    `json:"budgetId,omitempty"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetChangedMessage(action, periodID, budgetID string) *BudgetChangedMessage {
	return &BudgetChangedMessage{
		PeriodID:  periodID,
		BudgetID:  budgetID,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// AllPeriods reports whether the message invalidates every period.
func (m *BudgetChangedMessage) AllPeriods() bool {
	return m.PeriodID == ""
}

func (m *BudgetChangedMessage) Validate() error {
	switch m.Action {
	case ActionPeriodCreated, ActionBudgetCreated:
		if m.PeriodID == "" {
			return errors.New("period id is required for " + m.Action)
		}
	case ActionCategoryCreated, ActionResync:
	default:
		return errors.New("unknown action: " + m.Action)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *BudgetChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetChangedMessageFromJSON decodes and validates a message
func BudgetChangedMessageFromJSON(data []byte) (*BudgetChangedMessage, error) {
	var msg BudgetChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
