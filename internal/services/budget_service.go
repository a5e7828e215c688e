package services

import (
	"context"
	"fmt"

	"budgetflow/internal/amqp"
	"budgetflow/internal/core"
	"budgetflow/internal/log"
	"budgetflow/internal/source"
)

// Publisher announces budget data changes so report caches can be evicted.
type Publisher interface {
	PublishBudgetChanged(ctx context.Context, msg *amqp.BudgetChangedMessage) error
}

// BudgetService writes periods, categories and budgets to the store and
// publishes a change message after each successful write.
type BudgetService struct {
	store     source.Writer
	publisher Publisher
	logger    *log.Logger
}

// NewBudgetService wires the writer and an optional publisher (nil disables
// change notifications).
func NewBudgetService(store source.Writer, publisher Publisher, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BudgetService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentStorage),
	}
}

func (s *BudgetService) CreatePeriod(ctx context.Context, p core.Period) (core.Period, error) {
	created, err := s.store.CreatePeriod(ctx, p)
	if err != nil {
		return core.Period{}, fmt.Errorf("create period: %w", err)
	}
	s.publish(ctx, amqp.NewBudgetChangedMessage(amqp.ActionPeriodCreated, created.ID, ""))
	return created, nil
}

// CreateCategory stores a category. Its recurrence policy feeds every
// period, so the notification targets all periods.
func (s *BudgetService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.publish(ctx, amqp.NewBudgetChangedMessage(amqp.ActionCategoryCreated, "", ""))
	return created, nil
}

func (s *BudgetService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	created, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget created",
		log.NewFields().
			WithBudget(created.ID, created.CategoryID, created.Total.Cents).
			WithPeriod(created.PeriodID, "").
			WithOperation(log.OpCreate).
			ToSlice()...)
	s.publish(ctx, amqp.NewBudgetChangedMessage(amqp.ActionBudgetCreated, created.PeriodID, created.ID))
	return created, nil
}

func (s *BudgetService) Categories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

// publish never fails the write: the row is already stored and cached
// reports still expire by TTL.
func (s *BudgetService) publish(ctx context.Context, msg *amqp.BudgetChangedMessage) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping change message", "action", msg.Action)
		return
	}
	if err := s.publisher.PublishBudgetChanged(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish change message",
			"action", msg.Action,
			log.FieldPeriodID, msg.PeriodID,
			log.FieldError, err)
	}
}
