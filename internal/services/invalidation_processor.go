package services

import (
	"context"
	"fmt"
	"sync"

	"budgetflow/internal/amqp"
	"budgetflow/internal/log"
)

// ChangeConsumer delivers budget change messages until ctx is done.
type ChangeConsumer interface {
	ConsumeBudgetChanged(ctx context.Context, handler func(context.Context, *amqp.BudgetChangedMessage) error) error
}

// ReportInvalidator evicts cached execution reports.
type ReportInvalidator interface {
	InvalidatePeriod(periodID string) int
	InvalidateAll() int
}

// InvalidationProcessor evicts cached reports when another process
// announces a budget change.
type InvalidationProcessor struct {
	consumer ChangeConsumer
	cache    ReportInvalidator
	logger   *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

func NewInvalidationProcessor(consumer ChangeConsumer, cache ReportInvalidator, logger *log.Logger) *InvalidationProcessor {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &InvalidationProcessor{
		consumer: consumer,
		cache:    cache,
		logger:   logger.WithComponent(log.ComponentCache),
	}
}

// Start begins consuming in the background. Returns an error if already running.
func (p *InvalidationProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("invalidation processor is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.doneCh = make(chan struct{})

	go p.run(runCtx, p.doneCh)

	p.logger.InfoContext(ctx, "Invalidation processor started")
	return nil
}

func (p *InvalidationProcessor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	if err := p.consumer.ConsumeBudgetChanged(ctx, p.Handle); err != nil && ctx.Err() == nil {
		p.logger.ErrorContext(ctx, "Change consumer stopped", log.FieldError, err)
	}
}

// Stop cancels consumption and waits for the consumer to return.
func (p *InvalidationProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.cancel()
	done := p.doneCh
	p.mu.Unlock()

	select {
	case <-done:
		p.logger.InfoContext(ctx, "Invalidation processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Invalidation processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *InvalidationProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Handle applies one change message to the cache. A message without a
// period id evicts every report.
func (p *InvalidationProcessor) Handle(ctx context.Context, msg *amqp.BudgetChangedMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	var evicted int
	if msg.AllPeriods() {
		evicted = p.cache.InvalidateAll()
	} else {
		evicted = p.cache.InvalidatePeriod(msg.PeriodID)
	}

	p.logger.DebugContext(ctx, "Reports invalidated",
		log.FieldOperation, log.OpInvalidate,
		log.FieldPeriodID, msg.PeriodID,
		"action", msg.Action,
		"evicted", evicted)
	return nil
}
