package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/usecase"
)

// ReconcileFacade exposes the subset of application functionality required by the worker.
type ReconcileFacade interface {
	ExpireStalePayments(ctx context.Context) (int64, error)
	PaymentsForReconciliation(ctx context.Context, limit int) ([]model.PaymentRecord, error)
	ReconcilePayment(ctx context.Context, payment model.PaymentRecord) (usecase.ReconcileOutcome, error)
}

// PaymentProcessor polls explorers for open payments and advances them concurrently.
type PaymentProcessor struct {
	facade       ReconcileFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.PaymentRecord
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewPaymentProcessor constructs payment processor worker pool.
func NewPaymentProcessor(facade ReconcileFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *PaymentProcessor {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &PaymentProcessor{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.PaymentRecord, batchSize*workers),
	}
}

// Start launches background processing.
func (p *PaymentProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (p *PaymentProcessor) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *PaymentProcessor) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.expireAndDispatch(ctx)
		}
	}
}

func (p *PaymentProcessor) expireAndDispatch(ctx context.Context) {
	if _, err := p.facade.ExpireStalePayments(ctx); err != nil {
		p.logger.Error("expire stale payments failed", slog.String("error", err.Error()))
	}

	payments, err := p.facade.PaymentsForReconciliation(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("fetch payments for reconciliation failed", slog.String("error", err.Error()))
		return
	}
	for _, payment := range payments {
		select {
		case <-ctx.Done():
			return
		case p.jobs <- payment:
		}
	}
}

func (p *PaymentProcessor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case payment, ok := <-p.jobs:
			if !ok {
				return
			}
			p.handlePayment(ctx, payment)
		}
	}
}

func (p *PaymentProcessor) handlePayment(ctx context.Context, payment model.PaymentRecord) {
	outcome, err := p.facade.ReconcilePayment(ctx, payment)
	if err != nil {
		p.logger.Error("payment reconciliation failed",
			slog.String("payment_id", payment.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if outcome.RetryAfter > 0 {
		p.logger.Warn("explorer rate limited",
			slog.String("provider", string(payment.Provider)),
			slog.Duration("retry_after", outcome.RetryAfter),
		)
		sleep(ctx, outcome.RetryAfter)
		return
	}
	if outcome.Action != usecase.ActionNone {
		p.logger.Debug("payment reconciled",
			slog.String("payment_id", payment.ID.String()),
			slog.String("action", string(outcome.Action)),
			slog.String("status", string(outcome.Status)),
		)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
