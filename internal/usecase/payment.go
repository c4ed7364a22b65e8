package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/adapter/cache"
	"github.com/polkiloo/cryptostore/internal/adapter/explorer"
	"github.com/polkiloo/cryptostore/internal/config"
	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
)

const paymentCacheTTL = 30 * time.Second

// ReconcileAction names what a reconciliation run did to the payment record.
type ReconcileAction string

const (
	ActionNone                ReconcileAction = "none"
	ActionDetected            ReconcileAction = "detected"
	ActionProgress            ReconcileAction = "progress"
	ActionCompleted           ReconcileAction = "completed"
	ActionAlreadySettled      ReconcileAction = "already_settled"
	ActionCorrelationMismatch ReconcileAction = "correlation_mismatch"
	ActionRecordMissing       ReconcileAction = "record_missing"
)

// ReconcileOutcome merges the explorer query result with what happened to the record.
// Success is false only when the explorer could not be queried.
type ReconcileOutcome struct {
	Success          bool
	TransactionFound bool
	TransactionID    string
	ReceivedAmount   *decimal.Decimal
	Confirmations    int64
	Threshold        int64
	Status           model.PaymentStatus
	Action           ReconcileAction
	// RetryAfter is set when the explorer asked to slow down.
	RetryAfter time.Duration
}

// DiscoveryRequest asks whether a payment reached the receive address.
type DiscoveryRequest struct {
	PaymentID      uuid.UUID
	OrderID        uuid.UUID
	Provider       model.Provider
	WalletAddress  string
	ExpectedAmount decimal.Decimal
}

// ConfirmationRequest asks how deep a detected transaction is.
type ConfirmationRequest struct {
	PaymentID     uuid.UUID
	OrderID       uuid.UUID
	Provider      model.Provider
	TransactionID string
}

// PaymentUseCase initiates crypto payments and reconciles them against explorers.
type PaymentUseCase struct {
	payments   repository.PaymentRepository
	orders     repository.OrderRepository
	updater    OrderStatusUpdater
	explorer   explorer.Client
	thresholds model.ConfirmationThresholds
	paymentTTL time.Duration
	lease      time.Duration
	cache      cache.Cache
	logger     *slog.Logger
	now        func() time.Time
}

// NewPaymentUseCase constructs PaymentUseCase.
func NewPaymentUseCase(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	updater OrderStatusUpdater,
	client explorer.Client,
	cfg *config.Config,
	c cache.Cache,
	logger *slog.Logger,
) *PaymentUseCase {
	return &PaymentUseCase{
		payments:   payments,
		orders:     orders,
		updater:    updater,
		explorer:   client,
		thresholds: cfg.ConfirmationThresholds,
		paymentTTL: cfg.PaymentTTL,
		lease:      cfg.ReconcileLease,
		cache:      c,
		logger:     logger,
		now:        time.Now,
	}
}

// Initiate opens a payment for a pending order owned by userID.
func (u *PaymentUseCase) Initiate(ctx context.Context, userID int64, orderID uuid.UUID, provider model.Provider, expected decimal.Decimal) (*model.PaymentRecord, error) {
	if _, ok := model.ParseProvider(string(provider)); !ok {
		return nil, domainErrors.ErrUnsupportedProvider
	}
	if !expected.IsPositive() {
		return nil, domainErrors.ErrInvalidAmount
	}

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusPending {
		return nil, fmt.Errorf("%w: order is %s", domainErrors.ErrInvalidTransition, order.Status)
	}

	existing, err := u.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if !p.Status.Terminal() {
			return nil, fmt.Errorf("%w: payment %s is open", domainErrors.ErrAlreadyExists, p.ID)
		}
	}

	address, err := u.explorer.ReceiveAddress(provider)
	if err != nil {
		return nil, err
	}

	payment := &model.PaymentRecord{
		ID:             uuid.New(),
		OrderID:        orderID,
		Provider:       provider,
		WalletAddress:  address,
		ExpectedAmount: expected,
		Status:         model.PaymentStatusAwaiting,
	}
	if err := u.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	u.logger.Info("payment initiated",
		slog.String("payment_id", payment.ID.String()),
		slog.String("order_id", orderID.String()),
		slog.String("provider", string(provider)),
		slog.String("expected", expected.String()),
	)
	return payment, nil
}

// Get returns the payment when its order belongs to userID.
func (u *PaymentUseCase) Get(ctx context.Context, userID int64, paymentID uuid.UUID) (*model.PaymentRecord, error) {
	payment, err := cached(ctx, u.cache, u.logger, "payments:"+paymentID.String(), paymentCacheTTL, []string{cache.TagPayments}, func() (*model.PaymentRecord, error) {
		return u.payments.GetByID(ctx, paymentID)
	})
	if err != nil {
		return nil, err
	}
	order, err := u.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	return payment, nil
}

// CheckTransaction runs the discovery path: an awaiting payment whose
// transaction shows up on chain moves to pending confirmation.
func (u *PaymentUseCase) CheckTransaction(ctx context.Context, req DiscoveryRequest) (ReconcileOutcome, error) {
	if _, ok := model.ParseProvider(string(req.Provider)); !ok {
		return ReconcileOutcome{}, domainErrors.ErrUnsupportedProvider
	}
	if !req.ExpectedAmount.IsPositive() {
		return ReconcileOutcome{}, domainErrors.ErrInvalidAmount
	}
	if req.WalletAddress == "" {
		return ReconcileOutcome{}, fmt.Errorf("%w: wallet address is required", domainErrors.ErrInvalidInput)
	}

	log := u.logger.With(
		slog.String("payment_id", req.PaymentID.String()),
		slog.String("order_id", req.OrderID.String()),
		slog.String("provider", string(req.Provider)),
	)

	lookup, err := u.explorer.CheckTransactionStatus(ctx, req.Provider, req.WalletAddress, req.ExpectedAmount)
	if err != nil {
		return u.explorerFailure(log, err), nil
	}

	outcome := ReconcileOutcome{Success: true, Action: ActionNone}
	if lookup.Found() {
		outcome.report(lookup.Candidates[0])
	}

	record, ok, err := u.correlate(ctx, log, req.PaymentID, req.OrderID, req.Provider, &outcome)
	if err != nil || !ok {
		return outcome, err
	}
	if record.WalletAddress != req.WalletAddress || !record.ExpectedAmount.Equal(req.ExpectedAmount) {
		log.Warn("payment details do not match stored record")
		outcome.Action = ActionCorrelationMismatch
		return outcome, nil
	}
	outcome.Status = record.Status

	if !lookup.Found() {
		return outcome, nil
	}

	switch record.Status {
	case model.PaymentStatusAwaiting:
		// the receive address is shared, so only transactions sent after the
		// payment was opened are considered
		err := u.detect(ctx, log, record, lookup.Since(record.CreatedAt), &outcome)
		return outcome, err
	case model.PaymentStatusCompleted:
		outcome.Action = ActionAlreadySettled
	case model.PaymentStatusFailed:
		if late := lookup.Since(record.CreatedAt); len(late) > 0 {
			log.Warn("transaction found for expired payment", slog.String("transaction_id", late[0].TransactionID))
		}
	case model.PaymentStatusPending:
	}
	return outcome, nil
}

// detect credits the first candidate no other payment holds yet.
func (u *PaymentUseCase) detect(ctx context.Context, log *slog.Logger, record *model.PaymentRecord, candidates []model.IncomingTransaction, outcome *ReconcileOutcome) error {
	for _, c := range candidates {
		changed, err := u.payments.MarkDetected(ctx, record.ID, record.OrderID, c.TransactionID, c.ReceivedAmount)
		if errors.Is(err, domainErrors.ErrTransactionClaimed) {
			log.Debug("transaction credited to another payment", slog.String("transaction_id", c.TransactionID))
			continue
		}
		outcome.report(c)
		if err != nil {
			log.Error("failed to record detected transaction", slog.String("error", err.Error()))
			return fmt.Errorf("%w: mark detected: %v", domainErrors.ErrPersistence, err)
		}
		if !changed {
			log.Debug("payment advanced concurrently")
			return nil
		}
		log.Info("payment transaction detected",
			slog.String("transaction_id", c.TransactionID),
			slog.String("received", c.ReceivedAmount.String()),
		)
		outcome.Status = model.PaymentStatusPending
		outcome.Action = ActionDetected
		invalidate(ctx, u.cache, u.logger, cache.TagPayments)
		return nil
	}

	outcome.TransactionFound = false
	outcome.TransactionID = ""
	outcome.ReceivedAmount = nil
	return nil
}

func (o *ReconcileOutcome) report(tx model.IncomingTransaction) {
	received := tx.ReceivedAmount
	o.TransactionFound = true
	o.TransactionID = tx.TransactionID
	o.ReceivedAmount = &received
}

// CheckConfirmations runs the confirmation path: a pending payment reaching
// the provider threshold completes and its order is marked paid.
func (u *PaymentUseCase) CheckConfirmations(ctx context.Context, req ConfirmationRequest) (ReconcileOutcome, error) {
	if _, ok := model.ParseProvider(string(req.Provider)); !ok {
		return ReconcileOutcome{}, domainErrors.ErrUnsupportedProvider
	}
	if req.TransactionID == "" {
		return ReconcileOutcome{}, fmt.Errorf("%w: transaction id is required", domainErrors.ErrInvalidInput)
	}

	log := u.logger.With(
		slog.String("payment_id", req.PaymentID.String()),
		slog.String("order_id", req.OrderID.String()),
		slog.String("provider", string(req.Provider)),
		slog.String("transaction_id", req.TransactionID),
	)

	threshold, _ := u.thresholds.For(req.Provider)
	lookup, err := u.explorer.CheckTransactionConfirmations(ctx, req.Provider, req.TransactionID)
	if err != nil {
		outcome := u.explorerFailure(log, err)
		outcome.Threshold = threshold
		return outcome, nil
	}

	outcome := ReconcileOutcome{
		Success:          true,
		TransactionFound: true,
		TransactionID:    req.TransactionID,
		Confirmations:    lookup.Confirmations,
		Threshold:        threshold,
		Action:           ActionNone,
	}

	record, ok, err := u.correlate(ctx, log, req.PaymentID, req.OrderID, req.Provider, &outcome)
	if err != nil || !ok {
		return outcome, err
	}
	if record.Status == model.PaymentStatusAwaiting || record.Status == model.PaymentStatusFailed {
		// nothing detected yet, confirmations have no record to apply to
		outcome.Status = record.Status
		return outcome, nil
	}
	if record.TransactionID == nil || *record.TransactionID != req.TransactionID {
		log.Warn("transaction does not match stored payment")
		outcome.Action = ActionCorrelationMismatch
		return outcome, nil
	}
	outcome.Status = record.Status

	if record.Status == model.PaymentStatusCompleted {
		outcome.Action = ActionAlreadySettled
		return outcome, u.settleOrder(ctx, log, record)
	}

	if !u.thresholds.Reached(req.Provider, lookup.Confirmations) {
		if _, err := u.payments.RecordConfirmations(ctx, record.ID, lookup.Confirmations); err != nil {
			log.Error("failed to record confirmations", slog.String("error", err.Error()))
			return outcome, fmt.Errorf("%w: record confirmations: %v", domainErrors.ErrPersistence, err)
		}
		log.Debug("payment awaiting confirmations",
			slog.Int64("confirmations", lookup.Confirmations),
			slog.Int64("threshold", threshold),
		)
		outcome.Action = ActionProgress
		return outcome, nil
	}

	changed, err := u.payments.MarkCompleted(ctx, record.ID, lookup.Confirmations)
	if err != nil {
		log.Error("failed to complete payment", slog.String("error", err.Error()))
		return outcome, fmt.Errorf("%w: mark completed: %v", domainErrors.ErrPersistence, err)
	}
	if !changed {
		log.Debug("payment completed concurrently")
		outcome.Status = model.PaymentStatusCompleted
		outcome.Action = ActionAlreadySettled
		return outcome, nil
	}

	log.Info("payment completed", slog.Int64("confirmations", lookup.Confirmations))
	outcome.Status = model.PaymentStatusCompleted
	outcome.Action = ActionCompleted
	invalidate(ctx, u.cache, u.logger, cache.TagPayments)

	record.Status = model.PaymentStatusCompleted
	return outcome, u.settleOrder(ctx, log, record)
}

// Reconcile advances an open payment using its stored details and then
// gives up the claim taken when the payment was selected.
func (u *PaymentUseCase) Reconcile(ctx context.Context, payment model.PaymentRecord) (ReconcileOutcome, error) {
	defer u.releaseClaim(ctx, payment.ID)

	switch payment.Status {
	case model.PaymentStatusAwaiting:
		return u.CheckTransaction(ctx, DiscoveryRequest{
			PaymentID:      payment.ID,
			OrderID:        payment.OrderID,
			Provider:       payment.Provider,
			WalletAddress:  payment.WalletAddress,
			ExpectedAmount: payment.ExpectedAmount,
		})
	case model.PaymentStatusPending:
		if payment.TransactionID == nil {
			return ReconcileOutcome{Success: true, Status: payment.Status, Action: ActionNone}, nil
		}
		return u.CheckConfirmations(ctx, ConfirmationRequest{
			PaymentID:     payment.ID,
			OrderID:       payment.OrderID,
			Provider:      payment.Provider,
			TransactionID: *payment.TransactionID,
		})
	case model.PaymentStatusCompleted, model.PaymentStatusFailed:
	}
	return ReconcileOutcome{Success: true, Status: payment.Status, Action: ActionNone}, nil
}

// PaymentsForReconciliation claims a batch of open payments for this instance.
func (u *PaymentUseCase) PaymentsForReconciliation(ctx context.Context, limit int) ([]model.PaymentRecord, error) {
	return u.payments.SelectBatchForReconciliation(ctx, limit, u.lease)
}

func (u *PaymentUseCase) releaseClaim(ctx context.Context, id uuid.UUID) {
	if err := u.payments.ReleaseClaim(ctx, id); err != nil {
		// the lease runs out on its own
		u.logger.Warn("failed to release payment claim", slog.String("payment_id", id.String()), slog.String("error", err.Error()))
	}
}

// ExpireStale fails awaiting payments older than the payment TTL.
func (u *PaymentUseCase) ExpireStale(ctx context.Context) (int64, error) {
	n, err := u.payments.ExpireAwaiting(ctx, u.now().Add(-u.paymentTTL))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		u.logger.Info("stale payments expired", slog.Int64("count", n))
		invalidate(ctx, u.cache, u.logger, cache.TagPayments)
	}
	return n, nil
}

// correlate loads the record and checks it belongs to orderID on provider.
// Mismatches are recorded in outcome and never mutate anything.
func (u *PaymentUseCase) correlate(ctx context.Context, log *slog.Logger, paymentID, orderID uuid.UUID, provider model.Provider, outcome *ReconcileOutcome) (*model.PaymentRecord, bool, error) {
	record, err := u.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			log.Warn("payment record not found")
			outcome.Action = ActionRecordMissing
			return nil, false, nil
		}
		log.Error("failed to load payment", slog.String("error", err.Error()))
		return nil, false, fmt.Errorf("%w: load payment: %v", domainErrors.ErrPersistence, err)
	}
	if record.OrderID != orderID || record.Provider != provider {
		log.Warn("payment does not belong to order",
			slog.String("stored_order_id", record.OrderID.String()),
			slog.String("stored_provider", string(record.Provider)),
		)
		outcome.Action = ActionCorrelationMismatch
		return nil, false, nil
	}
	return record, true, nil
}

func (u *PaymentUseCase) settleOrder(ctx context.Context, log *slog.Logger, record *model.PaymentRecord) error {
	var txID string
	if record.TransactionID != nil {
		txID = *record.TransactionID
	}
	_, _, err := u.updater.UpdatePaymentStatus(ctx, PaymentUpdate{
		OrderID:       record.OrderID,
		PaymentID:     record.ID,
		Status:        model.PaymentStatusCompleted,
		TransactionID: txID,
		Provider:      record.Provider,
	})
	if err != nil {
		log.Error("failed to mark order paid", slog.String("error", err.Error()))
		return fmt.Errorf("%w: update order: %v", domainErrors.ErrPersistence, err)
	}
	return nil
}

func (u *PaymentUseCase) explorerFailure(log *slog.Logger, err error) ReconcileOutcome {
	outcome := ReconcileOutcome{Success: false, Action: ActionNone}
	var tooMany explorer.TooManyRequestsError
	if errors.As(err, &tooMany) {
		outcome.RetryAfter = tooMany.RetryAfter
		log.Warn("explorer rate limited", slog.Duration("retry_after", tooMany.RetryAfter))
		return outcome
	}
	log.Error("explorer query failed", slog.String("error", err.Error()))
	return outcome
}
