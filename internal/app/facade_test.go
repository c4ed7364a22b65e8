package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/adapter/cache"
	"github.com/polkiloo/cryptostore/internal/adapter/events"
	"github.com/polkiloo/cryptostore/internal/config"
	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
	pkgAuth "github.com/polkiloo/cryptostore/internal/pkg/auth"
	testhelpers "github.com/polkiloo/cryptostore/internal/test"
	"github.com/polkiloo/cryptostore/internal/usecase"
)

type healthStub struct{ err error }

func (h healthStub) HealthCheck(context.Context) error { return h.err }

type facadeDeps struct {
	users     *testhelpers.UserRepositoryStub
	orders    *testhelpers.OrderRepositoryStub
	payments  *testhelpers.PaymentRepositoryStub
	discounts *testhelpers.DiscountRepositoryStub
	explorer  *testhelpers.ExplorerStub
	redis     *miniredis.Miniredis
}

func newFacade(t *testing.T) (*StoreFacade, *facadeDeps) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewRedisCache(client, "app:", logger)

	deps := &facadeDeps{
		users:     testhelpers.NewUserRepositoryStub(),
		orders:    testhelpers.NewOrderRepositoryStub(),
		payments:  testhelpers.NewPaymentRepositoryStub(),
		discounts: testhelpers.NewDiscountRepositoryStub(model.DiscountCode{Code: "TEST10", DiscountType: model.DiscountTypePercentage, Value: decimal.NewFromInt(10), IsActive: true}),
		explorer:  &testhelpers.ExplorerStub{Wallets: map[model.Provider]string{model.ProviderBitcoin: "bc1qstore"}},
		redis:     srv,
	}

	strategy := testhelpers.StrategyStub{
		IssueFn: func(id pkgAuth.Identity) (string, error) { return fmt.Sprintf("token-%d", id.UserID), nil },
		ParseFn: func(string) (pkgAuth.Identity, error) { return pkgAuth.Identity{UserID: 99, Role: model.RoleCustomer}, nil },
	}
	cfg := &config.Config{ConfirmationThresholds: model.DefaultConfirmationThresholds(), PaymentTTL: time.Hour}

	authUC := usecase.NewAuthUseCase(deps.users, testhelpers.HasherStub{}, strategy, cfg)
	discountUC := usecase.NewDiscountUseCase(deps.discounts, c, logger)
	orderUC := usecase.NewOrderUseCase(deps.orders, discountUC, events.NopPublisher{Logger: logger}, c, logger)
	paymentUC := usecase.NewPaymentUseCase(deps.payments, deps.orders, orderUC, deps.explorer, cfg, c, logger)

	return NewStoreFacade(authUC, orderUC, paymentUC, discountUC, c, healthStub{}), deps
}

func TestStoreFacadeAuth(t *testing.T) {
	facade, deps := newFacade(t)
	token, err := facade.Register(context.Background(), "user", "pass")
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	if token != "token-1" {
		t.Fatalf("unexpected token %q", token)
	}

	if _, err := deps.users.GetByLogin(context.Background(), "user"); err != nil {
		t.Fatalf("user not stored: %v", err)
	}

	if _, err := facade.Authenticate(context.Background(), "user", "pass"); err != nil {
		t.Fatalf("authenticate returned error: %v", err)
	}

	identity, err := facade.ParseToken("anything")
	if err != nil {
		t.Fatalf("parse token returned error: %v", err)
	}
	if identity.UserID != 99 || identity.IsAdmin() {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestStoreFacadeCheckoutFlow(t *testing.T) {
	facade, deps := newFacade(t)
	ctx := context.Background()

	order, err := facade.CreateOrder(ctx, usecase.CreateOrderInput{UserID: 5, ProductID: "aim-30d", Subtotal: decimal.NewFromInt(50), DiscountCode: "test10"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !order.Total.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("expected discounted total 45, got %s", order.Total)
	}

	listed, err := facade.Orders(ctx, 5)
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected one order, got %v err=%v", listed, err)
	}
	if _, err := facade.Order(ctx, 6, order.ID); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected foreign order to be hidden, got %v", err)
	}

	payment, err := facade.InitiatePayment(ctx, 5, order.ID, model.ProviderBitcoin, decimal.RequireFromString("0.001"))
	if err != nil {
		t.Fatalf("initiate payment: %v", err)
	}

	batch, err := facade.PaymentsForReconciliation(ctx, 10)
	if err != nil || len(batch) != 1 {
		t.Fatalf("expected open payment in batch, got %v err=%v", batch, err)
	}

	deps.explorer.Lookup = testhelpers.Mempool("tx1", decimal.RequireFromString("0.001"))
	deps.explorer.Confirmations = 1

	outcome, err := facade.ReconcilePayment(ctx, batch[0])
	if err != nil || outcome.Action != usecase.ActionDetected {
		t.Fatalf("expected detection, got %+v err=%v", outcome, err)
	}

	outcome, err = facade.CheckConfirmations(ctx, usecase.ConfirmationRequest{PaymentID: payment.ID, OrderID: order.ID, Provider: model.ProviderBitcoin, TransactionID: "tx1"})
	if err != nil || outcome.Action != usecase.ActionCompleted {
		t.Fatalf("expected completion, got %+v err=%v", outcome, err)
	}

	paid, err := facade.Order(ctx, 5, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if paid.Status != model.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", paid.Status)
	}
	if deps.discounts.Uses("TEST10") != 1 {
		t.Fatalf("expected the discount use reserved once")
	}

	stored, err := facade.Payment(ctx, 5, payment.ID)
	if err != nil || stored.Status != model.PaymentStatusCompleted {
		t.Fatalf("expected completed payment, got %+v err=%v", stored, err)
	}

	outcome, err = facade.CheckTransaction(ctx, usecase.DiscoveryRequest{PaymentID: payment.ID, OrderID: uuid.New(), Provider: model.ProviderBitcoin, WalletAddress: "bc1qstore", ExpectedAmount: decimal.RequireFromString("0.001")})
	if err != nil || outcome.Action != usecase.ActionCorrelationMismatch {
		t.Fatalf("expected correlation mismatch, got %+v err=%v", outcome, err)
	}

	if _, err := facade.ExpireStalePayments(ctx); err != nil {
		t.Fatalf("expire: %v", err)
	}
}

func TestStoreFacadeDiscountsAndAdmin(t *testing.T) {
	facade, deps := newFacade(t)
	ctx := context.Background()

	result, err := facade.ValidateDiscount(ctx, "TEST10", decimal.NewFromInt(100))
	if err != nil || !result.Valid || !result.DiscountAmount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected validation %+v err=%v", result, err)
	}

	code := &model.DiscountCode{Code: "NEW5", DiscountType: model.DiscountTypeFixedAmount, Value: decimal.NewFromInt(5), IsActive: true}
	if err := facade.CreateDiscount(ctx, code); err != nil {
		t.Fatalf("create discount: %v", err)
	}
	codes, err := facade.Discounts(ctx)
	if err != nil || len(codes) != 2 {
		t.Fatalf("expected two codes, got %v err=%v", codes, err)
	}
	updated, err := facade.SetDiscountActive(ctx, "NEW5", false)
	if err != nil || updated.IsActive {
		t.Fatalf("expected deactivated code, got %+v err=%v", updated, err)
	}

	order, err := facade.CreateOrder(ctx, usecase.CreateOrderInput{UserID: 1, ProductID: "aim-30d", Subtotal: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	status := model.OrderStatusPending
	all, err := facade.AllOrders(ctx, repository.OrderFilter{Status: &status})
	if err != nil || len(all) != 1 {
		t.Fatalf("expected one pending order, got %v err=%v", all, err)
	}
	if _, err := facade.SetOrderStatus(ctx, order.ID, model.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if deps.orders.Orders[order.ID].Status != model.OrderStatusCancelled {
		t.Fatalf("expected cancelled order")
	}

	if err := facade.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestStoreFacadeRevalidateCache(t *testing.T) {
	facade, deps := newFacade(t)
	ctx := context.Background()

	if _, err := facade.Discounts(ctx); err != nil {
		t.Fatalf("list discounts: %v", err)
	}
	if !hasKeyWithPrefix(deps.redis, "app:discounts") {
		t.Fatalf("expected discount list to be cached, keys=%v", deps.redis.Keys())
	}

	n, err := facade.RevalidateCache(ctx, []string{cache.TagDiscounts, cache.ExplorerTag("bitcoin")})
	if err != nil {
		t.Fatalf("revalidate: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one entry dropped, got %d", n)
	}

	for _, tags := range [][]string{nil, {"users"}, {cache.ExplorerTag("dogecoin")}} {
		if _, err := facade.RevalidateCache(ctx, tags); !errors.Is(err, domainErrors.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %v, got %v", tags, err)
		}
	}
}

func hasKeyWithPrefix(srv *miniredis.Miniredis, prefix string) bool {
	for _, k := range srv.Keys() {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}
