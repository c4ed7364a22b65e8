package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/config"
	"github.com/polkiloo/cryptostore/internal/domain/model"
	testhelpers "github.com/polkiloo/cryptostore/internal/test"
	"github.com/polkiloo/cryptostore/internal/usecase"
	"github.com/polkiloo/cryptostore/internal/worker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewHTTPServer(t *testing.T) {
	router := gin.New()
	server := newHTTPServer(serverParams{Config: &config.Config{RunAddress: ":9999"}, Router: router})
	if server.Addr != ":9999" || server.Handler != router {
		t.Fatalf("unexpected server %+v", server)
	}
	if server.ReadHeaderTimeout <= 0 {
		t.Fatal("expected read header timeout to be set")
	}
}

func TestNewPaymentProcessorUsesConfig(t *testing.T) {
	facade, _ := newFacade(t)
	proc := newPaymentProcessor(workerParams{
		Facade: facade,
		Config: &config.Config{PaymentPollInterval: 15 * time.Second, PollBatchSize: 3, WorkerPoolSize: 4},
		Logger: discardLogger(),
	})
	if proc == nil {
		t.Fatal("expected payment processor instance")
	}
}

func startLifecycle(t *testing.T, server *http.Server, proc *worker.PaymentProcessor, shutdowner *testhelpers.ShutdownerStub) func() {
	t.Helper()
	recorder := &testhelpers.LifecycleRecorder{}
	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     discardLogger(),
		Server:     server,
		Worker:     proc,
		Config:     &config.Config{ShutdownTimeout: 100 * time.Millisecond},
	})
	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook registered, got %d", len(recorder.Hooks))
	}

	hook := recorder.Hooks[0]
	// a cancelled start context must not stop the worker
	ctx, cancel := context.WithCancel(context.Background())
	if err := hook.OnStart(ctx); err != nil {
		t.Fatalf("on start failed: %v", err)
	}
	cancel()

	return func() {
		done := make(chan error, 1)
		go func() { done <- hook.OnStop(context.Background()) }()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("on stop failed: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("expected on stop to finish")
		}
	}
}

func TestLifecycleRunsPaymentWorker(t *testing.T) {
	facade, deps := newFacade(t)
	ctx := context.Background()

	order, err := facade.CreateOrder(ctx, usecase.CreateOrderInput{UserID: 3, ProductID: "aim-7d", Subtotal: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	payment, err := facade.InitiatePayment(ctx, 3, order.ID, model.ProviderBitcoin, decimal.RequireFromString("0.0004"))
	if err != nil {
		t.Fatalf("initiate payment: %v", err)
	}
	deps.explorer.Lookup = testhelpers.Mempool("worker-tx", decimal.RequireFromString("0.0004"))
	deps.explorer.Confirmations = 1

	proc := worker.NewPaymentProcessor(facade, 5*time.Millisecond, 5, 2, discardLogger())
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	stop := startLifecycle(t, server, proc, &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)})

	deadline := time.After(2 * time.Second)
	for {
		stored, err := deps.payments.GetByID(ctx, payment.ID)
		if err == nil && stored.Status == model.PaymentStatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("payment was not settled by the worker: %+v err=%v", stored, err)
		case <-time.After(5 * time.Millisecond):
		}
	}
	stop()

	paid, err := deps.orders.GetByID(ctx, order.ID)
	if err != nil || paid.Status != model.OrderStatusPaid {
		t.Fatalf("expected paid order, got %+v err=%v", paid, err)
	}
}

func TestRegisterLifecycleShutdownOnServerError(t *testing.T) {
	facade, _ := newFacade(t)
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	proc := worker.NewPaymentProcessor(facade, time.Hour, 1, 1, discardLogger())

	stop := startLifecycle(t, &http.Server{Addr: "bad addr"}, proc, shutdowner)

	select {
	case <-shutdowner.Called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be triggered on server error")
	}
	stop()
}
