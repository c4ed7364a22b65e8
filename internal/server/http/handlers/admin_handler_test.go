package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
	"github.com/polkiloo/cryptostore/internal/server/http/dto"
	"github.com/polkiloo/cryptostore/internal/usecase"
)

func TestDiscountHandlerValidate(t *testing.T) {
	facade := facadeStub{ValidateDiscountFn: func(_ context.Context, code string, amount decimal.Decimal) (model.DiscountResult, error) {
		switch code {
		case "TEST10":
			return model.DiscountResult{Valid: true, DiscountAmount: amount.Div(decimal.NewFromInt(10))}, nil
		case "EXPIRED-CODE-456":
			return model.DiscountResult{Valid: false, Message: usecase.MessageCodeExpired}, nil
		}
		return model.DiscountResult{}, domainErrors.ErrInvalidAmount
	}}
	handler := NewDiscountHandler(facade)

	resp := performRequest(t, http.MethodPost, "/validate", handler.Validate, nil, []byte(`{"code":"TEST10","orderAmount":100}`), jsonHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var decoded dto.ValidateDiscountResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !decoded.Valid || decoded.DiscountAmount == nil || !decoded.DiscountAmount.Equal(decimal.NewFromInt(10)) || decoded.Message != "" {
		t.Fatalf("unexpected result %+v", decoded)
	}

	resp = performRequest(t, http.MethodPost, "/validate", handler.Validate, nil, []byte(`{"code":"EXPIRED-CODE-456","orderAmount":100}`), jsonHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for rejected code, got %d", resp.Code)
	}
	decoded = dto.ValidateDiscountResponse{}
	if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded.Valid || decoded.DiscountAmount != nil || decoded.Message != "expired" {
		t.Fatalf("unexpected result %+v", decoded)
	}

	resp = performRequest(t, http.MethodPost, "/validate", handler.Validate, nil, []byte(`{"code":"X","orderAmount":-1}`), jsonHeaders)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestAdminHandlerOrders(t *testing.T) {
	var got repository.OrderFilter
	facade := facadeStub{AllOrdersFn: func(_ context.Context, filter repository.OrderFilter) ([]model.Order, error) {
		got = filter
		return []model.Order{{ID: uuid.New(), Status: model.OrderStatusPaid}}, nil
	}}
	handler := NewAdminHandler(facade)

	resp := performRoute(t, http.MethodGet, "/orders", "/orders?status=paid&limit=5", handler.Orders, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if got.Status == nil || *got.Status != model.OrderStatusPaid || got.Limit != 5 {
		t.Fatalf("unexpected filter %+v", got)
	}

	for _, query := range []string{"?status=shipped", "?limit=-1", "?limit=x"} {
		resp = performRoute(t, http.MethodGet, "/orders", "/orders"+query, handler.Orders, nil, nil, nil)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 for %s, got %d", query, resp.Code)
		}
	}
}

func TestAdminHandlerSetOrderStatus(t *testing.T) {
	id := uuid.New()
	handler := NewAdminHandler(facadeStub{})
	resp := performRoute(t, http.MethodPatch, "/orders/:id/status", "/orders/"+id.String()+"/status", handler.SetOrderStatus, nil, []byte(`{"status":"fulfilled"}`), jsonHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	resp = performRoute(t, http.MethodPatch, "/orders/:id/status", "/orders/"+id.String()+"/status", handler.SetOrderStatus, nil, []byte(`{"status":"bogus"}`), jsonHeaders)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}

	conflict := NewAdminHandler(facadeStub{SetOrderStatusFn: func(context.Context, uuid.UUID, model.OrderStatus) (*model.Order, error) {
		return nil, domainErrors.ErrInvalidTransition
	}})
	resp = performRoute(t, http.MethodPatch, "/orders/:id/status", "/orders/"+id.String()+"/status", conflict.SetOrderStatus, nil, []byte(`{"status":"paid"}`), jsonHeaders)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestAdminHandlerDiscounts(t *testing.T) {
	var created *model.DiscountCode
	facade := facadeStub{
		CreateDiscountFn: func(_ context.Context, code *model.DiscountCode) error {
			created = code
			if code.Code == "DUP" {
				return domainErrors.ErrAlreadyExists
			}
			return nil
		},
		DiscountsFn: func(context.Context) ([]model.DiscountCode, error) {
			return []model.DiscountCode{{Code: "TEST10", DiscountType: model.DiscountTypePercentage, Value: decimal.NewFromInt(10), IsActive: true}}, nil
		},
	}
	handler := NewAdminHandler(facade)

	resp := performRequest(t, http.MethodPost, "/discounts", handler.CreateDiscount, nil, []byte(`{"code":"spring","discountType":"fixed_amount","value":"15","maximumUses":100}`), jsonHeaders)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	if created == nil || !created.IsActive || created.DiscountType != model.DiscountTypeFixedAmount || *created.MaximumUses != 100 {
		t.Fatalf("unexpected code passed to facade %+v", created)
	}

	resp = performRequest(t, http.MethodPost, "/discounts", handler.CreateDiscount, nil, []byte(`{"code":"DUP","discountType":"percentage","value":"5"}`), jsonHeaders)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}

	resp = performRequest(t, http.MethodGet, "/discounts", handler.Discounts, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var listed []dto.DiscountCodeResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &listed); err != nil || len(listed) != 1 {
		t.Fatalf("unexpected list %v err=%v", listed, err)
	}

	resp = performRoute(t, http.MethodPatch, "/discounts/:code", "/discounts/TEST10", handler.SetDiscountActive, nil, []byte(`{"isActive":false}`), jsonHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	resp = performRoute(t, http.MethodPatch, "/discounts/:code", "/discounts/TEST10", handler.SetDiscountActive, nil, []byte(`{}`), jsonHeaders)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestAdminHandlerRevalidateCache(t *testing.T) {
	facade := facadeStub{RevalidateCacheFn: func(_ context.Context, tags []string) (int64, error) {
		if len(tags) == 1 && tags[0] == "orders" {
			return 3, nil
		}
		return 0, domainErrors.ErrInvalidInput
	}}
	handler := NewAdminHandler(facade)

	resp := performRequest(t, http.MethodPost, "/revalidate", handler.RevalidateCache, nil, []byte(`{"tags":["orders"]}`), jsonHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var decoded dto.RevalidateResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !decoded.Revalidated || decoded.Removed != 3 {
		t.Fatalf("unexpected response %+v", decoded)
	}

	resp = performRequest(t, http.MethodPost, "/revalidate", handler.RevalidateCache, nil, []byte(`{"tags":["users"]}`), jsonHeaders)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/health", NewHealthHandler(facadeStub{}).Check, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	resp = performRequest(t, http.MethodGet, "/health", NewHealthHandler(facadeStub{HealthErr: errors.New("down")}).Check, nil, nil, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", resp.Code)
	}
}
