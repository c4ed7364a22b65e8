package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/server/http/dto"
	"github.com/polkiloo/cryptostore/internal/usecase"
)

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.facade.CreateOrder(c.Request.Context(), usecase.CreateOrderInput{
		UserID:       CurrentUserID(c),
		ProductID:    req.ProductID,
		Subtotal:     req.Subtotal,
		Currency:     req.Currency,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(*order))
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.facade.Order(c.Request.Context(), CurrentUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// List handles GET /api/orders.
func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.facade.Orders(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, toOrderResponses(orders))
}

func toOrderResponses(orders []model.Order) []dto.OrderResponse {
	response := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, toOrderResponse(o))
	}
	return response
}

func toOrderResponse(order model.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:             order.ID,
		ProductID:      order.ProductID,
		Subtotal:       order.Subtotal,
		DiscountCode:   order.DiscountCode,
		DiscountAmount: order.DiscountAmount,
		Total:          order.Total,
		Currency:       order.Currency,
		Status:         string(order.Status),
		PaymentID:      order.PaymentID,
		PaidAt:         order.PaidAt,
		CreatedAt:      order.CreatedAt,
	}
}
