package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
	"github.com/polkiloo/cryptostore/internal/server/http/dto"
)

// AdminHandler serves order, discount, and cache management.
type AdminHandler struct {
	facade AdminFacade
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(facade AdminFacade) *AdminHandler {
	return &AdminHandler{facade: facade}
}

// Orders handles GET /api/admin/orders?status=&limit=.
func (h *AdminHandler) Orders(c *gin.Context) {
	var filter repository.OrderFilter
	if raw := c.Query("status"); raw != "" {
		status, ok := model.ParseOrderStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unknown status"})
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	orders, err := h.facade.AllOrders(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponses(orders))
}

// SetOrderStatus handles PATCH /api/admin/orders/:id/status.
func (h *AdminHandler) SetOrderStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unknown status"})
		return
	}

	order, err := h.facade.SetOrderStatus(c.Request.Context(), id, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// Discounts handles GET /api/admin/discounts.
func (h *AdminHandler) Discounts(c *gin.Context) {
	codes, err := h.facade.Discounts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]dto.DiscountCodeResponse, 0, len(codes))
	for _, code := range codes {
		resp = append(resp, toDiscountResponse(code))
	}
	c.JSON(http.StatusOK, resp)
}

// CreateDiscount handles POST /api/admin/discounts.
func (h *AdminHandler) CreateDiscount(c *gin.Context) {
	var req dto.DiscountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	code := &model.DiscountCode{
		Code:          req.Code,
		DiscountType:  model.DiscountType(req.DiscountType),
		Value:         req.Value,
		MinimumAmount: req.MinimumAmount,
		MaximumUses:   req.MaximumUses,
		IsActive:      req.IsActive == nil || *req.IsActive,
		ExpiresAt:     req.ExpiresAt,
	}
	if err := h.facade.CreateDiscount(c.Request.Context(), code); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDiscountResponse(*code))
}

// SetDiscountActive handles PATCH /api/admin/discounts/:code.
func (h *AdminHandler) SetDiscountActive(c *gin.Context) {
	var req dto.SetDiscountActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "isActive is required"})
		return
	}

	code, err := h.facade.SetDiscountActive(c.Request.Context(), c.Param("code"), *req.IsActive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDiscountResponse(*code))
}

// RevalidateCache handles POST /api/admin/cache/revalidate.
func (h *AdminHandler) RevalidateCache(c *gin.Context) {
	var req dto.RevalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	removed, err := h.facade.RevalidateCache(c.Request.Context(), req.Tags)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RevalidateResponse{Revalidated: true, Tags: req.Tags, Removed: removed})
}

func toDiscountResponse(code model.DiscountCode) dto.DiscountCodeResponse {
	return dto.DiscountCodeResponse{
		Code:          code.Code,
		DiscountType:  string(code.DiscountType),
		Value:         code.Value,
		MinimumAmount: code.MinimumAmount,
		MaximumUses:   code.MaximumUses,
		CurrentUses:   code.CurrentUses,
		IsActive:      code.IsActive,
		ExpiresAt:     code.ExpiresAt,
		CreatedAt:     code.CreatedAt,
	}
}
