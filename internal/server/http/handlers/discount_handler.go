package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/cryptostore/internal/server/http/dto"
)

// DiscountHandler validates discount codes at checkout.
type DiscountHandler struct {
	facade DiscountFacade
}

func NewDiscountHandler(facade DiscountFacade) *DiscountHandler {
	return &DiscountHandler{facade: facade}
}

// Validate handles POST /api/discounts/validate. Rejected codes are a 200
// with valid=false and a message.
func (h *DiscountHandler) Validate(c *gin.Context) {
	var req dto.ValidateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.facade.ValidateDiscount(c.Request.Context(), req.Code, req.OrderAmount)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := dto.ValidateDiscountResponse{Valid: result.Valid, Message: result.Message}
	if result.Valid {
		amount := result.DiscountAmount
		resp.DiscountAmount = &amount
	}
	c.JSON(http.StatusOK, resp)
}
