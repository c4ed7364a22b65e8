package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/server/http/dto"
	"github.com/polkiloo/cryptostore/internal/usecase"
)

// PaymentHandler serves payment initiation and reconciliation checks.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

// Initiate handles POST /api/payments.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	payment, err := h.facade.InitiatePayment(c.Request.Context(), CurrentUserID(c), req.OrderID, model.Provider(req.Provider), req.ExpectedAmount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPaymentResponse(*payment))
}

// Get handles GET /api/payments/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.facade.Payment(c.Request.Context(), CurrentUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(*payment))
}

// CheckTransaction handles POST /api/payments/check-transaction.
func (h *PaymentHandler) CheckTransaction(c *gin.Context) {
	var req dto.CheckTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	outcome, err := h.facade.CheckTransaction(c.Request.Context(), usecase.DiscoveryRequest{
		PaymentID:      req.PaymentID,
		OrderID:        req.OrderID,
		Provider:       model.Provider(req.Provider),
		WalletAddress:  req.WalletAddress,
		ExpectedAmount: req.ExpectedAmount,
	})
	if err != nil && !errors.Is(err, domainErrors.ErrPersistence) {
		writeError(c, err)
		return
	}

	resp := dto.CheckTransactionResponse{
		Success:          outcome.Success,
		TransactionFound: outcome.TransactionFound,
		TransactionID:    outcome.TransactionID,
		ReceivedAmount:   outcome.ReceivedAmount,
		Status:           string(outcome.Status),
		Action:           string(outcome.Action),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(outcomeStatus(outcome, err), resp)
}

// CheckConfirmations handles POST /api/payments/check-confirmations.
func (h *PaymentHandler) CheckConfirmations(c *gin.Context) {
	var req dto.CheckConfirmationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	outcome, err := h.facade.CheckConfirmations(c.Request.Context(), usecase.ConfirmationRequest{
		PaymentID:     req.PaymentID,
		OrderID:       req.OrderID,
		Provider:      model.Provider(req.Provider),
		TransactionID: req.TransactionID,
	})
	if err != nil && !errors.Is(err, domainErrors.ErrPersistence) {
		writeError(c, err)
		return
	}

	resp := dto.CheckConfirmationsResponse{
		Success:   outcome.Success,
		Threshold: outcome.Threshold,
		Status:    string(outcome.Status),
		Action:    string(outcome.Action),
	}
	if outcome.Success {
		confirmations := outcome.Confirmations
		resp.Confirmations = &confirmations
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(outcomeStatus(outcome, err), resp)
}

// outcomeStatus picks the response code for a reconciliation run. A failed
// write still returns the query result.
func outcomeStatus(outcome usecase.ReconcileOutcome, err error) int {
	switch {
	case err != nil:
		return http.StatusInternalServerError
	case !outcome.Success:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

func toPaymentResponse(p model.PaymentRecord) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:             p.ID,
		OrderID:        p.OrderID,
		Provider:       string(p.Provider),
		WalletAddress:  p.WalletAddress,
		ExpectedAmount: p.ExpectedAmount,
		ReceivedAmount: p.ReceivedAmount,
		TransactionID:  p.TransactionID,
		Confirmations:  p.Confirmations,
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
