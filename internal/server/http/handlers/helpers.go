package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/server/http/dto"
	"github.com/polkiloo/cryptostore/internal/server/http/middleware"
)

// CurrentUserID extracts authenticated user identifier from context.
func CurrentUserID(c *gin.Context) int64 {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return 0
	}
	return identity.UserID
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, domainErrors.ErrInvalidInput),
		errors.Is(err, domainErrors.ErrInvalidAmount),
		errors.Is(err, domainErrors.ErrUnsupportedProvider),
		errors.Is(err, domainErrors.ErrInvalidDiscount):
		status = http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domainErrors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domainErrors.ErrAlreadyExists),
		errors.Is(err, domainErrors.ErrInvalidTransition),
		errors.Is(err, domainErrors.ErrDiscountExhausted):
		status = http.StatusConflict
	default:
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}
