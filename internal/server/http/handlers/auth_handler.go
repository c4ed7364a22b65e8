package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/server/http/dto"
	"github.com/polkiloo/cryptostore/internal/server/http/middleware"
)

type credentialsFunc func(ctx context.Context, login, password string) (string, error)

// AuthHandler issues session tokens for customers and admins.
type AuthHandler struct {
	facade AuthFacade
}

// NewAuthHandler creates AuthHandler instance.
func NewAuthHandler(facade AuthFacade) *AuthHandler {
	return &AuthHandler{facade: facade}
}

// Register handles POST /api/user/register.
func (h *AuthHandler) Register(c *gin.Context) {
	h.issueToken(c, h.facade.Register, func(err error) int {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidCredentials):
			return http.StatusBadRequest
		case errors.Is(err, domainErrors.ErrAlreadyExists):
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	})
}

// Login handles POST /api/user/login.
func (h *AuthHandler) Login(c *gin.Context) {
	h.issueToken(c, h.facade.Authenticate, func(err error) int {
		if errors.Is(err, domainErrors.ErrInvalidCredentials) {
			return http.StatusUnauthorized
		}
		return http.StatusInternalServerError
	})
}

func (h *AuthHandler) issueToken(c *gin.Context, fn credentialsFunc, statusFor func(error) int) {
	var req dto.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token, err := fn(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			c.Status(status)
			return
		}
		c.JSON(status, dto.ErrorResponse{Error: err.Error()})
		return
	}

	middleware.SetAuthCookie(c, token)
	c.JSON(http.StatusOK, dto.AuthResponse{Token: token})
}
