package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/cryptostore/internal/server/http/handlers"
	"github.com/polkiloo/cryptostore/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.StoreFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest(middleware.DefaultMaxBodyBytes))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	authHandler := handlers.NewAuthHandler(facade)
	orderHandler := handlers.NewOrderHandler(facade)
	paymentHandler := handlers.NewPaymentHandler(facade)
	discountHandler := handlers.NewDiscountHandler(facade)
	adminHandler := handlers.NewAdminHandler(facade)
	healthHandler := handlers.NewHealthHandler(facade)

	api := engine.Group("/api")
	api.GET("/health", healthHandler.Check)

	user := api.Group("/user")
	user.POST("/register", authHandler.Register)
	user.POST("/login", authHandler.Login)

	api.POST("/discounts/validate", discountHandler.Validate)
	api.POST("/payments/check-transaction", paymentHandler.CheckTransaction)
	api.POST("/payments/check-confirmations", paymentHandler.CheckConfirmations)

	authed := api.Group("")
	authed.Use(middleware.AuthRequired(facade))
	authed.POST("/orders", orderHandler.Create)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.POST("/payments", paymentHandler.Initiate)
	authed.GET("/payments/:id", paymentHandler.Get)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(facade), middleware.AdminOnly())
	admin.GET("/orders", adminHandler.Orders)
	admin.PATCH("/orders/:id/status", adminHandler.SetOrderStatus)
	admin.GET("/discounts", adminHandler.Discounts)
	admin.POST("/discounts", adminHandler.CreateDiscount)
	admin.PATCH("/discounts/:code", adminHandler.SetDiscountActive)
	admin.POST("/cache/revalidate", adminHandler.RevalidateCache)

	return engine
}
