package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Vinay1094/kirana-store-automation/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// WhatsApp webhook
	router.POST("/webhook/whatsapp", handler.WhatsAppWebhook)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.POST("/resolve", handler.ResolveOrder)
			orders.GET("/:id", handler.GetOrder)
		}

		v1.POST("/ledger/resolve", handler.ResolveLedger)

		items := v1.Group("/items")
		{
			items.POST("", handler.AddItem)
			items.GET("", handler.ListItems)
			items.GET("/search", handler.SearchItems)
			items.POST("/import", handler.ImportItems)
			items.GET("/:id", handler.GetItem)
			items.PUT("/:id/stock", handler.AdjustStock)
			items.GET("/:id/history", handler.StockHistory)
			items.DELETE("/:id", handler.DeleteItem)
		}
	}

	return router
}
