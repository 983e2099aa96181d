package router

import (
	"github.com/gin-gonic/gin"

	"github.com/invoicehub/backend/internal/interfaces/http/handler"
)

// Handlers bundles the handlers the router wires up
type Handlers struct {
	Invoices  *handler.InvoiceHandler
	Recurring *handler.RecurringHandler
	Webhooks  *handler.WebhookHandler
	Schedule  *handler.ScheduleHandler
	System    *handler.SystemHandler
}

// Config configures route registration. Auth is applied to the whole
// /api/v1 group; its skip list keeps the webhook and internal endpoints
// reachable without a token.
type Config struct {
	Handlers   Handlers
	APIVersion string
	Auth       gin.HandlerFunc
	Middleware []gin.HandlerFunc
}

// Setup registers all API routes on the engine
func Setup(engine *gin.Engine, cfg Config) {
	version := cfg.APIVersion
	if version == "" {
		version = "v1"
	}
	h := cfg.Handlers

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	api := engine.Group("/api/" + version)
	api.Use(cfg.Middleware...)
	if cfg.Auth != nil {
		api.Use(cfg.Auth)
	}

	if h.System != nil {
		api.GET("/system/info", h.System.GetSystemInfo)
	}

	if h.Invoices != nil {
		invoices := api.Group("/invoices")
		invoices.POST("", h.Invoices.Create)
		invoices.GET("", h.Invoices.List)
		invoices.GET("/:id", h.Invoices.GetByID)
		invoices.PATCH("/:id", h.Invoices.Patch)
		invoices.DELETE("/:id", h.Invoices.Delete)
		invoices.GET("/:id/audit", h.Invoices.ListAudit)
	}

	if h.Recurring != nil {
		recurring := api.Group("/recurring-invoices")
		recurring.POST("", h.Recurring.Create)
		recurring.GET("", h.Recurring.List)
		recurring.GET("/:id", h.Recurring.GetByID)
		recurring.POST("/:id/generate", h.Recurring.Generate)
		recurring.POST("/:id/pause", h.Recurring.Pause)
		recurring.POST("/:id/resume", h.Recurring.Resume)
		recurring.POST("/:id/cancel", h.Recurring.Cancel)
		recurring.GET("/:id/audit", h.Recurring.ListAudit)
	}

	if h.Webhooks != nil {
		api.POST("/webhooks/payment-handler", h.Webhooks.HandlePayment)
	}

	if h.Schedule != nil {
		api.POST("/internal/recurring-invoices/run", h.Schedule.Run)
	}
}
