package router

import (
	"net/http"

	"invoicepilot/internal/handler"
	"invoicepilot/internal/middleware"

	"github.com/labstack/echo/v4"
)

func SetupRoutes(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	invoiceHandler *handler.InvoiceHandler,
	userHandler *handler.UserHandler,
) {
	// Apply session middleware globally
	e.Use(middleware.SessionMiddleware())

	// Public routes
	e.GET("/auth/:provider", authHandler.BeginAuthHandler)
	e.GET("/auth/:provider/callback", authHandler.CallbackHandler)
	e.GET("/auth/logout", authHandler.LogoutHandler)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// Protected API routes
	protected := e.Group("/api")
	protected.Use(middleware.AuthMiddleware(authHandler))

	// Invoice API routes
	protected.POST("/invoices/process-emails", invoiceHandler.ProcessEmails)
	protected.GET("/invoices", invoiceHandler.GetInvoices)
	protected.GET("/invoices/:id", invoiceHandler.GetInvoice)

	// User API routes
	protected.GET("/user", userHandler.GetUser)
	protected.PUT("/user/settings", userHandler.UpdateSettings)
}
