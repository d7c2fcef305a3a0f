package handler

import (
	"errors"
	"fmt"
	"net/http"

	"invoicepilot/internal/service"

	"github.com/labstack/echo/v4"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	authHandler    *AuthHandler
	logger         echo.Logger
}

func NewInvoiceHandler(invoiceService service.InvoiceService, authHandler *AuthHandler, logger echo.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		authHandler:    authHandler,
		logger:         logger,
	}
}

type processEmailsRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ProcessEmails triggers an on-demand batch run for the authenticated user.
// An optional start_date/end_date pair scopes a manual historical fetch.
func (h *InvoiceHandler) ProcessEmails(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	var req processEmailsRequest
	// An empty body is fine; it means an incremental (or first-time) run
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	result, err := h.invoiceService.ProcessEmails(c.Request().Context(), user.ID, req.StartDate, req.EndDate)
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			return c.JSON(http.StatusConflict, map[string]string{
				"error": "An invoice sync is already running for this account",
			})
		}
		h.logger.Error("Failed to process emails:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "An error occurred while processing emails",
		})
	}

	if result.EmailsSeen == 0 {
		return c.JSON(http.StatusOK, map[string]string{
			"message": "No new emails with invoices found for the selected period.",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf(
			"Processing complete. Found %d potential invoices, successfully saved %d new invoices.",
			result.EmailsSeen, result.InvoicesSaved),
	})
}

// GetInvoices lists the authenticated user's invoices, newest first
func (h *InvoiceHandler) GetInvoices(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	invoices, err := h.invoiceService.GetInvoicesByUser(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to fetch invoices:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to fetch invoices",
		})
	}

	return c.JSON(http.StatusOK, invoices)
}

// GetInvoice returns one invoice owned by the authenticated user
func (h *InvoiceHandler) GetInvoice(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "Invoice not found",
		})
	}

	return c.JSON(http.StatusOK, invoice)
}
