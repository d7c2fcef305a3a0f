package handler

import (
	"net/http"

	"invoicepilot/internal/service"

	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	authService service.AuthService
	authHandler *AuthHandler
	logger      echo.Logger
}

func NewUserHandler(authService service.AuthService, authHandler *AuthHandler, logger echo.Logger) *UserHandler {
	return &UserHandler{
		authService: authService,
		authHandler: authHandler,
		logger:      logger,
	}
}

// GetUser returns the authenticated user's profile
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":                user.ID,
		"name":              user.Name,
		"email":             user.Email,
		"sheet_id":          user.SheetID,
		"last_invoice_sync": user.LastInvoiceSync,
	})
}

type updateSettingsRequest struct {
	SheetID string `json:"sheet_id"`
}

// UpdateSettings stores the spreadsheet the user wants invoices mirrored to.
// An empty sheet_id turns the mirror off.
func (h *UserHandler) UpdateSettings(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	var req updateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	if _, err := h.authService.UpdateSheetID(c.Request().Context(), user.ID, req.SheetID); err != nil {
		h.logger.Error("Failed to update user settings:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to update settings",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Settings updated",
	})
}
