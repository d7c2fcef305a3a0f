package repository

import (
	"context"
	"time"

	"invoicepilot/internal/model"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// FindAllWithRefreshToken returns the users eligible for the scheduled
	// fleet run: everyone with a stored refresh token.
	FindAllWithRefreshToken(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
	// UpdateLastInvoiceSync advances the user's sync cursor. Called only
	// after a batch run completes, never mid-run.
	UpdateLastInvoiceSync(ctx context.Context, id string, t time.Time) error
	UpdateSheetID(ctx context.Context, id, sheetID string) error
	Delete(ctx context.Context, id string) error
}

// InvoiceRepository defines the interface for invoice data operations.
// Invoices are insert-only; there is no update path.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	// ExistsByNumberAndSupplier is the dedup check on the identity tuple
	// (owner, invoice number, supplier name).
	ExistsByNumberAndSupplier(ctx context.Context, userID, number, supplierName string) (bool, error)
	FindByID(ctx context.Context, userID, id string) (*model.Invoice, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.Invoice, error)
	Delete(ctx context.Context, userID, id string) error
}
