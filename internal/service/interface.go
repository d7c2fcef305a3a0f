package service

import (
	"context"

	"invoicepilot/internal/model"
)

type AuthService interface {
	GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry interface{}) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	UpdateSheetID(ctx context.Context, userID, sheetID string) (*model.User, error)
}

// InvoiceService drives the ingestion pipeline: mailbox scan, per-email
// extraction, dedup, persistence and the optional spreadsheet mirror.
type InvoiceService interface {
	// ProcessEmails runs one batch for the user. startDate and endDate
	// (YYYY-MM-DD) select a manual window when both are set; otherwise the
	// window is derived from the user's sync cursor. The cursor is advanced
	// after the batch completes unless the window was manual.
	ProcessEmails(ctx context.Context, userID, startDate, endDate string) (*BatchResult, error)
	// ProcessEmail inspects one email's attachments in order and persists at
	// most one invoice. A nil invoice with nil error means nothing qualified.
	ProcessEmail(ctx context.Context, user *model.User, email *model.EmailMessage) (*model.Invoice, error)
	GetInvoicesByUser(ctx context.Context, userID string) ([]*model.Invoice, error)
	GetInvoice(ctx context.Context, userID, invoiceID string) (*model.Invoice, error)
}

// BatchResult aggregates one batch run for one user.
type BatchResult struct {
	EmailsSeen    int
	InvoicesSaved int
	Records       []*model.Invoice
}

// GmailClient interface for interacting with the Gmail API
type GmailClient interface {
	// SearchInvoiceEmails issues the invoice search bounded by the window and
	// returns normalized messages in provider order. No matches is an empty
	// slice, not an error.
	SearchInvoiceEmails(ctx context.Context, user *model.User, window SyncWindow, maxResults int64) ([]*model.EmailMessage, error)
	// DownloadAttachment fetches and decodes one attachment's raw bytes.
	DownloadAttachment(ctx context.Context, user *model.User, messageID, attachmentID string) ([]byte, error)
}

// AIClient interface for the invoice extraction model
type AIClient interface {
	ExtractInvoice(ctx context.Context, rawText string) (*model.ExtractedInvoice, error)
}

// TextExtractor converts document bytes to plain text
type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}

// SheetsClient mirrors saved invoices into the user's spreadsheet
type SheetsClient interface {
	AppendInvoice(ctx context.Context, user *model.User, invoice *model.Invoice) error
}
