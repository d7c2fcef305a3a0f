package sheets

import (
	"context"

	"invoicepilot/internal/model"
)

// MockSheetsClient is a mock implementation of SheetsClient for testing
type MockSheetsClient struct {
	AppendInvoiceFunc func(ctx context.Context, user *model.User, invoice *model.Invoice) error
}

func NewMockSheetsClient() *MockSheetsClient {
	return &MockSheetsClient{}
}

func (m *MockSheetsClient) AppendInvoice(ctx context.Context, user *model.User, invoice *model.Invoice) error {
	if m.AppendInvoiceFunc != nil {
		return m.AppendInvoiceFunc(ctx, user, invoice)
	}

	// Default mock behavior: success
	return nil
}
