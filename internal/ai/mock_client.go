package ai

import (
	"context"

	"invoicepilot/internal/model"
)

// MockAIClient is a mock implementation of AIClient for testing
type MockAIClient struct {
	ExtractInvoiceFunc func(ctx context.Context, rawText string) (*model.ExtractedInvoice, error)
}

func NewMockAIClient() *MockAIClient {
	return &MockAIClient{}
}

func (m *MockAIClient) ExtractInvoice(ctx context.Context, rawText string) (*model.ExtractedInvoice, error) {
	if m.ExtractInvoiceFunc != nil {
		return m.ExtractInvoiceFunc(ctx, rawText)
	}

	// Default mock behavior: a minimal but complete invoice
	return &model.ExtractedInvoice{
		Metadata: model.InvoiceMetadata{
			Number:   "INV-001",
			Date:     "2025-01-01",
			Currency: "USD",
		},
		Parties: model.Parties{
			Supplier: model.Party{Name: "Mock Supplier"},
			Customer: model.Party{Name: "Mock Customer"},
		},
		Amounts: model.Amounts{
			Subtotal: 100,
			Tax:      model.TaxAmount{Total: 18},
			Total:    118,
		},
		Items: []model.LineItem{},
	}, nil
}
