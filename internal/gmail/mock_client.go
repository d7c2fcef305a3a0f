package gmail

import (
	"context"

	"invoicepilot/internal/model"
	"invoicepilot/internal/service"
)

// MockGmailClient is a mock implementation of GmailClient for testing
type MockGmailClient struct {
	SearchInvoiceEmailsFunc func(ctx context.Context, user *model.User, window service.SyncWindow, maxResults int64) ([]*model.EmailMessage, error)
	DownloadAttachmentFunc  func(ctx context.Context, user *model.User, messageID, attachmentID string) ([]byte, error)
}

func NewMockGmailClient() *MockGmailClient {
	return &MockGmailClient{}
}

func (m *MockGmailClient) SearchInvoiceEmails(ctx context.Context, user *model.User, window service.SyncWindow, maxResults int64) ([]*model.EmailMessage, error) {
	if m.SearchInvoiceEmailsFunc != nil {
		return m.SearchInvoiceEmailsFunc(ctx, user, window, maxResults)
	}

	// Default mock behavior: return an empty list
	return []*model.EmailMessage{}, nil
}

func (m *MockGmailClient) DownloadAttachment(ctx context.Context, user *model.User, messageID, attachmentID string) ([]byte, error) {
	if m.DownloadAttachmentFunc != nil {
		return m.DownloadAttachmentFunc(ctx, user, messageID, attachmentID)
	}

	// Default mock behavior: return empty bytes
	return []byte{}, nil
}
