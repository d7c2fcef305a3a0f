package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"invoicepilot/internal/ai"
	"invoicepilot/internal/gmail"
	"invoicepilot/internal/logger"
	"invoicepilot/internal/model"
	"invoicepilot/internal/pdftext"
	"invoicepilot/internal/repository/memory"
	"invoicepilot/internal/service"
	"invoicepilot/internal/sheets"
)

type pipelineFixture struct {
	userRepo    *memory.InMemoryUserRepository
	invoiceRepo *memory.InMemoryInvoiceRepository
	gmailClient *gmail.MockGmailClient
	aiClient    *ai.MockAIClient
	extractor   *pdftext.MockExtractor
	sheets      *sheets.MockSheetsClient
	service     service.InvoiceService
	user        *model.User
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		userRepo:    memory.NewInMemoryUserRepository(),
		invoiceRepo: memory.NewInMemoryInvoiceRepository(),
		gmailClient: gmail.NewMockGmailClient(),
		aiClient:    ai.NewMockAIClient(),
		extractor:   pdftext.NewMockExtractor(),
		sheets:      sheets.NewMockSheetsClient(),
	}

	f.user = model.NewUser("google_123", "test@example.com", "Test User",
		"access-token", "refresh-token", time.Now().Add(time.Hour))
	assert.NoError(t, f.userRepo.Create(context.Background(), f.user))

	f.service = service.NewInvoiceService(
		f.invoiceRepo,
		f.userRepo,
		f.gmailClient,
		f.aiClient,
		f.extractor,
		f.sheets,
		logger.NewWithWriter(io.Discard),
		50,
	)
	return f
}

func pdfAttachment(filename, attachmentID string) model.Attachment {
	return model.Attachment{
		Filename:     filename,
		MimeType:     "application/pdf",
		Size:         1024,
		AttachmentID: attachmentID,
	}
}

func emailWith(id string, attachments ...model.Attachment) *model.EmailMessage {
	return &model.EmailMessage{
		GmailID:     id,
		ThreadID:    "thread-" + id,
		From:        "billing@supplier.com",
		Subject:     "Your invoice",
		Body:        "Please find the invoice attached.",
		Attachments: attachments,
	}
}

func extractedInvoice(number, supplier string, total float64) *model.ExtractedInvoice {
	return &model.ExtractedInvoice{
		Metadata: model.InvoiceMetadata{Number: number, Date: "2025-06-10", Currency: "INR"},
		Parties: model.Parties{
			Supplier: model.Party{Name: supplier, TaxInfo: model.TaxInfo{GSTIN: "29ABCDE1234F1Z5"}},
			Customer: model.Party{Name: "Acme Corp"},
		},
		Amounts: model.Amounts{Subtotal: total - 180, Tax: model.TaxAmount{Total: 180}, Total: total},
	}
}

func TestProcessEmailsSavesInvoiceEndToEnd(t *testing.T) {
	f := newPipelineFixture(t)

	f.gmailClient.SearchInvoiceEmailsFunc = func(ctx context.Context, user *model.User, window service.SyncWindow, maxResults int64) ([]*model.EmailMessage, error) {
		return []*model.EmailMessage{emailWith("msg-1", pdfAttachment("invoice.pdf", "att-1"))}, nil
	}
	f.aiClient.ExtractInvoiceFunc = func(ctx context.Context, rawText string) (*model.ExtractedInvoice, error) {
		return extractedInvoice("INV-2025-001", "Acme Supplies", 1180.00), nil
	}

	result, err := f.service.ProcessEmails(context.Background(), f.user.ID, "", "")

	assert.NoError(t, err)
	assert.Equal(t, 1, result.EmailsSeen)
	assert.Equal(t, 1, result.InvoicesSaved)

	saved, err := f.service.GetInvoicesByUser(context.Background(), f.user.ID)
	assert.NoError(t, err)
	assert.Len(t, saved, 1)
	assert.Equal(t, "INV-2025-001", saved[0].Metadata.Number)
	assert.Equal(t, "Acme Supplies", saved[0].Parties.Supplier.Name)
	assert.Equal(t, 1180.00, saved[0].Amounts.Total)
	assert.Equal(t, "email", saved[0].Source)
	assert.Equal(t, "invoice.pdf", saved[0].OriginalFilename)
}

func TestProcessEmailStopsAfterFirstSavedInvoice(t *testing.T) {
	f := newPipelineFixture(t)

	var downloaded []string
	f.gmailClient.DownloadAttachmentFunc = func(ctx context.Context, user *model.User, messageID, attachmentID string) ([]byte, error) {
		downloaded = append(downloaded, attachmentID)
		return []byte("pdf text"), nil
	}
	f.aiClient.ExtractInvoiceFunc = func(ctx context.Context, rawText string) (*model.ExtractedInvoice, error) {
		return extractedInvoice("INV-7", "Acme Supplies", 500), nil
	}

	email := emailWith("msg-1",
		pdfAttachment("first.pdf", "att-1"),
		pdfAttachment("second.pdf", "att-2"),
	)
	invoice, err := f.service.ProcessEmail(context.Background(), f.user, email)

	assert.NoError(t, err)
	assert.NotNil(t, invoice)
	// The second PDF is never even downloaded once one invoice is saved
	assert.Equal(t, []string{"att-1"}, downloaded)
}

func TestProcessEmailSkipsNonPdfAttachments(t *testing.T) {
	f := newPipelineFixture(t)

	var downloaded []string
	f.gmailClient.DownloadAttachmentFunc = func(ctx context.Context, user *model.User, messageID, attachmentID string) ([]byte, error) {
		downloaded = append(downloaded, attachmentID)
		return []byte("pdf text"), nil
	}

	email := emailWith("msg-1",
		model.Attachment{Filename: "photo.png", MimeType: "image/png", AttachmentID: "att-img"},
		pdfAttachment("invoice.pdf", "att-pdf"),
	)
	invoice, err := f.service.ProcessEmail(context.Background(), f.user, email)

	assert.NoError(t, err)
	assert.NotNil(t, invoice)
	assert.Equal(t, []string{"att-pdf"}, downloaded)
}

func TestProcessEmailNoAttachments(t *testing.T) {
	f := newPipelineFixture(t)

	invoice, err := f.service.ProcessEmail(context.Background(), f.user, emailWith("msg-1"))

	assert.NoError(t, err)
	assert.Nil(t, invoice)
}

func TestProcessEmailContinuesPastFailedAttachment(t *testing.T) {
	f := newPipelineFixture(t)

	f.gmailClient.DownloadAttachmentFunc = func(ctx context.Context, user *model.User, messageID, attachmentID string) ([]byte, error) {
		if attachmentID == "att-1" {
			return nil, errors.New("attachment gone")
		}
		return []byte("pdf text"), nil
	}
	f.aiClient.ExtractInvoiceFunc = func(ctx context.Context, rawText string) (*model.ExtractedInvoice, error) {
		return extractedInvoice("INV-9", "Acme Supplies", 750), nil
	}

	email := emailWith("msg-1",
		pdfAttachment("broken.pdf", "att-1"),
		pdfAttachment("good.pdf", "att-2"),
	)
	invoice, err := f.service.ProcessEmail(context.Background(), f.user, email)

	assert.NoError(t, err)
	assert.NotNil(t, invoice)
	assert.Equal(t, "good.pdf", invoice.OriginalFilename)
}

func TestProcessEmailsDeduplicatesAcrossRuns(t *testing.T) {
	f := newPipelineFixture(t)

	f.gmailClient.SearchInvoiceEmailsFunc = func(ctx context.Context, user *model.User, window service.SyncWindow, maxResults int64) ([]*model.EmailMessage, error) {
		return []*model.EmailMessage{emailWith("msg-1", pdfAttachment("invoice.pdf", "att-1"))}, nil
	}
	f.aiClient.ExtractInvoiceFunc = func(ctx context.Context, rawText string) (*model.ExtractedInvoice, error) {
		return extractedInvoice("INV-2025-001", "Acme Supplies", 1180.00), nil
	}

	first, err := f.service.ProcessEmails(context.Background(), f.user.ID, "", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, first.InvoicesSaved)

	// The same invoice arrives again on a later scan
	second, err := f.service.ProcessEmails(context.Background(), f.user.ID, "", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, second.EmailsSeen)
	assert.Equal(t, 0, second.InvoicesSaved)

	saved, err := f.service.GetInvoicesByUser(context.Background(), f.user.ID)
	assert.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestProcessEmailsManualRunLeavesCursorUntouched(t *testing.T) {
	f := newPipelineFixture(t)

	var gotWindow service.SyncWindow
	f.gmailClient.SearchInvoiceEmailsFunc = func(ctx context.Context, user *model.User, window service.SyncWindow, maxResults int64) ([]*model.EmailMessage, error) {
		gotWindow = window
		return nil, nil
	}

	result, err := f.service.ProcessEmails(context.Background(), f.user.ID, "2025-01-01", "2025-03-31")

	assert.NoError(t, err)
	assert.Equal(t, 0, result.EmailsSeen)
	assert.Equal(t, service.SyncModeManual, gotWindow.Mode)
	assert.Equal(t, "2025/01/01", gotWindow.Start)
	assert.Equal(t, "2025/03/31", gotWindow.End)

	stored, err := f.userRepo.FindByID(context.Background(), f.user.ID)
	assert.NoError(t, err)
	assert.Nil(t, stored.LastInvoiceSync)
}

func TestProcessEmailsAdvancesCursorOnEmptyScheduledRun(t *testing.T) {
	f := newPipelineFixture(t)

	before := time.Now()
	result, err := f.service.ProcessEmails(context.Background(), f.user.ID, "", "")

	assert.NoError(t, err)
	assert.Equal(t, 0, result.EmailsSeen)

	stored, err := f.userRepo.FindByID(context.Background(), f.user.ID)
	assert.NoError(t, err)
	assert.NotNil(t, stored.LastInvoiceSync)
	assert.False(t, stored.LastInvoiceSync.Before(before))
}

func TestProcessEmailsUsesIncrementalWindowFromCursor(t *testing.T) {
	f := newPipelineFixture(t)

	lastSync := time.Date(2025, 5, 20, 2, 0, 0, 0, time.UTC)
	assert.NoError(t, f.userRepo.UpdateLastInvoiceSync(context.Background(), f.user.ID, lastSync))

	var gotWindow service.SyncWindow
	f.gmailClient.SearchInvoiceEmailsFunc = func(ctx context.Context, user *model.User, window service.SyncWindow, maxResults int64) ([]*model.EmailMessage, error) {
		gotWindow = window
		return nil, nil
	}

	_, err := f.service.ProcessEmails(context.Background(), f.user.ID, "", "")

	assert.NoError(t, err)
	assert.Equal(t, service.SyncModeIncremental, gotWindow.Mode)
	assert.Equal(t, "2025/05/20", gotWindow.Start)
}

func TestProcessEmailsRejectsConcurrentRunForSameUser(t *testing.T) {
	f := newPipelineFixture(t)

	// Re-enter from inside the scan to prove the second run is rejected while
	// the first is still in flight
	var reentrantErr error
	f.gmailClient.SearchInvoiceEmailsFunc = func(ctx context.Context, user *model.User, window service.SyncWindow, maxResults int64) ([]*model.EmailMessage, error) {
		_, reentrantErr = f.service.ProcessEmails(ctx, user.ID, "", "")
		return nil, nil
	}

	_, err := f.service.ProcessEmails(context.Background(), f.user.ID, "", "")

	assert.NoError(t, err)
	assert.ErrorIs(t, reentrantErr, service.ErrSyncInProgress)

	// The guard is released once the first run finishes
	_, err = f.service.ProcessEmails(context.Background(), f.user.ID, "", "")
	assert.NoError(t, err)
}

func TestMirrorFailureDoesNotAbortSave(t *testing.T) {
	f := newPipelineFixture(t)

	assert.NoError(t, f.userRepo.UpdateSheetID(context.Background(), f.user.ID, "sheet-123"))
	f.user.SheetID = "sheet-123"

	f.sheets.AppendInvoiceFunc = func(ctx context.Context, user *model.User, invoice *model.Invoice) error {
		return errors.New("sheet unavailable")
	}
	f.aiClient.ExtractInvoiceFunc = func(ctx context.Context, rawText string) (*model.ExtractedInvoice, error) {
		return extractedInvoice("INV-11", "Acme Supplies", 200), nil
	}

	invoice, err := f.service.ProcessEmail(context.Background(), f.user,
		emailWith("msg-1", pdfAttachment("invoice.pdf", "att-1")))

	assert.NoError(t, err)
	assert.NotNil(t, invoice)

	saved, err := f.service.GetInvoicesByUser(context.Background(), f.user.ID)
	assert.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestMirrorInvokedWhenSheetConfigured(t *testing.T) {
	f := newPipelineFixture(t)

	f.user.SheetID = "sheet-123"

	var mirrored *model.Invoice
	f.sheets.AppendInvoiceFunc = func(ctx context.Context, user *model.User, invoice *model.Invoice) error {
		mirrored = invoice
		return nil
	}
	f.aiClient.ExtractInvoiceFunc = func(ctx context.Context, rawText string) (*model.ExtractedInvoice, error) {
		return extractedInvoice("INV-12", "Acme Supplies", 300), nil
	}

	invoice, err := f.service.ProcessEmail(context.Background(), f.user,
		emailWith("msg-1", pdfAttachment("invoice.pdf", "att-1")))

	assert.NoError(t, err)
	assert.NotNil(t, invoice)
	assert.Equal(t, invoice.ID, mirrored.ID)
}

func TestProcessEmailsBatchSurvivesBadEmail(t *testing.T) {
	f := newPipelineFixture(t)

	f.gmailClient.SearchInvoiceEmailsFunc = func(ctx context.Context, user *model.User, window service.SyncWindow, maxResults int64) ([]*model.EmailMessage, error) {
		return []*model.EmailMessage{
			emailWith("msg-1", pdfAttachment("corrupt.pdf", "att-1")),
			emailWith("msg-2", pdfAttachment("good.pdf", "att-2")),
		}, nil
	}
	f.extractor.ExtractTextFunc = func(data []byte) (string, error) {
		return "pdf text", nil
	}
	f.aiClient.ExtractInvoiceFunc = func(ctx context.Context, rawText string) (*model.ExtractedInvoice, error) {
		return extractedInvoice("INV-20", "Acme Supplies", 400), nil
	}
	f.gmailClient.DownloadAttachmentFunc = func(ctx context.Context, user *model.User, messageID, attachmentID string) ([]byte, error) {
		if attachmentID == "att-1" {
			return nil, errors.New("download failed")
		}
		return []byte("pdf bytes"), nil
	}

	result, err := f.service.ProcessEmails(context.Background(), f.user.ID, "", "")

	assert.NoError(t, err)
	assert.Equal(t, 2, result.EmailsSeen)
	assert.Equal(t, 1, result.InvoicesSaved)
}
