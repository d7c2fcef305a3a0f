package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"invoicepilot/internal/logger"
	"invoicepilot/internal/model"
	"invoicepilot/internal/repository"
)

type invoiceService struct {
	invoiceRepo   repository.InvoiceRepository
	userRepo      repository.UserRepository
	gmailClient   GmailClient
	aiClient      AIClient
	textExtractor TextExtractor
	sheetsClient  SheetsClient
	logger        *logger.Logger
	maxResults    int64

	// inflight holds user IDs with a running batch. A second run for the same
	// user is rejected so the sync cursor and dedup check never race.
	inflight sync.Map
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	userRepo repository.UserRepository,
	gmailClient GmailClient,
	aiClient AIClient,
	textExtractor TextExtractor,
	sheetsClient SheetsClient,
	logger *logger.Logger,
	maxResults int64,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:   invoiceRepo,
		userRepo:      userRepo,
		gmailClient:   gmailClient,
		aiClient:      aiClient,
		textExtractor: textExtractor,
		sheetsClient:  sheetsClient,
		logger:        logger,
		maxResults:    maxResults,
	}
}

func (s *invoiceService) ProcessEmails(ctx context.Context, userID, startDate, endDate string) (*BatchResult, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if _, loaded := s.inflight.LoadOrStore(user.ID, struct{}{}); loaded {
		return nil, ErrSyncInProgress
	}
	defer s.inflight.Delete(user.ID)

	window := PlanSyncWindow(user.LastInvoiceSync, startDate, endDate)
	switch window.Mode {
	case SyncModeManual:
		s.logger.Info("Performing manual fetch for user", user.Email, "from", window.Start, "to", window.End)
	case SyncModeIncremental:
		s.logger.Info("Performing smart sync for user", user.Email, "after", window.Start)
	default:
		s.logger.Info("Performing first-time sync for user", user.Email)
	}

	runStart := time.Now()

	result, err := s.runBatch(ctx, user, window)
	if err != nil {
		return nil, err
	}

	// A manual historical query must not move the incremental cursor. The
	// cursor also advances on empty results so the same window is not
	// rescanned forever.
	if window.Mode != SyncModeManual {
		if err := s.userRepo.UpdateLastInvoiceSync(ctx, user.ID, runStart); err != nil {
			s.logger.Error("Failed to update last sync time for user", user.Email, ":", err)
		} else {
			s.logger.Info("Updated lastInvoiceSync for user", user.Email)
		}
	}

	return result, nil
}

// runBatch scans the mailbox once and processes each returned email in order.
// Emails are handled sequentially to bound concurrent load on the extraction
// model; one email's failure never aborts the batch.
func (s *invoiceService) runBatch(ctx context.Context, user *model.User, window SyncWindow) (*BatchResult, error) {
	emails, err := s.gmailClient.SearchInvoiceEmails(ctx, user, window, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}

	result := &BatchResult{EmailsSeen: len(emails)}
	if len(emails) == 0 {
		s.logger.Info("No new invoice emails found for", user.Email)
		return result, nil
	}

	s.logger.Info("Found", len(emails), "potential invoice emails for", user.Email)

	for _, email := range emails {
		invoice, err := s.ProcessEmail(ctx, user, email)
		if err != nil {
			s.logger.Error("Failed to process email", email.GmailID, "for user", user.Email, ":", err)
			continue
		}
		if invoice != nil {
			result.InvoicesSaved++
			result.Records = append(result.Records, invoice)
		}
	}

	return result, nil
}

func (s *invoiceService) ProcessEmail(ctx context.Context, user *model.User, email *model.EmailMessage) (*model.Invoice, error) {
	if len(email.Attachments) == 0 {
		s.logger.Info("Skipping email", email.GmailID, "- no attachments")
		return nil, nil
	}

	for _, attachment := range email.Attachments {
		if attachment.MimeType != "application/pdf" {
			s.logger.Info("Skipping attachment", attachment.Filename, "- not a PDF")
			continue
		}

		invoice, err := s.processAttachment(ctx, user, email, attachment)
		if err != nil {
			s.logger.Error("Failed to process attachment", attachment.Filename, "from email", email.GmailID, ":", err)
			continue
		}
		if invoice == nil {
			// Duplicate, try the next attachment
			continue
		}

		// One invoice per email: stop at the first saved record even when
		// further PDFs are attached.
		return invoice, nil
	}

	return nil, nil
}

// processAttachment runs the download -> text -> AI -> dedup -> persist chain
// for a single attachment. A nil invoice with nil error means the record was
// a duplicate.
func (s *invoiceService) processAttachment(ctx context.Context, user *model.User, email *model.EmailMessage, attachment model.Attachment) (*model.Invoice, error) {
	data, err := s.gmailClient.DownloadAttachment(ctx, user, email.GmailID, attachment.AttachmentID)
	if err != nil {
		return nil, &DownloadError{Filename: attachment.Filename, Err: err}
	}

	rawText, err := s.textExtractor.ExtractText(data)
	if err != nil {
		return nil, &ExtractionError{Filename: attachment.Filename, Err: err}
	}

	extracted, err := s.aiClient.ExtractInvoice(ctx, rawText)
	if err != nil {
		return nil, &AiExtractionError{Filename: attachment.Filename, Err: err}
	}

	exists, err := s.invoiceRepo.ExistsByNumberAndSupplier(ctx, user.ID,
		extracted.Metadata.Number, extracted.Parties.Supplier.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate invoice: %w", err)
	}
	if exists {
		s.logger.Info("Skipping duplicate invoice: #" + extracted.Metadata.Number)
		return nil, nil
	}

	invoice := model.NewInvoice(user.ID, extracted, attachment.Filename, rawText)
	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}
	s.logger.Info("Successfully processed and saved invoice #" + invoice.Metadata.Number)

	s.mirrorToSheet(ctx, user, invoice)

	return invoice, nil
}

// mirrorToSheet appends the saved invoice to the user's spreadsheet when one
// is configured. Failures are logged and never fail the invoice save.
func (s *invoiceService) mirrorToSheet(ctx context.Context, user *model.User, invoice *model.Invoice) {
	if s.sheetsClient == nil || strings.TrimSpace(user.SheetID) == "" {
		return
	}

	if err := s.sheetsClient.AppendInvoice(ctx, user, invoice); err != nil {
		s.logger.Error((&MirrorWriteError{SheetID: user.SheetID, Err: err}).Error())
	}
}

func (s *invoiceService) GetInvoicesByUser(ctx context.Context, userID string) ([]*model.Invoice, error) {
	return s.invoiceRepo.FindByUserID(ctx, userID)
}

func (s *invoiceService) GetInvoice(ctx context.Context, userID, invoiceID string) (*model.Invoice, error) {
	return s.invoiceRepo.FindByID(ctx, userID, invoiceID)
}
