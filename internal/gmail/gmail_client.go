package gmail

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"invoicepilot/internal/config"
	"invoicepilot/internal/logger"
	"invoicepilot/internal/model"
	"invoicepilot/internal/service"
)

// invoiceQuery is the fixed base predicate for candidate invoice emails. The
// sync window's date bounds are conjoined onto it per scan.
const invoiceQuery = "subject:(invoice OR bill OR receipt) has:attachment"

type gmailClient struct {
	oauthConfig *oauth2.Config
	logger      *logger.Logger
}

// NewGmailClient returns a Gmail capability that builds a per-user API client
// from the user's stored tokens. The token source refreshes expired access
// tokens from the refresh token automatically, so the scheduled path works
// without a live session.
func NewGmailClient(cfg *config.Config, logger *logger.Logger) service.GmailClient {
	return &gmailClient{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/gmail.readonly",
			},
		},
		logger: logger,
	}
}

// serviceFor builds an authenticated Gmail service for one user.
func (g *gmailClient) serviceFor(ctx context.Context, user *model.User) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		Expiry:       user.TokenExpiry,
	}
	ts := g.oauthConfig.TokenSource(ctx, token)

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return svc, nil
}

func (g *gmailClient) SearchInvoiceEmails(ctx context.Context, user *model.User, window service.SyncWindow, maxResults int64) ([]*model.EmailMessage, error) {
	svc, err := g.serviceFor(ctx, user)
	if err != nil {
		return nil, err
	}

	query := buildQuery(window)
	list, err := svc.Users.Messages.List("me").Q(query).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	if len(list.Messages) == 0 {
		g.logger.Info("No messages found for query:", query)
		return nil, nil
	}

	// Fetch full content for each hit concurrently; the slots keep the
	// provider's ordering and failed fetches leave a nil to drop.
	results := make([]*model.EmailMessage, len(list.Messages))
	var wg sync.WaitGroup
	for i, msg := range list.Messages {
		if msg == nil || msg.Id == "" {
			continue
		}
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			email, err := g.fetchMessage(ctx, svc, id)
			if err != nil {
				g.logger.Warn("Could not fetch content for message", id, "- skipping:", err)
				return
			}
			results[i] = email
		}(i, msg.Id)
	}
	wg.Wait()

	emails := make([]*model.EmailMessage, 0, len(results))
	for _, email := range results {
		if email != nil {
			emails = append(emails, email)
		}
	}

	g.logger.Info("Fetched", len(emails), "invoice candidate emails from Gmail")
	return emails, nil
}

// buildQuery conjoins the window bounds onto the base invoice predicate,
// omitting a bound when it is unset.
func buildQuery(window service.SyncWindow) string {
	query := invoiceQuery
	if window.Start != "" {
		query += " after:" + window.Start
	}
	if window.End != "" {
		query += " before:" + window.End
	}
	return strings.TrimSpace(query)
}

func (g *gmailClient) fetchMessage(ctx context.Context, svc *gmail.Service, id string) (*model.EmailMessage, error) {
	message, err := svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if message.Payload == nil {
		return nil, fmt.Errorf("message %s has no payload", id)
	}

	subject := "No Subject"
	from := "Unknown Sender"
	for _, header := range message.Payload.Headers {
		switch header.Name {
		case "Subject":
			subject = header.Value
		case "From":
			from = header.Value
		}
	}

	body := FindBody(message.Payload)
	if body == "" {
		body = "No Body"
	}

	return &model.EmailMessage{
		GmailID:     message.Id,
		ThreadID:    message.ThreadId,
		From:        from,
		Subject:     subject,
		Body:        body,
		Attachments: CollectAttachments(message.Payload.Parts),
	}, nil
}

func (g *gmailClient) DownloadAttachment(ctx context.Context, user *model.User, messageID, attachmentID string) ([]byte, error) {
	svc, err := g.serviceFor(ctx, user)
	if err != nil {
		return nil, err
	}

	attachment, err := svc.Users.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	data, err := decodeAttachmentData(attachment.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	return data, nil
}
