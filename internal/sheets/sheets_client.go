package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"invoicepilot/internal/config"
	"invoicepilot/internal/logger"
	"invoicepilot/internal/model"
	"invoicepilot/internal/service"
)

// sheetHeaders is the fixed column layout written to a fresh sheet before the
// first data row.
var sheetHeaders = []interface{}{
	"Invoice Date",
	"Invoice Number",
	"Supplier Name",
	"Supplier GSTIN",
	"Customer Name",
	"Subtotal",
	"Tax Total",
	"Grand Total",
	"Currency",
}

type sheetsClient struct {
	oauthConfig *oauth2.Config
	logger      *logger.Logger
}

// NewSheetsClient returns the spreadsheet mirror capability. Like the Gmail
// client it authenticates per user from stored tokens.
func NewSheetsClient(cfg *config.Config, logger *logger.Logger) service.SheetsClient {
	return &sheetsClient{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/spreadsheets",
			},
		},
		logger: logger,
	}
}

func (s *sheetsClient) serviceFor(ctx context.Context, user *model.User) (*sheets.Service, error) {
	token := &oauth2.Token{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		Expiry:       user.TokenExpiry,
	}
	ts := s.oauthConfig.TokenSource(ctx, token)

	svc, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}
	return svc, nil
}

func (s *sheetsClient) AppendInvoice(ctx context.Context, user *model.User, invoice *model.Invoice) error {
	svc, err := s.serviceFor(ctx, user)
	if err != nil {
		return err
	}

	sheetID := user.SheetID

	// Write the header row once, on first use of the sheet
	headerCheck, err := svc.Spreadsheets.Values.Get(sheetID, "Sheet1!A1:I1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to check sheet headers: %w", err)
	}
	if len(headerCheck.Values) == 0 {
		_, err = svc.Spreadsheets.Values.Update(sheetID, "Sheet1!A1", &sheets.ValueRange{
			Values: [][]interface{}{sheetHeaders},
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to write sheet headers: %w", err)
		}
		s.logger.Info("Added headers to sheet", sheetID)
	}

	row := []interface{}{
		invoice.Metadata.Date,
		invoice.Metadata.Number,
		invoice.Parties.Supplier.Name,
		invoice.Parties.Supplier.TaxInfo.GSTIN,
		invoice.Parties.Customer.Name,
		invoice.Amounts.Subtotal,
		invoice.Amounts.Tax.Total,
		invoice.Amounts.Total,
		invoice.Metadata.Currency,
	}

	// A:A lets Sheets find the first empty row
	_, err = svc.Spreadsheets.Values.Append(sheetID, "Sheet1!A:A", &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append invoice row: %w", err)
	}

	s.logger.Info("Appended invoice #"+invoice.Metadata.Number, "to sheet", sheetID)
	return nil
}
