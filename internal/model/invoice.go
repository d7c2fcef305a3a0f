package model

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceMetadata holds the header fields of an invoice. Dates are kept as
// strings in YYYY-MM-DD form, exactly as the extraction model returns them.
type InvoiceMetadata struct {
	Number   string `json:"number"`
	Date     string `json:"date"`
	DueDate  string `json:"dueDate"`
	Currency string `json:"currency"`
}

type TaxInfo struct {
	GSTIN string `json:"gstin"`
}

type Address struct {
	Line1   string `json:"line1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Party is one side of the invoice (supplier or customer).
type Party struct {
	Name    string  `json:"name"`
	TaxInfo TaxInfo `json:"taxInfo"`
	Address Address `json:"address"`
}

// Parties always carries both entries, even when the extraction found nothing
// for one of them.
type Parties struct {
	Supplier Party `json:"supplier"`
	Customer Party `json:"customer"`
}

type TaxAmount struct {
	Total float64 `json:"total"`
}

type Amounts struct {
	Subtotal float64   `json:"subtotal"`
	Tax      TaxAmount `json:"tax"`
	Total    float64   `json:"total"`
}

type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// ExtractedInvoice is the structured data returned by the AI extraction step.
// Its JSON shape is the fixed contract the model is prompted with.
type ExtractedInvoice struct {
	Metadata InvoiceMetadata `json:"metadata"`
	Parties  Parties         `json:"parties"`
	Amounts  Amounts         `json:"amounts"`
	Items    []LineItem      `json:"items"`
}

// Invoice is the persisted record. It is created once after a successful
// extraction and dedup check and is immutable afterwards. Identity for
// deduplication is (UserID, Metadata.Number, Parties.Supplier.Name).
type Invoice struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	ExtractedInvoice
	Source           string    `json:"source"`
	OriginalFilename string    `json:"original_filename"`
	ProcessedAt      time.Time `json:"processed_at"`
	RawText          string    `json:"raw_text"`
	CreatedAt        time.Time `json:"created_at"`
}

func NewInvoice(userID string, data *ExtractedInvoice, originalFilename, rawText string) *Invoice {
	now := time.Now()
	return &Invoice{
		ID:               uuid.New().String(),
		UserID:           userID,
		ExtractedInvoice: *data,
		Source:           "email",
		OriginalFilename: originalFilename,
		ProcessedAt:      now,
		RawText:          rawText,
		CreatedAt:        now,
	}
}
