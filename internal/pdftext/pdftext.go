package pdftext

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"invoicepilot/internal/logger"
	"invoicepilot/internal/service"
)

type extractor struct {
	logger *logger.Logger
}

// NewExtractor returns the document-to-text capability used by the pipeline.
func NewExtractor(logger *logger.Logger) service.TextExtractor {
	return &extractor{logger: logger}
}

// ExtractText parses PDF bytes and returns their plain text. Malformed
// documents yield an error, never a panic.
func (e *extractor) ExtractText(data []byte) (text string, err error) {
	// The pdf library panics on some malformed inputs; treat those as parse
	// failures so a bad attachment only skips itself.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	return buf.String(), nil
}
