package service

import (
	"errors"
	"fmt"
)

// ErrSyncInProgress is returned when a batch run is requested for a user who
// already has one in flight. Concurrent runs for the same user are rejected
// rather than interleaved.
var ErrSyncInProgress = errors.New("invoice sync already in progress for this user")

// DownloadError reports a failed attachment fetch. The attachment is skipped
// and the email's remaining attachments are still tried.
type DownloadError struct {
	Filename string
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download attachment %s: %v", e.Filename, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ExtractionError reports a document that could not be converted to text.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// AiExtractionError reports a model response that did not match the invoice
// schema.
type AiExtractionError struct {
	Filename string
	Err      error
}

func (e *AiExtractionError) Error() string {
	return fmt.Sprintf("AI extraction failed for %s: %v", e.Filename, e.Err)
}

func (e *AiExtractionError) Unwrap() error { return e.Err }

// MirrorWriteError reports a failed spreadsheet append. It never aborts the
// owning invoice save.
type MirrorWriteError struct {
	SheetID string
	Err     error
}

func (e *MirrorWriteError) Error() string {
	return fmt.Sprintf("failed to mirror invoice to sheet %s: %v", e.SheetID, e.Err)
}

func (e *MirrorWriteError) Unwrap() error { return e.Err }

// UserBatchError wraps any failure surfacing at the per-user boundary of a
// fleet run.
type UserBatchError struct {
	UserID string
	Err    error
}

func (e *UserBatchError) Error() string {
	return fmt.Sprintf("invoice batch failed for user %s: %v", e.UserID, e.Err)
}

func (e *UserBatchError) Unwrap() error { return e.Err }
