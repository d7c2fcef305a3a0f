package model

// EmailMessage is a normalized view of one Gmail message produced by a mailbox
// scan. It is built fresh per scan and never persisted.
type EmailMessage struct {
	GmailID     string       `json:"gmail_id"`
	ThreadID    string       `json:"thread_id"`
	From        string       `json:"from"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment describes one downloadable attachment discovered in a message's
// MIME part tree. AttachmentID is the Gmail handle used to fetch the bytes.
type Attachment struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachment_id"`
}
