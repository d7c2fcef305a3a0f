package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	gmailapi "google.golang.org/api/gmail/v1"

	"invoicepilot/internal/service"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestCollectAttachmentsFindsNestedLeaf(t *testing.T) {
	// A forwarded message: the PDF sits three levels deep inside multipart
	// containers that carry no filename themselves
	parts := []*gmailapi.MessagePart{
		{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmailapi.MessagePart{
						{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("hello")}},
						{
							MimeType: "message/rfc822",
							Parts: []*gmailapi.MessagePart{
								{
									Filename: "invoice.pdf",
									MimeType: "application/pdf",
									Body:     &gmailapi.MessagePartBody{AttachmentId: "att-deep", Size: 2048},
								},
							},
						},
					},
				},
			},
		},
	}

	attachments := CollectAttachments(parts)

	assert.Len(t, attachments, 1)
	assert.Equal(t, "invoice.pdf", attachments[0].Filename)
	assert.Equal(t, "application/pdf", attachments[0].MimeType)
	assert.Equal(t, "att-deep", attachments[0].AttachmentID)
	assert.Equal(t, int64(2048), attachments[0].Size)
}

func TestCollectAttachmentsRequiresFilenameAndHandle(t *testing.T) {
	parts := []*gmailapi.MessagePart{
		// Inline image: handle but no filename
		{MimeType: "image/png", Body: &gmailapi.MessagePartBody{AttachmentId: "att-inline"}},
		// Filename but the data is carried inline, no handle
		{Filename: "tiny.txt", MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("x")}},
		// Both present
		{Filename: "real.pdf", MimeType: "application/pdf", Body: &gmailapi.MessagePartBody{AttachmentId: "att-real"}},
	}

	attachments := CollectAttachments(parts)

	assert.Len(t, attachments, 1)
	assert.Equal(t, "real.pdf", attachments[0].Filename)
}

func TestCollectAttachmentsPreservesDocumentOrder(t *testing.T) {
	parts := []*gmailapi.MessagePart{
		{Filename: "a.pdf", MimeType: "application/pdf", Body: &gmailapi.MessagePartBody{AttachmentId: "att-a"}},
		{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				{Filename: "b.pdf", MimeType: "application/pdf", Body: &gmailapi.MessagePartBody{AttachmentId: "att-b"}},
			},
		},
		{Filename: "c.pdf", MimeType: "application/pdf", Body: &gmailapi.MessagePartBody{AttachmentId: "att-c"}},
	}

	attachments := CollectAttachments(parts)

	assert.Len(t, attachments, 3)
	assert.Equal(t, "a.pdf", attachments[0].Filename)
	assert.Equal(t, "b.pdf", attachments[1].Filename)
	assert.Equal(t, "c.pdf", attachments[2].Filename)
}

func TestFindBodyPrefersPayloadData(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "text/plain",
		Body:     &gmailapi.MessagePartBody{Data: b64("simple body")},
	}

	assert.Equal(t, "simple body", FindBody(payload))
}

func TestFindBodyPrefersPlainOverHTML(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<p>html body</p>")}},
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("plain body")}},
		},
	}

	assert.Equal(t, "plain body", FindBody(payload))
}

func TestFindBodyFallsBackToHTML(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<p>html body</p>")}},
		},
	}

	assert.Equal(t, "<p>html body</p>", FindBody(payload))
}

func TestFindBodyRecursesIntoNestedParts(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("nested body")}},
				},
			},
		},
	}

	assert.Equal(t, "nested body", FindBody(payload))
}

func TestFindBodyEmptyMessage(t *testing.T) {
	assert.Empty(t, FindBody(nil))
	assert.Empty(t, FindBody(&gmailapi.MessagePart{MimeType: "text/plain"}))
}

func TestDecodeAttachmentDataHandlesMissingPadding(t *testing.T) {
	raw := []byte("pdf-bytes!")

	padded, err := decodeAttachmentData(base64.URLEncoding.EncodeToString(raw))
	assert.NoError(t, err)
	assert.Equal(t, raw, padded)

	unpadded, err := decodeAttachmentData(base64.RawURLEncoding.EncodeToString(raw))
	assert.NoError(t, err)
	assert.Equal(t, raw, unpadded)
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t,
		"subject:(invoice OR bill OR receipt) has:attachment",
		buildQuery(service.SyncWindow{Mode: service.SyncModeFull}))

	assert.Equal(t,
		"subject:(invoice OR bill OR receipt) has:attachment after:2025/05/20",
		buildQuery(service.SyncWindow{Start: "2025/05/20", Mode: service.SyncModeIncremental}))

	assert.Equal(t,
		"subject:(invoice OR bill OR receipt) has:attachment after:2025/01/01 before:2025/03/31",
		buildQuery(service.SyncWindow{Start: "2025/01/01", End: "2025/03/31", Mode: service.SyncModeManual}))
}
