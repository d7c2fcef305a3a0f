package gmail

import (
	"encoding/base64"

	"google.golang.org/api/gmail/v1"

	"invoicepilot/internal/model"
)

// maxPartDepth bounds the MIME tree walk. Gmail part trees are acyclic, but a
// malformed payload should not be able to recurse without limit.
const maxPartDepth = 32

// CollectAttachments walks a message's part tree depth-first and returns the
// downloadable attachments in document order. A part qualifies only when it
// carries both a filename and an attachment handle; multipart containers
// never qualify themselves but their children are always visited.
func CollectAttachments(parts []*gmail.MessagePart) []model.Attachment {
	return collectAttachments(parts, 0)
}

func collectAttachments(parts []*gmail.MessagePart, depth int) []model.Attachment {
	if depth >= maxPartDepth {
		return nil
	}

	var attachments []model.Attachment
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			attachments = append(attachments, model.Attachment{
				Filename:     part.Filename,
				MimeType:     part.MimeType,
				Size:         part.Body.Size,
				AttachmentID: part.Body.AttachmentId,
			})
		}
		if len(part.Parts) > 0 {
			attachments = append(attachments, collectAttachments(part.Parts, depth+1)...)
		}
	}
	return attachments
}

// FindBody resolves the best-effort text body of a message: the payload's own
// data for simple messages, then a text/plain part, then text/html, then the
// first non-empty result found by recursing into nested parts in order.
// Returns "" when the message has no readable body.
func FindBody(payload *gmail.MessagePart) string {
	return findBody(payload, 0)
}

func findBody(payload *gmail.MessagePart, depth int) string {
	if payload == nil || depth >= maxPartDepth {
		return ""
	}

	if payload.Body != nil && payload.Body.Data != "" {
		return decodePartData(payload.Body.Data)
	}

	if len(payload.Parts) == 0 {
		return ""
	}

	for _, part := range payload.Parts {
		if part != nil && part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			return decodePartData(part.Body.Data)
		}
	}
	for _, part := range payload.Parts {
		if part != nil && part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
			return decodePartData(part.Body.Data)
		}
	}
	for _, part := range payload.Parts {
		if body := findBody(part, depth+1); body != "" {
			return body
		}
	}
	return ""
}

// decodePartData decodes Gmail's base64url part data, tolerating the missing
// padding the API sometimes returns.
func decodePartData(data string) string {
	decoded, err := decodeAttachmentData(data)
	if err != nil {
		return ""
	}
	return string(decoded)
}

func decodeAttachmentData(data string) ([]byte, error) {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}
