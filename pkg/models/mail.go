package models

import "time"

// Body transfer encodings a mail backend can hand over
const (
	EncodingIdentity  = ""
	EncodingBase64URL = "base64url"
)

// MessagePart is one body part of a mail message
type MessagePart struct {
	MimeType string
	Data     string
	Encoding string
}

// MailMessage is a candidate message fetched from the mailbox
type MailMessage struct {
	ID      string
	Subject string
	Body    *MessagePart  // Single body of a non-multipart message
	Parts   []MessagePart // Top-level parts of a multipart message
}

// SearchQuery describes which messages are candidates for extraction
type SearchQuery struct {
	Window     time.Duration // Only messages newer than this
	Terms      []string      // Any of these must appear in the message
	Subject    string        // Optional subject restriction
	UnreadOnly bool
}
