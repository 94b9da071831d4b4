package model

import "strings"

// MimeTypePDF is the only attachment MIME code that qualifies for extraction
const MimeTypePDF = "application/pdf"

// EmbeddedAttachment is a base64 payload found inside the source document
type EmbeddedAttachment struct {
	MimeCode string `json:"mime_code"`
	// Filename is advisory only and never used for output naming
	Filename string `json:"filename,omitempty"`
	// RawText is the character data exactly as found, whitespace included
	RawText string `json:"-"`
}

// IsPDF reports whether the declared MIME code is application/pdf (case-insensitive)
func (a *EmbeddedAttachment) IsPDF() bool {
	return a != nil && strings.EqualFold(strings.TrimSpace(a.MimeCode), MimeTypePDF)
}
