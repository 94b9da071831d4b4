package server

import (
	"time"

	"github.com/rezonia/ubl-pdf/internal/model"
	pdfparser "github.com/rezonia/ubl-pdf/internal/parser/pdf"
)

// OutputFile describes one produced PDF. Content is base64 encoded in JSON.
type OutputFile struct {
	Suffix   string `json:"suffix"`
	FileName string `json:"file_name"`
	Size     int    `json:"size"`
	Content  []byte `json:"content"`
}

// ProcessResponse is the response for the process endpoint
type ProcessResponse struct {
	Invoice  *model.Invoice `json:"invoice"`
	Outputs  []OutputFile   `json:"outputs"`
	Warnings []string       `json:"warnings,omitempty"`
}

// ParseResponse is the response for the parse endpoint
type ParseResponse struct {
	Invoice    *model.Invoice            `json:"invoice"`
	Attachment *model.EmbeddedAttachment `json:"attachment,omitempty"`
	Warnings   []string                  `json:"warnings,omitempty"`
}

// InfoResponse is the response for info endpoint
type InfoResponse struct {
	Format       string          `json:"format"`
	MimeType     string          `json:"mime_type"`
	Size         int             `json:"size"`
	DocumentType string          `json:"document_type,omitempty"`
	InvoiceID    string          `json:"invoice_id,omitempty"`
	PDF          *pdfparser.Info `json:"pdf,omitempty"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error     string   `json:"error"`
	Details   string   `json:"details,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// VerifyResponse is the response for signature verification endpoint
type VerifyResponse struct {
	Valid          bool              `json:"valid"`
	SignatureFound bool              `json:"signature_found"`
	SignatureValid bool              `json:"signature_valid"`
	CertChainValid bool              `json:"cert_chain_valid"`
	IntegrityOnly  bool              `json:"integrity_only,omitempty"`
	Format         string            `json:"format,omitempty"`
	Signer         *SignerInfoOutput `json:"signer,omitempty"`
	SignedAt       *time.Time        `json:"signed_at,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	Errors         []string          `json:"errors,omitempty"`
}

// SignerInfoOutput holds signer info for API response
type SignerInfoOutput struct {
	Name         string     `json:"name,omitempty"`
	Organization string     `json:"organization,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	Issuer       string     `json:"issuer,omitempty"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidTo      *time.Time `json:"valid_to,omitempty"`
}
