// Package ublpdf provides a public API for converting UBL invoices to PDF.
//
// A conversion parses a UBL 2.x Invoice or CreditNote, renders a one-page
// summary PDF and extracts the original PDF embedded in the document, if any.
//
// Example usage:
//
//	conv := ublpdf.NewDefaultConverter()
//	result, err := conv.Convert(ctx, reader)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, out := range result.Outputs {
//	    os.WriteFile(ublpdf.FileName(result.InvoiceID("unknown"), out.Suffix), out.Data, 0644)
//	}
package ublpdf

import (
	"errors"

	"github.com/rezonia/ubl-pdf/internal/model"
	"github.com/rezonia/ubl-pdf/internal/processor"
)

// Re-export core types for public API
type (
	Invoice            = model.Invoice
	LineItem           = model.LineItem
	Party              = model.Party
	Address            = model.Address
	DocumentType       = model.DocumentType
	EmbeddedAttachment = model.EmbeddedAttachment
	Output             = processor.Output
	Suffix             = processor.Suffix
)

// Re-export document types
const (
	DocumentTypeInvoice    = model.DocumentTypeInvoice
	DocumentTypeCreditNote = model.DocumentTypeCreditNote
	DocumentTypeGeneric    = model.DocumentTypeGeneric
)

// Re-export output suffixes
const (
	SuffixGenerated = processor.SuffixGenerated
	SuffixEmbedded  = processor.SuffixEmbedded
)

// Re-export error types
type (
	ParseError  = model.ParseError
	DecodeError = model.DecodeError
)

// Re-export error sentinels for errors.Is
var (
	ErrMalformed     = model.ErrMalformed
	ErrInvalidBase64 = model.ErrInvalidBase64
	ErrNotAPdf       = model.ErrNotAPdf
	ErrCorruptPDF    = model.ErrCorruptPDF
)

// ErrNoAttachment is returned by DecodeAttachment for a nil attachment
var ErrNoAttachment = errors.New("no embedded attachment")

// FileName returns the output file name for an invoice id and suffix
func FileName(id string, s Suffix) string {
	return processor.FileName(id, s)
}
