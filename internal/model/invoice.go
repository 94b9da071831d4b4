package model

import (
	"github.com/shopspring/decimal"
)

// NotAvailable is shown in place of any field that is absent from the source document
const NotAvailable = "not available"

// DocumentType identifies the UBL document kind
type DocumentType string

const (
	DocumentTypeInvoice    DocumentType = "Invoice"
	DocumentTypeCreditNote DocumentType = "CreditNote"
	// DocumentTypeGeneric marks a root element that is neither Invoice nor CreditNote
	DocumentTypeGeneric DocumentType = "Generic"
)

// Address is a party's postal address
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalZone string `json:"postal_zone,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsEmpty returns true when no address component is present
func (a Address) IsEmpty() bool {
	return a.Street == "" && a.City == "" && a.PostalZone == "" && a.Country == ""
}

// Party represents the supplier or customer of an invoice
type Party struct {
	Name    string  `json:"name,omitempty"`
	VATID   string  `json:"vat_id,omitempty"`
	Address Address `json:"address"`
}

// LineItem is one invoice line in document order.
// Absent numeric values have Valid == false.
type LineItem struct {
	Description string              `json:"description"`
	Quantity    decimal.NullDecimal `json:"quantity"`
	UnitCode    string              `json:"unit_code,omitempty"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	LineTotal   decimal.NullDecimal `json:"line_total"`
}

// Invoice is the extracted view of one UBL document.
// Empty strings and invalid NullDecimals mean the element was absent.
type Invoice struct {
	ID           string       `json:"invoice_id"`
	DocumentType DocumentType `json:"document_type"`
	IssueDate    string       `json:"issue_date,omitempty"`
	DueDate      string       `json:"due_date,omitempty"`
	Currency     string       `json:"currency_code,omitempty"`

	Supplier Party `json:"supplier"`
	Customer Party `json:"customer"`

	SubtotalAmount decimal.NullDecimal `json:"subtotal_amount"`
	TaxAmount      decimal.NullDecimal `json:"tax_amount"`
	TotalAmount    decimal.NullDecimal `json:"total_amount"`

	Items []LineItem `json:"line_items"`
}

// HasID reports whether the document carried an invoice identifier
func (inv *Invoice) HasID() bool {
	return inv != nil && inv.ID != ""
}

// IDOr returns the invoice identifier, or fallback when the document had none
func (inv *Invoice) IDOr(fallback string) string {
	if inv.HasID() {
		return inv.ID
	}
	return fallback
}
