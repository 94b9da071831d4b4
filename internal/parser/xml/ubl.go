package xml

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	money "github.com/rezonia/ubl-pdf/internal/decimal"
	"github.com/rezonia/ubl-pdf/internal/model"
)

// UBLAdapter extracts invoice records from UBL 2.x documents. The Invoice and
// CreditNote variants differ only in their root, line and quantity element names.
type UBLAdapter struct {
	docType       model.DocumentType
	rootNames     []string
	lineNames     []string
	quantityNames []string
}

// NewInvoiceAdapter creates an adapter for UBL Invoice documents
func NewInvoiceAdapter() *UBLAdapter {
	return &UBLAdapter{
		docType:       model.DocumentTypeInvoice,
		rootNames:     []string{RootInvoice},
		lineNames:     []string{"InvoiceLine"},
		quantityNames: []string{"InvoicedQuantity"},
	}
}

// NewCreditNoteAdapter creates an adapter for UBL CreditNote documents
func NewCreditNoteAdapter() *UBLAdapter {
	return &UBLAdapter{
		docType:       model.DocumentTypeCreditNote,
		rootNames:     []string{RootCreditNote},
		lineNames:     []string{"CreditNoteLine"},
		quantityNames: []string{"CreditedQuantity"},
	}
}

// NewGenericAdapter creates an adapter that accepts any root element and
// looks for both invoice and credit note lines
func NewGenericAdapter() *UBLAdapter {
	return &UBLAdapter{
		docType:       model.DocumentTypeGeneric,
		lineNames:     []string{"InvoiceLine", "CreditNoteLine"},
		quantityNames: []string{"InvoicedQuantity", "CreditedQuantity", "Quantity"},
	}
}

// DocumentType returns the document kind
func (a *UBLAdapter) DocumentType() model.DocumentType {
	return a.docType
}

// CanParse checks the local name of the document element
func (a *UBLAdapter) CanParse(root *etree.Element) bool {
	if root == nil {
		return false
	}
	if len(a.rootNames) == 0 {
		return true
	}
	return matches(root, a.rootNames)
}

// Extract reads the invoice record from the document element
func (a *UBLAdapter) Extract(root *etree.Element) (*model.Invoice, []string) {
	x := &extraction{}

	result := &model.Invoice{
		ID:           ChildText(root, "ID"),
		DocumentType: a.docType,
		IssueDate:    x.date(FindChild(root, "IssueDate"), "issue date"),
		Currency:     ChildText(root, "DocumentCurrencyCode"),
	}
	if !result.HasID() {
		x.warnf("invoice ID not found")
	}

	due := FindChild(root, "DueDate")
	if due == nil {
		due = FindChild(FindChild(root, "PaymentMeans"), "PaymentDueDate")
	}
	result.DueDate = x.date(due, "due date")

	// Convert parties
	result.Supplier = convertParty(FindChild(root, "AccountingSupplierParty"))
	result.Customer = convertParty(FindChild(root, "AccountingCustomerParty"))

	// Parse totals
	totals := FindChild(root, "LegalMonetaryTotal")
	total := FindChild(totals, "PayableAmount")
	if total == nil {
		total = FindChild(totals, "TaxInclusiveAmount")
	}
	if result.Currency == "" {
		result.Currency = strings.TrimSpace(Attr(total, "currencyID"))
	}
	result.TotalAmount = x.amount(total, "total amount", result.Currency)
	result.SubtotalAmount = x.amount(FindChild(totals, "TaxExclusiveAmount"), "subtotal amount", result.Currency)
	result.TaxAmount = x.amount(FindChild(FindChild(root, "TaxTotal"), "TaxAmount"), "tax amount", result.Currency)

	// Convert line items
	for i, line := range FindDescendants(root, a.lineNames...) {
		result.Items = append(result.Items, a.convertLine(x, line, i+1, result.Currency))
	}

	lineSum := x.amount(FindChild(totals, "LineExtensionAmount"), "line extension amount", result.Currency)
	x.checkLineSum(result.Items, lineSum)

	return result, x.warnings
}

func (a *UBLAdapter) convertLine(x *extraction, line *etree.Element, n int, currency string) model.LineItem {
	item := FindChild(line, "Item")
	result := model.LineItem{
		Description: ChildText(item, "Description"),
	}
	if result.Description == "" {
		result.Description = ChildText(item, "Name")
	}

	if qty := FindChild(line, a.quantityNames...); qty != nil {
		result.UnitCode = strings.TrimSpace(Attr(qty, "unitCode"))
		result.Quantity = x.quantity(qty, fmt.Sprintf("line %d quantity", n))
	}

	price := FindChild(FindChild(line, "Price"), "PriceAmount")
	result.UnitPrice = x.amount(price, fmt.Sprintf("line %d unit price", n), currency)
	result.LineTotal = x.amount(FindChild(line, "LineExtensionAmount"), fmt.Sprintf("line %d total", n), currency)

	return result
}

func convertParty(wrapper *etree.Element) model.Party {
	if wrapper == nil {
		return model.Party{}
	}
	p := FindChild(wrapper, "Party")
	if p == nil {
		p = wrapper
	}

	result := model.Party{
		Name: ChildText(FindChild(p, "PartyName"), "Name"),
	}
	if result.Name == "" {
		result.Name = ChildText(FindChild(p, "PartyLegalEntity"), "RegistrationName")
	}
	if id := FindDescendant(p, "CompanyID"); id != nil {
		result.VATID = Text(id)
	}

	addr := FindChild(p, "PostalAddress")
	result.Address = model.Address{
		Street:     ChildText(addr, "StreetName"),
		City:       ChildText(addr, "CityName"),
		PostalZone: ChildText(addr, "PostalZone"),
		Country:    ChildText(FindChild(addr, "Country"), "IdentificationCode"),
	}
	return result
}

// extraction collects field-level warnings for one document
type extraction struct {
	warnings []string
}

func (x *extraction) warnf(format string, args ...any) {
	x.warnings = append(x.warnings, fmt.Sprintf(format, args...))
}

// amount parses a monetary element. The element's currencyID attribute is
// the locale hint, else the document currency. Unparseable or ambiguous
// values are left absent.
func (x *extraction) amount(e *etree.Element, field, currency string) decimal.NullDecimal {
	text := Text(e)
	if text == "" {
		return decimal.NullDecimal{}
	}
	hint := strings.TrimSpace(Attr(e, "currencyID"))
	if hint == "" {
		hint = currency
	}
	d, err := money.ParseAmount(text, hint)
	if err != nil {
		x.warnf("%s %q: %v, left absent", field, text, err)
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func (x *extraction) quantity(e *etree.Element, field string) decimal.NullDecimal {
	text := Text(e)
	if text == "" {
		return decimal.NullDecimal{}
	}
	d, err := money.ParseQuantity(text)
	if err != nil {
		x.warnf("%s %q: %v, left absent", field, text, err)
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02Z07:00",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// date normalizes a date element to YYYY-MM-DD. Text in an unknown format is
// kept as-is with a warning.
func (x *extraction) date(e *etree.Element, field string) string {
	text := Text(e)
	if text == "" {
		return ""
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, text); err == nil {
			return t.Format("2006-01-02")
		}
	}
	x.warnf("%s %q is not an ISO-8601 date", field, text)
	return text
}

// checkLineSum warns when every line total is present but their sum differs
// from the declared line extension total
func (x *extraction) checkLineSum(items []model.LineItem, declared decimal.NullDecimal) {
	if !declared.Valid || len(items) == 0 {
		return
	}
	totals := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		if !item.LineTotal.Valid {
			return
		}
		totals = append(totals, item.LineTotal.Decimal)
	}
	if sum := money.Sum(totals); !sum.Equal(declared.Decimal) {
		x.warnf("line totals sum to %s but line extension amount is %s",
			money.FormatFixed(sum), money.FormatFixed(declared.Decimal))
	}
}
