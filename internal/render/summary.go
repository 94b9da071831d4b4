package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	money "github.com/rezonia/ubl-pdf/internal/decimal"
	"github.com/rezonia/ubl-pdf/internal/model"
)

// Epoch is stamped as creation and modification date so that identical
// records produce identical bytes
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	fontFamily = "Helvetica"
	margin     = 15.0
	lineHeight = 5.0
	labelWidth = 40.0
	pageWidth  = 210.0
	pageHeight = 297.0
	bodyWidth  = pageWidth - 2*margin
	pageBottom = pageHeight - margin
)

// height available for rows below a repeated table header
const tableCapacity = pageBottom - margin - (lineHeight + 2)

// table columns: description, quantity, unit price, line total
var (
	columnTitles = []string{"Description", "Qty", "Unit price", "Line total"}
	columnWidths = []float64{82, 28, 35, 35}
	columnAlign  = []string{"L", "R", "R", "R"}
)

// Renderer draws the fixed-format invoice summary PDF
type Renderer struct {
	logger    *zap.Logger
	timestamp time.Time
}

// Option configures a Renderer
type Option func(*Renderer)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimestamp overrides the document date written into the PDF metadata
func WithTimestamp(t time.Time) Option {
	return func(r *Renderer) {
		r.timestamp = t
	}
}

// NewRenderer creates a new renderer
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		logger:    zap.NewNop(),
		timestamp: Epoch,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces the summary PDF for inv. Absent fields are written as
// "not available". The output depends only on inv and the renderer's
// timestamp.
func (r *Renderer) Render(inv *model.Invoice) ([]byte, error) {
	if inv == nil {
		inv = &model.Invoice{}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(r.timestamp)
	pdf.SetModificationDate(r.timestamp)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)

	s := &summary{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
	title := documentTitle(inv)
	pdf.SetTitle(title, true)
	pdf.SetCreator("ublpdf", true)

	pdf.AddPage()
	s.title(title)
	s.fields(inv)
	s.items(inv)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		r.logger.Error("Failed to generate summary PDF", zap.String("invoice_id", inv.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to generate summary PDF: %w", err)
	}

	r.logger.Debug("Summary PDF generated",
		zap.String("invoice_id", inv.ID),
		zap.Int("items", len(inv.Items)),
		zap.Int("size", buf.Len()),
		zap.Int("pages", pdf.PageCount()))
	return buf.Bytes(), nil
}

func documentTitle(inv *model.Invoice) string {
	if inv.DocumentType == model.DocumentTypeCreditNote {
		return "Credit Note Summary"
	}
	return "Invoice Summary"
}

type summary struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// text makes s safe for a cp1252 core font: control characters become
// spaces and runes outside the code page are replaced by the translator
func (s *summary) text(v string) string {
	v = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, v)
	return s.tr(v)
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return model.NotAvailable
	}
	return v
}

func (s *summary) title(title string) {
	s.pdf.SetFont(fontFamily, "B", 16)
	s.pdf.CellFormat(bodyWidth, 10, s.text(title), "", 1, "L", false, 0, "")
	s.pdf.Ln(4)
}

func (s *summary) fields(inv *model.Invoice) {
	rows := [][2]string{
		{"Invoice ID", orNA(inv.ID)},
		{"Issue date", orNA(inv.IssueDate)},
		{"Due date", orNA(inv.DueDate)},
		{"Supplier", orNA(inv.Supplier.Name)},
		{"Supplier VAT ID", orNA(inv.Supplier.VATID)},
		{"Supplier address", orNA(formatAddress(inv.Supplier.Address))},
		{"Customer", orNA(inv.Customer.Name)},
		{"Customer VAT ID", orNA(inv.Customer.VATID)},
		{"Customer address", orNA(formatAddress(inv.Customer.Address))},
		{"Currency", orNA(inv.Currency)},
		{"Subtotal", money.FormatAmount(inv.SubtotalAmount, inv.Currency)},
		{"Tax total", money.FormatAmount(inv.TaxAmount, inv.Currency)},
		{"Total", money.FormatAmount(inv.TotalAmount, inv.Currency)},
	}

	for _, row := range rows {
		s.pdf.SetFont(fontFamily, "B", 10)
		s.pdf.CellFormat(labelWidth, lineHeight+1, s.text(row[0]), "", 0, "L", false, 0, "")
		s.pdf.SetFont(fontFamily, "", 10)
		s.pdf.MultiCell(bodyWidth-labelWidth, lineHeight+1, s.text(row[1]), "", "L", false)
	}
	s.pdf.Ln(6)
}

func formatAddress(a model.Address) string {
	var parts []string
	if a.Street != "" {
		parts = append(parts, a.Street)
	}
	city := strings.TrimSpace(a.PostalZone + " " + a.City)
	if city != "" {
		parts = append(parts, city)
	}
	if a.Country != "" {
		parts = append(parts, a.Country)
	}
	return strings.Join(parts, ", ")
}

func (s *summary) tableHeader() {
	s.pdf.SetFont(fontFamily, "B", 9)
	s.pdf.SetFillColor(230, 230, 230)
	for i, title := range columnTitles {
		s.pdf.CellFormat(columnWidths[i], lineHeight+2, title, "B", 0, columnAlign[i], true, 0, "")
	}
	s.pdf.Ln(-1)
	s.pdf.SetFont(fontFamily, "", 9)
}

func (s *summary) items(inv *model.Invoice) {
	s.pdf.SetFont(fontFamily, "B", 12)
	s.pdf.CellFormat(bodyWidth, 8, "Line items", "", 1, "L", false, 0, "")

	if len(inv.Items) == 0 {
		s.pdf.SetFont(fontFamily, "I", 10)
		s.pdf.CellFormat(bodyWidth, lineHeight+1, "No line items", "", 1, "L", false, 0, "")
		return
	}

	s.tableHeader()
	for _, item := range inv.Items {
		s.row(item, inv.Currency)
	}
}

func (s *summary) row(item model.LineItem, currency string) {
	description := s.pdf.SplitLines([]byte(s.text(orNA(item.Description))), columnWidths[0])
	if len(description) == 0 {
		description = [][]byte{nil}
	}
	height := float64(len(description)) * lineHeight

	// a row that fits on one page is kept together; a taller one flows
	// line by line with the header repeated on every page
	if y := s.pdf.GetY(); y+height > pageBottom && (height <= tableCapacity || y+lineHeight > pageBottom) {
		s.pdf.AddPage()
		s.tableHeader()
	}

	quantity := money.FormatQuantity(item.Quantity)
	if item.Quantity.Valid && item.UnitCode != "" {
		quantity += " " + item.UnitCode
	}
	cells := []string{
		"",
		s.text(quantity),
		s.text(money.FormatAmount(item.UnitPrice, currency)),
		s.text(money.FormatAmount(item.LineTotal, currency)),
	}

	x := s.pdf.GetX()
	for i, line := range description {
		if i > 0 && s.pdf.GetY()+lineHeight > pageBottom {
			s.pdf.AddPage()
			s.tableHeader()
		}
		y := s.pdf.GetY()
		s.pdf.SetXY(x, y)
		s.pdf.CellFormat(columnWidths[0], lineHeight, string(line), "", 0, "L", false, 0, "")
		if i == 0 {
			for c := 1; c < len(cells); c++ {
				s.pdf.CellFormat(columnWidths[c], lineHeight, cells[c], "", 0, columnAlign[c], false, 0, "")
			}
		}
		s.pdf.SetXY(x, y+lineHeight)
	}

	y := s.pdf.GetY()
	s.pdf.SetDrawColor(200, 200, 200)
	s.pdf.Line(x, y, x+bodyWidth, y)
}
