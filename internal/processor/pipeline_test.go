package processor_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rezonia/ubl-pdf/internal/model"
	pdfparser "github.com/rezonia/ubl-pdf/internal/parser/pdf"
	"github.com/rezonia/ubl-pdf/internal/processor"
)

const minimalPDFBase64 = "JVBERi0xLjQKMSAwIG9iago8PCAvVHlwZSAvQ2F0YWxvZyA+PgplbmRvYmoKJSVFT0YK"

func document(body string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
 xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
 xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">` + body + `</Invoice>`)
}

func attachment(mime, payload string) string {
	return `<cac:AdditionalDocumentReference><cbc:ID>1</cbc:ID><cac:Attachment>` +
		`<cbc:EmbeddedDocumentBinaryObject mimeCode="` + mime + `" filename="original.pdf">` + payload +
		`</cbc:EmbeddedDocumentBinaryObject></cac:Attachment></cac:AdditionalDocumentReference>`
}

func TestNewPipeline(t *testing.T) {
	p := processor.NewPipeline()
	require.NotNil(t, p)
}

func TestNewPipeline_WithOptions(t *testing.T) {
	p := processor.NewPipeline(
		processor.WithSkipEmbedded(true),
		processor.WithDecoder(pdfparser.NewDecoder(pdfparser.WithValidation())),
		processor.WithRenderer(nil),
		processor.WithRegistry(nil),
		processor.WithLogger(nil),
	)
	require.NotNil(t, p)
}

// INV-001 without monetary total or attachment yields the summary only
func TestProcess_SummaryOnly(t *testing.T) {
	result := processor.NewPipeline().Process(context.Background(), document(`<cbc:ID>INV-001</cbc:ID>`))
	require.NoError(t, result.Error)
	require.NotNil(t, result.Invoice)

	assert.Equal(t, "INV-001", result.Invoice.ID)
	assert.False(t, result.Invoice.TotalAmount.Valid)
	assert.Nil(t, result.Attachment)
	assert.Empty(t, result.Warnings)

	require.Len(t, result.Outputs, 1)
	generated := result.Outputs[0]
	assert.Equal(t, processor.SuffixGenerated, generated.Suffix)
	assert.True(t, bytes.Contains(generated.Data, []byte("(INV-001)")))
	assert.True(t, bytes.Contains(generated.Data, []byte("(not available)")))
	assert.Equal(t, []string{"invoice_INV-001_generated.pdf"}, result.FileNames("fallback"))
}

// INV-002 with a total and a valid PDF attachment yields both outputs
func TestProcess_WithEmbeddedPDF(t *testing.T) {
	body := `<cbc:ID>INV-002</cbc:ID>` + attachment("application/pdf", minimalPDFBase64) +
		`<cac:LegalMonetaryTotal><cbc:PayableAmount currencyID="EUR">123.45</cbc:PayableAmount></cac:LegalMonetaryTotal>`

	result := processor.NewPipeline().Process(context.Background(), document(body))
	require.NoError(t, result.Error)
	assert.Empty(t, result.Warnings)

	require.Len(t, result.Outputs, 2)
	assert.Equal(t, processor.SuffixGenerated, result.Outputs[0].Suffix)
	assert.Equal(t, processor.SuffixEmbedded, result.Outputs[1].Suffix)
	assert.True(t, bytes.Contains(result.Outputs[0].Data, []byte("(123.45 EUR)")))

	embedded := result.Output(processor.SuffixEmbedded)
	require.NotNil(t, embedded)
	assert.Equal(t, []byte("%PDF-"), embedded.Data[:5])
	assert.Equal(t, minimalPDFBase64, base64.StdEncoding.EncodeToString(embedded.Data))

	require.NotNil(t, result.Attachment)
	assert.Equal(t, "original.pdf", result.Attachment.Filename)
	assert.Equal(t, []string{
		"invoice_INV-002_generated.pdf",
		"invoice_INV-002_embedded.pdf",
	}, result.FileNames("fallback"))
}

// an attachment with another MIME code is skipped without a warning
func TestProcess_NonPDFAttachmentIgnored(t *testing.T) {
	body := `<cbc:ID>INV-003</cbc:ID>` + attachment("application/xml", "PG5vdGUvPg==")

	result := processor.NewPipeline().Process(context.Background(), document(body))
	require.NoError(t, result.Error)
	assert.Empty(t, result.Warnings)
	assert.Nil(t, result.Attachment)
	require.Len(t, result.Outputs, 1)
	assert.Nil(t, result.Output(processor.SuffixEmbedded))
}

// a payload declared as PDF that decodes to something else becomes a warning
func TestProcess_MimeCodeLie(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("<note>not a pdf</note>"))
	body := `<cbc:ID>INV-004</cbc:ID>` + attachment("application/pdf", payload)

	core, logs := observer.New(zap.WarnLevel)
	p := processor.NewPipeline(processor.WithLogger(zap.New(core)))

	result := p.Process(context.Background(), document(body))
	require.NoError(t, result.Error)
	assert.True(t, result.Partial())

	require.Len(t, result.Outputs, 1)
	assert.Equal(t, processor.SuffixGenerated, result.Outputs[0].Suffix)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], string(model.DecodeNotAPdf))
	assert.Equal(t, 1, logs.FilterMessage("Embedded attachment skipped").Len())
}

func TestProcess_InvalidBase64Attachment(t *testing.T) {
	body := `<cbc:ID>INV-005</cbc:ID>` + attachment("application/pdf", "%%% not base64 %%%")

	result := processor.NewPipeline().Process(context.Background(), document(body))
	require.NoError(t, result.Error)
	require.Len(t, result.Outputs, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], string(model.DecodeInvalidBase64))
}

// an unclosed tag fails the document with no outputs
func TestProcess_MalformedXML(t *testing.T) {
	result := processor.NewPipeline().Process(context.Background(), []byte(`<Invoice><cbc:ID>INV-006</cbc:ID>`))
	require.Error(t, result.Error)
	assert.ErrorIs(t, result.Error, model.ErrMalformed)
	assert.Contains(t, result.Error.Error(), "XML parsing failed")
	assert.Nil(t, result.Invoice)
	assert.Empty(t, result.Outputs)
	assert.False(t, result.Partial())
}

func TestProcess_ConcatenatedDocuments(t *testing.T) {
	data := append(document(`<cbc:ID>A</cbc:ID>`), document(`<cbc:ID>B</cbc:ID>`)[len(`<?xml version="1.0" encoding="UTF-8"?>`):]...)

	result := processor.NewPipeline().Process(context.Background(), data)
	require.Error(t, result.Error)
	assert.ErrorIs(t, result.Error, model.ErrMalformed)
	assert.Nil(t, result.Invoice)
	assert.Empty(t, result.Outputs)
}

func TestProcess_SkipEmbedded(t *testing.T) {
	body := `<cbc:ID>INV-007</cbc:ID>` + attachment("application/pdf", minimalPDFBase64)

	result := processor.NewPipeline(processor.WithSkipEmbedded(true)).Process(context.Background(), document(body))
	require.NoError(t, result.Error)
	assert.Nil(t, result.Attachment)
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, processor.SuffixGenerated, result.Outputs[0].Suffix)
}

func TestProcess_ValidationRejectsCorruptPDF(t *testing.T) {
	broken := base64.StdEncoding.EncodeToString([]byte("%PDF-1.7\nthis is not a pdf body\n"))
	body := `<cbc:ID>INV-008</cbc:ID>` + attachment("application/pdf", broken)

	p := processor.NewPipeline(processor.WithDecoder(pdfparser.NewDecoder(pdfparser.WithValidation())))
	result := p.Process(context.Background(), document(body))
	require.NoError(t, result.Error)
	require.Len(t, result.Outputs, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], string(model.DecodeCorruptPDF))
}

func TestProcess_MissingIDUsesFallback(t *testing.T) {
	result := processor.NewPipeline().Process(context.Background(), document(`<cbc:IssueDate>2026-01-01</cbc:IssueDate>`))
	require.NoError(t, result.Error)
	assert.True(t, result.Partial())
	assert.Equal(t, "source-file", result.InvoiceID("source-file"))
	assert.Equal(t, []string{"invoice_source-file_generated.pdf"}, result.FileNames("source-file"))
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := processor.NewPipeline().Process(ctx, document(`<cbc:ID>X</cbc:ID>`))
	assert.ErrorIs(t, result.Error, context.Canceled)
	assert.Empty(t, result.Outputs)
}

func TestProcessReader(t *testing.T) {
	result := processor.NewPipeline().ProcessReader(context.Background(), bytes.NewReader(document(`<cbc:ID>R-1</cbc:ID>`)))
	require.NoError(t, result.Error)
	assert.Equal(t, "R-1", result.Invoice.ID)
}

func TestProcess_IsDeterministic(t *testing.T) {
	data := document(`<cbc:ID>DET-1</cbc:ID>` + attachment("application/pdf", minimalPDFBase64))
	p := processor.NewPipeline()

	a := p.Process(context.Background(), data)
	b := p.Process(context.Background(), data)
	require.NoError(t, a.Error)
	require.NoError(t, b.Error)
	assert.Equal(t, a.Outputs, b.Outputs)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		id       string
		suffix   processor.Suffix
		expected string
	}{
		{"INV-001", processor.SuffixGenerated, "invoice_INV-001_generated.pdf"},
		{"INV-001", processor.SuffixEmbedded, "invoice_INV-001_embedded.pdf"},
		{"2026/03/42", processor.SuffixGenerated, "invoice_2026_03_42_generated.pdf"},
		{`..\..\etc`, processor.SuffixGenerated, "invoice_.._.._etc_generated.pdf"},
		{"A B:C", processor.SuffixGenerated, "invoice_A_B_C_generated.pdf"},
		{"Façture", processor.SuffixGenerated, "invoice_Fa_ture_generated.pdf"},
		{"  ", processor.SuffixGenerated, "invoice_unknown_generated.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			name := processor.FileName(tt.id, tt.suffix)
			assert.Equal(t, tt.expected, name)
			assert.NotContains(t, name, "/")
			assert.NotContains(t, name, `\`)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected processor.Format
	}{
		{
			name:     "XML with declaration",
			data:     []byte(`<?xml version="1.0"?><Invoice/>`),
			expected: processor.FormatXML,
		},
		{
			name:     "XML without declaration",
			data:     []byte(`<Invoice><ID>1</ID></Invoice>`),
			expected: processor.FormatXML,
		},
		{
			name:     "XML with BOM and leading whitespace",
			data:     append([]byte{0xEF, 0xBB, 0xBF}, []byte("\n  <Invoice/>")...),
			expected: processor.FormatXML,
		},
		{
			name:     "PDF",
			data:     []byte("%PDF-1.4\n%some content"),
			expected: processor.FormatPDF,
		},
		{
			name:     "PNG image",
			data:     []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
			expected: processor.FormatImage,
		},
		{
			name:     "Unknown format",
			data:     []byte("some random text"),
			expected: processor.FormatUnknown,
		},
		{
			name:     "Empty data",
			data:     []byte{},
			expected: processor.FormatUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, processor.DetectFormat(tt.data))
		})
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		format   processor.Format
		expected string
	}{
		{processor.FormatXML, "xml"},
		{processor.FormatPDF, "pdf"},
		{processor.FormatImage, "image"},
		{processor.FormatUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.format.String())
		})
	}
}

func TestMimeType(t *testing.T) {
	assert.True(t, strings.HasPrefix(processor.MimeType([]byte("%PDF-1.4\n")), "application/pdf"))
}

// Benchmark tests

func BenchmarkDetectFormat_XML(b *testing.B) {
	data := []byte(`<?xml version="1.0"?><Invoice><ID>1</ID></Invoice>`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		processor.DetectFormat(data)
	}
}

func BenchmarkProcess(b *testing.B) {
	ctx := context.Background()
	p := processor.NewPipeline()
	data := document(`<cbc:ID>BENCH</cbc:ID>` + attachment("application/pdf", minimalPDFBase64))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Process(ctx, data)
	}
}
