package batch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rezonia/ubl-pdf/internal/batch"
	"github.com/rezonia/ubl-pdf/internal/model"
)

const minimalPDFBase64 = "JVBERi0xLjQKMSAwIG9iago8PCAvVHlwZSAvQ2F0YWxvZyA+PgplbmRvYmoKJSVFT0YK"

func invoiceXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
 xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
 xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">` + body + `</Invoice>`
}

func withAttachment(id, payload string) string {
	return invoiceXML(`<cbc:ID>` + id + `</cbc:ID><cac:AdditionalDocumentReference><cbc:ID>1</cbc:ID><cac:Attachment>` +
		`<cbc:EmbeddedDocumentBinaryObject mimeCode="application/pdf">` + payload +
		`</cbc:EmbeddedDocumentBinaryObject></cac:Attachment></cac:AdditionalDocumentReference>`)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// setupInputs builds a directory with one document of every outcome kind
func setupInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a_plain.xml"), invoiceXML(`<cbc:ID>INV-001</cbc:ID>`))
	writeFile(t, filepath.Join(dir, "b_embedded.XML"), withAttachment("INV-002", minimalPDFBase64))
	writeFile(t, filepath.Join(dir, "c_broken.xml"), `<Invoice><cbc:ID>INV-003</cbc:ID>`)
	writeFile(t, filepath.Join(dir, "nested", "d_liar.ubl"), withAttachment("INV-004", "PG5vdGUvPg=="))
	writeFile(t, filepath.Join(dir, "nested", "e_no_id.xml"), invoiceXML(`<cbc:IssueDate>2026-01-01</cbc:IssueDate>`))
	writeFile(t, filepath.Join(dir, "notes.txt"), "not an invoice")
	return dir
}

func TestRunner_Discover(t *testing.T) {
	dir := setupInputs(t)

	files, err := batch.NewRunner(batch.Config{Input: dir}).Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_plain.xml"),
		filepath.Join(dir, "b_embedded.XML"),
		filepath.Join(dir, "c_broken.xml"),
		filepath.Join(dir, "nested", "d_liar.ubl"),
		filepath.Join(dir, "nested", "e_no_id.xml"),
	}, files)

	files, err = batch.NewRunner(batch.Config{Input: dir, Extensions: []string{".UBL"}}).Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "nested", "d_liar.ubl")}, files)
}

func TestRunner_DiscoverSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.txt")
	writeFile(t, path, invoiceXML(`<cbc:ID>X</cbc:ID>`))

	files, err := batch.NewRunner(batch.Config{Input: path}).Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestRunner_DiscoverMissingInput(t *testing.T) {
	_, err := batch.NewRunner(batch.Config{Input: filepath.Join(t.TempDir(), "missing")}).Discover()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunner_Run(t *testing.T) {
	dir := setupInputs(t)
	out := filepath.Join(t.TempDir(), "pdfs")

	core, logs := observer.New(zap.DebugLevel)
	runner := batch.NewRunner(batch.Config{Input: dir, OutputDir: out, Workers: 3},
		batch.WithLogger(zap.New(core)))

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 5, report.Processed)
	assert.Equal(t, 2, report.Partial)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, report.HasFailures())
	assert.Equal(t, "Processed 5 file(s) with 1 failure(s).", report.Summary())

	require.Len(t, report.Outcomes, 5)
	byName := make(map[string]batch.Outcome)
	for _, o := range report.Outcomes {
		byName[filepath.Base(o.Path)] = o
	}

	plain := byName["a_plain.xml"]
	assert.Equal(t, batch.StatusOK, plain.Status)
	assert.Equal(t, "INV-001", plain.InvoiceID)
	assert.Equal(t, []string{filepath.Join(out, "invoice_INV-001_generated.pdf")}, plain.Files)

	embedded := byName["b_embedded.XML"]
	assert.Equal(t, batch.StatusOK, embedded.Status)
	require.Len(t, embedded.Files, 2)
	data, err := os.ReadFile(filepath.Join(out, "invoice_INV-002_embedded.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(data[:5]))

	broken := byName["c_broken.xml"]
	assert.Equal(t, batch.StatusFailed, broken.Status)
	assert.ErrorIs(t, broken.Error, model.ErrMalformed)
	assert.Empty(t, broken.Files)

	liar := byName["d_liar.ubl"]
	assert.Equal(t, batch.StatusPartial, liar.Status)
	assert.Len(t, liar.Files, 1)
	assert.NoFileExists(t, filepath.Join(out, "invoice_INV-004_embedded.pdf"))

	noID := byName["e_no_id.xml"]
	assert.Equal(t, batch.StatusPartial, noID.Status)
	assert.Equal(t, "e_no_id", noID.InvoiceID)
	assert.FileExists(t, filepath.Join(out, "invoice_e_no_id_generated.pdf"))

	for i := 1; i < len(report.Outcomes); i++ {
		assert.Less(t, report.Outcomes[i-1].Path, report.Outcomes[i].Path)
	}

	for _, entry := range logs.All() {
		if entry.Message == "Converted" || entry.Message == "Converted with warnings" || entry.Message == "Conversion failed" {
			fields := entry.ContextMap()
			assert.Contains(t, fields, "file")
			assert.Contains(t, fields, "invoice_id")
			assert.Equal(t, report.RunID, fields["run_id"])
		}
	}
	assert.Equal(t, 1, logs.FilterMessage("Conversion failed").Len())
	assert.Equal(t, 2, logs.FilterMessage("Converted with warnings").Len())
}

func TestRunner_OutputNextToInput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "inv.xml"), invoiceXML(`<cbc:ID>INV-9</cbc:ID>`))

	report, err := batch.NewRunner(batch.Config{Input: dir, Workers: 1}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.HasFailures())
	assert.FileExists(t, filepath.Join(dir, "sub", "invoice_INV-9_generated.pdf"))
}

func TestRunner_SkipEmbedded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "inv.xml"), withAttachment("INV-10", minimalPDFBase64))

	report, err := batch.NewRunner(batch.Config{Input: dir, SkipEmbedded: true}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Len(t, report.Outcomes[0].Files, 1)
	assert.NoFileExists(t, filepath.Join(dir, "invoice_INV-10_embedded.pdf"))
}

func TestRunner_SanitizesIDs(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	writeFile(t, filepath.Join(dir, "in", "inv.xml"), invoiceXML(`<cbc:ID>../../escape</cbc:ID>`))

	report, err := batch.NewRunner(batch.Config{Input: filepath.Join(dir, "in"), OutputDir: out}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, []string{filepath.Join(out, "invoice_.._.._escape_generated.pdf")}, report.Outcomes[0].Files)
}

func TestRunner_DuplicateIDsWarn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.xml"), invoiceXML(`<cbc:ID>SAME</cbc:ID>`))
	writeFile(t, filepath.Join(dir, "two.xml"), invoiceXML(`<cbc:ID>SAME</cbc:ID>`))

	report, err := batch.NewRunner(batch.Config{Input: dir, Workers: 1}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Partial)
	assert.Equal(t, 0, report.Failed)
}

func TestRunner_Cancelled(t *testing.T) {
	dir := setupInputs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := batch.NewRunner(batch.Config{Input: dir, OutputDir: t.TempDir(), Workers: 1}).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Zero(t, report.Processed)
}

func TestConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, batch.Config{}.Validate(), batch.ErrNoInput)
	assert.Error(t, batch.Config{Input: ".", Workers: -1}.Validate())
	assert.NoError(t, batch.Config{Input: "."}.Validate())
}
