package processor

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rezonia/ubl-pdf/internal/model"
	pdfparser "github.com/rezonia/ubl-pdf/internal/parser/pdf"
	xmlparser "github.com/rezonia/ubl-pdf/internal/parser/xml"
	"github.com/rezonia/ubl-pdf/internal/render"
)

// Suffix tags an output buffer with its role
type Suffix string

const (
	SuffixGenerated Suffix = "generated"
	SuffixEmbedded  Suffix = "embedded"
)

// Output is one produced PDF
type Output struct {
	Suffix Suffix
	Data   []byte
}

// Result contains the outcome of processing one document. Outputs always
// holds the generated summary first, followed by the embedded PDF when one
// was located and decoded.
type Result struct {
	Invoice    *model.Invoice
	Attachment *model.EmbeddedAttachment
	Outputs    []Output
	Warnings   []string
	Error      error
}

// Output returns the output with the given suffix, or nil
func (r *Result) Output(s Suffix) *Output {
	for i := range r.Outputs {
		if r.Outputs[i].Suffix == s {
			return &r.Outputs[i]
		}
	}
	return nil
}

// Partial reports whether the document succeeded with warnings
func (r *Result) Partial() bool {
	return r.Error == nil && len(r.Warnings) > 0
}

// InvoiceID returns the parsed invoice identifier, or fallback when absent
func (r *Result) InvoiceID(fallback string) string {
	return r.Invoice.IDOr(fallback)
}

// Pipeline orchestrates parsing, attachment extraction and rendering for
// a single document
type Pipeline struct {
	registry     *xmlparser.Registry
	decoder      *pdfparser.Decoder
	renderer     *render.Renderer
	skipEmbedded bool
	logger       *zap.Logger
}

// PipelineOption configures the pipeline
type PipelineOption func(*Pipeline)

// WithSkipEmbedded disables attachment location and decoding; only the
// generated summary is produced
func WithSkipEmbedded(skip bool) PipelineOption {
	return func(p *Pipeline) {
		p.skipEmbedded = skip
	}
}

// WithDecoder sets the attachment decoder
func WithDecoder(d *pdfparser.Decoder) PipelineOption {
	return func(p *Pipeline) {
		if d != nil {
			p.decoder = d
		}
	}
}

// WithRenderer sets the summary renderer
func WithRenderer(r *render.Renderer) PipelineOption {
	return func(p *Pipeline) {
		if r != nil {
			p.renderer = r
		}
	}
}

// WithRegistry sets the adapter registry
func WithRegistry(r *xmlparser.Registry) PipelineOption {
	return func(p *Pipeline) {
		if r != nil {
			p.registry = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a new processing pipeline
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		registry: xmlparser.NewRegistry(),
		decoder:  pdfparser.NewDecoder(),
		renderer: render.NewRenderer(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessReader reads all of r and processes it as one document
func (p *Pipeline) ProcessReader(ctx context.Context, r io.Reader) *Result {
	data, err := io.ReadAll(r)
	if err != nil {
		return &Result{Error: fmt.Errorf("failed to read input: %w", err)}
	}
	return p.Process(ctx, data)
}

// Process parses data, renders the summary and extracts the embedded PDF.
// Only a malformed document fails the result; attachment problems become
// warnings and never cancel the generated summary.
func (p *Pipeline) Process(ctx context.Context, data []byte) *Result {
	if err := ctx.Err(); err != nil {
		return &Result{Error: err}
	}

	tree, err := xmlparser.Read(data)
	if err != nil {
		return &Result{Error: fmt.Errorf("XML parsing failed: %w", err)}
	}

	inv, warnings := p.registry.Extract(tree)
	result := &Result{
		Invoice:  inv,
		Warnings: warnings,
	}

	if !p.skipEmbedded {
		result.Attachment = xmlparser.Locate(tree)
	}

	summary, err := p.renderer.Render(inv)
	if err != nil {
		result.Error = fmt.Errorf("summary rendering failed: %w", err)
		return result
	}
	result.Outputs = append(result.Outputs, Output{Suffix: SuffixGenerated, Data: summary})

	if result.Attachment == nil {
		p.logger.Debug("No embedded PDF attachment", zap.String("invoice_id", inv.ID))
		return result
	}

	embedded, err := p.decoder.Decode(result.Attachment.RawText)
	if err != nil {
		p.logger.Warn("Embedded attachment skipped",
			zap.String("invoice_id", inv.ID),
			zap.String("filename", result.Attachment.Filename),
			zap.Error(err))
		result.Warnings = append(result.Warnings, fmt.Sprintf("embedded attachment skipped: %v", err))
		return result
	}
	result.Outputs = append(result.Outputs, Output{Suffix: SuffixEmbedded, Data: embedded})

	return result
}
