package ublpdf

import (
	"context"
	"io"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	pdfparser "github.com/rezonia/ubl-pdf/internal/parser/pdf"
	xmlparser "github.com/rezonia/ubl-pdf/internal/parser/xml"
	"github.com/rezonia/ubl-pdf/internal/processor"
	"github.com/rezonia/ubl-pdf/internal/render"
)

// Options configures a Converter
type Options struct {
	// SkipEmbedded disables extraction of the embedded PDF
	SkipEmbedded bool
	// ValidateEmbedded runs a structural PDF check on extracted payloads
	ValidateEmbedded bool
	// Workers bounds ConvertBatch concurrency (default: number of CPUs)
	Workers int
	Logger  *zap.Logger
}

// DefaultOptions returns default converter options
func DefaultOptions() Options {
	return Options{
		Workers: runtime.NumCPU(),
	}
}

// Result is the outcome of converting one document
type Result struct {
	Invoice    *Invoice
	Attachment *EmbeddedAttachment
	Outputs    []Output
	Warnings   []string
}

// InvoiceID returns the invoice identifier, or fallback when the document had none
func (r *Result) InvoiceID(fallback string) string {
	return r.Invoice.IDOr(fallback)
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

// Converter converts UBL documents using the internal pipeline
type Converter struct {
	pipeline *processor.Pipeline
	options  Options
}

// NewConverter creates a new converter with the given options
func NewConverter(opts Options) *Converter {
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	var decoderOpts []pdfparser.Option
	if opts.ValidateEmbedded {
		decoderOpts = append(decoderOpts, pdfparser.WithValidation())
	}

	pipeline := processor.NewPipeline(
		processor.WithSkipEmbedded(opts.SkipEmbedded),
		processor.WithDecoder(pdfparser.NewDecoder(decoderOpts...)),
		processor.WithLogger(opts.Logger),
	)

	return &Converter{
		pipeline: pipeline,
		options:  opts,
	}
}

// NewDefaultConverter creates a converter with default options
func NewDefaultConverter() *Converter {
	return NewConverter(DefaultOptions())
}

// Convert reads one UBL document from r and converts it. Only a malformed
// document is an error; attachment problems are reported as warnings.
func (c *Converter) Convert(ctx context.Context, r io.Reader) (*Result, error) {
	return c.toResult(c.pipeline.ProcessReader(ctx, r))
}

// ConvertBytes converts one UBL document held in memory
func (c *Converter) ConvertBytes(ctx context.Context, data []byte) (*Result, error) {
	return c.toResult(c.pipeline.Process(ctx, data))
}

func (c *Converter) toResult(result *processor.Result) (*Result, error) {
	if result.Error != nil {
		return nil, result.Error
	}
	return &Result{
		Invoice:    result.Invoice,
		Attachment: result.Attachment,
		Outputs:    result.Outputs,
		Warnings:   result.Warnings,
	}, nil
}

// ConvertBatch converts multiple inputs concurrently. Results keep the input
// order; a failed input leaves a nil entry and the first error is returned.
func (c *Converter) ConvertBatch(ctx context.Context, inputs []io.Reader) ([]*Result, error) {
	results := make([]*Result, len(inputs))
	errs := make([]error, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.options.Workers)
	for i, input := range inputs {
		g.Go(func() error {
			results[i], errs[i] = c.Convert(gctx, input)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// ParseInvoice parses a UBL document without rendering. Field-level problems
// are returned as warnings.
func ParseInvoice(data []byte) (*Invoice, []string, error) {
	return xmlparser.Parse(data)
}

// RenderSummary renders the summary PDF of an invoice
func RenderSummary(inv *Invoice) ([]byte, error) {
	return render.NewRenderer().Render(inv)
}

// DecodeAttachment decodes the base64 text of an embedded attachment into PDF bytes
func DecodeAttachment(a *EmbeddedAttachment) ([]byte, error) {
	if a == nil {
		return nil, ErrNoAttachment
	}
	return pdfparser.NewDecoder().Decode(a.RawText)
}
