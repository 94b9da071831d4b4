package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	pdfparser "github.com/rezonia/ubl-pdf/internal/parser/pdf"
	"github.com/rezonia/ubl-pdf/internal/processor"
	"github.com/rezonia/ubl-pdf/internal/storage"
)

// Config controls a batch conversion run
type Config struct {
	// Input is a directory walked recursively or a single file
	Input string
	// OutputDir receives the PDFs; empty means next to each input file
	OutputDir string
	// Extensions lists eligible input extensions, compared case-insensitively
	Extensions       []string
	SkipEmbedded     bool
	ValidateEmbedded bool
	Workers          int
}

// ErrNoInput is returned when the input path is empty
var ErrNoInput = errors.New("no input path")

// Validate checks the configuration before a run
func (c Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return ErrNoInput
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// Runner converts every eligible file below an input path
type Runner struct {
	cfg        Config
	extensions map[string]struct{}
	pipeline   *processor.Pipeline
	logger     *zap.Logger

	writeMu sync.Mutex
	claimed map[string]string
}

// Option configures the runner
type Option func(*Runner)

// WithPipeline replaces the pipeline built from Config
func WithPipeline(p *processor.Pipeline) Option {
	return func(r *Runner) {
		if p != nil {
			r.pipeline = p
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a runner for cfg
func NewRunner(cfg Config, opts ...Option) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{"xml", "ubl"}
	}

	r := &Runner{
		cfg:        cfg,
		extensions: make(map[string]struct{}, len(cfg.Extensions)),
		logger:     zap.NewNop(),
	}
	for _, ext := range cfg.Extensions {
		r.extensions[normalizeExt(ext)] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.pipeline == nil {
		var decoderOpts []pdfparser.Option
		if cfg.ValidateEmbedded {
			decoderOpts = append(decoderOpts, pdfparser.WithValidation())
		}
		r.pipeline = processor.NewPipeline(
			processor.WithSkipEmbedded(cfg.SkipEmbedded),
			processor.WithDecoder(pdfparser.NewDecoder(decoderOpts...)),
			processor.WithLogger(r.logger),
		)
	}
	return r
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
}

// Eligible reports whether path carries one of the configured extensions
func (r *Runner) Eligible(path string) bool {
	_, ok := r.extensions[normalizeExt(filepath.Ext(path))]
	return ok
}

// Discover lists the input files in lexical order. A single file given as
// input is returned regardless of its extension.
func (r *Runner) Discover() ([]string, error) {
	info, err := os.Stat(r.cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if !info.IsDir() {
		return []string{r.cfg.Input}, nil
	}

	var files []string
	err = filepath.WalkDir(r.cfg.Input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && r.Eligible(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", r.cfg.Input, err)
	}
	return files, nil
}

// Run converts all discovered files with at most Workers in flight. A failing
// document is recorded in the report and never stops the run; the returned
// error is reserved for discovery failures and cancellation.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	files, err := r.Discover()
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID))
	log.Info("Starting conversion",
		zap.String("input", r.cfg.Input),
		zap.Int("files", len(files)),
		zap.Int("workers", r.cfg.Workers))

	r.claimed = make(map[string]string)
	outcomes := make([]*Outcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = r.convert(gctx, log, path)
			return nil
		})
	}
	waitErr := g.Wait()

	report := newReport(runID, outcomes)
	log.Info("Conversion finished",
		zap.Int("processed", report.Processed),
		zap.Int("partial", report.Partial),
		zap.Int("failed", report.Failed))

	if waitErr != nil {
		return report, waitErr
	}
	return report, nil
}

func (r *Runner) convert(ctx context.Context, log *zap.Logger, path string) *Outcome {
	out := &Outcome{Path: path, Status: StatusOK}
	fields := []zap.Field{zap.String("file", path)}

	data, err := os.ReadFile(path)
	if err != nil {
		return r.fail(log, out, fmt.Errorf("failed to read file: %w", err), fields)
	}

	result := r.pipeline.Process(ctx, data)
	out.InvoiceID = result.InvoiceID(stem(path))
	out.Warnings = result.Warnings
	fields = append(fields, zap.String("invoice_id", out.InvoiceID))
	if result.Error != nil {
		return r.fail(log, out, result.Error, fields)
	}

	dir := r.cfg.OutputDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	store := storage.NewLocalFileStorage(dir, r.logger)

	for _, o := range result.Outputs {
		written, err := r.write(store, path, processor.FileName(out.InvoiceID, o.Suffix), o.Data, out)
		if err != nil {
			return r.fail(log, out, err, fields)
		}
		out.Files = append(out.Files, written)
	}

	if len(out.Warnings) > 0 {
		out.Status = StatusPartial
		log.Warn("Converted with warnings", append(fields,
			zap.Strings("files", out.Files),
			zap.Strings("warnings", out.Warnings))...)
		return out
	}

	log.Info("Converted", append(fields, zap.Strings("files", out.Files))...)
	return out
}

// write serializes output writes and flags inputs that resolve to the same
// output file within one run
func (r *Runner) write(store *storage.LocalFileStorage, source, name string, data []byte, out *Outcome) (string, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	target := filepath.Join(store.BaseDir(), name)
	if prev, ok := r.claimed[target]; ok && prev != source {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s overwrites output of %s", name, prev))
	}
	r.claimed[target] = source

	return store.Save(name, data)
}

func (r *Runner) fail(log *zap.Logger, out *Outcome, err error, fields []zap.Field) *Outcome {
	out.Status = StatusFailed
	out.Error = err
	log.Error("Conversion failed", append(fields, zap.Error(err))...)
	return out
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
