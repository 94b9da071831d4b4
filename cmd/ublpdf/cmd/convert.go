package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rezonia/ubl-pdf/internal/batch"
)

var errConversionFailed = errors.New("one or more documents failed to convert")

var convertCmd = &cobra.Command{
	Use:   "convert [input]",
	Short: "Convert UBL documents to PDF",
	Long: `Convert a single UBL document, or every eligible document below a directory.

The input defaults to the current directory. Directories are walked
recursively and files are selected by extension (case-insensitive).
A single file argument is always converted, whatever its extension.

Output files are written next to each input unless --output is given.
The invoice ID names the output files; documents without one use the
input file name instead.

Examples:
  ublpdf convert
  ublpdf convert invoice.xml
  ublpdf convert invoices/ -o out/ --workers 8
  ublpdf convert invoices/ --extensions xml,ubl,txt --no-embedded`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	flags := convertCmd.Flags()
	flags.StringP("output", "o", "", "Output directory (default: next to each input file)")
	flags.StringSlice("extensions", []string{"xml", "ubl"}, "Eligible input file extensions")
	flags.Bool("no-embedded", false, "Do not extract embedded PDF attachments")
	flags.Int("workers", 0, "Concurrent conversions (default: number of CPUs)")
	flags.Bool("validate-embedded", false, "Validate extracted PDFs with pdfcpu")

	mustBind("convert.output", flags.Lookup("output"))
	mustBind("convert.extensions", flags.Lookup("extensions"))
	mustBind("convert.workers", flags.Lookup("workers"))
	mustBind("convert.no_embedded", flags.Lookup("no-embedded"))
	mustBind("convert.validate_embedded", flags.Lookup("validate-embedded"))
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := "."
	if len(args) == 1 {
		input = args[0]
	}

	workers := cfg.Convert.Workers
	batchCfg := batch.Config{
		Input:            input,
		OutputDir:        cfg.Convert.Output,
		Extensions:       cfg.Convert.Extensions,
		SkipEmbedded:     cfg.Convert.NoEmbedded,
		ValidateEmbedded: cfg.Convert.ValidateEmbedded,
		Workers:          workers,
	}
	if err := batchCfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printVerbose("Converting %s with %d worker(s)\n", input, workers)

	runner := batch.NewRunner(batchCfg, batch.WithLogger(log))
	report, err := runner.Run(ctx)
	if report != nil {
		printReport(report)
	}
	if err != nil {
		return err
	}
	if report.HasFailures() {
		return errConversionFailed
	}
	return nil
}

func printReport(report *batch.Report) {
	for _, o := range report.Outcomes {
		switch o.Status {
		case batch.StatusOK:
			fmt.Printf("OK    %s\n", o.Path)
		case batch.StatusPartial:
			fmt.Printf("WARN  %s\n", o.Path)
		case batch.StatusFailed:
			fmt.Printf("ERROR %s: %v\n", o.Path, o.Error)
		}
		for _, f := range o.Files {
			fmt.Printf("      -> %s\n", f)
		}
		for _, w := range o.Warnings {
			fmt.Printf("      ! %s\n", w)
		}
	}
	fmt.Println(report.Summary())
}
