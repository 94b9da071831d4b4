package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	money "github.com/rezonia/ubl-pdf/internal/decimal"
	"github.com/rezonia/ubl-pdf/internal/model"
	pdfparser "github.com/rezonia/ubl-pdf/internal/parser/pdf"
	"github.com/rezonia/ubl-pdf/internal/processor"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect [files...]",
	Short: "Show the parsed content of UBL documents",
	Long: `Parse UBL documents without writing any output and print the extracted
invoice record, the embedded attachment (if any) and parse warnings.

Examples:
  ublpdf inspect invoice.xml
  ublpdf inspect invoices/*.xml -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "json", "Output format (json, table)")
}

// InspectResult is the inspection outcome for one file
type InspectResult struct {
	File       string          `json:"file"`
	Invoice    *model.Invoice  `json:"invoice,omitempty"`
	Attachment *AttachmentInfo `json:"attachment,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// AttachmentInfo describes the embedded attachment of a document
type AttachmentInfo struct {
	MimeCode string          `json:"mime_code"`
	Filename string          `json:"filename,omitempty"`
	Decoded  bool            `json:"decoded"`
	PDF      *pdfparser.Info `json:"pdf,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	switch inspectFormat {
	case "json", "table":
	default:
		return fmt.Errorf("unsupported format %q", inspectFormat)
	}

	pipeline := processor.NewPipeline(processor.WithLogger(log))

	results := make([]*InspectResult, 0, len(args))
	failed := false
	for _, file := range args {
		printVerbose("Inspecting: %s\n", file)
		result := inspectFile(cmd.Context(), pipeline, file)
		if result.Error != "" {
			failed = true
		}
		results = append(results, result)
	}

	if inspectFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		printInspectTable(results)
	}

	if failed {
		return fmt.Errorf("inspection failed for some files")
	}
	return nil
}

func inspectFile(ctx context.Context, pipeline *processor.Pipeline, file string) *InspectResult {
	result := &InspectResult{File: file}

	data, err := os.ReadFile(file)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read file: %v", err)
		return result
	}

	processed := pipeline.Process(ctx, data)
	result.Invoice = processed.Invoice
	result.Warnings = processed.Warnings
	if processed.Error != nil {
		result.Error = processed.Error.Error()
		return result
	}

	if processed.Attachment != nil {
		info := &AttachmentInfo{
			MimeCode: processed.Attachment.MimeCode,
			Filename: processed.Attachment.Filename,
		}
		if out := processed.Output(processor.SuffixEmbedded); out != nil {
			info.Decoded = true
			if pdfInfo, err := pdfparser.Inspect(out.Data); err == nil {
				info.PDF = pdfInfo
			} else {
				info.PDF = &pdfparser.Info{Size: len(out.Data)}
			}
		}
		result.Attachment = info
	}

	return result
}

func printInspectTable(results []*InspectResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	for _, r := range results {
		fmt.Fprintf(w, "File:\t%s\n", r.File)
		if r.Error != "" {
			fmt.Fprintf(w, "Error:\t%s\n", r.Error)
			fmt.Fprintln(w)
			continue
		}

		inv := r.Invoice
		fmt.Fprintf(w, "Document:\t%s\n", inv.DocumentType)
		fmt.Fprintf(w, "Invoice ID:\t%s\n", orNA(inv.ID))
		fmt.Fprintf(w, "Issue date:\t%s\n", orNA(inv.IssueDate))
		fmt.Fprintf(w, "Due date:\t%s\n", orNA(inv.DueDate))
		fmt.Fprintf(w, "Supplier:\t%s\n", orNA(inv.Supplier.Name))
		fmt.Fprintf(w, "Customer:\t%s\n", orNA(inv.Customer.Name))
		fmt.Fprintf(w, "Total:\t%s\n", money.FormatAmount(inv.TotalAmount, inv.Currency))
		fmt.Fprintf(w, "Line items:\t%d\n", len(inv.Items))

		if a := r.Attachment; a != nil {
			status := "not decodable"
			if a.Decoded && a.PDF != nil {
				status = fmt.Sprintf("%d bytes, %d page(s)", a.PDF.Size, a.PDF.PageCount)
			}
			fmt.Fprintf(w, "Attachment:\t%s (%s)\n", a.MimeCode, status)
		} else {
			fmt.Fprintf(w, "Attachment:\tnone\n")
		}

		if len(r.Warnings) > 0 {
			fmt.Fprintf(w, "Warnings:\t%s\n", strings.Join(r.Warnings, "; "))
		}
		fmt.Fprintln(w)
	}
}

func orNA(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
