package batch

import (
	"fmt"
	"sort"
)

// Status classifies the outcome of one document
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Outcome is the diagnostic result of converting one input file
type Outcome struct {
	Path      string
	InvoiceID string
	Status    Status
	Files     []string
	Warnings  []string
	Error     error
}

// Report summarizes a batch run
type Report struct {
	RunID     string
	Outcomes  []Outcome
	Processed int
	Partial   int
	Failed    int
}

func newReport(runID string, outcomes []*Outcome) *Report {
	report := &Report{RunID: runID}
	for _, o := range outcomes {
		// nil when the run was cancelled before the file was picked up
		if o == nil {
			continue
		}
		report.Outcomes = append(report.Outcomes, *o)
		report.Processed++
		switch o.Status {
		case StatusPartial:
			report.Partial++
		case StatusFailed:
			report.Failed++
		}
	}
	sort.Slice(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].Path < report.Outcomes[j].Path
	})
	return report
}

// HasFailures reports whether any document failed
func (r *Report) HasFailures() bool {
	return r.Failed > 0
}

// Summary returns the one-line run summary
func (r *Report) Summary() string {
	return fmt.Sprintf("Processed %d file(s) with %d failure(s).", r.Processed, r.Failed)
}
