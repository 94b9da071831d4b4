package processor

import (
	"strings"
)

// FileName builds the output file name invoice_<id>_<suffix>.pdf. Characters
// outside [A-Za-z0-9._-] in id are replaced with '_' so that an identifier can
// never name a path outside the output directory.
func FileName(id string, s Suffix) string {
	return "invoice_" + SanitizeID(id) + "_" + string(s) + ".pdf"
}

// SanitizeID makes an invoice identifier safe for use in a file name
func SanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, id)
}

// FileNames returns the output file names of a result in output order
func (r *Result) FileNames(fallbackID string) []string {
	id := r.InvoiceID(fallbackID)
	names := make([]string, 0, len(r.Outputs))
	for _, out := range r.Outputs {
		names = append(names, FileName(id, out.Suffix))
	}
	return names
}
