package processor

import (
	"bytes"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format identifies the kind of an input file
type Format int

const (
	FormatUnknown Format = iota
	FormatXML
	FormatPDF
	FormatImage
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatPDF:
		return "pdf"
	case FormatImage:
		return "image"
	default:
		return "unknown"
	}
}

// DetectFormat identifies the input format from its content. XML without a
// declaration is recognized by its leading '<'.
func DetectFormat(data []byte) Format {
	if len(data) == 0 {
		return FormatUnknown
	}

	m := mimetype.Detect(data)
	for p := m; p != nil; p = p.Parent() {
		if p.Is("text/xml") {
			return FormatXML
		}
	}
	if m.Is("application/pdf") {
		return FormatPDF
	}
	if strings.HasPrefix(m.String(), "image/") {
		return FormatImage
	}

	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}), " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("<")) {
		return FormatXML
	}
	return FormatUnknown
}

// MimeType returns the detected MIME type of data
func MimeType(data []byte) string {
	return mimetype.Detect(data).String()
}
