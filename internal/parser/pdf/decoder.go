package pdf

import (
	"bytes"
	"encoding/base64"
	"strings"
	"sync"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/rezonia/ubl-pdf/internal/model"
)

// Signature is the header every PDF file starts with
var Signature = []byte("%PDF-")

var disableConfigDir sync.Once

// Decoder turns base64 attachment text into PDF bytes
type Decoder struct {
	validate bool
}

// Option configures a Decoder
type Option func(*Decoder)

// WithValidation makes Decode also run a structural check over the decoded
// bytes, failing with a CORRUPT_PDF error when the file cannot be read
func WithValidation() Option {
	return func(d *Decoder) {
		d.validate = true
	}
}

// NewDecoder creates a new decoder
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode strips all whitespace from raw, decodes it as standard base64 with
// or without padding, and checks the PDF signature. The returned bytes are
// the decoded payload, unmodified.
func (d *Decoder) Decode(raw string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if compact == "" {
		return nil, model.NewDecodeError(model.DecodeInvalidBase64, "attachment is empty", nil)
	}

	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(compact, "="))
	if err != nil {
		return nil, model.NewDecodeError(model.DecodeInvalidBase64, "attachment is not valid base64", err)
	}

	if !bytes.HasPrefix(data, Signature) {
		return nil, model.NewDecodeError(model.DecodeNotAPdf, "decoded attachment does not start with %PDF-", nil)
	}

	if d.validate {
		if err := Validate(data); err != nil {
			return nil, model.NewDecodeError(model.DecodeCorruptPDF, "decoded attachment is not a readable PDF", err)
		}
	}

	return data, nil
}

// Info describes a PDF file
type Info struct {
	Size      int    `json:"size"`
	Version   string `json:"version,omitempty"`
	PageCount int    `json:"page_count"`
}

// Inspect reads the header version and page count of a PDF file
func Inspect(data []byte) (*Info, error) {
	if !bytes.HasPrefix(data, Signature) {
		return nil, model.NewDecodeError(model.DecodeNotAPdf, "data does not start with %PDF-", nil)
	}

	info := &Info{
		Size:    len(data),
		Version: headerVersion(data),
	}

	pages, err := api.PageCount(bytes.NewReader(data), configuration())
	if err != nil {
		return nil, model.NewDecodeError(model.DecodeCorruptPDF, "failed to count pages", err)
	}
	info.PageCount = pages

	return info, nil
}

// Validate runs pdfcpu's relaxed validation over data
func Validate(data []byte) error {
	return api.Validate(bytes.NewReader(data), configuration())
}

func configuration() *pdfmodel.Configuration {
	// pdfcpu would otherwise create a config directory under the user's home
	disableConfigDir.Do(api.DisableConfigDir)

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return conf
}

func headerVersion(data []byte) string {
	line := data[len(Signature):]
	if i := bytes.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(string(line))
}
