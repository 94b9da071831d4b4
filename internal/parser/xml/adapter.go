package xml

import (
	"github.com/beevik/etree"

	"github.com/rezonia/ubl-pdf/internal/model"
)

// Adapter extracts an invoice record from one kind of UBL document element
type Adapter interface {
	// Extract reads the invoice record. Field-level problems such as an
	// ambiguous amount are returned as warnings, never as errors.
	Extract(root *etree.Element) (*model.Invoice, []string)

	// CanParse returns true if adapter can handle this document element
	CanParse(root *etree.Element) bool

	// DocumentType returns the document kind the adapter produces
	DocumentType() model.DocumentType
}

// Registry holds all registered adapters
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates registry with all adapters
// Order matters: more specific adapters should come before generic ones
func NewRegistry() *Registry {
	return &Registry{
		adapters: []Adapter{
			NewInvoiceAdapter(),    // <Invoice>
			NewCreditNoteAdapter(), // <CreditNote>
			NewGenericAdapter(),    // any root - most generic, last
		},
	}
}

// Detect returns the first adapter that can handle the document element
func (r *Registry) Detect(root *etree.Element) Adapter {
	for _, a := range r.adapters {
		if a.CanParse(root) {
			return a
		}
	}
	return nil
}

// Extract reads the invoice record from a parsed tree using the matching adapter
func (r *Registry) Extract(t *Tree) (*model.Invoice, []string) {
	adapter := r.Detect(t.Root())
	if adapter == nil {
		// unreachable with the default registry; the generic adapter accepts any root
		return &model.Invoice{}, []string{"no adapter accepts root element " + LocalName(t.Root())}
	}
	return adapter.Extract(t.Root())
}

// RegisterAdapter adds a custom adapter to the registry
func (r *Registry) RegisterAdapter(a Adapter) {
	// Add at the beginning so custom adapters take priority
	r.adapters = append([]Adapter{a}, r.adapters...)
}

// GetAdapter returns adapter for a specific document type
func (r *Registry) GetAdapter(docType model.DocumentType) Adapter {
	for _, a := range r.adapters {
		if a.DocumentType() == docType {
			return a
		}
	}
	return nil
}

var defaultRegistry = NewRegistry()

// Parse reads raw XML bytes and extracts the invoice record with the default
// registry. It fails only when the input is not UTF-8 XML.
func Parse(data []byte) (*model.Invoice, []string, error) {
	t, err := Read(data)
	if err != nil {
		return nil, nil, err
	}
	inv, warnings := defaultRegistry.Extract(t)
	return inv, warnings, nil
}
