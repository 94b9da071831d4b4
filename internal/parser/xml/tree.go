package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/beevik/etree"

	"github.com/rezonia/ubl-pdf/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Local names of the UBL document elements the parser understands
const (
	RootInvoice    = "Invoice"
	RootCreditNote = "CreditNote"
)

// Tree is a parsed XML document together with the element holding the UBL document
type Tree struct {
	doc  *etree.Document
	root *etree.Element
}

// Read parses raw XML bytes into a Tree. The input must be UTF-8, optionally
// preceded by a byte order mark; anything else fails with a malformed ParseError.
func Read(data []byte) (*Tree, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		return nil, model.NewMalformedError("encoding", "input is not valid UTF-8", nil)
	}
	if err := checkWellFormed(data); err != nil {
		return nil, model.NewMalformedError("xml", "input is not well-formed XML", err)
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = passthroughCharset
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, model.NewMalformedError("xml", "failed to parse XML", err)
	}

	top := doc.Root()
	if top == nil {
		return nil, model.NewMalformedError("xml", "document has no root element", nil)
	}

	return &Tree{doc: doc, root: locateDocument(top)}, nil
}

// Root returns the UBL document element (Invoice, CreditNote, or the
// outermost element when neither is present)
func (t *Tree) Root() *etree.Element {
	return t.root
}

// DocumentElement returns the outermost element of the XML document
func (t *Tree) DocumentElement() *etree.Element {
	return t.doc.Root()
}

// Enveloped reports whether the UBL document sits inside a wrapper such as
// a Standard Business Document header
func (t *Tree) Enveloped() bool {
	return t.root != t.doc.Root()
}

// locateDocument picks the UBL document element: the root itself when it is
// an Invoice or CreditNote, else the first such descendant, else the root
func locateDocument(top *etree.Element) *etree.Element {
	if matches(top, []string{RootInvoice, RootCreditNote}) {
		return top
	}
	if e := FindDescendant(top, RootInvoice, RootCreditNote); e != nil {
		return e
	}
	return top
}

var (
	errNoRoot        = errors.New("no root element")
	errMultipleRoots = errors.New("more than one root element")
	errStrayText     = errors.New("text outside the root element")
)

// checkWellFormed runs the input through a strict token decoder so that
// truncated documents, mismatched tags and content outside a single root
// element are rejected before tree building
func checkWellFormed(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.CharsetReader = passthroughCharset

	depth := 0
	sawElement := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && sawElement {
				return errMultipleRoots
			}
			sawElement = true
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return errStrayText
			}
		}
	}
	if !sawElement {
		return errNoRoot
	}
	return nil
}

// passthroughCharset accepts any declared encoding label; the bytes were
// already verified as UTF-8
func passthroughCharset(label string, input io.Reader) (io.Reader, error) {
	return input, nil
}
