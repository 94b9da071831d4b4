package xml

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/ubl-pdf/internal/model"
)

// IsEmbeddedBinaryObject reports whether e is an embedded binary object
// element, e.g. cbc:EmbeddedDocumentBinaryObject
func IsEmbeddedBinaryObject(e *etree.Element) bool {
	local := LocalName(e)
	return strings.HasPrefix(local, "Embedded") && strings.HasSuffix(local, "BinaryObject")
}

// Locate returns the first embedded binary object in document order whose
// mimeCode is application/pdf. Objects with another or no MIME code are
// skipped. A nil result is the common case and not an error.
func Locate(t *Tree) *model.EmbeddedAttachment {
	e := FindFirst(t.DocumentElement(), func(e *etree.Element) bool {
		return IsEmbeddedBinaryObject(e) && isPDFMime(Attr(e, "mimeCode"))
	})
	if e == nil {
		return nil
	}
	return &model.EmbeddedAttachment{
		MimeCode: Attr(e, "mimeCode"),
		Filename: Attr(e, "filename"),
		RawText:  RawText(e),
	}
}

// LocateAll returns every embedded binary object regardless of MIME code,
// for inspection
func LocateAll(t *Tree) []*model.EmbeddedAttachment {
	var out []*model.EmbeddedAttachment
	walk(t.DocumentElement(), func(e *etree.Element) bool {
		if IsEmbeddedBinaryObject(e) {
			out = append(out, &model.EmbeddedAttachment{
				MimeCode: Attr(e, "mimeCode"),
				Filename: Attr(e, "filename"),
				RawText:  RawText(e),
			})
		}
		return true
	})
	return out
}

func isPDFMime(mime string) bool {
	a := model.EmbeddedAttachment{MimeCode: mime}
	return a.IsPDF()
}
