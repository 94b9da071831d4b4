package xml

import (
	"strings"

	"github.com/beevik/etree"
)

// Element lookups below match on local names only. etree keeps the
// namespace prefix in Space and the local part in Tag, so prefixes and
// namespace URIs never influence a match.

// LocalName returns the tag name of e without its namespace prefix
func LocalName(e *etree.Element) string {
	if e == nil {
		return ""
	}
	// etree splits "prefix:tag"; guard against a stray colon in Tag anyway
	if i := strings.LastIndexByte(e.Tag, ':'); i >= 0 {
		return e.Tag[i+1:]
	}
	return e.Tag
}

func matches(e *etree.Element, names []string) bool {
	local := LocalName(e)
	for _, n := range names {
		if local == n {
			return true
		}
	}
	return false
}

// FindChild returns the first direct child of e with one of the given local names
func FindChild(e *etree.Element, names ...string) *etree.Element {
	if e == nil {
		return nil
	}
	for _, c := range e.ChildElements() {
		if matches(c, names) {
			return c
		}
	}
	return nil
}

// FindChildren returns all direct children of e with one of the given local names
func FindChildren(e *etree.Element, names ...string) []*etree.Element {
	if e == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if matches(c, names) {
			out = append(out, c)
		}
	}
	return out
}

// FindDescendant returns the first descendant of e, in document order,
// with one of the given local names. e itself is not considered.
func FindDescendant(e *etree.Element, names ...string) *etree.Element {
	var found *etree.Element
	walk(e, func(d *etree.Element) bool {
		if matches(d, names) {
			found = d
			return false
		}
		return true
	})
	return found
}

// FindDescendants returns every descendant of e with one of the given local
// names, in document order
func FindDescendants(e *etree.Element, names ...string) []*etree.Element {
	var out []*etree.Element
	walk(e, func(d *etree.Element) bool {
		if matches(d, names) {
			out = append(out, d)
		}
		return true
	})
	return out
}

// FindFirst returns the first descendant in document order that satisfies fn
func FindFirst(e *etree.Element, fn func(*etree.Element) bool) *etree.Element {
	var found *etree.Element
	walk(e, func(d *etree.Element) bool {
		if fn(d) {
			found = d
			return false
		}
		return true
	})
	return found
}

// walk visits descendants of e depth-first in document order until visit returns false
func walk(e *etree.Element, visit func(*etree.Element) bool) bool {
	if e == nil {
		return true
	}
	for _, c := range e.ChildElements() {
		if !visit(c) {
			return false
		}
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

// Text returns the concatenated character data directly inside e, trimmed
func Text(e *etree.Element) string {
	return strings.TrimSpace(RawText(e))
}

// RawText returns the character data directly inside e exactly as found
func RawText(e *etree.Element) string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	for _, tok := range e.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
		}
	}
	return sb.String()
}

// ChildText returns the trimmed text of the first direct child with the given local name
func ChildText(e *etree.Element, name string) string {
	return Text(FindChild(e, name))
}

// Attr returns the value of the attribute with the given local name, or ""
func Attr(e *etree.Element, name string) string {
	if e == nil {
		return ""
	}
	for _, a := range e.Attr {
		if a.Key == name {
			return a.Value
		}
	}
	return ""
}
