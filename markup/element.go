// Package markup writes and inspects HTML fragments produced and consumed by
// block renderers.
package markup

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type attribute struct {
	name, value string
}

// Element is a builder for a single HTML element. Class attribute always
// goes first, other attributes keep insertion order.
type Element struct {
	tag     string
	classes []string
	attrs   []attribute
	styles  []attribute
	content strings.Builder
}

// New starts element with tag.
func New(tag string) *Element {
	return &Element{tag: strings.ToLower(tag)}
}

// Class adds class names, empty and duplicate names are ignored.
func (e *Element) Class(names ...string) *Element {
	for _, name := range names {
		for n := range strings.FieldsSeq(name) {
			if !slices.Contains(e.classes, n) {
				e.classes = append(e.classes, n)
			}
		}
	}
	return e
}

// Attr sets attribute, empty values are skipped. Setting the same attribute
// again replaces its value.
func (e *Element) Attr(name, value string) *Element {
	if value == "" {
		return e
	}
	return e.set(name, value)
}

// BoolAttr sets attribute to "true" when on is set (aria-hidden).
func (e *Element) BoolAttr(name string, on bool) *Element {
	if !on {
		return e
	}
	return e.set(name, "true")
}

func (e *Element) set(name, value string) *Element {
	name = strings.ToLower(name)
	if name == "class" {
		return e.Class(value)
	}
	for i := range e.attrs {
		if e.attrs[i].name == name {
			e.attrs[i].value = value
			return e
		}
	}
	e.attrs = append(e.attrs, attribute{name: name, value: value})
	return e
}

// Style adds declaration to style attribute, empty values are skipped.
func (e *Element) Style(property, value string) *Element {
	if value == "" {
		return e
	}
	e.styles = append(e.styles, attribute{name: property, value: value})
	return e
}

// Text appends escaped text.
func (e *Element) Text(s string) *Element {
	e.content.WriteString(html.EscapeString(s))
	return e
}

// Raw appends markup as is.
func (e *Element) Raw(s string) *Element {
	e.content.WriteString(s)
	return e
}

// Child appends rendered child element.
func (e *Element) Child(c *Element) *Element {
	if c != nil {
		e.content.WriteString(c.String())
	}
	return e
}

// IsVoid reports whether element can not have content.
func (e *Element) IsVoid() bool {
	return isVoid(e.tag)
}

func (e *Element) String() string {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(e.tag)
	if len(e.classes) > 0 {
		writeAttr(&sb, "class", strings.Join(e.classes, " "))
	}
	for _, a := range e.attrs {
		writeAttr(&sb, a.name, a.value)
	}
	if len(e.styles) > 0 {
		decls := make([]string, 0, len(e.styles))
		for _, s := range e.styles {
			decls = append(decls, s.name+":"+s.value)
		}
		writeAttr(&sb, "style", strings.Join(decls, ";"))
	}
	if e.IsVoid() {
		sb.WriteString("/>")
		return sb.String()
	}
	sb.WriteByte('>')
	sb.WriteString(e.content.String())
	sb.WriteString("</")
	sb.WriteString(e.tag)
	sb.WriteByte('>')
	return sb.String()
}

func writeAttr(sb *strings.Builder, name, value string) {
	sb.WriteByte(' ')
	sb.WriteString(name)
	sb.WriteString(`="`)
	sb.WriteString(html.EscapeString(value))
	sb.WriteByte('"')
}

func isVoid(tag string) bool {
	switch atom.Lookup([]byte(tag)) {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}
