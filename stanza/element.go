// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"mellium.im/xmlstream"

	"github.com/pokebadgerswithspoon/vysper/internal/attr"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/jid"
)

// ErrNoElement is returned by Decode if the token stream ends before a start
// element is found.
var ErrNoElement = errors.New("stanza: no element found in token stream")

// Element is an immutable XML element with attributes, ordered child elements,
// and character data.
type Element struct {
	name     xml.Name
	attr     []xml.Attr
	children []*Element
	text     string
}

// Name returns the qualified name of the element.
func (e *Element) Name() xml.Name {
	return e.name
}

// Attr returns the value of the first attribute with the given local name and
// no namespace, or the empty string.
func (e *Element) Attr(local string) string {
	_, v := attr.Get(e.attr, local)
	return v
}

// AttrNS returns the value of the attribute with the given qualified name.
func (e *Element) AttrNS(name xml.Name) string {
	for _, a := range e.attr {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// Attrs returns a copy of the element's attributes.
func (e *Element) Attrs() []xml.Attr {
	return append([]xml.Attr(nil), e.attr...)
}

// ID returns the id attribute.
func (e *Element) ID() string { return e.Attr("id") }

// Type returns the type attribute.
func (e *Element) Type() string { return e.Attr("type") }

// Lang returns the xml:lang attribute.
func (e *Element) Lang() string {
	return e.AttrNS(xml.Name{Space: ns.XML, Local: "lang"})
}

// To parses the to attribute.
// It returns nil if the attribute is missing or is not a valid address.
func (e *Element) To() *jid.JID {
	return parseAddr(e.Attr("to"))
}

// From parses the from attribute.
// It returns nil if the attribute is missing or is not a valid address.
func (e *Element) From() *jid.JID {
	return parseAddr(e.Attr("from"))
}

func parseAddr(s string) *jid.JID {
	if s == "" {
		return nil
	}
	j, err := jid.Parse(s)
	if err != nil {
		return nil
	}
	return j
}

// Text returns the character data directly contained in the element.
func (e *Element) Text() string {
	return e.text
}

// Children returns a copy of the list of child elements.
func (e *Element) Children() []*Element {
	return append([]*Element(nil), e.children...)
}

// FirstChild returns the first child element or nil.
func (e *Element) FirstChild() *Element {
	if len(e.children) == 0 {
		return nil
	}
	return e.children[0]
}

// Child returns the first child with a matching name.
// An empty namespace in name matches any namespace.
func (e *Element) Child(name xml.Name) *Element {
	for _, c := range e.children {
		if c.name.Local == name.Local && (name.Space == "" || c.name.Space == name.Space) {
			return c
		}
	}
	return nil
}

// IsStanza reports whether the element is a message, presence, or iq in one
// of the content namespaces.
func (e *Element) IsStanza() bool {
	return IsStanza(e.name)
}

// IsStanza reports whether name is the name of a message, presence, or iq in
// one of the content namespaces (or with no namespace at all).
func IsStanza(name xml.Name) bool {
	switch name.Space {
	case "", ns.Client, ns.Server:
	default:
		return false
	}
	switch name.Local {
	case "iq", "message", "presence":
		return true
	}
	return false
}

// Builder returns a new builder initialized with a deep copy of e.
func (e *Element) Builder() *Builder {
	b := NewBuilder(e.name.Local, e.name.Space)
	b.e.attr = e.Attrs()
	b.e.children = e.Children()
	b.e.text = e.text
	return b
}

// TokenReader returns a stream of XML tokens that encode the element.
func (e *Element) TokenReader() xml.TokenReader {
	start := xml.StartElement{Name: e.name, Attr: e.Attrs()}
	inner := make([]xml.TokenReader, 0, len(e.children)+1)
	if e.text != "" {
		inner = append(inner, xmlstream.Token(xml.CharData(e.text)))
	}
	for _, c := range e.children {
		inner = append(inner, c.TokenReader())
	}
	return xmlstream.Wrap(xmlstream.MultiReader(inner...), start)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (e *Element) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, e.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (e *Element) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	_, err := e.WriteXML(enc)
	if err != nil {
		return err
	}
	return enc.Flush()
}

// String returns the XML encoding of the element.
// It is meant for logging and debugging.
func (e *Element) String() string {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := e.MarshalXML(enc, xml.StartElement{}); err != nil {
		return "<!-- " + err.Error() + " -->"
	}
	return buf.String()
}

// Parse decodes the first element found in s.
func Parse(s string) (*Element, error) {
	return Decode(xml.NewDecoder(strings.NewReader(s)), nil)
}

// MustParse is like Parse but panics on error.
// It simplifies safe initialization of elements from known-good constants.
func MustParse(s string) *Element {
	e, err := Parse(s)
	if err != nil {
		panic("stanza: MustParse(" + s + "): " + err.Error())
	}
	return e
}

// Decode reads a single element from r.
// If start is nil, tokens are skipped until the first start element;
// otherwise start is the already consumed start token of the element.
// Namespace declarations are dropped from the attribute list since names in the
// resulting tree are fully qualified.
func Decode(r xml.TokenReader, start *xml.StartElement) (*Element, error) {
	tr := &tokenReader{r: r}
	if start == nil {
		for {
			tok, err := tr.Token()
			if err != nil {
				if err == io.EOF {
					return nil, ErrNoElement
				}
				return nil, err
			}
			if se, ok := tok.(xml.StartElement); ok {
				start = &se
				break
			}
		}
	}
	return decodeElement(tr, *start)
}

func decodeElement(tr *tokenReader, start xml.StartElement) (*Element, error) {
	e := &Element{name: start.Name}
	for _, a := range start.Attr {
		if attr.IsNamespaceDecl(a) {
			continue
		}
		e.attr = append(e.attr, a)
	}
	var text strings.Builder
	for {
		tok, err := tr.Token()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(tr, t)
			if err != nil {
				return nil, err
			}
			e.children = append(e.children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			e.text = text.String()
			if len(e.children) > 0 && strings.TrimSpace(e.text) == "" {
				e.text = ""
			}
			return e, nil
		}
	}
}

// tokenReader defers an io.EOF that arrives together with a token until the
// token has been consumed.
type tokenReader struct {
	r   xml.TokenReader
	err error
}

func (tr *tokenReader) Token() (xml.Token, error) {
	if tr.err != nil {
		return nil, tr.err
	}
	for {
		tok, err := tr.r.Token()
		if err != nil {
			tr.err = err
		}
		if tok != nil {
			return xml.CopyToken(tok), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Builder constructs immutable elements.
// The zero value is not usable; create builders with NewBuilder.
type Builder struct {
	e Element
}

// NewBuilder returns a builder for an element with the given local name and
// namespace.
func NewBuilder(local, space string) *Builder {
	return &Builder{e: Element{name: xml.Name{Space: space, Local: local}}}
}

// Namespace changes the namespace of the element being built.
func (b *Builder) Namespace(space string) *Builder {
	b.e.name.Space = space
	return b
}

// Attr sets an attribute with no namespace.
// Setting an empty value removes the attribute.
func (b *Builder) Attr(local, value string) *Builder {
	return b.AttrNS(xml.Name{Local: local}, value)
}

// AttrNS sets a namespaced attribute.
// Setting an empty value removes the attribute.
func (b *Builder) AttrNS(name xml.Name, value string) *Builder {
	b.e.attr = attr.Set(b.e.attr, name, value)
	return b
}

// Addr sets an address attribute such as to or from.
// A nil address removes the attribute.
func (b *Builder) Addr(local string, j *jid.JID) *Builder {
	return b.Attr(local, j.String())
}

// Child appends child elements, skipping nil values.
func (b *Builder) Child(children ...*Element) *Builder {
	for _, c := range children {
		if c != nil {
			b.e.children = append(b.e.children, c)
		}
	}
	return b
}

// ClearChildren removes all child elements added so far.
func (b *Builder) ClearChildren() *Builder {
	b.e.children = nil
	return b
}

// Text sets the character data of the element.
func (b *Builder) Text(s string) *Builder {
	b.e.text = s
	return b
}

// Build returns the element.
// The builder may continue to be used without affecting built elements.
func (b *Builder) Build() *Element {
	e := b.e
	e.attr = append([]xml.Attr(nil), b.e.attr...)
	e.children = append([]*Element(nil), b.e.children...)
	return &e
}
