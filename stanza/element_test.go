// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza_test

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"

	"mellium.im/xmlstream"

	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

var (
	_ xmlstream.WriterTo  = (*stanza.Element)(nil)
	_ xmlstream.Marshaler = (*stanza.Element)(nil)
	_ xml.Marshaler       = (*stanza.Element)(nil)
)

func TestParse(t *testing.T) {
	e, err := stanza.Parse(`<?xml version="1.0"?>
<iq xmlns="jabber:client" xmlns:foo="urn:foo" id="123" type="get" to="example.net" from="juliet@example.com/balcony" xml:lang="en">
	<ping xmlns="urn:xmpp:ping"/>
	<foo:bar>text</foo:bar>
</iq>`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n := e.Name(); n != (xml.Name{Space: ns.Client, Local: "iq"}) {
		t.Errorf("Wrong name: %+v", n)
	}
	if id := e.ID(); id != "123" {
		t.Errorf("Wrong id: %q", id)
	}
	if typ := e.Type(); typ != stanza.GetIQ {
		t.Errorf("Wrong type: %q", typ)
	}
	if lang := e.Lang(); lang != "en" {
		t.Errorf("Wrong lang: %q", lang)
	}
	if to := e.To().String(); to != "example.net" {
		t.Errorf("Wrong to: %q", to)
	}
	if from := e.From().String(); from != "juliet@example.com/balcony" {
		t.Errorf("Wrong from: %q", from)
	}
	for _, a := range e.Attrs() {
		if a.Name.Local == "xmlns" || a.Name.Space == "xmlns" {
			t.Errorf("Namespace declaration was not dropped: %+v", a)
		}
	}
	if text := e.Text(); text != "" {
		t.Errorf("Expected whitespace between children to be dropped, got %q", text)
	}
	children := e.Children()
	if len(children) != 2 {
		t.Fatalf("Wrong number of children: want=2, got=%d", len(children))
	}
	if n := e.FirstChild().Name(); n != (xml.Name{Space: ns.Ping, Local: "ping"}) {
		t.Errorf("Wrong first child: %+v", n)
	}
	bar := e.Child(xml.Name{Local: "bar"})
	if bar == nil {
		t.Fatal("Expected to find bar child")
	}
	if bar.Name().Space != "urn:foo" {
		t.Errorf("Prefix was not resolved: %+v", bar.Name())
	}
	if bar.Text() != "text" {
		t.Errorf("Wrong text: %q", bar.Text())
	}
	if e.Child(xml.Name{Space: "urn:other", Local: "bar"}) != nil {
		t.Error("Child should respect the namespace when given")
	}
}

func TestParseErrors(t *testing.T) {
	for i, tc := range [...]struct {
		in  string
		err error
	}{
		0: {in: "", err: stanza.ErrNoElement},
		1: {in: "   ", err: stanza.ErrNoElement},
		2: {in: "<a><b>", err: io.ErrUnexpectedEOF},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			_, err := stanza.Parse(tc.in)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				var syntax *xml.SyntaxError
				if !errors.As(err, &syntax) {
					t.Errorf("Unexpected error: want=%v, got=%v", tc.err, err)
				}
			}
		})
	}
}

func TestDecodeFromTokenReader(t *testing.T) {
	start := xml.StartElement{Name: xml.Name{Space: ns.Client, Local: "message"}}
	r := xmlstream.Wrap(
		xmlstream.Wrap(xmlstream.Token(xml.CharData("hi")), xml.StartElement{Name: xml.Name{Space: ns.Client, Local: "body"}}),
		start,
	)
	e, err := stanza.Decode(r, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !e.IsStanza() {
		t.Error("Expected message to be a stanza")
	}
	if body := e.Child(xml.Name{Local: "body"}); body == nil || body.Text() != "hi" {
		t.Errorf("Wrong body: %v", body)
	}
}

func TestBuilder(t *testing.T) {
	b := stanza.NewBuilder("message", ns.Client).
		Attr("to", "romeo@example.net").
		Attr("type", "chat").
		Child(stanza.NewBuilder("body", ns.Client).Text("Hi").Build(), nil)
	first := b.Build()
	second := b.Attr("type", "").Attr("id", "1").Build()

	if typ := first.Type(); typ != "chat" {
		t.Errorf("Built element changed after builder was reused: type=%q", typ)
	}
	if typ := second.Type(); typ != "" {
		t.Errorf("Expected type to be removed, got %q", typ)
	}
	if len(first.Children()) != 1 {
		t.Errorf("Nil children should be skipped, got %d children", len(first.Children()))
	}

	const expected = `<message xmlns="jabber:client" to="romeo@example.net" type="chat"><body xmlns="jabber:client">Hi</body></message>`
	if s := first.String(); s != expected {
		t.Errorf("Wrong encoding:\nwant=%s\n got=%s", expected, s)
	}
}

func TestBuilderFromElement(t *testing.T) {
	orig := stanza.MustParse(`<presence xmlns="jabber:client" id="a"><show>away</show></presence>`)
	cp := orig.Builder().Attr("id", "b").ClearChildren().Build()
	if orig.ID() != "a" || len(orig.Children()) != 1 {
		t.Errorf("Original element was modified: %s", orig)
	}
	if cp.ID() != "b" || len(cp.Children()) != 0 {
		t.Errorf("Copy was not modified: %s", cp)
	}
}

func TestRoundTrip(t *testing.T) {
	const in = `<iq xmlns="jabber:client" id="1" type="get"><query xmlns="jabber:iq:roster"></query></iq>`
	e := stanza.MustParse(in)
	if s := e.String(); s != in {
		t.Errorf("Wrong encoding:\nwant=%s\n got=%s", in, s)
	}
	var buf strings.Builder
	enc := xml.NewEncoder(&buf)
	if _, err := e.WriteXML(enc); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if buf.String() != in {
		t.Errorf("WriteXML wrote wrong output: %s", buf.String())
	}
}

func TestIsStanza(t *testing.T) {
	for i, tc := range [...]struct {
		name xml.Name
		ok   bool
	}{
		0: {name: xml.Name{Space: ns.Client, Local: "iq"}, ok: true},
		1: {name: xml.Name{Space: ns.Server, Local: "message"}, ok: true},
		2: {name: xml.Name{Local: "presence"}, ok: true},
		3: {name: xml.Name{Space: ns.SASL, Local: "auth"}},
		4: {name: xml.Name{Space: ns.StartTLS, Local: "iq"}},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if got := stanza.IsStanza(tc.name); got != tc.ok {
				t.Errorf("want=%t, got=%t", tc.ok, got)
			}
		})
	}
}
