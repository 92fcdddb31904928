// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wire_test

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"testing"

	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/internal/wire"
	"github.com/pokebadgerswithspoon/vysper/internal/xmpptest"
	"github.com/pokebadgerswithspoon/vysper/stanza"
	"github.com/pokebadgerswithspoon/vysper/stream"
)

func TestEncode(t *testing.T) {
	for i, tc := range [...]struct {
		in   interface{ TokenReader() xml.TokenReader }
		want string
	}{
		0: {
			in:   stream.Conflict,
			want: `<stream:error><conflict xmlns="urn:ietf:params:xml:ns:xmpp-streams"></conflict></stream:error>`,
		},
		1: {
			in:   stanza.MustParse(`<iq xmlns="jabber:client" id="1" type="result"/>`),
			want: `<iq xmlns="jabber:client" id="1" type="result"></iq>`,
		},
		2: {
			in:   stanza.NewBuilder("features", "http://etherx.jabber.org/streams").Build(),
			want: `<stream:features></stream:features>`,
		},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			var buf bytes.Buffer
			if err := wire.Encode(xml.NewEncoder(&buf), tc.in); err != nil {
				t.Fatal(err)
			}
			if out := buf.String(); out != tc.want {
				t.Errorf("Wrong output:\nwant=%s,\n got=%s", tc.want, out)
			}
		})
	}
}

func TestPrefix(t *testing.T) {
	features := xml.StartElement{Name: xml.Name{Space: ns.Stream, Local: "features"}}
	bind := xml.StartElement{Name: xml.Name{Space: ns.Bind, Local: "bind"}}
	r := wire.Prefix(&xmpptest.Tokens{
		features,
		bind,
		bind.End(),
		features.End(),
	})
	var names []xml.Name
	for {
		tok, err := r.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		switch tt := tok.(type) {
		case xml.StartElement:
			names = append(names, tt.Name)
		case xml.EndElement:
			names = append(names, tt.Name)
		}
	}
	want := []xml.Name{
		{Local: "stream:features"},
		{Space: ns.Bind, Local: "bind"},
		{Space: ns.Bind, Local: "bind"},
		{Local: "stream:features"},
	}
	if len(names) != len(want) {
		t.Fatalf("Wrong number of tokens: want=%d, got=%d", len(want), len(names))
	}
	for i, n := range names {
		if n != want[i] {
			t.Errorf("Wrong name at %d: want=%v, got=%v", i, want[i], n)
		}
	}
}
