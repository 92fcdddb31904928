// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package wire contains helpers for encoding elements onto a transport.
package wire // import "github.com/pokebadgerswithspoon/vysper/internal/wire"

import (
	"encoding/xml"

	"mellium.im/xmlstream"

	"github.com/pokebadgerswithspoon/vysper/internal/ns"
)

// StreamPrefix is the prefix bound to the stream namespace on every transport.
const StreamPrefix = "stream"

// Prefix returns a token reader that renames elements in the stream namespace
// so that they are encoded with the stream prefix instead of a default
// namespace declaration.
// The enclosing element must declare the prefix.
func Prefix(r xml.TokenReader) xml.TokenReader {
	return prefixReader{r: r}
}

type prefixReader struct {
	r xml.TokenReader
}

func (p prefixReader) Token() (xml.Token, error) {
	tok, err := p.r.Token()
	switch t := tok.(type) {
	case xml.StartElement:
		if t.Name.Space == ns.Stream {
			t.Name = xml.Name{Local: StreamPrefix + ":" + t.Name.Local}
			tok = t
		}
	case xml.EndElement:
		if t.Name.Space == ns.Stream {
			t.Name = xml.Name{Local: StreamPrefix + ":" + t.Name.Local}
			tok = t
		}
	}
	return tok, err
}

// Encode writes the tokens of w to enc with stream elements prefixed and
// flushes the encoder.
func Encode(enc *xml.Encoder, w xmlstream.Marshaler) error {
	if _, err := xmlstream.Copy(enc, Prefix(w.TokenReader())); err != nil {
		return err
	}
	return enc.Flush()
}
