// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/jid"
)

// Info contains metadata extracted from a stream header.
type Info struct {
	To      *jid.JID
	From    *jid.JID
	ID      string
	Version Version
	Lang    string
	// XMLNS is the content namespace, jabber:client or jabber:server.
	XMLNS string
}

// FromStartElement validates a <stream:stream> start token as produced by a
// namespace aware xml.Decoder and extracts the stream information.
// Errors are stream errors that should be sent to the peer before the stream is
// closed.
func FromStartElement(start xml.StartElement) (Info, error) {
	info := Info{Version: DefaultVersion}
	switch {
	case start.Name.Local != "stream":
		return info, NotWellFormed
	case start.Name.Space != ns.Stream:
		return info, InvalidNamespace
	}

	for _, a := range start.Attr {
		switch {
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			info.XMLNS = a.Value
		case a.Name.Space == ns.XML && a.Name.Local == "lang":
			info.Lang = a.Value
		case a.Name.Space != "":
		case a.Name.Local == "id":
			info.ID = a.Value
		case a.Name.Local == "to":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return info, ImproperAddressing
			}
			info.To = j
		case a.Name.Local == "from":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return info, InvalidFrom
			}
			info.From = j
		case a.Name.Local == "version":
			v, err := ParseVersion(a.Value)
			if err != nil {
				return info, UnsupportedVersion
			}
			info.Version = v
		}
	}

	switch info.XMLNS {
	case ns.Client, ns.Server:
	default:
		return info, InvalidNamespace
	}
	if info.Version.Major != DefaultVersion.Major {
		return info, UnsupportedVersion
	}
	return info, nil
}

// XMLDecl is the XML declaration sent before the first stream header on a
// transport.
const XMLDecl = `<?xml version='1.0'?>`

// WriteHeader writes an XML declaration and an opening stream header to w.
// The header is written as raw text since the stream element is never closed
// until the session ends.
func WriteHeader(w io.Writer, info Info) error {
	if _, err := io.WriteString(w, XMLDecl); err != nil {
		return err
	}
	return Reopen(w, info)
}

// Reopen writes an opening stream header without an XML declaration, as is
// done when a stream is restarted on the same transport.
func Reopen(w io.Writer, info Info) error {
	xmlns := info.XMLNS
	if xmlns == "" {
		xmlns = ns.Client
	}
	_, err := fmt.Fprintf(w, `<stream:stream xmlns='%s' xmlns:stream='%s'`, xmlns, ns.Stream)
	if err != nil {
		return err
	}
	for _, a := range [...]struct{ name, value string }{
		{"id", info.ID},
		{"from", info.From.String()},
		{"to", info.To.String()},
		{"version", info.Version.String()},
		{"xml:lang", info.Lang},
	} {
		if a.value == "" {
			continue
		}
		if _, err = fmt.Fprintf(w, ` %s='`, a.name); err != nil {
			return err
		}
		if err = xml.EscapeText(w, []byte(a.value)); err != nil {
			return err
		}
		if _, err = io.WriteString(w, `'`); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, `>`)
	return err
}

// WriteClose writes the closing stream tag.
func WriteClose(w io.Writer) error {
	_, err := io.WriteString(w, `</stream:stream>`)
	return err
}
