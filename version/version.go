// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package version answers software version queries (XEP-0092) addressed to
// the server.
package version // import "github.com/pokebadgerswithspoon/vysper/version"

import (
	"context"
	"encoding/xml"
	"runtime"

	"mellium.im/xmlstream"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

const (
	// NS is the XML namespace used by software version queries.
	// It is provided as a convenience.
	NS = "jabber:iq:version"
)

// Query is the payload of a software version query or response.
type Query struct {
	Name    string
	Version string
	OS      string
}

// TokenReader implements xmlstream.Marshaler.
func (q Query) TokenReader() xml.TokenReader {
	var payloads []xml.TokenReader
	for _, f := range [...]struct{ local, value string }{
		{"name", q.Name},
		{"version", q.Version},
		{"os", q.OS},
	} {
		if f.value == "" {
			continue
		}
		payloads = append(payloads, xmlstream.Wrap(
			xmlstream.Token(xml.CharData(f.value)),
			xml.StartElement{Name: xml.Name{Local: f.local}},
		))
	}
	return xmlstream.Wrap(
		xmlstream.MultiReader(payloads...),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "query"}},
	)
}

// WriteXML implements xmlstream.WriterTo.
func (q Query) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, q.TokenReader())
}

// Module reports the software version of the server.
// If OS is empty the operating system of the host is reported.
type Module struct {
	Software string
	Release  string
	OS       string
}

// Name satisfies xmpp.Module.
func (Module) Name() string { return "XEP-0092 Software Version" }

// Version satisfies xmpp.Module.
func (Module) Version() string { return "1.1" }

// Dictionaries satisfies xmpp.Module.
func (m Module) Dictionaries() []xmpp.Dictionary {
	return []xmpp.Dictionary{xmpp.NewDictionary(NS, handler{m: m})}
}

// ServerInfo satisfies xmpp.ServerInfoListener.
func (Module) ServerInfo(xmpp.InfoRequest) []string {
	return []string{NS}
}

// Query returns the version information reported by the module.
func (m Module) Query() Query {
	q := Query{Name: m.Software, Version: m.Release, OS: m.OS}
	if q.OS == "" {
		q.OS = runtime.GOOS
	}
	return q
}

type handler struct {
	m Module
}

func (handler) Name() string { return "iq" }

func (handler) Verify(st *stanza.Element) bool {
	return xmpp.VerifyNamespace(st, "iq", NS)
}

func (handler) SessionRequired() bool { return true }

func (h handler) Execute(_ context.Context, st *stanza.Element, _ *xmpp.Runtime, _ bool, _ *xmpp.Session, _ *xmpp.StateHolder) (*stanza.Element, error) {
	switch st.Type() {
	case stanza.GetIQ:
	case stanza.ResultIQ, stanza.ErrorIQ:
		return nil, nil
	default:
		return nil, stanza.Error{Type: stanza.Cancel, Condition: stanza.FeatureNotImplemented}
	}
	payload, err := stanza.Decode(h.m.Query().TokenReader(), nil)
	if err != nil {
		return nil, err
	}
	return stanza.Result(st, payload), nil
}
