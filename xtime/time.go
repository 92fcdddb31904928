// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xtime answers entity time requests (XEP-0202) addressed to the
// server, formatting times with the profiles of XEP-0082.
package xtime // import "github.com/pokebadgerswithspoon/vysper/xtime"

import (
	"context"
	"encoding/xml"
	"time"

	"mellium.im/xmlstream"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

const (
	// NS is the XML namespace used by XMPP entity time requests.
	// It is provided as a convenience.
	NS = "urn:xmpp:time"
)

const tzd = "Z07:00"

// Time is like a time.Time but it can be marshaled as an XEP-0202 time payload.
type Time time.Time

// TokenReader satisfies the xmlstream.Marshaler interface.
func (t Time) TokenReader() xml.TokenReader {
	tt := time.Time(t)
	tzo := tt.Format(tzd)
	utcTime := tt.UTC().Format(time.RFC3339)

	return xmlstream.Wrap(
		xmlstream.MultiReader(
			xmlstream.Wrap(xmlstream.Token(xml.CharData(tzo)), xml.StartElement{Name: xml.Name{Local: "tzo"}}),
			xmlstream.Wrap(xmlstream.Token(xml.CharData(utcTime)), xml.StartElement{Name: xml.Name{Local: "utc"}}),
		),
		xml.StartElement{Name: xml.Name{Local: "time", Space: NS}},
	)
}

// Parse reads a time payload.
func Parse(e *stanza.Element) (time.Time, error) {
	var tzo, utc string
	for _, c := range e.Children() {
		switch c.Name().Local {
		case "tzo":
			tzo = c.Text()
		case "utc":
			utc = c.Text()
		}
	}
	zone, err := time.Parse(tzd, tzo)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, utc)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(zone.Location()), nil
}

// Module responds to requests for the time of the server.
// If TimeFunc is nil, time.Now is used.
type Module struct {
	TimeFunc func() time.Time
}

// Name satisfies xmpp.Module.
func (Module) Name() string { return "XEP-0202 Entity Time" }

// Version satisfies xmpp.Module.
func (Module) Version() string { return "2.0" }

// Dictionaries satisfies xmpp.Module.
func (m Module) Dictionaries() []xmpp.Dictionary {
	return []xmpp.Dictionary{xmpp.NewDictionary(NS, handler{m: m})}
}

// ServerInfo satisfies xmpp.ServerInfoListener.
func (Module) ServerInfo(xmpp.InfoRequest) []string {
	return []string{NS}
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

	now := time.Now
	if h.m.TimeFunc != nil {
		now = h.m.TimeFunc
	}
	payload, err := stanza.Decode(Time(now()).TokenReader(), nil)
	if err != nil {
		return nil, err
	}
	return stanza.Result(st, payload), nil
}
