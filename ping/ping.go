// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ping implements XEP-0199: XMPP Ping.
package ping // import "github.com/pokebadgerswithspoon/vysper/ping"

import (
	"context"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// NS is the XML namespace used by XMPP pings. It is provided as a convenience.
const NS = ns.Ping

// Module answers pings addressed to the server and advertises support for them
// through service discovery.
type Module struct{}

// Name satisfies xmpp.Module.
func (Module) Name() string { return "XEP-0199 XMPP Ping" }

// Version satisfies xmpp.Module.
func (Module) Version() string { return "2.0" }

// Dictionaries satisfies xmpp.Module.
func (Module) Dictionaries() []xmpp.Dictionary {
	return []xmpp.Dictionary{xmpp.NewDictionary(NS, Handler{})}
}

// ServerInfo satisfies xmpp.ServerInfoListener.
func (Module) ServerInfo(xmpp.InfoRequest) []string {
	return []string{NS}
}

// Handler responds to IQ pings.
type Handler struct{}

// Name satisfies xmpp.Handler.
func (Handler) Name() string { return "iq" }

// Verify satisfies xmpp.Handler.
func (Handler) Verify(st *stanza.Element) bool {
	return xmpp.VerifyNamespace(st, "iq", NS)
}

// SessionRequired satisfies xmpp.Handler.
func (Handler) SessionRequired() bool { return true }

// Execute satisfies xmpp.Handler.
// Pings are answered with an empty result.
// Results and errors in response to pings sent by the server are consumed.
func (Handler) Execute(_ context.Context, st *stanza.Element, _ *xmpp.Runtime, _ bool, _ *xmpp.Session, _ *xmpp.StateHolder) (*stanza.Element, error) {
	switch st.Type() {
	case stanza.GetIQ:
		return stanza.Result(st), nil
	case stanza.ResultIQ, stanza.ErrorIQ:
		return nil, nil
	default:
		return nil, stanza.Error{Type: stanza.Cancel, Condition: stanza.FeatureNotImplemented}
	}
}
