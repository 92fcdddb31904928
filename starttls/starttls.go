// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package starttls negotiates TLS on client streams as defined in RFC 6120 §5.
package starttls // import "github.com/pokebadgerswithspoon/vysper/starttls"

import (
	"context"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// Module answers STARTTLS requests.
type Module struct{}

// Name satisfies xmpp.Module.
func (Module) Name() string { return "STARTTLS" }

// Version satisfies xmpp.Module.
func (Module) Version() string { return "1.0" }

// Dictionaries satisfies xmpp.Module.
func (Module) Dictionaries() []xmpp.Dictionary {
	return []xmpp.Dictionary{xmpp.NewDictionary(ns.StartTLS, Handler{})}
}

// Handler handles the <starttls/> element.
//
// A request in the correct namespace received on a started stream moves the
// session to EncryptionStarted, asks the transport to switch to TLS, and is
// answered with <proceed/>.
// Anything else is answered with <failure/>.
type Handler struct{}

// Name satisfies xmpp.Handler.
func (Handler) Name() string { return "starttls" }

// Verify satisfies xmpp.Handler.
func (Handler) Verify(st *stanza.Element) bool {
	return xmpp.VerifyNamespace(st, "starttls", "")
}

// SessionRequired satisfies xmpp.Handler.
func (Handler) SessionRequired() bool { return false }

// Execute satisfies xmpp.Handler.
func (Handler) Execute(_ context.Context, st *stanza.Element, rt *xmpp.Runtime, _ bool, s *xmpp.Session, state *xmpp.StateHolder) (*stanza.Element, error) {
	if st.Name().Space != ns.StartTLS {
		return xmpp.TLSFailure(), nil
	}
	if cur := state.State(); cur != xmpp.Started || !state.Transition(xmpp.EncryptionStarted) {
		rt.Debug().Printf("starttls: session %s requested TLS in state %s", s.ID(), cur)
		return xmpp.TLSFailure(), nil
	}
	s.SwitchToTLS()
	return xmpp.TLSProceed(), nil
}
