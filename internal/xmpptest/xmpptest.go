// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmpptest provides utilities for testing sessions and handlers.
package xmpptest // import "github.com/pokebadgerswithspoon/vysper/internal/xmpptest"

import (
	"sync"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/jid"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// Domain is the address of the server used by NewRuntime.
var Domain = jid.MustParse("example.net")

// Recorder is an xmpp.StanzaWriter that records everything written to it.
type Recorder struct {
	mu       sync.Mutex
	stanzas  []*stanza.Element
	closed   bool
	switched int
}

// Write records st.
func (r *Recorder) Write(st *stanza.Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stanzas = append(r.stanzas, st)
}

// Close marks the recorder as closed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// SwitchToTLS counts requests to upgrade the transport.
func (r *Recorder) SwitchToTLS() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.switched++
}

// Stanzas returns the stanzas written so far.
func (r *Recorder) Stanzas() []*stanza.Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*stanza.Element(nil), r.stanzas...)
}

// Last returns the last stanza written or nil.
func (r *Recorder) Last() *stanza.Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stanzas) == 0 {
		return nil
	}
	return r.stanzas[len(r.stanzas)-1]
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Switched returns the number of times SwitchToTLS was called.
func (r *Recorder) Switched() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.switched
}

// NewRuntime returns a runtime for Domain.
func NewRuntime(opts ...xmpp.Option) *xmpp.Runtime {
	return xmpp.NewRuntime(Domain, opts...)
}

// NewSession returns a session in the given state that writes to a new
// Recorder.
// Sessions in the Authenticated state are bound to test@example.net/test.
func NewSession(state xmpp.SessionState, opts ...xmpp.SessionOption) (*xmpp.Session, *Recorder) {
	rec := &Recorder{}
	s := xmpp.NewSession(rec, append([]xmpp.SessionOption{xmpp.InitialState(state)}, opts...)...)
	if state == xmpp.Authenticated {
		s.SetBoundJID(jid.MustParse("test@example.net/test"))
	}
	return s, rec
}
