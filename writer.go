// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// StanzaWriter delivers stanzas to the peer of a session.
// Each session owns exactly one writer.
// Write never blocks on the network peer for longer than the transport
// requires and never reports errors: failures are logged by the
// implementation and result in the session being closed.
type StanzaWriter interface {
	Write(*stanza.Element)
	Close() error
}

// TLSSwitcher is implemented by writers whose transport can be upgraded to TLS
// in place.
// The switch happens after the currently executing handler has returned and its
// response has been flushed.
type TLSSwitcher interface {
	SwitchToTLS()
}

// StanzaWriterFunc adapts a function into a StanzaWriter with a no-op Close.
type StanzaWriterFunc func(*stanza.Element)

// Write calls f(st).
func (f StanzaWriterFunc) Write(st *stanza.Element) {
	f(st)
}

// Close does nothing.
func (StanzaWriterFunc) Close() error {
	return nil
}
