// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package server

import (
	"encoding/xml"
	"log"
	"net"
	"sync"

	"github.com/pokebadgerswithspoon/vysper/internal/wire"
	"github.com/pokebadgerswithspoon/vysper/stanza"
	"github.com/pokebadgerswithspoon/vysper/stream"
)

// connWriter delivers the stanzas of a session directly onto its connection.
type connWriter struct {
	mu        sync.Mutex
	conn      net.Conn
	enc       *xml.Encoder
	logger    *log.Logger
	switchTLS bool
	opened    bool
	closed    bool
}

func newConnWriter(conn net.Conn, logger *log.Logger) *connWriter {
	return &connWriter{
		conn:   conn,
		enc:    xml.NewEncoder(conn),
		logger: logger,
	}
}

// Write satisfies xmpp.StanzaWriter.
func (w *connWriter) Write(st *stanza.Element) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if err := wire.Encode(w.enc, st); err != nil {
		w.logger.Printf("server: writing %s to %s: %v", st.Name().Local, w.conn.RemoteAddr(), err)
	}
}

// writeHeader opens a stream.
// The XML declaration is only sent on the first header of a transport.
func (w *connWriter) writeHeader(info stream.Info, restart bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opened = true
	if restart {
		return stream.Reopen(w.conn, info)
	}
	return stream.WriteHeader(w.conn, info)
}

// SwitchToTLS satisfies xmpp.TLSSwitcher.
// The upgrade is performed by the connection loop once the response to the
// current stanza has been written.
func (w *connWriter) SwitchToTLS() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.switchTLS = true
}

// takeSwitch reports whether an upgrade was requested and clears the request.
func (w *connWriter) takeSwitch() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	sw := w.switchTLS
	w.switchTLS = false
	return sw
}

// setConn replaces the underlying connection after an upgrade.
func (w *connWriter) setConn(conn net.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn = conn
	w.enc = xml.NewEncoder(conn)
}

// Close satisfies xmpp.StanzaWriter.
// It ends the stream if one was opened and closes the connection.
func (w *connWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.opened {
		if err := stream.WriteClose(w.conn); err != nil {
			w.logger.Printf("server: closing stream to %s: %v", w.conn.RemoteAddr(), err)
		}
	}
	return w.conn.Close()
}
