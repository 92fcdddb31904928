// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"errors"
	"io"
	"net"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/stanza"
	"github.com/pokebadgerswithspoon/vysper/stream"
)

var errStreamClosed = errors.New("server: stream closed by peer")

// c2s is the state of one client connection.
type c2s struct {
	srv  *Server
	conn net.Conn
	w    *connWriter
	s    *xmpp.Session
	dec  *xml.Decoder
}

func (srv *Server) serveConn(ctx context.Context, conn net.Conn) {
	w := newConnWriter(conn, srv.logger)
	c := &c2s{
		srv:  srv,
		conn: conn,
		w:    w,
		s:    xmpp.NewSession(w),
		dec:  xml.NewDecoder(conn),
	}
	srv.debug.Printf("server: session %s connected from %s", c.s.ID(), conn.RemoteAddr())

	stop := context.AfterFunc(ctx, func() {
		c.s.Write(stream.SystemShutdown.Element())
		c.s.Close()
	})
	defer stop()
	defer c.end()

	err := c.run(ctx)
	switch {
	case err == nil, errors.Is(err, errStreamClosed), errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
	default:
		srv.logger.Printf("server: session %s: %v", c.s.ID(), err)
	}
}

// end unbinds and closes the session.
func (c *c2s) end() {
	if router := c.srv.rt.Router(); router != nil && c.s.BoundJID() != nil {
		router.Unbind(c.s)
	}
	if err := c.s.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.srv.debug.Printf("server: closing session %s: %v", c.s.ID(), err)
	}
	c.srv.debug.Printf("server: session %s ended", c.s.ID())
}

// run reads the stream of the client until it ends.
func (c *c2s) run(ctx context.Context) error {
	start, err := c.nextStart()
	if err != nil {
		return err
	}
	restart := false
	for {
		if err := c.open(start, restart); err != nil {
			return err
		}
		start, restart, err = c.readElements(ctx)
		if err != nil {
			return err
		}
	}
}

// nextStart returns the next start element, skipping the XML declaration and
// whitespace.
func (c *c2s) nextStart() (xml.StartElement, error) {
	for {
		tok, err := c.dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.EndElement:
			return xml.StartElement{}, errStreamClosed
		}
	}
}

// open answers a stream header with a header and the features available in the
// current state of the session.
func (c *c2s) open(start xml.StartElement, restart bool) error {
	rt := c.srv.rt
	info, err := stream.FromStartElement(start)
	if err != nil {
		var se stream.Error
		if !errors.As(err, &se) {
			se = stream.BadFormat
		}
		header, e := xmpp.StreamOpenerForError(rt, true, rt.Domain(), c.s, se)
		if err := c.w.writeHeader(header, restart); err != nil {
			return err
		}
		c.s.Write(e)
		return err
	}
	if info.To != nil && !rt.IsServerAddr(info.To) {
		header, e := xmpp.StreamOpenerForError(rt, true, rt.Domain(), c.s, stream.HostUnknown)
		if err := c.w.writeHeader(header, restart); err != nil {
			return err
		}
		c.s.Write(e)
		return stream.HostUnknown
	}

	state := c.s.StateHolder()
	if state.State() == xmpp.Initial {
		if err := transition(state, xmpp.Started); err != nil {
			return err
		}
	}
	if state.State() == xmpp.Started && rt.TLSConfig() == nil {
		c.srv.logger.Printf("server: no TLS configuration, session %s continues unencrypted", c.s.ID())
		if err := transition(state, xmpp.Encrypted); err != nil {
			return err
		}
	}

	version := stream.DefaultVersion
	if info.Version.Less(version) {
		version = info.Version
	}
	c.s.SetVersion(version)
	if info.Lang != "" {
		if err := c.s.SetLang(info.Lang); err != nil {
			c.srv.debug.Printf("server: session %s: %v", c.s.ID(), err)
		}
	}

	opener, err := xmpp.StreamOpener(rt, true, rt.Domain(), version, c.s)
	if err != nil {
		return err
	}
	if err := c.w.writeHeader(opener.Info, restart); err != nil {
		return err
	}
	c.s.Write(opener.Features)
	return nil
}

// readElements dispatches first level elements until the stream is restarted,
// returning the header of the new stream.
func (c *c2s) readElements(ctx context.Context) (xml.StartElement, bool, error) {
	for {
		tok, err := c.dec.Token()
		if err != nil {
			return xml.StartElement{}, false, c.fail(err)
		}
		var start xml.StartElement
		switch t := tok.(type) {
		case xml.StartElement:
			start = t
		case xml.EndElement:
			return xml.StartElement{}, false, errStreamClosed
		default:
			continue
		}

		if start.Name == (xml.Name{Space: ns.Stream, Local: "stream"}) {
			if !c.s.IsReopeningStream() {
				c.s.Write(stream.NotWellFormed.Element())
				return xml.StartElement{}, false, stream.NotWellFormed
			}
			return start, true, nil
		}

		st, err := stanza.Decode(c.dec, &start)
		if err != nil {
			return xml.StartElement{}, false, c.fail(err)
		}
		if err := c.srv.d.Dispatch(ctx, st, c.s); err != nil {
			return xml.StartElement{}, false, err
		}

		if c.w.takeSwitch() {
			if err := c.startTLS(ctx); err != nil {
				return xml.StartElement{}, false, err
			}
			start, err := c.nextStart()
			return start, false, err
		}
	}
}

// fail reports a read error to the peer when the input was malformed.
func (c *c2s) fail(err error) error {
	var syntax *xml.SyntaxError
	if errors.As(err, &syntax) || errors.Is(err, io.ErrUnexpectedEOF) {
		c.s.Write(stream.NotWellFormed.Element())
		return stream.NotWellFormed
	}
	return err
}

// startTLS performs the server side of the TLS handshake and restarts the
// stream on the encrypted connection.
func (c *c2s) startTLS(ctx context.Context) error {
	cfg := c.srv.rt.TLSConfig()
	if cfg == nil {
		return errors.New("server: STARTTLS requested without a TLS configuration")
	}
	ctx, cancel := context.WithTimeout(ctx, c.srv.handshakeTimeout)
	defer cancel()

	conn := tls.Server(c.conn, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		c.s.SetState(xmpp.Closed)
		return err
	}
	if err := transition(c.s.StateHolder(), xmpp.Encrypted); err != nil {
		return err
	}
	c.conn = conn
	c.w.setConn(conn)
	c.dec = xml.NewDecoder(conn)
	c.srv.debug.Printf("server: session %s encrypted", c.s.ID())
	return nil
}

// transition moves the session to the next state or returns a stream error if
// negotiation is out of order.
func transition(h *xmpp.StateHolder, to xmpp.SessionState) error {
	if !h.Transition(to) {
		return stream.Error{Err: stream.PolicyViolation.Err, Text: "cannot move from " + h.State().String() + " to " + to.String()}
	}
	return nil
}
