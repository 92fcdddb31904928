// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package dispatch routes inbound elements of a session to their handlers and
// delivers the outcome back to the session.
package dispatch // import "github.com/pokebadgerswithspoon/vysper/dispatch"

import (
	"context"
	"errors"
	"fmt"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/mux"
	"github.com/pokebadgerswithspoon/vysper/stanza"
	"github.com/pokebadgerswithspoon/vysper/stream"
)

// ErrSessionClosed is returned when dispatching on a closed session.
var ErrSessionClosed = errors.New("dispatch: session is closed")

// Dispatcher executes handlers for the elements received by sessions.
// It is safe for concurrent use by multiple sessions.
type Dispatcher struct {
	rt       *xmpp.Runtime
	registry *mux.Registry
}

// New registers the dictionaries of all modules and initializes them.
// Modules that advertise features through service discovery are recorded in
// the runtime.
func New(rt *xmpp.Runtime, modules ...xmpp.Module) (*Dispatcher, error) {
	registry, err := mux.New()
	if err != nil {
		return nil, err
	}
	for _, m := range modules {
		for _, dict := range m.Dictionaries() {
			if err := registry.Register(dict); err != nil {
				return nil, fmt.Errorf("dispatch: module %s %s: %w", m.Name(), m.Version(), err)
			}
		}
	}
	for _, m := range modules {
		rt.AddModule(m)
		if init, ok := m.(xmpp.Initializer); ok {
			if err := init.Initialize(rt); err != nil {
				return nil, fmt.Errorf("dispatch: initializing %s: %w", m.Name(), err)
			}
		}
		rt.Debug().Printf("module %s %s registered", m.Name(), m.Version())
	}
	return &Dispatcher{rt: rt, registry: registry}, nil
}

// Runtime returns the runtime the dispatcher was created with.
func (d *Dispatcher) Runtime() *xmpp.Runtime {
	return d.rt
}

// Registry returns the handler registry.
func (d *Dispatcher) Registry() *mux.Registry {
	return d.registry
}

// Dispatch processes one first level element received by s.
//
// Problems with the element itself are reported to the peer and do not return
// an error.
// An error is returned only if the session has been closed, in which case the
// transport should stop reading.
func (d *Dispatcher) Dispatch(ctx context.Context, st *stanza.Element, s *xmpp.Session) error {
	if s.State() == xmpp.Closed {
		return ErrSessionClosed
	}
	d.rt.Debug().Printf("session %s (%s) received %s", s.ID(), s.State(), st)

	if st.IsStanza() && !s.ServerToServer() {
		if bound := s.BoundJID(); bound != nil {
			st = st.Builder().Addr("from", bound).Build()
		}
	}

	if st.IsStanza() {
		if st.Attr("to") != "" && st.To() == nil {
			d.bounce(s, st, stanza.Error{Type: stanza.Modify, Condition: stanza.JIDMalformed})
			return nil
		}
		if d.isForeign(st, s) {
			if !s.State().AtLeast(xmpp.Authenticated) {
				s.Write(stream.NotAuthorized.Element())
				return nil
			}
			d.route(ctx, st, s)
			return nil
		}
	}

	h, res := d.registry.Resolve(st)
	if res != mux.Found || !h.Verify(st) {
		if res == mux.Ambiguous {
			d.rt.Logger().Printf("dispatch: ambiguous handlers for %s in session %s", st.Name().Local, s.ID())
		}
		d.bounce(s, st, stanza.Error{Type: stanza.Cancel, Condition: stanza.ServiceUnavailable})
		return nil
	}

	if h.SessionRequired() && !s.State().AtLeast(xmpp.Authenticated) {
		s.Write(stream.NotAuthorized.Element())
		return nil
	}

	resp, err := h.Execute(ctx, st, d.rt, true, s, s.StateHolder())
	if err != nil {
		return d.handleError(s, st, err)
	}
	s.Write(resp)
	return nil
}

// isForeign reports whether st is addressed to an entity other than the server
// and other than the sending account itself.
func (d *Dispatcher) isForeign(st *stanza.Element, s *xmpp.Session) bool {
	to := st.To()
	if d.rt.IsServerAddr(to) {
		return false
	}
	if bound := s.BoundJID(); bound != nil && to.IsBare() && to.Equal(bound.Bare()) {
		return false
	}
	return true
}

func (d *Dispatcher) route(ctx context.Context, st *stanza.Element, s *xmpp.Session) {
	router := d.rt.Router()
	if router == nil {
		d.bounce(s, st, stanza.Error{Type: stanza.Cancel, Condition: stanza.ServiceUnavailable})
		return
	}
	err := router.Route(ctx, st)
	switch {
	case err == nil:
	case errors.Is(err, xmpp.ErrNoRoute):
		d.bounce(s, st, stanza.Error{Type: stanza.Cancel, Condition: stanza.ServiceUnavailable})
	default:
		d.rt.Logger().Printf("dispatch: routing %s from session %s: %v", st.Name().Local, s.ID(), err)
		d.bounce(s, st, stanza.Error{Type: stanza.Wait, Condition: stanza.InternalServerError})
	}
}

func (d *Dispatcher) handleError(s *xmpp.Session, st *stanza.Element, err error) error {
	var (
		streamErr stream.Error
		stanzaErr stanza.Error
	)
	switch {
	case errors.As(err, &streamErr):
		s.Write(streamErr.Element())
		if closeErr := s.Close(); closeErr != nil {
			d.rt.Logger().Printf("dispatch: closing session %s: %v", s.ID(), closeErr)
		}
		return fmt.Errorf("dispatch: session %s closed: %w", s.ID(), err)
	case errors.As(err, &stanzaErr):
		d.bounce(s, st, stanzaErr)
	default:
		d.rt.Logger().Printf("dispatch: handling %s in session %s: %v", st.Name().Local, s.ID(), err)
		d.bounce(s, st, stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest})
	}
	return nil
}

// bounce answers st with an error.
// Error stanzas are never answered to avoid loops.
func (d *Dispatcher) bounce(s *xmpp.Session, st *stanza.Element, se stanza.Error) {
	if stanza.IsError(st) {
		d.rt.Debug().Printf("session %s: dropping %s error in response to error stanza", s.ID(), se.Condition)
		return
	}
	s.Write(stanza.ErrorReply(st, se))
}
