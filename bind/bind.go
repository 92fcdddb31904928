// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package bind implements resource binding (RFC 6120 §7) and the legacy
// session establishment request (RFC 3921 §3).
package bind // import "github.com/pokebadgerswithspoon/vysper/bind"

import (
	"context"
	"encoding/xml"
	"strings"

	"github.com/google/uuid"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// Module binds resources to authenticated sessions and registers bound
// sessions with the router of the runtime.
type Module struct{}

// Name satisfies xmpp.Module.
func (Module) Name() string { return "Resource Binding" }

// Version satisfies xmpp.Module.
func (Module) Version() string { return "1.0" }

// Dictionaries satisfies xmpp.Module.
func (Module) Dictionaries() []xmpp.Dictionary {
	return []xmpp.Dictionary{
		xmpp.NewDictionary(ns.Bind, bindHandler{}),
		xmpp.NewDictionary(ns.Session, sessionHandler{}),
	}
}

type bindHandler struct{}

func (bindHandler) Name() string { return "iq" }

func (bindHandler) Verify(st *stanza.Element) bool {
	return xmpp.VerifyNamespace(st, "iq", ns.Bind)
}

func (bindHandler) SessionRequired() bool { return true }

func (bindHandler) Execute(_ context.Context, st *stanza.Element, rt *xmpp.Runtime, _ bool, s *xmpp.Session, _ *xmpp.StateHolder) (*stanza.Element, error) {
	if st.Type() != stanza.SetIQ {
		return nil, stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest}
	}
	bound := s.BoundJID()
	if bound == nil {
		return nil, stanza.Error{Type: stanza.Auth, Condition: stanza.NotAuthorized}
	}
	if !bound.IsBare() {
		return nil, stanza.Error{Type: stanza.Cancel, Condition: stanza.NotAllowed}
	}

	var res string
	if req := st.Child(xml.Name{Space: ns.Bind, Local: "bind"}); req != nil {
		if r := req.Child(xml.Name{Space: ns.Bind, Local: "resource"}); r != nil {
			res = strings.TrimSpace(r.Text())
		}
	}
	if res == "" {
		res = uuid.NewString()
	}
	full, err := bound.WithResource(res)
	if err != nil {
		return nil, stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest, Text: err.Error()}
	}

	s.SetBoundJID(full)
	if router := rt.Router(); router != nil {
		if err := router.Bind(s); err != nil {
			s.SetBoundJID(bound)
			rt.Logger().Printf("bind: session %s: %v", s.ID(), err)
			return nil, stanza.Error{Type: stanza.Wait, Condition: stanza.InternalServerError}
		}
	}
	rt.Debug().Printf("bind: session %s bound to %s", s.ID(), full)

	return stanza.Result(st,
		stanza.NewBuilder("bind", ns.Bind).
			Child(stanza.NewBuilder("jid", ns.Bind).Text(full.String()).Build()).
			Build(),
	), nil
}

type sessionHandler struct{}

func (sessionHandler) Name() string { return "iq" }

func (sessionHandler) Verify(st *stanza.Element) bool {
	return xmpp.VerifyNamespace(st, "iq", ns.Session)
}

func (sessionHandler) SessionRequired() bool { return true }

func (sessionHandler) Execute(_ context.Context, st *stanza.Element, _ *xmpp.Runtime, _ bool, _ *xmpp.Session, _ *xmpp.StateHolder) (*stanza.Element, error) {
	if st.Type() != stanza.SetIQ {
		return nil, stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest}
	}
	return stanza.Result(st), nil
}
