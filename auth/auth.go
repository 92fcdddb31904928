// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package auth authenticates client streams with SASL as defined in RFC 6120
// §6.
package auth // import "github.com/pokebadgerswithspoon/vysper/auth"

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"mellium.im/sasl"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/jid"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// SASL failure conditions.
const (
	Aborted              = "aborted"
	EncryptionRequired   = "encryption-required"
	IncorrectEncoding    = "incorrect-encoding"
	InvalidMechanism     = "invalid-mechanism"
	MalformedRequest     = "malformed-request"
	NotAuthorized        = "not-authorized"
	TemporaryAuthFailure = "temporary-auth-failure"
)

const exchangeKey = "auth.exchange"

// exchange is an authentication in progress.
type exchange struct {
	neg  *sasl.Negotiator
	user string
}

// Module authenticates sessions against the accounts of the runtime using the
// mechanisms configured in its features.
type Module struct{}

// Name satisfies xmpp.Module.
func (Module) Name() string { return "SASL" }

// Version satisfies xmpp.Module.
func (Module) Version() string { return "1.0" }

// Dictionaries satisfies xmpp.Module.
func (Module) Dictionaries() []xmpp.Dictionary {
	return []xmpp.Dictionary{
		xmpp.NewDictionary(ns.SASL, authHandler{}, responseHandler{}, abortHandler{}),
	}
}

type base struct{}

func (base) SessionRequired() bool { return false }

type authHandler struct{ base }

func (authHandler) Name() string { return "auth" }

func (authHandler) Verify(st *stanza.Element) bool {
	return xmpp.VerifyNamespace(st, "auth", ns.SASL)
}

func (authHandler) Execute(_ context.Context, st *stanza.Element, rt *xmpp.Runtime, _ bool, s *xmpp.Session, state *xmpp.StateHolder) (*stanza.Element, error) {
	if resp := checkState(state); resp != nil {
		return resp, nil
	}

	name := st.Attr("mechanism")
	var (
		mech  sasl.Mechanism
		found bool
	)
	for _, m := range rt.Features().Mechanisms {
		if m.Name == name {
			mech, found = m, true
			break
		}
	}
	if !found {
		return xmpp.SASLFailure(InvalidMechanism), nil
	}
	accounts := rt.Accounts()
	if accounts == nil {
		rt.Logger().Printf("auth: no accounts configured, rejecting session %s", s.ID())
		return xmpp.SASLFailure(TemporaryAuthFailure), nil
	}

	ex := &exchange{}
	ex.neg = sasl.NewServer(mech, func(n *sasl.Negotiator) bool {
		user, pass, ident := n.Credentials()
		if len(ident) > 0 && string(ident) != string(user) {
			return false
		}
		if !accounts.Verify(string(user), string(pass)) {
			return false
		}
		ex.user = string(user)
		return true
	})

	data, err := decode(st.Text())
	if err != nil {
		return xmpp.SASLFailure(IncorrectEncoding), nil
	}
	if len(data) == 0 {
		s.SetAttribute(exchangeKey, ex)
		return xmpp.SASLChallenge(nil), nil
	}
	return step(rt, s, state, ex, data)
}

type responseHandler struct{ base }

func (responseHandler) Name() string { return "response" }

func (responseHandler) Verify(st *stanza.Element) bool {
	return xmpp.VerifyNamespace(st, "response", ns.SASL)
}

func (responseHandler) Execute(_ context.Context, st *stanza.Element, rt *xmpp.Runtime, _ bool, s *xmpp.Session, state *xmpp.StateHolder) (*stanza.Element, error) {
	if resp := checkState(state); resp != nil {
		return resp, nil
	}
	ex, ok := s.Attribute(exchangeKey).(*exchange)
	if !ok {
		return xmpp.SASLFailure(MalformedRequest), nil
	}
	data, err := decode(st.Text())
	if err != nil {
		s.SetAttribute(exchangeKey, nil)
		return xmpp.SASLFailure(IncorrectEncoding), nil
	}
	return step(rt, s, state, ex, data)
}

type abortHandler struct{ base }

func (abortHandler) Name() string { return "abort" }

func (abortHandler) Verify(st *stanza.Element) bool {
	return xmpp.VerifyNamespace(st, "abort", ns.SASL)
}

func (abortHandler) Execute(_ context.Context, _ *stanza.Element, _ *xmpp.Runtime, _ bool, s *xmpp.Session, _ *xmpp.StateHolder) (*stanza.Element, error) {
	s.SetAttribute(exchangeKey, nil)
	return xmpp.AuthAborted(), nil
}

// checkState returns a failure if the session may not authenticate.
func checkState(state *xmpp.StateHolder) *stanza.Element {
	switch cur := state.State(); {
	case cur == xmpp.Encrypted:
		return nil
	case cur == xmpp.Authenticated || cur == xmpp.Closed:
		return xmpp.SASLFailure(NotAuthorized)
	default:
		return xmpp.SASLFailure(EncryptionRequired)
	}
}

// step feeds data to the negotiator and completes the exchange when it is
// done.
func step(rt *xmpp.Runtime, s *xmpp.Session, state *xmpp.StateHolder, ex *exchange, data []byte) (*stanza.Element, error) {
	more, resp, err := ex.neg.Step(data)
	if err != nil {
		s.SetAttribute(exchangeKey, nil)
		switch {
		case errors.Is(err, sasl.ErrAuthn):
			rt.Debug().Printf("auth: session %s failed to authenticate", s.ID())
			return xmpp.SASLFailure(NotAuthorized), nil
		default:
			return xmpp.SASLFailure(MalformedRequest), nil
		}
	}
	if more {
		s.SetAttribute(exchangeKey, ex)
		return xmpp.SASLChallenge(resp), nil
	}
	s.SetAttribute(exchangeKey, nil)

	addr, err := jid.New(ex.user, rt.Domain().Domainpart(), "")
	if err != nil {
		return xmpp.SASLFailure(NotAuthorized), nil
	}
	if !state.Transition(xmpp.Authenticated) {
		rt.Debug().Printf("auth: session %s left state %s before authenticating", s.ID(), state.State())
		return xmpp.SASLFailure(NotAuthorized), nil
	}
	s.SetBoundJID(addr)
	s.SetIsReopeningStream()
	rt.Debug().Printf("auth: session %s authenticated as %s", s.ID(), addr)
	return xmpp.SASLSuccess(resp), nil
}

// decode decodes the base64 payload of an auth or response element.
// A single "=" is an explicitly empty payload.
func decode(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "=" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(text)
}
