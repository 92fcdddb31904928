// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package auth_test

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"strconv"
	"testing"

	"mellium.im/sasl"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/auth"
	"github.com/pokebadgerswithspoon/vysper/dispatch"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/internal/xmpptest"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

var accounts = xmpp.Accounts{"juliet": "r0m30"}

func plain(authz, user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(authz + "\x00" + user + "\x00" + pass))
}

func authElem(mech, payload string) *stanza.Element {
	return stanza.NewBuilder("auth", ns.SASL).Attr("mechanism", mech).Text(payload).Build()
}

func newDispatcher(t *testing.T, opts ...xmpp.Option) *dispatch.Dispatcher {
	t.Helper()
	d, err := dispatch.New(xmpptest.NewRuntime(opts...), auth.Module{})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func condition(e *stanza.Element) string {
	if e == nil || e.Name() != (xml.Name{Space: ns.SASL, Local: "failure"}) {
		return ""
	}
	if c := e.FirstChild(); c != nil {
		return c.Name().Local
	}
	return ""
}

func TestAuth(t *testing.T) {
	for i, tc := range [...]struct {
		state xmpp.SessionState
		in    *stanza.Element
		cond  string
	}{
		0: {state: xmpp.Encrypted, in: authElem("PLAIN", plain("", "juliet", "r0m30"))},
		1: {state: xmpp.Encrypted, in: authElem("PLAIN", plain("", "juliet", "wrong")), cond: auth.NotAuthorized},
		2: {state: xmpp.Encrypted, in: authElem("X-UNKNOWN", plain("", "juliet", "r0m30")), cond: auth.InvalidMechanism},
		3: {state: xmpp.Started, in: authElem("PLAIN", plain("", "juliet", "r0m30")), cond: auth.EncryptionRequired},
		4: {state: xmpp.Encrypted, in: authElem("PLAIN", "!!!"), cond: auth.IncorrectEncoding},
		5: {state: xmpp.Encrypted, in: authElem("PLAIN", base64.StdEncoding.EncodeToString([]byte("juliet"))), cond: auth.MalformedRequest},
		6: {state: xmpp.Encrypted, in: authElem("PLAIN", plain("romeo", "juliet", "r0m30")), cond: auth.NotAuthorized},
		7: {state: xmpp.Encrypted, in: authElem("PLAIN", plain("juliet", "juliet", "r0m30"))},
		8: {state: xmpp.Encrypted, in: authElem("PLAIN", plain("", "romeo", "r0m30")), cond: auth.NotAuthorized},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			d := newDispatcher(t, xmpp.WithAccounts(accounts))
			s, rec := xmpptest.NewSession(tc.state)
			if err := d.Dispatch(context.Background(), tc.in, s); err != nil {
				t.Fatal(err)
			}
			resp := rec.Last()
			if tc.cond != "" {
				if c := condition(resp); c != tc.cond {
					t.Errorf("Wrong failure condition: want=%s, got=%s", tc.cond, resp)
				}
				if s.State() != tc.state {
					t.Errorf("State changed on failure: %s", s.State())
				}
				return
			}
			if resp.Name() != (xml.Name{Space: ns.SASL, Local: "success"}) {
				t.Fatalf("Expected success, got %s", resp)
			}
			if s.State() != xmpp.Authenticated {
				t.Errorf("Wrong state: %s", s.State())
			}
			if addr := s.BoundJID().String(); addr != "juliet@example.net" {
				t.Errorf("Wrong bound address: %s", addr)
			}
			if !s.IsReopeningStream() {
				t.Error("Expected stream to be flagged for reopening")
			}
		})
	}
}

func TestAuthChallenge(t *testing.T) {
	d := newDispatcher(t, xmpp.WithAccounts(accounts))
	s, rec := xmpptest.NewSession(xmpp.Encrypted)
	ctx := context.Background()

	if err := d.Dispatch(ctx, authElem("PLAIN", "="), s); err != nil {
		t.Fatal(err)
	}
	if name := rec.Last().Name(); name != (xml.Name{Space: ns.SASL, Local: "challenge"}) {
		t.Fatalf("Expected empty challenge, got %s", rec.Last())
	}

	resp := stanza.NewBuilder("response", ns.SASL).Text(plain("", "juliet", "r0m30")).Build()
	if err := d.Dispatch(ctx, resp, s); err != nil {
		t.Fatal(err)
	}
	if name := rec.Last().Name(); name != (xml.Name{Space: ns.SASL, Local: "success"}) {
		t.Fatalf("Expected success, got %s", rec.Last())
	}
	if s.State() != xmpp.Authenticated {
		t.Errorf("Wrong state: %s", s.State())
	}
}

func TestAbort(t *testing.T) {
	d := newDispatcher(t, xmpp.WithAccounts(accounts))
	s, rec := xmpptest.NewSession(xmpp.Encrypted)
	ctx := context.Background()

	if err := d.Dispatch(ctx, authElem("PLAIN", ""), s); err != nil {
		t.Fatal(err)
	}
	if err := d.Dispatch(ctx, stanza.NewBuilder("abort", ns.SASL).Build(), s); err != nil {
		t.Fatal(err)
	}
	if c := condition(rec.Last()); c != auth.Aborted {
		t.Errorf("Expected aborted failure, got %s", rec.Last())
	}

	resp := stanza.NewBuilder("response", ns.SASL).Text(plain("", "juliet", "r0m30")).Build()
	if err := d.Dispatch(ctx, resp, s); err != nil {
		t.Fatal(err)
	}
	if c := condition(rec.Last()); c != auth.MalformedRequest {
		t.Errorf("Expected response after abort to fail, got %s", rec.Last())
	}
	if s.State() != xmpp.Encrypted {
		t.Errorf("Wrong state: %s", s.State())
	}
}

func TestNoAccounts(t *testing.T) {
	d := newDispatcher(t)
	s, rec := xmpptest.NewSession(xmpp.Encrypted)
	if err := d.Dispatch(context.Background(), authElem("PLAIN", plain("", "juliet", "r0m30")), s); err != nil {
		t.Fatal(err)
	}
	if c := condition(rec.Last()); c != auth.TemporaryAuthFailure {
		t.Errorf("Wrong condition: %s", rec.Last())
	}
}

func TestConfiguredMechanisms(t *testing.T) {
	d := newDispatcher(t, xmpp.WithAccounts(accounts), xmpp.Mechanisms(sasl.ScramSha256))
	s, rec := xmpptest.NewSession(xmpp.Encrypted)
	if err := d.Dispatch(context.Background(), authElem("PLAIN", plain("", "juliet", "r0m30")), s); err != nil {
		t.Fatal(err)
	}
	if c := condition(rec.Last()); c != auth.InvalidMechanism {
		t.Errorf("Expected unconfigured mechanism to be rejected, got %s", rec.Last())
	}
}
