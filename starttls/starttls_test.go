// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package starttls_test

import (
	"context"
	"strconv"
	"testing"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/internal/xmpptest"
	"github.com/pokebadgerswithspoon/vysper/stanza"
	"github.com/pokebadgerswithspoon/vysper/starttls"
)

var _ xmpp.Module = starttls.Module{}

func TestExecute(t *testing.T) {
	for i, tc := range [...]struct {
		state    xmpp.SessionState
		in       string
		want     string
		newState xmpp.SessionState
		switched int
	}{
		0: {state: xmpp.Initial, in: `<starttls xmlns="urn:ietf:params:xml:ns:xmpp-tls"/>`, want: "failure", newState: xmpp.Initial},
		1: {state: xmpp.Encrypted, in: `<starttls xmlns="urn:ietf:params:xml:ns:xmpp-tls"/>`, want: "failure", newState: xmpp.Encrypted},
		2: {state: xmpp.Started, in: `<starttls xmlns="urn:ietf:params:xml:ns:xmpp-tls"/>`, want: "proceed", newState: xmpp.EncryptionStarted, switched: 1},
		3: {state: xmpp.Started, in: `<starttls xmlns="urn:example:wrong"/>`, want: "failure", newState: xmpp.Started},
		4: {state: xmpp.Authenticated, in: `<starttls xmlns="urn:ietf:params:xml:ns:xmpp-tls"/>`, want: "failure", newState: xmpp.Authenticated},
		5: {state: xmpp.EncryptionStarted, in: `<starttls xmlns="urn:ietf:params:xml:ns:xmpp-tls"/>`, want: "failure", newState: xmpp.EncryptionStarted},
		6: {state: xmpp.Closed, in: `<starttls xmlns="urn:ietf:params:xml:ns:xmpp-tls"/>`, want: "failure", newState: xmpp.Closed},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			s, rec := xmpptest.NewSession(tc.state)
			resp, err := starttls.Handler{}.Execute(context.Background(), stanza.MustParse(tc.in), xmpptest.NewRuntime(), true, s, s.StateHolder())
			if err != nil {
				t.Fatal(err)
			}
			if resp.Name().Local != tc.want {
				t.Errorf("Wrong response: want=%s, got=%s", tc.want, resp)
			}
			if s.State() != tc.newState {
				t.Errorf("Wrong state: want=%s, got=%s", tc.newState, s.State())
			}
			if rec.Switched() != tc.switched {
				t.Errorf("Wrong number of TLS switches: want=%d, got=%d", tc.switched, rec.Switched())
			}
		})
	}
}
