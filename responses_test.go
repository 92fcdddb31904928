// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp_test

import (
	"encoding/xml"
	"errors"
	"strconv"
	"testing"

	"mellium.im/sasl"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/internal/xmpptest"
	"github.com/pokebadgerswithspoon/vysper/jid"
	"github.com/pokebadgerswithspoon/vysper/stream"
)

func TestStreamOpenerEncryptedListsMechanisms(t *testing.T) {
	rt := xmpptest.NewRuntime(xmpp.Mechanisms(sasl.ScramSha256, sasl.Plain, sasl.ScramSha1))
	s, _ := xmpptest.NewSession(xmpp.Encrypted)

	op, err := xmpp.StreamOpener(rt, true, rt.Domain(), stream.DefaultVersion, s)
	if err != nil {
		t.Fatal(err)
	}
	mechs := op.Features.Child(xml.Name{Space: ns.SASL, Local: "mechanisms"})
	if mechs == nil {
		t.Fatalf("No mechanisms feature in %s", op.Features)
	}
	want := []string{"SCRAM-SHA-256", "PLAIN", "SCRAM-SHA-1"}
	children := mechs.Children()
	if len(children) != len(want) {
		t.Fatalf("Wrong number of mechanisms: want=%d, got=%d", len(want), len(children))
	}
	for i, c := range children {
		if c.Text() != want[i] {
			t.Errorf("Mechanism %d: want=%s, got=%s", i, want[i], c.Text())
		}
	}
	if op.Features.Child(xml.Name{Space: ns.StartTLS, Local: "starttls"}) != nil {
		t.Error("Encrypted sessions must not be offered starttls")
	}
}

func TestStreamOpenerInfo(t *testing.T) {
	rt := xmpptest.NewRuntime()
	s, _ := xmpptest.NewSession(xmpp.Started)
	if err := s.SetLang("en"); err != nil {
		t.Fatal(err)
	}
	from := jid.MustParse("example.net")

	for i, forClient := range []bool{true, false} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			op, err := xmpp.StreamOpener(rt, forClient, from, stream.DefaultVersion, s)
			if err != nil {
				t.Fatal(err)
			}
			want := ns.Server
			if forClient {
				want = ns.Client
			}
			if op.Info.XMLNS != want {
				t.Errorf("Wrong content namespace: want=%s, got=%s", want, op.Info.XMLNS)
			}
			if op.Info.ID != s.ID() || !op.Info.From.Equal(from) || op.Info.Lang != "en" {
				t.Errorf("Wrong stream info: %+v", op.Info)
			}
		})
	}
}

func TestFeaturesFor(t *testing.T) {
	for i, tc := range [...]struct {
		state    xmpp.SessionState
		required bool
		want     []xml.Name
		err      bool
	}{
		0: {state: xmpp.Started, want: []xml.Name{{Space: ns.StartTLS, Local: "starttls"}}},
		1: {state: xmpp.Started, required: true, want: []xml.Name{{Space: ns.StartTLS, Local: "starttls"}}},
		2: {state: xmpp.Initial, want: []xml.Name{{Space: ns.StartTLS, Local: "starttls"}}},
		3: {state: xmpp.Encrypted, want: []xml.Name{{Space: ns.SASL, Local: "mechanisms"}}},
		4: {state: xmpp.Authenticated, want: []xml.Name{{Space: ns.Bind, Local: "bind"}, {Space: ns.Session, Local: "session"}}},
		5: {state: xmpp.EncryptionStarted, err: true},
		6: {state: xmpp.Closed, err: true},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			rt := xmpptest.NewRuntime(xmpp.StartTLSRequired(tc.required))
			s, _ := xmpptest.NewSession(tc.state)
			features, err := xmpp.FeaturesFor(rt, s)
			if tc.err {
				var nf xmpp.NoFeaturesError
				if !errors.As(err, &nf) || nf.State != tc.state {
					t.Fatalf("Expected NoFeaturesError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if features.Name() != (xml.Name{Space: ns.Stream, Local: "features"}) {
				t.Errorf("Wrong features name: %+v", features.Name())
			}
			children := features.Children()
			if len(children) != len(tc.want) {
				t.Fatalf("Wrong number of features: want=%d, got=%d", len(tc.want), len(children))
			}
			for i, c := range children {
				if c.Name() != tc.want[i] {
					t.Errorf("Feature %d: want=%+v, got=%+v", i, tc.want[i], c.Name())
				}
			}
			if tc.state == xmpp.Started {
				req := children[0].Child(xml.Name{Local: "required"}) != nil
				if req != tc.required {
					t.Errorf("Wrong required flag: want=%t, got=%t", tc.required, req)
				}
			}
			if tc.state == xmpp.Authenticated && !s.IsReopeningStream() {
				t.Error("Offering bind should mark the stream as reopening")
			}
		})
	}
}

func TestNegotiationResponses(t *testing.T) {
	for i, tc := range [...]struct {
		got  xml.Name
		want xml.Name
	}{
		0: {got: xmpp.TLSProceed().Name(), want: xml.Name{Space: ns.StartTLS, Local: "proceed"}},
		1: {got: xmpp.TLSFailure().Name(), want: xml.Name{Space: ns.StartTLS, Local: "failure"}},
		2: {got: xmpp.AuthAborted().FirstChild().Name(), want: xml.Name{Space: ns.SASL, Local: "aborted"}},
		3: {got: xmpp.SASLSuccess(nil).Name(), want: xml.Name{Space: ns.SASL, Local: "success"}},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("want=%+v, got=%+v", tc.want, tc.got)
			}
		})
	}
	if text := xmpp.SASLChallenge([]byte("abc")).Text(); text != "YWJj" {
		t.Errorf("Challenge not base64 encoded: %q", text)
	}
}

func TestStreamOpenerForError(t *testing.T) {
	rt := xmpptest.NewRuntime()
	s, _ := xmpptest.NewSession(xmpp.Initial)

	info, e := xmpp.StreamOpenerForError(rt, true, nil, s, stream.UnsupportedVersion)
	if info.XMLNS != ns.Client {
		t.Errorf("Wrong namespace: want=%s, got=%s", ns.Client, info.XMLNS)
	}
	if !info.From.Equal(rt.Domain()) {
		t.Errorf("Expected header from server domain, got %v", info.From)
	}
	if info.ID != s.ID() {
		t.Errorf("Wrong stream id: want=%s, got=%s", s.ID(), info.ID)
	}
	se, ok := stream.UnmarshalError(e)
	if !ok || !errors.Is(se, stream.UnsupportedVersion) {
		t.Errorf("Wrong error element: %s", e)
	}
}
