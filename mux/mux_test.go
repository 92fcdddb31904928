// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package mux_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/mux"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

type testHandler struct {
	name string
	tag  string
}

func (h testHandler) Name() string { return h.name }
func (testHandler) Verify(*stanza.Element) bool { return true }
func (testHandler) SessionRequired() bool { return false }
func (testHandler) Execute(context.Context, *stanza.Element, *xmpp.Runtime, bool, *xmpp.Session, *xmpp.StateHolder) (*stanza.Element, error) {
	return nil, nil
}

func newRegistry(t *testing.T) *mux.Registry {
	t.Helper()
	r, err := mux.New(
		xmpp.NewDictionary(ns.Client,
			testHandler{name: "iq", tag: "client-iq"},
			testHandler{name: "message", tag: "client-message"},
			testHandler{name: "presence", tag: "client-presence"},
		),
		xmpp.NewDictionary(ns.Ping, testHandler{name: "iq", tag: "ping"}),
		xmpp.NewDictionary(ns.StartTLS, testHandler{name: "starttls", tag: "starttls"}),
		xmpp.NewDictionary(ns.SASL,
			testHandler{name: "auth", tag: "auth"},
			testHandler{name: "abort", tag: "sasl-abort"},
		),
		xmpp.NewDictionary("urn:example:other", testHandler{name: "abort", tag: "other-abort"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestResolve(t *testing.T) {
	r := newRegistry(t)
	for i, tc := range [...]struct {
		in     string
		tag    string
		result mux.Result
	}{
		0:  {in: `<starttls xmlns="urn:ietf:params:xml:ns:xmpp-tls"/>`, tag: "starttls", result: mux.Found},
		1:  {in: `<iq xmlns="jabber:client" type="get"><ping xmlns="urn:xmpp:ping"/></iq>`, tag: "ping", result: mux.Found},
		2:  {in: `<iq xmlns="jabber:client" type="get"><query xmlns="jabber:iq:version"/></iq>`, tag: "client-iq", result: mux.Found},
		3:  {in: `<message xmlns="jabber:client"><body>hi</body></message>`, tag: "client-message", result: mux.Found},
		4:  {in: `<starttls/>`, tag: "starttls", result: mux.Found},
		5:  {in: `<abort/>`, result: mux.Ambiguous},
		6:  {in: `<unknown/>`, result: mux.NotFound},
		7:  {in: `<unknown xmlns="urn:example:unknown"/>`, result: mux.NotFound},
		8:  {in: `<starttls xmlns="urn:example:wrong"/>`, result: mux.NotFound},
		9:  {in: `<iq xmlns="jabber:server"><ping xmlns="urn:xmpp:ping"/></iq>`, tag: "ping", result: mux.Found},
		10: {in: `<abort xmlns="urn:ietf:params:xml:ns:xmpp-sasl"/>`, tag: "sasl-abort", result: mux.Found},
		11: {in: `<auth xmlns="urn:ietf:params:xml:ns:xmpp-sasl"><ping xmlns="urn:xmpp:ping"/></auth>`, tag: "auth", result: mux.Found},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			h, result := r.Resolve(stanza.MustParse(tc.in))
			if result != tc.result {
				t.Fatalf("Wrong result: want=%s, got=%s", tc.result, result)
			}
			if tc.result != mux.Found {
				if h != nil {
					t.Errorf("Expected no handler, got %v", h)
				}
				return
			}
			if tag := h.(testHandler).tag; tag != tc.tag {
				t.Errorf("Wrong handler: want=%s, got=%s", tc.tag, tag)
			}
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	for i, tc := range [...]struct {
		dicts []xmpp.Dictionary
		err   error
	}{
		0: {
			dicts: []xmpp.Dictionary{
				xmpp.NewDictionary(ns.Client, testHandler{name: "iq"}),
				xmpp.NewDictionary(ns.Client, testHandler{name: "message"}),
			},
			err: mux.ErrDuplicateNamespace,
		},
		1: {
			dicts: []xmpp.Dictionary{
				xmpp.NewAdditiveDictionary(ns.Client, testHandler{name: "iq"}),
				xmpp.NewAdditiveDictionary(ns.Client, testHandler{name: "message"}),
			},
		},
		2: {
			dicts: []xmpp.Dictionary{
				xmpp.NewAdditiveDictionary(ns.Client, testHandler{name: "iq"}),
				xmpp.NewDictionary(ns.Client, testHandler{name: "message"}),
			},
			err: mux.ErrDuplicateNamespace,
		},
		3: {
			dicts: []xmpp.Dictionary{
				xmpp.NewAdditiveDictionary(ns.Client, testHandler{name: "iq"}),
				xmpp.NewAdditiveDictionary(ns.Client, testHandler{name: "iq"}),
			},
			err: mux.ErrDuplicateHandler,
		},
		4: {
			dicts: []xmpp.Dictionary{
				xmpp.NewDictionary(ns.Client, testHandler{name: "iq"}, testHandler{name: "iq"}),
			},
			err: mux.ErrDuplicateHandler,
		},
		5: {
			dicts: []xmpp.Dictionary{
				xmpp.NewDictionary(ns.Client, nil),
			},
			err: mux.ErrNilHandler,
		},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			_, err := mux.New(tc.dicts...)
			if !errors.Is(err, tc.err) {
				t.Errorf("Wrong error: want=%v, got=%v", tc.err, err)
			}
		})
	}
}

func TestRegisterFailureKeepsRegistry(t *testing.T) {
	r := newRegistry(t)
	before := r.Namespaces()
	err := r.Register(xmpp.NewDictionary(ns.Ping, testHandler{name: "iq"}))
	if !errors.Is(err, mux.ErrDuplicateNamespace) {
		t.Fatalf("Wrong error: %v", err)
	}
	if len(r.Namespaces()) != len(before) {
		t.Error("Failed registration changed the registry")
	}
	h, res := r.Resolve(stanza.MustParse(`<iq xmlns="jabber:client"><ping xmlns="urn:xmpp:ping"/></iq>`))
	if res != mux.Found || h.(testHandler).tag != "ping" {
		t.Error("Original binding was replaced")
	}
}

func TestAdditiveMerge(t *testing.T) {
	r, err := mux.New(
		xmpp.NewAdditiveDictionary(ns.Client, testHandler{name: "iq", tag: "a"}),
		xmpp.NewAdditiveDictionary(ns.Client, testHandler{name: "message", tag: "b"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	for _, local := range []string{"iq", "message"} {
		if _, res := r.Resolve(stanza.NewBuilder(local, ns.Client).Build()); res != mux.Found {
			t.Errorf("Expected %s to be found after merge", local)
		}
	}
}
