// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package router_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/internal/xmpptest"
	"github.com/pokebadgerswithspoon/vysper/jid"
	"github.com/pokebadgerswithspoon/vysper/router"
	"github.com/pokebadgerswithspoon/vysper/stanza"
	"github.com/pokebadgerswithspoon/vysper/stream"
)

var _ xmpp.Router = (*router.Table)(nil)

func bound(t *testing.T, tbl *router.Table, addr string) (*xmpp.Session, *xmpptest.Recorder) {
	t.Helper()
	s, rec := xmpptest.NewSession(xmpp.Authenticated)
	s.SetBoundJID(jid.MustParse(addr))
	if err := tbl.Bind(s); err != nil {
		t.Fatal(err)
	}
	return s, rec
}

func TestRoute(t *testing.T) {
	tbl := router.NewTable()
	_, balcony := bound(t, tbl, "juliet@example.net/balcony")
	_, chamber := bound(t, tbl, "juliet@example.net/chamber")

	for i, tc := range [...]struct {
		in      string
		err     error
		balcony int
		chamber int
	}{
		0: {in: `<message xmlns="jabber:client" to="juliet@example.net/balcony"/>`, balcony: 1},
		1: {in: `<message xmlns="jabber:client" to="juliet@example.net"/>`, balcony: 1, chamber: 1},
		2: {in: `<iq xmlns="jabber:client" type="get" to="juliet@example.net/chamber"/>`, chamber: 1},
		3: {in: `<iq xmlns="jabber:client" type="get" to="juliet@example.net"/>`, err: xmpp.ErrNoRoute},
		4: {in: `<message xmlns="jabber:client" to="romeo@example.net"/>`, err: xmpp.ErrNoRoute},
		5: {in: `<message xmlns="jabber:client" to="juliet@example.net/tomb"/>`, err: xmpp.ErrNoRoute},
		6: {in: `<message xmlns="jabber:client"/>`, err: xmpp.ErrNoRoute},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			b, c := len(balcony.Stanzas()), len(chamber.Stanzas())
			err := tbl.Route(context.Background(), stanza.MustParse(tc.in))
			if !errors.Is(err, tc.err) {
				t.Fatalf("Wrong error: want=%v, got=%v", tc.err, err)
			}
			if n := len(balcony.Stanzas()) - b; n != tc.balcony {
				t.Errorf("Wrong deliveries to balcony: want=%d, got=%d", tc.balcony, n)
			}
			if n := len(chamber.Stanzas()) - c; n != tc.chamber {
				t.Errorf("Wrong deliveries to chamber: want=%d, got=%d", tc.chamber, n)
			}
		})
	}
}

func TestRouteClosedSession(t *testing.T) {
	tbl := router.NewTable()
	s, _ := bound(t, tbl, "juliet@example.net/balcony")
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	err := tbl.Route(context.Background(), stanza.MustParse(`<message xmlns="jabber:client" to="juliet@example.net/balcony"/>`))
	if !errors.Is(err, xmpp.ErrNoRoute) {
		t.Errorf("Expected closed session to be unreachable, got %v", err)
	}
}

func TestRouteCanceled(t *testing.T) {
	tbl := router.NewTable()
	bound(t, tbl, "juliet@example.net/balcony")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tbl.Route(ctx, stanza.MustParse(`<message xmlns="jabber:client" to="juliet@example.net/balcony"/>`))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wrong error: %v", err)
	}
}

func TestBindConflict(t *testing.T) {
	tbl := router.NewTable()
	old, oldRec := bound(t, tbl, "juliet@example.net/balcony")
	_, newRec := bound(t, tbl, "juliet@example.net/balcony")

	if old.State() != xmpp.Closed || !oldRec.Closed() {
		t.Error("Expected replaced session to be closed")
	}
	last := oldRec.Last()
	if last == nil {
		t.Fatal("Expected conflict error to be written")
	}
	if se, ok := stream.UnmarshalError(last); !ok || !errors.Is(se, stream.Conflict) {
		t.Errorf("Expected conflict stream error, got %s", last)
	}

	if err := tbl.Route(context.Background(), stanza.MustParse(`<message xmlns="jabber:client" to="juliet@example.net/balcony"/>`)); err != nil {
		t.Fatal(err)
	}
	if len(newRec.Stanzas()) != 1 {
		t.Error("Expected stanza to reach the new session")
	}

	tbl.Unbind(old)
	if len(tbl.Sessions(jid.MustParse("juliet@example.net/balcony"))) != 1 {
		t.Error("Unbinding a replaced session must not remove its replacement")
	}
}

func TestBindErrors(t *testing.T) {
	tbl := router.NewTable()
	s, _ := xmpptest.NewSession(xmpp.Authenticated)
	s.SetBoundJID(nil)
	if err := tbl.Bind(s); !errors.Is(err, router.ErrNotBound) {
		t.Errorf("Wrong error for unbound session: %v", err)
	}
	s.SetBoundJID(jid.MustParse("juliet@example.net"))
	if err := tbl.Bind(s); !errors.Is(err, router.ErrNotBound) {
		t.Errorf("Wrong error for bare address: %v", err)
	}
}

func TestUnbind(t *testing.T) {
	tbl := router.NewTable()
	s, _ := bound(t, tbl, "juliet@example.net/balcony")
	tbl.Unbind(s)
	if n := len(tbl.Sessions(jid.MustParse("juliet@example.net"))); n != 0 {
		t.Errorf("Expected no sessions after unbind, got %d", n)
	}
	if tbl.Sessions(nil) != nil {
		t.Error("Expected nil for nil address")
	}
}
