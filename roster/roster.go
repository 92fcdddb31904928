// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package roster implements contact list management (RFC 6121 §2) for
// accounts served by the server.
package roster // import "github.com/pokebadgerswithspoon/vysper/roster"

import (
	"context"
	"encoding/xml"
	"strings"

	"github.com/google/uuid"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/jid"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// NS is the roster namespace provided as a convenience.
const NS = ns.Roster

// Values of the subscription attribute of roster items.
const (
	SubscriptionNone   = "none"
	SubscriptionTo     = "to"
	SubscriptionFrom   = "from"
	SubscriptionBoth   = "both"
	SubscriptionRemove = "remove"
)

// Item represents a contact in the roster.
type Item struct {
	JID          *jid.JID
	Name         string
	Subscription string
	Group        []string
}

// Element returns the item as a roster <item/> element.
func (i Item) Element() *stanza.Element {
	b := stanza.NewBuilder("item", NS).
		Addr("jid", i.JID).
		Attr("name", i.Name).
		Attr("subscription", i.Subscription)
	for _, g := range i.Group {
		b.Child(stanza.NewBuilder("group", NS).Text(g).Build())
	}
	return b.Build()
}

func unmarshalItem(e *stanza.Element) (Item, error) {
	j, err := jid.Parse(e.Attr("jid"))
	if err != nil {
		return Item{}, err
	}
	item := Item{
		JID:          j,
		Name:         e.Attr("name"),
		Subscription: e.Attr("subscription"),
	}
	for _, c := range e.Children() {
		if c.Name().Local != "group" {
			continue
		}
		if g := strings.TrimSpace(c.Text()); g != "" {
			item.Group = append(item.Group, g)
		}
	}
	return item, nil
}

// sessionLister is implemented by routers that can enumerate the sessions of
// an account, such as router.Table.
type sessionLister interface {
	Sessions(j *jid.JID) []*xmpp.Session
}

// Module serves roster requests from a Store.
type Module struct {
	store Store
}

// New returns a roster module.
// If store is nil, the store registered in the runtime under StorageName is
// used when the module is initialized.
func New(store Store) *Module {
	return &Module{store: store}
}

// Name satisfies xmpp.Module.
func (*Module) Name() string { return "roster" }

// Version satisfies xmpp.Module.
func (*Module) Version() string { return "1.0beta" }

// Dictionaries satisfies xmpp.Module.
func (m *Module) Dictionaries() []xmpp.Dictionary {
	return []xmpp.Dictionary{xmpp.NewDictionary(NS, handler{m: m})}
}

// Initialize satisfies xmpp.Initializer.
func (m *Module) Initialize(rt *xmpp.Runtime) error {
	if m.store != nil {
		return nil
	}
	if s, ok := rt.StorageProvider(StorageName).(Store); ok {
		m.store = s
		return nil
	}
	rt.Logger().Printf("roster: no store configured, rosters will be kept in memory")
	m.store = &MemoryStore{}
	return nil
}

// ServerInfo satisfies xmpp.ServerInfoListener.
func (*Module) ServerInfo(xmpp.InfoRequest) []string {
	return []string{NS}
}

// Store returns the store in use.
func (m *Module) Store() Store {
	return m.store
}

type handler struct {
	m *Module
}

func (handler) Name() string { return "iq" }

func (handler) Verify(st *stanza.Element) bool {
	return xmpp.VerifyNamespace(st, "iq", NS)
}

func (handler) SessionRequired() bool { return true }

func (h handler) Execute(ctx context.Context, st *stanza.Element, rt *xmpp.Runtime, _ bool, s *xmpp.Session, _ *xmpp.StateHolder) (*stanza.Element, error) {
	owner := s.BoundJID()
	if owner == nil {
		return nil, stanza.Error{Type: stanza.Auth, Condition: stanza.NotAuthorized}
	}
	if to := st.To(); to != nil && !to.Bare().Equal(owner.Bare()) {
		return nil, stanza.Error{Type: stanza.Auth, Condition: stanza.Forbidden}
	}
	query := st.Child(xml.Name{Space: NS, Local: "query"})
	if query == nil {
		return nil, stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest}
	}

	switch st.Type() {
	case stanza.GetIQ:
		return h.get(ctx, st, owner)
	case stanza.SetIQ:
		return h.set(ctx, st, query, rt, s, owner)
	case stanza.ResultIQ, stanza.ErrorIQ:
		// Acknowledgements of roster pushes.
		return nil, nil
	}
	return nil, stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest}
}

func (h handler) get(ctx context.Context, st *stanza.Element, owner *jid.JID) (*stanza.Element, error) {
	items, err := h.m.store.Items(ctx, owner)
	if err != nil {
		return nil, stanza.Error{Type: stanza.Wait, Condition: stanza.InternalServerError}
	}
	q := stanza.NewBuilder("query", NS)
	for _, item := range items {
		q.Child(item.Element())
	}
	return stanza.Result(st, q.Build()), nil
}

func (h handler) set(ctx context.Context, st, query *stanza.Element, rt *xmpp.Runtime, s *xmpp.Session, owner *jid.JID) (*stanza.Element, error) {
	children := query.Children()
	if len(children) != 1 || children[0].Name().Local != "item" {
		return nil, stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest}
	}
	item, err := unmarshalItem(children[0])
	if err != nil {
		return nil, stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest, Text: err.Error()}
	}
	item.JID = item.JID.Bare()
	if item.JID.Equal(owner.Bare()) {
		return nil, stanza.Error{Type: stanza.Modify, Condition: stanza.NotAllowed}
	}

	if item.Subscription == SubscriptionRemove {
		if _, ok, err := h.m.store.Item(ctx, owner, item.JID); err != nil || !ok {
			return nil, stanza.Error{Type: stanza.Cancel, Condition: stanza.ItemNotFound}
		}
		err = h.m.store.Remove(ctx, owner, item.JID)
	} else {
		// Clients cannot change subscription states through the roster.
		item.Subscription = SubscriptionNone
		if old, ok, _ := h.m.store.Item(ctx, owner, item.JID); ok {
			item.Subscription = old.Subscription
		}
		err = h.m.store.Put(ctx, owner, item)
	}
	if err != nil {
		rt.Logger().Printf("roster: updating %s: %v", owner, err)
		return nil, stanza.Error{Type: stanza.Wait, Condition: stanza.InternalServerError}
	}

	push(rt, s, owner, item)
	return stanza.Result(st), nil
}

// push notifies every session of owner of a roster change.
func push(rt *xmpp.Runtime, s *xmpp.Session, owner *jid.JID, item Item) {
	targets := []*xmpp.Session{s}
	if l, ok := rt.Router().(sessionLister); ok {
		if found := l.Sessions(owner.Bare()); len(found) > 0 {
			targets = found
		}
	}
	for _, t := range targets {
		to := t.BoundJID()
		t.Write(stanza.NewBuilder("iq", ns.Client).
			Attr("type", stanza.SetIQ).
			Attr("id", "push-"+uuid.NewString()).
			Addr("to", to).
			Child(stanza.NewBuilder("query", NS).Child(item.Element()).Build()).
			Build())
	}
}
