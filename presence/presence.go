// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package presence tracks the latest presence broadcast by the resources of
// connected accounts.
package presence // import "github.com/pokebadgerswithspoon/vysper/presence"

import (
	"context"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// Module handles presence stanzas addressed to the server.
type Module struct {
	cache LatestPresenceCache
}

// New returns a presence module.
// If cache is nil, the cache registered in the runtime under StorageName is
// used, or a MemoryCache if there is none.
func New(cache LatestPresenceCache) *Module {
	return &Module{cache: cache}
}

// Name satisfies xmpp.Module.
func (*Module) Name() string { return "presence" }

// Version satisfies xmpp.Module.
func (*Module) Version() string { return "1.0" }

// Dictionaries satisfies xmpp.Module.
func (m *Module) Dictionaries() []xmpp.Dictionary {
	return []xmpp.Dictionary{
		xmpp.NewAdditiveDictionary(ns.Client, handler{m: m}),
	}
}

// Initialize satisfies xmpp.Initializer.
func (m *Module) Initialize(rt *xmpp.Runtime) error {
	if m.cache != nil {
		return nil
	}
	if c, ok := rt.StorageProvider(StorageName).(LatestPresenceCache); ok {
		m.cache = c
		return nil
	}
	rt.Debug().Printf("presence: using in-memory cache")
	m.cache = &MemoryCache{}
	return nil
}

// Cache returns the cache in use.
func (m *Module) Cache() LatestPresenceCache {
	return m.cache
}

type handler struct {
	m *Module
}

func (handler) Name() string { return "presence" }

func (handler) Verify(st *stanza.Element) bool {
	return st != nil && st.Name().Local == "presence"
}

func (handler) SessionRequired() bool { return true }

func (h handler) Execute(_ context.Context, st *stanza.Element, rt *xmpp.Runtime, _ bool, s *xmpp.Session, _ *xmpp.StateHolder) (*stanza.Element, error) {
	from := s.BoundJID()
	if from == nil || from.IsBare() {
		// Presence before a resource is bound has nobody to be attributed to.
		return nil, stanza.Error{Type: stanza.Modify, Condition: stanza.NotAcceptable}
	}
	switch st.Type() {
	case "":
		if err := h.m.cache.Put(from, st); err != nil {
			rt.Logger().Printf("presence: caching presence of %s: %v", from, err)
		}
	case stanza.UnavailablePresence:
		h.m.cache.Remove(from)
	}
	return nil, nil
}
