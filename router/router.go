// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package router delivers stanzas between the sessions bound to a server.
package router // import "github.com/pokebadgerswithspoon/vysper/router"

import (
	"context"
	"errors"
	"fmt"
	"sync"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/jid"
	"github.com/pokebadgerswithspoon/vysper/stanza"
	"github.com/pokebadgerswithspoon/vysper/stream"
)

// ErrNotBound is returned when binding a session without a full address.
var ErrNotBound = errors.New("router: session has no bound resource")

// Table is an in-memory routing table of bound sessions.
// It is safe for concurrent use.
type Table struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*xmpp.Session
}

// NewTable returns an empty routing table.
func NewTable() *Table {
	return &Table{sessions: make(map[string]map[string]*xmpp.Session)}
}

// Bind makes s reachable at its bound address.
// If another session is bound to the same address it receives a conflict
// stream error and is closed.
func (t *Table) Bind(s *xmpp.Session) error {
	addr := s.BoundJID()
	if addr == nil || addr.IsBare() {
		return ErrNotBound
	}
	bare := addr.Bare().String()

	t.mu.Lock()
	resources := t.sessions[bare]
	if resources == nil {
		resources = make(map[string]*xmpp.Session)
		t.sessions[bare] = resources
	}
	old := resources[addr.Resourcepart()]
	resources[addr.Resourcepart()] = s
	t.mu.Unlock()

	if old != nil && old != s {
		old.Write(stream.Conflict.Element())
		return old.Close()
	}
	return nil
}

// Unbind removes s from the table.
// It does nothing if the address of s is bound to a different session.
func (t *Table) Unbind(s *xmpp.Session) {
	addr := s.BoundJID()
	if addr == nil || addr.IsBare() {
		return
	}
	bare := addr.Bare().String()

	t.mu.Lock()
	defer t.mu.Unlock()
	resources := t.sessions[bare]
	if resources[addr.Resourcepart()] != s {
		return
	}
	delete(resources, addr.Resourcepart())
	if len(resources) == 0 {
		delete(t.sessions, bare)
	}
}

// Sessions returns the open sessions of the account addressed by j.
// If j has a resourcepart at most one session is returned.
func (t *Table) Sessions(j *jid.JID) []*xmpp.Session {
	if j == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	resources := t.sessions[j.Bare().String()]
	var out []*xmpp.Session
	if !j.IsBare() {
		if s := resources[j.Resourcepart()]; s != nil && s.State() != xmpp.Closed {
			out = append(out, s)
		}
		return out
	}
	for _, s := range resources {
		if s.State() != xmpp.Closed {
			out = append(out, s)
		}
	}
	return out
}

// Route delivers st to the session addressed by its to attribute.
// Messages and presence addressed to a bare address are delivered to every
// session of the account; iq stanzas require a full address.
func (t *Table) Route(ctx context.Context, st *stanza.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := st.To()
	if to == nil {
		return fmt.Errorf("%w: missing address", xmpp.ErrNoRoute)
	}
	if to.IsBare() && st.Name().Local == "iq" {
		return fmt.Errorf("%w: %s", xmpp.ErrNoRoute, to)
	}
	targets := t.Sessions(to)
	if len(targets) == 0 {
		return fmt.Errorf("%w: %s", xmpp.ErrNoRoute, to)
	}
	for _, s := range targets {
		s.Write(st)
	}
	return nil
}
