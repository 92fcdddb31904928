// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"context"
	"encoding/xml"

	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// Handler processes one kind of first level element of a stream.
//
// Execute returns the response to deliver to the session (or nil).
// Returning a stanza.Error results in an error reply to the sender.
// Returning a stream.Error is fatal: the error is delivered and the session is
// closed.
// Any other error is reported to the sender as a bad-request.
type Handler interface {
	// Name is the local name of the elements handled.
	Name() string

	// Verify performs a final check that the handler can process st.
	Verify(st *stanza.Element) bool

	// SessionRequired reports whether the session must be authenticated before
	// the handler may run.
	SessionRequired() bool

	// Execute processes st.
	// Outbound is true if st was sent by the session's own peer.
	Execute(ctx context.Context, st *stanza.Element, rt *Runtime, outbound bool, s *Session, state *StateHolder) (*stanza.Element, error)
}

// VerifyNamespace checks that st has the given local name and that either st
// itself or its first child element is qualified by ns.
// An empty ns only checks the name.
func VerifyNamespace(st *stanza.Element, name, ns string) bool {
	if st == nil || st.Name().Local != name {
		return false
	}
	if ns == "" || st.Name().Space == ns {
		return true
	}
	first := st.FirstChild()
	return first != nil && first.Name().Space == ns
}

// Dictionary is a set of handlers for elements in a single namespace.
type Dictionary interface {
	Namespace() string
	Handlers() []Handler
}

// NamespaceDictionary is the default Dictionary implementation.
type NamespaceDictionary struct {
	ns       string
	handlers []Handler
	additive bool
}

// NewDictionary creates a dictionary for the namespace ns.
func NewDictionary(ns string, handlers ...Handler) *NamespaceDictionary {
	return &NamespaceDictionary{ns: ns, handlers: handlers}
}

// NewAdditiveDictionary creates a dictionary that may be merged with other
// additive dictionaries registered for the same namespace.
func NewAdditiveDictionary(ns string, handlers ...Handler) *NamespaceDictionary {
	d := NewDictionary(ns, handlers...)
	d.additive = true
	return d
}

// Namespace returns the namespace the dictionary is bound to.
func (d *NamespaceDictionary) Namespace() string { return d.ns }

// Handlers returns the handlers of the dictionary.
func (d *NamespaceDictionary) Handlers() []Handler {
	return append([]Handler(nil), d.handlers...)
}

// Additive reports whether the dictionary may share its namespace.
func (d *NamespaceDictionary) Additive() bool { return d.additive }

// Lookup returns the handler bound to name.
func (d *NamespaceDictionary) Lookup(name xml.Name) Handler {
	if name.Space != "" && name.Space != d.ns {
		return nil
	}
	for _, h := range d.handlers {
		if h.Name() == name.Local {
			return h
		}
	}
	return nil
}
