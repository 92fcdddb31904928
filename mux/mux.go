// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package mux implements the registry that maps first level stream elements to
// the handler responsible for them.
package mux // import "github.com/pokebadgerswithspoon/vysper/mux"

import (
	"encoding/xml"
	"errors"
	"fmt"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// Errors returned when registering dictionaries.
var (
	ErrDuplicateNamespace = errors.New("mux: namespace already has a dictionary")
	ErrDuplicateHandler   = errors.New("mux: element already has a handler")
	ErrNilHandler         = errors.New("mux: nil handler")
)

// Result is the outcome of resolving an element.
type Result uint8

// Possible results of a resolution.
const (
	NotFound Result = iota
	Found
	Ambiguous
)

func (r Result) String() string {
	switch r {
	case Found:
		return "found"
	case Ambiguous:
		return "ambiguous"
	}
	return "not-found"
}

type binding struct {
	additive bool
	handlers map[string]xmpp.Handler
}

// Registry resolves elements to handlers.
// It is built once before dispatching begins and is read-only afterwards, so
// concurrent calls to Resolve are safe as long as Register is not called
// concurrently with them.
type Registry struct {
	namespaces map[string]*binding
	order      []string
}

// New returns a registry containing the given dictionaries.
func New(dicts ...xmpp.Dictionary) (*Registry, error) {
	r := &Registry{namespaces: make(map[string]*binding)}
	for _, d := range dicts {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

type additive interface {
	Additive() bool
}

func isAdditive(d xmpp.Dictionary) bool {
	a, ok := d.(additive)
	return ok && a.Additive()
}

// Register adds the handlers of a dictionary.
// Registering a second dictionary for a namespace fails unless both
// dictionaries are additive.
// Binding two handlers to the same element name in a namespace always fails.
func (r *Registry) Register(d xmpp.Dictionary) error {
	space := d.Namespace()
	b, exists := r.namespaces[space]
	if exists && !(b.additive && isAdditive(d)) {
		return fmt.Errorf("%w: %q", ErrDuplicateNamespace, space)
	}
	if !exists {
		b = &binding{additive: isAdditive(d), handlers: make(map[string]xmpp.Handler)}
	}

	handlers := d.Handlers()
	seen := make(map[string]struct{}, len(handlers))
	for _, h := range handlers {
		if h == nil {
			return ErrNilHandler
		}
		_, dup := seen[h.Name()]
		if _, ok := b.handlers[h.Name()]; ok || dup {
			return fmt.Errorf("%w: {%s}%s", ErrDuplicateHandler, space, h.Name())
		}
		seen[h.Name()] = struct{}{}
	}
	for _, h := range handlers {
		b.handlers[h.Name()] = h
	}
	if !exists {
		r.namespaces[space] = b
		r.order = append(r.order, space)
	}
	return nil
}

// Namespaces returns the registered namespaces in registration order.
func (r *Registry) Namespaces() []string {
	return append([]string(nil), r.order...)
}

// Lookup returns the handler bound to an exact name.
func (r *Registry) Lookup(name xml.Name) xmpp.Handler {
	b := r.namespaces[name.Space]
	if b == nil {
		return nil
	}
	return b.handlers[name.Local]
}

// Resolve finds the handler for st.
//
// For stanzas the namespace of the payload (the first child element) is tried
// before the namespace of the stanza itself, so that for example an iq
// carrying a ping is routed to the ping dictionary.
// If st does not declare a namespace the element name alone is used: exactly
// one matching handler across all dictionaries is found, more than one is
// ambiguous.
func (r *Registry) Resolve(st *stanza.Element) (xmpp.Handler, Result) {
	name := st.Name()
	if name.Space == "" {
		return r.resolveName(name.Local)
	}

	if st.IsStanza() {
		if first := st.FirstChild(); first != nil && first.Name().Space != name.Space {
			if h := r.Lookup(xml.Name{Space: first.Name().Space, Local: name.Local}); h != nil {
				return h, Found
			}
		}
	}
	if h := r.Lookup(name); h != nil {
		return h, Found
	}
	return nil, NotFound
}

func (r *Registry) resolveName(local string) (xmpp.Handler, Result) {
	var found xmpp.Handler
	for _, space := range r.order {
		h := r.namespaces[space].handlers[local]
		if h == nil {
			continue
		}
		if found != nil {
			return nil, Ambiguous
		}
		found = h
	}
	if found == nil {
		return nil, NotFound
	}
	return found, Found
}
