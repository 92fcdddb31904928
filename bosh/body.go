// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package bosh

import (
	"encoding/xml"
	"io"

	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/internal/wire"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// Terminal binding conditions defined in XEP-0124 §17.
const (
	BadRequest         = "bad-request"
	HostGone           = "host-gone"
	HostUnknown        = "host-unknown"
	ItemNotFound       = "item-not-found"
	PolicyViolation    = "policy-violation"
	RemoteStreamError  = "remote-stream-error"
	SystemShutdown     = "system-shutdown"
	UndefinedCondition = "undefined-condition"
)

var bodyName = xml.Name{Space: ns.HTTPBind, Local: "body"}

func newBody() *stanza.Builder {
	return stanza.NewBuilder(bodyName.Local, bodyName.Space).
		Attr("xmlns:"+wire.StreamPrefix, ns.Stream)
}

// wrap returns a body carrying st.
func wrap(st ...*stanza.Element) *stanza.Element {
	return newBody().Child(st...).Build()
}

// empty returns a body with no payload.
func empty() *stanza.Element {
	return newBody().Build()
}

// merge appends the payload of next to acc.
// A nil acc results in next.
func merge(acc, next *stanza.Element) *stanza.Element {
	if acc == nil {
		return next
	}
	return acc.Builder().Child(next.Children()...).Build()
}

// terminate returns a body ending the session with the given condition.
// An empty condition is a normal termination.
func terminate(condition string) *stanza.Element {
	return newBody().
		Attr("type", "terminate").
		Attr("condition", condition).
		Build()
}

// content moves elements that inherited the binding namespace into the client
// namespace.
func content(e *stanza.Element) *stanza.Element {
	if e.Name().Space != ns.HTTPBind {
		return e
	}
	b := e.Builder().Namespace(ns.Client).ClearChildren()
	for _, c := range e.Children() {
		b.Child(content(c))
	}
	return b.Build()
}

// encode writes body to w.
func encode(w io.Writer, body *stanza.Element) error {
	return wire.Encode(xml.NewEncoder(w), body)
}
