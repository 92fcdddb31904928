// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"github.com/pokebadgerswithspoon/vysper/jid"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// Module is a pluggable server feature.
type Module interface {
	Name() string
	Version() string
	Dictionaries() []Dictionary
}

// Initializer is implemented by modules that need access to the runtime before
// the first stanza is dispatched.
type Initializer interface {
	Initialize(rt *Runtime) error
}

// InfoRequest describes a service discovery request addressed to the server.
type InfoRequest struct {
	From *jid.JID
	To   *jid.JID
	Node string
	ID   string
}

// NewInfoRequest builds an InfoRequest from an iq stanza and the node queried.
func NewInfoRequest(iq *stanza.Element, node string) InfoRequest {
	return InfoRequest{
		From: iq.From(),
		To:   iq.To(),
		Node: node,
		ID:   iq.ID(),
	}
}

// ServerInfoListener is implemented by modules that advertise features of the
// server through service discovery.
type ServerInfoListener interface {
	ServerInfo(req InfoRequest) []string
}
