// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ns provides namespace constants shared by the session engine and
// its feature modules.
package ns // import "github.com/pokebadgerswithspoon/vysper/internal/ns"

// List of commonly used namespaces.
const (
	Bind      = "urn:ietf:params:xml:ns:xmpp-bind"
	Client    = "jabber:client"
	DiscoInfo = "http://jabber.org/protocol/disco#info"
	HTTPBind  = "http://jabber.org/protocol/httpbind"
	Ping      = "urn:xmpp:ping"
	Roster    = "jabber:iq:roster"
	SASL      = "urn:ietf:params:xml:ns:xmpp-sasl"
	Server    = "jabber:server"
	Session   = "urn:ietf:params:xml:ns:xmpp-session"
	Stanza    = "urn:ietf:params:xml:ns:xmpp-stanzas"
	StartTLS  = "urn:ietf:params:xml:ns:xmpp-tls"
	Stream    = "http://etherx.jabber.org/streams"
	Streams   = "urn:ietf:params:xml:ns:xmpp-streams"
	XBOSH     = "urn:xmpp:xbosh"
	XML       = "http://www.w3.org/XML/1998/namespace"
)
