// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package jid implements XMPP addresses (historically called "Jabber ID's" or
// "JID's") as described in RFC 7622.
//
// Addresses are used by the session engine to route stanzas between bound
// sessions and to stamp the server domain on generated responses.
package jid // import "github.com/pokebadgerswithspoon/vysper/jid"
