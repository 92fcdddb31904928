// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmpp is the core of a server side XMPP session engine.
//
// A Session tracks the negotiation progress of one stream through the
// SessionState machine (initial, started, encryption started, encrypted,
// authenticated, closed) and owns a StanzaWriter that delivers responses to
// its peer.
// Inbound elements are processed by Handlers that are grouped by namespace into
// Dictionaries and contributed by Modules.
// Resolution and execution of handlers live in the mux and dispatch packages;
// transports live in the server (direct TCP streams) and bosh (HTTP long
// polling) packages.
package xmpp // import "github.com/pokebadgerswithspoon/vysper"
