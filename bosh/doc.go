// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package bosh implements XMPP over BOSH (XEP-0124 and XEP-0206).
//
// A BOSH session is carried by a sequence of HTTP requests.
// The server holds each request open until it has something to send or until
// the negotiated wait time elapses, and stanzas produced while no request is
// held are queued until the client sends the next one.
// Context implements this multiplexing for one session and is the session's
// xmpp.StanzaWriter; Handler is the HTTP endpoint that creates sessions and
// feeds their requests to a Context.
package bosh // import "github.com/pokebadgerswithspoon/vysper/bosh"
