// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package server accepts client-to-server XMPP connections over TCP.
//
// Each connection carries one session.
// The server negotiates stream headers and features, upgrades the connection
// when STARTTLS is requested, and hands every element received to a
// dispatch.Dispatcher.
package server // import "github.com/pokebadgerswithspoon/vysper/server"
