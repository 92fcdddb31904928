// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stream contains XMPP stream errors as defined by RFC 6120 §4.9 and
// protocol version handling.
//
// Stream errors are unrecoverable: a handler that returns one causes the
// session to be closed after the error has been delivered.
package stream // import "github.com/pokebadgerswithspoon/vysper/stream"
