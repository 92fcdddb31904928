// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stanza contains the parsed XML element tree exchanged over a session
// and stanza level errors.
//
// Stanzas (message, presence, and iq) are the "primitives" of XMPP, but any
// first level child of a stream (for example a SASL <auth/> or a STARTTLS
// request) is represented by the same immutable Element type.
// Elements are created by decoding them from an xml.TokenReader or by using a
// Builder, and are never modified once built; derived elements are produced by
// copying an element into a new Builder.
package stanza // import "github.com/pokebadgerswithspoon/vysper/stanza"
