// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

// Values of the type attribute of an iq stanza.
const (
	GetIQ    = "get"
	SetIQ    = "set"
	ResultIQ = "result"
	ErrorIQ  = "error"
)

// Values of the type attribute of a presence stanza that change availability.
const (
	UnavailablePresence = "unavailable"
	ErrorPresence       = "error"
)

// Reply returns a builder for a response to orig.
// The response has the same name and namespace, keeps the id, and swaps the to
// and from addresses.
func Reply(orig *Element) *Builder {
	return NewBuilder(orig.name.Local, orig.name.Space).
		Attr("id", orig.ID()).
		Attr("to", orig.Attr("from")).
		Attr("from", orig.Attr("to"))
}

// Result returns an iq result for orig containing the given payload.
func Result(orig *Element, payload ...*Element) *Element {
	return Reply(orig).Attr("type", ResultIQ).Child(payload...).Build()
}

// ErrorReply returns an error response to orig carrying se.
// The original payload is echoed back before the error element.
func ErrorReply(orig *Element, se Error) *Element {
	return Reply(orig).
		Attr("type", ErrorIQ).
		Child(orig.children...).
		Child(se.Element()).
		Build()
}

// IsError reports whether e is an error response.
// Errors must never be answered with another error.
func IsError(e *Element) bool {
	return e.Type() == ErrorIQ
}
