// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package attr contains unexported functions for manipulating XML attribute
// lists.
package attr // import "github.com/pokebadgerswithspoon/vysper/internal/attr"

import (
	"encoding/xml"
)

// Get returns the index and value of the first attribute with the provided
// local name from a list of attributes, or -1 and an empty string if no such
// attribute exists.
// Namespaced attributes (for example xml:lang) never match.
func Get(attr []xml.Attr, local string) (int, string) {
	for i, a := range attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return i, a.Value
		}
	}
	return -1, ""
}

// Set returns a copy of attr where the first attribute with the given name has
// been replaced by value, or with the attribute appended if it did not exist.
// An empty value removes the attribute instead.
func Set(attr []xml.Attr, name xml.Name, value string) []xml.Attr {
	out := make([]xml.Attr, 0, len(attr)+1)
	found := false
	for _, a := range attr {
		if a.Name != name {
			out = append(out, a)
			continue
		}
		if found {
			continue
		}
		found = true
		if value != "" {
			out = append(out, xml.Attr{Name: name, Value: value})
		}
	}
	if !found && value != "" {
		out = append(out, xml.Attr{Name: name, Value: value})
	}
	return out
}

// IsNamespaceDecl reports whether a is an xmlns or xmlns:prefix declaration as
// left in place by an xml.Decoder.
func IsNamespaceDecl(a xml.Attr) bool {
	return a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns")
}
