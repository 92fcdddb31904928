// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package disco answers service discovery info requests (XEP-0030) addressed
// to the server.
package disco // import "github.com/pokebadgerswithspoon/vysper/disco"

import (
	"context"
	"sort"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// NS is the namespace of info queries.
const NS = ns.DiscoInfo

// Identity is the category and type of a node on the network.
type Identity struct {
	Category string
	Type     string
	Name     string
}

// ServerIdentity is the identity reported for the server.
var ServerIdentity = Identity{Category: "server", Type: "im"}

// Element returns the identity as an element.
func (i Identity) Element() *stanza.Element {
	b := stanza.NewBuilder("identity", NS).
		Attr("category", i.Category).
		Attr("type", i.Type)
	if i.Name != "" {
		b.Attr("name", i.Name)
	}
	return b.Build()
}

// Module answers info queries with the features advertised by every registered
// xmpp.ServerInfoListener.
type Module struct{}

// Name satisfies xmpp.Module.
func (Module) Name() string { return "XEP-0030 Service Discovery" }

// Version satisfies xmpp.Module.
func (Module) Version() string { return "1.0" }

// Dictionaries satisfies xmpp.Module.
func (Module) Dictionaries() []xmpp.Dictionary {
	return []xmpp.Dictionary{xmpp.NewDictionary(NS, infoHandler{})}
}

// ServerInfo satisfies xmpp.ServerInfoListener.
func (Module) ServerInfo(xmpp.InfoRequest) []string {
	return []string{NS}
}

// Features collects the features reported by the listeners of rt for req.
// The result is sorted and contains no duplicates.
func Features(rt *xmpp.Runtime, req xmpp.InfoRequest) []string {
	seen := make(map[string]struct{})
	var features []string
	for _, l := range rt.InfoListeners() {
		for _, f := range l.ServerInfo(req) {
			if _, ok := seen[f]; ok || f == "" {
				continue
			}
			seen[f] = struct{}{}
			features = append(features, f)
		}
	}
	sort.Strings(features)
	return features
}

type infoHandler struct{}

func (infoHandler) Name() string { return "iq" }

func (infoHandler) Verify(st *stanza.Element) bool {
	return xmpp.VerifyNamespace(st, "iq", NS)
}

func (infoHandler) SessionRequired() bool { return true }

func (infoHandler) Execute(_ context.Context, st *stanza.Element, rt *xmpp.Runtime, _ bool, _ *xmpp.Session, _ *xmpp.StateHolder) (*stanza.Element, error) {
	switch st.Type() {
	case stanza.GetIQ:
	case stanza.ResultIQ, stanza.ErrorIQ:
		return nil, nil
	default:
		return nil, stanza.Error{Type: stanza.Cancel, Condition: stanza.FeatureNotImplemented}
	}

	var node string
	if q := st.FirstChild(); q != nil {
		node = q.Attr("node")
	}
	if node != "" {
		return nil, stanza.Error{Type: stanza.Cancel, Condition: stanza.ItemNotFound}
	}

	query := stanza.NewBuilder("query", NS).Child(ServerIdentity.Element())
	for _, f := range Features(rt, xmpp.NewInfoRequest(st, node)) {
		query.Child(stanza.NewBuilder("feature", NS).Attr("var", f).Build())
	}
	return stanza.Result(st, query.Build()), nil
}
