// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package presence

import (
	"errors"
	"sort"
	"sync"

	"github.com/pokebadgerswithspoon/vysper/jid"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// StorageName is the name under which a LatestPresenceCache is looked up in
// the runtime.
const StorageName = "presence"

// ErrBareJID is returned when caching presence for an address without a
// resource.
var ErrBareJID = errors.New("presence: entity must be a full JID")

// LatestPresenceCache keeps the most recent available presence sent by each
// connected resource.
type LatestPresenceCache interface {
	// Put replaces the presence cached for entity, which must be a full JID.
	Put(entity *jid.JID, p *stanza.Element) error

	// Get returns the presence cached for entity or nil.
	Get(entity *jid.JID) *stanza.Element

	// Remove drops the presence cached for entity.
	Remove(entity *jid.JID)

	// Bare returns the presences cached for every resource of the account.
	Bare(account *jid.JID) []*stanza.Element
}

// MemoryCache is a LatestPresenceCache held in memory.
// The zero value is ready to use.
type MemoryCache struct {
	mu        sync.RWMutex
	presences map[string]map[string]*stanza.Element
}

// Put satisfies LatestPresenceCache.
func (c *MemoryCache) Put(entity *jid.JID, p *stanza.Element) error {
	if entity == nil || entity.IsBare() {
		return ErrBareJID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.presences == nil {
		c.presences = make(map[string]map[string]*stanza.Element)
	}
	bare := entity.Bare().String()
	res, ok := c.presences[bare]
	if !ok {
		res = make(map[string]*stanza.Element)
		c.presences[bare] = res
	}
	res[entity.Resourcepart()] = p
	return nil
}

// Get satisfies LatestPresenceCache.
func (c *MemoryCache) Get(entity *jid.JID) *stanza.Element {
	if entity == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.presences[entity.Bare().String()][entity.Resourcepart()]
}

// Remove satisfies LatestPresenceCache.
func (c *MemoryCache) Remove(entity *jid.JID) {
	if entity == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bare := entity.Bare().String()
	delete(c.presences[bare], entity.Resourcepart())
	if len(c.presences[bare]) == 0 {
		delete(c.presences, bare)
	}
}

// Bare satisfies LatestPresenceCache.
// Presences are ordered by resource.
func (c *MemoryCache) Bare(account *jid.JID) []*stanza.Element {
	if account == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := c.presences[account.Bare().String()]
	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*stanza.Element, 0, len(keys))
	for _, k := range keys {
		out = append(out, res[k])
	}
	return out
}
