// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package roster

import (
	"context"
	"sort"
	"sync"

	"github.com/pokebadgerswithspoon/vysper/jid"
)

// StorageName is the name under which a Store is looked up in the runtime.
const StorageName = "roster"

// Store persists the contact lists of accounts.
// Owners are always bare JIDs.
type Store interface {
	Items(ctx context.Context, owner *jid.JID) ([]Item, error)
	Item(ctx context.Context, owner, contact *jid.JID) (Item, bool, error)
	Put(ctx context.Context, owner *jid.JID, item Item) error
	Remove(ctx context.Context, owner, contact *jid.JID) error
}

// MemoryStore is a Store that keeps rosters in memory.
// The zero value is ready to use.
type MemoryStore struct {
	mu      sync.RWMutex
	rosters map[string]map[string]Item
}

// Items returns the roster of owner ordered by contact address.
func (m *MemoryStore) Items(_ context.Context, owner *jid.JID) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := m.rosters[owner.Bare().String()]
	items := make([]Item, 0, len(r))
	for _, item := range r {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].JID.String() < items[j].JID.String()
	})
	return items, nil
}

// Item returns a single roster entry.
func (m *MemoryStore) Item(_ context.Context, owner, contact *jid.JID) (Item, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.rosters[owner.Bare().String()][contact.Bare().String()]
	return item, ok, nil
}

// Put adds or replaces a roster entry.
func (m *MemoryStore) Put(_ context.Context, owner *jid.JID, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rosters == nil {
		m.rosters = make(map[string]map[string]Item)
	}
	key := owner.Bare().String()
	r, ok := m.rosters[key]
	if !ok {
		r = make(map[string]Item)
		m.rosters[key] = r
	}
	item.JID = item.JID.Bare()
	r[item.JID.String()] = item
	return nil
}

// Remove deletes a roster entry.
// Removing an entry that does not exist is not an error.
func (m *MemoryStore) Remove(_ context.Context, owner, contact *jid.JID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := owner.Bare().String()
	delete(m.rosters[key], contact.Bare().String())
	if len(m.rosters[key]) == 0 {
		delete(m.rosters, key)
	}
	return nil
}
