// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"sync"
)

// SessionState is the negotiation progress of a session.
type SessionState uint8

// The states of a session in the order they are normally reached.
// Closed is terminal and may be entered from any state.
const (
	Initial SessionState = iota
	Started
	EncryptionStarted
	Encrypted
	Authenticated
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Initial:
		return "initial"
	case Started:
		return "started"
	case EncryptionStarted:
		return "encryption-started"
	case Encrypted:
		return "encrypted"
	case Authenticated:
		return "authenticated"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// AtLeast reports whether s has progressed to other or beyond.
// A closed session is never at least in any other state.
func (s SessionState) AtLeast(other SessionState) bool {
	if s == Closed {
		return other == Closed
	}
	return s >= other && other != Closed
}

var transitions = map[SessionState][]SessionState{
	Initial:           {Started},
	Started:           {EncryptionStarted, Encrypted},
	EncryptionStarted: {Encrypted},
	Encrypted:         {Authenticated},
	Authenticated:     {Authenticated},
}

// CanTransition reports whether moving from one state to another is a legal
// step of stream negotiation.
// The state holder itself never enforces the table; handlers consult it before
// they change the state.
func CanTransition(from, to SessionState) bool {
	if from == Closed {
		return false
	}
	if to == Closed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateHolder holds the state of a single session.
// It is safe for concurrent use.
type StateHolder struct {
	mu    sync.RWMutex
	state SessionState
}

// NewStateHolder returns a holder in the given state.
func NewStateHolder(s SessionState) *StateHolder {
	return &StateHolder{state: s}
}

// State returns the current state.
func (h *StateHolder) State() SessionState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// SetState unconditionally changes the state and returns the previous one.
func (h *StateHolder) SetState(s SessionState) SessionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.state
	h.state = s
	return prev
}

// Transition changes the state only if the table allows moving from the
// current state to s.
// It reports whether the state was changed.
func (h *StateHolder) Transition(s SessionState) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !CanTransition(h.state, s) {
		return false
	}
	h.state = s
	return true
}
