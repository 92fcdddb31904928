// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp_test

import (
	"strconv"
	"sync"
	"testing"

	xmpp "github.com/pokebadgerswithspoon/vysper"
)

func TestCanTransition(t *testing.T) {
	for i, tc := range [...]struct {
		from, to xmpp.SessionState
		ok       bool
	}{
		0:  {from: xmpp.Initial, to: xmpp.Started, ok: true},
		1:  {from: xmpp.Started, to: xmpp.EncryptionStarted, ok: true},
		2:  {from: xmpp.EncryptionStarted, to: xmpp.Encrypted, ok: true},
		3:  {from: xmpp.Encrypted, to: xmpp.Authenticated, ok: true},
		4:  {from: xmpp.Authenticated, to: xmpp.Authenticated, ok: true},
		5:  {from: xmpp.Started, to: xmpp.Encrypted, ok: true},
		6:  {from: xmpp.Initial, to: xmpp.Authenticated},
		7:  {from: xmpp.Started, to: xmpp.Authenticated},
		8:  {from: xmpp.Authenticated, to: xmpp.Started},
		9:  {from: xmpp.Initial, to: xmpp.Closed, ok: true},
		10: {from: xmpp.Authenticated, to: xmpp.Closed, ok: true},
		11: {from: xmpp.Closed, to: xmpp.Started},
		12: {from: xmpp.Closed, to: xmpp.Closed},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if got := xmpp.CanTransition(tc.from, tc.to); got != tc.ok {
				t.Errorf("%s→%s: want=%t, got=%t", tc.from, tc.to, tc.ok, got)
			}
		})
	}
}

func TestAtLeast(t *testing.T) {
	for i, tc := range [...]struct {
		s, other xmpp.SessionState
		ok       bool
	}{
		0: {s: xmpp.Authenticated, other: xmpp.Authenticated, ok: true},
		1: {s: xmpp.Authenticated, other: xmpp.Encrypted, ok: true},
		2: {s: xmpp.Encrypted, other: xmpp.Authenticated},
		3: {s: xmpp.Closed, other: xmpp.Authenticated},
		4: {s: xmpp.Authenticated, other: xmpp.Closed},
		5: {s: xmpp.Closed, other: xmpp.Closed, ok: true},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if got := tc.s.AtLeast(tc.other); got != tc.ok {
				t.Errorf("%s≥%s: want=%t, got=%t", tc.s, tc.other, tc.ok, got)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	for s, name := range map[xmpp.SessionState]string{
		xmpp.Initial:           "initial",
		xmpp.Started:           "started",
		xmpp.EncryptionStarted: "encryption-started",
		xmpp.Encrypted:         "encrypted",
		xmpp.Authenticated:     "authenticated",
		xmpp.Closed:            "closed",
		xmpp.SessionState(42):  "unknown",
	} {
		if s.String() != name {
			t.Errorf("want=%s, got=%s", name, s)
		}
	}
}

func TestStateHolder(t *testing.T) {
	h := xmpp.NewStateHolder(xmpp.Initial)
	if prev := h.SetState(xmpp.Authenticated); prev != xmpp.Initial {
		t.Errorf("Wrong previous state: %s", prev)
	}
	if h.State() != xmpp.Authenticated {
		t.Errorf("SetState must not validate transitions, got %s", h.State())
	}
	h.SetState(xmpp.Started)
	if h.Transition(xmpp.Authenticated) {
		t.Error("Transition should refuse illegal steps")
	}
	if !h.Transition(xmpp.EncryptionStarted) || h.State() != xmpp.EncryptionStarted {
		t.Errorf("Transition should allow legal steps, state is %s", h.State())
	}
}

func TestStateHolderConcurrent(t *testing.T) {
	h := xmpp.NewStateHolder(xmpp.Initial)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.SetState(xmpp.Started)
				_ = h.State()
			}
		}()
	}
	wg.Wait()
	if h.State() != xmpp.Started {
		t.Errorf("Unexpected state %s", h.State())
	}
}
