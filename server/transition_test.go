// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package server

import (
	"errors"
	"strconv"
	"testing"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/stream"
)

func TestTransition(t *testing.T) {
	for i, tc := range [...]struct {
		from xmpp.SessionState
		to   xmpp.SessionState
		err  error
		want xmpp.SessionState
	}{
		0: {from: xmpp.Initial, to: xmpp.Started, want: xmpp.Started},
		1: {from: xmpp.Started, to: xmpp.Encrypted, want: xmpp.Encrypted},
		2: {from: xmpp.EncryptionStarted, to: xmpp.Encrypted, want: xmpp.Encrypted},
		3: {from: xmpp.Closed, to: xmpp.Encrypted, err: stream.PolicyViolation, want: xmpp.Closed},
		4: {from: xmpp.Initial, to: xmpp.Encrypted, err: stream.PolicyViolation, want: xmpp.Initial},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			h := xmpp.NewStateHolder(tc.from)
			err := transition(h, tc.to)
			if !errors.Is(err, tc.err) {
				t.Errorf("Wrong error: want=%v, got=%v", tc.err, err)
			}
			if h.State() != tc.want {
				t.Errorf("Wrong state: want=%s, got=%s", tc.want, h.State())
			}
		})
	}
}
