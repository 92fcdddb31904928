// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"encoding/base64"
	"fmt"

	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/jid"
	"github.com/pokebadgerswithspoon/vysper/stanza"
	"github.com/pokebadgerswithspoon/vysper/stream"
)

// NoFeaturesError is returned when stream features are requested for a state
// that offers none.
type NoFeaturesError struct {
	State SessionState
}

func (e NoFeaturesError) Error() string {
	return fmt.Sprintf("xmpp: no stream features in state %s", e.State)
}

// Opener is the server's answer to a stream header: the header of the response
// stream and the features offered on it.
type Opener struct {
	Info     stream.Info
	Features *stanza.Element
}

// StreamOpener builds the response stream header and the features offered to a
// session in its current state.
func StreamOpener(rt *Runtime, forClient bool, from *jid.JID, version stream.Version, s *Session) (Opener, error) {
	features, err := FeaturesFor(rt, s)
	if err != nil {
		return Opener{}, err
	}
	info := stream.Info{
		From:    from,
		ID:      s.ID(),
		Version: version,
		XMLNS:   ns.Server,
	}
	if forClient {
		info.XMLNS = ns.Client
	}
	if lang := s.Lang(); !lang.IsRoot() {
		info.Lang = lang.String()
	}
	return Opener{Info: info, Features: features}, nil
}

// StreamOpenerForError builds the response stream header for a peer whose
// stream cannot be accepted, along with the error to send before closing it.
func StreamOpenerForError(rt *Runtime, forClient bool, from *jid.JID, s *Session, err stream.Error) (stream.Info, *stanza.Element) {
	info := stream.Info{
		From:    from,
		ID:      s.ID(),
		Version: stream.DefaultVersion,
		XMLNS:   ns.Server,
	}
	if forClient {
		info.XMLNS = ns.Client
	}
	if info.From == nil {
		info.From = rt.Domain()
	}
	return info, err.Element()
}

// FeaturesFor returns the <stream:features/> element for the state of s.
// Offering the post-authentication features marks the session as reopening.
func FeaturesFor(rt *Runtime, s *Session) (*stanza.Element, error) {
	b := stanza.NewBuilder("features", ns.Stream)
	switch state := s.State(); state {
	case Initial, Started:
		tls := stanza.NewBuilder("starttls", ns.StartTLS)
		if rt.Features().StartTLSRequired {
			tls.Child(stanza.NewBuilder("required", ns.StartTLS).Build())
		}
		b.Child(tls.Build())
	case Encrypted:
		b.Child(MechanismsFeature(rt))
	case Authenticated:
		s.SetIsReopeningStream()
		b.Child(
			stanza.NewBuilder("bind", ns.Bind).
				Child(stanza.NewBuilder("required", ns.Bind).Build()).
				Build(),
			stanza.NewBuilder("session", ns.Session).
				Child(stanza.NewBuilder("required", ns.Session).Build()).
				Build(),
		)
	default:
		return nil, NoFeaturesError{State: state}
	}
	return b.Build(), nil
}

// MechanismsFeature returns the <mechanisms/> feature listing the configured SASL
// mechanisms in order.
func MechanismsFeature(rt *Runtime) *stanza.Element {
	b := stanza.NewBuilder("mechanisms", ns.SASL)
	for _, m := range rt.Features().Mechanisms {
		b.Child(stanza.NewBuilder("mechanism", ns.SASL).Text(m.Name).Build())
	}
	return b.Build()
}

// TLSProceed tells the peer to start the TLS handshake.
func TLSProceed() *stanza.Element {
	return stanza.NewBuilder("proceed", ns.StartTLS).Build()
}

// TLSFailure tells the peer that STARTTLS negotiation failed.
func TLSFailure() *stanza.Element {
	return stanza.NewBuilder("failure", ns.StartTLS).Build()
}

// SASLFailure reports a failed authentication exchange with the given
// condition, for example "not-authorized".
func SASLFailure(condition string) *stanza.Element {
	return stanza.NewBuilder("failure", ns.SASL).
		Child(stanza.NewBuilder(condition, ns.SASL).Build()).
		Build()
}

// AuthAborted acknowledges an abort sent by the peer.
func AuthAborted() *stanza.Element {
	return SASLFailure("aborted")
}

// SASLChallenge sends server data during a multi-step exchange.
func SASLChallenge(data []byte) *stanza.Element {
	return stanza.NewBuilder("challenge", ns.SASL).Text(encodeSASL(data)).Build()
}

// SASLSuccess completes an authentication exchange.
func SASLSuccess(data []byte) *stanza.Element {
	return stanza.NewBuilder("success", ns.SASL).Text(encodeSASL(data)).Build()
}

func encodeSASL(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}
