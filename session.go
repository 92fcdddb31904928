// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/pokebadgerswithspoon/vysper/jid"
	"github.com/pokebadgerswithspoon/vysper/stanza"
	"github.com/pokebadgerswithspoon/vysper/stream"
)

// SessionOption configures a new session.
type SessionOption func(*Session)

// SessionID sets the identifier of the session instead of generating a random
// one.
func SessionID(id string) SessionOption {
	return func(s *Session) {
		s.id = id
	}
}

// ServerToServer marks the session as a stream between two servers.
func ServerToServer(s *Session) {
	s.s2s = true
}

// InitialState starts the session in a state other than Initial.
// Transports that are secured below XMPP start in Encrypted.
func InitialState(state SessionState) SessionOption {
	return func(s *Session) {
		s.state.SetState(state)
	}
}

// Session is the server side of one XMPP stream.
// It owns its state holder and its delivery sink.
type Session struct {
	id     string
	state  *StateHolder
	writer StanzaWriter
	s2s    bool

	mu        sync.Mutex
	version   stream.Version
	lang      language.Tag
	remote    *jid.JID
	bound     *jid.JID
	reopening bool
	attrs     map[string]interface{}
	closeOnce sync.Once
	closeErr  error
}

// NewSession creates a session that delivers stanzas to w.
func NewSession(w StanzaWriter, opts ...SessionOption) *Session {
	s := &Session{
		state:   NewStateHolder(Initial),
		writer:  w,
		version: stream.DefaultVersion,
		lang:    language.Und,
	}
	for _, o := range opts {
		o(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	return s
}

// ID returns the stream identifier.
func (s *Session) ID() string { return s.id }

// ServerToServer reports whether the session is a server-to-server stream.
func (s *Session) ServerToServer() bool { return s.s2s }

// StateHolder returns the holder of the session state.
func (s *Session) StateHolder() *StateHolder { return s.state }

// State is a shortcut for s.StateHolder().State().
func (s *Session) State() SessionState { return s.state.State() }

// SetState is a shortcut for s.StateHolder().SetState(state).
func (s *Session) SetState(state SessionState) { s.state.SetState(state) }

// Writer returns the delivery sink of the session.
func (s *Session) Writer() StanzaWriter { return s.writer }

// Write delivers st to the peer of the session.
// Stanzas written after the session is closed are dropped.
func (s *Session) Write(st *stanza.Element) {
	if st == nil || s.State() == Closed {
		return
	}
	s.writer.Write(st)
}

// SwitchToTLS tells the transport to upgrade the connection to TLS.
// Transports that cannot switch ignore the request.
func (s *Session) SwitchToTLS() {
	if sw, ok := s.writer.(TLSSwitcher); ok {
		sw.SwitchToTLS()
	}
}

// Version returns the negotiated stream version.
func (s *Session) Version() stream.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// SetVersion records the negotiated stream version.
func (s *Session) SetVersion(v stream.Version) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = v
}

// Lang returns the preferred language of the peer.
func (s *Session) Lang() language.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// SetLang parses and records the preferred language of the peer.
// On error the previous language is kept.
func (s *Session) SetLang(tag string) error {
	t, err := language.Parse(tag)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lang = t
	return nil
}

// RemoteAddr returns the address the peer claimed in its stream header, if
// any.
func (s *Session) RemoteAddr() *jid.JID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

// SetRemoteAddr records the address claimed by the peer.
func (s *Session) SetRemoteAddr(j *jid.JID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote = j
}

// BoundJID returns the address of the session after authentication and
// resource binding.
// Before binding it is the bare address of the authenticated user, or nil.
func (s *Session) BoundJID() *jid.JID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// SetBoundJID records the address of the session.
func (s *Session) SetBoundJID(j *jid.JID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound = j
}

// SetIsReopeningStream marks that the peer must open a new stream on the same
// transport, as required after successful authentication.
func (s *Session) SetIsReopeningStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reopening = true
}

// IsReopeningStream reports and clears the reopening flag.
func (s *Session) IsReopeningStream() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.reopening
	s.reopening = false
	return r
}

// Attribute returns per-session data stored by a module.
func (s *Session) Attribute(key string) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attrs[key]
}

// SetAttribute stores per-session data for a module.
// A nil value deletes the key.
func (s *Session) SetAttribute(key string, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == nil {
		delete(s.attrs, key)
		return
	}
	if s.attrs == nil {
		s.attrs = make(map[string]interface{})
	}
	s.attrs[key] = v
}

// Close moves the session to the Closed state and closes its writer.
// It is safe to call Close more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.SetState(Closed)
		s.closeErr = s.writer.Close()
	})
	return s.closeErr
}
