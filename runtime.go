// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log"
	"sync"

	"mellium.im/sasl"

	"github.com/pokebadgerswithspoon/vysper/jid"
	"github.com/pokebadgerswithspoon/vysper/stanza"
)

// ErrNoRoute is returned by a Router when the addressed entity has no
// available session.
var ErrNoRoute = errors.New("xmpp: no route to recipient")

// Router delivers stanzas between sessions.
type Router interface {
	// Bind makes a session with a bound address reachable.
	Bind(s *Session) error
	// Unbind removes a session from the routing table.
	Unbind(s *Session)
	// Route delivers st to the session(s) addressed by its to attribute.
	// It returns ErrNoRoute (possibly wrapped) if no session is reachable.
	Route(ctx context.Context, st *stanza.Element) error
}

// AccountVerifier checks user credentials during authentication.
type AccountVerifier interface {
	Verify(username, password string) bool
}

// Accounts is an AccountVerifier backed by a map of usernames to passwords.
type Accounts map[string]string

// Verify reports whether the password matches the stored one.
func (a Accounts) Verify(username, password string) bool {
	p, ok := a[username]
	return ok && p == password
}

// Features configures the stream features offered by the server.
type Features struct {
	// StartTLSRequired marks the starttls feature as mandatory-to-negotiate.
	StartTLSRequired bool

	// Mechanisms is the ordered list of SASL mechanisms offered once the stream
	// is encrypted.
	Mechanisms []sasl.Mechanism
}

// Runtime is the state shared by all sessions of a server.
type Runtime struct {
	domain   *jid.JID
	features Features
	tls      *tls.Config
	router   Router
	accounts AccountVerifier
	logger   *log.Logger
	debug    *log.Logger

	mu            sync.RWMutex
	infoListeners []ServerInfoListener
	storage       map[string]interface{}
	modules       []Module
}

// Option configures a Runtime.
type Option func(*Runtime)

// Logger sets the logger used for errors that cannot be reported to a peer.
// By default nothing is logged.
func Logger(l *log.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// DebugLogger sets the logger used to trace stanzas and state changes.
func DebugLogger(l *log.Logger) Option {
	return func(rt *Runtime) {
		rt.debug = l
	}
}

// StartTLSRequired marks STARTTLS as mandatory-to-negotiate.
func StartTLSRequired(required bool) Option {
	return func(rt *Runtime) {
		rt.features.StartTLSRequired = required
	}
}

// Mechanisms sets the SASL mechanisms offered, in order of preference.
func Mechanisms(m ...sasl.Mechanism) Option {
	return func(rt *Runtime) {
		rt.features.Mechanisms = append([]sasl.Mechanism(nil), m...)
	}
}

// TLSConfig sets the configuration used to upgrade connections after a
// successful STARTTLS negotiation.
func TLSConfig(cfg *tls.Config) Option {
	return func(rt *Runtime) {
		rt.tls = cfg
	}
}

// WithRouter sets the router used to deliver stanzas between sessions.
func WithRouter(r Router) Option {
	return func(rt *Runtime) {
		rt.router = r
	}
}

// WithAccounts sets the credential store used for authentication.
func WithAccounts(a AccountVerifier) Option {
	return func(rt *Runtime) {
		rt.accounts = a
	}
}

// Storage registers a storage provider under name.
func Storage(name string, provider interface{}) Option {
	return func(rt *Runtime) {
		if rt.storage == nil {
			rt.storage = make(map[string]interface{})
		}
		rt.storage[name] = provider
	}
}

// NewRuntime returns a runtime for the server domain.
func NewRuntime(domain *jid.JID, opts ...Option) *Runtime {
	rt := &Runtime{
		domain: domain.Domain(),
		features: Features{
			Mechanisms: []sasl.Mechanism{sasl.Plain},
		},
	}
	for _, o := range opts {
		o(rt)
	}
	if rt.logger == nil {
		rt.logger = log.New(io.Discard, "", log.LstdFlags)
	}
	if rt.debug == nil {
		rt.debug = log.New(io.Discard, "", log.LstdFlags)
	}
	if a, ok := rt.accounts.(Accounts); ok && len(a) == 0 {
		rt.accounts = nil
	}
	return rt
}

// Domain returns the address of the server.
func (rt *Runtime) Domain() *jid.JID { return rt.domain }

// Features returns the configured stream features.
func (rt *Runtime) Features() Features { return rt.features }

// TLSConfig returns the TLS configuration or nil if STARTTLS is unavailable.
func (rt *Runtime) TLSConfig() *tls.Config { return rt.tls }

// Router returns the stanza router or nil.
func (rt *Runtime) Router() Router { return rt.router }

// Accounts returns the credential store.
func (rt *Runtime) Accounts() AccountVerifier { return rt.accounts }

// Logger returns the error logger.
func (rt *Runtime) Logger() *log.Logger { return rt.logger }

// Debug returns the debug logger.
func (rt *Runtime) Debug() *log.Logger { return rt.debug }

// IsServerAddr reports whether j addresses the server itself.
// A nil address is considered to address the server.
func (rt *Runtime) IsServerAddr(j *jid.JID) bool {
	return j == nil || (j.Localpart() == "" && j.Domainpart() == rt.domain.Domainpart())
}

// StorageProvider returns the provider registered under name or nil.
func (rt *Runtime) StorageProvider(name string) interface{} {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.storage[name]
}

// AddModule records a module and, if it implements ServerInfoListener,
// registers it for service discovery.
func (rt *Runtime) AddModule(m Module) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.modules = append(rt.modules, m)
	if l, ok := m.(ServerInfoListener); ok {
		rt.infoListeners = append(rt.infoListeners, l)
	}
}

// Modules returns the registered modules in registration order.
func (rt *Runtime) Modules() []Module {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return append([]Module(nil), rt.modules...)
}

// InfoListeners returns the registered service discovery listeners.
func (rt *Runtime) InfoListeners() []ServerInfoListener {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return append([]ServerInfoListener(nil), rt.infoListeners...)
}
