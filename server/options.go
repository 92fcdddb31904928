// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package server

import (
	"log"
	"time"
)

// Option configures a Server.
type Option func(*options)

type options struct {
	clientAddr       string // TCP address to listen on, ":5222" if empty.
	logger           *log.Logger
	debug            *log.Logger
	handshakeTimeout time.Duration
}

func getOpts(o ...Option) (res options) {
	for _, f := range o {
		f(&res)
	}
	return
}

// ClientAddr sets the interface and port that the server will listen on for
// inbound connections from XMPP clients.
func ClientAddr(addr string) Option {
	return func(o *options) {
		o.clientAddr = addr
	}
}

// Logger sets the logger used for connection errors.
// It defaults to the logger of the runtime.
func Logger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// DebugLogger sets the logger used to trace connections.
// It defaults to the debug logger of the runtime.
func DebugLogger(l *log.Logger) Option {
	return func(o *options) {
		o.debug = l
	}
}

// HandshakeTimeout limits the time allowed to complete a TLS handshake.
// The default is 30 seconds.
func HandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.handshakeTimeout = d
	}
}
