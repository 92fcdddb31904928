// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/dispatch"
)

const (
	defaultClientAddr       = ":5222"
	defaultHandshakeTimeout = 30 * time.Second
)

// A Server accepts client connections and serves their sessions.
type Server struct {
	options
	d  *dispatch.Dispatcher
	rt *xmpp.Runtime
	wg sync.WaitGroup
}

// New creates a new XMPP server that dispatches stanzas with d.
func New(d *dispatch.Dispatcher, opts ...Option) *Server {
	srv := &Server{
		options: getOpts(opts...),
		d:       d,
		rt:      d.Runtime(),
	}
	if srv.logger == nil {
		srv.logger = srv.rt.Logger()
	}
	if srv.debug == nil {
		srv.debug = srv.rt.Debug()
	}
	if srv.handshakeTimeout == 0 {
		srv.handshakeTimeout = defaultHandshakeTimeout
	}
	return srv
}

// ListenAndServe listens on the TCP network address set by ClientAddr and then
// calls Serve to handle incoming connections.
// If no address was set, ":5222" is used.
func (srv *Server) ListenAndServe(ctx context.Context) error {
	addr := srv.clientAddr
	if addr == "" {
		addr = defaultClientAddr
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return srv.Serve(ctx, ln)
}

// Serve accepts incoming connections on l, serving each on its own goroutine.
// When ctx is canceled the listener is closed, open sessions are shut down and
// Serve returns once they have all ended.
func (srv *Server) Serve(ctx context.Context, l net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		l.Close()
	})
	defer stop()
	defer srv.wg.Wait()

	for {
		c, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				srv.logger.Printf("server: accept: %v", err)
				continue
			}
			return err
		}
		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()
			srv.serveConn(ctx, c)
		}()
	}
}
