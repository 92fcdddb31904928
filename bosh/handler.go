// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package bosh

import (
	"context"
	"encoding/xml"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/dispatch"
	"github.com/pokebadgerswithspoon/vysper/internal/ns"
	"github.com/pokebadgerswithspoon/vysper/jid"
	"github.com/pokebadgerswithspoon/vysper/stanza"
	"github.com/pokebadgerswithspoon/vysper/stream"
)

const (
	defaultMaxBodySize  = 1 << 20
	defaultReapInterval = 10 * time.Second
)

var xmlMediaTypes = []contenttype.MediaType{
	contenttype.NewMediaType("text/xml"),
	contenttype.NewMediaType("application/xml"),
}

// Option configures a Handler.
type Option func(*Handler)

// Logger sets the logger used for errors.
func Logger(l *log.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// DebugLogger sets the logger used for tracing requests.
func DebugLogger(l *log.Logger) Option {
	return func(h *Handler) {
		h.debug = l
	}
}

// WaitCeiling limits the wait time clients may request, in seconds.
func WaitCeiling(sec int) Option {
	return func(h *Handler) {
		h.ceiling = sec
	}
}

// MaxBodySize limits the size of request bodies in bytes.
func MaxBodySize(n int64) Option {
	return func(h *Handler) {
		h.maxBody = n
	}
}

// ReapInterval sets how often Run checks for idle sessions.
func ReapInterval(d time.Duration) Option {
	return func(h *Handler) {
		h.reapInterval = d
	}
}

// Handler is the HTTP endpoint of the BOSH connection manager.
type Handler struct {
	d            *dispatch.Dispatcher
	rt           *xmpp.Runtime
	logger       *log.Logger
	debug        *log.Logger
	ceiling      int
	maxBody      int64
	reapInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*Context
}

// NewHandler returns a handler that dispatches the stanzas of its sessions
// with d.
// Loggers default to the loggers of the dispatcher's runtime.
func NewHandler(d *dispatch.Dispatcher, opts ...Option) *Handler {
	h := &Handler{
		d:            d,
		rt:           d.Runtime(),
		logger:       d.Runtime().Logger(),
		debug:        d.Runtime().Debug(),
		ceiling:      DefaultWait,
		maxBody:      defaultMaxBodySize,
		reapInterval: defaultReapInterval,
		sessions:     make(map[string]*Context),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// ServeHTTP satisfies http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("Content-Type") != "" {
		if ct, err := contenttype.GetMediaType(r); err != nil || !isXML(ct) {
			http.Error(w, "content type must be XML", http.StatusUnsupportedMediaType)
			return
		}
	}

	body, err := stanza.Decode(xml.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)), nil)
	if err != nil || body.Name() != bodyName {
		h.debug.Printf("bosh: invalid request body from %s: %v", r.RemoteAddr, err)
		h.respond(w, DefaultContentType, terminate(BadRequest))
		return
	}
	rid, err := strconv.ParseInt(body.Attr("rid"), 10, 64)
	if err != nil {
		h.respond(w, DefaultContentType, terminate(BadRequest))
		return
	}

	sid := body.Attr("sid")
	if sid == "" {
		h.create(w, body)
		return
	}
	c := h.Session(sid)
	if c == nil {
		h.respond(w, DefaultContentType, terminate(ItemNotFound))
		return
	}
	h.handle(w, r, c, body, rid)
}

func isXML(ct contenttype.MediaType) bool {
	for _, mt := range xmlMediaTypes {
		if ct.Matches(mt) {
			return true
		}
	}
	return false
}

func (h *Handler) create(w http.ResponseWriter, body *stanza.Element) {
	if to := body.Attr("to"); to != "" {
		j, err := jid.Parse(to)
		if err != nil || !h.rt.IsServerAddr(j) {
			h.respond(w, DefaultContentType, terminate(HostUnknown))
			return
		}
	}

	c := NewContext(uuid.NewString(), h.ceiling, h.logger)
	if wait, err := strconv.Atoi(body.Attr("wait")); err == nil {
		c.SetWait(wait)
	}
	if hold, err := strconv.Atoi(body.Attr("hold")); err == nil {
		c.SetHold(hold)
	}
	if ver := body.Attr("ver"); ver != "" {
		c.SetVersion(ver)
	}
	if ct := body.Attr("content"); ct != "" {
		c.SetContentType(ct)
	}
	s := c.Session()
	if lang := body.Lang(); lang != "" {
		if err := s.SetLang(lang); err != nil {
			h.debug.Printf("bosh: session %s: %v", c.SID(), err)
		}
	}
	if v := body.AttrNS(xml.Name{Space: ns.XBOSH, Local: "version"}); v != "" {
		if parsed, err := stream.ParseVersion(v); err == nil && parsed.Less(stream.DefaultVersion) {
			s.SetVersion(parsed)
		}
	}

	features, err := xmpp.FeaturesFor(h.rt, s)
	if err != nil {
		h.logger.Printf("bosh: session %s: %v", c.SID(), err)
		h.respond(w, DefaultContentType, terminate(UndefinedCondition))
		return
	}

	h.mu.Lock()
	h.sessions[c.SID()] = c
	h.mu.Unlock()
	h.debug.Printf("bosh: session %s created", c.SID())

	resp := newBody().
		Attr("sid", c.SID()).
		Attr("wait", strconv.Itoa(c.Wait())).
		Attr("inactivity", strconv.Itoa(c.Inactivity())).
		Attr("polling", strconv.Itoa(c.Polling())).
		Attr("requests", strconv.Itoa(c.Requests())).
		Attr("hold", strconv.Itoa(c.Hold())).
		Attr("ver", c.Version().String()).
		Attr("from", h.rt.Domain().String()).
		Attr("authid", c.SID()).
		Attr("secure", "true").
		Attr("xmlns:xmpp", ns.XBOSH).
		Attr("xmpp:version", s.Version().String()).
		Attr("xmpp:restartlogic", "true").
		Child(features).
		Build()
	h.respond(w, c.ContentType(), resp)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, c *Context, body *stanza.Element, rid int64) {
	if !c.enter() {
		h.logger.Printf("bosh: session %s: too many concurrent requests", c.SID())
		h.end(c)
		h.respond(w, c.ContentType(), terminate(PolicyViolation))
		return
	}
	defer c.leave()

	restart := body.AttrNS(xml.Name{Space: ns.XBOSH, Local: "restart"}) == "true"
	empty := len(body.Children()) == 0 && body.Type() == "" && !restart
	if !c.poll(time.Now(), empty) {
		h.logger.Printf("bosh: session %s: polling faster than every %ds", c.SID(), c.Polling())
		h.end(c)
		h.respond(w, c.ContentType(), terminate(PolicyViolation))
		return
	}

	s := c.Session()
	for _, child := range body.Children() {
		if err := h.d.Dispatch(r.Context(), content(child), s); err != nil {
			h.debug.Printf("bosh: session %s: %v", c.SID(), err)
			break
		}
	}

	if body.Type() == "terminate" {
		h.debug.Printf("bosh: session %s terminated by client", c.SID())
		h.end(c)
		h.respond(w, c.ContentType(), terminate(""))
		return
	}
	if restart && s.State() != xmpp.Closed {
		features, err := xmpp.FeaturesFor(h.rt, s)
		if err != nil {
			h.logger.Printf("bosh: session %s: restart: %v", c.SID(), err)
		} else {
			c.Write(features)
		}
	}

	req := NewRequest(rid)
	c.AddRequest(req)
	select {
	case resp := <-req.Response():
		if resp.Type() == "terminate" {
			h.remove(c)
		}
		h.respond(w, c.ContentType(), resp)
	case <-r.Context().Done():
		c.Abandon(req)
		h.debug.Printf("bosh: session %s: request %d abandoned", c.SID(), rid)
	}
}

func (h *Handler) respond(w http.ResponseWriter, contentType string, body *stanza.Element) {
	w.Header().Set("Content-Type", contentType)
	if err := encode(w, body); err != nil {
		h.logger.Printf("bosh: writing response: %v", err)
	}
}

// Session returns the context of the session with the given ID or nil.
func (h *Handler) Session(sid string) *Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[sid]
}

func (h *Handler) remove(c *Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[c.SID()] == c {
		delete(h.sessions, c.SID())
	}
}

// end removes the session and closes it.
func (h *Handler) end(c *Context) {
	h.remove(c)
	s := c.Session()
	if router := h.rt.Router(); router != nil && s.BoundJID() != nil {
		router.Unbind(s)
	}
	if err := s.Close(); err != nil {
		h.logger.Printf("bosh: closing session %s: %v", c.SID(), err)
	}
}

// Len returns the number of active sessions.
func (h *Handler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Reap ends every session that has been idle for longer than its inactivity
// period at now, and any session that has been closed.
// It returns the number of sessions removed.
func (h *Handler) Reap(now time.Time) int {
	h.mu.Lock()
	var stale []*Context
	for _, c := range h.sessions {
		if c.Closed() || c.Idle(now) {
			stale = append(stale, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stale {
		h.debug.Printf("bosh: session %s reaped", c.SID())
		h.end(c)
	}
	return len(stale)
}

// Run reaps idle sessions periodically until ctx is canceled.
// It then ends all remaining sessions.
func (h *Handler) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.reapInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			h.Reap(now)
		case <-ctx.Done():
			h.mu.Lock()
			var all []*Context
			for _, c := range h.sessions {
				all = append(all, c)
			}
			h.mu.Unlock()
			for _, c := range all {
				c.Write(stream.SystemShutdown.Element())
				h.end(c)
			}
			return ctx.Err()
		}
	}
}
