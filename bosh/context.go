// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package bosh

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/elnormous/contenttype"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/stanza"
	"github.com/pokebadgerswithspoon/vysper/stream"
)

// Session parameters offered by the server, in seconds where applicable.
const (
	DefaultWait        = 60
	DefaultHold        = 1
	DefaultRequests    = 2
	DefaultPolling     = 15
	DefaultInactivity  = 60
	DefaultContentType = "text/xml; charset=utf-8"
)

// DefaultVersion is the highest version of the protocol supported.
var DefaultVersion = stream.Version{Major: 1, Minor: 9}

// Request is an HTTP request held by a session until a response is ready.
type Request struct {
	rid   int64
	resp  chan *stanza.Element
	timer *time.Timer
	done  bool
}

// NewRequest returns a request with the given request ID.
func NewRequest(rid int64) *Request {
	return &Request{
		rid:  rid,
		resp: make(chan *stanza.Element, 1),
	}
}

// RID returns the request ID sent by the client.
func (r *Request) RID() int64 {
	return r.rid
}

// Response returns a channel that receives the body answering the request.
// At most one body is ever sent.
func (r *Request) Response() <-chan *stanza.Element {
	return r.resp
}

// Context multiplexes the stanzas written to one session onto the HTTP
// requests of the client.
// It is safe for concurrent use.
type Context struct {
	sid     string
	session *xmpp.Session
	logger  *log.Logger
	ceiling int

	mu           sync.Mutex
	wait         int
	hold         int
	requests     int
	polling      int
	inactivity   int
	version      stream.Version
	contentType  string
	requestQueue *queue.Queue
	delayed      *queue.Queue
	lastActive   time.Time
	lastPoll     time.Time
	inflight     int
	closed       bool
}

// NewContext creates the multiplexer for a new session.
// The wait time requested by clients is never allowed to exceed ceiling
// seconds.
// The session starts in the Encrypted state since BOSH is secured by the
// HTTP transport.
func NewContext(sid string, ceiling int, logger *log.Logger) *Context {
	if ceiling <= 0 {
		ceiling = DefaultWait
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Context{
		sid:          sid,
		logger:       logger,
		ceiling:      ceiling,
		wait:         ceiling,
		hold:         DefaultHold,
		requests:     DefaultRequests,
		polling:      DefaultPolling,
		inactivity:   DefaultInactivity,
		version:      DefaultVersion,
		contentType:  DefaultContentType,
		requestQueue: queue.New(),
		delayed:      queue.New(),
		lastActive:   time.Now(),
	}
	c.session = xmpp.NewSession(c, xmpp.SessionID(sid), xmpp.InitialState(xmpp.Encrypted))
	return c
}

// SID returns the session ID.
func (c *Context) SID() string { return c.sid }

// Session returns the XMPP session carried by the context.
func (c *Context) Session() *xmpp.Session { return c.session }

// SetWait sets the longest time in seconds that a request may be held.
// It is limited by the ceiling of the context.
func (c *Context) SetWait(wait int) {
	if wait < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait > c.ceiling {
		wait = c.ceiling
	}
	c.wait = wait
}

// Wait returns the negotiated wait time in seconds.
func (c *Context) Wait() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wait
}

// SetHold sets the number of requests the server may hold at once.
// Holding two or more raises the number of concurrent requests allowed to
// one more than hold.
func (c *Context) SetHold(hold int) {
	if hold < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hold = hold
	if hold >= 2 {
		c.requests = hold + 1
	}
}

// Hold returns the number of requests the server may hold at once.
func (c *Context) Hold() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hold
}

// Requests returns the number of concurrent requests allowed.
func (c *Context) Requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests
}

// Polling returns the shortest allowed interval between polling requests in
// seconds.
func (c *Context) Polling() int { return c.polling }

// Inactivity returns the longest time in seconds the client may go without a
// request outstanding.
func (c *Context) Inactivity() int { return c.inactivity }

// SetVersion offers the protocol version of the client.
// The version is only adopted if it is lower than the current one.
// Malformed versions are ignored.
func (c *Context) SetVersion(v string) {
	parsed, err := stream.ParseVersion(v)
	if err != nil {
		c.logger.Printf("bosh: session %s: ignoring malformed version %q", c.sid, v)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if parsed.Less(c.version) {
		c.version = parsed
	}
}

// Version returns the negotiated protocol version.
func (c *Context) Version() stream.Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// SetContentType sets the content type of responses.
// Values that are not valid media types are ignored.
func (c *Context) SetContentType(ct string) {
	mt := contenttype.NewMediaType(ct)
	if mt.Type == "" || mt.Subtype == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contentType = ct
}

// ContentType returns the content type of responses.
func (c *Context) ContentType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contentType
}

// Write satisfies xmpp.StanzaWriter.
// The stanza is delivered on the oldest held request, or queued until the
// next request arrives.
func (c *Context) Write(st *stanza.Element) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Printf("bosh: session %s: dropping %s written after close", c.sid, st.Name().Local)
		return
	}
	c.write(wrap(st))
}

func (c *Context) write(body *stanza.Element) {
	for c.requestQueue.Length() > 0 {
		req := c.requestQueue.Remove().(*Request)
		if c.resume(req, body) {
			return
		}
	}
	c.delayed.Add(body)
}

// AddRequest holds req until a response is available.
// Any stanzas queued for the session are answered immediately on req.
// If more than hold requests are held, the oldest is answered with an empty
// body.
func (c *Context) AddRequest(req *Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = time.Now()
	if c.closed {
		c.resume(req, terminate(""))
		return
	}
	req.timer = time.AfterFunc(time.Duration(c.wait)*time.Second, func() {
		c.expire(req)
	})

	var merged *stanza.Element
	for c.delayed.Length() > 0 {
		merged = merge(merged, c.delayed.Remove().(*stanza.Element))
	}
	if merged != nil {
		c.resume(req, merged)
		return
	}

	c.requestQueue.Add(req)
	if c.requestQueue.Length() > c.hold {
		c.write(empty())
	}
}

// expire answers req and every request held before it with an empty body.
func (c *Context) expire(req *Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if req.done {
		return
	}
	for c.requestQueue.Length() > 0 {
		r := c.requestQueue.Remove().(*Request)
		c.resume(r, empty())
		if r == req {
			return
		}
	}
	c.resume(req, empty())
}

// Abandon removes req from the session without answering it, for instance
// because the client went away.
func (c *Context) Abandon(req *Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if req.done {
		return
	}
	req.done = true
	if req.timer != nil {
		req.timer.Stop()
	}
	for n := c.requestQueue.Length(); n > 0; n-- {
		r := c.requestQueue.Remove().(*Request)
		if r != req {
			c.requestQueue.Add(r)
		}
	}
}

// resume answers req with body.
// It reports false if req was already answered or abandoned.
// The caller must hold the lock.
func (c *Context) resume(req *Request, body *stanza.Element) bool {
	if req.done {
		return false
	}
	req.done = true
	if req.timer != nil {
		req.timer.Stop()
	}
	c.lastActive = time.Now()
	req.resp <- body
	return true
}

// enter records a request being processed.
// It reports false if the client already has as many requests in progress as
// it is allowed.
func (c *Context) enter() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight >= c.requests {
		return false
	}
	c.inflight++
	c.lastActive = time.Now()
	return true
}

// poll records a request from a client that asked the server not to hold
// requests.
// It reports false if empty is set and the previous request was also empty,
// was answered with no payload and arrived less than polling seconds before
// now.
func (c *Context) poll(now time.Time, empty bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hold > 0 {
		return true
	}
	if !empty {
		c.lastPoll = time.Time{}
		return true
	}
	if !c.lastPoll.IsZero() && now.Sub(c.lastPoll) < time.Duration(c.polling)*time.Second {
		return false
	}
	c.lastPoll = time.Time{}
	if c.delayed.Length() == 0 {
		c.lastPoll = now
	}
	return true
}

// leave records that a request has been answered.
func (c *Context) leave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
}

// Pending returns the number of requests held and the number of bodies
// waiting for a request.
func (c *Context) Pending() (requests, delayed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestQueue.Length(), c.delayed.Length()
}

// Idle reports whether the session has had no request held and no activity
// for longer than the inactivity period.
func (c *Context) Idle(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.requestQueue.Length() > 0 || c.inflight > 0 {
		return false
	}
	return now.Sub(c.lastActive) > time.Duration(c.inactivity)*time.Second
}

// Closed reports whether the session has been terminated.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close satisfies xmpp.StanzaWriter.
// Held requests are answered with a terminate body.
// Queued stanzas go out with the terminate body on the oldest held request and
// are dropped if no request is held.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var body *stanza.Element
	for c.delayed.Length() > 0 {
		body = merge(body, c.delayed.Remove().(*stanza.Element))
	}
	term := terminate("")
	if body != nil {
		term = body.Builder().Attr("type", "terminate").Build()
	}
	for c.requestQueue.Length() > 0 {
		if c.resume(c.requestQueue.Remove().(*Request), term) {
			term = terminate("")
		}
	}
	return nil
}
