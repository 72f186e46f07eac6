/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package docstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	requestTimeout = 10 * time.Second

	reconnectMin = 100 * time.Millisecond
	reconnectMax = 5 * time.Second
)

var noDeadline time.Time

var ErrConnectionClosed = errors.New("store connection closed")

// Remote talks to a Server. It keeps one websocket per document key and
// redials it when it drops, restoring the server subscription if anyone
// locally is still subscribed.
type Remote struct {
	base   *url.URL
	dialer *websocket.Dialer

	mu    sync.Mutex
	rooms map[string]*remoteRoom

	done      chan struct{}
	closeOnce sync.Once
}

// remoteRoom is the client state of one key. It outlives any single
// connection.
type remoteRoom struct {
	key string

	// subMu orders subscriber count changes together with the subscribe
	// and unsubscribe requests they cause.
	subMu sync.Mutex

	mu      sync.Mutex
	conn    *remoteConn
	dialing chan struct{}
	nextSub uint64
	subs    map[uint64]func(Fields)
}

// NewRemote returns a client for the server at base, e.g. "ws://host:8080"
// or "http://host:8080/prefix". Connections are opened lazily.
func NewRemote(base string) (*Remote, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	return &Remote{
		base:   u,
		dialer: websocket.DefaultDialer,
		rooms:  make(map[string]*remoteRoom),
		done:   make(chan struct{}),
	}, nil
}

// Close drops every open connection. Calls made afterwards fail with
// ErrConnectionClosed.
func (r *Remote) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
	})

	r.mu.Lock()
	rooms := make([]*remoteRoom, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.Unlock()

	for _, rm := range rooms {
		if c := rm.current(); c != nil {
			c.close(ErrConnectionClosed)
		}
	}
	return nil
}

func (r *Remote) isClosed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *Remote) room(key string) *remoteRoom {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		rm = &remoteRoom{key: key, subs: make(map[uint64]func(Fields))}
		r.rooms[key] = rm
	}
	return rm
}

func (r *Remote) conn(ctx context.Context, key string) (*remoteConn, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	return r.connect(ctx, r.room(key))
}

// connect returns the live connection for rm, dialing one if needed. Only
// one dial per key runs at a time and no Remote-wide lock is held while it
// does. A fresh connection is subscribed before use if rm has subscribers.
func (r *Remote) connect(ctx context.Context, rm *remoteRoom) (*remoteConn, error) {
	for {
		if r.isClosed() {
			return nil, ErrConnectionClosed
		}

		rm.mu.Lock()
		if rm.conn != nil && !rm.conn.isClosed() {
			c := rm.conn
			rm.mu.Unlock()
			return c, nil
		}
		if wait := rm.dialing; wait != nil {
			rm.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		dialing := make(chan struct{})
		rm.dialing = dialing
		resubscribe := len(rm.subs) > 0
		rm.mu.Unlock()

		c, err := r.dial(ctx, rm)
		if err == nil && resubscribe {
			if _, err = c.call(ctx, Request{Op: OpSubscribe}); err != nil {
				c.close(err)
			}
		}

		rm.mu.Lock()
		rm.dialing = nil
		if err == nil {
			rm.conn = c
		}
		rm.mu.Unlock()
		close(dialing)

		if err != nil {
			return nil, err
		}
		if r.isClosed() {
			c.close(ErrConnectionClosed)
			return nil, ErrConnectionClosed
		}
		return c, nil
	}
}

func (r *Remote) dial(ctx context.Context, rm *remoteRoom) (*remoteConn, error) {
	u := *r.base
	u.Path = u.Path + "/rooms/" + url.PathEscape(rm.key) + "/ws"

	ws, _, err := r.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	c := &remoteConn{
		ws:      ws,
		room:    rm,
		pending: make(map[uint64]chan Frame),
		closed:  make(chan struct{}),
	}

	go func() {
		c.readLoop()

		if !r.isClosed() && rm.subscribers() > 0 {
			r.reconnect(rm)
		}
	}()

	return c, nil
}

// reconnect redials rm with backoff until it succeeds, nobody is
// subscribed any more, or the Remote is closed.
func (r *Remote) reconnect(rm *remoteRoom) {
	delay := reconnectMin

	for {
		select {
		case <-r.done:
			return
		case <-time.After(delay):
		}

		if rm.subscribers() == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		_, err := r.connect(ctx, rm)
		cancel()
		if err == nil {
			return
		}

		delay = min(delay*2, reconnectMax)
	}
}

func (r *Remote) Get(ctx context.Context, key string) (Fields, bool, error) {
	c, err := r.conn(ctx, key)
	if err != nil {
		return nil, false, err
	}

	f, err := c.call(ctx, Request{Op: OpGet})
	if err != nil {
		return nil, false, err
	}
	if !f.Exists {
		return nil, false, nil
	}
	if f.Fields == nil {
		f.Fields = Fields{}
	}
	return f.Fields, true, nil
}

func (r *Remote) CreateIfAbsent(ctx context.Context, key string, defaults Fields) error {
	c, err := r.conn(ctx, key)
	if err != nil {
		return err
	}

	_, err = c.call(ctx, Request{Op: OpCreate, Fields: defaults})
	return err
}

func (r *Remote) MergeWrite(ctx context.Context, key string, patch Fields) error {
	c, err := r.conn(ctx, key)
	if err != nil {
		return err
	}

	_, err = c.call(ctx, Request{Op: OpMerge, Fields: patch})
	return err
}

// Subscribe registers onChange for snapshots of key. The server subscription
// is shared by every local subscriber of the same key and survives
// reconnects.
func (r *Remote) Subscribe(ctx context.Context, key string, onChange func(Fields)) (func(), error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	rm := r.room(key)

	rm.subMu.Lock()
	id, first := rm.addSub(onChange)
	if first {
		c, err := r.connect(ctx, rm)
		if err == nil {
			_, err = c.call(ctx, Request{Op: OpSubscribe})
		}
		if err != nil {
			rm.removeSub(id)
			rm.subMu.Unlock()
			return nil, err
		}
	}
	rm.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			rm.subMu.Lock()
			defer rm.subMu.Unlock()

			if !rm.removeSub(id) {
				return
			}

			c := rm.current()
			if c == nil || c.isClosed() {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			_, _ = c.call(ctx, Request{Op: OpUnsubscribe})
		})
	}, nil
}

func (rm *remoteRoom) current() *remoteConn {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	return rm.conn
}

func (rm *remoteRoom) subscribers() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	return len(rm.subs)
}

func (rm *remoteRoom) addSub(onChange func(Fields)) (uint64, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.nextSub++
	rm.subs[rm.nextSub] = onChange
	return rm.nextSub, len(rm.subs) == 1
}

// removeSub reports whether id was the last local subscriber.
func (rm *remoteRoom) removeSub(id uint64) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.subs[id]; !ok {
		return false
	}
	delete(rm.subs, id)
	return len(rm.subs) == 0
}

func (rm *remoteRoom) deliver(doc Fields) {
	rm.mu.Lock()
	subs := make([]func(Fields), 0, len(rm.subs))
	for _, fn := range rm.subs {
		subs = append(subs, fn)
	}
	rm.mu.Unlock()

	for _, fn := range subs {
		fn(doc.Clone())
	}
}

type remoteConn struct {
	ws   *websocket.Conn
	room *remoteRoom

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Frame
	err     error

	closed    chan struct{}
	closeOnce sync.Once
}

func (c *remoteConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *remoteConn) close(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()

		close(c.closed)
		_ = c.ws.Close()
	})
}

func (c *remoteConn) failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}
	return ErrConnectionClosed
}

func (c *remoteConn) call(ctx context.Context, req Request) (Frame, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, requestTimeout)
		defer cancel()
	}

	reply := make(chan Frame, 1)

	c.mu.Lock()
	c.nextID++
	req.ID = c.nextID
	c.pending[req.ID] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetWriteDeadline(deadline)
	}
	err := c.ws.WriteJSON(req)
	_ = c.ws.SetWriteDeadline(noDeadline)
	c.writeMu.Unlock()
	if err != nil {
		c.close(err)
		return Frame{}, fmt.Errorf("send %s: %w", req.Op, err)
	}

	select {
	case f := <-reply:
		if f.Error != "" {
			return f, errors.New(f.Error)
		}
		return f, nil
	case <-c.closed:
		return Frame{}, c.failure()
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (c *remoteConn) readLoop() {
	for {
		var f Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			c.close(err)
			return
		}

		switch f.Type {
		case FrameResult:
			c.mu.Lock()
			reply, ok := c.pending[f.ID]
			c.mu.Unlock()
			if ok {
				reply <- f
			}

		case FrameSnapshot:
			if f.Fields == nil {
				f.Fields = Fields{}
			}
			c.room.deliver(f.Fields)
		}
	}
}
