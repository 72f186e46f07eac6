/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package docstore

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server exposes a Memory store to remote clients, one websocket per room.
// It relays fields verbatim and never interprets them.
type Server struct {
	store *Memory
	logf  func(format string, args ...any)
}

func NewServer(store *Memory, logf func(format string, args ...any)) *Server {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Server{store: store, logf: logf}
}

type peer struct {
	id   string
	key  string
	conn *websocket.Conn
	send chan Frame
	done chan struct{}
	gone chan struct{}

	unsubscribe func()
}

// Handle upgrades the request for the room named by the :room parameter.
// Keys are expected to be normalized by the caller.
func (s *Server) Handle() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := ps.ByName("room")
		if key == "" {
			http.Error(w, "missing room", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		p := &peer{
			id:   uuid.NewString(),
			key:  key,
			conn: conn,
			send: make(chan Frame, 16),
			done: make(chan struct{}),
			gone: make(chan struct{}),
		}

		s.logf("ROOMS: Connection %s opened for %s", p.id, key)

		go p.writePump()
		s.readPump(p)

		s.logf("ROOMS: Connection %s closed for %s", p.id, key)
	}
}

func (s *Server) readPump(p *peer) {
	defer func() {
		if p.unsubscribe != nil {
			p.unsubscribe()
		}
		close(p.done)
		_ = p.conn.Close()
	}()

	ctx := context.Background()

	for {
		var req Request
		if err := p.conn.ReadJSON(&req); err != nil {
			return
		}

		if !p.deliver(s.handle(ctx, p, req)) {
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, p *peer, req Request) Frame {
	res := Frame{Type: FrameResult, ID: req.ID}

	switch req.Op {
	case OpGet:
		doc, ok, err := s.store.Get(ctx, p.key)
		if err != nil {
			res.Error = err.Error()
			break
		}
		res.Exists = ok
		res.Fields = doc

	case OpCreate:
		if err := s.store.CreateIfAbsent(ctx, p.key, req.Fields); err != nil {
			res.Error = err.Error()
		}

	case OpMerge:
		if err := s.store.MergeWrite(ctx, p.key, req.Fields); err != nil {
			res.Error = err.Error()
		}

	case OpSubscribe:
		if p.unsubscribe != nil {
			break
		}
		unsubscribe, err := s.store.Subscribe(ctx, p.key, func(doc Fields) {
			p.deliver(Frame{Type: FrameSnapshot, Fields: doc})
		})
		if err != nil {
			res.Error = err.Error()
			break
		}
		p.unsubscribe = unsubscribe

	case OpUnsubscribe:
		if p.unsubscribe != nil {
			p.unsubscribe()
			p.unsubscribe = nil
		}

	default:
		res.Error = "unknown op: " + req.Op
	}

	return res
}

// deliver queues f for the write pump, giving up once the connection is gone.
func (p *peer) deliver(f Frame) bool {
	select {
	case p.send <- f:
		return true
	case <-p.done:
		return false
	case <-p.gone:
		return false
	}
}

func (p *peer) writePump() {
	defer func() {
		close(p.gone)
		_ = p.conn.Close()
	}()

	for {
		select {
		case <-p.done:
			return
		case f := <-p.send:
			if err := p.conn.WriteJSON(f); err != nil {
				return
			}
		}
	}
}
