// Package feed exposes a list model to remote UIs over socket.io.
//
// Every request is applied on one goroutine at a time, so the model keeps
// its single-writer contract no matter how many clients are connected.
// The events of one mutation are sent to every client as a single Batch.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/listmodel/internal/ctxlog"
	"github.com/vk/listmodel/internal/listmodel"
	"github.com/vk/listmodel/internal/modelerr"
	"github.com/zishang520/socket.io/v2/socket"
)

// ErrRejected is returned for a set request the model refused.
var ErrRejected = errors.New("value rejected")

// Server is a socket.io endpoint bound to one model.
type Server struct {
	mu          sync.Mutex
	model       *listmodel.Model
	io          *socket.Server
	id          string
	seq         uint64
	pending     []Notification
	logger      *slog.Logger
	unsubscribe func()
	closed      bool

	clientsMu sync.Mutex
	clients   map[socket.SocketId]*socket.Socket
}

// New creates a feed for m and subscribes to its events. The caller must not
// touch m directly while the feed is open; use Do instead.
func New(ctx context.Context, m *listmodel.Model) *Server {
	s := &Server{
		model:   m,
		io:      socket.NewServer(nil, nil),
		id:      uuid.NewString(),
		clients: make(map[socket.SocketId]*socket.Socket),
	}
	s.logger = ctxlog.FromContext(ctx).With("component", "feed", "model", s.id)

	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		s.attach(client)
	})
	s.unsubscribe = m.Subscribe(listmodel.ObserverFunc(s.broadcast))
	return s
}

// ID identifies the model for this server's lifetime.
func (s *Server) ID() string { return s.id }

// Handler serves the socket.io endpoint. Mount it at /socket.io/.
func (s *Server) Handler() http.Handler {
	return s.io.ServeHandler(nil)
}

// Do runs fn with exclusive access to the model. The events fn causes are
// sent to clients before Do returns.
func (s *Server) Do(fn func(m *listmodel.Model) error) error {
	_, err := s.do(fn)
	return err
}

func (s *Server) do(fn func(m *listmodel.Model) error) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.seq, modelerr.ErrClosed
	}
	err := fn(s.model)
	s.flush()
	return s.seq, err
}

// Close disconnects every client and stops broadcasting. The model itself is
// left open.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.unsubscribe()
	s.pending = nil
	s.mu.Unlock()

	s.clientsMu.Lock()
	clear(s.clients)
	s.clientsMu.Unlock()

	s.io.Close(nil)
	s.logger.Debug("Feed closed.")
}

// broadcast runs inside a mutation, which always holds s.mu.
func (s *Server) broadcast(ev listmodel.Event) {
	s.seq++
	n := notification(s.id, s.seq, ev)
	s.logger.Debug("Queued model event.", "event", n.String())
	s.pending = append(s.pending, n)
}

// flush sends the queued events as one packet per client. Server-wide
// broadcasts are avoided: engine.io writes only the first pre-encoded frame
// of a queued burst and drops the rest.
func (s *Server) flush() {
	if len(s.pending) == 0 {
		return
	}
	batch := Batch{Model: s.id, Events: s.pending}
	s.pending = nil

	s.clientsMu.Lock()
	clients := make([]*socket.Socket, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.Unlock()

	s.logger.Debug("Sending model events.", "first", batch.First(), "last", batch.Last(), "clients", len(clients))
	for _, c := range clients {
		if err := c.Emit(EventName, batch); err != nil {
			s.logger.Warn("Failed to send model events.", "sid", c.Id(), "error", err)
		}
	}
}

func (s *Server) attach(client *socket.Socket) {
	logger := s.logger.With("sid", client.Id())
	s.clientsMu.Lock()
	s.clients[client.Id()] = client
	s.clientsMu.Unlock()
	logger.Info("Client connected.")

	client.On(FetchRequest, func(data ...any) {
		var req Request
		if err := Decode(data, &req); err != nil {
			logger.Warn("Malformed fetch request.", "error", err)
			return
		}
		snap, err := s.snapshot(req.ID)
		if err != nil {
			s.reply(client, logger, Reply{ID: req.ID, Seq: snap.Seq}, err)
			return
		}
		if err := client.Emit(SnapshotName, snap); err != nil {
			logger.Warn("Failed to send snapshot.", "error", err)
		}
	})

	handlers := map[string]func(m *listmodel.Model, req Request) error{
		SetRequest: func(m *listmodel.Model, req Request) error {
			if !m.SetProperty(req.Row, req.Role, req.Value) {
				return fmt.Errorf("%w: row %d role %q", ErrRejected, req.Row, req.Role)
			}
			return nil
		},
		AppendRequest: func(m *listmodel.Model, req Request) error { return m.Append(req.Record) },
		InsertRequest: func(m *listmodel.Model, req Request) error { return m.Insert(req.Row, req.Record) },
		RemoveRequest: func(m *listmodel.Model, req Request) error { return m.Remove(req.Row) },
		MoveRequest:   func(m *listmodel.Model, req Request) error { return m.Move(req.From, req.To, req.Count) },
		ClearRequest:  func(m *listmodel.Model, req Request) error { return m.Clear() },
	}
	for name, handle := range handlers {
		client.On(name, func(data ...any) {
			var req Request
			if err := Decode(data, &req); err != nil {
				logger.Warn("Malformed request.", "request", name, "error", err)
				return
			}
			seq, err := s.do(func(m *listmodel.Model) error { return handle(m, req) })
			if err != nil {
				logger.Warn("Request failed.", "request", name, "id", req.ID, "error", err)
			} else {
				logger.Debug("Request applied.", "request", name, "id", req.ID, "seq", seq)
			}
			s.reply(client, logger, Reply{ID: req.ID, Seq: seq}, err)
		})
	}

	client.On("disconnect", func(reason ...any) {
		s.clientsMu.Lock()
		delete(s.clients, client.Id())
		s.clientsMu.Unlock()
		logger.Info("Client disconnected.", "reason", reason)
	})
}

func (s *Server) snapshot(id string) (Snapshot, error) {
	var snap Snapshot
	err := s.Do(func(m *listmodel.Model) error {
		snap = Snapshot{
			ID:    id,
			Model: s.id,
			Seq:   s.seq,
			Count: m.Count(),
			Roles: m.Roles(),
			Rows:  m.Rows(),
		}
		return nil
	})
	return snap, err
}

func (s *Server) reply(client *socket.Socket, logger *slog.Logger, r Reply, err error) {
	r.OK = err == nil
	if err != nil {
		r.Error = err.Error()
	}
	if emitErr := client.Emit(ReplyName, r); emitErr != nil {
		logger.Warn("Failed to send reply.", "error", emitErr)
	}
}
