package inmemory

import (
	"log/slog"
	"sync"

	"github.com/sharetube/watchparty/internal/repository/connection"
	"golang.org/x/exp/maps"
)

type entry struct {
	conn   connection.Conn
	outbox *connection.Outbox
}

// repo holds the live connections of a single room, at most one per user.
// Every connection is written through its own outbox.
type repo struct {
	conns      map[string]entry
	outboxSize int
	mu         sync.RWMutex
	writers    sync.WaitGroup
	logger     *slog.Logger
}

func NewRepo(logger *slog.Logger, outboxSize int) *repo {
	return &repo{
		conns:      make(map[string]entry),
		outboxSize: outboxSize,
		logger:     logger.With("component", "connection.inmemory"),
	}
}

// Add binds conn to userId and returns the outbox of the connection it
// replaced, if any. The caller decides how to retire it.
func (r *repo) Add(userId string, conn connection.Conn) *connection.Outbox {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("add", "user_id", userId)
	prev, ok := r.conns[userId]
	if ok && prev.conn == conn {
		return nil
	}

	outbox := connection.NewOutbox(conn, r.outboxSize, r.logger.With("user_id", userId))
	r.writers.Add(1)
	go func() {
		<-outbox.Done()
		r.writers.Done()
	}()
	r.conns[userId] = entry{conn: conn, outbox: outbox}

	if !ok {
		return nil
	}

	return prev.outbox
}

// Remove unbinds userId only while it is still bound to conn, so a superseded
// connection cannot evict its replacement. The connection itself stays open.
func (r *repo) Remove(userId string, conn connection.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.conns[userId]
	if !ok || current.conn != conn {
		r.logger.Debug("remove", "user_id", userId, "error", connection.ErrNotFound)
		return connection.ErrNotFound
	}

	delete(r.conns, userId)
	current.outbox.Detach()
	r.logger.Debug("remove", "user_id", userId)
	return nil
}

func (r *repo) Get(userId string) (connection.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[userId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return e.conn, nil
}

// Send queues v for userId without waiting for the peer.
func (r *repo) Send(userId string, v any) error {
	r.mu.RLock()
	e, ok := r.conns[userId]
	r.mu.RUnlock()

	if !ok {
		return connection.ErrNotFound
	}

	return e.outbox.Push(v)
}

func (r *repo) Entries() []connection.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]connection.Entry, 0, len(r.conns))
	for userId, e := range r.conns {
		entries = append(entries, connection.Entry{UserId: userId, Conn: e.conn})
	}

	return entries
}

func (r *repo) UserIds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Keys(r.conns)
}

func (r *repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// CloseAll forgets every connection. Each one is closed once its queued
// writes are out.
func (r *repo) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userId, e := range r.conns {
		e.outbox.Close()
		delete(r.conns, userId)
	}
}

// Wait blocks until every writer has finished.
func (r *repo) Wait() {
	r.writers.Wait()
}
