package connection

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrOutboxFull   = errors.New("outbox is full")
	ErrOutboxClosed = errors.New("outbox is closed")
)

// Outbox writes to a Conn from its own goroutine, so Push never waits on the
// peer. A peer that falls a whole queue behind is disconnected.
type Outbox struct {
	conn   Conn
	mu     sync.Mutex
	queue  chan any
	closed bool
	// set before the queue is closed, read by the writer after it drains
	closeConn bool
	done      chan struct{}
	logger    *slog.Logger
}

func NewOutbox(conn Conn, size int, logger *slog.Logger) *Outbox {
	o := &Outbox{
		conn:   conn,
		queue:  make(chan any, size),
		done:   make(chan struct{}),
		logger: logger,
	}
	go o.drain()

	return o
}

func (o *Outbox) Conn() Conn {
	return o.conn
}

func (o *Outbox) Push(v any) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrOutboxClosed
	}

	select {
	case o.queue <- v:
		return nil
	default:
	}

	o.closed = true
	o.closeConn = true
	close(o.queue)
	// unblocks a write stuck on the slow peer
	if err := o.conn.Close(); err != nil {
		o.logger.Debug("close on overflow", "error", err)
	}

	return ErrOutboxFull
}

// Close stops accepting writes. What is already queued is still written
// before the connection is closed.
func (o *Outbox) Close() {
	o.release(true)
}

// Detach stops accepting writes and flushes the queue but leaves the
// connection open for whoever else holds it.
func (o *Outbox) Detach() {
	o.release(false)
}

func (o *Outbox) release(closeConn bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	o.closed = true
	o.closeConn = closeConn
	close(o.queue)
}

// Done is closed once the writer has finished.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}

func (o *Outbox) drain() {
	defer close(o.done)

	var writeErr error
	for v := range o.queue {
		if writeErr != nil {
			continue
		}

		if writeErr = o.conn.WriteJSON(v); writeErr != nil {
			o.logger.Debug("write failed", "error", writeErr)
		}
	}

	if !o.closeConn {
		return
	}

	if err := o.conn.Close(); err != nil {
		o.logger.Debug("close", "error", err)
	}
}
