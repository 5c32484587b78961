package connection

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slowConn struct {
	mu      sync.Mutex
	written []any
	closed  bool
	release chan struct{}
}

func newSlowConn() *slowConn {
	return &slowConn{release: make(chan struct{})}
}

func (c *slowConn) WriteJSON(v any) error {
	<-c.release

	c.mu.Lock()
	defer c.mu.Unlock()

	c.written = append(c.written, v)
	return nil
}

func (c *slowConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

func (c *slowConn) snapshot() ([]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]any(nil), c.written...), c.closed
}

func TestOutboxPushDoesNotWaitForPeer(t *testing.T) {
	conn := newSlowConn()
	o := NewOutbox(conn, 4, slog.Default())

	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, o.Push(i))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(conn.release)
	o.Close()
	<-o.Done()

	written, closed := conn.snapshot()
	assert.Equal(t, []any{0, 1, 2, 3}, written)
	assert.True(t, closed)

	assert.ErrorIs(t, o.Push(5), ErrOutboxClosed)
}

func TestOutboxOverflowDisconnects(t *testing.T) {
	conn := newSlowConn()
	o := NewOutbox(conn, 1, slog.Default())

	// the writer holds at most one value and the queue one more
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = o.Push(i)
	}
	assert.ErrorIs(t, err, ErrOutboxFull)

	_, closed := conn.snapshot()
	assert.True(t, closed)

	close(conn.release)
	<-o.Done()
	assert.ErrorIs(t, o.Push("late"), ErrOutboxClosed)
}
