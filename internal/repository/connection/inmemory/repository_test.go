package inmemory

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	written []any
	closed  bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func TestAddReplacesConnection(t *testing.T) {
	r := NewRepo(slog.Default(), 8)
	first, second := &fakeConn{}, &fakeConn{}

	assert.Nil(t, r.Add("u1", first))
	assert.Nil(t, r.Add("u1", first))

	prev := r.Add("u1", second)
	require.NotNil(t, prev)
	assert.Same(t, first, prev.Conn())
	prev.Close()

	conn, err := r.Get("u1")
	require.NoError(t, err)
	assert.Same(t, second, conn)
	assert.Equal(t, 1, r.Len())

	r.CloseAll()
	r.Wait()
	assert.True(t, first.isClosed())
}

func TestRemoveIgnoresStaleConnection(t *testing.T) {
	r := NewRepo(slog.Default(), 8)
	stale, current := &fakeConn{}, &fakeConn{}
	r.Add("u1", stale)
	r.Add("u1", current).Close()

	err := r.Remove("u1", stale)
	assert.ErrorIs(t, err, connection.ErrNotFound)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Remove("u1", current))
	assert.Equal(t, 0, r.Len())

	r.Wait()
	assert.True(t, stale.isClosed())
	assert.False(t, current.isClosed(), "removal leaves the connection to its owner")

	_, err = r.Get("u1")
	assert.ErrorIs(t, err, connection.ErrNotFound)
	assert.ErrorIs(t, r.Send("u1", "x"), connection.ErrNotFound)
}

func TestSendDeliversInOrder(t *testing.T) {
	r := NewRepo(slog.Default(), 8)
	conn := &fakeConn{}
	r.Add("u1", conn)

	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, r.Send("u1", v))
	}

	r.CloseAll()
	r.Wait()

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Equal(t, []any{"a", "b", "c"}, conn.written)
	assert.True(t, conn.closed)
}

func TestCloseAll(t *testing.T) {
	r := NewRepo(slog.Default(), 8)
	a, b := &fakeConn{}, &fakeConn{}
	r.Add("a", a)
	r.Add("b", b)

	assert.ElementsMatch(t, []string{"a", "b"}, r.UserIds())
	assert.Len(t, r.Entries(), 2)

	r.CloseAll()
	r.Wait()
	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())
	assert.Equal(t, 0, r.Len())
}
