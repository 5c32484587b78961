package wsrouter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingInput struct {
	Value int `json:"value"`
}

type recorder struct {
	mu     sync.Mutex
	inputs []pingInput
	errs   []error
	order  []string
	done   chan struct{}
}

func newTestServer(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	router := New()
	router.Use(
		func(next HandlerFunc[any]) HandlerFunc[any] {
			return func(ctx context.Context, conn *websocket.Conn, input any) error {
				rec.mu.Lock()
				rec.order = append(rec.order, "outer:"+GetMessageTypeFromCtx(ctx))
				rec.mu.Unlock()
				return next(ctx, conn, input)
			}
		},
		func(next HandlerFunc[any]) HandlerFunc[any] {
			return func(ctx context.Context, conn *websocket.Conn, input any) error {
				rec.mu.Lock()
				rec.order = append(rec.order, "inner")
				rec.mu.Unlock()
				return next(ctx, conn, input)
			}
		},
	)
	Handle(router, "PING", func(_ context.Context, _ *websocket.Conn, input pingInput) error {
		rec.mu.Lock()
		rec.inputs = append(rec.inputs, input)
		rec.mu.Unlock()
		if input.Value < 0 {
			return errors.New("negative")
		}
		return nil
	})
	router.OnError(func(_ context.Context, _ *websocket.Conn, err error) {
		rec.mu.Lock()
		rec.errs = append(rec.errs, err)
		rec.mu.Unlock()
	})

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(rec.done)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = router.ServeConn(r.Context(), conn)
	}))
}

func TestServeConnDispatch(t *testing.T) {
	rec := &recorder{done: make(chan struct{})}
	srv := newTestServer(t, rec)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"PING","payload":{"value":1}}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"PING"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"PING","payload":{"value":-1}}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"NOPE"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"PING","payload":"wrong"}`)))
	require.NoError(t, conn.Close())

	select {
	case <-rec.done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not finish serving")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	assert.Equal(t, []pingInput{{Value: 1}, {Value: 0}, {Value: -1}}, rec.inputs)
	require.Len(t, rec.errs, 4)
	assert.EqualError(t, rec.errs[0], "negative")
	assert.ErrorIs(t, rec.errs[1], ErrUnknownMessageType)
	assert.ErrorIs(t, rec.errs[2], ErrInvalidPayload)
	assert.ErrorIs(t, rec.errs[3], ErrInvalidPayload)
	assert.Equal(t, []string{"outer:PING", "inner", "outer:PING", "inner", "outer:PING", "inner"}, rec.order)
}

func TestGetMessageTypeFromEmptyCtx(t *testing.T) {
	assert.Equal(t, "", GetMessageTypeFromCtx(context.Background()))
}
