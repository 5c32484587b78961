package controller

import (
	"context"
	"sync"

	"github.com/sharetube/watchparty/internal/identity"
)

type contextKey int

const (
	sessionCtxKey contextKey = iota
)

// session is the state of one websocket connection. A connection is in at most one room.
type session struct {
	identity identity.Identity
	conn     *wsConn
	mu       sync.Mutex
	code     string
}

func (s *session) roomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.code
}

func (s *session) setRoomCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.code = code
}

func (c controller) getSessionFromCtx(ctx context.Context) *session {
	sess, ok := ctx.Value(sessionCtxKey).(*session)
	if !ok {
		return nil
	}

	return sess
}
