package room

import (
	"context"
	"sync"
)

// hub owns one actor per live room code.
type hub struct {
	s      *service
	mu     sync.Mutex
	actors map[string]*roomActor
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newHub(s *service) *hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &hub{
		s:      s,
		actors: make(map[string]*roomActor),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (h *hub) get(code string) (*roomActor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrServiceClosed
	}

	if a, ok := h.actors[code]; ok {
		return a, nil
	}

	a := newRoomActor(h, code)
	h.actors[code] = a
	h.wg.Add(1)
	go a.run(h.ctx)

	return a, nil
}

func (h *hub) remove(code string, a *roomActor) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.actors[code] == a {
		delete(h.actors, code)
	}
}

// do runs fn on the actor of code and waits for it to finish. A job that
// reaches an actor which has already stopped is handed to a fresh one.
func (h *hub) do(ctx context.Context, code string, fn func(a *roomActor)) error {
	for {
		a, err := h.get(code)
		if err != nil {
			return err
		}

		done := make(chan struct{})
		job := func() {
			defer close(done)
			fn(a)
		}

		select {
		case a.mailbox <- job:
		case <-a.done:
			continue
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
}

// run executes fn serialised with every other operation on the room.
func run[T any](ctx context.Context, s *service, code string, fn func(a *roomActor) (T, error)) (T, error) {
	var (
		res    T
		jobErr = errJobAborted
	)

	if err := s.hub.do(ctx, code, func(a *roomActor) {
		res, jobErr = fn(a)
	}); err != nil {
		var zero T
		return zero, err
	}

	return res, jobErr
}
