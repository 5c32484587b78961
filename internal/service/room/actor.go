package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/connection/inmemory"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
)

const (
	outboxSize = 64

	leaveRetryMin = 250 * time.Millisecond
	leaveRetryMax = 30 * time.Second
)

type iConnRepo interface {
	Add(userId string, conn connection.Conn) *connection.Outbox
	Remove(userId string, conn connection.Conn) error
	Get(userId string) (connection.Conn, error)
	Send(userId string, v any) error
	Entries() []connection.Entry
	Len() int
	CloseAll()
	Wait()
}

// roomActor processes the operations of one room strictly one at a time and
// holds the live connections of its participants.
type roomActor struct {
	hub     *hub
	code    string
	conns   iConnRepo
	mailbox chan func()
	done    chan struct{}
	stopped bool
	expiry  *time.Timer

	// leaves the store rejected, retried before every job and on a backoff timer
	pending    map[string]*LeaveRoomParams
	retry      *time.Timer
	retryDelay time.Duration
}

func newRoomActor(h *hub, code string) *roomActor {
	return &roomActor{
		hub:     h,
		code:    code,
		conns:   inmemory.NewRepo(h.s.logger, outboxSize),
		mailbox: make(chan func()),
		done:    make(chan struct{}),
	}
}

func (a *roomActor) run(ctx context.Context) {
	defer a.hub.wg.Done()
	logger := a.hub.s.logger

	for {
		select {
		case <-ctx.Done():
			a.close(context.Background(), ReasonShutdown)
			a.conns.Wait()
			return
		case job := <-a.mailbox:
			a.exec(a.retryLeaves)
			// a stopped actor still runs the job; its caller is waiting on it
			a.exec(job)
			if a.stopped {
				return
			}

			// nothing to fan out to; the next operation starts a fresh actor
			if a.conns.Len() == 0 && len(a.pending) == 0 {
				logger.Debug("room actor idle", "room_code", a.code)
				a.stop()
				return
			}
		}
	}
}

func (a *roomActor) exec(job func()) {
	defer func() {
		if r := recover(); r != nil {
			a.hub.s.logger.Error("room job panicked", "room_code", a.code, "panic", r)
		}
	}()

	job()
}

func (a *roomActor) stop() {
	if a.stopped {
		return
	}

	a.stopped = true
	close(a.done)
	if a.expiry != nil {
		a.expiry.Stop()
	}
	if a.retry != nil {
		a.retry.Stop()
	}
	a.conns.CloseAll()
	a.hub.remove(a.code, a)
}

// deferLeave keeps a leave the store rejected. The connection behind it is
// gone, so nothing else would ever repeat it.
func (a *roomActor) deferLeave(params *LeaveRoomParams) {
	if a.pending == nil {
		a.pending = make(map[string]*LeaveRoomParams)
	}
	a.pending[params.UserId] = params
	a.scheduleLeaveRetry()
}

func (a *roomActor) scheduleLeaveRetry() {
	a.retryDelay = min(max(a.retryDelay*2, leaveRetryMin), leaveRetryMax)
	if a.retry != nil {
		a.retry.Stop()
	}

	// an empty job is enough, pending leaves run ahead of every job
	a.retry = time.AfterFunc(a.retryDelay, func() {
		select {
		case a.mailbox <- func() {}:
		case <-a.done:
		}
	})
}

func (a *roomActor) retryLeaves() {
	if len(a.pending) == 0 {
		return
	}

	s := a.hub.s
	for userId, params := range a.pending {
		ctx := a.ctx(context.Background())
		err := s.leave(ctx, a, params)
		if errors.Is(err, ErrStore) {
			s.logger.WarnContext(ctx, "pending leave failed again", "user_id", userId, "error", err)
			a.scheduleLeaveRetry()
			return
		}

		delete(a.pending, userId)
		if a.stopped {
			return
		}
	}

	a.retryDelay = 0
	if a.retry != nil {
		a.retry.Stop()
	}
}

// forgetLeave drops a pending leave of a user who is back.
func (a *roomActor) forgetLeave(userId string) {
	delete(a.pending, userId)
}

// close tells every connection the room is gone and stops the actor.
func (a *roomActor) close(ctx context.Context, reason string) {
	a.broadcast(ctx, &Output{
		Type:    TypeRoomClosed,
		Payload: RoomClosedPayload{Reason: reason},
	}, "")
	a.conns.CloseAll()
	a.stop()
}

// armExpiry schedules the room closure at its TTL deadline once per actor.
func (a *roomActor) armExpiry(expireAt time.Time) {
	if a.expiry != nil {
		return
	}

	a.expiry = time.AfterFunc(expireAt.Sub(a.hub.s.now()), func() {
		select {
		case a.mailbox <- func() { a.close(context.Background(), ReasonExpired) }:
		case <-a.done:
		}
	})
}

func (a *roomActor) ctx(ctx context.Context) context.Context {
	return ctxlogger.AppendCtx(ctx, slog.String("room_code", a.code))
}

// broadcast queues out for every connection of the room except exceptUserId.
func (a *roomActor) broadcast(ctx context.Context, out *Output, exceptUserId string) {
	for _, entry := range a.conns.Entries() {
		if entry.UserId == exceptUserId {
			continue
		}

		a.send(ctx, entry.UserId, out)
	}
}

// send queues out for userId. It never waits on the peer; one that cannot
// keep up is disconnected by its outbox.
func (a *roomActor) send(ctx context.Context, userId string, out *Output) {
	err := a.conns.Send(userId, out)
	switch {
	case err == nil, errors.Is(err, connection.ErrNotFound):
	case errors.Is(err, connection.ErrOutboxFull):
		a.hub.s.logger.WarnContext(ctx, "dropping slow connection", "user_id", userId, "type", out.Type)
	default:
		a.hub.s.logger.DebugContext(ctx, "failed to deliver event", "user_id", userId, "type", out.Type, "error", err)
	}
}
