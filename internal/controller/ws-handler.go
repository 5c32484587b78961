package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
)

var errNotInRoom = fmt.Errorf("%w: join a room first", room.ErrRoomNotFound)

// connect upgrades an authenticated request and serves its messages until
// the connection goes away, which counts as leaving the room.
func (c controller) connect(w http.ResponseWriter, r *http.Request) {
	id, err := c.authenticate(r)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	ws := newWSConn(conn)
	defer ws.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	sess := &session{identity: id, conn: ws}
	ctx := context.WithValue(r.Context(), sessionCtxKey, sess)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("user_id", id.UserId))

	done := make(chan struct{})
	go ws.keepAlive(done)
	defer close(done)

	defer c.leaveCurrentRoom(context.WithoutCancel(ctx), sess)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(ctx, "websocket closed", "error", err)
	}
}

func (c controller) leaveCurrentRoom(ctx context.Context, sess *session) {
	code := sess.roomCode()
	if code == "" {
		return
	}

	if c.leaveRoom(ctx, sess, code) {
		sess.setRoomCode("")
	}
}

// leaveRoom reports whether the leave went through. A failed one is retried
// by the room itself.
func (c controller) leaveRoom(ctx context.Context, sess *session, code string) bool {
	if err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		UserId: sess.identity.UserId,
		Code:   code,
		Conn:   sess.conn,
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to leave room", "room_code", code, "error", err)
		return false
	}

	return true
}

func (c controller) handleWSError(ctx context.Context, _ *websocket.Conn, err error) {
	sess := c.getSessionFromCtx(ctx)
	if sess == nil {
		return
	}

	kind := classifyError(err)
	if kind.status >= http.StatusInternalServerError {
		c.logger.ErrorContext(ctx, "websocket message failed", "error", err)
	}

	if err := sess.conn.WriteJSON(&room.Output{
		Type: room.TypeError,
		Payload: room.ErrorPayload{
			Code:    kind.code,
			Message: kind.message,
		},
	}); err != nil {
		c.logger.DebugContext(ctx, "failed to write error", "error", err)
	}
}

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

type JoinRoomInput struct {
	Code            string       `json:"code"`
	Content         room.Content `json:"content"`
	AsHost          bool         `json:"as_host"`
	IsPublic        bool         `json:"is_public"`
	MaxParticipants int          `json:"max_participants"`
}

// handleJoinRoom moves the connection into the requested room. The current
// room is only left once the target is known to be a different one, so a
// repeated host join lands back in the same room.
func (c controller) handleJoinRoom(ctx context.Context, _ *websocket.Conn, input JoinRoomInput) error {
	sess := c.getSessionFromCtx(ctx)
	current := sess.roomCode()

	params := &room.JoinRoomParams{
		Identity:        sess.identity,
		Conn:            sess.conn,
		Code:            input.Code,
		Content:         input.Content,
		AsHost:          input.AsHost,
		IsPublic:        input.IsPublic,
		MaxParticipants: input.MaxParticipants,
	}

	resp, err := c.roomService.JoinRoom(ctx, params)
	// a host switching content gives up the room it hosts here first
	if errors.Is(err, room.ErrAlreadyHosting) && current != "" && input.Code == "" && c.hosts(ctx, sess, current) {
		if c.leaveRoom(ctx, sess, current) {
			sess.setRoomCode("")
			current = ""
			resp, err = c.roomService.JoinRoom(ctx, params)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	if current != "" && current != resp.Snapshot.Code {
		c.leaveRoom(ctx, sess, current)
	}

	sess.setRoomCode(resp.Snapshot.Code)
	return nil
}

func (c controller) hosts(ctx context.Context, sess *session, code string) bool {
	hosted, err := c.roomService.GetHostedRoom(ctx, sess.identity.UserId)
	return err == nil && hosted.Code == code
}

func (c controller) handleLeaveRoom(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	sess := c.getSessionFromCtx(ctx)
	if sess.roomCode() == "" {
		return nil
	}

	c.leaveCurrentRoom(ctx, sess)
	return nil
}

func (c controller) handleToggleReady(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	sess := c.getSessionFromCtx(ctx)
	code := sess.roomCode()
	if code == "" {
		return errNotInRoom
	}

	if _, err := c.roomService.ToggleReady(ctx, &room.ToggleReadyParams{
		UserId: sess.identity.UserId,
		Code:   code,
	}); err != nil {
		return fmt.Errorf("failed to toggle ready: %w", err)
	}

	return nil
}

type UpdateVideoStateInput struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
}

func (c controller) handleUpdateVideoState(ctx context.Context, _ *websocket.Conn, input UpdateVideoStateInput) error {
	sess := c.getSessionFromCtx(ctx)
	code := sess.roomCode()
	if code == "" {
		return errNotInRoom
	}

	if _, err := c.roomService.SetPlaybackState(ctx, &room.SetPlaybackStateParams{
		UserId:      sess.identity.UserId,
		Code:        code,
		IsPlaying:   input.IsPlaying,
		CurrentTime: input.CurrentTime,
	}); err != nil {
		return fmt.Errorf("failed to update video state: %w", err)
	}

	return nil
}

type SeekVideoInput struct {
	CurrentTime float64 `json:"current_time"`
}

func (c controller) handleSeekVideo(ctx context.Context, _ *websocket.Conn, input SeekVideoInput) error {
	sess := c.getSessionFromCtx(ctx)
	code := sess.roomCode()
	if code == "" {
		return errNotInRoom
	}

	if _, err := c.roomService.Seek(ctx, &room.SeekParams{
		UserId:      sess.identity.UserId,
		Code:        code,
		CurrentTime: input.CurrentTime,
	}); err != nil {
		return fmt.Errorf("failed to seek video: %w", err)
	}

	return nil
}

type TransferHostInput struct {
	TargetUserId string `json:"target_user_id"`
}

func (c controller) handleTransferHost(ctx context.Context, _ *websocket.Conn, input TransferHostInput) error {
	sess := c.getSessionFromCtx(ctx)
	code := sess.roomCode()
	if code == "" {
		return errNotInRoom
	}

	if _, err := c.roomService.TransferHost(ctx, &room.TransferHostParams{
		UserId:       sess.identity.UserId,
		Code:         code,
		TargetUserId: input.TargetUserId,
	}); err != nil {
		return fmt.Errorf("failed to transfer host: %w", err)
	}

	return nil
}

type SendMessageInput struct {
	Text string `json:"text"`
}

func (c controller) handleSendMessage(ctx context.Context, _ *websocket.Conn, input SendMessageInput) error {
	sess := c.getSessionFromCtx(ctx)
	code := sess.roomCode()
	if code == "" {
		return errNotInRoom
	}

	if _, err := c.roomService.PostMessage(ctx, &room.PostMessageParams{
		UserId: sess.identity.UserId,
		Code:   code,
		Text:   input.Text,
	}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}
