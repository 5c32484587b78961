package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/identity"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type iRoomService interface {
	// registry
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	FindActiveRoom(ctx context.Context, code string) (room.RoomSummary, error)
	ListPublicRooms(ctx context.Context, limit int) ([]room.RoomSummary, error)
	GetHostedRoom(ctx context.Context, userId string) (room.RoomSummary, error)
	CloseRoom(context.Context, *room.CloseRoomParams) error
	// participant
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) error
	ToggleReady(context.Context, *room.ToggleReadyParams) (room.ToggleReadyResponse, error)
	// playback
	SetPlaybackState(context.Context, *room.SetPlaybackStateParams) (room.SetPlaybackStateResponse, error)
	Seek(context.Context, *room.SeekParams) (room.SeekResponse, error)
	TransferHost(context.Context, *room.TransferHostParams) (room.TransferHostResponse, error)
	// chat
	PostMessage(context.Context, *room.PostMessageParams) (room.PostMessageResponse, error)
}

type iAuthenticator interface {
	Parse(token string) (identity.Identity, error)
}

type controller struct {
	roomService iRoomService
	auth        iAuthenticator
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	logger      *slog.Logger
}

func NewController(roomService iRoomService, auth iAuthenticator, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		auth:        auth,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
