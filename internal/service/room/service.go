package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/pkg/randstr"
)

const (
	roomCodeLength   = 8
	maxCodeAttempts  = 10
	roomCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type iRoomRepo interface {
	// room
	CreateRoom(context.Context, *room.CreateRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	GetRoomSummary(context.Context, string) (room.RoomSummary, error)
	DeactivateRoom(context.Context, *room.DeactivateRoomParams) error
	ListPublicRooms(ctx context.Context, limit int, createdAfter time.Time) ([]room.RoomSummary, error)
	GetHostedRoomCodes(ctx context.Context, userId string) ([]string, error)
	RemoveHostedRoomCode(ctx context.Context, userId, code string) error
	// participant
	AddParticipant(context.Context, *room.AddParticipantParams) (room.Participant, error)
	GetParticipant(ctx context.Context, code, userId string) (room.Participant, error)
	GetParticipants(context.Context, string) ([]room.Participant, error)
	RemoveParticipant(context.Context, *room.RemoveParticipantParams) error
	UpdateParticipantIsReady(context.Context, *room.UpdateParticipantIsReadyParams) error
	TransferHost(context.Context, *room.TransferHostParams) error
	// player
	UpdateVideoState(context.Context, *room.UpdateVideoStateParams) error
	// chat
	AppendMessage(context.Context, *room.AppendMessageParams) error
	GetMessages(ctx context.Context, code string, limit int) ([]room.Message, error)
}

type iRateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	MembersLimit     int
	MembersLimitMax  int
	ChatHistoryLimit int
	MessageMaxLength int
	RoomTTL          time.Duration
	PublicRoomsLimit int
	ChatRateLimit    int
	ChatRateWindow   time.Duration
}

type service struct {
	roomRepo  iRoomRepo
	limiter   iRateLimiter
	generator iGenerator
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
	hub       *hub
	// serialises room creation so host ownership and code claims never race
	createMu sync.Mutex
}

func NewService(roomRepo iRoomRepo, limiter iRateLimiter, cfg Config, logger *slog.Logger) *service {
	s := &service{
		roomRepo:  roomRepo,
		limiter:   limiter,
		generator: randstr.New([]byte(roomCodeAlphabet)),
		cfg:       cfg,
		logger:    logger.With("component", "room.service"),
		now:       time.Now,
	}
	s.hub = newHub(s)

	return s
}

// Close notifies every live room and waits for the room actors to stop.
func (s *service) Close() {
	s.hub.close()
}

func (s *service) storeError(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "store operation failed", "op", op, "error", err)
	return fmt.Errorf("%w: %w", ErrStore, err)
}

func (s *service) expireAt(r room.Room) time.Time {
	return r.ExpireAt(s.cfg.RoomTTL)
}

func (s *service) expired(r room.Room) bool {
	return !s.now().Before(s.expireAt(r))
}
