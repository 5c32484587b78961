package redis

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const publicRoomsKey = "rooms:public"

type repo struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		logger: logger.With("component", "room.redis"),
	}
}

func (r repo) getRoomKey(code string) string {
	return "room:" + code
}

func (r repo) getMemberListKey(code string) string {
	return "room:" + code + ":memberlist"
}

func (r repo) getMemberKey(code, userId string) string {
	return "room:" + code + ":member:" + userId
}

func (r repo) getChatKey(code string) string {
	return "room:" + code + ":chat"
}

func (r repo) getHostingKey(userId string) string {
	return "user:" + userId + ":hosting"
}
