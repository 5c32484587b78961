package room

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/sharetube/watchparty/internal/repository/room"
)

type PostMessageParams struct {
	UserId string
	Code   string
	Text   string
}

type PostMessageResponse struct {
	Message Message
}

// PostMessage appends a chat message to the room history and echoes it to the
// whole room, sender included.
func (s *service) PostMessage(ctx context.Context, params *PostMessageParams) (PostMessageResponse, error) {
	if params.UserId == "" {
		return PostMessageResponse{}, ErrUnauthenticated
	}

	text := strings.TrimSpace(params.Text)
	if err := validation.Validate(text, s.messageTextRule()...); err != nil {
		return PostMessageResponse{}, validationError(err)
	}

	if !validCode(params.Code) {
		return PostMessageResponse{}, ErrRoomNotFound
	}

	if err := s.checkChatRate(ctx, params.Code, params.UserId); err != nil {
		return PostMessageResponse{}, err
	}

	return run(ctx, s, params.Code, func(a *roomActor) (PostMessageResponse, error) {
		ctx := a.ctx(ctx)
		r, err := s.loadActiveRoom(ctx, params.Code)
		if err != nil {
			return PostMessageResponse{}, err
		}

		sender, err := s.getParticipant(ctx, params.Code, params.UserId)
		if err != nil {
			return PostMessageResponse{}, err
		}

		message := room.Message{
			Id:          uuid.NewString(),
			UserId:      sender.UserId,
			DisplayName: sender.DisplayName,
			Text:        text,
			Timestamp:   s.now().UnixMilli(),
		}
		if err := s.roomRepo.AppendMessage(ctx, &room.AppendMessageParams{
			Code:     params.Code,
			Message:  message,
			Limit:    s.cfg.ChatHistoryLimit,
			ExpireAt: s.expireAt(r),
		}); err != nil {
			return PostMessageResponse{}, s.storeError(ctx, "append message", err)
		}

		a.broadcast(ctx, &Output{
			Type:    TypeNewMessage,
			Payload: mapMessage(message),
		}, "")

		return PostMessageResponse{Message: mapMessage(message)}, nil
	})
}

// checkChatRate lets the message through when the limiter itself is unavailable.
func (s *service) checkChatRate(ctx context.Context, code, userId string) error {
	if s.limiter == nil || s.cfg.ChatRateLimit <= 0 {
		return nil
	}

	ok, err := s.limiter.Allow(ctx, "chat:"+code+":"+userId, s.cfg.ChatRateLimit, s.cfg.ChatRateWindow)
	if err != nil {
		s.logger.WarnContext(ctx, "chat rate limiter unavailable", "error", err)
		return nil
	}

	if !ok {
		return ErrTooManyMessages
	}

	return nil
}
