package redis

import (
	"context"
	"encoding/json"

	"github.com/sharetube/watchparty/internal/repository/room"
)

// AppendMessage pushes a message and trims the history to the last Limit entries.
func (r repo) AppendMessage(ctx context.Context, params *room.AppendMessageParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	data, err := json.Marshal(params.Message)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	chatKey := r.getChatKey(params.Code)
	pipe := r.rc.TxPipeline()
	pipe.RPush(ctx, chatKey, data)
	pipe.LTrim(ctx, chatKey, -int64(params.Limit), -1)
	pipe.ExpireAt(ctx, chatKey, params.ExpireAt)
	pipe.ExpireAt(ctx, r.getRoomKey(params.Code), params.ExpireAt)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// GetMessages returns up to limit most recent messages, oldest first.
func (r repo) GetMessages(ctx context.Context, code string, limit int) ([]room.Message, error) {
	r.logger.DebugContext(ctx, "called", "code", code, "limit", limit)
	raw, err := r.rc.LRange(ctx, r.getChatKey(code), -int64(limit), -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	messages := make([]room.Message, 0, len(raw))
	for _, item := range raw {
		var message room.Message
		if err := json.Unmarshal([]byte(item), &message); err != nil {
			r.logger.WarnContext(ctx, "skipping malformed chat entry", "code", code, "error", err)
			continue
		}
		messages = append(messages, message)
	}

	return messages, nil
}
