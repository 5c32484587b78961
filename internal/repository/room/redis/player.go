package redis

import (
	"context"

	"github.com/sharetube/watchparty/internal/repository/room"
)

func (r repo) UpdateVideoState(ctx context.Context, params *room.UpdateVideoStateParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	roomKey := r.getRoomKey(params.Code)

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey, r.hashFields(params.State))
	pipe.ExpireAt(ctx, roomKey, params.ExpireAt)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}
