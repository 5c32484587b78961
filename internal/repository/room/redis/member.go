package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/room"
)

func (r repo) setMember(ctx context.Context, pipe redis.Pipeliner, params *room.AddParticipantParams, seq int64) room.Participant {
	participant := room.Participant{
		UserId:      params.UserId,
		DisplayName: params.DisplayName,
		AvatarUrl:   params.AvatarUrl,
		IsHost:      params.IsHost,
		IsReady:     false,
		JoinedAt:    params.JoinedAt.UnixMilli(),
		JoinSeq:     seq,
	}

	memberKey := r.getMemberKey(params.Code, params.UserId)
	pipe.HSet(ctx, memberKey, r.hashFields(participant))
	pipe.ExpireAt(ctx, memberKey, params.ExpireAt)

	memberListKey := r.getMemberListKey(params.Code)
	pipe.ZAdd(ctx, memberListKey, redis.Z{Score: float64(seq), Member: params.UserId})
	pipe.ExpireAt(ctx, memberListKey, params.ExpireAt)

	return participant
}

// AddParticipant stores a new participant with the next join sequence of the room.
func (r repo) AddParticipant(ctx context.Context, params *room.AddParticipantParams) (room.Participant, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	roomKey := r.getRoomKey(params.Code)

	seq, err := r.rc.HIncrBy(ctx, roomKey, "join_seq", 1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Participant{}, err
	}

	pipe := r.rc.TxPipeline()
	participant := r.setMember(ctx, pipe, params, seq)
	pipe.ExpireAt(ctx, roomKey, params.ExpireAt)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Participant{}, err
	}

	return participant, nil
}

func (r repo) GetParticipant(ctx context.Context, code, userId string) (room.Participant, error) {
	r.logger.DebugContext(ctx, "called", "code", code, "user_id", userId)
	var participant room.Participant
	if err := r.rc.HGetAll(ctx, r.getMemberKey(code, userId)).Scan(&participant); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Participant{}, err
	}

	if participant.UserId == "" {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.Participant{}, room.ErrParticipantNotFound
	}

	return participant, nil
}

// GetParticipants returns the participants of a room in join order.
func (r repo) GetParticipants(ctx context.Context, code string) ([]room.Participant, error) {
	r.logger.DebugContext(ctx, "called", "code", code)
	userIds, err := r.rc.ZRange(ctx, r.getMemberListKey(code), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	if len(userIds) == 0 {
		return []room.Participant{}, nil
	}

	pipe := r.rc.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(userIds))
	for _, userId := range userIds {
		cmds = append(cmds, pipe.HGetAll(ctx, r.getMemberKey(code, userId)))
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	participants := make([]room.Participant, 0, len(userIds))
	for _, cmd := range cmds {
		var participant room.Participant
		if err := cmd.Scan(&participant); err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return nil, err
		}

		// memberlist entry without a hash left over from an interrupted write
		if participant.UserId == "" {
			continue
		}

		participants = append(participants, participant)
	}

	return participants, nil
}

// RemoveParticipant deletes a participant and, in the same transaction,
// promotes NewHostId or deactivates the room when asked to.
func (r repo) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	roomKey := r.getRoomKey(params.Code)
	memberListKey := r.getMemberListKey(params.Code)

	pipe := r.rc.TxPipeline()
	pipe.ZRem(ctx, memberListKey, params.UserId)
	pipe.Del(ctx, r.getMemberKey(params.Code, params.UserId))
	pipe.SRem(ctx, r.getHostingKey(params.UserId), params.Code)

	if params.NewHostId != "" {
		r.promote(ctx, pipe, params.Code, params.NewHostId, params.ExpireAt)
	}

	if params.Deactivate {
		pipe.HSet(ctx, roomKey, "is_active", false, "host_id", "")
		pipe.ZRem(ctx, publicRoomsKey, params.Code)
	}

	pipe.ExpireAt(ctx, roomKey, params.ExpireAt)
	pipe.ExpireAt(ctx, memberListKey, params.ExpireAt)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) UpdateParticipantIsReady(ctx context.Context, params *room.UpdateParticipantIsReadyParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	memberKey := r.getMemberKey(params.Code, params.UserId)

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, memberKey, "is_ready", params.IsReady)
	pipe.ExpireAt(ctx, memberKey, params.ExpireAt)
	pipe.ExpireAt(ctx, r.getRoomKey(params.Code), params.ExpireAt)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) TransferHost(ctx context.Context, params *room.TransferHostParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	pipe := r.rc.TxPipeline()
	prevKey := r.getMemberKey(params.Code, params.PrevHostId)
	pipe.HSet(ctx, prevKey, "is_host", false)
	pipe.ExpireAt(ctx, prevKey, params.ExpireAt)
	pipe.SRem(ctx, r.getHostingKey(params.PrevHostId), params.Code)

	r.promote(ctx, pipe, params.Code, params.NewHostId, params.ExpireAt)
	pipe.ExpireAt(ctx, r.getRoomKey(params.Code), params.ExpireAt)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) promote(ctx context.Context, pipe redis.Pipeliner, code, userId string, expireAt time.Time) {
	memberKey := r.getMemberKey(code, userId)
	pipe.HSet(ctx, memberKey, "is_host", true)
	pipe.ExpireAt(ctx, memberKey, expireAt)
	pipe.HSet(ctx, r.getRoomKey(code), "host_id", userId)

	hostingKey := r.getHostingKey(userId)
	pipe.SAdd(ctx, hostingKey, code)
	pipe.ExpireAt(ctx, hostingKey, expireAt)
}
