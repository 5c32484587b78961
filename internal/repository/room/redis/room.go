package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/room"
)

// claimCodeScript reserves a room key with the room's deadline already set, so
// a claim whose record never gets written still expires.
var claimCodeScript = redis.NewScript(`
if redis.call("HSETNX", KEYS[1], "code", ARGV[1]) == 0 then
	return 0
end
redis.call("PEXPIREAT", KEYS[1], ARGV[2])
return 1
`)

func (r repo) claimCode(ctx context.Context, code string, expireAt time.Time) (bool, error) {
	return claimCodeScript.Run(ctx, r.rc, []string{r.getRoomKey(code)}, code, expireAt.UnixMilli()).Bool()
}

func (r repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	roomKey := r.getRoomKey(params.Code)

	// claims the code; the rest of the record is written below
	ok, err := r.claimCode(ctx, params.Code, params.ExpireAt)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomCodeTaken)
		return room.ErrRoomCodeTaken
	}

	createdAt := params.CreatedAt.UnixMilli()
	record := room.Room{
		Code:            params.Code,
		HostId:          params.Host.UserId,
		ContentId:       params.Content.ContentId,
		ContentUnitId:   params.Content.UnitId,
		ContentTitle:    params.Content.Title,
		ContentSequence: params.Content.Sequence,
		IsActive:        true,
		IsPublic:        params.IsPublic,
		MaxParticipants: params.MaxParticipants,
		CreatedAt:       createdAt,
		IsPlaying:       false,
		CurrentTime:     0,
		LastUpdate:      createdAt,
	}

	const hostJoinSeq = 1
	fields := r.hashFields(record)
	fields["join_seq"] = hostJoinSeq

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey, fields)
	pipe.ExpireAt(ctx, roomKey, params.ExpireAt)

	r.setMember(ctx, pipe, &params.Host, hostJoinSeq)

	hostingKey := r.getHostingKey(params.Host.UserId)
	pipe.SAdd(ctx, hostingKey, params.Code)
	pipe.ExpireAt(ctx, hostingKey, params.ExpireAt)

	if params.IsPublic {
		pipe.ZAdd(ctx, publicRoomsKey, redis.Z{Score: float64(createdAt), Member: params.Code})
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		r.rc.Del(ctx, roomKey)
		return err
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, code string) (room.Room, error) {
	r.logger.DebugContext(ctx, "called", "code", code)
	var record room.Room
	if err := r.rc.HGetAll(ctx, r.getRoomKey(code)).Scan(&record); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Room{}, err
	}

	// a claimed but unwritten code has no created_at
	if record.Code == "" || record.CreatedAt == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.Room{}, room.ErrRoomNotFound
	}

	return record, nil
}

func (r repo) DeactivateRoom(ctx context.Context, params *room.DeactivateRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	roomKey := r.getRoomKey(params.Code)

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey, "is_active", false)
	pipe.ExpireAt(ctx, roomKey, params.ExpireAt)
	pipe.ZRem(ctx, publicRoomsKey, params.Code)
	if params.HostId != "" {
		pipe.SRem(ctx, r.getHostingKey(params.HostId), params.Code)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// ListPublicRooms returns active public rooms newest first. Entries older than
// createdAfter or no longer active are dropped from the listing on the way.
func (r repo) ListPublicRooms(ctx context.Context, limit int, createdAfter time.Time) ([]room.RoomSummary, error) {
	r.logger.DebugContext(ctx, "called", "limit", limit, "created_after", createdAfter)

	if err := r.rc.ZRemRangeByScore(ctx, publicRoomsKey, "-inf", "("+formatMillis(createdAfter)).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	codes, err := r.rc.ZRevRange(ctx, publicRoomsKey, 0, int64(limit)-1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	summaries := make([]room.RoomSummary, 0, len(codes))
	for _, code := range codes {
		summary, err := r.GetRoomSummary(ctx, code)
		if err != nil {
			if errors.Is(err, room.ErrRoomNotFound) {
				r.rc.ZRem(ctx, publicRoomsKey, code)
				continue
			}
			r.logger.DebugContext(ctx, "returned", "error", err)
			return nil, err
		}

		if !summary.Room.IsActive {
			r.rc.ZRem(ctx, publicRoomsKey, code)
			continue
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (r repo) GetRoomSummary(ctx context.Context, code string) (room.RoomSummary, error) {
	record, err := r.GetRoom(ctx, code)
	if err != nil {
		return room.RoomSummary{}, err
	}

	count, err := r.rc.ZCard(ctx, r.getMemberListKey(code)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.RoomSummary{}, err
	}

	return room.RoomSummary{
		Room:             record,
		ParticipantCount: int(count),
	}, nil
}

func (r repo) GetHostedRoomCodes(ctx context.Context, userId string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "user_id", userId)
	codes, err := r.rc.SMembers(ctx, r.getHostingKey(userId)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return codes, nil
}

func (r repo) RemoveHostedRoomCode(ctx context.Context, userId, code string) error {
	r.logger.DebugContext(ctx, "called", "user_id", userId, "code", code)
	if err := r.rc.SRem(ctx, r.getHostingKey(userId), code).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}
