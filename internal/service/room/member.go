package room

import (
	"context"
	"errors"

	"github.com/sharetube/watchparty/internal/identity"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/room"
)

type JoinRoomParams struct {
	Identity identity.Identity
	Conn     connection.Conn
	// Code may be empty when AsHost is set.
	Code            string
	Content         Content
	AsHost          bool
	IsPublic        bool
	MaxParticipants int
}

type JoinRoomResponse struct {
	Snapshot    RoomSnapshot
	Participant Participant
	Rejoined    bool
}

// JoinRoom registers the caller in a room, creating it first for a host join
// intent that resolves to no room. The caller receives ROOM_JOINED, the rest of
// the room PARTICIPANT_JOINED.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	if !params.Identity.Valid() {
		return JoinRoomResponse{}, ErrUnauthenticated
	}

	if params.Conn == nil {
		return JoinRoomResponse{}, validationError(errors.New("connection is required"))
	}

	if params.Code != "" {
		resp, err := s.joinRoom(ctx, params.Code, params)
		if !params.AsHost || !errors.Is(err, ErrRoomNotFound) {
			return resp, err
		}
	} else if !params.AsHost {
		return JoinRoomResponse{}, ErrRoomNotFound
	}

	code, err := s.resolveHostRoom(ctx, params)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	return s.joinRoom(ctx, code, params)
}

func (s *service) joinRoom(ctx context.Context, code string, params *JoinRoomParams) (JoinRoomResponse, error) {
	if !validCode(code) {
		return JoinRoomResponse{}, ErrRoomNotFound
	}

	return run(ctx, s, code, func(a *roomActor) (JoinRoomResponse, error) {
		ctx := a.ctx(ctx)
		r, err := s.loadActiveRoom(ctx, code)
		if err != nil {
			return JoinRoomResponse{}, err
		}
		a.armExpiry(s.expireAt(r))

		participants, err := s.roomRepo.GetParticipants(ctx, code)
		if err != nil {
			return JoinRoomResponse{}, s.storeError(ctx, "get participants", err)
		}

		messages, err := s.roomRepo.GetMessages(ctx, code, s.cfg.ChatHistoryLimit)
		if err != nil {
			return JoinRoomResponse{}, s.storeError(ctx, "get messages", err)
		}

		userId := params.Identity.UserId
		existing, _ := splitParticipants(participants, userId)
		rejoined := existing != nil

		var participant room.Participant
		if rejoined {
			participant = *existing
		} else {
			if len(participants) >= r.MaxParticipants {
				return JoinRoomResponse{}, ErrRoomFull
			}

			participant, err = s.roomRepo.AddParticipant(ctx, &room.AddParticipantParams{
				Code:        code,
				UserId:      userId,
				DisplayName: params.Identity.DisplayName,
				AvatarUrl:   params.Identity.AvatarUrl,
				IsHost:      false,
				JoinedAt:    s.now(),
				ExpireAt:    s.expireAt(r),
			})
			if err != nil {
				return JoinRoomResponse{}, s.storeError(ctx, "add participant", err)
			}
			participants = append(participants, participant)
		}

		a.forgetLeave(userId)
		if prev := a.conns.Add(userId, params.Conn); prev != nil {
			if err := prev.Push(&Output{
				Type:    TypeRoomClosed,
				Payload: RoomClosedPayload{Reason: ReasonReplaced},
			}); err != nil {
				s.logger.DebugContext(ctx, "failed to notify replaced connection", "user_id", userId, "error", err)
			}
			prev.Close()
		}

		snapshot := RoomSnapshot{
			Code:            r.Code,
			Content:         mapContent(r.Content()),
			HostId:          r.HostId,
			IsHost:          r.HostId == userId,
			IsPublic:        r.IsPublic,
			MaxParticipants: r.MaxParticipants,
			CreatedAt:       r.CreatedAt,
			Participants:    mapParticipants(participants),
			Messages:        mapMessages(messages),
			VideoState:      mapVideoState(r.VideoState()),
			ServerTimestamp: s.now().UnixMilli(),
		}

		a.send(ctx, userId, &Output{
			Type:    TypeRoomJoined,
			Payload: snapshot,
		})

		if !rejoined {
			s.logger.InfoContext(ctx, "participant joined", "user_id", userId)
			a.broadcast(ctx, &Output{
				Type: TypeParticipantJoined,
				Payload: ParticipantJoinedPayload{
					Participant:      mapParticipant(participant),
					ParticipantCount: len(participants),
				},
			}, userId)
		}

		return JoinRoomResponse{
			Snapshot:    snapshot,
			Participant: mapParticipant(participant),
			Rejoined:    rejoined,
		}, nil
	})
}

type LeaveRoomParams struct {
	UserId string
	Code   string
	// Conn is the connection the leave came from. A leave from a connection
	// that has since been replaced is ignored.
	Conn connection.Conn
}

// LeaveRoom removes the participant, migrating host authority or closing the
// room when it drains. Leaving a room one is not in is a no-op. A leave from a
// connection that the store fails is kept and retried by the room.
func (s *service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) error {
	if params.UserId == "" {
		return ErrUnauthenticated
	}

	if !validCode(params.Code) {
		return nil
	}

	_, err := run(ctx, s, params.Code, func(a *roomActor) (struct{}, error) {
		err := s.leave(a.ctx(ctx), a, params)
		if errors.Is(err, ErrStore) && params.Conn != nil {
			a.deferLeave(params)
		}
		return struct{}{}, err
	})

	return err
}

func (s *service) leave(ctx context.Context, a *roomActor, params *LeaveRoomParams) error {
	userId := params.UserId
	conn, connErr := a.conns.Get(userId)
	if params.Conn != nil && (connErr != nil || conn != params.Conn) {
		s.logger.DebugContext(ctx, "ignoring leave from stale connection", "user_id", userId)
		return nil
	}

	dropConn := func() {
		if connErr == nil {
			_ = a.conns.Remove(userId, conn)
		}
	}

	r, err := s.roomRepo.GetRoom(ctx, params.Code)
	if errors.Is(err, room.ErrRoomNotFound) {
		dropConn()
		return nil
	}

	if err != nil {
		return s.storeError(ctx, "get room", err)
	}

	participants, err := s.roomRepo.GetParticipants(ctx, params.Code)
	if err != nil {
		return s.storeError(ctx, "get participants", err)
	}

	leaver, remaining := splitParticipants(participants, userId)
	if leaver == nil {
		dropConn()
		return nil
	}

	connected := a.conns.Len()
	if connErr == nil {
		connected--
	}

	deactivate := r.IsActive && (len(remaining) == 0 || connected == 0)

	var newHost *room.Participant
	if leaver.IsHost && r.IsActive && !deactivate {
		elected := electHost(remaining)
		newHost = &elected
	}

	removeParams := room.RemoveParticipantParams{
		Code:       params.Code,
		UserId:     userId,
		Deactivate: deactivate,
		ExpireAt:   s.expireAt(r),
	}
	if newHost != nil {
		removeParams.NewHostId = newHost.UserId
	}

	if err := s.roomRepo.RemoveParticipant(ctx, &removeParams); err != nil {
		return s.storeError(ctx, "remove participant", err)
	}
	dropConn()

	s.logger.InfoContext(ctx, "participant left", "user_id", userId, "deactivated", deactivate)
	if deactivate {
		a.stop()
		return nil
	}

	hostId := r.HostId
	if newHost != nil {
		hostId = newHost.UserId
		s.logger.InfoContext(ctx, "host migrated", "host_id", hostId)
	}

	a.broadcast(ctx, &Output{
		Type: TypeParticipantLeft,
		Payload: ParticipantLeftPayload{
			UserId:           userId,
			HostId:           hostId,
			ParticipantCount: len(remaining),
		},
	}, userId)

	if newHost != nil {
		a.send(ctx, newHost.UserId, &Output{
			Type:    TypeBecameHost,
			Payload: BecameHostPayload{Code: params.Code},
		})
	}

	return nil
}

type ToggleReadyParams struct {
	UserId string
	Code   string
}

type ToggleReadyResponse struct {
	IsReady bool
}

func (s *service) ToggleReady(ctx context.Context, params *ToggleReadyParams) (ToggleReadyResponse, error) {
	if params.UserId == "" {
		return ToggleReadyResponse{}, ErrUnauthenticated
	}

	if !validCode(params.Code) {
		return ToggleReadyResponse{}, ErrRoomNotFound
	}

	return run(ctx, s, params.Code, func(a *roomActor) (ToggleReadyResponse, error) {
		ctx := a.ctx(ctx)
		r, err := s.loadActiveRoom(ctx, params.Code)
		if err != nil {
			return ToggleReadyResponse{}, err
		}

		participant, err := s.getParticipant(ctx, params.Code, params.UserId)
		if err != nil {
			return ToggleReadyResponse{}, err
		}

		isReady := !participant.IsReady
		if err := s.roomRepo.UpdateParticipantIsReady(ctx, &room.UpdateParticipantIsReadyParams{
			Code:     params.Code,
			UserId:   params.UserId,
			IsReady:  isReady,
			ExpireAt: s.expireAt(r),
		}); err != nil {
			return ToggleReadyResponse{}, s.storeError(ctx, "update is ready", err)
		}

		a.broadcast(ctx, &Output{
			Type: TypeParticipantReadyUpdated,
			Payload: ParticipantReadyPayload{
				UserId:  params.UserId,
				IsReady: isReady,
			},
		}, "")

		return ToggleReadyResponse{IsReady: isReady}, nil
	})
}

func (s *service) getParticipant(ctx context.Context, code, userId string) (room.Participant, error) {
	participant, err := s.roomRepo.GetParticipant(ctx, code, userId)
	if err != nil {
		if errors.Is(err, room.ErrParticipantNotFound) {
			return room.Participant{}, ErrParticipantNotFound
		}
		return room.Participant{}, s.storeError(ctx, "get participant", err)
	}

	return participant, nil
}
