package room

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchparty/internal/repository/room"
)

// loadHostedRoom loads the room and checks that userId holds playback authority in it.
func (s *service) loadHostedRoom(ctx context.Context, code, userId string) (room.Room, error) {
	r, err := s.loadActiveRoom(ctx, code)
	if err != nil {
		return room.Room{}, err
	}

	if r.HostId != userId {
		return room.Room{}, ErrPermissionDenied
	}

	return r, nil
}

func (s *service) updateVideoState(ctx context.Context, r room.Room, state room.VideoState) error {
	if err := s.roomRepo.UpdateVideoState(ctx, &room.UpdateVideoStateParams{
		Code:     r.Code,
		State:    state,
		ExpireAt: s.expireAt(r),
	}); err != nil {
		return s.storeError(ctx, "update video state", err)
	}

	return nil
}

type SetPlaybackStateParams struct {
	UserId      string
	Code        string
	IsPlaying   bool
	CurrentTime float64
}

type SetPlaybackStateResponse struct {
	VideoState VideoState
}

// SetPlaybackState applies a play/pause from the host and relays it to everyone else.
func (s *service) SetPlaybackState(ctx context.Context, params *SetPlaybackStateParams) (SetPlaybackStateResponse, error) {
	if params.UserId == "" {
		return SetPlaybackStateResponse{}, ErrUnauthenticated
	}

	if err := validation.Validate(params.CurrentTime, currentTimeRule...); err != nil {
		return SetPlaybackStateResponse{}, validationError(err)
	}

	if !validCode(params.Code) {
		return SetPlaybackStateResponse{}, ErrRoomNotFound
	}

	return run(ctx, s, params.Code, func(a *roomActor) (SetPlaybackStateResponse, error) {
		ctx := a.ctx(ctx)
		r, err := s.loadHostedRoom(ctx, params.Code, params.UserId)
		if err != nil {
			return SetPlaybackStateResponse{}, err
		}

		state := room.VideoState{
			IsPlaying:   params.IsPlaying,
			CurrentTime: params.CurrentTime,
			LastUpdate:  s.now().UnixMilli(),
		}
		if err := s.updateVideoState(ctx, r, state); err != nil {
			return SetPlaybackStateResponse{}, err
		}

		a.broadcast(ctx, &Output{
			Type: TypeVideoStateUpdated,
			Payload: VideoStatePayload{
				IsPlaying:       state.IsPlaying,
				CurrentTime:     state.CurrentTime,
				ServerTimestamp: state.LastUpdate,
			},
		}, params.UserId)

		return SetPlaybackStateResponse{VideoState: mapVideoState(state)}, nil
	})
}

type SeekParams struct {
	UserId      string
	Code        string
	CurrentTime float64
}

type SeekResponse struct {
	VideoState VideoState
}

// Seek moves the playback position without touching is_playing.
func (s *service) Seek(ctx context.Context, params *SeekParams) (SeekResponse, error) {
	if params.UserId == "" {
		return SeekResponse{}, ErrUnauthenticated
	}

	if err := validation.Validate(params.CurrentTime, currentTimeRule...); err != nil {
		return SeekResponse{}, validationError(err)
	}

	if !validCode(params.Code) {
		return SeekResponse{}, ErrRoomNotFound
	}

	return run(ctx, s, params.Code, func(a *roomActor) (SeekResponse, error) {
		ctx := a.ctx(ctx)
		r, err := s.loadHostedRoom(ctx, params.Code, params.UserId)
		if err != nil {
			return SeekResponse{}, err
		}

		state := room.VideoState{
			IsPlaying:   r.IsPlaying,
			CurrentTime: params.CurrentTime,
			LastUpdate:  s.now().UnixMilli(),
		}
		if err := s.updateVideoState(ctx, r, state); err != nil {
			return SeekResponse{}, err
		}

		a.broadcast(ctx, &Output{
			Type: TypeVideoSeeked,
			Payload: VideoSeekedPayload{
				CurrentTime:     state.CurrentTime,
				ServerTimestamp: state.LastUpdate,
			},
		}, params.UserId)

		return SeekResponse{VideoState: mapVideoState(state)}, nil
	})
}

type TransferHostParams struct {
	UserId       string
	Code         string
	TargetUserId string
}

type TransferHostResponse struct {
	Host Participant
}

// TransferHost hands playback authority from the current host to another participant.
func (s *service) TransferHost(ctx context.Context, params *TransferHostParams) (TransferHostResponse, error) {
	if params.UserId == "" {
		return TransferHostResponse{}, ErrUnauthenticated
	}

	if err := validation.Validate(params.TargetUserId, userIdRule...); err != nil {
		return TransferHostResponse{}, validationError(err)
	}

	if params.TargetUserId == params.UserId {
		return TransferHostResponse{}, validationError(errors.New("target is already host"))
	}

	if !validCode(params.Code) {
		return TransferHostResponse{}, ErrRoomNotFound
	}

	return run(ctx, s, params.Code, func(a *roomActor) (TransferHostResponse, error) {
		ctx := a.ctx(ctx)
		r, err := s.loadHostedRoom(ctx, params.Code, params.UserId)
		if err != nil {
			return TransferHostResponse{}, err
		}

		target, err := s.getParticipant(ctx, params.Code, params.TargetUserId)
		if err != nil {
			return TransferHostResponse{}, err
		}

		if err := s.roomRepo.TransferHost(ctx, &room.TransferHostParams{
			Code:       params.Code,
			PrevHostId: params.UserId,
			NewHostId:  target.UserId,
			ExpireAt:   s.expireAt(r),
		}); err != nil {
			return TransferHostResponse{}, s.storeError(ctx, "transfer host", err)
		}

		target.IsHost = true
		s.logger.InfoContext(ctx, "host transferred", "prev_host_id", params.UserId, "host_id", target.UserId)

		a.broadcast(ctx, &Output{
			Type: TypeHostTransferred,
			Payload: HostTransferredPayload{
				HostId:          target.UserId,
				HostDisplayName: target.DisplayName,
			},
		}, "")
		a.send(ctx, target.UserId, &Output{
			Type:    TypeBecameHost,
			Payload: BecameHostPayload{Code: params.Code},
		})

		return TransferHostResponse{Host: mapParticipant(target)}, nil
	})
}
