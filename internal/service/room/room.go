package room

import (
	"cmp"
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchparty/internal/identity"
	"github.com/sharetube/watchparty/internal/repository/room"
	"golang.org/x/exp/slices"
)

func validCode(code string) bool {
	return validation.Validate(code, roomCodeRule...) == nil
}

// loadActiveRoom reads a room and hides it unless it is active and within its TTL.
func (s *service) loadActiveRoom(ctx context.Context, code string) (room.Room, error) {
	if !validCode(code) {
		return room.Room{}, ErrRoomNotFound
	}

	r, err := s.roomRepo.GetRoom(ctx, code)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return room.Room{}, ErrRoomNotFound
		}
		return room.Room{}, s.storeError(ctx, "get room", err)
	}

	if !r.IsActive || s.expired(r) {
		return room.Room{}, ErrRoomNotFound
	}

	return r, nil
}

func (s *service) loadActiveSummary(ctx context.Context, code string) (room.RoomSummary, error) {
	if !validCode(code) {
		return room.RoomSummary{}, ErrRoomNotFound
	}

	summary, err := s.roomRepo.GetRoomSummary(ctx, code)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return room.RoomSummary{}, ErrRoomNotFound
		}
		return room.RoomSummary{}, s.storeError(ctx, "get room summary", err)
	}

	if !summary.Room.IsActive || s.expired(summary.Room) {
		return room.RoomSummary{}, ErrRoomNotFound
	}

	return summary, nil
}

// findHostedRooms returns the active rooms userId hosts, newest first. A user
// can host more than one room after being handed host authority. Index
// entries pointing at rooms that are gone or handed over are dropped.
func (s *service) findHostedRooms(ctx context.Context, userId string) ([]room.Room, error) {
	codes, err := s.roomRepo.GetHostedRoomCodes(ctx, userId)
	if err != nil {
		return nil, s.storeError(ctx, "get hosted rooms", err)
	}

	var hosted []room.Room
	for _, code := range codes {
		r, err := s.loadActiveRoom(ctx, code)
		if err != nil && !errors.Is(err, ErrRoomNotFound) {
			return nil, err
		}

		if err == nil && r.HostId == userId {
			hosted = append(hosted, r)
			continue
		}

		if err := s.roomRepo.RemoveHostedRoomCode(ctx, userId, code); err != nil {
			s.logger.WarnContext(ctx, "failed to drop stale hosting entry", "user_id", userId, "room_code", code, "error", err)
		}
	}

	slices.SortFunc(hosted, func(a, b room.Room) int {
		if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})

	return hosted, nil
}

// findHostedRoom returns the newest active room userId hosts.
func (s *service) findHostedRoom(ctx context.Context, userId string) (room.Room, error) {
	hosted, err := s.findHostedRooms(ctx, userId)
	if err != nil {
		return room.Room{}, err
	}

	if len(hosted) == 0 {
		return room.Room{}, ErrRoomNotFound
	}

	return hosted[0], nil
}

type createRoomParams struct {
	host            identity.Identity
	content         Content
	isPublic        bool
	maxParticipants int
}

// createRoom claims a fresh code and stores the room with its host as the
// first participant. Callers hold createMu.
func (s *service) createRoom(ctx context.Context, params *createRoomParams) (string, error) {
	maxParticipants := params.maxParticipants
	if maxParticipants == 0 {
		maxParticipants = s.cfg.MembersLimit
	}

	now := s.now()
	expireAt := now.Add(s.cfg.RoomTTL)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.generator.GenerateRandomString(roomCodeLength)
		err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{
			Code:            code,
			Content:         params.content.ref(),
			IsPublic:        params.isPublic,
			MaxParticipants: maxParticipants,
			CreatedAt:       now,
			ExpireAt:        expireAt,
			Host: room.AddParticipantParams{
				Code:        code,
				UserId:      params.host.UserId,
				DisplayName: params.host.DisplayName,
				AvatarUrl:   params.host.AvatarUrl,
				IsHost:      true,
				JoinedAt:    now,
				ExpireAt:    expireAt,
			},
		})
		if errors.Is(err, room.ErrRoomCodeTaken) {
			s.logger.InfoContext(ctx, "room code collision", "room_code", code, "attempt", attempt)
			continue
		}

		if err != nil {
			return "", s.storeError(ctx, "create room", err)
		}

		s.logger.InfoContext(ctx, "room created", "room_code", code, "host_id", params.host.UserId)
		return code, nil
	}

	return "", ErrRoomCodeExhausted
}

func (s *service) validateRoomOptions(content Content, maxParticipants int) error {
	if err := content.Validate(); err != nil {
		return validationError(err)
	}

	if err := validation.Validate(maxParticipants, s.maxParticipantsRule()...); err != nil {
		return validationError(err)
	}

	return nil
}

type CreateRoomParams struct {
	Identity        identity.Identity
	Content         Content
	IsPublic        bool
	MaxParticipants int
}

type CreateRoomResponse struct {
	Room RoomSummary
}

func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	if !params.Identity.Valid() {
		return CreateRoomResponse{}, ErrUnauthenticated
	}

	if err := s.validateRoomOptions(params.Content, params.MaxParticipants); err != nil {
		return CreateRoomResponse{}, err
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if _, err := s.findHostedRoom(ctx, params.Identity.UserId); err == nil {
		return CreateRoomResponse{}, ErrAlreadyHosting
	} else if !errors.Is(err, ErrRoomNotFound) {
		return CreateRoomResponse{}, err
	}

	code, err := s.createRoom(ctx, &createRoomParams{
		host:            params.Identity,
		content:         params.Content,
		isPublic:        params.IsPublic,
		maxParticipants: params.MaxParticipants,
	})
	if err != nil {
		return CreateRoomResponse{}, err
	}

	summary, err := s.loadActiveSummary(ctx, code)
	if err != nil {
		return CreateRoomResponse{}, err
	}

	return CreateRoomResponse{
		Room: mapSummary(summary),
	}, nil
}

// resolveHostRoom finds or creates the room a host join intent without a
// usable code should land in.
func (s *service) resolveHostRoom(ctx context.Context, params *JoinRoomParams) (string, error) {
	if err := s.validateRoomOptions(params.Content, params.MaxParticipants); err != nil {
		return "", err
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	hosted, err := s.findHostedRooms(ctx, params.Identity.UserId)
	if err != nil {
		return "", err
	}

	if i := slices.IndexFunc(hosted, func(r room.Room) bool {
		return r.Content().Same(params.Content.ref())
	}); i >= 0 {
		return hosted[i].Code, nil
	}

	if len(hosted) > 0 {
		return "", ErrAlreadyHosting
	}

	return s.createRoom(ctx, &createRoomParams{
		host:            params.Identity,
		content:         params.Content,
		isPublic:        params.IsPublic,
		maxParticipants: params.MaxParticipants,
	})
}

func (s *service) FindActiveRoom(ctx context.Context, code string) (RoomSummary, error) {
	summary, err := s.loadActiveSummary(ctx, code)
	if err != nil {
		return RoomSummary{}, err
	}

	return mapSummary(summary), nil
}

// ListPublicRooms returns active public rooms, newest first.
func (s *service) ListPublicRooms(ctx context.Context, limit int) ([]RoomSummary, error) {
	if limit <= 0 || limit > s.cfg.PublicRoomsLimit {
		limit = s.cfg.PublicRoomsLimit
	}

	createdAfter := s.now().Add(-s.cfg.RoomTTL)
	summaries, err := s.roomRepo.ListPublicRooms(ctx, limit, createdAfter)
	if err != nil {
		return nil, s.storeError(ctx, "list public rooms", err)
	}

	res := make([]RoomSummary, 0, len(summaries))
	for _, summary := range summaries {
		if s.expired(summary.Room) {
			continue
		}
		res = append(res, mapSummary(summary))
	}

	return res, nil
}

func (s *service) GetHostedRoom(ctx context.Context, userId string) (RoomSummary, error) {
	if userId == "" {
		return RoomSummary{}, ErrUnauthenticated
	}

	r, err := s.findHostedRoom(ctx, userId)
	if err != nil {
		return RoomSummary{}, err
	}

	return s.FindActiveRoom(ctx, r.Code)
}

type CloseRoomParams struct {
	UserId string
	Code   string
}

// CloseRoom deactivates the room on behalf of its host and disconnects everyone in it.
func (s *service) CloseRoom(ctx context.Context, params *CloseRoomParams) error {
	if params.UserId == "" {
		return ErrUnauthenticated
	}

	if !validCode(params.Code) {
		return ErrRoomNotFound
	}

	_, err := run(ctx, s, params.Code, func(a *roomActor) (struct{}, error) {
		ctx := a.ctx(ctx)
		r, err := s.loadActiveRoom(ctx, params.Code)
		if err != nil {
			return struct{}{}, err
		}

		if r.HostId != params.UserId {
			return struct{}{}, ErrPermissionDenied
		}

		if err := s.roomRepo.DeactivateRoom(ctx, &room.DeactivateRoomParams{
			Code:     r.Code,
			HostId:   r.HostId,
			ExpireAt: s.expireAt(r),
		}); err != nil {
			return struct{}{}, s.storeError(ctx, "deactivate room", err)
		}

		s.logger.InfoContext(ctx, "room closed by host", "host_id", r.HostId)
		a.close(ctx, ReasonClosedByHost)
		return struct{}{}, nil
	})

	return err
}
