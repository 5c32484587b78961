package room

import "time"

type Participant struct {
	UserId      string `redis:"user_id"`
	DisplayName string `redis:"display_name"`
	AvatarUrl   string `redis:"avatar_url"`
	IsHost      bool   `redis:"is_host"`
	IsReady     bool   `redis:"is_ready"`
	JoinedAt    int64  `redis:"joined_at"`
	JoinSeq     int64  `redis:"join_seq"`
}

type AddParticipantParams struct {
	Code        string
	UserId      string
	DisplayName string
	AvatarUrl   string
	IsHost      bool
	JoinedAt    time.Time
	ExpireAt    time.Time
}

type RemoveParticipantParams struct {
	Code   string
	UserId string
	// NewHostId is promoted in the same transaction when the removed participant was host.
	NewHostId string
	// Deactivate marks the room inactive in the same transaction when nobody remains.
	Deactivate bool
	ExpireAt   time.Time
}

type UpdateParticipantIsReadyParams struct {
	Code     string
	UserId   string
	IsReady  bool
	ExpireAt time.Time
}

type TransferHostParams struct {
	Code       string
	PrevHostId string
	NewHostId  string
	ExpireAt   time.Time
}
