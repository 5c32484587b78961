package room

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomCodeTaken       = errors.New("room code already taken")
	ErrParticipantNotFound = errors.New("participant not found")
)
