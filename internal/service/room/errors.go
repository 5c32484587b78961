package room

import "errors"

var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrRoomFull            = errors.New("room is full")
	ErrValidation          = errors.New("validation failed")
	ErrAlreadyHosting      = errors.New("already hosting another room")
	ErrStore               = errors.New("store unavailable")
	ErrTooManyMessages     = errors.New("too many messages")
	ErrRoomCodeExhausted   = errors.New("failed to generate a free room code")
	ErrServiceClosed       = errors.New("service closed")

	errJobAborted = errors.New("room job aborted")
)
