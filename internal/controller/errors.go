package controller

import (
	"errors"
	"net/http"

	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/rest"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type errorKind struct {
	err     error
	code    string
	status  int
	message string
}

// errorKinds maps core errors to what the acting client is told. An empty
// message means the error text itself is safe to show.
var errorKinds = []errorKind{
	{room.ErrUnauthenticated, "UNAUTHENTICATED", http.StatusUnauthorized, "authentication required"},
	{room.ErrPermissionDenied, "PERMISSION_DENIED", http.StatusForbidden, "only the host can do that"},
	{room.ErrRoomNotFound, "ROOM_NOT_FOUND", http.StatusNotFound, "room not found"},
	{room.ErrParticipantNotFound, "PARTICIPANT_NOT_FOUND", http.StatusNotFound, "participant not found"},
	{room.ErrRoomFull, "ROOM_FULL", http.StatusConflict, "room is full"},
	{room.ErrValidation, "VALIDATION_FAILED", http.StatusBadRequest, ""},
	{room.ErrAlreadyHosting, "ALREADY_HOSTING", http.StatusBadRequest, "you already host another active room"},
	{room.ErrTooManyMessages, "TOO_MANY_MESSAGES", http.StatusTooManyRequests, "slow down"},
	{room.ErrStore, "UNAVAILABLE", http.StatusServiceUnavailable, "temporary failure, try again"},
	{room.ErrRoomCodeExhausted, "UNAVAILABLE", http.StatusServiceUnavailable, "temporary failure, try again"},
	{room.ErrServiceClosed, "UNAVAILABLE", http.StatusServiceUnavailable, "server is shutting down"},
	{wsrouter.ErrUnknownMessageType, "UNKNOWN_MESSAGE_TYPE", http.StatusBadRequest, ""},
	{wsrouter.ErrInvalidPayload, "INVALID_PAYLOAD", http.StatusBadRequest, "malformed message"},
}

func classifyError(err error) errorKind {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.err) {
			if kind.message == "" {
				kind.message = err.Error()
			}
			return kind
		}
	}

	return errorKind{
		err:     err,
		code:    "INTERNAL",
		status:  http.StatusInternalServerError,
		message: "internal error",
	}
}

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := classifyError(err)
	if kind.status >= http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
	} else {
		c.logger.DebugContext(r.Context(), "request rejected", "error", err)
	}

	rest.WriteJSON(w, kind.status, rest.Envelope{"error": rest.Envelope{
		"code":    kind.code,
		"message": kind.message,
	}})
}
