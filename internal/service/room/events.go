package room

const (
	TypeRoomJoined              = "ROOM_JOINED"
	TypeParticipantJoined       = "PARTICIPANT_JOINED"
	TypeParticipantLeft         = "PARTICIPANT_LEFT"
	TypeVideoStateUpdated       = "VIDEO_STATE_UPDATED"
	TypeVideoSeeked             = "VIDEO_SEEKED"
	TypeNewMessage              = "NEW_MESSAGE"
	TypeParticipantReadyUpdated = "PARTICIPANT_READY_UPDATED"
	TypeHostTransferred         = "HOST_TRANSFERRED"
	TypeBecameHost              = "BECAME_HOST"
	TypeRoomClosed              = "ROOM_CLOSED"
	TypeError                   = "ERROR"
)

const (
	ReasonClosedByHost = "closed_by_host"
	ReasonExpired      = "expired"
	ReasonShutdown     = "shutdown"
	ReasonReplaced     = "replaced"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type ParticipantJoinedPayload struct {
	Participant      Participant `json:"participant"`
	ParticipantCount int         `json:"participant_count"`
}

type ParticipantLeftPayload struct {
	UserId           string `json:"user_id"`
	HostId           string `json:"host_id"`
	ParticipantCount int    `json:"participant_count"`
}

type VideoStatePayload struct {
	IsPlaying       bool    `json:"is_playing"`
	CurrentTime     float64 `json:"current_time"`
	ServerTimestamp int64   `json:"server_timestamp"`
}

type VideoSeekedPayload struct {
	CurrentTime     float64 `json:"current_time"`
	ServerTimestamp int64   `json:"server_timestamp"`
}

type ParticipantReadyPayload struct {
	UserId  string `json:"user_id"`
	IsReady bool   `json:"is_ready"`
}

type HostTransferredPayload struct {
	HostId          string `json:"host_id"`
	HostDisplayName string `json:"host_display_name"`
}

type BecameHostPayload struct {
	Code string `json:"code"`
}

type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
