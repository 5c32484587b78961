package room

import "time"

type ContentRef struct {
	ContentId string `json:"content_id"`
	UnitId    string `json:"unit_id"`
	Title     string `json:"title"`
	Sequence  int    `json:"sequence"`
}

// Same reports whether both refs point at the same watchable unit. Title and
// sequence are display data only.
func (c ContentRef) Same(other ContentRef) bool {
	return c.ContentId == other.ContentId && c.UnitId == other.UnitId
}

type VideoState struct {
	IsPlaying   bool    `redis:"is_playing"`
	CurrentTime float64 `redis:"current_time"`
	LastUpdate  int64   `redis:"last_update"`
}

type Room struct {
	Code            string  `redis:"code"`
	HostId          string  `redis:"host_id"`
	ContentId       string  `redis:"content_id"`
	ContentUnitId   string  `redis:"content_unit_id"`
	ContentTitle    string  `redis:"content_title"`
	ContentSequence int     `redis:"content_seq"`
	IsActive        bool    `redis:"is_active"`
	IsPublic        bool    `redis:"is_public"`
	MaxParticipants int     `redis:"max_participants"`
	CreatedAt       int64   `redis:"created_at"`
	IsPlaying       bool    `redis:"is_playing"`
	CurrentTime     float64 `redis:"current_time"`
	LastUpdate      int64   `redis:"last_update"`
}

func (r Room) Content() ContentRef {
	return ContentRef{
		ContentId: r.ContentId,
		UnitId:    r.ContentUnitId,
		Title:     r.ContentTitle,
		Sequence:  r.ContentSequence,
	}
}

func (r Room) VideoState() VideoState {
	return VideoState{
		IsPlaying:   r.IsPlaying,
		CurrentTime: r.CurrentTime,
		LastUpdate:  r.LastUpdate,
	}
}

func (r Room) ExpireAt(ttl time.Duration) time.Time {
	return time.UnixMilli(r.CreatedAt).Add(ttl)
}

type RoomSummary struct {
	Room             Room
	ParticipantCount int
}

type CreateRoomParams struct {
	Code            string
	Content         ContentRef
	IsPublic        bool
	MaxParticipants int
	CreatedAt       time.Time
	ExpireAt        time.Time
	Host            AddParticipantParams
}

type DeactivateRoomParams struct {
	Code     string
	HostId   string
	ExpireAt time.Time
}
