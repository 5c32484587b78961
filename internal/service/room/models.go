package room

import (
	"github.com/sharetube/watchparty/internal/repository/room"
)

type Content struct {
	ContentId string `json:"content_id"`
	UnitId    string `json:"unit_id"`
	Title     string `json:"title"`
	Sequence  int    `json:"sequence"`
}

func (c Content) ref() room.ContentRef {
	return room.ContentRef{
		ContentId: c.ContentId,
		UnitId:    c.UnitId,
		Title:     c.Title,
		Sequence:  c.Sequence,
	}
}

type Participant struct {
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarUrl   string `json:"avatar_url"`
	IsHost      bool   `json:"is_host"`
	IsReady     bool   `json:"is_ready"`
	JoinedAt    int64  `json:"joined_at"`
}

type VideoState struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	LastUpdate  int64   `json:"last_update"`
}

type Message struct {
	Id          string `json:"id"`
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
}

type RoomSummary struct {
	Code             string  `json:"code"`
	Content          Content `json:"content"`
	HostId           string  `json:"host_id"`
	IsPublic         bool    `json:"is_public"`
	ParticipantCount int     `json:"participant_count"`
	MaxParticipants  int     `json:"max_participants"`
	CreatedAt        int64   `json:"created_at"`
}

// RoomSnapshot is everything a client needs to render a room it just joined.
type RoomSnapshot struct {
	Code            string        `json:"code"`
	Content         Content       `json:"content"`
	HostId          string        `json:"host_id"`
	IsHost          bool          `json:"is_host"`
	IsPublic        bool          `json:"is_public"`
	MaxParticipants int           `json:"max_participants"`
	CreatedAt       int64         `json:"created_at"`
	Participants    []Participant `json:"participants"`
	Messages        []Message     `json:"messages"`
	VideoState      VideoState    `json:"video_state"`
	ServerTimestamp int64         `json:"server_timestamp"`
}

func mapContent(c room.ContentRef) Content {
	return Content{
		ContentId: c.ContentId,
		UnitId:    c.UnitId,
		Title:     c.Title,
		Sequence:  c.Sequence,
	}
}

func mapParticipant(p room.Participant) Participant {
	return Participant{
		UserId:      p.UserId,
		DisplayName: p.DisplayName,
		AvatarUrl:   p.AvatarUrl,
		IsHost:      p.IsHost,
		IsReady:     p.IsReady,
		JoinedAt:    p.JoinedAt,
	}
}

func mapParticipants(participants []room.Participant) []Participant {
	res := make([]Participant, 0, len(participants))
	for _, p := range participants {
		res = append(res, mapParticipant(p))
	}

	return res
}

func mapVideoState(v room.VideoState) VideoState {
	return VideoState{
		IsPlaying:   v.IsPlaying,
		CurrentTime: v.CurrentTime,
		LastUpdate:  v.LastUpdate,
	}
}

func mapMessage(m room.Message) Message {
	return Message{
		Id:          m.Id,
		UserId:      m.UserId,
		DisplayName: m.DisplayName,
		Text:        m.Text,
		Timestamp:   m.Timestamp,
	}
}

func mapMessages(messages []room.Message) []Message {
	res := make([]Message, 0, len(messages))
	for _, m := range messages {
		res = append(res, mapMessage(m))
	}

	return res
}

func mapSummary(s room.RoomSummary) RoomSummary {
	return RoomSummary{
		Code:             s.Room.Code,
		Content:          mapContent(s.Room.Content()),
		HostId:           s.Room.HostId,
		IsPublic:         s.Room.IsPublic,
		ParticipantCount: s.ParticipantCount,
		MaxParticipants:  s.Room.MaxParticipants,
		CreatedAt:        s.Room.CreatedAt,
	}
}
