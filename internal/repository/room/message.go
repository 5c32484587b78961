package room

import "time"

type Message struct {
	Id          string `json:"id"`
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
}

type AppendMessageParams struct {
	Code     string
	Message  Message
	Limit    int
	ExpireAt time.Time
}
