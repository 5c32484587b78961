package room

import "time"

type UpdateVideoStateParams struct {
	Code     string
	State    VideoState
	ExpireAt time.Time
}
