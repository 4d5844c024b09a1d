package lobby

import "time"

// Entry 大厅里的一个房间摘要
type Entry struct {
	Game      string    `json:"game"`
	Code      string    `json:"code"`
	Phase     string    `json:"phase"`
	Players   int       `json:"players"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListResponse GET /rooms 的返回
type ListResponse struct {
	Rooms []Entry `json:"rooms"`
}
