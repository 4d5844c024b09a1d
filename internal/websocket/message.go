package websocket

import "encoding/json"

type OutgoingMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// IncomingMessage 玩家上行消息；Data 由网关按事件名解码。
type IncomingMessage struct {
	From  string          `json:"from"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
