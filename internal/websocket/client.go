package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

type Client struct {
	ID   string // 每个连接唯一，重连即新玩家
	Name string // 来自 guest token，可为空
	Conn *websocket.Conn
	Send chan OutgoingMessage
	Hub  *Hub
}

const (
	writeWait      = 10 * time.Second    // 单次写超时
	pongWait       = 60 * time.Second    // 读超时
	pingPeriod     = (pongWait * 9) / 10 // 心跳发送周期
	maxMessageSize = 1024 * 4            // 最大4KB
	sendBuffer     = 64
)

// 写协程
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod) // 心跳
	defer func() {
		ticker.Stop()
		c.Hub.remove(c)
		_ = c.Conn.Close()
	}()

	for {
		select {

		// 有消息待发
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub关闭Send，通知前端
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(msg); err != nil {
				c.Hub.log.Debug("write failed", "conn", c.ID, "err", err)
				return
			}

		// 定时发送 ping 维持连接健康
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// 读协程：所有上行消息交给 Hub 串行分发
func (c *Client) readPump() {
	defer func() {
		c.Hub.remove(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg IncomingMessage
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.log.Warn("read failed", "conn", c.ID, "err", err)
			}
			return
		}

		if !c.Hub.receive(IncomingMessage{
			From:  c.ID,
			Event: msg.Event,
			Data:  msg.Data,
		}) {
			return
		}
	}
}
