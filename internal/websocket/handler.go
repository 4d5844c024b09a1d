package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ConnectedEvent is the first message on every connection; it tells the client
// its connection identity, which is also its player id.
const ConnectedEvent = "connected"

// GET /ws  (jwt.required 时 middleware 已在 main.go 中加入)
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.GetString("playerName") // JWT middleware 注入

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("upgrade failed", "err", err)
			return
		}

		client := &Client{
			ID:   uuid.NewString(),
			Name: name,
			Conn: conn,
			Send: make(chan OutgoingMessage, sendBuffer),
			Hub:  hub,
		}
		client.Send <- OutgoingMessage{
			Event: ConnectedEvent,
			Data:  map[string]any{"id": client.ID, "name": name},
		}

		hub.Register(client)

		go client.writePump()
		go client.readPump()
	}
}
