package websocket

import (
	"sync"

	"github.com/charmbracelet/log"
)

type HubInterface interface {
	BroadcastToPlayers(ids []string, msg OutgoingMessage)
	ClientByID(id string) (*Client, bool)
	SendToPlayer(id string, msg OutgoingMessage)
	Close()
}

// Hub 管理所有连接。注册与注销、上行消息在 Run 中串行处理，
// 因此同一连接的断线事件一定排在它之前发出的所有消息之后。
type Hub struct {
	clients      map[string]*Client // connection id -> client
	unregister   chan *Client
	incoming     chan IncomingMessage
	OnIncoming   func(IncomingMessage)
	OnDisconnect func(id string)
	quit         chan struct{}
	closeOnce    sync.Once
	mu           sync.RWMutex
	log          *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		unregister: make(chan *Client),
		incoming:   make(chan IncomingMessage),
		quit:       make(chan struct{}),
		log:        logger.WithPrefix("hub"),
	}
}

func (h *Hub) Run() {
	h.log.Info("Hub started")

	for {
		select {
		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c.ID]
			if ok {
				delete(h.clients, c.ID)
				close(c.Send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			if !ok {
				continue
			}
			h.log.Info("unregister", "conn", c.ID, "clients", n)
			if h.OnDisconnect != nil {
				h.OnDisconnect(c.ID)
			}

		case msg := <-h.incoming:
			// 已注销连接的迟到消息直接丢弃
			if _, ok := h.ClientByID(msg.From); !ok {
				continue
			}
			if h.OnIncoming != nil {
				h.OnIncoming(msg)
			}

		case <-h.quit:
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.log.Info("Hub stopped")
			return
		}
	}
}

// Register adds a client before its pumps start.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("register", "conn", c.ID, "clients", n)
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) receive(msg IncomingMessage) bool {
	select {
	case h.incoming <- msg:
		return true
	case <-h.quit:
		return false
	}
}

// BroadcastToPlayers 向多个连接推送同一条消息。发送缓冲已满的慢连接会被断开，
// 而不是悄悄丢掉一份快照。
func (h *Hub) BroadcastToPlayers(ids []string, msg OutgoingMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range ids {
		if c, ok := h.clients[id]; ok {
			h.deliver(c, msg)
		}
	}
}

// SendToPlayer sends to a single connection.
func (h *Hub) SendToPlayer(id string, msg OutgoingMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[id]; ok {
		h.deliver(c, msg)
	}
}

// caller holds h.mu
func (h *Hub) deliver(c *Client, msg OutgoingMessage) {
	select {
	case c.Send <- msg:
	default:
		h.log.Warn("send buffer full, dropping connection", "conn", c.ID)
		go h.remove(c)
	}
}

// ClientByID looks up a live connection.
func (h *Hub) ClientByID(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}
