package manager

import (
	"sort"
	"sync"
)

// RoomKey identifies a room across game types.
type RoomKey struct {
	Game GameType
	Code string
}

// Connections 记录每个连接加入了哪些房间，断线时据此逐个移除。
type Connections struct {
	mu      sync.Mutex
	rooms   map[string]map[RoomKey]struct{}
	members map[RoomKey]int
}

func NewConnections() *Connections {
	return &Connections{
		rooms:   make(map[string]map[RoomKey]struct{}),
		members: make(map[RoomKey]int),
	}
}

func (c *Connections) Add(conn string, key RoomKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.rooms[conn]
	if !ok {
		set = make(map[RoomKey]struct{})
		c.rooms[conn] = set
	}
	if _, ok := set[key]; !ok {
		set[key] = struct{}{}
		c.members[key]++
	}
}

// Remove reports whether conn was registered in the room.
func (c *Connections) Remove(conn string, key RoomKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.rooms[conn]
	if !ok {
		return false
	}
	if _, ok := set[key]; !ok {
		return false
	}
	delete(set, key)
	if len(set) == 0 {
		delete(c.rooms, conn)
	}
	c.release(key)
	return true
}

// caller holds c.mu
func (c *Connections) release(key RoomKey) {
	c.members[key]--
	if c.members[key] <= 0 {
		delete(c.members, key)
	}
}

// Drop forgets conn and returns every room it was in.
func (c *Connections) Drop(conn string) []RoomKey {
	c.mu.Lock()
	set := c.rooms[conn]
	delete(c.rooms, conn)
	for key := range set {
		c.release(key)
	}
	c.mu.Unlock()
	return sortKeys(set)
}

// Occupied reports whether any connection is registered in the room.
func (c *Connections) Occupied(key RoomKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.members[key] > 0
}

func (c *Connections) Rooms(conn string) []RoomKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortKeys(c.rooms[conn])
}

func sortKeys(set map[RoomKey]struct{}) []RoomKey {
	out := make([]RoomKey, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Game != out[j].Game {
			return out[i].Game < out[j].Game
		}
		return out[i].Code < out[j].Code
	})
	return out
}
