package lobby

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memRepo struct {
	mu    sync.Mutex
	rooms map[string]Entry // game:code -> entry
}

func NewMemoryRepo() Repo {
	return &memRepo{rooms: make(map[string]Entry)}
}

func memKey(game, code string) string {
	return fmt.Sprintf("%s:%s", game, code)
}

func (m *memRepo) Save(ctx context.Context, e Entry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// 简单忽略 TTL，空闲房间由 GameManager 回收时删除
	m.rooms[memKey(e.Game, e.Code)] = e
	return nil
}

func (m *memRepo) Remove(ctx context.Context, game, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, memKey(game, code))
	return nil
}

func (m *memRepo) List(ctx context.Context, game string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.rooms))
	for _, e := range m.rooms {
		if game == "" || e.Game == game {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (m *memRepo) Get(ctx context.Context, game, code string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rooms[memKey(game, code)]
	return e, ok, nil
}

func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].Game != es[j].Game {
			return es[i].Game < es[j].Game
		}
		return es[i].Code < es[j].Code
	})
}
