package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/meegol/SIC-Gambling/internal/game/blackjack"
	"github.com/meegol/SIC-Gambling/internal/game/engine"
	"github.com/meegol/SIC-Gambling/internal/game/holdem"
	"github.com/meegol/SIC-Gambling/internal/game/inbetween"
	"github.com/meegol/SIC-Gambling/internal/game/roulette"
	"github.com/meegol/SIC-Gambling/internal/game/table"
	"github.com/meegol/SIC-Gambling/internal/websocket"
)

var (
	ErrUnknownGame  = errors.New("unknown game type")
	ErrRoomNotFound = errors.New("room not found")
	ErrEmptyCode    = errors.New("empty room code")
)

type GameType string

const (
	Roulette  GameType = "roulette"
	Blackjack GameType = "blackjack"
	Holdem    GameType = "holdem"
	InBetween GameType = "inbetween"
)

// 每种游戏的下行快照事件
var updateEvents = map[GameType]string{
	Roulette:  "room-update",
	Blackjack: "blackjack-update",
	Holdem:    "poker-update",
	InBetween: "inbetween-update",
}

func ParseGameType(s string) (GameType, error) {
	g := GameType(s)
	if _, ok := updateEvents[g]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGame, s)
	}
	return g, nil
}

type Config struct {
	Roulette  roulette.Config
	Blackjack blackjack.Config
	Holdem    holdem.Config
	InBetween inbetween.Config

	IdleTTL      time.Duration
	ReapInterval time.Duration // 0 disables reaping
}

func DefaultConfig() Config {
	return Config{
		Roulette:     roulette.DefaultConfig(),
		Blackjack:    blackjack.DefaultConfig(),
		Holdem:       holdem.DefaultConfig(),
		InBetween:    inbetween.DefaultConfig(),
		IdleTTL:      10 * time.Minute,
		ReapInterval: time.Minute,
	}
}

// Directory receives room summaries, e.g. the lobby.
type Directory interface {
	Publish(st engine.Status)
	Drop(game, code string)
}

type Options struct {
	Clock     quartz.Clock
	Logger    *log.Logger
	Directory Directory
}

// GameManager 管理所有房间：按 (游戏, 房间码) 懒创建 engine，路由玩家消息，回收空闲房间。
type GameManager struct {
	mu      sync.RWMutex
	engines map[RoomKey]*engine.Engine
	closed  bool

	conns *Connections
	hub   websocket.HubInterface
	cfg   Config
	clock quartz.Clock
	log   *log.Logger
	dir   Directory
}

func NewGameManager(hub websocket.HubInterface, cfg Config, opts Options) *GameManager {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &GameManager{
		engines: make(map[RoomKey]*engine.Engine),
		conns:   NewConnections(),
		hub:     hub,
		cfg:     cfg,
		clock:   opts.Clock,
		log:     opts.Logger.WithPrefix("manager"),
		dir:     opts.Directory,
	}
}

func (m *GameManager) newGame(key RoomKey) engine.Game {
	switch key.Game {
	case Roulette:
		return roulette.New(key.Code, m.cfg.Roulette)
	case Blackjack:
		return blackjack.New(key.Code, m.cfg.Blackjack)
	case Holdem:
		return holdem.New(key.Code, m.cfg.Holdem)
	default:
		return inbetween.New(key.Code, m.cfg.InBetween)
	}
}

// room returns the engine for key, creating and starting it when create is set.
// Caller holds m.mu for writing when create is true.
func (m *GameManager) room(key RoomKey, create bool) *engine.Engine {
	if eng, ok := m.engines[key]; ok || !create {
		return eng
	}
	opts := engine.Options{
		Game:   string(key.Game),
		Code:   key.Code,
		Event:  updateEvents[key.Game],
		Clock:  m.clock,
		Logger: m.log,
	}
	if m.dir != nil {
		opts.OnChange = m.dir.Publish
	}
	eng := engine.NewEngine(m.newGame(key), m.hub, opts)
	m.engines[key] = eng
	eng.Start()
	m.log.Info("room created", "game", key.Game, "code", key.Code)
	return eng
}

func keyOf(game GameType, code string) (RoomKey, error) {
	if _, ok := updateEvents[game]; !ok {
		return RoomKey{}, fmt.Errorf("%w: %q", ErrUnknownGame, game)
	}
	code = table.NormalizeCode(code)
	if code == "" {
		return RoomKey{}, ErrEmptyCode
	}
	return RoomKey{Game: game, Code: code}, nil
}

// Join 加入房间，房间不存在则创建。连接在锁内登记，回收器因此不会停掉这个房间；
// join 在解锁后投递，房间 inbox 满时不会卡住其他房间。
func (m *GameManager) Join(conn, name string, game GameType, code string) error {
	key, err := keyOf(game, code)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return engine.ErrStopped
	}
	eng := m.room(key, true)
	m.conns.Add(conn, key)
	m.mu.Unlock()

	eng.Join(conn, name)
	return nil
}

// Leave removes conn from one room.
func (m *GameManager) Leave(conn string, game GameType, code string) error {
	key, err := keyOf(game, code)
	if err != nil {
		return err
	}
	if !m.conns.Remove(conn, key) {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if eng := m.room(key, false); eng != nil {
		eng.Leave(conn)
	}
	return nil
}

// Act forwards an intent; actions never create rooms.
func (m *GameManager) Act(conn string, game GameType, code string, intent any) error {
	key, err := keyOf(game, code)
	if err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	eng := m.room(key, false)
	if eng == nil {
		return fmt.Errorf("%w: %s/%s", ErrRoomNotFound, key.Game, key.Code)
	}
	eng.EnqueueAction(conn, intent)
	return nil
}

// HandlePlayerMessage 统一入口（来自 Hub.OnIncoming）
func (m *GameManager) HandlePlayerMessage(msg websocket.IncomingMessage) {
	r, env, intent, err := decode(msg.Event, msg.Data)
	if err != nil {
		m.log.Warn("drop message", "from", msg.From, "err", err)
		return
	}
	if r == nil {
		m.log.Debug("unknown event", "from", msg.From, "event", msg.Event)
		return
	}

	switch {
	case msg.Event == EventLeaveRoom:
		err = m.Leave(msg.From, r.game, env.RoomCode)
	case r.join:
		err = m.Join(msg.From, m.playerName(msg.From, env.PlayerName), r.game, env.RoomCode)
	default:
		err = m.Act(msg.From, r.game, env.RoomCode, intent)
	}
	if err != nil {
		m.log.Debug("message ignored", "from", msg.From, "event", msg.Event, "err", err)
	}
}

func (m *GameManager) playerName(conn, given string) string {
	if given != "" {
		return given
	}
	if c, ok := m.hub.ClientByID(conn); ok && c.Name != "" {
		return c.Name
	}
	return "Player"
}

// HandleDisconnect 断线：从该连接加入过的每个房间移除。
func (m *GameManager) HandleDisconnect(conn string) {
	keys := m.conns.Drop(conn)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, key := range keys {
		if eng := m.room(key, false); eng != nil {
			eng.Leave(conn)
		}
	}
}

// Snapshot returns the current state of a room without joining it.
func (m *GameManager) Snapshot(ctx context.Context, game, code string) (any, error) {
	g, err := ParseGameType(game)
	if err != nil {
		return nil, err
	}
	key, err := keyOf(g, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRoomNotFound, err)
	}
	m.mu.RLock()
	eng := m.room(key, false)
	m.mu.RUnlock()
	if eng == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrRoomNotFound, key.Game, key.Code)
	}
	snap, err := eng.Snapshot(ctx)
	if errors.Is(err, engine.ErrStopped) {
		return nil, fmt.Errorf("%w: %s/%s", ErrRoomNotFound, key.Game, key.Code)
	}
	return snap, err
}

// Rooms returns the status of every live room.
func (m *GameManager) Rooms() []engine.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Status, 0, len(m.engines))
	for _, eng := range m.engines {
		out = append(out, eng.Status())
	}
	return out
}

// Reap 回收空闲房间：没有玩家、没有登记连接、且超过 IdleTTL 未活动。
// 仍存活的房间重新发布一次，刷新目录里的过期时间。
func (m *GameManager) Reap() int {
	now := m.clock.Now()
	var dead []*engine.Engine
	var keys []RoomKey

	m.mu.Lock()
	for key, eng := range m.engines {
		st := eng.Status()
		if st.Players == 0 && !m.conns.Occupied(key) && now.Sub(st.LastActive) >= m.cfg.IdleTTL {
			delete(m.engines, key)
			dead = append(dead, eng)
			keys = append(keys, key)
			continue
		}
		if m.dir != nil {
			m.dir.Publish(st)
		}
	}
	m.mu.Unlock()

	for i, eng := range dead {
		eng.Stop()
		if m.dir != nil {
			m.dir.Drop(string(keys[i].Game), keys[i].Code)
		}
		m.log.Info("room reaped", "game", keys[i].Game, "code", keys[i].Code)
	}
	return len(dead)
}

// Run reaps idle rooms every ReapInterval until ctx is done.
func (m *GameManager) Run(ctx context.Context) error {
	if m.cfg.ReapInterval <= 0 {
		<-ctx.Done()
		return nil
	}
	w := m.clock.TickerFunc(ctx, m.cfg.ReapInterval, func() error {
		m.Reap()
		return nil
	}, "manager", "reap")
	err := w.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Close stops every room; later joins fail with engine.ErrStopped.
func (m *GameManager) Close() {
	m.mu.Lock()
	m.closed = true
	engines := m.engines
	m.engines = make(map[RoomKey]*engine.Engine)
	m.mu.Unlock()

	for _, eng := range engines {
		eng.Stop()
	}
}
