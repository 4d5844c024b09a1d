package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/meegol/SIC-Gambling/internal/websocket"
)

var ErrStopped = errors.New("engine stopped")

type cmdKind int

const (
	cmdJoin cmdKind = iota
	cmdLeave
	cmdAct
	cmdTimer
	cmdSnapshot
)

type command struct {
	kind   cmdKind
	conn   string
	name   string
	intent any
	timer  Timer
	reply  chan any
}

type pendingTimer struct {
	timer *quartz.Timer
	epoch uint64
}

// Status is a cheap summary of a room readable from any goroutine.
type Status struct {
	Game       string    `json:"game"`
	Code       string    `json:"code"`
	Phase      string    `json:"phase"`
	Players    int       `json:"players"`
	LastActive time.Time `json:"lastActive"`
}

type Options struct {
	Game  string // game type, e.g. "blackjack"
	Code  string
	Event string // outbound snapshot event, e.g. "blackjack-update"

	Clock  quartz.Clock
	Logger *log.Logger
	// OnChange runs on the engine goroutine after every accepted mutation.
	OnChange func(Status)
}

// ---------------------
//       ENGINE
// ---------------------

// Engine 是单个房间的串行化边界：玩家意图、断线、定时器与快照读取都经由 inbox
// 进入同一个 goroutine，不同房间互不阻塞。
type Engine struct {
	game  Game
	hub   websocket.HubInterface
	opts  Options
	clock quartz.Clock
	log   *log.Logger

	inbox   chan command
	done    chan struct{}
	exited  chan struct{}
	once    sync.Once
	started atomic.Bool

	timers map[string]pendingTimer // owned by actionLoop

	mu     sync.RWMutex
	status Status
}

func NewEngine(g Game, hub websocket.HubInterface, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Engine{
		game:   g,
		hub:    hub,
		opts:   opts,
		clock:  opts.Clock,
		log:    opts.Logger.WithPrefix(opts.Game).With("room", opts.Code),
		inbox:  make(chan command, 64), // 防止死锁
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		timers: make(map[string]pendingTimer),
		status: Status{
			Game:       opts.Game,
			Code:       opts.Code,
			Phase:      g.Phase(),
			LastActive: opts.Clock.Now(),
		},
	}
}

// Start 启动动作处理循环
func (e *Engine) Start() {
	if e.started.CompareAndSwap(false, true) {
		go e.actionLoop()
	}
}

// Stop terminates the loop and cancels pending timers. Safe to call twice.
func (e *Engine) Stop() {
	e.once.Do(func() { close(e.done) })
	if e.started.Load() {
		<-e.exited
	}
}

func (e *Engine) actionLoop() {
	defer close(e.exited)
	defer e.stopTimers()
	for {
		select {
		case cmd := <-e.inbox:
			e.handle(cmd)
		case <-e.done:
			return
		}
	}
}

func (e *Engine) submit(cmd command) bool {
	select {
	case e.inbox <- cmd:
		return true
	case <-e.done:
		return false
	}
}

// Join seats a connection (or re-broadcasts if already seated).
func (e *Engine) Join(conn, name string) {
	e.submit(command{kind: cmdJoin, conn: conn, name: name})
}

// Leave removes a connection from the room.
func (e *Engine) Leave(conn string) {
	e.submit(command{kind: cmdLeave, conn: conn})
}

// EnqueueAction 玩家动作入口（GameManager 调用）
func (e *Engine) EnqueueAction(conn string, intent any) {
	e.submit(command{kind: cmdAct, conn: conn, intent: intent})
}

// Snapshot reads the current state through the inbox so it observes every
// command submitted before it.
func (e *Engine) Snapshot(ctx context.Context) (any, error) {
	reply := make(chan any, 1)
	if !e.submit(command{kind: cmdSnapshot, reply: reply}) {
		return nil, ErrStopped
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-e.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, fmt.Errorf("snapshot %s/%s: %w", e.opts.Game, e.opts.Code, ctx.Err())
	}
}

// Status returns the last published summary.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *Engine) handle(cmd command) {
	var out Outcome
	switch cmd.kind {
	case cmdJoin:
		out = e.game.Join(cmd.conn, cmd.name)
		if out.Changed {
			e.log.Info("player joined", "conn", cmd.conn, "name", cmd.name)
		}
	case cmdLeave:
		out = e.game.Leave(cmd.conn)
		if out.Changed {
			e.log.Info("player left", "conn", cmd.conn)
		}
	case cmdAct:
		out = e.game.Act(cmd.conn, cmd.intent)
		if !out.Changed {
			e.log.Debug("intent ignored", "conn", cmd.conn, "intent", fmt.Sprintf("%T%+v", cmd.intent, cmd.intent), "phase", e.game.Phase())
		}
	case cmdTimer:
		if p, ok := e.timers[cmd.timer.Kind]; ok && p.epoch == cmd.timer.Epoch {
			delete(e.timers, cmd.timer.Kind)
		}
		out = e.game.Fire(cmd.timer)
		if !out.Changed {
			e.log.Debug("stale timer", "kind", cmd.timer.Kind, "epoch", cmd.timer.Epoch)
		}
	case cmdSnapshot:
		cmd.reply <- e.game.Snapshot()
		return
	}

	if out.Changed {
		e.publish()
	}
	for _, t := range out.Timers {
		e.schedule(t)
	}
}

func (e *Engine) publish() {
	members := e.game.Members()
	st := Status{
		Game:       e.opts.Game,
		Code:       e.opts.Code,
		Phase:      e.game.Phase(),
		Players:    len(members),
		LastActive: e.clock.Now(),
	}
	e.mu.Lock()
	e.status = st
	e.mu.Unlock()

	if len(members) > 0 {
		e.hub.BroadcastToPlayers(members, websocket.OutgoingMessage{
			Event: e.opts.Event,
			Data:  e.game.Snapshot(),
		})
	}
	if e.opts.OnChange != nil {
		e.opts.OnChange(st)
	}
}

// schedule 同类定时器只保留最新的一个。
func (e *Engine) schedule(t Timer) {
	if p, ok := e.timers[t.Kind]; ok {
		p.timer.Stop()
	}
	msg := command{kind: cmdTimer, timer: t}
	tm := e.clock.AfterFunc(t.After, func() {
		e.submit(msg)
	}, e.opts.Game, t.Kind)
	e.timers[t.Kind] = pendingTimer{timer: tm, epoch: t.Epoch}
}

func (e *Engine) stopTimers() {
	for kind, p := range e.timers {
		p.timer.Stop()
		delete(e.timers, kind)
	}
}
