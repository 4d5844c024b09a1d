package engine

import "time"

// ---------------------
//   GAME CONTRACT
// ---------------------

// Timer 是一条延迟消息：到期后被投递回同一个房间的 action loop，
// 由游戏根据 Epoch 与当前阶段重新校验后才生效。
type Timer struct {
	Kind  string
	After time.Duration
	Epoch uint64
}

// Outcome 描述一次处理的结果。Changed 为 false 表示意图被静默忽略。
type Outcome struct {
	Changed bool
	Timers  []Timer
}

// Ignored is the outcome of an illegal intent.
func Ignored() Outcome { return Outcome{} }

// Changed is the outcome of an accepted mutation, optionally scheduling timers.
func Changed(timers ...Timer) Outcome {
	return Outcome{Changed: true, Timers: timers}
}

// Game is a single room's authoritative state machine. Implementations are not
// safe for concurrent use; the Engine serialises every call.
type Game interface {
	Join(conn, name string) Outcome
	Leave(conn string) Outcome
	Act(conn string, intent any) Outcome
	Fire(t Timer) Outcome
	// Snapshot returns an immutable deep copy of the state.
	Snapshot() any
	// Members returns the connections seated in the room, in seat order.
	Members() []string
	Phase() string
}
