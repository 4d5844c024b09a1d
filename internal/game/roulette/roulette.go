// Package roulette is the wheel game: an open betting window, a spin, settlement
// against the payout table, and a fresh window after a short results pause.
package roulette

import (
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/meegol/SIC-Gambling/internal/game/engine"
	"github.com/meegol/SIC-Gambling/internal/game/payout"
)

type Phase string

const (
	Waiting  Phase = "WAITING"
	Betting  Phase = "BETTING"
	Spinning Phase = "SPINNING"
	Results  Phase = "RESULTS"
)

const (
	timerAutoSpin = "auto-spin"
	timerResult   = "spin-result"
	timerReopen   = "reopen"
)

type Config struct {
	StartingBalance int64
	SpinDelay       time.Duration
	ResultsDelay    time.Duration
	AutoSpinAfter   time.Duration
	MaxSeats        int // 0 = unlimited
}

func DefaultConfig() Config {
	return Config{
		StartingBalance: 1000,
		SpinDelay:       3 * time.Second,
		ResultsDelay:    5 * time.Second,
		AutoSpinAfter:   20 * time.Second,
	}
}

// ---------------------
//       INTENTS
// ---------------------

type PlaceBet struct {
	Type    payout.BetType `json:"type"`
	Amount  int64          `json:"amount"`
	Numbers []int          `json:"numbers"`
}

type RemoveBet struct {
	BetID string `json:"betId"`
}

type Spin struct{}

type intentKind int

const (
	placeBet intentKind = iota
	removeBet
	spin
)

// 状态转移表：只有 BETTING 阶段接受任何下注类意图。
var transitions = map[Phase][]intentKind{
	Waiting:  nil,
	Betting:  {placeBet, removeBet, spin},
	Spinning: nil,
	Results:  nil,
}

func kindOf(intent any) (intentKind, bool) {
	switch intent.(type) {
	case PlaceBet, *PlaceBet:
		return placeBet, true
	case RemoveBet, *RemoveBet:
		return removeBet, true
	case Spin, *Spin:
		return spin, true
	}
	return 0, false
}

// ---------------------
//        STATE
// ---------------------

type Bet struct {
	ID       string         `json:"id"`
	PlayerID string         `json:"playerId"`
	Type     payout.BetType `json:"type"`
	Amount   int64          `json:"amount"`
	Numbers  []int          `json:"numbers"`
}

type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
	Bets    []Bet  `json:"bets"`
}

type Room struct {
	code    string
	cfg     Config
	players []*Player
	phase   Phase
	bets    []Bet
	result  *int
	epoch   uint64

	wheel func() int
	newID func() string
}

type Option func(*Room)

// WithRand draws spin results from rnd.
func WithRand(rnd *rand.Rand) Option {
	return func(r *Room) {
		r.wheel = func() int { return rnd.Intn(payout.WheelSize) }
	}
}

// WithWheel replaces the random wheel, e.g. to replay recorded results.
func WithWheel(wheel func() int) Option {
	return func(r *Room) { r.wheel = wheel }
}

func WithIDs(newID func() string) Option {
	return func(r *Room) { r.newID = newID }
}

func New(code string, cfg Config, opts ...Option) *Room {
	r := &Room{
		code:  code,
		cfg:   cfg,
		phase: Waiting,
		newID: uuid.NewString,
	}
	WithRand(rand.New(rand.NewSource(time.Now().UnixNano())))(r)
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Room) Phase() string { return string(r.phase) }

func (r *Room) Members() []string {
	out := make([]string, len(r.players))
	for i, p := range r.players {
		out[i] = p.ID
	}
	return out
}

func (r *Room) find(id string) (int, *Player) {
	for i, p := range r.players {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

func (r *Room) setPhase(p Phase) {
	r.phase = p
	r.epoch++
}

func (r *Room) timer(kind string, after time.Duration) engine.Timer {
	return engine.Timer{Kind: kind, After: after, Epoch: r.epoch}
}

// ---------------------
//      OPERATIONS
// ---------------------

func (r *Room) Join(conn, name string) engine.Outcome {
	if _, p := r.find(conn); p != nil {
		return engine.Changed()
	}
	if r.cfg.MaxSeats > 0 && len(r.players) >= r.cfg.MaxSeats {
		return engine.Ignored()
	}
	r.players = append(r.players, &Player{
		ID:      conn,
		Name:    name,
		Balance: r.cfg.StartingBalance,
		Bets:    []Bet{},
	})
	if r.phase == Waiting {
		return engine.Changed(r.openBetting())
	}
	return engine.Changed()
}

// Leave 断线玩家的未结算下注直接作废，不退款。
func (r *Room) Leave(conn string) engine.Outcome {
	i, p := r.find(conn)
	if p == nil {
		return engine.Ignored()
	}
	r.players = slices.Delete(r.players, i, i+1)
	r.bets = slices.DeleteFunc(r.bets, func(b Bet) bool { return b.PlayerID == conn })
	if len(r.players) == 0 && r.phase == Betting {
		r.setPhase(Waiting)
	}
	return engine.Changed()
}

func (r *Room) Act(conn string, intent any) engine.Outcome {
	kind, ok := kindOf(intent)
	if !ok || !slices.Contains(transitions[r.phase], kind) {
		return engine.Ignored()
	}
	_, p := r.find(conn)
	if p == nil {
		return engine.Ignored()
	}

	switch in := intent.(type) {
	case PlaceBet:
		return r.placeBet(p, in)
	case *PlaceBet:
		return r.placeBet(p, *in)
	case RemoveBet:
		return r.removeBet(p, in.BetID)
	case *RemoveBet:
		return r.removeBet(p, in.BetID)
	}
	return r.spin()
}

func (r *Room) placeBet(p *Player, in PlaceBet) engine.Outcome {
	if in.Amount <= 0 || in.Amount > p.Balance {
		return engine.Ignored()
	}
	numbers, ok := payout.Covers(in.Type, in.Numbers)
	if !ok {
		return engine.Ignored()
	}
	bet := Bet{
		ID:       r.newID(),
		PlayerID: p.ID,
		Type:     in.Type,
		Amount:   in.Amount,
		Numbers:  numbers,
	}
	r.bets = append(r.bets, bet)
	p.Bets = append(p.Bets, bet)
	p.Balance -= in.Amount
	return engine.Changed()
}

func (r *Room) removeBet(p *Player, betID string) engine.Outcome {
	i := slices.IndexFunc(p.Bets, func(b Bet) bool { return b.ID == betID })
	if i < 0 {
		return engine.Ignored()
	}
	bet := p.Bets[i]
	p.Bets = slices.Delete(p.Bets, i, i+1)
	r.bets = slices.DeleteFunc(r.bets, func(b Bet) bool { return b.ID == betID })
	p.Balance += bet.Amount
	return engine.Changed()
}

func (r *Room) spin() engine.Outcome {
	if len(r.players) == 0 {
		return engine.Ignored()
	}
	r.setPhase(Spinning)
	return engine.Changed(r.timer(timerResult, r.cfg.SpinDelay))
}

func (r *Room) openBetting() engine.Timer {
	r.result = nil
	r.setPhase(Betting)
	return r.timer(timerAutoSpin, r.cfg.AutoSpinAfter)
}

func (r *Room) Fire(t engine.Timer) engine.Outcome {
	if t.Epoch != r.epoch {
		return engine.Ignored()
	}
	switch {
	case t.Kind == timerAutoSpin && r.phase == Betting:
		return r.spin()
	case t.Kind == timerResult && r.phase == Spinning:
		r.settle(r.wheel())
		return engine.Changed(r.timer(timerReopen, r.cfg.ResultsDelay))
	case t.Kind == timerReopen && r.phase == Results:
		if len(r.players) == 0 {
			r.result = nil
			r.setPhase(Waiting)
			return engine.Changed()
		}
		return engine.Changed(r.openBetting())
	}
	return engine.Ignored()
}

// settle 按结果为每一注派彩并清空所有下注。
func (r *Room) settle(result int) {
	r.result = &result
	r.setPhase(Results)
	for _, b := range r.bets {
		if _, p := r.find(b.PlayerID); p != nil {
			p.Balance += payout.Roulette(b.Type, b.Numbers, b.Amount, result)
		}
	}
	r.bets = nil
	for _, p := range r.players {
		p.Bets = []Bet{}
	}
}

// ---------------------
//       SNAPSHOT
// ---------------------

type Snapshot struct {
	Code        string   `json:"code"`
	Players     []Player `json:"players"`
	GameState   Phase    `json:"gameState"`
	CurrentBets []Bet    `json:"currentBets"`
	SpinResult  *int     `json:"spinResult,omitempty"`
	SpinColor   string   `json:"spinColor,omitempty"`
	CanBet      bool     `json:"canBet"`
}

func copyBets(in []Bet) []Bet {
	out := make([]Bet, len(in))
	for i, b := range in {
		b.Numbers = slices.Clone(b.Numbers)
		out[i] = b
	}
	return out
}

func (r *Room) Snapshot() any {
	return r.snapshot()
}

func (r *Room) snapshot() Snapshot {
	s := Snapshot{
		Code:        r.code,
		Players:     make([]Player, len(r.players)),
		GameState:   r.phase,
		CurrentBets: copyBets(r.bets),
		CanBet:      r.phase == Betting,
	}
	for i, p := range r.players {
		cp := *p
		cp.Bets = copyBets(p.Bets)
		s.Players[i] = cp
	}
	if r.result != nil {
		n := *r.result
		s.SpinResult = &n
		s.SpinColor = payout.Color(n)
	}
	return s
}
