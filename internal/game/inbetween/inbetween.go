// Package inbetween runs the two-card comparison game: each player in turn
// draws a third card hoping it lands strictly between their two, with an
// escalating bet and a shared pot.
package inbetween

import (
	"slices"
	"time"

	"github.com/meegol/SIC-Gambling/internal/game/dealer"
	"github.com/meegol/SIC-Gambling/internal/game/engine"
	"github.com/meegol/SIC-Gambling/internal/game/payout"
	"github.com/meegol/SIC-Gambling/internal/game/table"
)

type Phase string

const (
	Waiting     Phase = "WAITING"
	Dealing     Phase = "DEALING"
	Choosing    Phase = "CHOOSING"
	Playing     Phase = "PLAYING"
	HigherLower Phase = "HIGHER_LOWER"
	Results     Phase = "RESULTS"
)

const timerNextRound = "next-round"

// InitialBet 每轮开始时的注额，输一次翻倍。
const InitialBet = 1

type Config struct {
	StartingBalance int64
	ResultsDelay    time.Duration
	MaxSeats        int
	// CarryPot rolls an unwon pot into the next round. Off by default: every
	// round opens with an empty pot.
	CarryPot bool
}

func DefaultConfig() Config {
	return Config{
		StartingBalance: 1000,
		ResultsDelay:    5 * time.Second,
		MaxSeats:        10,
		CarryPot:        false,
	}
}

// ---------------------
//       INTENTS
// ---------------------

type ActionType string

const (
	Play   ActionType = "PLAY"
	Fold   ActionType = "FOLD"
	Higher ActionType = "HIGHER"
	Lower  ActionType = "LOWER"
)

type Action struct {
	Action ActionType `json:"action"`
}

var transitions = map[Phase][]ActionType{
	Waiting:     nil,
	Dealing:     nil,
	Choosing:    {Play, Fold},
	Playing:     nil,
	HigherLower: {Higher, Lower},
	Results:     nil,
}

// ---------------------
//        STATE
// ---------------------

type Player struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Balance          int64        `json:"balance"`
	Hand             []table.Card `json:"hand"`
	ThirdCard        *table.Card  `json:"thirdCard,omitempty"`
	Bet              int64        `json:"bet"`
	HasPlayed        bool         `json:"hasPlayed"`
	HasWon           bool         `json:"hasWon"`
	HasFolded        bool         `json:"hasFolded"`
	IsChoosingHigher *bool        `json:"isChoosingHigher"`
}

func (p *Player) waiting() bool { return !p.HasFolded && !p.HasPlayed }

type Game struct {
	code    string
	cfg     Config
	players []*Player
	phase   Phase
	dealer  *dealer.Dealer
	pot     int64
	bet     int64
	current int
	round   int
	epoch   uint64
}

type Option func(*Game)

// WithDealer replaces the shuffling dealer, e.g. with dealer.Fixed in tests.
func WithDealer(d *dealer.Dealer) Option {
	return func(g *Game) { g.dealer = d }
}

func New(code string, cfg Config, opts ...Option) *Game {
	g := &Game{
		code:    code,
		cfg:     cfg,
		phase:   Waiting,
		bet:     InitialBet,
		current: -1,
		round:   1,
		dealer:  dealer.NewDealer(time.Now().UnixNano(), table.LowAceValue),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Game) Phase() string { return string(g.phase) }

func (g *Game) Members() []string {
	out := make([]string, len(g.players))
	for i, p := range g.players {
		out[i] = p.ID
	}
	return out
}

func (g *Game) find(id string) (int, *Player) {
	for i, p := range g.players {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

func (g *Game) setPhase(p Phase) {
	g.phase = p
	g.epoch++
}

// ---------------------
//      OPERATIONS
// ---------------------

func (g *Game) Join(conn, name string) engine.Outcome {
	if _, p := g.find(conn); p != nil {
		return engine.Changed()
	}
	if g.cfg.MaxSeats > 0 && len(g.players) >= g.cfg.MaxSeats {
		return engine.Ignored()
	}
	g.players = append(g.players, &Player{
		ID:        conn,
		Name:      name,
		Balance:   g.cfg.StartingBalance,
		Hand:      []table.Card{},
		HasFolded: g.phase != Waiting,
	})
	if g.phase == Waiting && len(g.players) >= 2 {
		return g.startRound()
	}
	return engine.Changed()
}

func (g *Game) Leave(conn string) engine.Outcome {
	i, p := g.find(conn)
	if p == nil {
		return engine.Ignored()
	}
	g.players = slices.Delete(g.players, i, i+1)

	if len(g.players) < 2 {
		g.abandon()
		return engine.Changed()
	}
	if g.phase != Choosing && g.phase != HigherLower {
		return engine.Changed()
	}
	switch {
	case i < g.current:
		g.current--
	case i == g.current:
		g.current--
		return g.advance()
	}
	return engine.Changed()
}

// abandon 人数不足两人时放弃本轮；底池保留。
func (g *Game) abandon() {
	g.current = -1
	g.bet = InitialBet
	for _, p := range g.players {
		g.resetPlayer(p)
	}
	if len(g.players) == 0 {
		g.pot = 0
	}
	g.setPhase(Waiting)
}

func (g *Game) resetPlayer(p *Player) {
	p.Hand = []table.Card{}
	p.ThirdCard = nil
	p.Bet = 0
	p.HasPlayed, p.HasWon, p.HasFolded = false, false, false
	p.IsChoosingHigher = nil
}

func (g *Game) Act(conn string, intent any) engine.Outcome {
	var a Action
	switch in := intent.(type) {
	case Action:
		a = in
	case *Action:
		a = *in
	default:
		return engine.Ignored()
	}
	if !slices.Contains(transitions[g.phase], a.Action) {
		return engine.Ignored()
	}
	if g.current < 0 || g.current >= len(g.players) || g.players[g.current].ID != conn {
		return engine.Ignored()
	}
	p := g.players[g.current]

	switch a.Action {
	case Fold:
		p.HasFolded = true
		return g.advance()
	case Play:
		return g.play(p)
	}
	higher := a.Action == Higher
	p.IsChoosingHigher = &higher
	return g.resolve(p, payout.HigherLower(p.Hand[0].Value, p.ThirdCard.Value, higher))
}

func (g *Game) play(p *Player) engine.Outcome {
	if len(p.Hand) != 2 {
		return engine.Ignored()
	}
	c, ok := g.dealer.Draw()
	if !ok {
		return engine.Ignored()
	}
	p.ThirdCard = &c
	if p.Hand[0].Value == p.Hand[1].Value {
		g.setPhase(HigherLower)
		return engine.Changed()
	}
	return g.resolve(p, payout.Between(p.Hand[0].Value, p.Hand[1].Value, c.Value))
}

// resolve 结算当前玩家：赢得整个底池并结束本轮，或输掉当前注额并让注额翻倍。
func (g *Game) resolve(p *Player, won bool) engine.Outcome {
	g.setPhase(Playing)
	p.HasPlayed = true
	p.HasWon = won
	if won {
		p.Balance += g.pot
		g.pot = 0
		return g.finish()
	}
	loss := min(g.bet, p.Balance)
	p.Balance -= loss
	p.Bet = loss
	g.pot += loss
	g.bet *= 2
	return g.advance()
}

// advance moves the turn to the next seat that has neither folded nor played.
// When nobody is left the round ends without a winner.
func (g *Game) advance() engine.Outcome {
	n := len(g.players)
	for i := 1; i <= n; i++ {
		j := ((g.current+i)%n + n) % n
		if g.players[j].waiting() {
			g.current = j
			if g.phase != Choosing {
				g.setPhase(Choosing)
			}
			return engine.Changed()
		}
	}
	return g.finish()
}

func (g *Game) finish() engine.Outcome {
	g.current = -1
	g.setPhase(Results)
	return engine.Changed(engine.Timer{Kind: timerNextRound, After: g.cfg.ResultsDelay, Epoch: g.epoch})
}

func (g *Game) startRound() engine.Outcome {
	g.setPhase(Dealing)
	g.bet = InitialBet
	if !g.cfg.CarryPot {
		g.pot = 0
	}
	var active []*Player
	for _, p := range g.players {
		g.resetPlayer(p)
		// 没有余额的玩家本轮旁观
		p.HasFolded = p.Balance <= 0
		if !p.HasFolded {
			active = append(active, p)
		}
	}
	if len(active) < 2 {
		g.abandon()
		return engine.Changed()
	}

	g.dealer.NewDeck()
	for i, hand := range g.dealer.DealRounds(len(active), 2) {
		active[i].Hand = append(active[i].Hand, hand...)
	}
	g.current = -1
	return g.advance()
}

func (g *Game) Fire(t engine.Timer) engine.Outcome {
	if t.Epoch != g.epoch || t.Kind != timerNextRound || g.phase != Results {
		return engine.Ignored()
	}
	g.round++
	return g.startRound()
}

// ---------------------
//       SNAPSHOT
// ---------------------

type Snapshot struct {
	Code               string   `json:"code"`
	Players            []Player `json:"players"`
	Pot                int64    `json:"pot"`
	CurrentBet         int64    `json:"currentBet"`
	CurrentPlayerIndex int      `json:"currentPlayerIndex"`
	GameState          Phase    `json:"gameState"`
	Round              int      `json:"round"`
	DeckRemaining      int      `json:"deckRemaining"`
}

func (g *Game) Snapshot() any {
	s := Snapshot{
		Code:               g.code,
		Players:            make([]Player, len(g.players)),
		Pot:                g.pot,
		CurrentBet:         g.bet,
		CurrentPlayerIndex: g.current,
		GameState:          g.phase,
		Round:              g.round,
		DeckRemaining:      g.dealer.Remaining(),
	}
	for i, p := range g.players {
		cp := *p
		cp.Hand = table.CopyCards(p.Hand)
		if p.ThirdCard != nil {
			c := *p.ThirdCard
			cp.ThirdCard = &c
		}
		if p.IsChoosingHigher != nil {
			b := *p.IsChoosingHigher
			cp.IsChoosingHigher = &b
		}
		s.Players[i] = cp
	}
	return s
}
