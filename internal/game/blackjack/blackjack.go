// Package blackjack runs a dealer-vs-players table: one bet per player, a
// hit/stand/double turn sequence, dealer auto-play and settlement.
package blackjack

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
	Waiting    Phase = "WAITING"
	Betting    Phase = "BETTING"
	Playing    Phase = "PLAYING"
	DealerTurn Phase = "DEALER_TURN"
	Results    Phase = "RESULTS"
)

const (
	timerDealer = "dealer"
	timerReset  = "reset"
)

// DealerStandsOn 庄家点数达到该值即停牌。
const DealerStandsOn = 17

type Config struct {
	StartingBalance int64
	DealerDelay     time.Duration
	ResultsDelay    time.Duration
	MaxSeats        int
}

func DefaultConfig() Config {
	return Config{
		StartingBalance: 1000,
		DealerDelay:     2 * time.Second,
		ResultsDelay:    5 * time.Second,
		MaxSeats:        7,
	}
}

// ---------------------
//       INTENTS
// ---------------------

type PlaceBet struct {
	Amount int64 `json:"betAmount"`
}

type ActionType string

const (
	Hit    ActionType = "HIT"
	Stand  ActionType = "STAND"
	Double ActionType = "DOUBLE"
)

type Action struct {
	Action ActionType `json:"action"`
}

type intentKind int

const (
	placeBet intentKind = iota
	playerAction
)

var transitions = map[Phase][]intentKind{
	Waiting:    nil,
	Betting:    {placeBet},
	Playing:    {playerAction},
	DealerTurn: nil,
	Results:    nil,
}

func kindOf(intent any) (intentKind, bool) {
	switch intent.(type) {
	case PlaceBet, *PlaceBet:
		return placeBet, true
	case Action, *Action:
		return playerAction, true
	}
	return 0, false
}

// ---------------------
//        STATE
// ---------------------

type Player struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Balance      int64        `json:"balance"`
	Hand         []table.Card `json:"hand"`
	HandValue    int          `json:"handValue"`
	Bet          int64        `json:"bet"`
	IsStanding   bool         `json:"isStanding"`
	HasBlackjack bool         `json:"hasBlackjack"`
	IsBusted     bool         `json:"isBusted"`
}

// inRound reports whether the player was dealt into the current round.
func (p *Player) inRound() bool { return len(p.Hand) > 0 }

func (p *Player) done() bool {
	return p.IsStanding || p.IsBusted || p.HasBlackjack
}

type Table struct {
	code    string
	cfg     Config
	players []*Player
	phase   Phase
	dealer  *dealer.Dealer
	house   []table.Card
	current int
	epoch   uint64
}

type Option func(*Table)

// WithDealer replaces the shuffling dealer, e.g. with dealer.Fixed in tests.
func WithDealer(d *dealer.Dealer) Option {
	return func(t *Table) { t.dealer = d }
}

func New(code string, cfg Config, opts ...Option) *Table {
	t := &Table{
		code:    code,
		cfg:     cfg,
		phase:   Waiting,
		current: -1,
		dealer:  dealer.NewDealer(time.Now().UnixNano(), table.BlackjackValue),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// HandValue 计算手牌点数：A 先按 11 计，总点数超过 21 时逐张降为 1。
func HandValue(cards []table.Card) int {
	total, aces := 0, 0
	for _, c := range cards {
		if c.IsAce() {
			aces++
		}
		total += table.BlackjackValue(c.Rank)
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsNatural reports a two-card 21.
func IsNatural(cards []table.Card) bool {
	return len(cards) == 2 && HandValue(cards) == 21
}

func (t *Table) Phase() string { return string(t.phase) }

func (t *Table) Members() []string {
	out := make([]string, len(t.players))
	for i, p := range t.players {
		out[i] = p.ID
	}
	return out
}

func (t *Table) find(id string) (int, *Player) {
	for i, p := range t.players {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

func (t *Table) setPhase(p Phase) {
	t.phase = p
	t.epoch++
}

func (t *Table) timer(kind string, after time.Duration) engine.Timer {
	return engine.Timer{Kind: kind, After: after, Epoch: t.epoch}
}

// ---------------------
//      OPERATIONS
// ---------------------

func (t *Table) Join(conn, name string) engine.Outcome {
	if _, p := t.find(conn); p != nil {
		return engine.Changed()
	}
	if t.cfg.MaxSeats > 0 && len(t.players) >= t.cfg.MaxSeats {
		return engine.Ignored()
	}
	// 牌局进行中加入的玩家没有手牌，等下一轮下注窗口
	t.players = append(t.players, &Player{
		ID:      conn,
		Name:    name,
		Balance: t.cfg.StartingBalance,
		Hand:    []table.Card{},
	})
	if t.phase == Waiting {
		t.setPhase(Betting)
	}
	return engine.Changed()
}

// Leave forfeits the leaving player's bet and hand.
func (t *Table) Leave(conn string) engine.Outcome {
	i, p := t.find(conn)
	if p == nil {
		return engine.Ignored()
	}
	t.players = slices.Delete(t.players, i, i+1)
	if len(t.players) == 0 {
		t.clearRound()
		t.setPhase(Waiting)
		return engine.Changed()
	}

	switch t.phase {
	case Betting:
		if t.allBet() {
			return t.deal()
		}
	case Playing:
		if i < t.current {
			t.current--
		} else if i == t.current {
			t.current = t.nextToAct(t.current)
			if t.current < 0 {
				return t.dealerTurn()
			}
		}
	}
	return engine.Changed()
}

func (t *Table) Act(conn string, intent any) engine.Outcome {
	kind, ok := kindOf(intent)
	if !ok || !slices.Contains(transitions[t.phase], kind) {
		return engine.Ignored()
	}
	_, p := t.find(conn)
	if p == nil {
		return engine.Ignored()
	}

	switch in := intent.(type) {
	case PlaceBet:
		return t.placeBet(p, in.Amount)
	case *PlaceBet:
		return t.placeBet(p, in.Amount)
	case Action:
		return t.act(p, in.Action)
	case *Action:
		return t.act(p, in.Action)
	}
	return engine.Ignored()
}

func (t *Table) placeBet(p *Player, amount int64) engine.Outcome {
	if p.Bet > 0 || amount <= 0 || amount > p.Balance {
		return engine.Ignored()
	}
	p.Bet = amount
	p.Balance -= amount
	if t.allBet() {
		return t.deal()
	}
	return engine.Changed()
}

// allBet 所有还能下注的玩家都已下注。余额为 0 且未下注的玩家不再等待。
func (t *Table) allBet() bool {
	placed := false
	for _, p := range t.players {
		if p.Bet > 0 {
			placed = true
			continue
		}
		if p.Balance > 0 {
			return false
		}
	}
	return placed
}

func (t *Table) deal() engine.Outcome {
	t.dealer.NewDeck()
	for _, p := range t.players {
		p.IsStanding, p.HasBlackjack, p.IsBusted = false, false, false
		p.Hand = []table.Card{}
		if p.Bet == 0 {
			continue
		}
		p.Hand = t.dealer.Deal(2)
		p.HasBlackjack = IsNatural(p.Hand)
	}
	t.house = t.dealer.Deal(2)
	t.setPhase(Playing)

	t.current = t.nextToAct(0)
	if t.current < 0 {
		return t.dealerTurn()
	}
	return engine.Changed()
}

// nextToAct returns the first seat at or after from that still has a decision
// to make, or -1.
func (t *Table) nextToAct(from int) int {
	for i := max(from, 0); i < len(t.players); i++ {
		p := t.players[i]
		if p.inRound() && !p.done() {
			return i
		}
	}
	return -1
}

func (t *Table) act(p *Player, action ActionType) engine.Outcome {
	if t.current < 0 || t.current >= len(t.players) || t.players[t.current] != p {
		return engine.Ignored()
	}

	switch action {
	case Hit:
		c, ok := t.dealer.Draw()
		if !ok {
			return engine.Ignored()
		}
		p.Hand = append(p.Hand, c)
		p.IsBusted = HandValue(p.Hand) > 21
		if p.IsBusted {
			return t.advance()
		}
		return engine.Changed()

	case Stand:
		p.IsStanding = true
		return t.advance()

	case Double:
		if len(p.Hand) != 2 || p.Balance < p.Bet {
			return engine.Ignored()
		}
		p.Balance -= p.Bet
		p.Bet *= 2
		if c, ok := t.dealer.Draw(); ok {
			p.Hand = append(p.Hand, c)
			p.IsBusted = HandValue(p.Hand) > 21
		}
		p.IsStanding = true
		return t.advance()
	}
	return engine.Ignored()
}

func (t *Table) advance() engine.Outcome {
	t.current = t.nextToAct(t.current + 1)
	if t.current < 0 {
		return t.dealerTurn()
	}
	return engine.Changed()
}

func (t *Table) dealerTurn() engine.Outcome {
	t.current = -1
	t.setPhase(DealerTurn)
	return engine.Changed(t.timer(timerDealer, t.cfg.DealerDelay))
}

func (t *Table) Fire(tm engine.Timer) engine.Outcome {
	if tm.Epoch != t.epoch {
		return engine.Ignored()
	}
	switch {
	case tm.Kind == timerDealer && t.phase == DealerTurn:
		t.playDealer()
		t.settle()
		t.setPhase(Results)
		return engine.Changed(t.timer(timerReset, t.cfg.ResultsDelay))
	case tm.Kind == timerReset && t.phase == Results:
		t.clearRound()
		if len(t.players) == 0 {
			t.setPhase(Waiting)
		} else {
			t.setPhase(Betting)
		}
		return engine.Changed()
	}
	return engine.Ignored()
}

// playDealer 庄家 16 点及以下必须要牌；牌堆耗尽则停止。
func (t *Table) playDealer() {
	for HandValue(t.house) < DealerStandsOn {
		c, ok := t.dealer.Draw()
		if !ok {
			return
		}
		t.house = append(t.house, c)
	}
}

func (t *Table) settle() {
	dealerValue := HandValue(t.house)
	for _, p := range t.players {
		if !p.inRound() {
			continue
		}
		p.Balance += payout.Blackjack(payout.BlackjackHand{
			Bet:     p.Bet,
			Value:   HandValue(p.Hand),
			Natural: p.HasBlackjack,
			Busted:  p.IsBusted,
		}, dealerValue)
	}
}

func (t *Table) clearRound() {
	t.current = -1
	t.house = nil
	for _, p := range t.players {
		p.Hand = []table.Card{}
		p.Bet = 0
		p.IsStanding, p.HasBlackjack, p.IsBusted = false, false, false
	}
}

// ---------------------
//       SNAPSHOT
// ---------------------

type Snapshot struct {
	Code               string       `json:"code"`
	Players            []Player     `json:"players"`
	DealerHand         []table.Card `json:"dealerHand"`
	DealerValue        int          `json:"dealerValue"`
	CurrentPlayerIndex int          `json:"currentPlayerIndex"`
	GameState          Phase        `json:"gameState"`
	CanBet             bool         `json:"canBet"`
	DeckRemaining      int          `json:"deckRemaining"`
}

func (t *Table) Snapshot() any {
	s := Snapshot{
		Code:               t.code,
		Players:            make([]Player, len(t.players)),
		DealerHand:         table.CopyCards(t.house),
		DealerValue:        HandValue(t.house),
		CurrentPlayerIndex: t.current,
		GameState:          t.phase,
		CanBet:             t.phase == Betting,
		DeckRemaining:      t.dealer.Remaining(),
	}
	for i, p := range t.players {
		cp := *p
		cp.Hand = table.CopyCards(p.Hand)
		cp.HandValue = HandValue(p.Hand)
		s.Players[i] = cp
	}
	return s
}
