// Package holdem runs a no-limit-style community card table: blinds, four
// betting streets, showdown and a rotating dealer button.
package holdem

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
	Waiting  Phase = "WAITING"
	Preflop  Phase = "PREFLOP"
	Flop     Phase = "FLOP"
	Turn     Phase = "TURN"
	River    Phase = "RIVER"
	Showdown Phase = "SHOWDOWN"
	Results  Phase = "RESULTS"
)

const timerNextHand = "next-hand"

// ShowdownMode 决定摊牌时底池的分配方式。
type ShowdownMode string

const (
	// SplitPot divides the pot evenly among every player still in the hand.
	SplitPot ShowdownMode = "split"
	// Ranked awards the pot to the best seven-card hand(s).
	Ranked ShowdownMode = "ranked"
)

type Config struct {
	StartingBalance int64
	SmallBlind      int64
	BigBlind        int64
	ResultsDelay    time.Duration
	MaxSeats        int
	Showdown        ShowdownMode
}

func DefaultConfig() Config {
	return Config{
		StartingBalance: 1000,
		SmallBlind:      5,
		BigBlind:        10,
		ResultsDelay:    5 * time.Second,
		MaxSeats:        10,
		Showdown:        SplitPot,
	}
}

// ---------------------
//       INTENTS
// ---------------------

type ActionType string

const (
	Fold  ActionType = "FOLD"
	Check ActionType = "CHECK"
	Call  ActionType = "CALL"
	Raise ActionType = "RAISE"
	AllIn ActionType = "ALL_IN"
)

type Action struct {
	Action ActionType `json:"action"`
	Amount int64      `json:"amount,omitempty"`
}

type intentKind int

const playerAction intentKind = iota

var transitions = map[Phase][]intentKind{
	Waiting:  nil,
	Preflop:  {playerAction},
	Flop:     {playerAction},
	Turn:     {playerAction},
	River:    {playerAction},
	Showdown: nil,
	Results:  nil,
}

// streets maps a betting phase to the next one and the board cards it reveals.
var streets = map[Phase]struct {
	next  Phase
	cards int
}{
	Preflop: {Flop, 3},
	Flop:    {Turn, 1},
	Turn:    {River, 1},
}

// ---------------------
//        STATE
// ---------------------

type Player struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Balance  int64        `json:"balance"`
	Hand     []table.Card `json:"hand"`
	Bet      int64        `json:"bet"`      // this street
	TotalBet int64        `json:"totalBet"` // this hand
	IsFolded bool         `json:"isFolded"`
	IsAllIn  bool         `json:"isAllIn"`
	HasActed bool         `json:"hasActed"`
}

func (p *Player) canAct() bool { return !p.IsFolded && !p.IsAllIn }

// Winner is one share of a settled pot.
type Winner struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Hand   string `json:"hand,omitempty"`
}

type Table struct {
	code    string
	cfg     Config
	players []*Player
	phase   Phase
	dealer  *dealer.Dealer
	board   []table.Card
	pot     int64
	bet     int64 // current street bet level
	button  int
	current int
	winners []Winner
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
		dealer:  dealer.NewDealer(time.Now().UnixNano(), nil),
	}
	for _, o := range opts {
		o(t)
	}
	return t
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

func (t *Table) betting() bool {
	return slices.Contains(transitions[t.phase], playerAction)
}

// seat walks the ring from start (inclusive) and returns the first seat
// matching ok, or -1. At most one lap is made.
func (t *Table) seat(start int, ok func(*Player) bool) int {
	n := len(t.players)
	if n == 0 {
		return -1
	}
	start = ((start % n) + n) % n
	for i := 0; i < n; i++ {
		j := (start + i) % n
		if ok(t.players[j]) {
			return j
		}
	}
	return -1
}

func (t *Table) count(ok func(*Player) bool) int {
	n := 0
	for _, p := range t.players {
		if ok(p) {
			n++
		}
	}
	return n
}

func inHand(p *Player) bool { return !p.IsFolded }

func canAct(p *Player) bool { return p.canAct() }

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
	// 中途加入的玩家视为弃牌，下一手开始时入局
	t.players = append(t.players, &Player{
		ID:       conn,
		Name:     name,
		Balance:  t.cfg.StartingBalance,
		Hand:     []table.Card{},
		IsFolded: t.phase != Waiting,
	})
	if t.phase == Waiting {
		return t.startHand()
	}
	return engine.Changed()
}

// Leave 离开的玩家已投入底池的筹码不退还。
func (t *Table) Leave(conn string) engine.Outcome {
	i, p := t.find(conn)
	if p == nil {
		return engine.Ignored()
	}
	t.players = slices.Delete(t.players, i, i+1)
	// 按钮退回上一个座位，下一手轮转后落在离开者之后的座位
	if i <= t.button {
		t.button--
	}
	switch {
	case len(t.players) == 0:
		t.button = 0
	case t.button < 0:
		t.button = len(t.players) - 1
	}

	if len(t.players) == 0 {
		t.pot, t.bet, t.current = 0, 0, -1
		t.board = nil
		t.winners = nil
		t.setPhase(Waiting)
		return engine.Changed()
	}
	if !t.betting() {
		return engine.Changed()
	}

	wasTurn := i == t.current
	if i < t.current {
		t.current--
	}
	if t.count(inHand) <= 1 {
		return t.awardUncontested()
	}
	if wasTurn {
		if t.roundClosed() {
			return t.nextStreet()
		}
		t.current = t.seat(i, canAct)
	}
	return engine.Changed()
}

func (t *Table) Act(conn string, intent any) engine.Outcome {
	if !t.betting() {
		return engine.Ignored()
	}
	var a Action
	switch in := intent.(type) {
	case Action:
		a = in
	case *Action:
		a = *in
	default:
		return engine.Ignored()
	}
	if t.current < 0 || t.current >= len(t.players) || t.players[t.current].ID != conn {
		return engine.Ignored()
	}
	p := t.players[t.current]

	switch a.Action {
	case Fold:
		p.IsFolded = true
	case Check:
	case Call:
		owe := max(t.bet-p.Bet, 0)
		if owe > p.Balance {
			return engine.Ignored()
		}
		t.commit(p, owe)
	case Raise:
		if a.Amount <= 0 || a.Amount < t.bet*2 || a.Amount > p.Balance {
			return engine.Ignored()
		}
		t.commit(p, a.Amount)
		t.reopen(p)
	case AllIn:
		t.commit(p, p.Balance)
		p.IsAllIn = true
		if p.Bet > t.bet {
			t.reopen(p)
		}
	default:
		return engine.Ignored()
	}
	p.HasActed = true
	return t.advance()
}

// commit moves chips from a player's stack into the pot.
func (t *Table) commit(p *Player, amount int64) {
	p.Balance -= amount
	p.Bet += amount
	p.TotalBet += amount
	t.pot += amount
	if p.Balance == 0 && amount > 0 {
		p.IsAllIn = true
	}
}

// reopen 提高本轮注额，其他玩家需要重新表态。
func (t *Table) reopen(raiser *Player) {
	t.bet = raiser.Bet
	for _, o := range t.players {
		if o != raiser {
			o.HasActed = false
		}
	}
}

func (t *Table) roundClosed() bool {
	for _, p := range t.players {
		if p.canAct() && !p.HasActed {
			return false
		}
	}
	return true
}

func (t *Table) advance() engine.Outcome {
	if t.count(inHand) <= 1 {
		return t.awardUncontested()
	}
	if t.roundClosed() {
		return t.nextStreet()
	}
	t.current = t.seat(t.current+1, canAct)
	return engine.Changed()
}

// startHand 开始新的一手：发底牌、下盲注、确定第一个行动者。
func (t *Table) startHand() engine.Outcome {
	t.board = []table.Card{}
	t.pot, t.bet = 0, 0
	t.winners = nil
	for _, p := range t.players {
		p.Hand = []table.Card{}
		p.Bet, p.TotalBet = 0, 0
		p.IsFolded = p.Balance <= 0
		p.IsAllIn, p.HasActed = false, false
	}
	if t.count(inHand) < 2 {
		t.current = -1
		t.setPhase(Waiting)
		for _, p := range t.players {
			p.IsFolded = false
		}
		return engine.Changed()
	}

	t.dealer.NewDeck()
	dealt := slices.DeleteFunc(slices.Clone(t.players), func(p *Player) bool { return !inHand(p) })
	for i, hand := range t.dealer.DealRounds(len(dealt), 2) {
		dealt[i].Hand = append(dealt[i].Hand, hand...)
	}

	sb := t.seat(t.button, inHand)
	bb := t.seat(sb+1, inHand)
	t.commit(t.players[sb], min(t.cfg.SmallBlind, t.players[sb].Balance))
	t.commit(t.players[bb], min(t.cfg.BigBlind, t.players[bb].Balance))
	t.bet = t.cfg.BigBlind
	t.setPhase(Preflop)

	t.current = t.seat(bb+1, canAct)
	if t.current < 0 || t.roundClosed() {
		return t.nextStreet()
	}
	return engine.Changed()
}

// nextStreet closes the betting round and deals the next board cards. When
// fewer than two players can still bet the board is run out to showdown.
func (t *Table) nextStreet() engine.Outcome {
	for _, p := range t.players {
		p.HasActed = false
		p.Bet = 0
	}
	t.bet = 0

	for {
		s, ok := streets[t.phase]
		if !ok {
			return t.showdown()
		}
		t.board = append(t.board, t.dealer.Deal(s.cards)...)
		t.setPhase(s.next)
		if t.count(canAct) >= 2 {
			break
		}
	}
	t.current = t.seat(t.button+1, canAct)
	return engine.Changed()
}

func (t *Table) awardUncontested() engine.Outcome {
	w := t.seat(0, inHand)
	if w < 0 {
		t.pot = 0
	} else {
		t.pay([]int{w}, nil)
	}
	return t.finish()
}

func (t *Table) showdown() engine.Outcome {
	t.setPhase(Showdown)
	var seats []int
	for i, p := range t.players {
		if !p.IsFolded {
			seats = append(seats, i)
		}
	}
	descriptions := map[int]string{}
	if t.cfg.Showdown == Ranked {
		seats, descriptions = bestHands(t.board, t.players, seats)
	}
	t.pay(seats, descriptions)
	return t.finish()
}

// pay 平分底池；除不尽的筹码给庄位之后的第一个赢家。
func (t *Table) pay(seats []int, descriptions map[int]string) {
	if len(seats) == 0 {
		return
	}
	share, rem := payout.SplitPot(t.pot, len(seats))
	first := seats[0]
	n := len(t.players)
	for _, s := range seats {
		if (s-t.button-1+n)%n < (first-t.button-1+n)%n {
			first = s
		}
	}
	t.winners = t.winners[:0]
	for _, s := range seats {
		amount := share
		if s == first {
			amount += rem
		}
		t.players[s].Balance += amount
		t.winners = append(t.winners, Winner{
			ID:     t.players[s].ID,
			Amount: amount,
			Hand:   descriptions[s],
		})
	}
	t.pot = 0
}

func (t *Table) finish() engine.Outcome {
	t.current = -1
	t.setPhase(Results)
	return engine.Changed(engine.Timer{Kind: timerNextHand, After: t.cfg.ResultsDelay, Epoch: t.epoch})
}

func (t *Table) Fire(tm engine.Timer) engine.Outcome {
	if tm.Epoch != t.epoch || tm.Kind != timerNextHand || t.phase != Results {
		return engine.Ignored()
	}
	if len(t.players) > 0 {
		t.button = (t.button + 1) % len(t.players)
	}
	return t.startHand()
}

// ---------------------
//       SNAPSHOT
// ---------------------

type Snapshot struct {
	Code               string       `json:"code"`
	Players            []Player     `json:"players"`
	CommunityCards     []table.Card `json:"communityCards"`
	Pot                int64        `json:"pot"`
	CurrentBet         int64        `json:"currentBet"`
	DealerIndex        int          `json:"dealerIndex"`
	CurrentPlayerIndex int          `json:"currentPlayerIndex"`
	GameState          Phase        `json:"gameState"`
	DeckRemaining      int          `json:"deckRemaining"`
	Winners            []Winner     `json:"winners,omitempty"`
}

func (t *Table) Snapshot() any {
	s := Snapshot{
		Code:               t.code,
		Players:            make([]Player, len(t.players)),
		CommunityCards:     table.CopyCards(t.board),
		Pot:                t.pot,
		CurrentBet:         t.bet,
		DealerIndex:        t.button,
		CurrentPlayerIndex: t.current,
		GameState:          t.phase,
		DeckRemaining:      t.dealer.Remaining(),
		Winners:            slices.Clone(t.winners),
	}
	for i, p := range t.players {
		cp := *p
		cp.Hand = table.CopyCards(p.Hand)
		s.Players[i] = cp
	}
	return s
}
