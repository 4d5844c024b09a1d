package blackjack

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meegol/SIC-Gambling/internal/game/dealer"
	"github.com/meegol/SIC-Gambling/internal/game/engine"
	"github.com/meegol/SIC-Gambling/internal/game/table"
)

func cards(ranks ...string) []table.Card {
	out := make([]table.Card, len(ranks))
	for i, r := range ranks {
		out[i] = table.Card{Suit: table.Spades, Rank: r}
	}
	return out
}

// newTestTable deals the given ranks in order: two per betting player in
// seat order, two to the dealer, then hits and dealer draws.
func newTestTable(ranks ...string) *Table {
	return New("ROOM", DefaultConfig(), WithDealer(dealer.Fixed(table.BlackjackValue, cards(ranks...))))
}

func snap(t *Table) Snapshot { return t.Snapshot().(Snapshot) }

func only(t *testing.T, out engine.Outcome) engine.Timer {
	t.Helper()
	require.Len(t, out.Timers, 1)
	return out.Timers[0]
}

func TestHandValue(t *testing.T) {
	for _, tc := range []struct {
		ranks []string
		want  int
	}{
		{[]string{"A", "K"}, 21},
		{[]string{"A", "A"}, 12},
		{[]string{"A", "A", "9"}, 21},
		{[]string{"A", "A", "A", "A"}, 14},
		{[]string{"K", "Q", "A"}, 21},
		{[]string{"K", "Q", "5"}, 25},
		{[]string{"A", "6", "K"}, 17},
		{nil, 0},
	} {
		assert.Equal(t, tc.want, HandValue(cards(tc.ranks...)), "%v", tc.ranks)
	}
	assert.True(t, IsNatural(cards("A", "J")))
	assert.False(t, IsNatural(cards("7", "4", "K")))
}

// After adjustment a hand is either at most 21 or has every ace counted as 1.
func TestHandValueAceDemotionInvariant(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 20000; i++ {
		n := 2 + rnd.Intn(6)
		hand := make([]table.Card, n)
		low := 0
		for j := range hand {
			r := table.Ranks[rnd.Intn(len(table.Ranks))]
			hand[j] = table.Card{Suit: table.Hearts, Rank: r}
			low += table.LowAceValue(r)
		}
		v := HandValue(hand)
		if v > 21 {
			require.Equal(t, low, v, "%v", hand)
		}
		require.GreaterOrEqual(t, v, low)
		require.LessOrEqual(t, v-low, 10, "at most one ace may stay soft")
	}
}

func TestJoinOpensBetting(t *testing.T) {
	tb := newTestTable()
	assert.True(t, tb.Join("c1", "Ann").Changed)
	s := snap(tb)
	assert.Equal(t, Betting, s.GameState)
	assert.True(t, s.CanBet)
	assert.Equal(t, -1, s.CurrentPlayerIndex)
	assert.Equal(t, int64(1000), s.Players[0].Balance)
}

func TestRoundWaitsForEveryBet(t *testing.T) {
	tb := newTestTable("10", "7", "9", "8", "10", "6")
	tb.Join("c1", "Ann")
	tb.Join("c2", "Bob")

	require.True(t, tb.Act("c1", PlaceBet{Amount: 100}).Changed)
	assert.Equal(t, Betting, snap(tb).GameState)
	assert.False(t, tb.Act("c1", PlaceBet{Amount: 50}).Changed, "one bet per round")

	tb.Act("c2", PlaceBet{Amount: 200})
	s := snap(tb)
	assert.Equal(t, Playing, s.GameState)
	assert.False(t, s.CanBet)
	assert.Equal(t, 0, s.CurrentPlayerIndex)
	assert.Equal(t, 17, s.Players[0].HandValue)
	assert.Equal(t, 17, s.Players[1].HandValue)
	assert.Len(t, s.DealerHand, 2)
	assert.Equal(t, int64(800), s.Players[1].Balance)
}

func TestStandLosesToDealerDraw(t *testing.T) {
	// player 10,7 stands; dealer 10,6 draws 5 for 21
	tb := newTestTable("10", "7", "10", "6", "5")
	tb.Join("c1", "Ann")
	tb.Act("c1", PlaceBet{Amount: 100})

	out := tb.Act("c1", Action{Action: Stand})
	assert.Equal(t, DealerTurn, snap(tb).GameState)
	assert.Equal(t, -1, snap(tb).CurrentPlayerIndex)

	out = tb.Fire(only(t, out))
	s := snap(tb)
	assert.Equal(t, Results, s.GameState)
	assert.Equal(t, 21, s.DealerValue)
	assert.Len(t, s.DealerHand, 3)
	assert.Equal(t, int64(900), s.Players[0].Balance)

	tb.Fire(only(t, out))
	s = snap(tb)
	assert.Equal(t, Betting, s.GameState)
	assert.Empty(t, s.Players[0].Hand)
	assert.Zero(t, s.Players[0].Bet)
	assert.Empty(t, s.DealerHand)
}

func TestSettlementTable(t *testing.T) {
	for name, tc := range map[string]struct {
		deck    []string
		actions []ActionType
		balance int64
	}{
		"win":        {[]string{"10", "9", "10", "7"}, []ActionType{Stand}, 1100},
		"push":       {[]string{"10", "7", "10", "7"}, []ActionType{Stand}, 1000},
		"natural":    {[]string{"A", "K", "10", "7"}, nil, 1150},
		"bust":       {[]string{"10", "6", "10", "7", "K"}, []ActionType{Hit}, 900},
		"dealerBust": {[]string{"10", "2", "10", "6", "K"}, []ActionType{Stand}, 1100},
		"double":     {[]string{"5", "6", "10", "7", "10"}, []ActionType{Double}, 1200},
	} {
		t.Run(name, func(t *testing.T) {
			tb := newTestTable(tc.deck...)
			tb.Join("c1", "Ann")
			out := tb.Act("c1", PlaceBet{Amount: 100})
			for _, a := range tc.actions {
				out = tb.Act("c1", Action{Action: a})
				require.True(t, out.Changed)
			}
			require.Equal(t, DealerTurn, snap(tb).GameState)
			tb.Fire(only(t, out))
			assert.Equal(t, tc.balance, snap(tb).Players[0].Balance)
		})
	}
}

func TestHitDoesNotAdvanceUnlessBusted(t *testing.T) {
	tb := newTestTable("2", "3", "9", "8", "10", "7", "4", "5")
	tb.Join("c1", "Ann")
	tb.Join("c2", "Bob")
	tb.Act("c1", PlaceBet{Amount: 10})
	tb.Act("c2", PlaceBet{Amount: 10})

	tb.Act("c1", Action{Action: Hit})
	s := snap(tb)
	assert.Equal(t, 9, s.Players[0].HandValue)
	assert.Equal(t, 0, s.CurrentPlayerIndex)

	assert.False(t, tb.Act("c2", Action{Action: Stand}).Changed, "not c2's turn")
	tb.Act("c1", Action{Action: Stand})
	assert.Equal(t, 1, snap(tb).CurrentPlayerIndex)
}

func TestDoubleRequiresTwoCardsAndFunds(t *testing.T) {
	tb := newTestTable("2", "3", "10", "7", "4", "5")
	tb.Join("c1", "Ann")
	tb.Act("c1", PlaceBet{Amount: 600})
	assert.False(t, tb.Act("c1", Action{Action: Double}).Changed, "balance below bet")

	tb.Act("c1", Action{Action: Hit})
	assert.False(t, tb.Act("c1", Action{Action: Double}).Changed, "three cards")
	assert.False(t, tb.Act("c1", Action{Action: "SPLIT"}).Changed)
}

func TestNaturalIsSkipped(t *testing.T) {
	tb := newTestTable("A", "K", "9", "8", "10", "7")
	tb.Join("c1", "Ann")
	tb.Join("c2", "Bob")
	tb.Act("c1", PlaceBet{Amount: 10})
	tb.Act("c2", PlaceBet{Amount: 10})

	s := snap(tb)
	assert.True(t, s.Players[0].HasBlackjack)
	assert.Equal(t, 1, s.CurrentPlayerIndex)
}

func TestLateJoinerSitsOut(t *testing.T) {
	tb := newTestTable("10", "7", "10", "8")
	tb.Join("c1", "Ann")
	tb.Act("c1", PlaceBet{Amount: 100})
	tb.Join("c2", "Bob")
	assert.False(t, tb.Act("c2", PlaceBet{Amount: 10}).Changed)

	out := tb.Act("c1", Action{Action: Stand})
	tb.Fire(only(t, out))
	s := snap(tb)
	assert.Equal(t, int64(1000), s.Players[1].Balance)
	assert.Equal(t, int64(900), s.Players[0].Balance)
}

func TestBrokePlayerIsNotWaitedFor(t *testing.T) {
	tb := newTestTable("10", "7", "10", "8")
	tb.Join("c1", "Ann")
	tb.Join("c2", "Bob")
	tb.players[1].Balance = 0

	tb.Act("c1", PlaceBet{Amount: 100})
	s := snap(tb)
	assert.Equal(t, Playing, s.GameState)
	assert.Empty(t, s.Players[1].Hand)
}

func TestLeaveDuringTurnAdvances(t *testing.T) {
	tb := newTestTable("10", "7", "9", "8", "10", "7")
	tb.Join("c1", "Ann")
	tb.Join("c2", "Bob")
	tb.Act("c1", PlaceBet{Amount: 10})
	tb.Act("c2", PlaceBet{Amount: 10})

	require.True(t, tb.Leave("c1").Changed)
	s := snap(tb)
	assert.Equal(t, Playing, s.GameState)
	assert.Equal(t, 0, s.CurrentPlayerIndex)
	assert.Equal(t, "c2", s.Players[s.CurrentPlayerIndex].ID)

	out := tb.Leave("c2")
	assert.Equal(t, Waiting, snap(tb).GameState)
	assert.Empty(t, out.Timers)
}

func TestLeaveLastActorStartsDealer(t *testing.T) {
	tb := newTestTable("10", "7", "9", "8", "10", "7")
	tb.Join("c1", "Ann")
	tb.Join("c2", "Bob")
	tb.Act("c1", PlaceBet{Amount: 10})
	tb.Act("c2", PlaceBet{Amount: 10})
	tb.Act("c1", Action{Action: Stand})

	out := tb.Leave("c2")
	assert.Equal(t, DealerTurn, snap(tb).GameState)
	tb.Fire(only(t, out))
	assert.Equal(t, int64(1000), snap(tb).Players[0].Balance, "17 pushes 17")
}

func TestLeaveCompletesBetting(t *testing.T) {
	tb := newTestTable("10", "7", "10", "8")
	tb.Join("c1", "Ann")
	tb.Join("c2", "Bob")
	tb.Act("c1", PlaceBet{Amount: 10})
	tb.Leave("c2")
	assert.Equal(t, Playing, snap(tb).GameState)
}

func TestStaleTimersAreIgnored(t *testing.T) {
	tb := newTestTable("10", "7", "10", "8")
	tb.Join("c1", "Ann")
	tb.Act("c1", PlaceBet{Amount: 100})
	dealerTimer := only(t, tb.Act("c1", Action{Action: Stand}))

	resetTimer := only(t, tb.Fire(dealerTimer))
	assert.False(t, tb.Fire(dealerTimer).Changed, "settles once")
	assert.Equal(t, int64(900), snap(tb).Players[0].Balance)

	tb.Leave("c1")
	assert.False(t, tb.Fire(resetTimer).Changed)
	assert.Equal(t, Waiting, snap(tb).GameState)
}

func TestDealerStopsOnEmptyDeck(t *testing.T) {
	tb := newTestTable("10", "7", "2", "3")
	tb.Join("c1", "Ann")
	tb.Act("c1", PlaceBet{Amount: 100})
	out := tb.Act("c1", Action{Action: Stand})
	tb.Fire(only(t, out))
	s := snap(tb)
	assert.Equal(t, 5, s.DealerValue)
	assert.Zero(t, s.DeckRemaining)
	assert.Equal(t, int64(1100), s.Players[0].Balance)
}

// Excluding naturals and pushes, what the players win the house loses.
func TestSettlementIsZeroSum(t *testing.T) {
	tb := newTestTable("10", "9", "10", "5", "10", "K", "10", "7")
	for _, id := range []string{"a", "b", "c"} {
		tb.Join(id, id)
	}
	stakes := []int64{100, 50, 30}
	for i, id := range []string{"a", "b", "c"} {
		tb.Act(id, PlaceBet{Amount: stakes[i]})
	}
	tb.Act("a", Action{Action: Stand})
	tb.Act("b", Action{Action: Stand})
	out := tb.Act("c", Action{Action: Stand})
	tb.Fire(only(t, out))

	var delta int64
	for _, p := range snap(tb).Players {
		delta += p.Balance - 1000
	}
	// a 19 beats 17 (+100), b 15 loses (-50), c 20 beats 17 (+30)
	assert.Equal(t, int64(80), delta)
}

func TestSnapshotIsACopy(t *testing.T) {
	tb := newTestTable("10", "7", "10", "8")
	tb.Join("c1", "Ann")
	tb.Act("c1", PlaceBet{Amount: 100})
	s := snap(tb)
	s.Players[0].Hand[0].Rank = "A"
	s.DealerHand[0].Rank = "A"
	assert.Equal(t, "10", snap(tb).Players[0].Hand[0].Rank)
	assert.Equal(t, "10", snap(tb).DealerHand[0].Rank)
}
