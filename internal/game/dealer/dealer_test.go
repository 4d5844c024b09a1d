package dealer

import (
	"testing"
	"time"

	"github.com/meegol/SIC-Gambling/internal/game/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 工具：检查是否有重复牌
func hasDuplicates(cards []table.Card) bool {
	seen := make(map[string]bool)
	for _, c := range cards {
		k := c.String()
		if seen[k] {
			return true
		}
		seen[k] = true
	}
	return false
}

func TestNewDeck(t *testing.T) {
	d := NewDealer(time.Now().UnixNano(), table.BlackjackValue)
	d.NewDeck()

	require.Equal(t, 52, d.Remaining())
	assert.False(t, hasDuplicates(d.deck), "deck should not contain duplicates")

	suits := make(map[table.Suit]bool)
	ranks := make(map[string]bool)
	for _, c := range d.deck {
		suits[c.Suit] = true
		ranks[c.Rank] = true
		assert.Equal(t, table.BlackjackValue(c.Rank), c.Value)
	}
	assert.Len(t, suits, 4)
	assert.Len(t, ranks, 13)
}

func TestShuffleIsSeeded(t *testing.T) {
	d1 := NewDealer(42, nil)
	d1.NewDeck()
	d2 := NewDealer(42, nil)
	d2.NewDeck()
	assert.Equal(t, d1.deck, d2.deck, "same seed should give the same order")

	d3 := NewDealer(99, nil)
	d3.NewDeck()
	assert.NotEqual(t, d1.deck, d3.deck)
}

func TestDrawUntilExhausted(t *testing.T) {
	d := NewDealer(3, nil)
	d.NewDeck()
	for i := 0; i < 52; i++ {
		_, ok := d.Draw()
		require.True(t, ok)
	}
	_, ok := d.Draw()
	assert.False(t, ok, "an exhausted deck yields no card")
	assert.Empty(t, d.Deal(3))
}

func TestDrawTakesFromEnd(t *testing.T) {
	d := NewDealer(5, nil)
	d.NewDeck()
	last := d.deck[len(d.deck)-1]
	c, ok := d.Draw()
	require.True(t, ok)
	assert.Equal(t, last, c)
}

func TestDealRoundsPreservesSeatOrder(t *testing.T) {
	cards := []table.Card{
		{Suit: table.Hearts, Rank: "2"},
		{Suit: table.Hearts, Rank: "3"},
		{Suit: table.Hearts, Rank: "4"},
		{Suit: table.Hearts, Rank: "5"},
		{Suit: table.Hearts, Rank: "6"},
		{Suit: table.Hearts, Rank: "7"},
	}
	d := Fixed(table.LowAceValue, cards)
	d.NewDeck()
	hands := d.DealRounds(3, 2)

	assert.Equal(t, []string{"2", "5"}, []string{hands[0][0].Rank, hands[0][1].Rank})
	assert.Equal(t, []string{"3", "6"}, []string{hands[1][0].Rank, hands[1][1].Rank})
	assert.Equal(t, []string{"4", "7"}, []string{hands[2][0].Rank, hands[2][1].Rank})
	assert.Equal(t, 2, hands[0][0].Value)
	assert.Equal(t, 0, d.Remaining())
}

func TestDealPartial(t *testing.T) {
	d := Fixed(nil, []table.Card{{Suit: table.Clubs, Rank: "K"}})
	d.NewDeck()
	out := d.Deal(3)
	assert.Len(t, out, 1)
}

func TestFixedFallsBackToShuffle(t *testing.T) {
	d := Fixed(nil, []table.Card{{Suit: table.Clubs, Rank: "K"}})
	d.NewDeck()
	d.NewDeck()
	assert.Equal(t, 52, d.Remaining())
}
