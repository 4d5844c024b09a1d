package holdem

import (
	"github.com/paulhankin/poker"

	"github.com/meegol/SIC-Gambling/internal/game/table"
)

var suits = map[table.Suit]poker.Suit{
	table.Clubs:    poker.Club,
	table.Diamonds: poker.Diamond,
	table.Hearts:   poker.Heart,
	table.Spades:   poker.Spade,
}

func toPoker(c table.Card) (poker.Card, error) {
	return poker.MakeCard(suits[c.Suit], poker.Rank(table.RankIndex(c.Rank)))
}

// sevenCards 组合两张底牌与五张公共牌。
func sevenCards(board, hole []table.Card) (*[7]poker.Card, error) {
	var out [7]poker.Card
	for i, c := range append(table.CopyCards(board), hole...) {
		pc, err := toPoker(c)
		if err != nil {
			return nil, err
		}
		out[i] = pc
	}
	return &out, nil
}

// bestHands narrows seats to the holders of the strongest seven-card hand.
// If the board is incomplete or a card cannot be evaluated, every seat
// shares the pot as in split mode.
func bestHands(board []table.Card, players []*Player, seats []int) ([]int, map[int]string) {
	descriptions := map[int]string{}
	if len(board) != 5 {
		return seats, descriptions
	}

	var (
		best    int16
		winners []int
	)
	for _, s := range seats {
		p := players[s]
		if len(p.Hand) != 2 {
			continue
		}
		cards, err := sevenCards(board, p.Hand)
		if err != nil {
			return seats, map[int]string{}
		}
		score := poker.Eval7(cards)
		if desc, err := poker.Describe(cards[:]); err == nil {
			descriptions[s] = desc
		}
		switch {
		case len(winners) == 0 || score > best:
			best = score
			winners = []int{s}
		case score == best:
			winners = append(winners, s)
		}
	}
	if len(winners) == 0 {
		return seats, descriptions
	}
	return winners, descriptions
}
