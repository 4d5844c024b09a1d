package table

import (
	"strings"
)

// Suit 花色
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Suits in deck-building order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// Ranks in deck-building order (ace low).
var Ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Card 一张牌。Value 由具体游戏决定（21 点 A=11，In-Between A=1）。
type Card struct {
	Suit  Suit   `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value,omitempty"`
}

func (c Card) String() string {
	symbols := map[Suit]string{
		Hearts:   "♥",
		Diamonds: "♦",
		Clubs:    "♣",
		Spades:   "♠",
	}
	s, ok := symbols[c.Suit]
	if !ok {
		s = "?"
	}
	return c.Rank + s
}

// IsAce reports whether the card is an ace.
func (c Card) IsAce() bool { return c.Rank == "A" }

// pipValue returns the numeric rank for 2-10, 10 for face cards and 0 for aces.
func pipValue(rank string) int {
	switch rank {
	case "A":
		return 0
	case "J", "Q", "K":
		return 10
	case "10":
		return 10
	}
	if len(rank) == 1 && rank[0] >= '2' && rank[0] <= '9' {
		return int(rank[0] - '0')
	}
	return 0
}

// BlackjackValue A=11（爆牌时再降为 1），人头牌=10。
func BlackjackValue(rank string) int {
	if rank == "A" {
		return 11
	}
	return pipValue(rank)
}

// LowAceValue A=1，人头牌=10。
func LowAceValue(rank string) int {
	if rank == "A" {
		return 1
	}
	return pipValue(rank)
}

// RankIndex returns 1 for ace through 13 for king, 0 for an unknown rank.
func RankIndex(rank string) int {
	for i, r := range Ranks {
		if r == rank {
			return i + 1
		}
	}
	return 0
}

// NormalizeCode 房间号大小写不敏感。
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CopyCards returns an independent copy so snapshots never alias live hands.
func CopyCards(cards []Card) []Card {
	if cards == nil {
		return []Card{}
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
