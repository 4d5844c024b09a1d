package dealer

import (
	"math/rand"

	"github.com/meegol/SIC-Gambling/internal/game/table"
)

// Valuer 把点数映射为游戏内的数值；nil 表示不需要数值（德州）。
type Valuer func(rank string) int

// Dealer 只负责洗牌与发牌（无规则判断）。每局开始调用 NewDeck 换一副新牌，弃牌不回收。
type Dealer struct {
	deck  []table.Card
	rnd   *rand.Rand
	value Valuer
	fixed [][]table.Card
}

func NewDealer(seed int64, value Valuer) *Dealer {
	return &Dealer{
		deck:  make([]table.Card, 0, 52),
		rnd:   rand.New(rand.NewSource(seed)),
		value: value,
	}
}

// Fixed 返回一个按预设顺序发牌的 Dealer：第 n 次 NewDeck 使用第 n 副牌，
// 每副牌按发牌顺序给出（decks[i][0] 最先发出）。预设用完后退回到固定种子的洗牌。
func Fixed(value Valuer, decks ...[]table.Card) *Dealer {
	d := NewDealer(1, value)
	d.fixed = decks
	return d
}

// NewDeck 初始化一副牌并洗牌
func (d *Dealer) NewDeck() {
	if len(d.fixed) > 0 {
		next := d.fixed[0]
		d.fixed = d.fixed[1:]
		// draw pops from the end, so store the preset reversed
		d.deck = make([]table.Card, len(next))
		for i, c := range next {
			d.deck[len(next)-1-i] = d.withValue(c)
		}
		return
	}
	d.deck = d.makeDeck()
	d.shuffle()
}

func (d *Dealer) makeDeck() []table.Card {
	deck := make([]table.Card, 0, 52)
	for _, s := range table.Suits {
		for _, r := range table.Ranks {
			deck = append(deck, d.withValue(table.Card{Suit: s, Rank: r}))
		}
	}
	return deck
}

func (d *Dealer) withValue(c table.Card) table.Card {
	if d.value != nil && c.Value == 0 {
		c.Value = d.value(c.Rank)
	}
	return c
}

// Fisher-Yates
func (d *Dealer) shuffle() {
	d.rnd.Shuffle(len(d.deck), func(i, j int) {
		d.deck[i], d.deck[j] = d.deck[j], d.deck[i]
	})
}

// Draw 从牌堆末尾取一张；牌堆为空时返回 false。
func (d *Dealer) Draw() (table.Card, bool) {
	if len(d.deck) == 0 {
		return table.Card{}, false
	}
	c := d.deck[len(d.deck)-1]
	d.deck = d.deck[:len(d.deck)-1]
	return c, true
}

// Deal 发 n 张牌；牌堆不足时只返回剩余的牌。
func (d *Dealer) Deal(n int) []table.Card {
	out := make([]table.Card, 0, n)
	for i := 0; i < n; i++ {
		c, ok := d.Draw()
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}

// DealRounds 轮流发牌：先每人一张，再每人第二张……保持座位顺序。
func (d *Dealer) DealRounds(seats, rounds int) [][]table.Card {
	out := make([][]table.Card, seats)
	for r := 0; r < rounds; r++ {
		for s := 0; s < seats; s++ {
			if c, ok := d.Draw(); ok {
				out[s] = append(out[s], c)
			}
		}
	}
	return out
}

// Remaining returns the number of undealt cards.
func (d *Dealer) Remaining() int {
	return len(d.deck)
}
