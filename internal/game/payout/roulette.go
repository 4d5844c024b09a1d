// Package payout holds the pure settlement rules of every game. Amounts returned
// already include the original stake; net profit is payout minus stake.
package payout

import "slices"

// BetType 轮盘下注类别
type BetType string

const (
	StraightUp   BetType = "STRAIGHT_UP"
	Red          BetType = "RED"
	Black        BetType = "BLACK"
	Even         BetType = "EVEN"
	Odd          BetType = "ODD"
	Low          BetType = "LOW"
	High         BetType = "HIGH"
	DozenFirst   BetType = "DOZEN_FIRST"
	DozenSecond  BetType = "DOZEN_SECOND"
	DozenThird   BetType = "DOZEN_THIRD"
	ColumnFirst  BetType = "COLUMN_FIRST"
	ColumnSecond BetType = "COLUMN_SECOND"
	ColumnThird  BetType = "COLUMN_THIRD"
)

// WheelSize is the number of pockets (0..36).
const WheelSize = 37

var (
	RedNumbers   = []int{1, 3, 5, 7, 9, 12, 14, 16, 18, 19, 21, 23, 25, 27, 30, 32, 34, 36}
	BlackNumbers = []int{2, 4, 6, 8, 10, 11, 13, 15, 17, 20, 22, 24, 26, 28, 29, 31, 33, 35}
)

var multipliers = map[BetType]int64{
	StraightUp:   36,
	Red:          2,
	Black:        2,
	Even:         2,
	Odd:          2,
	Low:          2,
	High:         2,
	DozenFirst:   3,
	DozenSecond:  3,
	DozenThird:   3,
	ColumnFirst:  3,
	ColumnSecond: 3,
	ColumnThird:  3,
}

// Multiplier returns the stake multiple paid on a win, 0 for an unknown category.
func Multiplier(t BetType) int64 {
	return multipliers[t]
}

// Covers returns the pockets a bet of type t wins on. For STRAIGHT_UP the single
// chosen number must be supplied in pick. ok is false for an invalid bet.
func Covers(t BetType, pick []int) (numbers []int, ok bool) {
	switch t {
	case StraightUp:
		if len(pick) != 1 || pick[0] < 0 || pick[0] >= WheelSize {
			return nil, false
		}
		return []int{pick[0]}, true
	case Red:
		return slices.Clone(RedNumbers), true
	case Black:
		return slices.Clone(BlackNumbers), true
	case Even:
		return sequence(2, 36, 2), true
	case Odd:
		return sequence(1, 35, 2), true
	case Low:
		return sequence(1, 18, 1), true
	case High:
		return sequence(19, 36, 1), true
	case DozenFirst:
		return sequence(1, 12, 1), true
	case DozenSecond:
		return sequence(13, 24, 1), true
	case DozenThird:
		return sequence(25, 36, 1), true
	case ColumnFirst:
		return sequence(1, 34, 3), true
	case ColumnSecond:
		return sequence(2, 35, 3), true
	case ColumnThird:
		return sequence(3, 36, 3), true
	}
	return nil, false
}

func sequence(from, to, step int) []int {
	out := make([]int, 0, (to-from)/step+1)
	for n := from; n <= to; n += step {
		out = append(out, n)
	}
	return out
}

// Roulette 计算单注派彩（含本金）；未中返回 0。
func Roulette(t BetType, numbers []int, amount int64, result int) int64 {
	m := Multiplier(t)
	if m == 0 || !slices.Contains(numbers, result) {
		return 0
	}
	return amount * m
}

// Color returns "green", "red" or "black" for a pocket.
func Color(n int) string {
	switch {
	case n == 0:
		return "green"
	case slices.Contains(RedNumbers, n):
		return "red"
	default:
		return "black"
	}
}
