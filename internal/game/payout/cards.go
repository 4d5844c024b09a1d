package payout

// BlackjackHand is the settlement view of one player's finished hand.
type BlackjackHand struct {
	Bet     int64
	Value   int
	Natural bool
	Busted  bool
}

// Blackjack returns the amount credited back to a player once the dealer has
// finished drawing. Bust pays nothing, a natural pays 3:2 plus the stake,
// beating a busted or lower dealer pays 2x, equal value pushes.
func Blackjack(h BlackjackHand, dealerValue int) int64 {
	switch {
	case h.Busted:
		return 0
	case h.Natural:
		return h.Bet + h.Bet*3/2
	case dealerValue > 21 || h.Value > dealerValue:
		return h.Bet * 2
	case h.Value == dealerValue:
		return h.Bet
	}
	return 0
}

// SplitPot divides a pot evenly among n winners using integer division and
// reports the odd chips left over.
func SplitPot(pot int64, n int) (share, remainder int64) {
	if n <= 0 {
		return 0, pot
	}
	share = pot / int64(n)
	return share, pot - share*int64(n)
}

// Between 第三张牌严格落在两张手牌之间才算赢，与手牌顺序无关；等于边界算输。
func Between(a, b, third int) bool {
	lo, hi := min(a, b), max(a, b)
	return third > lo && third < hi
}

// HigherLower settles the tie-pair sub-choice: the third card must be strictly
// higher (or lower) than the paired value. Equal loses.
func HigherLower(paired, third int, higher bool) bool {
	if higher {
		return third > paired
	}
	return third < paired
}
