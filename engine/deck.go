package engine

// DeckSize is the size of a standard UNO deck. Cards are conserved across
// the draw pile, discard pile and both hands for the whole match.
const DeckSize = 108

// Canonical composition per suit color.
const (
	zerosPerColor   = 1
	numeralCopies   = 2 // of each of 1..9
	actionCopies    = 2 // of each of skip, reverse, draw2
	wildsPerDeck    = 4
	wildFoursInDeck = 4
)

// NewDeck returns the canonical unshuffled deck. Card IDs follow build order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	add := func(c Color, v Value) {
		deck = append(deck, Card{ID: uint8(len(deck)), Color: c, Value: v})
	}
	for _, c := range SuitColors {
		for i := 0; i < zerosPerColor; i++ {
			add(c, Numeral(0))
		}
		for n := uint8(1); n <= 9; n++ {
			for i := 0; i < numeralCopies; i++ {
				add(c, Numeral(n))
			}
		}
		for _, a := range []ActionType{ActionSkip, ActionReverse, ActionDrawTwo} {
			for i := 0; i < actionCopies; i++ {
				add(c, Action(a))
			}
		}
	}
	for i := 0; i < wildsPerDeck; i++ {
		add(ColorWild, Action(ActionWild))
	}
	for i := 0; i < wildFoursInDeck; i++ {
		add(ColorWild, Action(ActionWildFour))
	}
	return deck
}

// Shuffle permutes cards in place with Fisher-Yates. randN must return a
// uniform value in [0, n).
func Shuffle(cards []Card, randN func(n uint64) uint64) {
	for i := len(cards) - 1; i > 0; i-- {
		j := int(randN(uint64(i + 1)))
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// BuildDeck returns a freshly shuffled canonical deck driven by seed.
func BuildDeck(seed uint64) []Card {
	rng := newXorshift(seed)
	deck := NewDeck()
	Shuffle(deck, rng.randN)
	return deck
}

// ---------------------------------------------------------------------------
// xorshift64 RNG
// ---------------------------------------------------------------------------

type xorshift struct{ state uint64 }

func newXorshift(seed uint64) *xorshift {
	if seed == 0 {
		seed = 1 // xorshift can't start at 0
	}
	return &xorshift{state: seed}
}

func (x *xorshift) next() uint64 {
	s := x.state
	s ^= s << 13
	s ^= s >> 7
	s ^= s << 17
	x.state = s
	return s
}

// randN returns a uniform random number in [0, n). Outputs below
// 2^64 mod n are rejected so every residue is equally likely.
func (x *xorshift) randN(n uint64) uint64 {
	threshold := -n % n
	for {
		if v := x.next(); v >= threshold {
			return v % n
		}
	}
}
