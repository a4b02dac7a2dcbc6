// Package engine implements the rules of a heads-up UNO match.
//
// A Match is a self-contained value: it owns the draw pile, discard pile,
// both hands and its own seeded RNG, so the same seed replays the same game.
// The engine does no I/O and no locking; the hosting session serializes
// access and reacts to the Effects returned by each transition.
package engine

// Match holds the complete state of one game in progress.
type Match struct {
	Draw        []Card           // face-down supply, top is the last element
	Discard     []Card           // played cards, top is the active card
	Hands       [NumSeats][]Card // hand order is preserved
	Turn        Seat
	ActiveColor Color
	Status      Status
	TurnNumber  uint16
	RNG         uint64
	Rules       HouseRules
}

// NewMatch initializes a match with the canonical deck in the draw pile.
// The deck is built but not yet shuffled or dealt.
func NewMatch(seed uint64, rules HouseRules) *Match {
	if seed == 0 {
		seed = 1
	}
	return &Match{
		Draw:        NewDeck(),
		Turn:        rules.First,
		ActiveColor: ColorNone,
		Status:      StatusInProgress,
		RNG:         seed,
		Rules:       rules,
	}
}

// randN returns a random number in [0, n), advancing the match RNG.
func (m *Match) randN(n uint64) uint64 {
	x := xorshift{state: m.RNG}
	v := x.randN(n)
	m.RNG = x.state
	return v
}

// RandomSuit returns one of the four suit colors uniformly at random.
func (m *Match) RandomSuit() Color {
	return SuitColors[m.randN(uint64(len(SuitColors)))]
}

// Deal shuffles the draw pile, turns up a non-wild starting card and deals
// each seat its hand.
func (m *Match) Deal() {
	Shuffle(m.Draw, m.randN)
	m.dealFromTop()
}

// dealFromTop deals from the current draw order without shuffling.
func (m *Match) dealFromTop() {
	// Cycle wilds from the top to the bottom. Wilds are 8 of 108 cards so a
	// non-wild is always reached.
	for i := 0; i < len(m.Draw) && m.Draw[len(m.Draw)-1].IsWild(); i++ {
		top := m.Draw[len(m.Draw)-1]
		copy(m.Draw[1:], m.Draw[:len(m.Draw)-1])
		m.Draw[0] = top
	}

	first := m.popDraw()
	m.Discard = append(m.Discard[:0], first)
	m.ActiveColor = first.Color

	// Alternate one card at a time, starting with the first seat.
	for c := 0; c < m.Rules.handSize(); c++ {
		for s := 0; s < NumSeats; s++ {
			seat := Seat((int(m.Rules.First) + s) % NumSeats)
			m.Hands[seat] = append(m.Hands[seat], m.popDraw())
		}
	}
	m.Turn = m.Rules.First
}

func (m *Match) popDraw() Card {
	c := m.Draw[len(m.Draw)-1]
	m.Draw = m.Draw[:len(m.Draw)-1]
	return c
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// IsTerminal returns true once either hand has emptied.
func (m *Match) IsTerminal() bool { return m.Status != StatusInProgress }

// Winner returns the winning seat, if the match is over.
func (m *Match) Winner() (Seat, bool) {
	switch m.Status {
	case StatusPlayerWon:
		return SeatPlayer, true
	case StatusBotWon:
		return SeatBot, true
	}
	return 0, false
}

// DiscardTop returns the active card. ok is false before the deal.
func (m *Match) DiscardTop() (Card, bool) {
	if len(m.Discard) == 0 {
		return Card{}, false
	}
	return m.Discard[len(m.Discard)-1], true
}

// Hand returns the seat's hand. The slice must not be modified.
func (m *Match) Hand(s Seat) []Card { return m.Hands[s] }

// HandLen returns the number of cards held by the seat.
func (m *Match) HandLen(s Seat) int { return len(m.Hands[s]) }

// CardCount returns the number of cards across all piles and hands.
// It equals DeckSize for every reachable state.
func (m *Match) CardCount() int {
	return len(m.Draw) + len(m.Discard) + len(m.Hands[SeatPlayer]) + len(m.Hands[SeatBot])
}

// findInHand returns the index of card id in the seat's hand, or -1.
func (m *Match) findInHand(s Seat, id uint8) int {
	for i, c := range m.Hands[s] {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the match.
func (m *Match) Clone() *Match {
	cp := *m
	cp.Draw = append([]Card(nil), m.Draw...)
	cp.Discard = append([]Card(nil), m.Discard...)
	for s := range m.Hands {
		cp.Hands[s] = append([]Card(nil), m.Hands[s]...)
	}
	return &cp
}
