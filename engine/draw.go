package engine

import "fmt"

// DrawCards serves n cards from the draw pile into the seat's hand and returns
// them. When the draw pile runs short, the discard pile minus its top card is
// shuffled underneath the remaining draw pile first. If even that is not
// enough, every available card is served and ErrDeckExhausted is returned
// alongside the partial draw.
func (m *Match) DrawCards(s Seat, n int) ([]Card, error) {
	if m.IsTerminal() {
		return nil, ErrMatchOver
	}
	var eff Effects
	drawn, err := m.draw(s, n, &eff)
	return drawn, err
}

// draw is the supply step shared by actions; it records into eff.
func (m *Match) draw(s Seat, n int, eff *Effects) ([]Card, error) {
	if n <= 0 {
		return nil, nil
	}
	if len(m.Draw) < n {
		eff.Reshuffled += m.reshuffle()
	}

	served := n
	if len(m.Draw) < served {
		served = len(m.Draw)
	}
	drawn := make([]Card, 0, served)
	for i := 0; i < served; i++ {
		drawn = append(drawn, m.popDraw())
	}
	m.Hands[s] = append(m.Hands[s], drawn...)
	eff.Drawn[s] = append(eff.Drawn[s], drawn...)

	if served < n {
		eff.Exhausted = true
		return drawn, fmt.Errorf("%w: wanted %d, served %d", ErrDeckExhausted, n, served)
	}
	return drawn, nil
}

// reshuffle moves every discard card except the top underneath the draw
// pile in random order. Returns the number of cards moved.
func (m *Match) reshuffle() int {
	// Need at least 2 cards in discard (one stays, rest go to the draw pile).
	if len(m.Discard) <= 1 {
		return 0
	}
	top := m.Discard[len(m.Discard)-1]
	rest := append([]Card(nil), m.Discard[:len(m.Discard)-1]...)
	Shuffle(rest, m.randN)

	m.Draw = append(rest, m.Draw...)
	m.Discard = append(m.Discard[:0], top)
	return len(rest)
}
