package engine

// CanPlay reports whether card may be played onto top while activeColor is
// in force. Wilds are always legal; otherwise a color match with the active
// color or a value match with the top card suffices.
func CanPlay(card, top Card, activeColor Color) bool {
	if card.IsWild() {
		return true
	}
	if card.Color == activeColor {
		return true
	}
	return card.Value.Equal(top.Value)
}

// PlayableCards returns the cards in the seat's hand that may legally be
// played right now, in hand order. Empty when the match is over.
func (m *Match) PlayableCards(s Seat) []Card {
	top, ok := m.DiscardTop()
	if !ok || m.IsTerminal() {
		return nil
	}
	var out []Card
	for _, c := range m.Hands[s] {
		if CanPlay(c, top, m.ActiveColor) {
			out = append(out, c)
		}
	}
	return out
}
