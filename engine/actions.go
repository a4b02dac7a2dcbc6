package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalMove is returned for plays that fail validation. State is unchanged.
	ErrIllegalMove = errors.New("illegal move")
	// ErrNotYourTurn is returned when a seat acts out of turn. It wraps ErrIllegalMove.
	ErrNotYourTurn = fmt.Errorf("%w: not your turn", ErrIllegalMove)
	// ErrMatchOver is returned for any transition attempted on a terminal match.
	ErrMatchOver = errors.New("match is already over")
	// ErrDeckExhausted signals a draw that could not be served in full.
	ErrDeckExhausted = errors.New("deck exhausted")
)

// Effects describes everything a single transition changed, for the host
// to broadcast or persist.
type Effects struct {
	Actor      Seat
	Played     *Card            // card moved to the discard pile, if any
	ColorSet   Color            // active color after the transition
	Drawn      [NumSeats][]Card // cards added to each hand
	Reshuffled int              // discard cards returned to the draw pile
	Exhausted  bool             // a draw could not be served in full
	TurnPassed bool
	Next       Seat   // seat to act next
	Status     Status // match status after the transition
}

// Apply plays card id from the seat's hand. chosen is the declared color
// for a wild and is ignored otherwise.
//
//   - skip, reverse: the actor plays again
//   - draw2, wild4: the other seat draws 2 or 4; the actor plays again
//   - numerals and plain wild: the turn passes
//
// Emptying the hand ends the match with the actor as winner.
func (m *Match) Apply(s Seat, id uint8, chosen Color) (Effects, error) {
	if m.IsTerminal() {
		return Effects{}, ErrMatchOver
	}
	if s != m.Turn {
		return Effects{}, ErrNotYourTurn
	}
	idx := m.findInHand(s, id)
	if idx < 0 {
		return Effects{}, fmt.Errorf("%w: card %d is not in the %s's hand", ErrIllegalMove, id, s)
	}
	return m.play(s, idx, chosen)
}

// play validates and applies the card at hand index idx.
func (m *Match) play(s Seat, idx int, chosen Color) (Effects, error) {
	card := m.Hands[s][idx]
	top, ok := m.DiscardTop()
	if !ok {
		return Effects{}, fmt.Errorf("%w: match has not been dealt", ErrIllegalMove)
	}
	if !CanPlay(card, top, m.ActiveColor) {
		return Effects{}, fmt.Errorf("%w: %s cannot be played on %s with %s active", ErrIllegalMove, card, top, m.ActiveColor)
	}
	if card.IsWild() && !chosen.IsSuit() {
		return Effects{}, fmt.Errorf("%w: %s requires a color choice", ErrIllegalMove, card)
	}

	eff := Effects{Actor: s, Played: &card}

	// Remove from hand, keeping hand order.
	hand := m.Hands[s]
	m.Hands[s] = append(hand[:idx:idx], hand[idx+1:]...)
	m.Discard = append(m.Discard, card)

	if card.IsWild() {
		m.ActiveColor = chosen
	} else {
		m.ActiveColor = card.Color
	}

	var drawErr error
	passes := false
	switch {
	case card.Value.Is(ActionSkip), card.Value.Is(ActionReverse):
		// Heads-up: both mean the actor goes again.
	case card.Value.Is(ActionDrawTwo):
		_, drawErr = m.draw(s.Other(), 2, &eff)
	case card.Value.Is(ActionWildFour):
		_, drawErr = m.draw(s.Other(), 4, &eff)
	default:
		passes = true
	}

	if len(m.Hands[s]) == 0 {
		m.Status = wonBy(s)
	} else if passes {
		m.advanceTurn()
		eff.TurnPassed = true
	}

	m.finish(&eff)
	if drawErr != nil && !errors.Is(drawErr, ErrDeckExhausted) {
		return eff, drawErr
	}
	return eff, nil
}

// DrawTurn draws one card for the seat and passes the turn.
func (m *Match) DrawTurn(s Seat) (Effects, error) {
	if m.IsTerminal() {
		return Effects{}, ErrMatchOver
	}
	if s != m.Turn {
		return Effects{}, ErrNotYourTurn
	}
	eff := Effects{Actor: s}
	if _, err := m.draw(s, 1, &eff); err != nil && !errors.Is(err, ErrDeckExhausted) {
		return eff, err
	}
	m.advanceTurn()
	eff.TurnPassed = true
	m.finish(&eff)
	return eff, nil
}

// advanceTurn hands the move to the other seat.
func (m *Match) advanceTurn() {
	if m.IsTerminal() {
		return
	}
	m.TurnNumber++
	m.Turn = m.Turn.Other()
}

func (m *Match) finish(eff *Effects) {
	eff.ColorSet = m.ActiveColor
	eff.Next = m.Turn
	eff.Status = m.Status
}

// Forfeit ends an in-progress match with s conceding to the other seat.
func (m *Match) Forfeit(s Seat) error {
	if m.IsTerminal() {
		return ErrMatchOver
	}
	m.Status = wonBy(s.Other())
	return nil
}
