package engine

import "fmt"

// BotDecision is the kind of move the bot policy selected.
type BotDecision uint8

const (
	DecisionPlay         BotDecision = 0
	DecisionDrawAndRetry BotDecision = 1
)

// BotAction is the output of Decide.
type BotAction struct {
	Decision BotDecision
	Card     Card  // valid for DecisionPlay
	Color    Color // declared color when Card is wild, else ColorNone
}

// Decide picks the bot's move: the first card in hand order that CanPlay
// accepts, or draw-and-retry when nothing is playable. Wild colors come from
// pickColor, which should be uniform over the suit colors.
func Decide(hand []Card, top Card, activeColor Color, pickColor func() Color) BotAction {
	for _, c := range hand {
		if !CanPlay(c, top, activeColor) {
			continue
		}
		a := BotAction{Decision: DecisionPlay, Card: c, Color: ColorNone}
		if c.IsWild() {
			a.Color = pickColor()
		}
		return a
	}
	return BotAction{Decision: DecisionDrawAndRetry, Color: ColorNone}
}

// BotTurn runs one bot move against the match. If the policy finds nothing
// to play the bot draws exactly one card and plays it only if that card is
// now legal; otherwise the turn passes to the player.
func (m *Match) BotTurn() (Effects, error) {
	if m.IsTerminal() {
		return Effects{}, ErrMatchOver
	}
	if m.Turn != SeatBot {
		return Effects{}, ErrNotYourTurn
	}
	top, ok := m.DiscardTop()
	if !ok {
		return Effects{}, fmt.Errorf("%w: match has not been dealt", ErrIllegalMove)
	}

	action := Decide(m.Hands[SeatBot], top, m.ActiveColor, m.RandomSuit)
	if action.Decision == DecisionPlay {
		return m.Apply(SeatBot, action.Card.ID, action.Color)
	}

	var eff Effects
	eff.Actor = SeatBot
	drawn, _ := m.draw(SeatBot, 1, &eff)
	if len(drawn) == 1 && CanPlay(drawn[0], top, m.ActiveColor) {
		color := ColorNone
		if drawn[0].IsWild() {
			color = m.RandomSuit()
		}
		played, err := m.play(SeatBot, len(m.Hands[SeatBot])-1, color)
		if err != nil {
			return eff, err
		}
		played.Drawn[SeatBot] = append(eff.Drawn[SeatBot], played.Drawn[SeatBot]...)
		played.Reshuffled += eff.Reshuffled
		played.Exhausted = played.Exhausted || eff.Exhausted
		return played, nil
	}

	m.advanceTurn()
	eff.TurnPassed = true
	m.finish(&eff)
	return eff, nil
}
