// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/stakeduel/uno/engine"
)

// MatchView is the match as the human may see it: their own hand in full,
// the bot's hand as a count only.
type MatchView struct {
	MatchID     uuid.UUID   `json:"matchId"`
	Status      string      `json:"status"`
	Turn        string      `json:"turn"`
	TurnID      int         `json:"turnId"`
	ActiveColor string      `json:"activeColor"`
	DrawSize    int         `json:"drawSize"`
	DiscardSize int         `json:"discardSize"`
	DiscardTop  *EventCard  `json:"discardTop,omitempty"`
	Hand        []EventCard `json:"hand"`
	Playable    []uint8     `json:"playable"`
	BotHandSize int         `json:"botHandSize"`
	Stake       string      `json:"stake"`
	Settled     bool        `json:"settled"`
	Payout      string      `json:"payout,omitempty"`
}

// GetMatchView snapshots the player's view of the match.
// Assumes the lock is held by the caller.
func (g *UnoMatch) GetMatchView() MatchView {
	v := MatchView{
		MatchID: g.ID,
		TurnID:  g.TurnID,
		Stake:   g.Stake.Amount.String(),
		Settled: g.settled,
		Hand:    []EventCard{},
	}
	if g.settlement != nil {
		v.Payout = g.settlement.Payout.String()
	}
	m := g.Engine
	if m == nil {
		v.Status = "waiting"
		return v
	}

	v.Status = m.Status.String()
	if !m.IsTerminal() {
		v.Turn = m.Turn.String()
	}
	v.ActiveColor = m.ActiveColor.String()
	v.DrawSize = len(m.Draw)
	v.DiscardSize = len(m.Discard)
	if top, ok := m.DiscardTop(); ok {
		ec := toEventCard(top)
		v.DiscardTop = &ec
	}
	v.Hand = toEventCards(m.Hand(engine.SeatPlayer))
	for _, c := range m.PlayableCards(engine.SeatPlayer) {
		v.Playable = append(v.Playable, c.ID)
	}
	v.BotHandSize = m.HandLen(engine.SeatBot)
	return v
}
