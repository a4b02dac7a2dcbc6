// internal/game/events.go
package game

import (
	"github.com/google/uuid"
	"github.com/stakeduel/uno/engine"
)

// GameEventType represents the type of a match event sent over the socket.
type GameEventType string

const (
	EventMatchStart       GameEventType = "match_start"
	EventPlayerPlay       GameEventType = "player_play"         // Public: the human played a card.
	EventBotPlay          GameEventType = "bot_play"            // Public: the bot played a card.
	EventPlayerDraw       GameEventType = "player_draw"         // Public: the human drew (count only).
	EventPrivateDraw      GameEventType = "private_draw"        // Private: the cards the human drew.
	EventBotDraw          GameEventType = "bot_draw"            // Public: the bot drew (count only).
	EventGameReshuffle    GameEventType = "game_reshuffle"      // Discard pile returned to the draw pile.
	EventGameDeckExhaust  GameEventType = "game_deck_exhausted" // A draw was short.
	EventGamePlayerTurn   GameEventType = "game_player_turn"
	EventPrivateFail      GameEventType = "private_action_fail"
	EventPrivateSyncState GameEventType = "private_sync_state"
	EventGameEnd          GameEventType = "game_end"
	EventMatchSettled     GameEventType = "match_settled"
)

// EventUser identifies a user within a GameEvent.
type EventUser struct {
	ID uuid.UUID `json:"id"`
}

// EventCard is a card as shown to the client.
type EventCard struct {
	ID    uint8  `json:"id"`
	Color string `json:"color"`
	Value string `json:"value"`
}

// GameEvent is the envelope for everything the server pushes to a client.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	User    *EventUser             `json:"user,omitempty"`
	Card    *EventCard             `json:"card,omitempty"`
	Cards   []EventCard            `json:"cards,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *MatchView             `json:"state,omitempty"`
}

func toEventCard(c engine.Card) EventCard {
	return EventCard{ID: c.ID, Color: c.Color.String(), Value: c.Value.String()}
}

func toEventCards(cs []engine.Card) []EventCard {
	out := make([]EventCard, len(cs))
	for i, c := range cs {
		out[i] = toEventCard(c)
	}
	return out
}
