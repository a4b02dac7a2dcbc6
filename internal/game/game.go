// internal/game/game.go
package game

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stakeduel/uno/engine"
	"github.com/stakeduel/uno/internal/cache"
	"github.com/stakeduel/uno/internal/database"
	"github.com/stakeduel/uno/internal/ledger"
	"github.com/stakeduel/uno/internal/models"
)

var (
	// ErrAlreadySettled is returned by every settlement after the first
	// successful one. No ledger call is made.
	ErrAlreadySettled = errors.New("match already settled")
	// ErrNotFinished is returned when settling a match that is still running.
	ErrNotFinished = errors.New("match not finished")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("match already started")
	// ErrNotStarted is returned for moves before Start.
	ErrNotStarted = errors.New("match not started")
)

// DefaultBotDelay is how long the bot "thinks" before each move.
const DefaultBotDelay = 600 * time.Millisecond

// OnGameEndFunc is executed once when a match reaches a terminal status.
type OnGameEndFunc func(matchID uuid.UUID, winner engine.Seat)

// UnoMatch hosts one staked match between a connected player and the bot.
// Every exported method takes Mu itself; unexported helpers assume it is held.
type UnoMatch struct {
	ID     uuid.UUID
	Player *models.Player

	Rules      engine.HouseRules
	Stake      engine.Stake
	Seed       uint64 // zero derives the seed from ID
	BotDelay   time.Duration
	AutoSettle bool // settle as soon as the match ends

	// ForfeitOnDisconnect makes Close on a running match a loss for the
	// player. When false the stake is refunded instead.
	ForfeitOnDisconnect bool

	Ledger ledger.Ledger

	Engine *engine.Match

	TurnID      int
	botTimer    *time.Timer
	actionIndex int

	Started  bool
	GameOver bool
	closed   bool

	settled    bool
	settlement *engine.Settlement

	Mu sync.Mutex

	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)
	OnGameEnd           OnGameEndFunc
}

// NewUnoMatch creates a match with default rules. The stake is not locked
// until Start.
func NewUnoMatch(player *models.Player, l ledger.Ledger, stake engine.Stake) *UnoMatch {
	id, _ := uuid.NewRandom()
	return &UnoMatch{
		ID:                  id,
		Player:              player,
		Rules:               engine.DefaultHouseRules(),
		Stake:               stake,
		BotDelay:            DefaultBotDelay,
		AutoSettle:          true,
		ForfeitOnDisconnect: true,
		Ledger:              l,
	}
}

func (g *UnoMatch) log() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"match": g.ID, "user": g.Player.ID})
}

// Start locks the player's stake, deals and announces the first turn. The
// returned error wraps ledger.ErrInsufficientFunds when the balance is short.
func (g *UnoMatch) Start(ctx context.Context) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	seed := g.Seed
	if seed == 0 {
		seed = binary.BigEndian.Uint64(g.ID[:8])
	}
	m := engine.NewMatch(seed, g.Rules)
	m.Deal()
	return g.start(ctx, m)
}

// start runs a prepared match. Assumes lock is held.
func (g *UnoMatch) start(ctx context.Context, m *engine.Match) error {
	if g.Started || g.closed {
		return ErrAlreadyStarted
	}
	if err := g.Stake.Validate(); err != nil {
		return err
	}
	if g.Ledger != nil && g.Stake.Amount.IsPositive() {
		if err := g.Ledger.Lock(ctx, g.Player.ID, g.Stake.Amount); err != nil {
			g.log().WithError(err).Info("stake lock refused")
			return fmt.Errorf("failed to lock stake: %w", err)
		}
	}

	g.Engine = m
	g.Started = true
	top, _ := m.DiscardTop()
	g.log().WithFields(logrus.Fields{"stake": g.Stake.Amount, "top": top}).Info("match started")

	g.logAction(uuid.Nil, string(EventMatchStart), map[string]interface{}{
		"stake": g.Stake.Amount.String(),
		"top":   top.String(),
	})
	g.persistInitialState()

	tc := toEventCard(top)
	g.fireEvent(GameEvent{
		Type:    EventMatchStart,
		Card:    &tc,
		Payload: map[string]interface{}{"matchId": g.ID.String(), "activeColor": m.ActiveColor.String()},
	})
	g.onTurnAdvanced()
	return nil
}

// HandlePlayerAction routes one inbound client message. Rejections are
// reported to the player as a private fail event.
func (g *UnoMatch) HandlePlayerAction(ctx context.Context, action models.GameAction) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if !g.Started || g.closed {
		g.log().Debugf("action %s ignored (match not running)", action.ActionType)
		g.failToPlayer("Match is not running.")
		return
	}

	switch action.ActionType {
	case "action_play":
		id, err := cardIDFromPayload(action.Payload)
		if err != nil {
			g.failToPlayer(err.Error())
			return
		}
		colorName, _ := action.Payload["color"].(string)
		color, err := engine.ParseColor(colorName)
		if err != nil {
			g.failToPlayer(err.Error())
			return
		}
		_ = g.playCard(id, color)
	case "action_draw":
		_ = g.draw()
	case "action_settle":
		if _, err := g.settle(ctx); err != nil {
			g.failToPlayer(err.Error())
		}
	case "action_sync":
		g.sendSyncState()
	default:
		g.log().Warnf("unknown action type %q", action.ActionType)
		g.failToPlayer("Unknown action type.")
	}
}

// PlayCard plays a card from the player's hand.
func (g *UnoMatch) PlayCard(id uint8, chosen engine.Color) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.playCard(id, chosen)
}

// Draw draws one card for the player and passes the turn to the bot.
func (g *UnoMatch) Draw() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.draw()
}

func (g *UnoMatch) playCard(id uint8, chosen engine.Color) error {
	if g.Engine == nil {
		return ErrNotStarted
	}
	eff, err := g.Engine.Apply(engine.SeatPlayer, id, chosen)
	if err != nil {
		g.log().WithError(err).Debug("play rejected")
		g.failToPlayer(err.Error())
		return err
	}
	g.emitEffects(eff)
	g.afterTransition(eff)
	return nil
}

func (g *UnoMatch) draw() error {
	if g.Engine == nil {
		return ErrNotStarted
	}
	eff, err := g.Engine.DrawTurn(engine.SeatPlayer)
	if err != nil {
		g.log().WithError(err).Debug("draw rejected")
		g.failToPlayer(err.Error())
		return err
	}
	g.emitEffects(eff)
	g.afterTransition(eff)
	return nil
}

// runBotTurn executes one bot move. Assumes lock is held.
func (g *UnoMatch) runBotTurn() {
	eff, err := g.Engine.BotTurn()
	if err != nil {
		g.log().WithError(err).Error("bot move failed")
		return
	}
	g.emitEffects(eff)
	g.afterTransition(eff)
}

// afterTransition ends the match or hands the turn on.
func (g *UnoMatch) afterTransition(eff engine.Effects) {
	if eff.Status != engine.StatusInProgress {
		g.endMatch()
		return
	}
	g.onTurnAdvanced()
}

// onTurnAdvanced bumps the turn generation, announces the turn and, when
// the bot is to move, schedules it.
func (g *UnoMatch) onTurnAdvanced() {
	g.TurnID++
	if g.Engine.IsTerminal() || g.GameOver {
		return
	}
	g.scheduleBotTimer()
	g.broadcastPlayerTurn()
	g.sendSyncState()
}

// scheduleBotTimer arms the bot move for the current turn generation.
// A callback from an older generation, or one firing after Close, is a no-op.
func (g *UnoMatch) scheduleBotTimer() {
	g.stopBotTimer()
	if g.closed || g.Engine.Turn != engine.SeatBot {
		return
	}
	cur := g.TurnID
	g.botTimer = time.AfterFunc(g.BotDelay, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.closed || g.GameOver || g.TurnID != cur {
			return
		}
		g.runBotTurn()
	})
}

func (g *UnoMatch) stopBotTimer() {
	if g.botTimer != nil {
		g.botTimer.Stop()
		g.botTimer = nil
	}
}

func (g *UnoMatch) broadcastPlayerTurn() {
	seat := g.Engine.Turn
	g.log().Debugf("turn %d: %s to move", g.TurnID, seat)
	g.fireEvent(GameEvent{
		Type:    EventGamePlayerTurn,
		Payload: map[string]interface{}{"turn": g.TurnID, "seat": seat.String()},
	})
}

// emitEffects turns one engine transition into client events and history.
func (g *UnoMatch) emitEffects(eff engine.Effects) {
	actorID := uuid.Nil
	if eff.Actor == engine.SeatPlayer {
		actorID = g.Player.ID
	}

	// A bot that draws and then plays reports both; the draw came first.
	g.emitDraws(eff)

	if eff.Played != nil {
		ec := toEventCard(*eff.Played)
		evType := EventBotPlay
		if eff.Actor == engine.SeatPlayer {
			evType = EventPlayerPlay
		}
		payload := map[string]interface{}{"activeColor": eff.ColorSet.String()}
		g.fireEvent(GameEvent{Type: evType, User: g.eventUser(eff.Actor), Card: &ec, Payload: payload})
		g.logAction(actorID, string(evType), map[string]interface{}{
			"card":        eff.Played.String(),
			"activeColor": eff.ColorSet.String(),
		})
	}
	if eff.Exhausted {
		g.log().Warn("draw pile exhausted, draw served short")
		g.fireEvent(GameEvent{Type: EventGameDeckExhaust})
		g.logAction(uuid.Nil, string(EventGameDeckExhaust), nil)
	}
}

func (g *UnoMatch) emitDraws(eff engine.Effects) {
	if eff.Reshuffled > 0 {
		g.fireEvent(GameEvent{Type: EventGameReshuffle, Payload: map[string]interface{}{"count": eff.Reshuffled}})
		g.logAction(uuid.Nil, string(EventGameReshuffle), map[string]interface{}{"count": eff.Reshuffled})
	}
	if drawn := eff.Drawn[engine.SeatPlayer]; len(drawn) > 0 {
		g.fireEvent(GameEvent{
			Type:    EventPlayerDraw,
			User:    g.eventUser(engine.SeatPlayer),
			Payload: map[string]interface{}{"count": len(drawn)},
		})
		g.fireEventToPlayer(GameEvent{Type: EventPrivateDraw, Cards: toEventCards(drawn)})
		g.logAction(g.Player.ID, string(EventPlayerDraw), map[string]interface{}{"count": len(drawn)})
	}
	if drawn := eff.Drawn[engine.SeatBot]; len(drawn) > 0 {
		g.fireEvent(GameEvent{Type: EventBotDraw, Payload: map[string]interface{}{"count": len(drawn)}})
		g.logAction(uuid.Nil, string(EventBotDraw), map[string]interface{}{"count": len(drawn)})
	}
}

func (g *UnoMatch) eventUser(s engine.Seat) *EventUser {
	if s != engine.SeatPlayer {
		return nil
	}
	return &EventUser{ID: g.Player.ID}
}

// endMatch finalizes a terminal match exactly once.
func (g *UnoMatch) endMatch() {
	if g.GameOver {
		return
	}
	g.GameOver = true
	g.stopBotTimer()

	winner, _ := g.Engine.Winner()
	g.log().WithField("winner", winner).Info("match ended")
	g.logAction(uuid.Nil, string(EventGameEnd), map[string]interface{}{
		"winner": winner.String(),
		"status": g.Engine.Status.String(),
	})
	g.fireEvent(GameEvent{
		Type:    EventGameEnd,
		Payload: map[string]interface{}{"winner": winner.String(), "status": g.Engine.Status.String()},
	})

	if g.AutoSettle {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := g.settle(ctx); err != nil {
			g.log().WithError(err).Error("automatic settlement failed")
		}
		cancel()
	}
	g.persistFinalState()
	g.sendSyncState()

	if g.OnGameEnd != nil {
		g.OnGameEnd(g.ID, winner)
	}
}

// Settle pays out a finished match. Only the first successful call touches
// the ledger; later calls return ErrAlreadySettled.
func (g *UnoMatch) Settle(ctx context.Context) (engine.Settlement, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	s, err := g.settle(ctx)
	if err == nil {
		g.persistFinalState()
	}
	return s, err
}

func (g *UnoMatch) settle(ctx context.Context) (engine.Settlement, error) {
	if g.settled {
		return *g.settlement, ErrAlreadySettled
	}
	if !g.GameOver || g.Engine == nil {
		return engine.Settlement{}, ErrNotFinished
	}
	s, err := g.Engine.Settle(g.Stake)
	if err != nil {
		return engine.Settlement{}, err
	}
	if err := g.applySettlement(ctx, s.Release, s.Payout); err != nil {
		return engine.Settlement{}, err
	}

	g.settled = true
	g.settlement = &s
	g.log().WithFields(logrus.Fields{"payout": s.Payout, "release": s.Release}).Info("match settled")
	g.logAction(uuid.Nil, string(EventMatchSettled), map[string]interface{}{
		"winner":  s.Winner.String(),
		"payout":  s.Payout.String(),
		"release": s.Release.String(),
	})
	g.fireEvent(GameEvent{
		Type: EventMatchSettled,
		Payload: map[string]interface{}{
			"winner":  s.Winner.String(),
			"payout":  s.Payout.String(),
			"release": s.Release.String(),
		},
	})
	return s, nil
}

// applySettlement moves funds. Nothing is recorded as settled unless the
// ledger accepted the whole settlement, so a failure can be retried.
func (g *UnoMatch) applySettlement(ctx context.Context, release, credit decimal.Decimal) error {
	if g.Ledger == nil || !g.Stake.Amount.IsPositive() {
		return nil
	}
	if err := ledger.Settle(ctx, g.Ledger, g.Player.ID, release, credit); err != nil {
		return fmt.Errorf("ledger settlement: %w", err)
	}
	return nil
}

// Close tears the session down: the bot timer is cancelled and a running
// match is forfeited (or refunded, see ForfeitOnDisconnect). Safe to call
// more than once.
func (g *UnoMatch) Close() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.closed {
		return
	}
	g.stopBotTimer()
	g.logAction(g.Player.ID, "player_disconnect", nil)

	if g.Started && !g.GameOver {
		if g.ForfeitOnDisconnect {
			g.log().Info("player left a running match, forfeiting")
			_ = g.Engine.Forfeit(engine.SeatPlayer)
			g.endMatch()
		} else {
			g.refund()
		}
	}
	g.closed = true
	g.Player.Connected = false
}

// refund returns the locked stake of an abandoned match.
func (g *UnoMatch) refund() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	amt := g.Stake.Amount
	if err := g.applySettlement(ctx, amt, amt); err != nil {
		g.log().WithError(err).Error("stake refund failed")
		return
	}
	g.settled = true
	g.settlement = &engine.Settlement{Winner: engine.SeatPlayer, Payout: amt, Release: amt}
	g.log().WithField("amount", amt).Info("stake refunded")
	g.logAction(g.Player.ID, "match_refunded", map[string]interface{}{"amount": amt.String()})
}

// Settled reports the settlement, if one has been made.
func (g *UnoMatch) Settled() (engine.Settlement, bool) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.settlement == nil {
		return engine.Settlement{}, false
	}
	return *g.settlement, true
}

// Closed reports whether Close has run.
func (g *UnoMatch) Closed() bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.closed
}

func (g *UnoMatch) sendSyncState() {
	v := g.GetMatchView()
	g.fireEventToPlayer(GameEvent{Type: EventPrivateSyncState, State: &v})
}

func (g *UnoMatch) failToPlayer(msg string) {
	g.fireEventToPlayer(GameEvent{Type: EventPrivateFail, Payload: map[string]interface{}{"message": msg}})
}

// fireEvent broadcasts an event to the match's listeners.
func (g *UnoMatch) fireEvent(ev GameEvent) {
	if g.closed {
		return
	}
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	} else {
		g.log().Debugf("BroadcastFn is nil, dropping %s", ev.Type)
	}
}

// fireEventToPlayer sends an event to the human only.
func (g *UnoMatch) fireEventToPlayer(ev GameEvent) {
	if g.closed || !g.Player.Connected {
		return
	}
	if g.BroadcastToPlayerFn != nil {
		g.BroadcastToPlayerFn(g.Player.ID, ev)
	} else {
		g.log().Debugf("BroadcastToPlayerFn is nil, dropping %s", ev.Type)
	}
}

// persistInitialState stores the dealt match. Assumes lock is held.
func (g *UnoMatch) persistInitialState() {
	if database.DB == nil {
		return
	}
	snap := g.Engine.Clone()
	go database.UpsertInitialGameState(g.ID, snap)
}

// persistFinalState stores the finished match and its settlement, if any.
func (g *UnoMatch) persistFinalState() {
	if database.DB == nil {
		return
	}
	type finalState struct {
		Status     string             `json:"status"`
		TurnID     int                `json:"turnId"`
		Stake      engine.Stake       `json:"stake"`
		Settlement *engine.Settlement `json:"settlement,omitempty"`
		Match      *engine.Match      `json:"match"`
	}
	snap := finalState{
		Status:     g.Engine.Status.String(),
		TurnID:     g.TurnID,
		Stake:      g.Stake,
		Settlement: g.settlement,
		Match:      g.Engine.Clone(),
	}
	go database.StoreFinalGameStateInDB(context.Background(), g.ID, snap)
}

// logAction appends an entry to the Redis action history.
// Assumes lock is held by caller.
func (g *UnoMatch) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}

	go func(rec cache.GameActionRecord) {
		if cache.Rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			g.log().WithError(err).Errorf("failed publishing action %d (%s)", rec.ActionIndex, rec.ActionType)
		}
	}(record)
}

// cardIDFromPayload reads card_id, which arrives as a JSON number.
func cardIDFromPayload(p map[string]interface{}) (uint8, error) {
	raw, ok := p["card_id"]
	if !ok {
		return 0, fmt.Errorf("missing card_id")
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid card_id %q", v)
		}
		f = n
	default:
		return 0, fmt.Errorf("invalid card_id %v", raw)
	}
	if f < 0 || f >= engine.DeckSize || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid card_id %v", raw)
	}
	return uint8(f), nil
}
