// internal/ws/server.go
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stakeduel/uno/engine"
	"github.com/stakeduel/uno/internal/auth"
	"github.com/stakeduel/uno/internal/cache"
	"github.com/stakeduel/uno/internal/config"
	"github.com/stakeduel/uno/internal/game"
	"github.com/stakeduel/uno/internal/ledger"
	"github.com/stakeduel/uno/internal/models"
)

const (
	sendBuffer   = 64
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// Server exposes matches over websocket plus a few JSON endpoints.
type Server struct {
	cfg    *config.Config
	ledger ledger.Ledger
	secret []byte
}

// NewServer wires a server to a ledger. Balance and dev-credit endpoints
// are served only when the ledger also implements ledger.Account.
func NewServer(cfg *config.Config, l ledger.Ledger) *Server {
	return &Server{cfg: cfg, ledger: l, secret: []byte(cfg.JWTSecret)}
}

// Routes returns the HTTP handler for the whole service.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /ws", s.ServeWS)
	mux.HandleFunc("GET /balance", s.handleBalance)
	mux.HandleFunc("GET /matches/{id}/history", s.handleHistory)
	if s.cfg.DevCredit {
		mux.HandleFunc("POST /dev/credit", s.handleDevCredit)
	}
	return mux
}

// client is one socket's outbound queue.
type client struct {
	conn *websocket.Conn
	send chan game.GameEvent
	done chan struct{}
	log  *logrus.Entry
}

// enqueue never blocks the match: a slow client loses events rather than
// stalling the session lock.
func (c *client) enqueue(ev game.GameEvent) {
	select {
	case <-c.done:
	case c.send <- ev:
	default:
		c.log.Warnf("send buffer full, dropping %s", ev.Type)
	}
}

func (c *client) writeLoop(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			c.flush(ctx)
			return
		case ev := <-c.send:
			if err := c.write(ctx, ev); err != nil {
				c.log.WithError(err).Debug("write failed")
				return
			}
		case <-ping.C:
			if err := c.conn.Ping(ctx); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}

// flush writes whatever is still queued.
func (c *client) flush(ctx context.Context) {
	for {
		select {
		case ev := <-c.send:
			if err := c.write(ctx, ev); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *client) write(ctx context.Context, ev game.GameEvent) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, c.conn, ev)
}

// ServeWS authenticates the handshake, starts a match against the bot and
// pumps messages until the socket closes. Closing the socket ends the match.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	stake, err := s.stakeFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.cfg.AllowedOrigins})
	if err != nil {
		logrus.WithError(err).Warn("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	player := &models.Player{ID: user.ID, User: user, Conn: conn, Connected: true}
	match := game.NewUnoMatch(player, s.ledger, stake)
	match.BotDelay = s.cfg.BotDelay
	match.AutoSettle = s.cfg.AutoSettle
	if s.cfg.HandSize > 0 {
		match.Rules.HandSize = s.cfg.HandSize
	}

	c := &client{
		conn: conn,
		send: make(chan game.GameEvent, sendBuffer),
		done: make(chan struct{}),
		log:  logrus.WithFields(logrus.Fields{"match": match.ID, "user": user.ID}),
	}
	match.BroadcastFn = c.enqueue
	match.BroadcastToPlayerFn = func(_ uuid.UUID, ev game.GameEvent) { c.enqueue(ev) }
	match.OnGameEnd = func(id uuid.UUID, winner engine.Seat) {
		c.log.WithField("winner", winner).Info("match over")
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(ctx)
	}()

	if err := match.Start(ctx); err != nil {
		msg := "could not start match"
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			msg = "insufficient funds for stake"
		}
		c.log.WithError(err).Info("match start refused")
		c.enqueue(game.GameEvent{Type: game.EventPrivateFail, Payload: map[string]interface{}{"message": msg}})
		s.finish(conn, c, cancel, writerDone, websocket.StatusPolicyViolation, msg)
		return
	}
	c.log.WithField("stake", stake.Amount).Info("client connected")

	for {
		var action models.GameAction
		if err := wsjson.Read(ctx, conn, &action); err != nil {
			if websocket.CloseStatus(err) == -1 {
				c.log.WithError(err).Debug("read ended")
			}
			break
		}
		match.HandlePlayerAction(ctx, action)
	}

	match.Close()
	s.finish(conn, c, cancel, writerDone, websocket.StatusNormalClosure, "bye")
	c.log.Info("client disconnected")
}

// finish stops the writer once it has flushed and closes the socket.
func (s *Server) finish(conn *websocket.Conn, c *client, cancel context.CancelFunc, writerDone <-chan struct{}, code websocket.StatusCode, reason string) {
	close(c.done)
	select {
	case <-writerDone:
	case <-time.After(writeTimeout):
	}
	cancel()
	<-writerDone
	_ = conn.Close(code, reason)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	tok, err := auth.TokenFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	id, name, err := auth.ParseToken(s.secret, tok)
	if err != nil {
		logrus.WithError(err).Debug("rejected token")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return &models.User{ID: id, Username: name}, true
}

func (s *Server) stakeFromRequest(r *http.Request) (engine.Stake, error) {
	stake := engine.Stake{Amount: s.cfg.DefaultStake, RakeRate: s.cfg.RakeRate}
	if v := r.URL.Query().Get("stake"); v != "" {
		amt, err := decimal.NewFromString(v)
		if err != nil {
			return engine.Stake{}, errors.New("invalid stake")
		}
		stake.Amount = amt
	}
	if err := stake.Validate(); err != nil {
		return engine.Stake{}, err
	}
	return stake, nil
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	acct, ok := s.ledger.(ledger.Account)
	if !ok {
		http.Error(w, "balances unavailable", http.StatusNotImplemented)
		return
	}
	b, err := acct.Balance(r.Context(), user.ID)
	if err != nil {
		logrus.WithError(err).WithField("user", user.ID).Error("balance lookup failed")
		http.Error(w, "balance lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDevCredit(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	acct, ok := s.ledger.(ledger.Account)
	if !ok {
		http.Error(w, "balances unavailable", http.StatusNotImplemented)
		return
	}
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := acct.Deposit(r.Context(), user.ID, req.Amount); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logrus.WithFields(logrus.Fields{"user": user.ID, "amount": req.Amount}).Info("dev credit")
	b, err := acct.Balance(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "balance lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}
	if cache.Rdb == nil {
		http.Error(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}
	recs, err := cache.GameActions(r.Context(), id)
	if err != nil {
		logrus.WithError(err).WithField("match", id).Error("history lookup failed")
		http.Error(w, "history lookup failed", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []cache.GameActionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Debug("response write failed")
	}
}
