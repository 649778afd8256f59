// Package server is the WebSocket gateway in front of the game engine.
//
// Each connection sends JSON requests naming an operation and the acting
// player. Replies and events pushed by the engine share one ordered outbox
// per connection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/antispam"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/config"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/game"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/logger"
)

// outboxSize is how many messages may queue for a slow client before
// pushed events are dropped.
const outboxSize = 64

// Server accepts WebSocket clients and dispatches their requests.
type Server struct {
	cfg         *config.ServerConfig
	dispatcher  *Dispatcher
	slots       *slots
	limiter     *RequestLimiter
	flood       antispam.Config
	httpServer  *http.Server

	mu          sync.RWMutex
	sessions    map[*session]struct{}
	subscribers map[string]map[*session]struct{}

	shutdown     chan struct{}
	shutdownOnce sync.Once
	StartTime    time.Time
}

// session is one connected client.
type session struct {
	client  Client
	ip      string
	flood   *antispam.Tracker
	outbox  chan Response
	done    chan struct{}       // closed when the read loop ends
	flushed chan struct{}       // closed when the write loop ends
	players map[string]struct{} // owned by the read loop
}

// NewServer creates a server and registers it as the engine's notifier.
func NewServer(cfg *config.ServerConfig, engine *game.Engine) *Server {
	s := &Server{
		cfg:         cfg,
		dispatcher:  NewDispatcher(engine),
		slots:       newSlots(cfg.Connections),
		limiter:     NewRequestLimiter(cfg.RateLimit),
		flood:       antispam.ConfigFromYAML(cfg.Flood.Enabled, cfg.Flood.MaxRequests, cfg.Flood.WindowSeconds),
		sessions:    make(map[*session]struct{}),
		subscribers: make(map[string]map[*session]struct{}),
		shutdown:    make(chan struct{}),
		StartTime:   time.Now(),
	}
	engine.SetNotifier(s.Notify)
	return s
}

// Handler returns the HTTP routes of the gateway.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.Info("WebSocket server listening", "address", s.cfg.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes the open ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		s.limiter.Stop()

		s.mu.RLock()
		srv := s.httpServer
		open := make([]*session, 0, len(s.sessions))
		for sess := range s.sessions {
			open = append(open, sess)
		}
		s.mu.RUnlock()

		if srv != nil {
			err = srv.Shutdown(ctx)
		}
		// hijacked connections are not closed by http.Server
		for _, sess := range open {
			sess.client.Close()
		}
		logger.Info("Server shut down", "connections", len(open))
	})
	return err
}

// Notify pushes an engine event to every connection that acted for playerID.
// It never blocks: a full outbox drops the event.
func (s *Server) Notify(playerID, event string, payload any) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for sess := range s.subscribers[playerID] {
		select {
		case sess.outbox <- Response{Event: event, Player: playerID, Result: payload}:
		default:
			logger.Warning("Dropped event for slow client",
				"event", event,
				"player_id", playerID,
				"remote_addr", sess.client.RemoteAddr())
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
		SlotStats
	}{
		Status:    "ok",
		Uptime:    time.Since(s.StartTime).Round(time.Second).String(),
		SlotStats: s.slots.stats(),
	})
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := remoteClient(r)

	if locked, remaining := s.limiter.IsLocked(clientIP); locked {
		logger.Warning("WebSocket connection rejected - client locked out",
			"client_ip", clientIP,
			"remaining", remaining)
		http.Error(w, "Too many bad requests. Please try again later.", http.StatusTooManyRequests)
		return
	}

	release, refusal := s.slots.claim(clientIP)
	if release == nil {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP,
			"limit", refusal)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("WebSocket upgrade failed", "error", err)
		release()
		return
	}

	go func() {
		defer release()
		s.handleClient(NewWebSocketClient(wsConn, s.cfg.WebSocket.MaxMessageSize), clientIP)
	}()
}

// handleClient runs the read loop of one connection until it closes, the
// server shuts down or the client is locked out.
func (s *Server) handleClient(client Client, ip string) {
	sess := &session{
		client:  client,
		ip:      ip,
		flood:   antispam.NewTracker(s.flood),
		outbox:  make(chan Response, outboxSize),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
		players: make(map[string]struct{}),
	}
	s.register(sess)
	go s.writeLoop(sess)

	defer func() {
		s.unregister(sess)
		close(sess.done)
		<-sess.flushed
		client.Close()
		logger.Debug("Client disconnected", "remote_addr", client.RemoteAddr())
	}()

	logger.Debug("Client connected", "remote_addr", client.RemoteAddr(), "client_ip", ip)

	for {
		raw, err := client.ReadMessage()
		if err != nil {
			return
		}
		select {
		case <-s.shutdown:
			return
		default:
		}

		if !s.serve(sess, raw) {
			return
		}
	}
}

// serve handles one message and reports whether the connection stays open.
func (s *Server) serve(sess *session, raw []byte) bool {
	ctx := context.Background()

	req, err := s.dispatcher.Decode(raw)
	if check := sess.flood.Allow(); !check.Allowed {
		// throttled requests are not run and do not count as bad
		return s.send(sess, Response{
			ID:    req.ID,
			Op:    req.Op,
			Error: "slow down, retry in " + check.Wait.Round(time.Second).String(),
		})
	}

	var resp Response
	if err == nil {
		if req.Player != "" {
			s.subscribe(sess, req.Player)
		}
		resp, err = s.dispatcher.Handle(ctx, req)
	} else {
		resp = Response{Error: "malformed request"}
	}

	switch {
	case errors.Is(err, ErrBadRequest):
		locked, lockout := s.limiter.RecordFailure(sess.ip)
		logger.Debug("Bad request", "client_ip", sess.ip, "error", err)
		if locked {
			logger.Warning("Client locked out after repeated bad requests",
				"client_ip", sess.ip,
				"lockout", lockout)
			resp.Error = "too many bad requests, locked out for " + lockout.Round(time.Second).String()
			s.send(sess, resp)
			return false
		}
	case err != nil:
		logger.Error("Request failed", "op", req.Op, "player_id", req.Player, "error", err)
	default:
		s.limiter.RecordSuccess(sess.ip)
	}

	return s.send(sess, resp)
}

// send queues a reply, waiting for room unless the connection is closing.
func (s *Server) send(sess *session, resp Response) bool {
	select {
	case sess.outbox <- resp:
		return true
	case <-sess.flushed:
		return false
	case <-s.shutdown:
		return false
	}
}

// writeLoop drains the outbox. After the read loop ends it flushes what is
// queued and exits.
func (s *Server) writeLoop(sess *session) {
	defer close(sess.flushed)
	for {
		select {
		case resp := <-sess.outbox:
			if err := sess.client.WriteJSON(resp); err != nil {
				logger.Debug("Write failed", "remote_addr", sess.client.RemoteAddr(), "error", err)
				sess.client.Close()
				return
			}
		case <-sess.done:
			for {
				select {
				case resp := <-sess.outbox:
					if err := sess.client.WriteJSON(resp); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (s *Server) register(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess] = struct{}{}
}

func (s *Server) unregister(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
	for id := range sess.players {
		subs := s.subscribers[id]
		delete(subs, sess)
		if len(subs) == 0 {
			delete(s.subscribers, id)
		}
	}
}

// subscribe routes events for playerID to sess.
func (s *Server) subscribe(sess *session, playerID string) {
	if _, ok := sess.players[playerID]; ok {
		return
	}
	sess.players[playerID] = struct{}{}

	s.mu.Lock()
	defer s.mu.Unlock()
	subs, ok := s.subscribers[playerID]
	if !ok {
		subs = make(map[*session]struct{})
		s.subscribers[playerID] = subs
	}
	subs[sess] = struct{}{}
}

// SessionCount returns the number of connected clients.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
