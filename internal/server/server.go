// Package server implements the WebSocket control server. A client connects,
// receives welcome and ready envelopes, and may then start one typing session
// at a time; the server streams status envelopes back until the session
// completes, is stopped, or fails.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xkilldash9x/qtype/internal/config"
	"github.com/xkilldash9x/qtype/internal/driver"
	"github.com/xkilldash9x/qtype/internal/engine"
	"github.com/xkilldash9x/qtype/internal/sink"
)

const (
	// Fallbacks when the server config leaves a timeout zero: time allowed to
	// write a message to the peer, and time allowed to read the next pong.
	defaultWriteWait = 10 * time.Second
	defaultPongWait  = 60 * time.Second
	// Maximum message size allowed from peer.
	maxMessageSize = 1 << 20

	mouseJitterPeriod = 150 * time.Millisecond
	mouseJitterScale  = 6.0
)

// Server accepts control connections and runs typing sessions on their behalf.
type Server struct {
	cfg      config.Config
	logger   *zap.Logger
	upgrader websocket.Upgrader

	// Connection deadlines from ServerConfig. readWait bounds the gap
	// between reads (pong or command); writeWait bounds each write.
	readWait  time.Duration
	writeWait time.Duration

	// newSink builds the Sink each session types into. The default writes to
	// stdout; tests substitute a recorder.
	newSink func() engine.Sink
}

// New creates a control server from configuration.
func New(cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	readWait := cfg.Server.ReadTimeout
	if readWait <= 0 {
		readWait = defaultPongWait
	}
	writeWait := cfg.Server.WriteTimeout
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	return &Server{
		cfg:       cfg,
		logger:    logger.Named("server"),
		readWait:  readWait,
		writeWait: writeWait,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The server binds to loopback; remote origins never reach it.
				return true
			},
		},
		newSink: func() engine.Sink { return sink.NewConsole(os.Stdout) },
	}
}

// Handler returns the HTTP handler serving the control endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Run serves the control endpoint until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen on %s: %w", s.cfg.Server.ListenAddr, err)
	}
}

// client is one connected control peer.
type client struct {
	id     string
	srv    *Server
	conn   *websocket.Conn
	logger *zap.Logger

	// Buffered channel of outbound envelopes, already marshalled. done is
	// closed when the read pump exits so late session goroutines stop
	// enqueueing instead of racing a channel close.
	send chan []byte
	done chan struct{}

	mu            sync.Mutex
	sessionCancel context.CancelFunc
}

// handleWS upgrades the connection and runs the read loop on it.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	id := uuid.New().String()
	c := &client{
		id:     id,
		srv:    s,
		conn:   conn,
		logger: s.logger.With(zap.String("client_id", id[:8])),
		send:   make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	c.logger.Info("Control client connected")

	go c.writePump()

	c.enqueue(welcomeEnvelope())
	c.enqueue(readyEnvelope())

	c.readPump(r.Context())
}

// readPump reads envelopes from the peer until the connection drops, then
// cancels any running session and releases the write pump.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.stopSession()
		close(c.done)
		c.conn.Close()
		c.logger.Info("Control client disconnected")
	}()

	readWait := c.srv.readWait
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(readWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Websocket read error", zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.logger.Warn("Malformed control message", zap.Error(err))
			c.enqueue(errorEnvelope("malformed message"))
			continue
		}

		switch env.Type {
		case TypeStartTyping:
			c.startSession(ctx, env)
		case TypeStopTyping:
			c.stopSession()
		default:
			c.logger.Debug("Ignoring unknown control message", zap.String("type", env.Type))
		}
	}
}

// writePump pumps marshalled envelopes to the peer and keeps the connection
// alive with pings. The ping period must be shorter than the read wait so the
// peer's pong always lands inside the deadline.
func (c *client) writePump() {
	ticker := time.NewTicker(c.srv.readWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.srv.writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.srv.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.srv.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue marshals and queues an envelope for the write pump. A full queue
// drops the envelope rather than blocking the session.
func (c *client) enqueue(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		c.logger.Error("Failed to marshal envelope", zap.Error(err))
		return
	}
	select {
	case <-c.done:
	case c.send <- payload:
	default:
		c.logger.Warn("Dropping envelope, send queue full", zap.String("type", env.Type))
	}
}

// startSession spins up one typing session for the client. Only one session
// may run at a time per connection.
func (c *client) startSession(parent context.Context, env Envelope) {
	c.mu.Lock()
	if c.sessionCancel != nil {
		c.mu.Unlock()
		c.logger.Warn("Rejecting start_typing, session already active")
		c.enqueue(errorEnvelope("session already active"))
		return
	}
	ctx, cancel := context.WithCancel(parent)
	c.sessionCancel = cancel
	c.mu.Unlock()

	clean, skipped := driver.SanitizeText(env.Text, c.logger)
	if clean == "" {
		c.clearSession()
		c.enqueue(errorEnvelope("no typeable characters in text"))
		return
	}

	tcfg := env.Settings.typingConfig(c.srv.cfg.Typing)
	profile, delays, imperfections, layout := tcfg.EngineSettings()

	out := c.srv.newSink()
	eng := engine.New(out, profile, delays, imperfections, layout, engine.NewSessionRand())
	if err := eng.SetText(clean); err != nil {
		c.clearSession()
		c.enqueue(errorEnvelope(err.Error()))
		return
	}

	c.logger.Info("Starting remote typing session",
		zap.String("profile", tcfg.Profile),
		zap.Int("chars", len([]rune(clean))),
		zap.Int("skipped", skipped),
	)

	d := driver.New(eng, out, c.logger, driver.Options{
		WatchdogTimeout: tcfg.WatchdogTimeout,
		OnProgress: func(p int) {
			c.enqueue(statusEnvelope("typing", p))
		},
	})

	if env.Settings != nil && env.Settings.MouseMovement {
		go c.mouseJitter(ctx)
	}

	go func() {
		defer c.clearSession()
		err := d.Run(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			c.enqueue(statusEnvelope("stopped", eng.ProgressPercent()))
		case err != nil:
			c.logger.Error("Remote typing session failed", zap.Error(err))
			c.enqueue(errorEnvelope(err.Error()))
		default:
			c.enqueue(completedEnvelope())
		}
	}()
}

// stopSession cancels the running session, if any.
func (c *client) stopSession() {
	c.mu.Lock()
	cancel := c.sessionCancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// clearSession releases the session slot.
func (c *client) clearSession() {
	c.mu.Lock()
	if c.sessionCancel != nil {
		c.sessionCancel()
		c.sessionCancel = nil
	}
	c.mu.Unlock()
}

// mouseJitter streams small perlin-noise cursor offsets while the session is
// active. The client applies them however it likes; the values are smooth
// and centered on zero.
func (c *client) mouseJitter(ctx context.Context) {
	seed := time.Now().UnixNano()
	noiseX := perlin.NewPerlin(2, 2, 3, seed)
	noiseY := perlin.NewPerlin(2, 2, 3, seed+1)

	ticker := time.NewTicker(mouseJitterPeriod)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t := time.Since(start).Seconds()
			dx := noiseX.Noise1D(t*0.8) * mouseJitterScale
			dy := noiseY.Noise1D(t*0.8) * mouseJitterScale
			c.enqueue(mouseMoveEnvelope(dx, dy))
		}
	}
}
