// Package gateway hosts the HTTP surface: the carrier webhook mount, a
// health endpoint, the delivery audit listing, and a WebSocket event feed
// that streams bus activity to observers.
package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smsbridge/smsbridge/internal/bus"
	"github.com/smsbridge/smsbridge/internal/config"
	"github.com/smsbridge/smsbridge/internal/logging"
	"github.com/smsbridge/smsbridge/internal/store"
	"github.com/smsbridge/smsbridge/internal/version"
)

const (
	defaultDeliveryListLimit = 50
	maxDeliveryListLimit     = 500
)

// DeliveryLister reads recent delivery audit records.
type DeliveryLister interface {
	Recent(ctx context.Context, limit int) ([]store.Delivery, error)
}

// Server is the SMSBridge HTTP + WebSocket server.
type Server struct {
	cfg        config.ServerConfig
	log        *logging.Logger
	bus        *bus.Bus
	webhook    http.Handler
	deliveries DeliveryLister
	clients    *ClientRegistry
	eventSeq   atomic.Int64
	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithWebhook mounts the carrier webhook handler at /webhooks/twilio.
func WithWebhook(h http.Handler) ServerOption {
	return func(s *Server) { s.webhook = h }
}

// WithDeliveries enables the /deliveries audit listing.
func WithDeliveries(d DeliveryLister) ServerOption {
	return func(s *Server) { s.deliveries = d }
}

// New creates a gateway server streaming events from b.
func New(cfg config.ServerConfig, b *bus.Bus, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log.Sub("gateway"),
		bus:     b,
		clients: NewClientRegistry(log.Sub("feed")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// routes builds the HTTP mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	if s.webhook != nil {
		mux.Handle("/webhooks/twilio", s.webhook)
	}
	if s.deliveries != nil {
		mux.HandleFunc("/deliveries", s.handleDeliveries)
	}
	return mux
}

// Start begins listening. It blocks until the context is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Bind, strconv.Itoa(s.cfg.Port))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      withMiddleware(s.routes(), s.log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.FeedToken == "" && !isLoopback(s.cfg.Bind) {
		s.log.Warn().Msg("event feed has no token and the server is not bound to loopback")
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("version", version.Version).
		Msg("gateway server ready")

	go s.pumpEvents(ctx)

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.CloseAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

func isLoopback(bind string) bool {
	ip := net.ParseIP(bind)
	return ip != nil && ip.IsLoopback()
}

// pumpEvents forwards bus events to all connected feed clients until the
// context is done or the bus closes.
func (s *Server) pumpEvents(ctx context.Context) {
	events, cancel := s.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			seq := s.eventSeq.Add(1)
			s.clients.Broadcast(NewEventFrame(ev.Kind, ev.Payload, seq))
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       version.Version,
		"uptimeSeconds": int(time.Since(s.startedAt).Seconds()),
		"feedClients":   s.clients.Count(),
	})
}

func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	limit := defaultDeliveryListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxDeliveryListLimit {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid limit"})
			return
		}
		limit = n
	}

	records, err := s.deliveries.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("delivery listing failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "delivery listing failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliveries": records})
}

// handleWebSocket upgrades the connection and streams the event feed. The
// client never sends frames; the read loop exists only to detect close.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(conn)
	s.clients.Add(client)
	defer func() {
		s.clients.Remove(client.ConnID)
		client.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Str("connId", client.ConnID).Msg("feed read ended")
			}
			return
		}
	}
}

// authorized checks the bearer token. An empty configured token disables
// the check; the loopback default bind covers that case.
func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.FeedToken == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		// Browser WebSocket clients cannot set headers.
		token = r.URL.Query().Get("token")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.FeedToken)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
