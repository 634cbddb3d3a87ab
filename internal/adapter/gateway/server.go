// Package gateway exposes the operator API: JSON endpoints for the
// parking flow and a WebSocket feed that streams domain events to
// dashboard clients.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"parkd/internal/domain"
	"parkd/internal/infra/config"
	"parkd/internal/infra/middleware"
	"parkd/internal/usecase/parking"
)

// ParkingService is the slice of the parking use case the gateway needs.
type ParkingService interface {
	RegisterPlate(ctx context.Context, plate string) (*domain.ParkingRecord, error)
	RequestExit(ctx context.Context, plate string) (*parking.ExitTicket, error)
	ConfirmPayment(ctx context.Context, plate string) (*domain.ParkingRecord, error)
	History(ctx context.Context) ([]domain.ParkingRecord, error)
	Slots(ctx context.Context) (map[string]string, error)
	Stats(ctx context.Context) (domain.LotStats, error)
}

// clientConn tracks one WebSocket subscriber.
type clientConn struct {
	ws        *websocket.Conn
	sendCh    chan domain.Event
	done      chan struct{}
	closeOnce sync.Once
}

// Server serves the operator HTTP API and the event WebSocket.
type Server struct {
	svc       ParkingService
	bus       domain.EventBus
	cfg       config.GatewayConfig
	imagesDir string
	logger    *slog.Logger

	clients   sync.Map // connID (uint64) -> *clientConn
	nextID    atomic.Uint64
	httpSrv   *http.Server
	boundAddr string
	unsubAll  func()
}

// NewServer creates a gateway. imagesDir, when non-empty, is served
// under /images/ so dashboards can fetch payment QR codes.
func NewServer(svc ParkingService, bus domain.EventBus, cfg config.GatewayConfig, imagesDir string, logger *slog.Logger) *Server {
	return &Server{
		svc:       svc,
		bus:       bus,
		cfg:       cfg,
		imagesDir: imagesDir,
		logger:    logger.With("component", "gateway"),
	}
}

// Start listens and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	mux.HandleFunc("/api/entry", s.handleEntry)
	mux.HandleFunc("/api/exit", s.handleExit)
	mux.HandleFunc("/api/confirm", s.handleConfirm)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/api/slots", s.handleSlots)
	mux.HandleFunc("/api/stats", s.handleStats)
	if s.imagesDir != "" {
		mux.Handle("/images/", http.StripPrefix("/images/", http.FileServer(http.Dir(s.imagesDir))))
	}

	var handler http.Handler = mux
	handler = middleware.TokenAuth(s.cfg.AuthToken)(handler)
	handler = middleware.RateLimit(ctx, s.cfg.RequestsPerMin, s.cfg.Burst)(handler)
	handler = middleware.SecurityHeaders(handler)

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.boundAddr = listener.Addr().String()
	s.httpSrv = &http.Server{Handler: handler}

	// Forward every bus event to connected dashboard clients.
	if s.bus != nil {
		s.unsubAll = s.bus.SubscribeAll(func(_ context.Context, event domain.Event) {
			s.clients.Range(func(_, value any) bool {
				cc := value.(*clientConn)
				select {
				case cc.sendCh <- event:
				default:
					s.logger.Warn("dropped event for slow client")
				}
				return true
			})
		})
	}

	s.logger.Info("gateway started", "addr", s.boundAddr)

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway serve: %w", err)
	}
	return nil
}

// Stop closes client connections and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.unsubAll != nil {
		s.unsubAll()
	}
	s.clients.Range(func(key, value any) bool {
		cc := value.(*clientConn)
		cc.closeOnce.Do(func() { close(cc.done) })
		cc.ws.Close(websocket.StatusGoingAway, "server shutting down")
		s.clients.Delete(key)
		return true
	})
	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// BoundAddr returns the bound listen address. Only valid after Start.
func (s *Server) BoundAddr() string { return s.boundAddr }

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{
			"localhost",
			"localhost:*",
			"127.0.0.1",
			"127.0.0.1:*",
			"[::1]",
			"[::1]:*",
		},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	connID := s.nextID.Add(1)
	cc := &clientConn{
		ws:     ws,
		sendCh: make(chan domain.Event, 64),
		done:   make(chan struct{}),
	}
	s.clients.Store(connID, cc)
	s.logger.Info("dashboard client connected", "conn_id", connID, "remote", r.RemoteAddr)

	go s.writeLoop(cc)

	// The feed is one-way; the read loop only notices disconnects.
	for {
		if _, _, err := ws.Read(r.Context()); err != nil {
			break
		}
	}

	cc.closeOnce.Do(func() { close(cc.done) })
	s.clients.Delete(connID)
	ws.Close(websocket.StatusNormalClosure, "")
	s.logger.Info("dashboard client disconnected", "conn_id", connID)
}

func (s *Server) writeLoop(cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		case event := <-cc.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := wsjson.Write(ctx, cc.ws, event)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
