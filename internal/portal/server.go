package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/muurk/wifictl/internal/logging"
	"github.com/muurk/wifictl/internal/metrics"
)

// Defaults for the portal listener.
const (
	DefaultListen          = ":8810"
	DefaultPath            = "/ws"
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the server configuration
type Config struct {
	Listen            string  // Address to listen on (default :8810)
	Path              string  // WebSocket endpoint (default /ws)
	CommandsPerSecond float64 // Per-client request rate, 0 = unlimited
	Burst             int     // Requests allowed in a burst
	Version           string  // Reported in ap_status

	Controller Controller
	Settings   Settings          // Optional
	Recorder   *metrics.Recorder // Serves /metrics when set
	Restart    func()            // Enables control reboot and reset
	Logger     *zap.Logger
}

// Server is the configuration portal: a WebSocket endpoint carrying JSON
// requests and manager events, plus the optional metrics endpoint.
type Server struct {
	config   Config
	hub      *Hub
	http     *http.Server
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	baseCtx  context.Context
	cancel   context.CancelFunc
}

// New creates a new Server instance
func New(config Config) (*Server, error) {
	if config.Controller == nil {
		return nil, errors.New("portal: controller is required")
	}
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}
	log := config.Logger
	if log == nil {
		log = logging.Named("portal")
	}

	handler := NewHandler(config.Controller, config.Settings, config.Version, log)
	if config.Restart != nil {
		handler.OnRestart(config.Restart)
	}
	s := &Server{
		config: config,
		hub:    NewHub(handler, rate.Limit(config.CommandsPerSecond), config.Burst, config.Recorder, log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The portal is reached through the device's own access point,
			// where pages are served from any host name the client resolved.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Hub returns the client hub. Subscribe its Observe method to the manager.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler serving the portal routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.serveWebSocket)
	if s.config.Recorder != nil {
		mux.Handle("/metrics", s.config.Recorder.Handler())
	}
	return mux
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("WebSocket upgrade error",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	logging.LogConnection(r.RemoteAddr, "connection_accepted")
	s.hub.Serve(s.baseCtx, conn)
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.log.Info("Portal listening for connections",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", s.config.Path),
		zap.Bool("metrics", s.config.Recorder != nil),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down portal...")
	s.cancel()

	// Hijacked WebSocket connections are not tracked by http.Server.
	err := s.http.Shutdown(ctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("Error closing listener", zap.Error(err))
	}
	s.hub.Close(ctx)
	return err
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	return s.hub.Count()
}
