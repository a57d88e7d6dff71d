package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/muurk/watering/internal/logging"
	"github.com/muurk/watering/internal/protocol"
	"github.com/muurk/watering/internal/radio"
	"github.com/muurk/watering/internal/session"
	"github.com/muurk/watering/internal/store"
)

// Controller is the session API the handlers drive. *session.Session
// implements it.
type Controller interface {
	Connect(ctx context.Context, p session.Params) error
	Disconnect(ctx context.Context) error
	Info() session.Info
	Store() *store.Store

	CheckNow(ctx context.Context) error
	Ping(ctx context.Context) error
	Poll(ctx context.Context) error
	GetSettings(ctx context.Context) error
	SaveSettings(ctx context.Context) error
	GetVersion(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	SetChannel(ctx context.Context, channel uint8, on bool) error
	SetTempSwitch(ctx context.Context, on bool) error
	SetSettings(ctx context.Context, settings protocol.Settings) error
}

// Config holds the server configuration.
type Config struct {
	Listen        string // host:port
	StaticDir     string // browser UI served for non-API paths; empty disables it
	BridgeVersion string // reported as softwareVersionControl

	// ListPorts enumerates serial ports; radio.ListPorts if nil.
	ListPorts func() ([]radio.PortInfo, error)
}

// Server serves the bridge HTTP API and live updates over WebSocket.
type Server struct {
	config Config
	ctrl   Controller
	router chi.Router
	http   *http.Server

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
}

// New creates a server for ctrl.
func New(config Config, ctrl Controller) *Server {
	if config.ListPorts == nil {
		config.ListPorts = radio.ListPorts
	}
	s := &Server{
		config: config,
		ctrl:   ctrl,
		router: chi.NewRouter(),
		quit:   make(chan struct{}),
	}
	s.setupRoutes()

	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address once Run has bound it.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run listens on the configured address and serves until ctx is done, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logging.Info("HTTP API listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("static_dir", s.config.StaticDir),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting requests, closes WebSocket clients and waits for
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down HTTP API")

	s.mu.Lock()
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	s.mu.Unlock()

	err := s.http.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, WebSocket clients still open")
	}
	return err
}
