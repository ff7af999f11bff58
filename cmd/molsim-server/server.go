package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/daniacca/molsim/internal/logging"
	"github.com/daniacca/molsim/internal/molsim"
	"github.com/daniacca/molsim/internal/molsim/notifiers"
)

var errNoSimulation = errors.New("no simulation loaded")

// Server exposes one simulation over HTTP. The integrator is single threaded,
// so every access to it goes through mu.
type Server struct {
	mu  sync.Mutex
	sim *molsim.Simulation

	notifications *molsim.NotificationManager
	ws            *notifiers.WebSocketNotifier
	snapshotDir   string
	maxSteps      int64
	logger        *logging.Logger

	runMu   sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewServer creates a server with a websocket notifier registered and no
// simulation loaded.
func NewServer(cfg ServerConfig, logger *logging.Logger) *Server {
	mgr := molsim.NewNotificationManagerWithLogger(logger)
	ws := notifiers.NewWebSocketNotifier(cfg.WebSocketID)
	if err := mgr.RegisterNotifier(ws); err != nil {
		logger.Errorf("Failed to register websocket notifier: %v", err)
	}
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 1_000_000
	}
	return &Server{
		notifications: mgr,
		ws:            ws,
		snapshotDir:   cfg.SnapshotDir,
		maxSteps:      maxSteps,
		logger:        logger,
	}
}

// LoadSimulation builds cfg and replaces the current simulation. A running
// background loop is stopped first.
func (s *Server) LoadSimulation(cfg molsim.SimulationConfig) error {
	sim, err := molsim.BuildSimulation(cfg, s.logger.Named(cfg.Name), molsim.WithNotifications(s.notifications))
	if err != nil {
		return err
	}
	s.SetSimulation(sim)
	return nil
}

// SetSimulation installs an already built simulation.
func (s *Server) SetSimulation(sim *molsim.Simulation) {
	s.stopRunner()
	s.mu.Lock()
	s.sim = sim
	s.mu.Unlock()
	s.logger.Infof("Simulation loaded: simulation_id=%s chains=%d", sim.Integrator.ID(), len(sim.System.Chains()))
}

// withSimulation runs fn with the simulation locked.
func (s *Server) withSimulation(fn func(sim *molsim.Simulation) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sim == nil {
		return errNoSimulation
	}
	return fn(s.sim)
}

// startRunner advances the simulation by batch steps every interval until
// stopRunner is called or a move fails.
func (s *Server) startRunner(interval time.Duration, batch int64) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("simulation is already running")
	}
	s.mu.Lock()
	loaded := s.sim != nil
	s.mu.Unlock()
	if !loaded {
		return errNoSimulation
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	s.cancel = cancel
	s.stopped = stopped

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			err := s.withSimulation(func(sim *molsim.Simulation) error {
				return sim.Integrator.Run(ctx, batch)
			})
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Errorf("Background run stopped: %v", err)
				}
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	s.logger.Infof("Simulation started: interval=%v batch=%d", interval, batch)
	return nil
}

// stopRunner cancels the background loop and waits for it to exit. It reports
// whether a loop was running.
func (s *Server) stopRunner() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	<-s.stopped
	s.cancel = nil
	s.stopped = nil
	s.logger.Infof("Simulation stopped")
	return true
}

// running reports whether the background loop is active.
func (s *Server) running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.cancel != nil
}

// Routes returns the HTTP handler of the server.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /simulation", s.handleLoadSimulation)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("POST /steps", s.handleSteps)
	mux.HandleFunc("POST /start", s.handleStart)
	mux.HandleFunc("POST /stop", s.handleStop)
	mux.HandleFunc("POST /temperature", s.handleTemperature)
	mux.HandleFunc("GET /snapshot", s.handleGetSnapshot)
	mux.HandleFunc("POST /snapshot", s.handleSaveSnapshot)
	mux.HandleFunc("PUT /snapshot", s.handleRestoreSnapshot)
	mux.HandleFunc("GET /notifiers", s.handleListNotifiers)
	mux.HandleFunc("POST /notifiers", s.handleRegisterNotifier)
	mux.HandleFunc("DELETE /notifiers/{id}", s.handleUnregisterNotifier)
	mux.Handle("GET /ws", s.ws)
	return mux
}

// Close stops the background loop and every notifier.
func (s *Server) Close() error {
	s.stopRunner()
	return s.notifications.Close()
}
