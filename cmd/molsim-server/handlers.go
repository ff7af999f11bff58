package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/daniacca/molsim/internal/molsim"
	"github.com/daniacca/molsim/internal/molsim/notifiers"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps simulation errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *molsim.ValidationError
	switch {
	case errors.Is(err, errNoSimulation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &verr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// POST /simulation
// Body: SimulationConfig JSON
func (s *Server) handleLoadSimulation(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	cfg, err := molsim.DecodeSimulationConfig(data, "json")
	if err != nil {
		http.Error(w, "invalid simulation config: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.LoadSimulation(cfg); err != nil {
		http.Error(w, "cannot build simulation: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.handleStats(w, r)
}

// GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var ev molsim.ProgressEvent
	err := s.withSimulation(func(sim *molsim.Simulation) error {
		ev = sim.Integrator.Progress()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// POST /steps?n=100
// Runs n steps synchronously and returns the resulting stats.
func (s *Server) handleSteps(w http.ResponseWriter, r *http.Request) {
	n := int64(1)
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 1 || parsed > s.maxSteps {
			http.Error(w, "invalid n: must be an integer between 1 and "+strconv.FormatInt(s.maxSteps, 10), http.StatusBadRequest)
			return
		}
		n = parsed
	}
	if s.running() {
		http.Error(w, "simulation is running; stop it first", http.StatusConflict)
		return
	}

	var ev molsim.ProgressEvent
	err := s.withSimulation(func(sim *molsim.Simulation) error {
		if err := sim.Integrator.Run(r.Context(), n); err != nil {
			return err
		}
		ev = sim.Integrator.Progress()
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Errorf("Steps failed: n=%d error=%v", n, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// POST /start?interval=100&batch=1000
// Starts a background loop running batch steps every interval milliseconds.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	interval := 100 * time.Millisecond
	if v := r.URL.Query().Get("interval"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			http.Error(w, "invalid interval: must be a positive integer (milliseconds)", http.StatusBadRequest)
			return
		}
		interval = time.Duration(ms) * time.Millisecond
	}
	batch := int64(1000)
	if v := r.URL.Query().Get("batch"); v != "" {
		b, err := strconv.ParseInt(v, 10, 64)
		if err != nil || b < 1 || b > s.maxSteps {
			http.Error(w, "invalid batch: must be an integer between 1 and "+strconv.FormatInt(s.maxSteps, 10), http.StatusBadRequest)
			return
		}
		batch = b
	}

	if err := s.startRunner(interval, batch); err != nil {
		if errors.Is(err, errNoSimulation) {
			writeError(w, err)
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("simulation started"))
}

// POST /stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !s.stopRunner() {
		http.Error(w, "simulation is not running", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("simulation stopped"))
}

// POST /temperature?value=2.5
func (s *Server) handleTemperature(w http.ResponseWriter, r *http.Request) {
	t, err := strconv.ParseFloat(r.URL.Query().Get("value"), 64)
	if err != nil {
		http.Error(w, "invalid value: must be a number", http.StatusBadRequest)
		return
	}
	err = s.withSimulation(func(sim *molsim.Simulation) error {
		return sim.Integrator.SetTemperature(t)
	})
	if err != nil {
		if errors.Is(err, errNoSimulation) {
			writeError(w, err)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Infof("Temperature set: value=%g", t)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("temperature set"))
}

func (s *Server) snapshot() (molsim.Snapshot, error) {
	var snap molsim.Snapshot
	err := s.withSimulation(func(sim *molsim.Simulation) error {
		snap = sim.Integrator.Snapshot()
		return nil
	})
	return snap, err
}

// GET /snapshot
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// POST /snapshot
// Writes the current snapshot to the snapshot directory.
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshotDir == "" {
		http.Error(w, "snapshot directory is not configured", http.StatusInternalServerError)
		return
	}
	snap, err := s.snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := molsim.EncodeSnapshotJSON(snap)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := os.MkdirAll(s.snapshotDir, 0o755); err != nil {
		writeError(w, err)
		return
	}
	path, err := snapshotPath(s.snapshotDir, snap.SimulationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Errorf("Failed to write snapshot: path=%s error=%v", path, err)
		writeError(w, err)
		return
	}
	s.logger.Infof("Snapshot saved: path=%s step=%d", path, snap.Time)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "path": path})
}

// snapshotPath returns the snapshot file of a simulation, refusing IDs that
// would resolve outside dir.
func snapshotPath(dir, id string) (string, error) {
	path := filepath.Join(dir, id+".snapshot.json")
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel != filepath.Base(path) || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("simulation id %q is not a valid snapshot file name", id)
	}
	return path, nil
}

// PUT /snapshot
// Body: Snapshot JSON
func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if s.running() {
		http.Error(w, "simulation is running; stop it first", http.StatusConflict)
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	snap, err := molsim.DecodeSnapshotJSON(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = s.withSimulation(func(sim *molsim.Simulation) error {
		return sim.Integrator.Restore(snap)
	})
	if err != nil {
		if errors.Is(err, errNoSimulation) {
			writeError(w, err)
			return
		}
		http.Error(w, "cannot restore snapshot: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("snapshot restored"))
}

// GET /notifiers
func (s *Server) handleListNotifiers(w http.ResponseWriter, _ *http.Request) {
	ids := s.notifications.ListNotifiers()
	list := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.notifications.GetNotifier(id); ok {
			list = append(list, map[string]string{"id": id, "type": n.Type()})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifiers": list})
}

// POST /notifiers
// Body: { "type": "webhook", "id": "my-webhook", "url": "http://...", "headers": {...} }
type registerNotifierRequest struct {
	Type    string            `json:"type"`
	ID      string            `json:"id"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (s *Server) handleRegisterNotifier(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req registerNotifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}

	var notifier molsim.Notifier
	switch req.Type {
	case "webhook":
		if req.URL == "" {
			http.Error(w, "webhook URL is required", http.StatusBadRequest)
			return
		}
		wh := notifiers.NewWebhookNotifier(req.ID, req.URL)
		for k, v := range req.Headers {
			wh.SetHeader(k, v)
		}
		notifier = wh
	default:
		http.Error(w, "unknown notifier type: "+req.Type, http.StatusBadRequest)
		return
	}

	if err := s.notifications.RegisterNotifier(notifier); err != nil {
		http.Error(w, "cannot register notifier: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Infof("Notifier registered: id=%s type=%s", req.ID, req.Type)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier registered"))
}

// DELETE /notifiers/{id}
func (s *Server) handleUnregisterNotifier(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == s.ws.ID() {
		http.Error(w, "the websocket notifier cannot be removed", http.StatusBadRequest)
		return
	}
	if err := s.notifications.UnregisterNotifier(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier unregistered"))
}
