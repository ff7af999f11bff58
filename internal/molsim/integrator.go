package molsim

import (
	"context"
	"fmt"
	"math"
	"time"
)

type moveEntry struct {
	move      Move
	frequency float64
	tracker   *MoveTracker
}

// Integrator runs a Monte Carlo loop over a system: each step picks one move
// with probability proportional to its frequency and attempts it. The loop is
// single threaded; callers serialise access.
type Integrator struct {
	id          string
	system      *System
	rng         RandomSource
	energy      EnergyEvaluator
	temperature float64

	moves     []moveEntry
	totalFreq float64
	steps     int64

	reportEvery   int64
	logger        Logger
	notifications *NotificationManager
	notifierIDs   []string
}

// IntegratorOption customizes an integrator.
type IntegratorOption func(*Integrator)

// WithIntegratorLogger injects a logger.
func WithIntegratorLogger(logger Logger) IntegratorOption {
	return func(in *Integrator) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// WithSimulationID sets the ID reported in progress events.
func WithSimulationID(id string) IntegratorOption {
	return func(in *Integrator) { in.id = id }
}

// WithReportEvery sets the number of steps between progress reports. Zero
// disables reporting.
func WithReportEvery(n int64) IntegratorOption {
	return func(in *Integrator) { in.reportEvery = n }
}

// WithEnergy sets the evaluator used for the energy in progress events.
func WithEnergy(energy EnergyEvaluator) IntegratorOption {
	return func(in *Integrator) { in.energy = energy }
}

// WithNotifications routes progress events to the given notifiers, or to every
// notifier registered at report time when none are named.
func WithNotifications(mgr *NotificationManager, notifierIDs ...string) IntegratorOption {
	return func(in *Integrator) {
		in.notifications = mgr
		in.notifierIDs = append(in.notifierIDs, notifierIDs...)
	}
}

// NewIntegrator creates an integrator with no moves at the given temperature.
func NewIntegrator(system *System, rng RandomSource, temperature float64, opts ...IntegratorOption) (*Integrator, error) {
	if system == nil || rng == nil {
		return nil, fmt.Errorf("integrator: system and random source are required")
	}
	in := &Integrator{
		id:     NewRandomID(),
		system: system,
		rng:    rng,
		logger: NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(in)
	}
	if err := in.SetTemperature(temperature); err != nil {
		return nil, err
	}
	return in, nil
}

// ID returns the simulation ID.
func (in *Integrator) ID() string { return in.id }

// System returns the sampled system.
func (in *Integrator) System() *System { return in.system }

// Time returns the number of completed steps.
func (in *Integrator) Time() int64 { return in.steps }

// SetTime overrides the step counter, e.g. after restoring a snapshot.
func (in *Integrator) SetTime(steps int64) { in.steps = steps }

// Temperature returns kB*T.
func (in *Integrator) Temperature() float64 { return in.temperature }

// SetTemperature sets kB*T and pushes beta = 1/T to every temperature
// dependent move.
func (in *Integrator) SetTemperature(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
		return fmt.Errorf("integrator: temperature must be positive and finite, got %g", t)
	}
	in.temperature = t
	for _, e := range in.moves {
		if bs, ok := e.move.(BetaSetter); ok {
			bs.SetBeta(1 / t)
		}
	}
	return nil
}

// AddMove registers a move with a relative selection frequency.
func (in *Integrator) AddMove(move Move, frequency float64) error {
	if move == nil {
		return fmt.Errorf("integrator: move cannot be nil")
	}
	if math.IsNaN(frequency) || math.IsInf(frequency, 0) || frequency <= 0 {
		return fmt.Errorf("integrator: move %s frequency must be positive, got %g", move.Name(), frequency)
	}
	for _, e := range in.moves {
		if e.move.Name() == move.Name() {
			return fmt.Errorf("integrator: duplicate move name %s", move.Name())
		}
	}
	if bs, ok := move.(BetaSetter); ok {
		bs.SetBeta(1 / in.temperature)
	}
	in.moves = append(in.moves, moveEntry{move: move, frequency: frequency, tracker: NewMoveTracker()})
	in.totalFreq += frequency
	return nil
}

// Moves returns the registered move names in registration order.
func (in *Integrator) Moves() []string {
	names := make([]string, len(in.moves))
	for i, e := range in.moves {
		names[i] = e.move.Name()
	}
	return names
}

func (in *Integrator) pick() *moveEntry {
	x := in.rng.NextUniform() * in.totalFreq
	for i := range in.moves {
		x -= in.moves[i].frequency
		if x < 0 {
			return &in.moves[i]
		}
	}
	return &in.moves[len(in.moves)-1]
}

// Step attempts one move. An error is fatal for the run; the step counter is
// not advanced.
func (in *Integrator) Step() (MoveResult, error) {
	if len(in.moves) == 0 {
		return MoveResult{}, fmt.Errorf("integrator: no moves registered")
	}
	e := in.pick()
	res, err := e.move.Attempt()
	if err != nil {
		in.logger.Errorf("step %d: move %s failed: %v", in.steps, e.move.Name(), err)
		return res, fmt.Errorf("step %d: %w", in.steps, err)
	}
	e.tracker.Record(res)
	in.steps++
	in.logger.Debugf("step %d: move=%s molecule=%s outcome=%s ratio=%g", in.steps, res.Move, res.Molecule, res.Outcome, res.Ratio)

	if in.reportEvery > 0 && in.steps%in.reportEvery == 0 {
		in.report()
	}
	return res, nil
}

// Run performs steps until n steps have completed, ctx is cancelled or a move
// fails.
func (in *Integrator) Run(ctx context.Context, n int64) error {
	for i := int64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := in.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns a summary per move in registration order.
func (in *Integrator) Stats() []MoveStats {
	out := make([]MoveStats, len(in.moves))
	for i, e := range in.moves {
		out[i] = e.tracker.Stats(e.move.Name())
	}
	return out
}

// ResetStats clears every move tracker.
func (in *Integrator) ResetStats() {
	for _, e := range in.moves {
		e.tracker.Reset()
	}
}

// Energy returns the sum of the external energies of all chains, or 0 without
// an evaluator. Pair interactions between chains are counted from both sides.
func (in *Integrator) Energy() float64 {
	if in.energy == nil {
		return 0
	}
	var u float64
	for _, c := range in.system.Chains() {
		u += in.energy.MoleculeEnergy(c)
	}
	return u
}

// Progress returns the current progress event.
func (in *Integrator) Progress() ProgressEvent {
	return ProgressEvent{
		SimulationID: in.id,
		Step:         in.steps,
		Temperature:  in.temperature,
		Energy:       in.Energy(),
		Timestamp:    time.Now().UnixNano(),
		Moves:        in.Stats(),
	}
}

func (in *Integrator) report() {
	ev := in.Progress()
	for _, s := range ev.Moves {
		in.logger.Infof("step %d: move=%s attempts=%d acceptance=%.3f", ev.Step, s.Move, s.Attempts, s.AcceptanceRate)
	}
	if in.notifications != nil {
		ids := in.notifierIDs
		if len(ids) == 0 {
			ids = in.notifications.ListNotifiers()
		}
		in.notifications.Enqueue(ev, ids)
	}
}

// Snapshot captures the step count and every chain position.
func (in *Integrator) Snapshot() Snapshot {
	return TakeSnapshot(in.id, in.steps, in.system)
}

// Restore applies a snapshot and resumes the step count from it.
func (in *Integrator) Restore(snapshot Snapshot) error {
	if err := ApplySnapshot(snapshot, in.system); err != nil {
		return err
	}
	in.steps = snapshot.Time
	in.logger.Infof("restored snapshot of %d chains at step %d", len(snapshot.Chains), snapshot.Time)
	return nil
}
