package molsim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMove counts attempts and returns a fixed result.
type fakeMove struct {
	name     string
	outcome  Outcome
	ratio    float64
	err      error
	attempts int
	beta     float64
}

func (f *fakeMove) Name() string { return f.name }

func (f *fakeMove) Attempt() (MoveResult, error) {
	f.attempts++
	if f.err != nil {
		return MoveResult{Move: f.name}, f.err
	}
	return MoveResult{Move: f.name, Outcome: f.outcome, Ratio: f.ratio}, nil
}

func (f *fakeMove) SetBeta(beta float64) { f.beta = beta }

func newTestIntegrator(t *testing.T, temperature float64, opts ...IntegratorOption) *Integrator {
	t.Helper()
	sys := newRigidSystem(testBox, 2, 4, 4)
	in, err := NewIntegrator(sys, NewRandom(50), temperature, opts...)
	require.NoError(t, err)
	return in
}

func TestNewIntegrator_RejectsBadTemperature(t *testing.T) {
	sys := NewSystem(testBox)
	for _, temp := range []float64{0, -1} {
		_, err := NewIntegrator(sys, NewRandom(1), temp)
		assert.Error(t, err, "temperature %g", temp)
	}
	_, err := NewIntegrator(nil, NewRandom(1), 1)
	assert.Error(t, err)
}

func TestIntegrator_AddMove(t *testing.T) {
	in := newTestIntegrator(t, 2)
	m := &fakeMove{name: "a"}

	require.NoError(t, in.AddMove(m, 1))
	assert.Equal(t, 0.5, m.beta)
	assert.Error(t, in.AddMove(&fakeMove{name: "a"}, 1), "duplicate name")
	assert.Error(t, in.AddMove(&fakeMove{name: "b"}, 0))
	assert.Error(t, in.AddMove(nil, 1))
	assert.Equal(t, []string{"a"}, in.Moves())
}

func TestIntegrator_SelectsByFrequency(t *testing.T) {
	in := newTestIntegrator(t, 1)
	a := &fakeMove{name: "a", outcome: OutcomeAccepted, ratio: 1}
	b := &fakeMove{name: "b", outcome: OutcomeRejected}
	require.NoError(t, in.AddMove(a, 1))
	require.NoError(t, in.AddMove(b, 3))

	const n = 20000
	require.NoError(t, in.Run(context.Background(), n))
	assert.Equal(t, int64(n), in.Time())
	assert.InDelta(t, 0.25, float64(a.attempts)/n, 0.02)

	stats := in.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "a", stats[0].Move)
	assert.Equal(t, 1.0, stats[0].AcceptanceRate)
	assert.Equal(t, 0.0, stats[1].AcceptanceRate)

	in.ResetStats()
	assert.Zero(t, in.Stats()[0].Attempts)
}

func TestIntegrator_SetTemperaturePropagates(t *testing.T) {
	in := newTestIntegrator(t, 1)
	m := &fakeMove{name: "a"}
	require.NoError(t, in.AddMove(m, 1))

	require.NoError(t, in.SetTemperature(4))
	assert.Equal(t, 4.0, in.Temperature())
	assert.Equal(t, 0.25, m.beta)
	assert.Error(t, in.SetTemperature(0))
	assert.Equal(t, 4.0, in.Temperature())
}

func TestIntegrator_StepErrors(t *testing.T) {
	in := newTestIntegrator(t, 1)
	_, err := in.Step()
	assert.Error(t, err, "no moves")

	boom := errors.New("boom")
	require.NoError(t, in.AddMove(&fakeMove{name: "broken", err: boom}, 1))
	_, err = in.Step()
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, in.Time())
	assert.ErrorIs(t, in.Run(context.Background(), 10), boom)
}

func TestIntegrator_RunHonorsContext(t *testing.T) {
	in := newTestIntegrator(t, 1)
	require.NoError(t, in.AddMove(&fakeMove{name: "a"}, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, in.Run(ctx, 100), context.Canceled)
	assert.Zero(t, in.Time())
}

func TestIntegrator_ReportsProgress(t *testing.T) {
	nm := NewNotificationManager()
	defer nm.Close()
	n := &mockNotifier{id: "mock"}
	require.NoError(t, nm.RegisterNotifier(n))

	in := newTestIntegrator(t, 1.5,
		WithSimulationID("sim-1"),
		WithReportEvery(10),
		WithEnergy(HarmonicField{K: 1}),
		WithNotifications(nm),
	)
	require.NoError(t, in.AddMove(&fakeMove{name: "a", outcome: OutcomeAccepted, ratio: 1}, 1))
	require.NoError(t, in.Run(context.Background(), 35))

	assert.Eventually(t, func() bool { return n.count() == 3 }, time.Second, 10*time.Millisecond)
	events := n.received()
	assert.Equal(t, "sim-1", events[0].SimulationID)
	assert.Equal(t, []int64{10, 20, 30}, []int64{events[0].Step, events[1].Step, events[2].Step})
	assert.Equal(t, 1.5, events[2].Temperature)
	assert.Positive(t, events[2].Energy)
	require.Len(t, events[2].Moves, 1)
	assert.Equal(t, int64(30), events[2].Moves[0].Attempts)
}

func TestIntegrator_SnapshotRestore(t *testing.T) {
	in := newTestIntegrator(t, 1, WithSimulationID("snap"))
	cbmc, err := NewCBMCMove(in.System(), ZeroEnergy{}, testBox, NewRandom(51), 1)
	require.NoError(t, err)
	require.NoError(t, in.AddMove(cbmc, 1))

	snap := in.Snapshot()
	assert.Equal(t, "snap", snap.SimulationID)
	before := copyPositions(in.System().Chains()[0])

	require.NoError(t, in.Run(context.Background(), 50))
	assert.NotEqual(t, before, in.System().Chains()[0].Positions)

	require.NoError(t, in.Restore(snap))
	assert.Zero(t, in.Time())
	assert.Equal(t, before, in.System().Chains()[0].Positions)
}
