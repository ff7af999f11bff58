// Command demo runs a small adsorption example directly against the molsim
// library: pentane chains between two attractive walls, sampled with CBMC
// regrowth, reptation and combined translation.
package main

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/daniacca/molsim/internal/logging"
	"github.com/daniacca/molsim/internal/molsim"
	"gonum.org/v1/gonum/spatial/r3"
)

func main() {
	logger := logging.New("info")
	if err := run(logger, 20000); err != nil {
		logger.Fatalf("demo failed: %v", err)
	}
}

func run(logger *logging.Logger, steps int64) error {
	box := molsim.PeriodicBox{Size: r3.Vec{X: 12, Y: 12, Z: 12}}
	system := molsim.NewSystem(box)
	geometry := molsim.NewRigidGeometry(molsim.DefaultBondLength, molsim.TetrahedralAngle)
	if err := system.BuildChains("pentane", geometry, 5, molsim.GridOrigins(8, 3)); err != nil {
		return err
	}
	for _, c := range system.Chains() {
		// flatten the initial grid into the slab
		c.Translate(r3.Vec{Z: -c.Positions[0].Z * 0.5})
	}

	wall := NewWallEnergy()
	energy := molsim.SumEnergy{
		wall,
		&molsim.PairEvaluator{System: system, Pair: molsim.HardSphere{Sigma: 0.3}},
	}
	rng := molsim.NewRandom(2024)

	in, err := molsim.NewIntegrator(system, rng, 1,
		molsim.WithSimulationID("wall-demo"),
		molsim.WithIntegratorLogger(logger),
		molsim.WithReportEvery(steps/4),
		molsim.WithEnergy(energy),
	)
	if err != nil {
		return err
	}

	cbmc, err := molsim.NewCBMCMove(system, energy, box, rng, 1, molsim.WithTrials(8), molsim.WithLogger(logger))
	if err != nil {
		return err
	}
	reptation, err := molsim.NewReptationMove(system, energy, rng, 1, molsim.WithLogger(logger))
	if err != nil {
		return err
	}
	inner, err := molsim.NewCBMCMove(system, energy, box, rng, 1,
		molsim.WithName("shift/cbmc"), molsim.WithStartPolicy(molsim.StartTerminus), molsim.WithLogger(logger))
	if err != nil {
		return err
	}
	shift, err := molsim.NewCombinedTranslationMove(inner, energy, box, rng, 1, molsim.WithName("shift"))
	if err != nil {
		return err
	}
	hop, err := molsim.NewRigidTranslationMove(system, energy, rng, 1, 0.4, molsim.WithName("hop"), molsim.WithLogger(logger))
	if err != nil {
		return err
	}
	moves := []struct {
		move molsim.Move
		freq float64
	}{
		{cbmc, 2},
		{reptation, 1},
		{shift, 1},
		{hop, 1},
	}
	for _, m := range moves {
		if err := in.AddMove(m.move, m.freq); err != nil {
			return err
		}
	}

	if err := in.Run(context.Background(), steps); err != nil {
		return err
	}

	var adsorbed, atoms int
	for _, c := range system.Chains() {
		for _, p := range c.Positions {
			atoms++
			if wall.HalfWidth-math.Abs(p.Z) < wall.Range {
				adsorbed++
			}
		}
	}
	fmt.Fprintf(os.Stdout, "Atoms at the walls: %d of %d (%.1f%%)\n", adsorbed, atoms, 100*float64(adsorbed)/float64(atoms))
	for _, s := range in.Stats() {
		fmt.Fprintf(os.Stdout, "  %s: attempts=%d rate=%.3f\n", s.Move, s.Attempts, s.AcceptanceRate)
	}
	return nil
}
