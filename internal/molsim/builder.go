package molsim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Simulation is a ready-to-run system built from a SimulationConfig.
type Simulation struct {
	Config     SimulationConfig
	System     *System
	Energy     EnergyEvaluator
	Integrator *Integrator
	Random     RandomSource
}

func degrees(d float64) float64 { return d * math.Pi / 180 }

func vec3(v []float64) r3.Vec {
	if len(v) != 3 {
		return r3.Vec{}
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// BuildSimulation validates cfg and assembles the system, the energy, the
// initial chains and the integrator with every configured move. Extra
// integrator options are applied after the ones derived from cfg.
func BuildSimulation(cfg SimulationConfig, logger Logger, opts ...IntegratorOption) (*Simulation, error) {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	cfg.ApplyDefaults()
	if err := ValidateSimulationConfig(cfg); err != nil {
		return nil, err
	}

	boundary := buildBoundary(cfg.Boundary)
	system := NewSystem(boundary)
	energy := buildEnergy(cfg.Potential, system)
	rng := NewRandom(uint64(cfg.Seed))

	geometries := make(map[string]ChainGeometry, len(cfg.Species))
	for _, sp := range cfg.Species {
		geometries[sp.Name] = BuildGeometry(sp)
	}
	if err := placeChains(cfg, system, geometries); err != nil {
		return nil, err
	}
	for _, c := range system.Chains() {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("initial configuration: %w", err)
		}
		if u := energy.MoleculeEnergy(c); math.IsNaN(u) || math.IsInf(u, 0) {
			return nil, fmt.Errorf("initial configuration of %s has energy %g; increase spacing or box size", c.ID, u)
		}
	}

	intOpts := []IntegratorOption{
		WithIntegratorLogger(logger),
		WithReportEvery(cfg.ReportEvery),
		WithEnergy(energy),
	}
	if cfg.Name != "" {
		intOpts = append(intOpts, WithSimulationID(cfg.Name))
	}
	integrator, err := NewIntegrator(system, rng, cfg.Temperature, append(intOpts, opts...)...)
	if err != nil {
		return nil, err
	}

	beta := 1 / cfg.Temperature
	for _, mc := range cfg.Moves {
		move, err := buildMove(mc, system, energy, rng, beta, logger)
		if err != nil {
			return nil, err
		}
		if err := integrator.AddMove(move, mc.Frequency); err != nil {
			return nil, err
		}
	}

	logger.Infof("built simulation %s: %d chains, %d atoms, %d moves", integrator.ID(), len(system.Chains()), system.AtomCount(), len(cfg.Moves))
	return &Simulation{
		Config:     cfg,
		System:     system,
		Energy:     energy,
		Integrator: integrator,
		Random:     rng,
	}, nil
}

func buildBoundary(cfg BoundaryConfig) Boundary {
	if cfg.Type == "open" {
		return OpenBoundary{Size: vec3(cfg.Size)}
	}
	return PeriodicBox{Size: vec3(cfg.Size)}
}

func buildEnergy(cfg PotentialConfig, system *System) EnergyEvaluator {
	var terms SumEnergy
	switch cfg.Type {
	case "hard_sphere":
		terms = append(terms, &PairEvaluator{System: system, Pair: HardSphere{Sigma: cfg.Sigma}})
	case "lennard_jones":
		terms = append(terms, &PairEvaluator{System: system, Pair: LennardJones{Epsilon: cfg.Epsilon, Sigma: cfg.Sigma, Cutoff: cfg.Cutoff}})
	}
	if cfg.Field.K != 0 {
		terms = append(terms, HarmonicField{K: cfg.Field.K, Center: vec3(cfg.Field.Center), Mask: vec3(cfg.Field.Mask)})
	}
	switch len(terms) {
	case 0:
		return ZeroEnergy{}
	case 1:
		return terms[0]
	}
	return terms
}

// BuildGeometry returns the chain geometry of a species with defaults applied.
func BuildGeometry(sp SpeciesConfig) ChainGeometry {
	if sp.Geometry == "flexible" {
		var bend BendPotential
		if sp.Bend.K != 0 {
			bend = HarmonicBend{K: sp.Bend.K, Theta0: degrees(sp.Bend.Theta0)}
		}
		var torsion TorsionPotential
		if sp.Torsion != (TorsionConfig{}) {
			torsion = FourierTorsion{C0: sp.Torsion.C0, C1: sp.Torsion.C1, C2: sp.Torsion.C2, C3: sp.Torsion.C3}
		}
		return NewFlexibleGeometry(sp.BondLength, degrees(sp.BondAngle), bend, torsion)
	}
	g := NewRigidGeometry(sp.BondLength, degrees(sp.BondAngle))
	g.TorsionMin = degrees(sp.TorsionMin)
	g.TorsionMax = degrees(sp.TorsionMax)
	return g
}

// GridOrigins returns n points of a simple cubic grid with the given spacing,
// centered on the origin.
func GridOrigins(n int, spacing float64) []r3.Vec {
	side := 1
	for side*side*side < n {
		side++
	}
	half := float64(side-1) / 2
	out := make([]r3.Vec, n)
	for j := range n {
		out[j] = r3.Vec{
			X: (float64(j%side) - half) * spacing,
			Y: (float64((j/side)%side) - half) * spacing,
			Z: (float64(j/(side*side)) - half) * spacing,
		}
	}
	return out
}

func placeChains(cfg SimulationConfig, system *System, geometries map[string]ChainGeometry) error {
	total := 0
	spacing := cfg.Spacing
	var reach, bond float64
	for _, sp := range cfg.Species {
		total += sp.Count
		extent := float64(sp.Atoms-1) * sp.BondLength * math.Sin(degrees(sp.BondAngle)/2)
		reach = math.Max(reach, extent+sp.BondLength)
		bond = math.Max(bond, sp.BondLength)
	}
	if spacing == 0 {
		spacing = reach + 2*math.Max(cfg.Potential.Sigma, bond)
	}

	origins := GridOrigins(total, spacing)
	if cfg.Boundary.Type == "periodic" {
		side := 1
		for side*side*side < total {
			side++
		}
		edge := float64(side) * spacing
		for _, l := range cfg.Boundary.Size {
			if edge > l {
				return fmt.Errorf("box edge %g cannot hold %d chains at spacing %g", l, total, spacing)
			}
		}
	}

	next := 0
	for _, sp := range cfg.Species {
		if err := system.BuildChains(sp.Name, geometries[sp.Name], sp.Atoms, origins[next:next+sp.Count]); err != nil {
			return err
		}
		next += sp.Count
	}
	return nil
}

func buildMove(mc MoveConfig, system *System, energy EnergyEvaluator, rng RandomSource, beta float64, logger Logger) (Move, error) {
	var source MoleculeSource = system
	if mc.Species != "" {
		source = SpeciesSource{System: system, Species: mc.Species}
	}

	if mc.Type == "reptation" {
		move, err := NewReptationMove(source, energy, rng, beta,
			WithName(mc.Name), WithVerifyCommit(!mc.SkipVerify), WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return move, nil
	}

	if mc.Type == "translate" {
		move, err := NewRigidTranslationMove(source, energy, rng, beta, mc.MaxDisplacement,
			WithName(mc.Name), WithVerifyCommit(!mc.SkipVerify), WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return move, nil
	}

	start, err := ParseStartPolicy(mc.StartPolicy)
	if err != nil {
		return nil, err
	}
	anchor, err := ParseAnchorPolicy(mc.Anchor)
	if err != nil {
		return nil, err
	}
	selection, err := ParseSelectionPolicy(mc.Selection)
	if err != nil {
		return nil, err
	}

	name := mc.Name
	if mc.Type == "cbmc_translation" {
		name += "/cbmc"
	}
	cbmc, err := NewCBMCMove(source, energy, system.Boundary, rng, beta,
		WithName(name),
		WithTrials(mc.Trials),
		WithStartPolicy(start),
		WithAnchorPolicy(anchor),
		WithSelection(selection),
		WithAnchorPrefactor(mc.AnchorPrefactor),
		WithVerifyCommit(!mc.SkipVerify),
		WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if mc.Type == "cbmc" {
		return cbmc, nil
	}
	move, err := NewCombinedTranslationMove(cbmc, energy, system.Boundary, rng, beta, WithName(mc.Name), WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return move, nil
}
