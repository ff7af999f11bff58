package client

import "github.com/daniacca/molsim/internal/molsim"

// SimulationBuilder provides a fluent API for building simulation configs.
type SimulationBuilder struct {
	cfg     molsim.SimulationConfig
	species []*SpeciesBuilder
	moves   []*MoveBuilder
}

// NewSimulation creates a builder for a simulation with the given name, a
// periodic box of edge 10 and no external potential.
func NewSimulation(name string) *SimulationBuilder {
	return &SimulationBuilder{
		cfg: molsim.SimulationConfig{
			Name:        name,
			Temperature: 1,
			Boundary:    molsim.BoundaryConfig{Type: "periodic", Size: []float64{10, 10, 10}},
			Potential:   molsim.PotentialConfig{Type: "none"},
		},
	}
}

// Seed sets the random seed.
func (sb *SimulationBuilder) Seed(seed int64) *SimulationBuilder {
	sb.cfg.Seed = seed
	return sb
}

// Temperature sets kB*T.
func (sb *SimulationBuilder) Temperature(t float64) *SimulationBuilder {
	sb.cfg.Temperature = t
	return sb
}

// Steps sets the number of steps a batch run performs.
func (sb *SimulationBuilder) Steps(n int64) *SimulationBuilder {
	sb.cfg.Steps = n
	return sb
}

// ReportEvery sets the step interval of progress events.
func (sb *SimulationBuilder) ReportEvery(n int64) *SimulationBuilder {
	sb.cfg.ReportEvery = n
	return sb
}

// PeriodicBox uses a periodic box with the given edges.
func (sb *SimulationBuilder) PeriodicBox(x, y, z float64) *SimulationBuilder {
	sb.cfg.Boundary = molsim.BoundaryConfig{Type: "periodic", Size: []float64{x, y, z}}
	return sb
}

// OpenBox uses an open boundary; the edges bound random anchor positions.
func (sb *SimulationBuilder) OpenBox(x, y, z float64) *SimulationBuilder {
	sb.cfg.Boundary = molsim.BoundaryConfig{Type: "open", Size: []float64{x, y, z}}
	return sb
}

// HardSpheres sets a hard sphere pair potential.
func (sb *SimulationBuilder) HardSpheres(sigma float64) *SimulationBuilder {
	sb.cfg.Potential.Type = "hard_sphere"
	sb.cfg.Potential.Sigma = sigma
	return sb
}

// LennardJones sets a truncated Lennard-Jones pair potential.
func (sb *SimulationBuilder) LennardJones(epsilon, sigma, cutoff float64) *SimulationBuilder {
	sb.cfg.Potential.Type = "lennard_jones"
	sb.cfg.Potential.Epsilon = epsilon
	sb.cfg.Potential.Sigma = sigma
	sb.cfg.Potential.Cutoff = cutoff
	return sb
}

// HarmonicField adds a harmonic field of stiffness k around center.
func (sb *SimulationBuilder) HarmonicField(k float64, center [3]float64) *SimulationBuilder {
	if sb.cfg.Potential.Type == "none" {
		sb.cfg.Potential.Type = "harmonic_field"
	}
	sb.cfg.Potential.Field = molsim.FieldConfig{K: k, Center: center[:]}
	return sb
}

// Species adds a species.
func (sb *SimulationBuilder) Species(b *SpeciesBuilder) *SimulationBuilder {
	sb.species = append(sb.species, b)
	return sb
}

// Move adds a move.
func (sb *SimulationBuilder) Move(b *MoveBuilder) *SimulationBuilder {
	sb.moves = append(sb.moves, b)
	return sb
}

// Build returns the configuration. Defaults are applied by the server.
func (sb *SimulationBuilder) Build() molsim.SimulationConfig {
	cfg := sb.cfg
	cfg.Species = make([]molsim.SpeciesConfig, 0, len(sb.species))
	for _, b := range sb.species {
		cfg.Species = append(cfg.Species, b.cfg)
	}
	cfg.Moves = make([]molsim.MoveConfig, 0, len(sb.moves))
	for _, b := range sb.moves {
		cfg.Moves = append(cfg.Moves, b.cfg)
	}
	return cfg
}

// SpeciesBuilder describes one species of chains.
type SpeciesBuilder struct {
	cfg molsim.SpeciesConfig
}

// NewSpecies creates count rigid chains of the given number of atoms.
func NewSpecies(name string, count, atoms int) *SpeciesBuilder {
	return &SpeciesBuilder{cfg: molsim.SpeciesConfig{Name: name, Count: count, Atoms: atoms, Geometry: "rigid"}}
}

// Bond sets the bond length and bond angle in degrees.
func (b *SpeciesBuilder) Bond(length, angleDeg float64) *SpeciesBuilder {
	b.cfg.BondLength = length
	b.cfg.BondAngle = angleDeg
	return b
}

// TorsionWindow restricts |phi| of a rigid chain, in degrees.
func (b *SpeciesBuilder) TorsionWindow(minDeg, maxDeg float64) *SpeciesBuilder {
	b.cfg.Geometry = "rigid"
	b.cfg.TorsionMin = minDeg
	b.cfg.TorsionMax = maxDeg
	return b
}

// Flexible switches to a flexible geometry with a harmonic bend of stiffness
// k and a Fourier torsion.
func (b *SpeciesBuilder) Flexible(bendK float64, torsion molsim.TorsionConfig) *SpeciesBuilder {
	b.cfg.Geometry = "flexible"
	b.cfg.Bend.K = bendK
	b.cfg.Torsion = torsion
	return b
}

// MoveBuilder describes one move.
type MoveBuilder struct {
	cfg molsim.MoveConfig
}

// CBMC creates a CBMC regrowth move.
func CBMC(name string) *MoveBuilder {
	return &MoveBuilder{cfg: molsim.MoveConfig{Name: name, Type: "cbmc"}}
}

// Reptation creates a reptation move.
func Reptation(name string) *MoveBuilder {
	return &MoveBuilder{cfg: molsim.MoveConfig{Name: name, Type: "reptation"}}
}

// CombinedTranslation creates a CBMC regrowth that keeps the chain center.
func CombinedTranslation(name string) *MoveBuilder {
	return &MoveBuilder{cfg: molsim.MoveConfig{Name: name, Type: "cbmc_translation"}}
}

// Translate creates a rigid translation with the given maximum displacement.
func Translate(name string, maxDisplacement float64) *MoveBuilder {
	return &MoveBuilder{cfg: molsim.MoveConfig{Name: name, Type: "translate", MaxDisplacement: maxDisplacement}}
}

// Frequency sets the relative selection frequency.
func (b *MoveBuilder) Frequency(f float64) *MoveBuilder {
	b.cfg.Frequency = f
	return b
}

// Trials sets the number of trials per growth step.
func (b *MoveBuilder) Trials(k int) *MoveBuilder {
	b.cfg.Trials = k
	return b
}

// OnSpecies restricts the move to one species.
func (b *MoveBuilder) OnSpecies(name string) *MoveBuilder {
	b.cfg.Species = name
	return b
}

// FromTerminus regrows whole chains from one end.
func (b *MoveBuilder) FromTerminus() *MoveBuilder {
	b.cfg.StartPolicy = molsim.StartTerminus.String()
	return b
}

// RetainAnchor keeps the first regrown atom in place instead of sampling it.
func (b *MoveBuilder) RetainAnchor() *MoveBuilder {
	b.cfg.Anchor = molsim.AnchorRetain.String()
	return b
}

// AnchorPrefactor scales the weight of unanchored trials.
func (b *MoveBuilder) AnchorPrefactor(f float64) *MoveBuilder {
	b.cfg.AnchorPrefactor = f
	return b
}
