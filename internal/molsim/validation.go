package molsim

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError collects multiple validation issues
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid config: unknown validation error"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0]
	}
	return "config validation errors: " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Add(issue string) {
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) Addf(format string, v ...any) {
	e.Add(fmt.Sprintf(format, v...))
}

func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

var validBoundaries = map[string]bool{
	"open":     true,
	"periodic": true,
}

var validPotentials = map[string]bool{
	"none":           true,
	"hard_sphere":    true,
	"lennard_jones":  true,
	"harmonic_field": true,
}

var validGeometries = map[string]bool{
	"rigid":    true,
	"flexible": true,
}

var validMoves = map[string]bool{
	"cbmc":             true,
	"reptation":        true,
	"cbmc_translation": true,
	"translate":        true,
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

// ValidateSimulationConfig checks a configuration after defaults are applied
// and reports every problem found.
func ValidateSimulationConfig(cfg SimulationConfig) error {
	err := &ValidationError{}

	if !positive(cfg.Temperature) {
		err.Addf("temperature must be positive, got %g", cfg.Temperature)
	}
	if cfg.Steps < 0 {
		err.Addf("steps must not be negative, got %d", cfg.Steps)
	}
	if cfg.ReportEvery < 0 {
		err.Addf("report_every must not be negative, got %d", cfg.ReportEvery)
	}
	if cfg.Spacing < 0 {
		err.Addf("spacing must not be negative, got %g", cfg.Spacing)
	}

	if !validBoundaries[cfg.Boundary.Type] {
		err.Addf("unknown boundary type: %s", cfg.Boundary.Type)
	}
	if len(cfg.Boundary.Size) != 3 {
		err.Addf("boundary size must have 3 components, got %d", len(cfg.Boundary.Size))
	} else {
		for i, l := range cfg.Boundary.Size {
			if !positive(l) {
				err.Addf("boundary size[%d] must be positive, got %g", i, l)
			}
		}
	}

	if cfg.Name == "." || strings.ContainsAny(cfg.Name, `/\`) || strings.Contains(cfg.Name, "..") {
		err.Addf("name %q must not contain path separators or \"..\"", cfg.Name)
	}

	validatePotential(cfg.Potential, err)

	if len(cfg.Species) == 0 {
		err.Add("at least one species is required")
	}
	species := make(map[string]SpeciesConfig)
	for i, sp := range cfg.Species {
		if sp.Name == "" {
			err.Addf("species[%d]: name is required", i)
			continue
		}
		if _, dup := species[sp.Name]; dup {
			err.Add("duplicate species name: " + sp.Name)
			continue
		}
		species[sp.Name] = sp
		validateSpecies(sp, err)
	}

	if len(cfg.Moves) == 0 {
		err.Add("at least one move is required")
	}
	names := make(map[string]bool)
	for i, mv := range cfg.Moves {
		if mv.Name == "" {
			err.Addf("moves[%d]: name is required", i)
		} else if names[mv.Name] {
			err.Add("duplicate move name: " + mv.Name)
		}
		names[mv.Name] = true
		validateMove(mv, species, err)
		validateMoveTargets(mv, cfg.Species, err)
	}

	if err.HasIssues() {
		return err
	}
	return nil
}

func validatePotential(p PotentialConfig, err *ValidationError) {
	if !validPotentials[p.Type] {
		err.Addf("unknown potential type: %s", p.Type)
		return
	}
	switch p.Type {
	case "hard_sphere":
		if !positive(p.Sigma) {
			err.Addf("hard_sphere sigma must be positive, got %g", p.Sigma)
		}
	case "lennard_jones":
		if !positive(p.Sigma) {
			err.Addf("lennard_jones sigma must be positive, got %g", p.Sigma)
		}
		if p.Epsilon < 0 {
			err.Addf("lennard_jones epsilon must not be negative, got %g", p.Epsilon)
		}
		if p.Cutoff < 0 {
			err.Addf("lennard_jones cutoff must not be negative, got %g", p.Cutoff)
		}
	case "harmonic_field":
		if p.Field.K == 0 {
			err.Add("harmonic_field requires a nonzero field k")
		}
	}
	if p.Field.K < 0 {
		err.Addf("field k must not be negative, got %g", p.Field.K)
	}
	if n := len(p.Field.Center); n != 0 && n != 3 {
		err.Addf("field center must have 3 components, got %d", n)
	}
	if n := len(p.Field.Mask); n != 0 && n != 3 {
		err.Addf("field mask must have 3 components, got %d", n)
	}
}

func validateSpecies(sp SpeciesConfig, err *ValidationError) {
	if sp.Count < 1 {
		err.Addf("species %s: count must be at least 1, got %d", sp.Name, sp.Count)
	}
	if sp.Atoms < 1 {
		err.Addf("species %s: atoms must be at least 1, got %d", sp.Name, sp.Atoms)
	}
	if !validGeometries[sp.Geometry] {
		err.Addf("species %s: unknown geometry: %s", sp.Name, sp.Geometry)
	}
	if !positive(sp.BondLength) {
		err.Addf("species %s: bond_length must be positive, got %g", sp.Name, sp.BondLength)
	}
	if sp.BondAngle <= 0 || sp.BondAngle >= 180 {
		err.Addf("species %s: bond_angle must be in (0, 180), got %g", sp.Name, sp.BondAngle)
	}
	if sp.TorsionMin < 0 || sp.TorsionMax > 180 || sp.TorsionMin > sp.TorsionMax {
		err.Addf("species %s: torsion window [%g, %g] must satisfy 0 <= min <= max <= 180", sp.Name, sp.TorsionMin, sp.TorsionMax)
	}
	if sp.Bend.K < 0 {
		err.Addf("species %s: bend k must not be negative, got %g", sp.Name, sp.Bend.K)
	}
}

func validateMove(mv MoveConfig, species map[string]SpeciesConfig, err *ValidationError) {
	if !validMoves[mv.Type] {
		err.Addf("move %s: unknown type: %s", mv.Name, mv.Type)
	}
	if !positive(mv.Frequency) {
		err.Addf("move %s: frequency must be positive, got %g", mv.Name, mv.Frequency)
	}
	if _, ok := species[mv.Species]; mv.Species != "" && !ok {
		err.Addf("move %s references unknown species: %s", mv.Name, mv.Species)
	}
	switch mv.Type {
	case "reptation":
		return
	case "translate":
		if !positive(mv.MaxDisplacement) {
			err.Addf("move %s: max_displacement must be positive, got %g", mv.Name, mv.MaxDisplacement)
		}
		return
	}
	if mv.Trials < 1 {
		err.Addf("move %s: trials must be at least 1, got %d", mv.Name, mv.Trials)
	}
	if _, e := ParseStartPolicy(mv.StartPolicy); e != nil {
		err.Addf("move %s: %v", mv.Name, e)
	}
	if _, e := ParseAnchorPolicy(mv.Anchor); e != nil {
		err.Addf("move %s: %v", mv.Name, e)
	}
	if _, e := ParseSelectionPolicy(mv.Selection); e != nil {
		err.Addf("move %s: %v", mv.Name, e)
	}
	if !positive(mv.AnchorPrefactor) {
		err.Addf("move %s: anchor_prefactor must be positive, got %g", mv.Name, mv.AnchorPrefactor)
	}
}

// minAtoms returns the shortest chain a move can act on.
func minAtoms(mv MoveConfig) int {
	switch mv.Type {
	case "reptation":
		return 2
	case "cbmc", "cbmc_translation":
		if mv.StartPolicy == StartInterior.String() {
			return 2
		}
	}
	return 1
}

// validateMoveTargets checks that every chain a move can pick is long enough.
// A move without a species acts on all of them.
func validateMoveTargets(mv MoveConfig, all []SpeciesConfig, err *ValidationError) {
	need := minAtoms(mv)
	for _, sp := range all {
		if mv.Species != "" && sp.Name != mv.Species {
			continue
		}
		if sp.Atoms >= 1 && sp.Atoms < need {
			err.Addf("move %s needs chains of at least %d atoms, species %s has %d", mv.Name, need, sp.Name, sp.Atoms)
		}
	}
}
