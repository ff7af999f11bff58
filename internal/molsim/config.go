package molsim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
)

// BoundaryConfig selects the simulation box.
type BoundaryConfig struct {
	// Type is "open" or "periodic".
	Type string `json:"type" toml:"type"`
	// Size holds the three box edge lengths.
	Size []float64 `json:"size" toml:"size"`
}

type BendConfig struct {
	K float64 `json:"k" toml:"k"`
	// Theta0 in degrees; zero means the species bond angle.
	Theta0 float64 `json:"theta0,omitempty" toml:"theta0"`
}

type TorsionConfig struct {
	C0 float64 `json:"c0" toml:"c0"`
	C1 float64 `json:"c1" toml:"c1"`
	C2 float64 `json:"c2" toml:"c2"`
	C3 float64 `json:"c3" toml:"c3"`
}

// SpeciesConfig describes one kind of chain and how many of them to build.
// Angles are in degrees.
type SpeciesConfig struct {
	Name       string  `json:"name" toml:"name"`
	Count      int     `json:"count" toml:"count"`
	Atoms      int     `json:"atoms" toml:"atoms"`
	Geometry   string  `json:"geometry,omitempty" toml:"geometry"`
	BondLength float64 `json:"bond_length,omitempty" toml:"bond_length"`
	BondAngle  float64 `json:"bond_angle,omitempty" toml:"bond_angle"`
	// TorsionMin and TorsionMax bound |phi| for rigid chains. A zero TorsionMax
	// means 180.
	TorsionMin float64       `json:"torsion_min,omitempty" toml:"torsion_min"`
	TorsionMax float64       `json:"torsion_max,omitempty" toml:"torsion_max"`
	Bend       BendConfig    `json:"bend,omitempty" toml:"bend"`
	Torsion    TorsionConfig `json:"torsion,omitempty" toml:"torsion"`
}

type FieldConfig struct {
	K      float64   `json:"k" toml:"k"`
	Center []float64 `json:"center,omitempty" toml:"center"`
	Mask   []float64 `json:"mask,omitempty" toml:"mask"`
}

// PotentialConfig selects the external energy. A field with nonzero K is added
// to the pair potential.
type PotentialConfig struct {
	// Type is "none", "hard_sphere", "lennard_jones" or "harmonic_field".
	Type    string      `json:"type" toml:"type"`
	Sigma   float64     `json:"sigma,omitempty" toml:"sigma"`
	Epsilon float64     `json:"epsilon,omitempty" toml:"epsilon"`
	Cutoff  float64     `json:"cutoff,omitempty" toml:"cutoff"`
	Field   FieldConfig `json:"field,omitempty" toml:"field"`
}

// MoveConfig describes one move registered with the integrator.
type MoveConfig struct {
	// Name defaults to Type; names must be unique.
	Name string `json:"name,omitempty" toml:"name"`
	// Type is "cbmc", "reptation", "cbmc_translation" or "translate".
	Type      string  `json:"type" toml:"type"`
	Frequency float64 `json:"frequency,omitempty" toml:"frequency"`
	// Species restricts the move to chains of one species.
	Species         string  `json:"species,omitempty" toml:"species"`
	Trials          int     `json:"trials,omitempty" toml:"trials"`
	StartPolicy     string  `json:"start_policy,omitempty" toml:"start_policy"`
	Anchor          string  `json:"anchor,omitempty" toml:"anchor"`
	Selection       string  `json:"selection,omitempty" toml:"selection"`
	AnchorPrefactor float64 `json:"anchor_prefactor,omitempty" toml:"anchor_prefactor"`
	SkipVerify      bool    `json:"skip_verify,omitempty" toml:"skip_verify"`
	// MaxDisplacement is the half-width of a "translate" step.
	MaxDisplacement float64 `json:"max_displacement,omitempty" toml:"max_displacement"`
}

// SimulationConfig is the complete description of a run.
type SimulationConfig struct {
	Name        string  `json:"name" toml:"name"`
	Seed        int64   `json:"seed" toml:"seed"`
	Temperature float64 `json:"temperature" toml:"temperature"`
	Steps       int64   `json:"steps" toml:"steps"`
	ReportEvery int64   `json:"report_every,omitempty" toml:"report_every"`
	// Spacing is the edge of the grid cell each initial chain is placed in. Zero
	// derives it from the longest chain.
	Spacing   float64         `json:"spacing,omitempty" toml:"spacing"`
	Boundary  BoundaryConfig  `json:"boundary" toml:"boundary"`
	Potential PotentialConfig `json:"potential" toml:"potential"`
	Species   []SpeciesConfig `json:"species" toml:"species"`
	Moves     []MoveConfig    `json:"moves" toml:"moves"`
}

// Defaults for omitted species and move fields.
const (
	DefaultBondLength = 0.4
	DefaultBondAngle  = 109.47
	DefaultTrials     = 10
)

// ApplyDefaults fills omitted optional fields.
func (c *SimulationConfig) ApplyDefaults() {
	if c.Boundary.Type == "" {
		c.Boundary.Type = "periodic"
	}
	if c.Potential.Type == "" {
		c.Potential.Type = "none"
	}
	for i := range c.Species {
		sp := &c.Species[i]
		if sp.Geometry == "" {
			sp.Geometry = "rigid"
		}
		if sp.BondLength == 0 {
			sp.BondLength = DefaultBondLength
		}
		if sp.BondAngle == 0 {
			sp.BondAngle = DefaultBondAngle
		}
		if sp.TorsionMax == 0 {
			sp.TorsionMax = 180
		}
		if sp.Bend.Theta0 == 0 {
			sp.Bend.Theta0 = sp.BondAngle
		}
	}
	for i := range c.Moves {
		mv := &c.Moves[i]
		if mv.Name == "" {
			mv.Name = mv.Type
		}
		if mv.Frequency == 0 {
			mv.Frequency = 1
		}
		if mv.Trials == 0 {
			mv.Trials = DefaultTrials
		}
		if mv.StartPolicy == "" {
			mv.StartPolicy = StartInterior.String()
		}
		if mv.Anchor == "" {
			mv.Anchor = AnchorRandom.String()
		}
		if mv.Selection == "" {
			mv.Selection = SelectProportional.String()
		}
		if mv.AnchorPrefactor == 0 {
			mv.AnchorPrefactor = 1
		}
		if mv.Type == "translate" && mv.MaxDisplacement == 0 {
			mv.MaxDisplacement = DefaultMaxDisplacement
		}
	}
}

// DecodeSimulationConfig parses a configuration in the given format ("toml" or
// "json"), applies defaults and validates it.
func DecodeSimulationConfig(data []byte, format string) (SimulationConfig, error) {
	var cfg SimulationConfig
	switch format {
	case "toml":
		if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse toml config: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse json config: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format %q", format)
	}
	cfg.ApplyDefaults()
	if err := ValidateSimulationConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadSimulationConfig reads a configuration file. Files ending in .toml are
// decoded as TOML, everything else as JSON.
func LoadSimulationConfig(path string) (SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SimulationConfig{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	format := "json"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	return DecodeSimulationConfig(data, format)
}
