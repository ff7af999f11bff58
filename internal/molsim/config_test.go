package molsim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hexaneTOML = `
name = "hexane"
seed = 7
temperature = 2.5
steps = 1000
report_every = 100

[boundary]
type = "periodic"
size = [20.0, 20.0, 20.0]

[potential]
type = "lennard_jones"
sigma = 0.39
epsilon = 0.1
cutoff = 1.2

[[species]]
name = "hexane"
count = 8
atoms = 6
torsion_min = 60.0

[[species]]
name = "butane"
count = 2
atoms = 4
geometry = "flexible"

  [species.bend]
  k = 50.0

  [species.torsion]
  c1 = 0.7
  c2 = -0.1
  c3 = 1.6

[[moves]]
type = "cbmc"
trials = 8
frequency = 2.0

[[moves]]
name = "slide"
type = "reptation"
species = "hexane"

[[moves]]
type = "cbmc_translation"
start_policy = "terminus"
anchor = "retain"
`

func TestDecodeSimulationConfig_TOML(t *testing.T) {
	cfg, err := DecodeSimulationConfig([]byte(hexaneTOML), "toml")
	require.NoError(t, err)

	assert.Equal(t, "hexane", cfg.Name)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 2.5, cfg.Temperature)
	assert.Equal(t, []float64{20, 20, 20}, cfg.Boundary.Size)
	assert.Equal(t, "lennard_jones", cfg.Potential.Type)

	require.Len(t, cfg.Species, 2)
	hex := cfg.Species[0]
	assert.Equal(t, "rigid", hex.Geometry)
	assert.Equal(t, DefaultBondLength, hex.BondLength)
	assert.Equal(t, DefaultBondAngle, hex.BondAngle)
	assert.Equal(t, 60.0, hex.TorsionMin)
	assert.Equal(t, 180.0, hex.TorsionMax)

	but := cfg.Species[1]
	assert.Equal(t, "flexible", but.Geometry)
	assert.Equal(t, 50.0, but.Bend.K)
	assert.Equal(t, DefaultBondAngle, but.Bend.Theta0)
	assert.Equal(t, 1.6, but.Torsion.C3)

	require.Len(t, cfg.Moves, 3)
	assert.Equal(t, "cbmc", cfg.Moves[0].Name)
	assert.Equal(t, 8, cfg.Moves[0].Trials)
	assert.Equal(t, 2.0, cfg.Moves[0].Frequency)
	assert.Equal(t, "slide", cfg.Moves[1].Name)
	assert.Equal(t, "hexane", cfg.Moves[1].Species)
	assert.Equal(t, DefaultTrials, cfg.Moves[2].Trials)
	assert.Equal(t, "terminus", cfg.Moves[2].StartPolicy)
	assert.Equal(t, "retain", cfg.Moves[2].Anchor)
	assert.Equal(t, "proportional", cfg.Moves[2].Selection)
	assert.Equal(t, 1.0, cfg.Moves[2].AnchorPrefactor)
}

func TestDecodeSimulationConfig_JSON(t *testing.T) {
	data := []byte(`{
		"temperature": 1,
		"boundary": {"type": "open", "size": [10, 10, 10]},
		"species": [{"name": "dimer", "count": 1, "atoms": 2}],
		"moves": [{"type": "cbmc"}]
	}`)
	cfg, err := DecodeSimulationConfig(data, "json")
	require.NoError(t, err)
	assert.Equal(t, "open", cfg.Boundary.Type)
	assert.Equal(t, "none", cfg.Potential.Type)
	assert.Equal(t, "interior", cfg.Moves[0].StartPolicy)
}

func TestDecodeSimulationConfig_Errors(t *testing.T) {
	_, err := DecodeSimulationConfig([]byte("{"), "json")
	assert.Error(t, err)
	_, err = DecodeSimulationConfig([]byte("name = "), "toml")
	assert.Error(t, err)
	_, err = DecodeSimulationConfig([]byte("{}"), "yaml")
	assert.Error(t, err)
}

func TestLoadSimulationConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hexane.toml")
	require.NoError(t, os.WriteFile(path, []byte(hexaneTOML), 0o644))

	cfg, err := LoadSimulationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "hexane", cfg.Name)

	_, err = LoadSimulationConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func validConfig() SimulationConfig {
	return SimulationConfig{
		Name:        "test",
		Seed:        3,
		Temperature: 1,
		Boundary:    BoundaryConfig{Type: "periodic", Size: []float64{12, 12, 12}},
		Potential:   PotentialConfig{Type: "hard_sphere", Sigma: 0.3},
		Species:     []SpeciesConfig{{Name: "x", Count: 4, Atoms: 5}},
		Moves: []MoveConfig{
			{Type: "cbmc"},
			{Type: "reptation"},
			{Type: "cbmc_translation", StartPolicy: "terminus"},
		},
	}
}

func TestValidateSimulationConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SimulationConfig)
		wantErr string
	}{
		{"valid", func(*SimulationConfig) {}, ""},
		{"temperature", func(c *SimulationConfig) { c.Temperature = 0 }, "temperature must be positive"},
		{"boundary type", func(c *SimulationConfig) { c.Boundary.Type = "slab" }, "unknown boundary type"},
		{"boundary size", func(c *SimulationConfig) { c.Boundary.Size = []float64{1, 2} }, "3 components"},
		{"sigma", func(c *SimulationConfig) { c.Potential.Sigma = 0 }, "hard_sphere sigma"},
		{"field", func(c *SimulationConfig) { c.Potential = PotentialConfig{Type: "harmonic_field"} }, "nonzero field k"},
		{"no species", func(c *SimulationConfig) { c.Species = nil }, "at least one species"},
		{"duplicate species", func(c *SimulationConfig) { c.Species = append(c.Species, c.Species[0]) }, "duplicate species"},
		{"atoms", func(c *SimulationConfig) { c.Species[0].Atoms = 0 }, "atoms must be at least 1"},
		{"angle", func(c *SimulationConfig) { c.Species[0].BondAngle = 180 }, "bond_angle"},
		{"window", func(c *SimulationConfig) { c.Species[0].TorsionMin = 120; c.Species[0].TorsionMax = 90 }, "torsion window"},
		{"no moves", func(c *SimulationConfig) { c.Moves = nil }, "at least one move"},
		{"duplicate move", func(c *SimulationConfig) { c.Moves = append(c.Moves, MoveConfig{Type: "cbmc"}) }, "duplicate move name"},
		{"move type", func(c *SimulationConfig) { c.Moves[0].Type = "swap" }, "unknown type"},
		{"move species", func(c *SimulationConfig) { c.Moves[0].Species = "y" }, "unknown species"},
		{"start policy", func(c *SimulationConfig) { c.Moves[0].StartPolicy = "middle" }, "unknown start policy"},
		{"selection", func(c *SimulationConfig) { c.Moves[0].Selection = "best" }, "selection"},
		{"prefactor", func(c *SimulationConfig) { c.Moves[0].AnchorPrefactor = -1 }, "anchor_prefactor"},
		{"name with separator", func(c *SimulationConfig) { c.Name = "../../tmp/x" }, "path separators"},
		{"name with backslash", func(c *SimulationConfig) { c.Name = `a\b` }, "path separators"},
		{"monomers with reptation", func(c *SimulationConfig) {
			c.Species[0].Atoms = 1
			c.Moves = []MoveConfig{{Type: "reptation"}}
		}, "move reptation needs chains of at least 2 atoms, species x has 1"},
		{"monomers with interior cbmc", func(c *SimulationConfig) {
			c.Species[0].Atoms = 1
			c.Moves = []MoveConfig{{Type: "cbmc"}}
		}, "move cbmc needs chains of at least 2 atoms"},
		{"monomers with interior combined move", func(c *SimulationConfig) {
			c.Species[0].Atoms = 1
			c.Moves = []MoveConfig{{Type: "cbmc_translation"}}
		}, "move cbmc_translation needs chains of at least 2 atoms"},
		{"monomers with terminus cbmc", func(c *SimulationConfig) {
			c.Species[0].Atoms = 1
			c.Moves = []MoveConfig{{Type: "cbmc", StartPolicy: "terminus"}}
		}, ""},
		{"monomers outside the move species", func(c *SimulationConfig) {
			c.Species = append(c.Species, SpeciesConfig{Name: "ion", Count: 2, Atoms: 1})
			c.Moves = []MoveConfig{{Type: "reptation", Species: "x"}, {Type: "cbmc", Species: "ion", StartPolicy: "terminus"}}
		}, ""},
		{"monomers with translate", func(c *SimulationConfig) {
			c.Species[0].Atoms = 1
			c.Moves = []MoveConfig{{Type: "translate"}}
		}, ""},
		{"max displacement", func(c *SimulationConfig) { c.Moves = []MoveConfig{{Type: "translate", MaxDisplacement: -1}} }, "max_displacement must be positive"},
		{"monomers reached by an unrestricted move", func(c *SimulationConfig) {
			c.Species = append(c.Species, SpeciesConfig{Name: "ion", Count: 2, Atoms: 1})
			c.Moves = []MoveConfig{{Type: "reptation"}}
		}, "species ion has 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			cfg.ApplyDefaults()
			err := ValidateSimulationConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.wantErr)
		})
	}
}

func TestValidationError_CollectsAllIssues(t *testing.T) {
	cfg := validConfig()
	cfg.Temperature = -1
	cfg.Species[0].Count = 0
	cfg.Moves[0].Frequency = -2
	cfg.ApplyDefaults()

	err := ValidateSimulationConfig(cfg)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 3)
	assert.Contains(t, verr.Error(), "config validation errors: ")
}
