package molsim

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// MoleculeID is a unique identifier for a chain.
type MoleculeID string

// NewRandomID returns a random 16 hex digit identifier.
func NewRandomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Chain is an ordered sequence of bonded atom positions. Positions are stored
// unwrapped: consecutive atoms are always one bond apart without applying
// periodic images.
type Chain struct {
	ID        MoleculeID
	Species   string
	Geometry  ChainGeometry
	Positions []r3.Vec
}

// NewChain creates a chain with a random ID. The positions slice is copied.
func NewChain(species string, geometry ChainGeometry, positions []r3.Vec) *Chain {
	return &Chain{
		ID:        MoleculeID(NewRandomID()),
		Species:   species,
		Geometry:  geometry,
		Positions: append([]r3.Vec(nil), positions...),
	}
}

// Len returns the number of atoms.
func (c *Chain) Len() int { return len(c.Positions) }

// Validate checks the chain against its geometry.
func (c *Chain) Validate() error {
	if c.Geometry == nil {
		return fmt.Errorf("chain %s has no geometry: %w", c.ID, ErrGeometryViolation)
	}
	if err := c.Geometry.Validate(c.Positions); err != nil {
		return fmt.Errorf("chain %s: %w", c.ID, err)
	}
	return nil
}

// Translate moves every atom by delta.
func (c *Chain) Translate(delta r3.Vec) {
	for i := range c.Positions {
		c.Positions[i] = r3.Add(c.Positions[i], delta)
	}
}

// MoleculeSource picks the chain a move acts on.
type MoleculeSource interface {
	RandomMolecule(rng RandomSource) (*Chain, error)
}

// System is the set of chains sampled by the integrator, together with the box
// they live in.
type System struct {
	Boundary Boundary
	chains   []*Chain
	index    map[MoleculeID]*Chain
}

// NewSystem creates an empty system in the given boundary.
func NewSystem(boundary Boundary) *System {
	return &System{
		Boundary: boundary,
		chains:   make([]*Chain, 0),
		index:    make(map[MoleculeID]*Chain),
	}
}

// Add inserts chains into the system. Chains without an ID get a random one.
func (s *System) Add(chains ...*Chain) error {
	for _, c := range chains {
		if c.ID == "" {
			c.ID = MoleculeID(NewRandomID())
		}
		if _, exists := s.index[c.ID]; exists {
			return fmt.Errorf("duplicate molecule ID: %s", c.ID)
		}
		s.index[c.ID] = c
		s.chains = append(s.chains, c)
	}
	return nil
}

// Chains returns the chains in insertion order. The slice must not be modified.
func (s *System) Chains() []*Chain { return s.chains }

// Chain looks up a chain by ID.
func (s *System) Chain(id MoleculeID) (*Chain, bool) {
	c, ok := s.index[id]
	return c, ok
}

// RandomMolecule picks a chain uniformly.
func (s *System) RandomMolecule(rng RandomSource) (*Chain, error) {
	if len(s.chains) == 0 {
		return nil, ErrNoMolecules
	}
	return s.chains[rng.NextInt(len(s.chains))], nil
}

// AtomCount returns the total number of atoms in the system.
func (s *System) AtomCount() int {
	n := 0
	for _, c := range s.chains {
		n += c.Len()
	}
	return n
}

// SpeciesSource picks uniformly among the chains of one species.
type SpeciesSource struct {
	System  *System
	Species string
}

func (s SpeciesSource) RandomMolecule(rng RandomSource) (*Chain, error) {
	var n int
	for _, c := range s.System.chains {
		if c.Species == s.Species {
			n++
		}
	}
	if n == 0 {
		return nil, fmt.Errorf("species %s: %w", s.Species, ErrNoMolecules)
	}
	pick := rng.NextInt(n)
	for _, c := range s.System.chains {
		if c.Species != s.Species {
			continue
		}
		if pick == 0 {
			return c, nil
		}
		pick--
	}
	return nil, ErrNoMolecules
}

// BuildChains adds one chain of the given species per origin, in the
// conformation returned by InitialConformation. Chains are named species-0,
// species-1, ... after the chains of that species already present.
func (s *System) BuildChains(species string, geometry ChainGeometry, atoms int, origins []r3.Vec) error {
	offset := 0
	for _, c := range s.chains {
		if c.Species == species {
			offset++
		}
	}
	for i, origin := range origins {
		c := NewChain(species, geometry, InitialConformation(geometry, atoms, origin))
		c.ID = MoleculeID(fmt.Sprintf("%s-%d", species, offset+i))
		if err := s.Add(c); err != nil {
			return err
		}
	}
	return nil
}
