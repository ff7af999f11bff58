package molsim

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ChainSnapshot is the stored state of one chain.
type ChainSnapshot struct {
	ID        MoleculeID   `json:"id"`
	Species   string       `json:"species"`
	Positions [][3]float64 `json:"positions"`
}

// Snapshot represents a point-in-time capture of a simulation: the step count
// and the unwrapped positions of every chain.
type Snapshot struct {
	SimulationID string          `json:"simulation_id"`
	Time         int64           `json:"time"`
	Chains       []ChainSnapshot `json:"chains"`
}

// TakeSnapshot copies the positions of every chain in system.
func TakeSnapshot(simulationID string, time int64, system *System) Snapshot {
	snap := Snapshot{
		SimulationID: simulationID,
		Time:         time,
		Chains:       make([]ChainSnapshot, 0, len(system.Chains())),
	}
	for _, c := range system.Chains() {
		cs := ChainSnapshot{ID: c.ID, Species: c.Species, Positions: make([][3]float64, c.Len())}
		for i, p := range c.Positions {
			cs.Positions[i] = [3]float64{p.X, p.Y, p.Z}
		}
		snap.Chains = append(snap.Chains, cs)
	}
	return snap
}

// ValidateSnapshot performs validation checks on a snapshot.
// It verifies that:
//   - All chain IDs are non-empty and unique
//   - Every chain exists in system with the same species and atom count (if
//     system is not nil)
func ValidateSnapshot(snapshot Snapshot, system *System) error {
	seenIDs := make(map[MoleculeID]struct{})

	for i, cs := range snapshot.Chains {
		if cs.ID == "" {
			return fmt.Errorf("chain at index %d has empty ID", i)
		}
		if _, exists := seenIDs[cs.ID]; exists {
			return fmt.Errorf("duplicate chain ID: %s", cs.ID)
		}
		seenIDs[cs.ID] = struct{}{}

		if system == nil {
			continue
		}
		c, ok := system.Chain(cs.ID)
		if !ok {
			return fmt.Errorf("chain %s not found in system", cs.ID)
		}
		if c.Species != cs.Species {
			return fmt.Errorf("chain %s has species %s, system has %s", cs.ID, cs.Species, c.Species)
		}
		if c.Len() != len(cs.Positions) {
			return fmt.Errorf("chain %s has %d atoms, system has %d", cs.ID, len(cs.Positions), c.Len())
		}
	}
	return nil
}

// ApplySnapshot overwrites the positions of the chains named in snapshot. The
// snapshot is validated first and every restored chain must satisfy its
// geometry; on error system is left unchanged.
func ApplySnapshot(snapshot Snapshot, system *System) error {
	if err := ValidateSnapshot(snapshot, system); err != nil {
		return err
	}
	restored := make([][]r3.Vec, len(snapshot.Chains))
	for i, cs := range snapshot.Chains {
		c, _ := system.Chain(cs.ID)
		pos := make([]r3.Vec, len(cs.Positions))
		for j, p := range cs.Positions {
			pos[j] = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
		}
		if err := c.Geometry.Validate(pos); err != nil {
			return fmt.Errorf("snapshot chain %s: %w", cs.ID, err)
		}
		restored[i] = pos
	}
	for i, cs := range snapshot.Chains {
		c, _ := system.Chain(cs.ID)
		copy(c.Positions, restored[i])
	}
	return nil
}

// EncodeSnapshotJSON encodes a snapshot to JSON format.
func EncodeSnapshotJSON(snapshot Snapshot) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshotJSON decodes a snapshot from JSON format.
func DecodeSnapshotJSON(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}
