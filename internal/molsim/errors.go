package molsim

import "errors"

// Sentinel errors. Callers branch on them with errors.Is; implementations attach
// context with %w.
var (
	// ErrGeometryViolation reports a chain whose bond lengths, bond angles or
	// torsions do not satisfy its geometry within tolerance.
	ErrGeometryViolation = errors.New("molsim: geometry violation")

	// ErrInvalidWeight reports a NaN, negative or infinite Boltzmann factor. It
	// always indicates a modeling bug and aborts the run.
	ErrInvalidWeight = errors.New("molsim: invalid weight")

	// ErrPlacementExhausted reports that rejection sampling of a bonded position
	// did not produce an accepted direction within the configured attempts.
	ErrPlacementExhausted = errors.New("molsim: placement attempts exhausted")

	// ErrCorruptState reports an accepted configuration that overlaps or breaks
	// geometry outside any trial context.
	ErrCorruptState = errors.New("molsim: corrupt state")

	// ErrNoMolecules is returned when a move is attempted on an empty system.
	ErrNoMolecules = errors.New("molsim: no molecules")

	// ErrChainTooShort is returned when a move needs more atoms than the chain has.
	ErrChainTooShort = errors.New("molsim: chain too short")
)
