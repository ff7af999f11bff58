package molsim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Boltzmann converts an external energy into prefactor*exp(-beta*u). Infinite
// energy (overlap) gives 0; NaN or -Inf energies are modeling bugs.
func Boltzmann(beta, u, prefactor float64) (float64, error) {
	switch {
	case math.IsNaN(u) || math.IsInf(u, -1):
		return 0, fmt.Errorf("energy %g: %w", u, ErrInvalidWeight)
	case math.IsInf(u, 1):
		return 0, nil
	}
	w := prefactor * math.Exp(-beta*u)
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0, fmt.Errorf("weight %g for energy %g: %w", w, u, ErrInvalidWeight)
	}
	return w, nil
}

// RosenbluthAccumulator keeps the running product of per-step weight sums for
// one walk along the chain.
type RosenbluthAccumulator struct {
	Beta            float64
	Energy          EnergyEvaluator
	AnchorPrefactor float64

	weight  float64
	dead    bool
	weights []float64
}

// Reset starts a new walk.
func (a *RosenbluthAccumulator) Reset() {
	a.weight = 1
	a.dead = false
}

// Weight returns the accumulated Rosenbluth factor, 0 once any step summed to 0.
func (a *RosenbluthAccumulator) Weight() float64 {
	if a.dead {
		return 0
	}
	return a.weight
}

// Dead reports whether a step has produced a zero weight sum.
func (a *RosenbluthAccumulator) Dead() bool { return a.dead }

// Evaluate fills the Weight and Valid fields of trials for an atom of mol and
// returns their sum. The anchor prefactor multiplies the weights only when
// anchor is set.
func (a *RosenbluthAccumulator) Evaluate(mol *Chain, trials []GrowthTrial, anchor bool) (float64, error) {
	prefactor := 1.0
	if anchor && a.AnchorPrefactor > 0 {
		prefactor = a.AnchorPrefactor
	}
	a.weights = a.weights[:0]
	for j := range trials {
		w, err := Boltzmann(a.Beta, a.Energy.AtomEnergy(mol, trials[j].Position), prefactor)
		if err != nil {
			return 0, fmt.Errorf("trial %d: %w", j, err)
		}
		trials[j].Weight = w
		trials[j].Valid = w > 0
		a.weights = append(a.weights, w)
	}
	return floats.Sum(a.weights), nil
}

// Accumulate multiplies the running weight by one step's sum. A zero sum kills
// the walk.
func (a *RosenbluthAccumulator) Accumulate(sumW float64) error {
	if math.IsNaN(sumW) || sumW < 0 {
		return fmt.Errorf("weight sum %g: %w", sumW, ErrInvalidWeight)
	}
	if sumW == 0 {
		a.dead = true
		return nil
	}
	a.weight *= sumW
	if math.IsInf(a.weight, 0) {
		return fmt.Errorf("rosenbluth factor overflow: %w", ErrInvalidWeight)
	}
	return nil
}

// SelectionPolicy decides which trial of a step is committed to the chain.
type SelectionPolicy int

const (
	// SelectProportional is roulette-wheel selection with probability w_j/sum(w).
	// It is the only policy that satisfies detailed balance.
	SelectProportional SelectionPolicy = iota
	// SelectMaxWeight always commits the highest-weight trial. Approximate: it
	// breaks detailed balance and must not be used for production sampling.
	SelectMaxWeight
)

func (p SelectionPolicy) String() string {
	switch p {
	case SelectProportional:
		return "proportional"
	case SelectMaxWeight:
		return "max_weight"
	default:
		return "unknown"
	}
}

// ParseSelectionPolicy maps "proportional" or "max_weight" to a policy.
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	switch s {
	case "proportional":
		return SelectProportional, nil
	case "max_weight":
		return SelectMaxWeight, nil
	}
	return 0, fmt.Errorf("unknown selection policy: %s", s)
}

// selectTrial picks a trial with nonzero weight. sumW must be positive.
func selectTrial(rng RandomSource, trials []GrowthTrial, sumW float64, policy SelectionPolicy) int {
	if policy == SelectMaxWeight {
		best := 0
		for j := range trials {
			if trials[j].Weight > trials[best].Weight {
				best = j
			}
		}
		return best
	}
	r := rng.NextUniform() * sumW
	last := -1
	var cum float64
	for j := range trials {
		if !trials[j].Valid {
			continue
		}
		cum += trials[j].Weight
		last = j
		if r < cum {
			return j
		}
	}
	// r can reach sumW through rounding
	return last
}
