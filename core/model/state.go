package model

// State is the lifecycle of a water-value iteration.
type State int

const (
	StateIterating State = iota
	StateConverged
	StateExhausted
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIterating:
		return "ITERATING"
	case StateConverged:
		return "CONVERGED"
	case StateExhausted:
		return "EXHAUSTED"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further iteration will happen.
func (s State) Terminal() bool { return s == StateConverged || s == StateExhausted }
