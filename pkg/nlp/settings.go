package nlp

// Settings tune Minimize. Zero values are replaced by DefaultSettings.
type Settings struct {
	// MaxIterations caps the number of linearisations.
	MaxIterations int `json:"max_iterations"`
	// FunctionTolerance is the relative merit reduction below which a
	// feasible iterate is accepted as optimal.
	FunctionTolerance float64 `json:"function_tolerance"`
	// ConstraintTolerance is the largest l1 violation accepted as feasible.
	ConstraintTolerance float64 `json:"constraint_tolerance"`
	// InitialRadius is the first trust-region radius. Zero derives it from
	// the box.
	InitialRadius float64 `json:"initial_radius"`
	// MinRadius stops the solver when the trust region collapses.
	MinRadius float64 `json:"min_radius"`
	// Penalty weights the constraint violation against the scaled objective.
	Penalty float64 `json:"penalty"`
}

// DefaultSettings returns settings suited to small, well scaled problems.
func DefaultSettings() Settings {
	return Settings{
		MaxIterations:       100,
		FunctionTolerance:   1e-6,
		ConstraintTolerance: 1e-6,
		MinRadius:           1e-9,
		Penalty:             100,
	}
}

// SetDefaults fills unset fields.
func (s *Settings) SetDefaults() {
	d := DefaultSettings()
	if s.MaxIterations <= 0 {
		s.MaxIterations = d.MaxIterations
	}
	if s.FunctionTolerance <= 0 {
		s.FunctionTolerance = d.FunctionTolerance
	}
	if s.ConstraintTolerance <= 0 {
		s.ConstraintTolerance = d.ConstraintTolerance
	}
	if s.MinRadius <= 0 {
		s.MinRadius = d.MinRadius
	}
	if s.Penalty <= 0 {
		s.Penalty = d.Penalty
	}
}
