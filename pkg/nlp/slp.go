package nlp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	acceptRatio = 0.1
	expandRatio = 0.75
	// stationaryTol flags a linearised model that cannot reduce the merit at
	// all, whatever the constraint violation.
	stationaryTol = 1e-12
)

// Minimize searches for a local minimum of p starting from x0. The returned
// error is non-nil only when the problem itself is malformed; algorithmic
// failures are reported through Result.Status.
func Minimize(p Problem, x0 []float64, s Settings) (Result, error) {
	if err := p.validate(x0); err != nil {
		return Result{}, err
	}
	s.SetDefaults()

	x := append([]float64(nil), x0...)
	p.project(x)

	w := newWorkspace(p)
	scale := objectiveScale(p, x)
	radius := s.InitialRadius
	if radius <= 0 {
		radius = initialRadius(p, x)
	}
	merit := func(x []float64) float64 {
		return p.Objective(x)/scale + s.Penalty*p.Violation(x)
	}

	res := Result{Status: IterationLimit}
	for res.Iterations < s.MaxIterations {
		res.Iterations++
		w.linearize(p, x, scale)
		viol := w.violation()
		phi := w.f + s.Penalty*viol

		d, model, err := w.step(p, x, radius, s.Penalty)
		if err != nil {
			radius /= 4
			if radius < s.MinRadius {
				res.Status = Stalled
				break
			}
			continue
		}
		pred := phi - model
		if pred <= s.FunctionTolerance*(1+math.Abs(phi)) && viol <= s.ConstraintTolerance {
			res.Status = Converged
			break
		}
		if pred <= stationaryTol*(1+math.Abs(phi)) {
			res.Status = Infeasible
			if viol <= s.ConstraintTolerance {
				res.Status = Converged
			}
			break
		}

		xt := make([]float64, len(x))
		floats.AddTo(xt, x, d)
		p.project(xt)
		phiT := merit(xt)
		if phi-phiT < acceptRatio*pred {
			if xc, ok := w.correct(p, xt); ok {
				if phiC := merit(xc); phiC < phiT {
					xt, phiT = xc, phiC
				}
			}
		}

		ratio := (phi - phiT) / pred
		dn := floats.Norm(d, math.Inf(1))
		switch {
		case ratio < acceptRatio:
			radius = 0.5 * math.Min(radius, dn)
		case ratio > expandRatio && dn >= 0.99*radius:
			radius *= 2
		}
		if ratio >= acceptRatio {
			x = xt
		}
		if radius < s.MinRadius {
			res.Status = Stalled
			if p.Violation(x) <= s.ConstraintTolerance {
				res.Status = Converged
			}
			break
		}
	}

	res.X = x
	res.F = p.Objective(x)
	res.Violation = p.Violation(x)
	return res, nil
}

func objectiveScale(p Problem, x []float64) float64 {
	g := make([]float64, p.Dim)
	p.Gradient(g, x)
	if s := floats.Norm(g, math.Inf(1)); s > 1 {
		return s
	}
	return 1
}

// initialRadius spans half of the widest finite box edge.
func initialRadius(p Problem, x []float64) float64 {
	var r float64
	for i := range p.Lower {
		if w := p.Upper[i] - p.Lower[i]; !math.IsInf(w, 0) && w/2 > r {
			r = w / 2
		}
	}
	if r == 0 {
		r = 1 + floats.Norm(x, math.Inf(1))
	}
	return r
}
