package nlp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	simplexTol = 1e-9
	// fixTol is the box width below which a step component is pinned.
	fixTol = 1e-12
)

// workspace holds the linearisation of a Problem around one iterate. The
// objective and its gradient are divided by the scale given to linearize.
type workspace struct {
	f    float64
	g    []float64
	h    []float64
	hJac *mat.Dense
	c    []float64
	cJac *mat.Dense
}

func newWorkspace(p Problem) *workspace {
	w := &workspace{
		g: make([]float64, p.Dim),
		h: make([]float64, len(p.Equality)),
		c: make([]float64, len(p.Inequality)),
	}
	if len(p.Equality) > 0 {
		w.hJac = mat.NewDense(len(p.Equality), p.Dim, nil)
	}
	if len(p.Inequality) > 0 {
		w.cJac = mat.NewDense(len(p.Inequality), p.Dim, nil)
	}
	return w
}

func (w *workspace) linearize(p Problem, x []float64, scale float64) {
	w.f = p.Objective(x) / scale
	p.Gradient(w.g, x)
	floats.Scale(1/scale, w.g)
	row := make([]float64, p.Dim)
	for j, h := range p.Equality {
		w.h[j] = h.Func(x)
		h.Grad(row, x)
		w.hJac.SetRow(j, row)
	}
	for i, c := range p.Inequality {
		w.c[i] = c.Func(x)
		c.Grad(row, x)
		w.cJac.SetRow(i, row)
	}
}

func (w *workspace) violation() float64 {
	var v float64
	for _, h := range w.h {
		v += math.Abs(h)
	}
	for _, c := range w.c {
		if c < 0 {
			v -= c
		}
	}
	return v
}

// model evaluates the linearised merit function at step d.
func (w *workspace) model(d []float64, penalty float64) float64 {
	m := w.f + floats.Dot(w.g, d)
	var v float64
	for j := range w.h {
		v += math.Abs(w.h[j] + floats.Dot(w.hJac.RawRowView(j), d))
	}
	for i := range w.c {
		if lin := w.c[i] + floats.Dot(w.cJac.RawRowView(i), d); lin < 0 {
			v -= lin
		}
	}
	return m + penalty*v
}

// step solves the elastic LP subproblem
//
//	minimise   gᵀd + penalty·(Σ(e⁺+e⁻) + Σs)
//	subject to h + J_h d + e⁺ − e⁻ = 0
//	           c + J_c d + s ≥ 0
//	           max(lower−x, −radius) ≤ d ≤ min(upper−x, radius)
//	           e⁺, e⁻, s ≥ 0
//
// which is always feasible and bounded. It returns the step and the model
// merit it achieves.
//
// The LP is built in standard form over d = lo + y with 0 ≤ y ≤ hi − lo.
// Components whose box is narrower than fixTol stay at lo and are left out.
// Every row gets its own slack or elastic column with a +1 entry and a
// non-negative right-hand side, so that column set is a feasible starting
// basis and the simplex needs no phase one.
func (w *workspace) step(p Problem, x []float64, radius, penalty float64) (d []float64, model float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, model, err = nil, 0, fmt.Errorf("nlp: subproblem: %v", r)
		}
	}()

	n, me, mi := p.Dim, len(w.h), len(w.c)
	lo := make([]float64, n)
	hi := make([]float64, n)
	var free []int
	for k := 0; k < n; k++ {
		lo[k] = math.Max(p.Lower[k]-x[k], -radius)
		hi[k] = math.Max(math.Min(p.Upper[k]-x[k], radius), lo[k])
		if hi[k]-lo[k] > fixTol {
			free = append(free, k)
		}
	}
	d = append([]float64(nil), lo...)
	if len(free) == 0 {
		return d, w.model(d, penalty), nil
	}

	// Columns: y, bound slacks, (e⁺, e⁻) per equality, (s, surplus) per inequality.
	nf := len(free)
	rows := nf + me + mi
	cols := 2*nf + 2*me + 2*mi
	a := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	cost := make([]float64, cols)
	basis := make([]int, rows)

	for i, k := range free {
		cost[i] = w.g[k]
		a.Set(i, i, 1)
		a.Set(i, nf+i, 1)
		b[i] = hi[k] - lo[k]
		basis[i] = nf + i
	}
	elastic := func(r int, jac []float64, rhs float64, pos, neg int) {
		sign := 1.0
		basis[r] = pos
		if rhs < 0 {
			sign = -1
			basis[r] = neg
		}
		for i, k := range free {
			a.Set(r, i, sign*jac[k])
		}
		a.Set(r, pos, sign)
		a.Set(r, neg, -sign)
		b[r] = sign * rhs
	}
	for j := 0; j < me; j++ {
		pos := 2*nf + 2*j
		cost[pos], cost[pos+1] = penalty, penalty
		jac := w.hJac.RawRowView(j)
		elastic(nf+j, jac, -w.h[j]-floats.Dot(jac, lo), pos, pos+1)
	}
	for i := 0; i < mi; i++ {
		pos := 2*nf + 2*me + 2*i
		cost[pos] = penalty
		jac := w.cJac.RawRowView(i)
		elastic(nf+me+i, jac, -w.c[i]-floats.Dot(jac, lo), pos, pos+1)
	}

	_, sol, err := lp.Simplex(cost, a, b, simplexTol, basis)
	if err != nil {
		return nil, 0, fmt.Errorf("nlp: subproblem: %w", err)
	}
	for i, k := range free {
		// Keep the step inside the box despite simplex round-off.
		d[k] = math.Max(math.Min(lo[k]+sol[i], hi[k]), lo[k])
	}
	return d, w.model(d, penalty), nil
}

// correct computes a second-order correction from trial point xt: the
// minimum-norm move, restricted to variables not pinned at a bound, that
// cancels the equality residuals at xt under the current Jacobian.
func (w *workspace) correct(p Problem, xt []float64) ([]float64, bool) {
	me, n := len(p.Equality), p.Dim
	if me == 0 {
		return nil, false
	}
	jac := mat.NewDense(me, n, nil)
	res := mat.NewVecDense(me, nil)
	free := 0
	for k := 0; k < n; k++ {
		if xt[k] <= p.Lower[k] || xt[k] >= p.Upper[k] {
			continue
		}
		free++
		for j := 0; j < me; j++ {
			jac.Set(j, k, w.hJac.At(j, k))
		}
	}
	if free == 0 {
		return nil, false
	}
	for j, h := range p.Equality {
		res.SetVec(j, -h.Func(xt))
	}
	var dc mat.VecDense
	if err := dc.SolveVec(jac, res); err != nil {
		return nil, false
	}
	xc := make([]float64, n)
	for k := range xc {
		v := dc.AtVec(k)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		xc[k] = xt[k] + v
	}
	p.project(xc)
	return xc, true
}
