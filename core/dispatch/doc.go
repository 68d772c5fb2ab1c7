// Package dispatch solves the single-period hydrothermal dispatch: the
// cheapest split of demand between the hydro and the thermal unit that covers
// quadratic transmission losses without exceeding the line limit.
//
// Solver is stateless. When the nonlinear solve fails it keeps the seed
// dispatch and flags the result as approximate instead of returning an error.
package dispatch
