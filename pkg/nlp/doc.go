// Package nlp minimises small smooth nonlinear programs with equality,
// inequality and box constraints.
//
// The method is sequential linear programming with a trust region and an
// elastic l1 merit function. Each step linearises the constraints around the
// current iterate and solves the resulting LP with gonum's simplex. Rejected
// steps get a second-order correction before the trust region is shrunk.
// Iterates never leave the box.
package nlp
