// Package scheduler runs the annual pass: the twelve periods of the horizon
// dispatched in order for a fixed vector of water values, carrying reservoir
// storage from each period into the next.
//
// Periods cannot be reordered or solved in parallel within a pass since the
// hydro ceiling of a period depends on the storage left by the previous one.
// Independent passes share nothing and may run concurrently.
package scheduler
