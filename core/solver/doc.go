// Package solver defines the Backend abstraction the scheduler drives and
// ships the built-in pseudo-boolean backend.
//
// A Backend holds boolean variables and linear constraints
// lo <= Σ coef·x <= hi. Solve searches for an assignment within a wall-clock
// budget and, when an objective is set, minimises it. The built-in backend
// combines unit propagation over linear constraints, depth-first branching
// and branch and bound on the objective. Several workers with different
// seeds can race on the same model; an LP relaxation solved with gonum
// orders values and detects infeasibility early on small models.
package solver
