// Package scheduler runs one scheduling session per block: it builds the
// constraint set, hands it to a solver backend within a time budget, turns
// the solution back into a schedule and checks it with the validator.
//
// Each call to Solve owns its backend and variable map, so a Scheduler may be
// shared across goroutines solving different blocks.
package scheduler
