// Package validate re-checks a finished schedule against every enabled hard
// rule without involving a solver. It is run on solver output before a
// schedule is returned and on schedules loaded from files.
package validate
