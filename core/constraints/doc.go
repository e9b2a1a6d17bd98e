// Package constraints turns the domain model of one block into a declarative
// list of linear constraints over boolean assignment variables
// x[resident, date, kind].
//
// Every rule category is a pure function of the problem and the options so
// each can be built, toggled and tested on its own. Build concatenates the
// enabled categories and rejects structurally impossible input before any
// solver is involved.
package constraints
