// Package runlog keeps an audit trail of scheduling runs: when each block
// was solved, with which outcome and how long it took. Records can be
// stored in a JSONL file, a size-rotated JSONL file or SQLite.
package runlog
