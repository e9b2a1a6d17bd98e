package runlog

import (
	"context"
	"time"
)

// Record captures one scheduling run and its outcome.
type Record struct {
	RunID       string         `json:"run_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Block       int            `json:"block"`
	Status      string         `json:"status"`
	DurationMS  int64          `json:"duration_ms"`
	Objective   int            `json:"objective"`
	Proven      bool           `json:"proven"`
	Assignments int            `json:"assignments"`
	Binding     []string       `json:"binding,omitempty"`
	Error       string         `json:"error,omitempty"`
	Counts      map[string]int `json:"counts,omitempty"`
	Trace       []string       `json:"trace,omitempty"`
}

// Query defines filters for retrieving records. Zero fields match everything.
type Query struct {
	Start  time.Time
	End    time.Time
	Block  int
	Status string
	RunID  string
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

func (q Query) matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Block != 0 && r.Block != q.Block {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	return true
}
