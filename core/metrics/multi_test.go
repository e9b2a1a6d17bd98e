package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSink struct {
	solves int
	counts int
}

func (r *recordSink) RecordSolve(SolveEvent) error {
	r.solves++
	return nil
}

func (r *recordSink) RecordConstraintCounts(ConstraintCountEvent) error {
	r.counts++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks and optional
// recorders are only used when implemented.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, NopSink{})
	require.NoError(t, m.RecordSolve(SolveEvent{Block: 1}))
	require.NoError(t, m.RecordConstraintCounts(ConstraintCountEvent{Counts: map[string]int{"buddy": 2}}))
	require.NoError(t, m.RecordStateTransition(StateEvent{From: "idle", To: "built"}))
	assert.Equal(t, 1, s1.solves)
	assert.Equal(t, 1, s2.counts)
}

type closingSink struct {
	NopSink
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSinkClose(t *testing.T) {
	c := &closingSink{}
	m := NewMultiSink(NopSink{}, c)
	m.Close()
	assert.True(t, c.closed)
	require.NoError(t, m.RecordViolations(ViolationEvent{}))
}
