package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/resident-scheduler/core/metrics"
	"github.com/kilianp07/resident-scheduler/core/model"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordSolve(coremetrics.SolveEvent{Status: "optimal", Duration: time.Second, Assignments: 30, Nodes: 120}))
	require.NoError(t, sink.RecordSolve(coremetrics.SolveEvent{Status: "infeasible", Binding: []string{"supervision"}}))
	require.NoError(t, sink.RecordConstraintCounts(coremetrics.ConstraintCountEvent{Counts: map[string]int{"buddy": 4, "time-off": 9}}))
	require.NoError(t, sink.RecordStateTransition(coremetrics.StateEvent{From: "idle", To: "built"}))
	require.NoError(t, sink.RecordViolations(coremetrics.ViolationEvent{Violations: []model.Violation{{Rule: "rest-transition"}, {Rule: "rest-transition"}}}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.solves.WithLabelValues("optimal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.binding.WithLabelValues("supervision")))
	assert.Equal(t, 30.0, testutil.ToFloat64(sink.assignments))
	assert.Equal(t, 9.0, testutil.ToFloat64(sink.constraints.WithLabelValues("time-off")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.transitions.WithLabelValues("idle", "built")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.violations.WithLabelValues("rest-transition")))
}

func TestPromSinkReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, second.RecordSolve(coremetrics.SolveEvent{Status: "optimal"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.solves.WithLabelValues("optimal")))
}

func TestPromSinkHTTPExposure(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, sink.RecordSolve(coremetrics.SolveEvent{Status: "timed_out"}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), `scheduler_solves_total{status="timed_out"} 1`)
}

func TestRegisteredSinks(t *testing.T) {
	s, err := coremetrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, s)
}
