package metrics

// Package metrics defines the sinks that record scheduling runs. Sinks like
// PromSink and InfluxSink record solve outcomes, constraint counts and state
// transitions and can be combined with NewMultiSink. The factory helpers
// return a MultiSink automatically when multiple sinks are configured.
