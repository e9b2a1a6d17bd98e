package metrics

// MultiSink fans solve events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolve forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolve(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordConstraintCounts forwards counts to sinks that support them.
func (m *MultiSink) RecordConstraintCounts(ev ConstraintCountEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ConstraintCountRecorder); ok {
			if err := rec.RecordConstraintCounts(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordStateTransition forwards state changes.
func (m *MultiSink) RecordStateTransition(ev StateEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(StateRecorder); ok {
			if err := rec.RecordStateTransition(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordViolations forwards validation results.
func (m *MultiSink) RecordViolations(ev ViolationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ViolationRecorder); ok {
			if err := rec.RecordViolations(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink holding a connection.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
