package export

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/kilianp07/resident-scheduler/core/model"
	"github.com/kilianp07/resident-scheduler/core/scheduler"
)

// Report is the structured outcome of a run, written alongside or instead
// of a schedule.
type Report struct {
	RunID              string            `json:"run_id"`
	Block              int               `json:"block"`
	Status             string            `json:"status"`
	Proven             bool              `json:"proven"`
	Objective          int               `json:"objective"`
	Assignments        int               `json:"assignments"`
	DurationMS         int64             `json:"duration_ms"`
	BindingConstraints []string          `json:"binding_constraints"`
	Violations         []model.Violation `json:"violations"`
	SoftViolations     []string          `json:"soft_violations,omitempty"`
	Counts             map[string]int    `json:"constraint_counts,omitempty"`
	Required           map[string]int    `json:"required_shifts,omitempty"`
	Error              string            `json:"error,omitempty"`
}

// NewReport summarises a Solve outcome. res may be nil when the problem
// could not be built.
func NewReport(res *scheduler.Result, err error) Report {
	rep := Report{Status: scheduler.StateError.String(), BindingConstraints: []string{}, Violations: []model.Violation{}}
	if res != nil {
		rep.RunID = res.RunID
		rep.Block = res.Block
		rep.Status = res.Status.String()
		rep.Proven = res.Proven
		rep.Objective = res.Objective
		rep.DurationMS = res.Duration.Milliseconds()
		rep.SoftViolations = res.SoftViolations
		rep.Counts = res.Counts
		rep.Required = res.Required
		if res.Schedule != nil {
			rep.Assignments = res.Schedule.Len()
		}
		if res.Binding != nil {
			rep.BindingConstraints = res.Binding
		}
		if res.Violations != nil {
			rep.Violations = res.Violations
		}
	}
	if err != nil {
		rep.Error = err.Error()
		var verr *model.ValidationError
		if errors.As(err, &verr) && len(rep.Violations) == 0 && verr.Violations != nil {
			rep.Violations = verr.Violations
		}
	}
	return rep
}

// ValidationReport describes an audit of an externally supplied schedule.
type ValidationReport struct {
	Block      int               `json:"block"`
	Valid      bool              `json:"valid"`
	Checked    time.Time         `json:"checked"`
	Violations []model.Violation `json:"violations"`
}

// WriteReport writes v as indented JSON.
func WriteReport(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
