package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/resident-scheduler/core/constraints"
	"github.com/kilianp07/resident-scheduler/infra/roster"
)

// Expectation lists what a scenario must produce.
type Expectation struct {
	Status string `yaml:"status"`
	// Binding is checked only for infeasible scenarios.
	Binding     []string `yaml:"binding"`
	Assignments *int     `yaml:"assignments"`
	// CoverEverySlot requires every slot to reach its minimum staffing.
	CoverEverySlot bool `yaml:"cover_every_slot"`
	// Required maps resident IDs to their expected required shift count.
	Required map[string]int `yaml:"required"`
	// Unassigned lists residents that must not work at all.
	Unassigned []string `yaml:"unassigned"`
	// Valid re-checks the schedule against every hard rule.
	Valid bool `yaml:"valid"`
	// MaxSeconds bounds the wall time of the solve when positive.
	MaxSeconds float64 `yaml:"max_seconds"`
}

// Scenario is one end-to-end fixture: a roster, scheduler overrides and the
// expected outcome.
type Scenario struct {
	Name              string              `yaml:"name"`
	TimeBudgetSeconds float64             `yaml:"time_budget_seconds"`
	Constraints       constraints.Options `yaml:"constraints"`
	Roster            roster.File         `yaml:"roster"`
	Expected          Expectation         `yaml:"expected"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	if err := sc.Roster.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sc, nil
}

// Problem builds the scheduling problem. Fixture blocks may be short.
func (sc *Scenario) Problem() (*constraints.Problem, error) {
	return sc.Roster.Problem(roster.Options{AllowShortBlocks: true})
}
