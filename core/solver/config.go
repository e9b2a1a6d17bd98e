package solver

import "fmt"

// Config tunes the built-in search backend.
type Config struct {
	// Workers is the number of concurrent searches. Worker 0 starts in
	// variable order; the others randomise their branching order.
	Workers int   `json:"workers" yaml:"workers"`
	Seed    int64 `json:"seed" yaml:"seed"`
	// NodeLimit stops each worker after that many nodes; zero means none.
	NodeLimit         int64 `json:"node_limit" yaml:"node_limit"`
	DisableRelaxation bool  `json:"disable_relaxation" yaml:"disable_relaxation"`
	// RelaxMaxVars and RelaxMaxCells skip the LP relaxation on larger
	// models. Cells counts the dense standard-form tableau, slacks included.
	RelaxMaxVars  int `json:"relax_max_vars" yaml:"relax_max_vars"`
	RelaxMaxCells int `json:"relax_max_cells" yaml:"relax_max_cells"`
	// RestartBase is the node budget unit of the Luby restart sequence.
	// Each restart reshuffles the branching order.
	RestartBase     int64 `json:"restart_base" yaml:"restart_base"`
	DisableRestarts bool  `json:"disable_restarts" yaml:"disable_restarts"`
}

// DefaultConfig returns a single worker with Luby restarts.
func DefaultConfig() Config {
	return Config{Workers: 1, Seed: 1, RelaxMaxVars: 300, RelaxMaxCells: 100_000, RestartBase: 512}
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Workers == 0 {
		c.Workers = d.Workers
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	if c.RelaxMaxVars == 0 {
		c.RelaxMaxVars = d.RelaxMaxVars
	}
	if c.RelaxMaxCells == 0 {
		c.RelaxMaxCells = d.RelaxMaxCells
	}
	if c.RestartBase == 0 {
		c.RestartBase = d.RestartBase
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Workers < 1:
		return fmt.Errorf("solver workers must be at least 1, got %d", c.Workers)
	case c.NodeLimit < 0:
		return fmt.Errorf("solver node_limit must not be negative")
	case c.RelaxMaxVars < 0 || c.RelaxMaxCells < 0:
		return fmt.Errorf("solver relaxation limits must not be negative")
	case c.RestartBase < 0:
		return fmt.Errorf("solver restart_base must not be negative")
	}
	return nil
}
