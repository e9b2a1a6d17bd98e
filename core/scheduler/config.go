package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/resident-scheduler/core/constraints"
	"github.com/kilianp07/resident-scheduler/core/factory"
	"github.com/kilianp07/resident-scheduler/core/model"
)

// Config defines the parameters of a scheduling session.
type Config struct {
	TimeBudgetSeconds       float64              `json:"time_budget_seconds" yaml:"time_budget_seconds"`
	DiagnosticBudgetSeconds float64              `json:"diagnostic_budget_seconds" yaml:"diagnostic_budget_seconds"`
	SkipDiagnostics         bool                 `json:"skip_diagnostics" yaml:"skip_diagnostics"`
	DiagnosticWorkers       int                  `json:"diagnostic_workers" yaml:"diagnostic_workers"`
	Constraints             constraints.Options  `json:"constraints" yaml:"constraints"`
	Solver                  factory.ModuleConfig `json:"solver" yaml:"solver"`
}

// DefaultConfig returns a one minute budget with thirty seconds of
// infeasibility diagnostics.
func DefaultConfig() Config {
	return Config{
		TimeBudgetSeconds:       60,
		DiagnosticBudgetSeconds: 30,
		DiagnosticWorkers:       2,
		Constraints:             constraints.DefaultOptions(),
	}
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.TimeBudgetSeconds == 0 {
		c.TimeBudgetSeconds = d.TimeBudgetSeconds
	}
	if c.DiagnosticBudgetSeconds == 0 {
		c.DiagnosticBudgetSeconds = d.DiagnosticBudgetSeconds
	}
	if c.DiagnosticWorkers == 0 {
		c.DiagnosticWorkers = d.DiagnosticWorkers
	}
	c.Constraints.SetDefaults()
}

// Validate checks the budgets and the constraint options.
func (c Config) Validate() error {
	if c.TimeBudgetSeconds <= 0 {
		return model.NewInvalidInput("scheduler.time_budget_seconds", "time budget must be positive, got %v", c.TimeBudgetSeconds)
	}
	if c.DiagnosticBudgetSeconds < 0 {
		return model.NewInvalidInput("scheduler.diagnostic_budget_seconds", "diagnostic budget must not be negative")
	}
	if c.DiagnosticWorkers < 0 {
		return model.NewInvalidInput("scheduler.diagnostic_workers", "diagnostic workers must not be negative")
	}
	return c.Constraints.Validate()
}

// Budget returns the solve time budget.
func (c Config) Budget() time.Duration { return seconds(c.TimeBudgetSeconds) }

// DiagnosticBudget returns the total time granted to infeasibility diagnostics.
func (c Config) DiagnosticBudget() time.Duration { return seconds(c.DiagnosticBudgetSeconds) }

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

// LoadConfig loads a Config from a JSON or YAML file. Defaults are applied
// to fields the file leaves empty.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "yaml", "yml", "json":
	default:
		return Config{}, fmt.Errorf("unsupported config format: .%s", ext)
	}
	return DecodeConfig(f, ext)
}

// DecodeConfig reads from r to decode a Config.
func DecodeConfig(r io.Reader, format string) (Config, error) {
	var cfg Config
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
			return cfg, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	cfg.SetDefaults()
	return cfg, nil
}
