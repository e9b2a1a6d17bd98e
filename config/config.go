package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/resident-scheduler/core/factory"
	"github.com/kilianp07/resident-scheduler/core/metrics"
	"github.com/kilianp07/resident-scheduler/core/scheduler"
	"github.com/kilianp07/resident-scheduler/infra/logger"
	"github.com/kilianp07/resident-scheduler/infra/monitoring"
	"github.com/kilianp07/resident-scheduler/infra/mqtt"
)

// Config is the process configuration.
type Config struct {
	Scheduler scheduler.Config `json:"scheduler"`
	Logging   logger.Config    `json:"logging"`
	Metrics   metrics.Config   `json:"metrics"`
	// RunLog selects the run history store; an empty type disables it.
	RunLog factory.ModuleConfig `json:"runlog"`
	// MQTT is enabled when a broker is set.
	MQTT mqtt.Config `json:"mqtt"`
	// Sentry receives unexpected run errors when a DSN is set.
	Sentry monitoring.Config `json:"sentry"`
}

// MQTTEnabled reports whether a broker is configured.
func (c Config) MQTTEnabled() bool { return c.MQTT.Broker != "" }

// Load reads path and applies K_ environment overrides, for example
// K_SCHEDULER__TIME_BUDGET_SECONDS=120. An empty path uses defaults plus the
// environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Scheduler.SetDefaults()
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, err
	}
	if cfg.MQTTEnabled() {
		cfg.MQTT.SetDefaults()
		if err := cfg.MQTT.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
