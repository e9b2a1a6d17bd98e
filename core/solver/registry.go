package solver

import (
	"github.com/kilianp07/resident-scheduler/core/factory"
)

// DefaultBackend is the backend used when no type is configured.
const DefaultBackend = "search"

var backendRegistry = factory.NewRegistry[Factory]()

func init() {
	_ = RegisterBackend(DefaultBackend, func(conf map[string]any) (Factory, error) {
		var cfg Config
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return func() Backend { return NewSearch(cfg) }, nil
	})
}

// RegisterBackend adds a backend factory identified by name.
func RegisterBackend(name string, f factory.Factory[Factory]) error {
	return backendRegistry.Register(name, f)
}

// NewFactory resolves a backend from configuration.
func NewFactory(cfg factory.ModuleConfig) (Factory, error) {
	if cfg.Type == "" {
		cfg.Type = DefaultBackend
	}
	return backendRegistry.Create(cfg)
}
