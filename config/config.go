// Package config loads the service configuration from a JSON or YAML file
// with environment overrides.
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

	"github.com/dixie/callvehicle/core/dispatch"
	"github.com/dixie/callvehicle/core/metrics"
	"github.com/dixie/callvehicle/core/model"
	"github.com/dixie/callvehicle/core/options"
	"github.com/dixie/callvehicle/infra/ledger"
	"github.com/dixie/callvehicle/infra/notify"
	"github.com/dixie/callvehicle/simulator"
)

// PointSeed is a world position in the seed file.
type PointSeed struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point converts the seed to a model point.
func (p PointSeed) Point() model.Point { return model.Point{X: p.X, Y: p.Y} }

// VehicleSeed describes one vehicle placed in the simulated world at startup.
type VehicleSeed struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	Position PointSeed `json:"position"`
}

// RequesterSeed describes one requester: their fleet, funds and position.
type RequesterSeed struct {
	ID       string        `json:"id"`
	Balance  int           `json:"balance"`
	Cash     int           `json:"cash"`
	Position PointSeed     `json:"position"`
	Vehicles []VehicleSeed `json:"vehicles"`
}

// Config is the root configuration.
type Config struct {
	Options    options.Values   `json:"options"`
	Notify     notify.Config    `json:"notify"`
	Dispatch   dispatch.Config  `json:"dispatch"`
	Metrics    metrics.Config   `json:"metrics"`
	Ledger     ledger.Config    `json:"ledger"`
	Simulator  simulator.Config `json:"simulator"`
	Requesters []RequesterSeed  `json:"requesters"`
}

// Load reads the configuration from path. Environment variables prefixed
// with CV_ override file values, with "__" standing in for the key
// separator. Option keys absent from the file fall back to the defaults in
// the option table.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
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
	// Optional environment overrides
	if err := k.Load(env.Provider("CV_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "cv_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	// Unrecognized option keys fail the load; missing ones get defaults.
	for _, key := range k.MapKeys("options") {
		if !knownOption(key) {
			return nil, fmt.Errorf("unknown option %q", key)
		}
	}
	for _, e := range options.Table {
		key := "options." + e.Key
		if !k.Exists(key) {
			if err := k.Set(key, e.Default); err != nil {
				return nil, err
			}
		}
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Notify.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Ledger.SetDefaults()
	cfg.Simulator.SetDefaults()
	if err := cfg.Ledger.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func knownOption(key string) bool {
	for _, e := range options.Table {
		if e.Key == key {
			return true
		}
	}
	return false
}

// Validate checks the seed data.
func (c Config) Validate() error {
	if c.Options.PricePerKm < 0 {
		return fmt.Errorf("price_per_km must not be negative")
	}
	if c.Options.ServiceChargeDay < 0 || c.Options.ServiceChargeNight < 0 {
		return fmt.Errorf("service charges must not be negative")
	}
	if c.Dispatch.NavigateTimeoutSeconds < 0 {
		return fmt.Errorf("navigate_timeout_seconds must not be negative")
	}
	seen := map[string]bool{}
	for _, r := range c.Requesters {
		if r.ID == "" {
			return fmt.Errorf("requester id is required")
		}
		for _, v := range r.Vehicles {
			if v.ID == "" {
				return fmt.Errorf("vehicle id is required for requester %s", r.ID)
			}
			if seen[v.ID] {
				return fmt.Errorf("duplicate vehicle id %s", v.ID)
			}
			seen[v.ID] = true
		}
	}
	return nil
}
