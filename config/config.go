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

	"github.com/kilianp07/hydrothermal/core/metrics"
	"github.com/kilianp07/hydrothermal/core/model"
	"github.com/kilianp07/hydrothermal/core/scheduler"
	"github.com/kilianp07/hydrothermal/core/watervalue"
	"github.com/kilianp07/hydrothermal/infra/mqtt"
	"github.com/kilianp07/hydrothermal/infra/store"
	"github.com/kilianp07/hydrothermal/pkg/export"
	"github.com/kilianp07/hydrothermal/pkg/nlp"
)

// Config is the complete run configuration.
type Config struct {
	Plant      model.Plant       `json:"plant"`
	Reservoir  model.Reservoir   `json:"reservoir"`
	Horizon    HorizonConfig     `json:"horizon"`
	Scheduler  scheduler.Config  `json:"scheduler"`
	Solver     nlp.Settings      `json:"solver"`
	WaterValue watervalue.Config `json:"water_value"`
	Metrics    metrics.Config    `json:"metrics"`
	MQTT       mqtt.Config       `json:"mqtt"`
	Store      store.Config      `json:"store"`
	Export     export.Config     `json:"export"`
	API        APIConfig         `json:"api"`
}

// APIConfig configures the HTTP endpoint of the serve command.
type APIConfig struct {
	Addr  string `json:"addr"`
	Token string `json:"token"`
}

// Load reads a YAML or JSON file, applies K_ environment overrides, fills
// defaults and validates the result.
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
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultPlant is the 500 MW reference system.
func DefaultPlant() model.Plant {
	return model.Plant{
		HydroMinMW:        50,
		HydroMaxMW:        400,
		ThermoMinMW:       100,
		ThermoMaxMW:       600,
		LossCoefficient:   0.0001,
		TransmissionMaxMW: 800,
		ThermalCost:       50,
	}
}

// DefaultReservoir holds roughly two months of full hydro output.
func DefaultReservoir() model.Reservoir {
	return model.Reservoir{
		CapacityMWh:     600000,
		MinFraction:     0.1,
		MaxFraction:     0.95,
		InitialFraction: 0.6,
	}
}

// Default returns the reference configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills unset sections. Plant and reservoir are replaced only
// when left entirely empty.
func (c *Config) SetDefaults() {
	if c.Plant == (model.Plant{}) {
		c.Plant = DefaultPlant()
	}
	if c.Reservoir == (model.Reservoir{}) {
		c.Reservoir = DefaultReservoir()
	}
	c.Horizon.SetDefaults()
	c.Scheduler.PeriodHours = c.Horizon.PeriodHours
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
	c.Solver.SetDefaults()
	c.WaterValue.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
}

// Validate rejects configurations that no solver can honour. Every failure is
// a *ConfigError.
func (c *Config) Validate() error {
	if err := ValidatePlant(c.Plant); err != nil {
		return err
	}
	if err := ValidateReservoir(c.Reservoir); err != nil {
		return err
	}
	if err := c.Horizon.Validate(c.Plant); err != nil {
		return err
	}
	if err := c.validateWaterValue(); err != nil {
		return err
	}
	if err := c.MQTT.Validate(); err != nil {
		return &ConfigError{Field: "mqtt", Reason: err.Error()}
	}
	if err := c.Export.Validate(); err != nil {
		return &ConfigError{Field: "export", Reason: err.Error()}
	}
	return nil
}

func (c *Config) validateWaterValue() error {
	wv := c.WaterValue
	if _, err := watervalue.NewPolicy(wv.Policy, c.Plant, c.Reservoir, wv.EfficiencyFactor); err != nil {
		return &ConfigError{Field: "water_value.policy", Reason: err.Error()}
	}
	if wv.EfficiencyFactor < 0 {
		return fieldError("water_value.efficiency_factor", "must not be negative")
	}
	if n := len(wv.Initial); n > 0 && n != len(c.Horizon.Periods) {
		return fieldError("water_value.initial", "has %d values for %d periods", n, len(c.Horizon.Periods))
	}
	return nil
}
