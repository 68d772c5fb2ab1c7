// Package scenarios runs YAML-described optimisation scenarios against the
// full water-value loop.
package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/hydrothermal/config"
	"github.com/kilianp07/hydrothermal/core/factory"
)

// HorizonDef scales the reference profile. Unset scales leave it unchanged.
type HorizonDef struct {
	DemandScale *float64 `yaml:"demand_scale"`
	InflowScale *float64 `yaml:"inflow_scale"`
}

// Expected holds the assertions of a scenario. Zero values are not checked
// except for State.
type Expected struct {
	State              string   `yaml:"state"`
	MaxIterations      int      `yaml:"max_iterations"`
	Iterations         int      `yaml:"iterations"`
	MaxApproximate     *int     `yaml:"max_approximate"`
	HydroAtMin         bool     `yaml:"hydro_at_min"`
	FirstWaterValue    *float64 `yaml:"first_water_value"`
	StorageWithinRange bool     `yaml:"storage_within_range"`
}

// Scenario overrides sections of the reference configuration. Plant,
// reservoir, solver and water-value overrides use the configuration keys.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Plant       map[string]any `yaml:"plant,omitempty"`
	Reservoir   map[string]any `yaml:"reservoir,omitempty"`
	Solver      map[string]any `yaml:"solver,omitempty"`
	WaterValue  map[string]any `yaml:"water_value,omitempty"`
	Horizon     HorizonDef     `yaml:"horizon"`
	Expected    Expected       `yaml:"expected"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Config applies the scenario on top of the reference configuration and
// validates the result.
func (sc *Scenario) Config() (*config.Config, error) {
	cfg := config.Default()
	for _, o := range []struct {
		raw map[string]any
		out any
	}{
		{sc.Plant, &cfg.Plant},
		{sc.Reservoir, &cfg.Reservoir},
		{sc.Solver, &cfg.Solver},
		{sc.WaterValue, &cfg.WaterValue},
	} {
		if len(o.raw) == 0 {
			continue
		}
		if err := factory.Decode(o.raw, o.out); err != nil {
			return nil, err
		}
	}
	for i := range cfg.Horizon.Periods {
		if f := sc.Horizon.DemandScale; f != nil {
			cfg.Horizon.Periods[i].DemandMW *= *f
		}
		if f := sc.Horizon.InflowScale; f != nil {
			cfg.Horizon.Periods[i].InflowMWh *= *f
		}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
