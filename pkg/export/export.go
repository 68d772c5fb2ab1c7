// Package export writes annual schedules in CSV and JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/hydrothermal/core/model"
)

// Formats accepted by Config.Format.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Config selects where the final schedule is written. An empty Path disables
// the export.
type Config struct {
	Format string `json:"format"`
	Path   string `json:"path"`
}

// Enabled reports whether an export was requested.
func (c Config) Enabled() bool { return c.Path != "" }

// Validate checks the format, inferring it from the file extension when unset.
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Format == "" {
		c.Format = strings.TrimPrefix(strings.ToLower(filepath.Ext(c.Path)), ".")
	}
	if c.Format != FormatCSV && c.Format != FormatJSON {
		return fmt.Errorf("unsupported export format %q", c.Format)
	}
	return nil
}

var csvHeader = []string{
	"period", "demand_mw", "inflow_mwh", "hydro_mw", "thermo_mw", "loss_mw",
	"water_value", "storage_before_mwh", "storage_after_mwh", "spill_mwh",
	"shortfall_mwh", "thermal_cost", "approximate",
}

// WriteJSON writes the trajectory to w in JSON format.
func WriteJSON(w io.Writer, t model.Trajectory) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// WriteCSV writes one row per period, periods numbered from 1.
func WriteCSV(w io.Writer, t model.Trajectory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range t.Periods {
		rec := []string{
			strconv.Itoa(p.Period.Index + 1),
			ftoa(p.Period.DemandMW),
			ftoa(p.Period.InflowMWh),
			ftoa(p.Decision.HydroMW),
			ftoa(p.Decision.ThermoMW),
			ftoa(p.LossMW),
			ftoa(p.WaterValue),
			ftoa(p.StorageBefore),
			ftoa(p.StorageAfter),
			ftoa(p.SpillMWh),
			ftoa(p.ShortfallMWh),
			ftoa(p.ThermalCost),
			strconv.FormatBool(p.Approximate),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the trajectory to cfg.Path in the configured format.
func WriteFile(cfg Config, t model.Trajectory) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	f, err := os.Create(cfg.Path)
	if err != nil {
		return err
	}
	write := WriteCSV
	if cfg.Format == FormatJSON {
		write = WriteJSON
	}
	if err := write(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 3, 64) }
