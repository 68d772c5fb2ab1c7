package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/hydrothermal/app"
	"github.com/kilianp07/hydrothermal/core/model"
)

var (
	dispDemand     float64
	dispInflow     float64
	dispStorage    float64
	dispWaterValue float64
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Solve a single period",
	RunE:  dispatchPeriod,
}

func init() {
	f := dispatchCmd.Flags()
	f.Float64Var(&dispDemand, "demand", 500, "period demand in MW")
	f.Float64Var(&dispInflow, "inflow", 0, "period inflow in MWh")
	f.Float64Var(&dispStorage, "storage", -1, "storage before the period in MWh (default: initial volume)")
	f.Float64Var(&dispWaterValue, "water-value", 0, "price of stored water")
	rootCmd.AddCommand(dispatchCmd)
}

func dispatchPeriod(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	storage := dispStorage
	if storage < 0 {
		storage = cfg.Reservoir.InitialVolume()
	}
	out, err := svc.DispatchPeriod(model.Period{DemandMW: dispDemand, InflowMWh: dispInflow}, storage, dispWaterValue)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "status:     %s (%d iterations)\n", out.Status, out.Iterations)
	fmt.Fprintf(w, "hydro:      %.3f MW\n", out.Decision.HydroMW)
	fmt.Fprintf(w, "thermo:     %.3f MW\n", out.Decision.ThermoMW)
	fmt.Fprintf(w, "loss:       %.3f MW\n", out.LossMW)
	fmt.Fprintf(w, "imbalance:  %.2e MW\n", out.Imbalance)
	fmt.Fprintf(w, "cost:       %.2f\n", out.Cost)
	if out.Approximate {
		fmt.Fprintf(w, "approximate: %v\n", out.Cause)
	}
	return nil
}
