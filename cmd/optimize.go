package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/hydrothermal/app"
	"github.com/kilianp07/hydrothermal/infra/logger"
	"github.com/kilianp07/hydrothermal/infra/metrics"
)

var (
	optPolicy string
	optHold   bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Compute the annual schedule and its water values",
	RunE:  optimize,
}

func init() {
	optimizeCmd.Flags().StringVar(&optPolicy, "policy", "", "water value policy override (flat or storage_ratio)")
	optimizeCmd.Flags().BoolVar(&optHold, "hold", false, "keep serving /metrics after the run until interrupted")
	rootCmd.AddCommand(optimizeCmd)
}

func optimize(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if optPolicy != "" {
		cfg.WaterValue.Policy = optPolicy
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logg := logger.New("optimize")
	if addr := cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				logg.Errorf("prom server: %v", err)
			}
		}()
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	rep, err := svc.Optimize(ctx)
	if rep.Outcome.Iterations > 0 {
		printReport(cmd.OutOrStdout(), rep)
	}
	if err != nil {
		return err
	}
	if optHold && cfg.Metrics.PrometheusAddr != "" {
		logg.Infof("serving metrics on %s until interrupted", cfg.Metrics.PrometheusAddr)
		<-ctx.Done()
	}
	return nil
}

func printReport(w io.Writer, rep app.Report) {
	out := rep.Outcome
	fmt.Fprintf(w, "run %s: %s after %d iterations (delta %.6f)\n\n", rep.RunID, out.State, out.Iterations, out.Delta)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "period\tdemand MW\thydro MW\tthermo MW\tloss MW\twater value\tstorage MWh\tspill MWh\tflag\t")
	for _, p := range out.Trajectory.Periods {
		flag := ""
		if p.Approximate {
			flag = "approx"
		}
		fmt.Fprintf(tw, "%d\t%.1f\t%.2f\t%.2f\t%.2f\t%.3f\t%.0f\t%.0f\t%s\t\n",
			p.Period.Index+1, p.Period.DemandMW, p.Decision.HydroMW, p.Decision.ThermoMW,
			p.LossMW, p.WaterValue, p.StorageAfter, p.SpillMWh, flag)
	}
	_ = tw.Flush()
	s := rep.Summary
	fmt.Fprintf(w, "\nthermal cost %.2f, hydro share %.1f%%, losses %.0f MWh, approximate periods %d\n",
		s.ThermalCost, 100*s.HydroShare(), s.LossMWh, s.ApproximatePeriods)
}
