package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/hydrothermal/infra/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored optimisation runs",
	RunE:  listRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to list")
	rootCmd.AddCommand(runsCmd)
}

func listRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Store.Enabled() {
		return fmt.Errorf("store.path is not configured")
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("run store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ids, err := st.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	for _, id := range ids {
		run, err := st.LoadRun(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-9s  %3d iterations  cost %.2f\n",
			run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.State, run.Iterations, run.Trajectory.TotalCost)
	}
	return nil
}
