package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearframe/forensics-cli/internal/report"
	"github.com/clearframe/forensics-cli/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render verdicts for case files",
}

var reportRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Print a run's verdict and phase timing as text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "report run")
		}
		phases, err := st.ListPhases(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "report run")
		}

		return report.WriteText(os.Stdout, run, phases)
	},
}

var reportExportCmd = &cobra.Command{
	Use:   "export <out.xlsx>",
	Short: "Export run history to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: limit})
		if err != nil {
			return eris.Wrap(err, "report export")
		}

		if err := report.WriteXLSX(args[0], runs); err != nil {
			return err
		}
		zap.L().Info("exported workbook",
			zap.String("path", args[0]),
			zap.Int("runs", len(runs)),
		)
		return nil
	},
}

func init() {
	reportExportCmd.Flags().Int("limit", 1000, "max number of runs to export")

	reportCmd.AddCommand(reportRunCmd)
	reportCmd.AddCommand(reportExportCmd)
	rootCmd.AddCommand(reportCmd)
}
