package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/clearframe/forensics-cli/internal/ingest"
	"github.com/clearframe/forensics-cli/internal/model"
	"github.com/clearframe/forensics-cli/internal/pipeline"
	"github.com/clearframe/forensics-cli/internal/report"
)

var analyzeVideoID string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <features-dir>",
	Short: "Analyze one video from its extracted feature files",
	Long:  "Reads <level>.jsonl feature files from the directory, escalates through the six levels, and prints the verdict.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		videoID := analyzeVideoID
		if videoID == "" {
			videoID = args[0]
		}

		features, err := ingest.LoadVideo(ctx, ingest.VideoEntry{ID: videoID, FeaturesDir: args[0]})
		if err != nil {
			return err
		}

		verdict, err := pipeline.New(cfg, st).Analyze(ctx, features)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		run := &model.Run{
			VideoID: verdict.VideoID,
			Status:  model.RunStatusComplete,
			Verdict: verdict,
		}
		return report.WriteText(os.Stdout, run, nil)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeVideoID, "video-id", "", "video id for the run record (default: features dir path)")
	rootCmd.AddCommand(analyzeCmd)
}
