package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clearframe/forensics-cli/internal/ingest"
	"github.com/clearframe/forensics-cli/internal/model"
	"github.com/clearframe/forensics-cli/internal/pipeline"
)

var batchLimit int

var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Analyze a batch of videos from a manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		manifest, err := ingest.LoadManifest(args[0])
		if err != nil {
			return err
		}

		p := pipeline.New(cfg, st)
		return processBatch(ctx, manifest.Videos, batchLimit, cfg.Batch.MaxConcurrentVideos,
			func(ctx context.Context, entry ingest.VideoEntry) (*model.Verdict, error) {
				features, err := ingest.LoadVideo(ctx, entry)
				if err != nil {
					return nil, err
				}
				return p.Analyze(ctx, features)
			})
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of videos to process (0 = all)")
	rootCmd.AddCommand(batchCmd)
}

// analyzeFunc is the callback signature for analyzing one manifest entry.
type analyzeFunc func(ctx context.Context, entry ingest.VideoEntry) (*model.Verdict, error)

// processBatch applies limit, then analyzes videos concurrently. A failed
// video is logged and counted; it never stops the rest of the batch.
func processBatch(ctx context.Context, videos []ingest.VideoEntry, limit, concurrency int, analyze analyzeFunc) error {
	if len(videos) == 0 {
		zap.L().Info("no videos in manifest")
		return nil
	}

	if limit > 0 && len(videos) > limit {
		videos = videos[:limit]
	}

	zap.L().Info("processing batch",
		zap.Int("videos", len(videos)),
		zap.Int("concurrency", concurrency),
	)

	var complete, failed, deepfakes atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, entry := range videos {
		entry := entry
		g.Go(func() error {
			verdict, err := analyze(gctx, entry)
			if err != nil {
				failed.Add(1)
				zap.L().Error("video analysis failed",
					zap.String("video_id", entry.ID),
					zap.Error(err),
				)
				return nil
			}
			complete.Add(1)
			if verdict.Decision == model.DecisionDeepfake {
				deepfakes.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	zap.L().Info("batch complete",
		zap.Int64("complete", complete.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Int64("deepfakes", deepfakes.Load()),
	)
	return nil
}
