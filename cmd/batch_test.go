package main

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearframe/forensics-cli/internal/ingest"
	"github.com/clearframe/forensics-cli/internal/model"
)

func entries(n int) []ingest.VideoEntry {
	out := make([]ingest.VideoEntry, n)
	for i := range out {
		out[i] = ingest.VideoEntry{ID: "clip-" + string(rune('a'+i))}
	}
	return out
}

func TestProcessBatch_AnalyzesEveryEntry(t *testing.T) {
	var calls atomic.Int64
	err := processBatch(context.Background(), entries(5), 0, 2,
		func(ctx context.Context, entry ingest.VideoEntry) (*model.Verdict, error) {
			calls.Add(1)
			return &model.Verdict{VideoID: entry.ID, Decision: model.DecisionGenuine}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, int64(5), calls.Load())
}

func TestProcessBatch_AppliesLimit(t *testing.T) {
	var calls atomic.Int64
	err := processBatch(context.Background(), entries(5), 2, 2,
		func(ctx context.Context, entry ingest.VideoEntry) (*model.Verdict, error) {
			calls.Add(1)
			return &model.Verdict{VideoID: entry.ID}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestProcessBatch_FailedVideoDoesNotStopBatch(t *testing.T) {
	var calls atomic.Int64
	err := processBatch(context.Background(), entries(4), 0, 1,
		func(ctx context.Context, entry ingest.VideoEntry) (*model.Verdict, error) {
			calls.Add(1)
			if entry.ID == "clip-b" {
				return nil, eris.New("extraction stalled")
			}
			return &model.Verdict{VideoID: entry.ID}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, int64(4), calls.Load())
}

func TestProcessBatch_EmptyManifest(t *testing.T) {
	err := processBatch(context.Background(), nil, 0, 4,
		func(ctx context.Context, entry ingest.VideoEntry) (*model.Verdict, error) {
			t.Fatal("analyze must not be called")
			return nil, nil
		})
	require.NoError(t, err)
}
