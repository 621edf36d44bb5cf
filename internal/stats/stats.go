// Package stats reduces per-frame score sequences into per-video summary
// statistics for the fusion engine.
package stats

import "math"

// Summary holds the temporal statistics of one score sequence.
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Max      float64 `json:"max"`
	// MaxRun is the longest contiguous run of samples strictly above the
	// anomaly threshold. Sustained runs separate real artifacts from
	// isolated noise spikes that averaging would mask.
	MaxRun int `json:"max_run"`
	// Rate is the fraction of samples above the threshold.
	Rate float64 `json:"rate"`
}

// Aggregate computes summary statistics over scores using the given
// anomaly threshold. The mean, variance, max and rate use commutative
// accumulators; run length is over the slice order, so callers must pass
// scores in frame order (evaluators sort by frame index first). A nil or
// empty slice yields a zero Summary with Count 0.
func Aggregate(scores []float64, threshold float64) Summary {
	var s Summary
	if len(scores) == 0 {
		return s
	}

	var sum, sumSq float64
	var above, run int
	s.Max = math.Inf(-1)

	for _, v := range scores {
		sum += v
		sumSq += v * v
		if v > s.Max {
			s.Max = v
		}
		if v > threshold {
			above++
			run++
			if run > s.MaxRun {
				s.MaxRun = run
			}
		} else {
			run = 0
		}
	}

	n := float64(len(scores))
	s.Count = len(scores)
	s.Mean = sum / n
	// Population variance; zero for a single sample.
	s.Variance = sumSq/n - s.Mean*s.Mean
	if s.Variance < 0 {
		s.Variance = 0
	}
	s.Rate = float64(above) / n
	return s
}

// Sliding computes summaries over consecutive windows of the given size.
// A window larger than the sequence (or <= 0) is treated as the full
// sequence, yielding a single summary.
func Sliding(scores []float64, window int, threshold float64) []Summary {
	if len(scores) == 0 {
		return nil
	}
	if window <= 0 || window >= len(scores) {
		return []Summary{Aggregate(scores, threshold)}
	}

	out := make([]Summary, 0, len(scores)-window+1)
	for i := 0; i+window <= len(scores); i++ {
		out = append(out, Aggregate(scores[i:i+window], threshold))
	}
	return out
}

// Correlation returns the Pearson correlation coefficient between two
// equal-length series, or 0 when either series is constant or shorter
// than two samples.
func Correlation(a, b []float64) float64 {
	n := len(a)
	if n < 2 || len(b) != n {
		return 0
	}

	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
	}
	meanA := sumA / float64(n)
	meanB := sumB / float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// RangeDistance maps v to a bounded anomaly in [0,1]: zero inside
// [lo, hi], growing linearly with the distance outside and saturating at
// one span away from the nearest bound.
func RangeDistance(v, lo, hi float64) float64 {
	span := hi - lo
	if span <= 0 {
		return 0
	}
	switch {
	case v < lo:
		return Clamp01((lo - v) / span)
	case v > hi:
		return Clamp01((v - hi) / span)
	default:
		return 0
	}
}
