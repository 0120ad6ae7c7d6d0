package replay

import (
	"fmt"
	"sort"
	"strings"
)

// RunStatistics aggregates the comparisons of one replay run.
type RunStatistics struct {
	Total    int `json:"total"`
	Replayed int `json:"replayed"`
	Errors   int `json:"errors"`

	ScoreMatches   int `json:"score_matches"`
	SegmentMatches int `json:"segment_matches"`
	MethodChanges  int `json:"method_changes"`

	Misses       int `json:"misses"`        // replayed misses
	StoredMisses int `json:"stored_misses"` // misses in the recorded data

	MethodCounts map[string]int `json:"method_counts"`

	// ConfidenceBuckets is a 10-bin histogram of replayed confidences,
	// bucket i covering [i/10, (i+1)/10).
	ConfidenceBuckets [10]int `json:"confidence_buckets"`

	MeanConfidence      float64 `json:"mean_confidence"`
	MeanConfidenceDelta float64 `json:"mean_confidence_delta"`
}

// Aggregate folds a set of comparisons into run statistics.
func Aggregate(comps []Comparison) RunStatistics {
	st := RunStatistics{
		Total:        len(comps),
		MethodCounts: make(map[string]int),
	}

	var confSum, deltaSum float64
	for i := range comps {
		c := &comps[i]
		if c.StoredScore == 0 && c.StoredSegment == 0 {
			st.StoredMisses++
		}
		if c.Err != "" || c.Replayed == nil {
			st.Errors++
			continue
		}
		st.Replayed++

		res := c.Replayed
		st.MethodCounts[res.Method]++
		if res.IsMiss() {
			st.Misses++
		}
		if c.ScoreMatch {
			st.ScoreMatches++
		}
		if c.SegmentMatch {
			st.SegmentMatches++
		}
		if c.MethodChanged {
			st.MethodChanges++
		}

		bucket := int(res.Confidence * 10)
		if bucket > 9 {
			bucket = 9
		}
		if bucket < 0 {
			bucket = 0
		}
		st.ConfidenceBuckets[bucket]++

		confSum += res.Confidence
		deltaSum += c.ConfidenceDel
	}

	if st.Replayed > 0 {
		st.MeanConfidence = confSum / float64(st.Replayed)
		st.MeanConfidenceDelta = deltaSum / float64(st.Replayed)
	}
	return st
}

// ScoreAccuracy is the fraction of replayed throws whose score matched the
// recorded one. Zero when nothing replayed.
func (s RunStatistics) ScoreAccuracy() float64 {
	if s.Replayed == 0 {
		return 0
	}
	return float64(s.ScoreMatches) / float64(s.Replayed)
}

// SegmentAccuracy is the fraction of replayed throws whose segment and
// multiplier both matched.
func (s RunStatistics) SegmentAccuracy() float64 {
	if s.Replayed == 0 {
		return 0
	}
	return float64(s.SegmentMatches) / float64(s.Replayed)
}

// Summary renders a compact multi-line text summary for CLI output.
func (s RunStatistics) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "throws: %d  replayed: %d  errors: %d\n", s.Total, s.Replayed, s.Errors)
	fmt.Fprintf(&b, "score accuracy: %.1f%%  segment accuracy: %.1f%%  method changes: %d\n",
		s.ScoreAccuracy()*100, s.SegmentAccuracy()*100, s.MethodChanges)
	fmt.Fprintf(&b, "misses: %d (stored %d)  mean confidence: %.3f (delta %+.3f)\n",
		s.Misses, s.StoredMisses, s.MeanConfidence, s.MeanConfidenceDelta)

	methods := make([]string, 0, len(s.MethodCounts))
	for m := range s.MethodCounts {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		fmt.Fprintf(&b, "  %-24s %d\n", m, s.MethodCounts[m])
	}
	return b.String()
}
