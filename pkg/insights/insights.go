// Package insights maps an aggregate result to operator-facing insights and
// recommendations. Rules are applied in a fixed order and the order of the
// returned lists is part of the output.
package insights

import "github.com/menta2k/pond-analyzer/pkg/types"

// Insight messages
const (
	ActiveFeeding = "Fish are actively feeding - optimal time for feed distribution"
	LowActivity   = "Low fish activity detected - consider reducing feed amount"
	HighDensity   = "High fish density observed - monitor water quality closely"
	LowDensity    = "Lower fish density - feed distribution can be more targeted"
	GrowthPhase   = "Higher feed requirement detected - fish growth phase likely"
)

// Recommendation messages
const (
	HighConfidence  = "High confidence analysis - safe to apply recommendations"
	LowConfidence   = "Lower confidence - consider manual verification"
	ContinueFeeding = "Continue current feeding schedule - fish responding well"
	ReduceFeeding   = "Reduce feeding frequency or amount to prevent waste"
	MonitorWater    = "Monitor water temperature and quality parameters"
	ScheduleNext    = "Schedule next analysis within 4-6 hours"
)

// Rule thresholds
const (
	HighDensityCount    = 35
	LowDensityCount     = 20
	GrowthFeedAmount    = 3.0
	HighConfidenceLevel = 0.9
	LowConfidenceLevel  = 0.7
)

// Insights returns the insight messages for r
func Insights(r types.AggregateResult) []string {
	out := []string{}

	switch r.ActivityLevel {
	case types.High, types.Feeding:
		out = append(out, ActiveFeeding)
	case types.Low:
		out = append(out, LowActivity)
	}

	if r.FishCount > HighDensityCount {
		out = append(out, HighDensity)
	} else if r.FishCount < LowDensityCount {
		out = append(out, LowDensity)
	}

	if r.FeedAmount > GrowthFeedAmount {
		out = append(out, GrowthPhase)
	}

	return out
}

// Recommendations returns the recommendation messages for r. The last two
// entries are always MonitorWater and ScheduleNext.
func Recommendations(r types.AggregateResult) []string {
	out := []string{}

	if r.Confidence > HighConfidenceLevel {
		out = append(out, HighConfidence)
	} else if r.Confidence < LowConfidenceLevel {
		out = append(out, LowConfidence)
	}

	switch r.ActivityLevel {
	case types.Feeding:
		out = append(out, ContinueFeeding)
	case types.Low:
		out = append(out, ReduceFeeding)
	}

	return append(out, MonitorWater, ScheduleNext)
}
