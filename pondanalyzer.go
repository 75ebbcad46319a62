// Package pondanalyzer estimates fish activity and feed requirements from
// pond video and images.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		pondanalyzer "github.com/menta2k/pond-analyzer"
//		"github.com/menta2k/pond-analyzer/pkg/analyzer"
//		"github.com/menta2k/pond-analyzer/pkg/model"
//	)
//
//	func main() {
//		pa := pondanalyzer.NewWithOptions(analyzer.Options{
//			Model: model.Load("weights.json", nil),
//		}, 0)
//
//		result, err := pa.Analyze(context.Background(), "pond.mp4", "farm-1")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("%s activity, feed %.2f kg\n", result.ActivityLevel, result.RecommendedFeedAmount)
//	}
//
// The pipeline consists of:
//
// 1. Media sampling (pkg/media): one frame for images, up to 30 evenly strided frames for video
// 2. Preprocessing (pkg/preprocess): 224x224 stretch resize and per-channel normalization
// 3. Activity model (pkg/model): conv backbone with an activity classifier and a feed regressor
// 4. Aggregation (pkg/aggregate): majority vote over frames, mean confidence and feed amount
// 5. Insights (pkg/insights): fixed rules producing insights and recommendations
//
// When no weights are loaded the fallback predictor (pkg/fallback) fills the
// same result fields. Fish count and the economic scores come from
// pkg/estimate and are not measured from the media.
package pondanalyzer

import (
	"context"

	"github.com/menta2k/pond-analyzer/pkg/analyzer"
	"github.com/menta2k/pond-analyzer/pkg/estimate"
	"github.com/menta2k/pond-analyzer/pkg/media"
	"github.com/menta2k/pond-analyzer/pkg/model"
	"github.com/menta2k/pond-analyzer/pkg/reporting"
	"github.com/menta2k/pond-analyzer/pkg/types"
)

// Version of the pond analyzer library
const Version = "1.0.0"

// PondAnalyzer provides a high-level interface for analysis and farm reports
type PondAnalyzer struct {
	analyzer *analyzer.Analyzer
	reporter *reporting.Reporter
}

// New creates a PondAnalyzer without model weights; results come from the
// fallback predictor until weights are supplied through NewWithOptions.
func New() *PondAnalyzer {
	return NewWithOptions(analyzer.Options{}, 0)
}

// NewWithOptions creates a PondAnalyzer with custom analyzer options and a
// feed cost in USD/kg (0 for the default)
func NewWithOptions(opts analyzer.Options, feedCost float64) *PondAnalyzer {
	if opts.Estimator == nil {
		opts.Estimator = estimate.NewRandom()
	}

	return &PondAnalyzer{
		analyzer: analyzer.New(opts),
		reporter: reporting.New(opts.Estimator, reporting.Config{FeedCost: feedCost, Clock: opts.Clock}),
	}
}

// Analyze analyses the media at path for farmID
func (pa *PondAnalyzer) Analyze(ctx context.Context, path, farmID string) (*types.AnalysisResult, error) {
	return pa.analyzer.Analyze(ctx, path, farmID)
}

// AnalyzeMedia is Analyze that also returns the sampled frames
func (pa *PondAnalyzer) AnalyzeMedia(ctx context.Context, path, farmID string) (*types.AnalysisResult, []media.Frame, error) {
	return pa.analyzer.AnalyzeMedia(ctx, path, farmID)
}

// FeedRecommendation returns the feed plan for farmID
func (pa *PondAnalyzer) FeedRecommendation(farmID string) *types.FeedRecommendation {
	return pa.reporter.FeedRecommendation(farmID)
}

// HistoricalAnalytics returns daily metrics for the last days days
func (pa *PondAnalyzer) HistoricalAnalytics(farmID string, days int) (*types.HistoricalAnalytics, error) {
	return pa.reporter.HistoricalAnalytics(farmID, days)
}

// ModelLoaded reports whether inference runs on a loaded model
func (pa *PondAnalyzer) ModelLoaded() bool {
	return model.IsLoaded(pa.analyzer.Model())
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
