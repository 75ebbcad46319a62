// Package fallback produces bounded random aggregates when no model is loaded.
package fallback

import (
	"github.com/menta2k/pond-analyzer/pkg/estimate"
	"github.com/menta2k/pond-analyzer/pkg/types"
)

// Output bounds
const (
	MinConfidence = 0.85
	MaxConfidence = 0.99
	MinFeedAmount = 2.0
	MaxFeedAmount = 4.0
)

// Predictor satisfies the aggregate contract without a model
type Predictor struct {
	estimator *estimate.IllustrativeEstimator
}

// New creates a Predictor drawing from estimator
func New(estimator *estimate.IllustrativeEstimator) *Predictor {
	if estimator == nil {
		estimator = estimate.NewRandom()
	}
	return &Predictor{estimator: estimator}
}

// Predict returns a uniformly drawn activity level, confidence, feed amount and fish count
func (p *Predictor) Predict() types.AggregateResult {
	return types.AggregateResult{
		ActivityLevel: p.estimator.ActivityLevel(),
		Confidence:    p.estimator.Uniform(MinConfidence, MaxConfidence),
		FeedAmount:    p.estimator.Uniform(MinFeedAmount, MaxFeedAmount),
		FishCount:     p.estimator.FishCount(),
	}
}
