// Package aggregate combines per-frame predictions into one result per request.
package aggregate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/menta2k/pond-analyzer/pkg/types"
)

// MinFeedAmount is the floor applied to the mean feed amount
const MinFeedAmount = 0.5

// ErrEmptyInput is returned when there are no predictions to aggregate
var ErrEmptyInput = errors.New("no frame predictions to aggregate")

// FishCounter supplies the fish count attached to an aggregate
type FishCounter interface {
	FishCount() int
}

// Aggregator reduces frame predictions by majority vote and means
type Aggregator struct {
	counter FishCounter
}

// New creates an Aggregator that takes fish counts from counter
func New(counter FishCounter) *Aggregator {
	return &Aggregator{counter: counter}
}

// Aggregate expects predictions ordered by frame index. The label with the
// highest count wins; among equal counts the label seen first wins.
// Confidence and feed amount are means over all frames.
func (a *Aggregator) Aggregate(predictions []types.FramePrediction) (types.AggregateResult, error) {
	if len(predictions) == 0 {
		return types.AggregateResult{}, ErrEmptyInput
	}

	var counts [types.NumActivityLevels]int
	firstSeen := [types.NumActivityLevels]int{}
	for i := range firstSeen {
		firstSeen[i] = -1
	}
	confidences := make([]float64, len(predictions))
	feeds := make([]float64, len(predictions))

	for i, p := range predictions {
		if _, err := types.ActivityLevelFromClass(p.ActivityClass); err != nil {
			return types.AggregateResult{}, fmt.Errorf("frame %d: %w", i, err)
		}
		counts[p.ActivityClass]++
		if firstSeen[p.ActivityClass] < 0 {
			firstSeen[p.ActivityClass] = i
		}
		confidences[i] = p.Confidence
		feeds[i] = p.FeedAmount
	}

	winner := -1
	for class, n := range counts {
		if n == 0 {
			continue
		}
		if winner < 0 || n > counts[winner] || (n == counts[winner] && firstSeen[class] < firstSeen[winner]) {
			winner = class
		}
	}

	result := types.AggregateResult{
		ActivityLevel: types.ActivityLevel(winner),
		Confidence:    stat.Mean(confidences, nil),
		FeedAmount:    math.Max(MinFeedAmount, stat.Mean(feeds, nil)),
	}
	if a.counter != nil {
		result.FishCount = a.counter.FishCount()
	}
	return result, nil
}
