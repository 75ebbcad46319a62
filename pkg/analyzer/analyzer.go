// Package analyzer sequences the pond analysis pipeline: sampling, per-frame
// inference (or the fallback predictor), aggregation, insights, and the
// final result record.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/pond-analyzer/internal/utils"
	"github.com/menta2k/pond-analyzer/pkg/aggregate"
	"github.com/menta2k/pond-analyzer/pkg/estimate"
	"github.com/menta2k/pond-analyzer/pkg/fallback"
	"github.com/menta2k/pond-analyzer/pkg/insights"
	"github.com/menta2k/pond-analyzer/pkg/media"
	"github.com/menta2k/pond-analyzer/pkg/model"
	"github.com/menta2k/pond-analyzer/pkg/preprocess"
	"github.com/menta2k/pond-analyzer/pkg/types"
)

// DefaultMaxConcurrent bounds per-frame inference parallelism
const DefaultMaxConcurrent = 5

// Options configures an Analyzer. Zero values fall back to defaults; a nil
// Model is treated as unavailable.
type Options struct {
	Sampler       *media.Sampler
	Preprocessor  *preprocess.Preprocessor
	Model         model.Handle
	Estimator     *estimate.IllustrativeEstimator
	MaxConcurrent int
	Timeout       time.Duration
	Logger        *slog.Logger
	Clock         func() time.Time
}

// Analyzer runs analyses. It holds no per-request state and is safe for concurrent use.
type Analyzer struct {
	sampler       *media.Sampler
	preprocessor  *preprocess.Preprocessor
	model         model.Handle
	estimator     *estimate.IllustrativeEstimator
	aggregator    *aggregate.Aggregator
	fallback      *fallback.Predictor
	maxConcurrent int
	timeout       time.Duration
	logger        *slog.Logger
	clock         func() time.Time
}

// New creates an Analyzer
func New(opts Options) *Analyzer {
	if opts.Sampler == nil {
		opts.Sampler = media.New()
	}
	if opts.Preprocessor == nil {
		opts.Preprocessor = preprocess.New()
	}
	if opts.Model == nil {
		opts.Model = &model.Unavailable{Reason: model.ErrNoWeights}
	}
	if opts.Estimator == nil {
		opts.Estimator = estimate.NewRandom()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Analyzer{
		sampler:       opts.Sampler,
		preprocessor:  opts.Preprocessor,
		model:         opts.Model,
		estimator:     opts.Estimator,
		aggregator:    aggregate.New(opts.Estimator),
		fallback:      fallback.New(opts.Estimator),
		maxConcurrent: opts.MaxConcurrent,
		timeout:       opts.Timeout,
		logger:        opts.Logger,
		clock:         opts.Clock,
	}
}

// Model returns the model handle the analyzer dispatches on
func (a *Analyzer) Model() model.Handle {
	return a.model
}

// Analyze produces the analysis result for the media at path. On failure the
// error is an *AnalysisError and no result is returned.
func (a *Analyzer) Analyze(ctx context.Context, path, farmID string) (*types.AnalysisResult, error) {
	result, _, err := a.AnalyzeMedia(ctx, path, farmID)
	return result, err
}

// AnalyzeMedia is Analyze that also returns the sampled frames
func (a *Analyzer) AnalyzeMedia(ctx context.Context, path, farmID string) (*types.AnalysisResult, []media.Frame, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	analysisID := uuid.NewString()
	timestamp := a.clock().UTC()
	logger := a.logger.With(slog.String("analysis_id", analysisID), slog.String("farm_id", farmID))

	logger.InfoContext(ctx, "analysis started", slog.String("path", path))

	frames, err := a.sampler.Sample(ctx, path)
	if err != nil {
		return nil, nil, a.fail(ctx, logger, sampleError(ctx, path, err))
	}
	if len(frames) == 0 {
		return nil, nil, a.fail(ctx, logger, newError(KindEmptyFrameSequence, "no frames sampled from "+path, nil))
	}
	logger.InfoContext(ctx, "frames sampled", slog.Int("frames", len(frames)))

	var agg types.AggregateResult
	switch m := a.model.(type) {
	case *model.Loaded:
		predictions, inferErr := a.infer(ctx, m, frames)
		if inferErr != nil {
			return nil, nil, a.fail(ctx, logger, inferErr)
		}
		var aggErr error
		agg, aggErr = a.aggregator.Aggregate(predictions)
		if aggErr != nil {
			if errors.Is(aggErr, aggregate.ErrEmptyInput) {
				logger.ErrorContext(ctx, "aggregation called without predictions",
					slog.Int("frames", len(frames)),
					slog.Any("error", xerrors.New(aggErr)))
				return nil, nil, newError(KindAggregationPrecondition, "aggregation requires at least one prediction", aggErr)
			}
			return nil, nil, a.fail(ctx, logger, newError(KindInferenceFailed, "invalid frame prediction", aggErr))
		}
	case *model.Unavailable:
		logger.WarnContext(ctx, "model unavailable, using fallback predictor", slog.Any("reason", m.Reason))
		agg = a.fallback.Predict()
	default:
		return nil, nil, a.fail(ctx, logger, newError(KindInferenceFailed, fmt.Sprintf("unknown model handle %T", m), nil))
	}

	econ := a.estimator.Economics()
	result := &types.AnalysisResult{
		FarmID:                farmID,
		AnalysisID:            analysisID,
		Timestamp:             timestamp,
		FishCount:             agg.FishCount,
		ActivityLevel:         agg.ActivityLevel,
		FeedingBehavior:       a.estimator.FeedingBehavior(),
		RecommendedFeedAmount: agg.FeedAmount,
		ConfidenceScore:       agg.Confidence,
		EstimatedCostSavings:  econ.EstimatedCostSavings,
		EfficiencyScore:       econ.EfficiencyScore,
		SustainabilityScore:   econ.SustainabilityScore,
		WaterQualityImpact:    econ.WaterQualityImpact,
		Insights:              insights.Insights(agg),
		Recommendations:       insights.Recommendations(agg),
	}

	logger.InfoContext(ctx, "analysis completed",
		slog.String("activity_level", result.ActivityLevel.String()),
		slog.Float64("confidence", result.ConfidenceScore),
		slog.Float64("feed_amount", result.RecommendedFeedAmount))

	return result, frames, nil
}

// infer runs preprocessing and prediction for every frame with bounded
// parallelism. Predictions are stored by position so the returned slice is
// in frame order regardless of completion order. Cancellation only takes
// effect before a frame starts; once every frame is predicted the result
// stands even if the deadline passes.
func (a *Analyzer) infer(ctx context.Context, m *model.Loaded, frames []media.Frame) ([]types.FramePrediction, *AnalysisError) {
	predictions := make([]types.FramePrediction, len(frames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrent)

	launched := 0
	for i, frame := range frames {
		if gctx.Err() != nil {
			break
		}
		launched++
		g.Go(func() error {
			// checked before starting a frame, never mid-frame
			if err := gctx.Err(); err != nil {
				return err
			}
			tensor, err := a.preprocessor.Preprocess(frame.Image)
			if err != nil {
				return newError(KindInferenceFailed, fmt.Sprintf("failed to preprocess frame %d", frame.Index), err)
			}
			p, err := m.Predict(tensor)
			if err != nil {
				return newError(KindInferenceFailed, fmt.Sprintf("failed to predict frame %d", frame.Index), err)
			}
			predictions[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var ae *AnalysisError
		if errors.As(err, &ae) {
			return nil, ae
		}
		return nil, newError(KindCanceled, "analysis aborted before all frames were processed", err)
	}
	if launched < len(frames) {
		return nil, newError(KindCanceled, "analysis aborted before all frames were processed", context.Cause(gctx))
	}
	return predictions, nil
}

func sampleError(ctx context.Context, path string, err error) *AnalysisError {
	switch {
	case ctx.Err() != nil:
		return newError(KindCanceled, "sampling aborted", err)
	case errors.Is(err, media.ErrNoFrames):
		return newError(KindEmptyFrameSequence, "no frames decoded from "+path, err)
	default:
		return newError(KindMediaUnreadable, "failed to read media "+path, err)
	}
}

func (a *Analyzer) fail(ctx context.Context, logger *slog.Logger, err *AnalysisError) error {
	logger.ErrorContext(ctx, "analysis failed",
		slog.String("kind", string(err.Kind)),
		slog.Any("error", xerrors.New(err)))
	return err
}
