package analyzer

import (
	"errors"
	"fmt"
)

// ErrorKind tags the stage an analysis failed in
type ErrorKind string

const (
	// KindMediaUnreadable covers corrupt, missing or undecodable media
	KindMediaUnreadable ErrorKind = "media_unreadable"
	// KindEmptyFrameSequence means the media decoded to zero frames
	KindEmptyFrameSequence ErrorKind = "empty_frame_sequence"
	// KindAggregationPrecondition means aggregation was reached with no predictions.
	// It indicates a bug, not bad input.
	KindAggregationPrecondition ErrorKind = "aggregation_precondition"
	// KindInferenceFailed covers preprocessing and model failures
	KindInferenceFailed ErrorKind = "inference_failed"
	// KindCanceled means the request context ended before the next frame
	KindCanceled ErrorKind = "canceled"
)

// AnalysisError is the single error type returned by Analyze
type AnalysisError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *AnalysisError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var ae *AnalysisError
	return errors.As(err, &ae) && ae.Kind == kind
}

func newError(kind ErrorKind, message string, err error) *AnalysisError {
	return &AnalysisError{Kind: kind, Message: message, Err: err}
}
