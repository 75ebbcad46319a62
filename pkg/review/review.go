// Package review asks a vision language model for a second opinion on the
// activity level of a sampled frame. It never alters an analysis result.
package review

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/pond-analyzer/pkg/client"
	"github.com/menta2k/pond-analyzer/pkg/types"
)

// DescribePrompt checks whether the model can see the frame at all
const DescribePrompt = `What do you see in this image? Describe it briefly.`

// ActivityPrompt asks for one of the five activity levels
const ActivityPrompt = `You are reviewing a photo of an aquaculture fish pond.

Classify how active the fish are. Return JSON only:
{
  "activity_level": "Low" | "Moderate" | "Active" | "High" | "Feeding",
  "confidence": 0.0,
  "reasoning": "short neutral sentence (≤ 20 words)"
}

RULES
- Low: fish still or barely visible. Moderate: slow swimming. Active: steady swimming.
- High: fast movement, visible surface disturbance. Feeding: fish striking at the surface or at feed.
- confidence is in [0,1].
- If no fish or water is visible, return {"activity_level":"unclear","confidence":0.0,"reasoning":"no fish visible"}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// MaxImageSize is the longest edge of the frame sent to the model
const MaxImageSize = 768

// ErrNoReviewer is returned when review is requested without a client
var ErrNoReviewer = errors.New("no review backend configured")

// Reviewer requests second opinions from a vision client
type Reviewer struct {
	client client.VisionClient
	model  string
}

// NewReviewer creates a reviewer using model on c
func NewReviewer(c client.VisionClient, model string) *Reviewer {
	return &Reviewer{client: c, model: model}
}

// Opinion is a normalized second opinion
type Opinion struct {
	types.ActivityOpinion
	// Level is set when ActivityLevel names one of the five levels
	Level *types.ActivityLevel `json:"-"`
}

// Agrees reports whether the opinion matches level
func (o *Opinion) Agrees(level types.ActivityLevel) bool {
	return o.Level != nil && *o.Level == level
}

// ShouldReview reports whether a result is uncertain enough to ask for a second opinion
func ShouldReview(r *types.AnalysisResult, minConfidence float64) bool {
	return r != nil && r.ConfidenceScore < minConfidence
}

// Review asks the model to classify fish activity in img
func (r *Reviewer) Review(ctx context.Context, img image.Image) (*Opinion, error) {
	if r == nil || r.client == nil {
		return nil, ErrNoReviewer
	}

	imgB64, err := EncodeImage(img)
	if err != nil {
		return nil, err
	}

	raw, err := r.client.AssessActivity(ctx, r.model, ActivityPrompt, imgB64)
	if err != nil {
		return nil, fmt.Errorf("review request failed: %w", err)
	}
	return normalize(raw), nil
}

// Describe returns the model's free-text description of img
func (r *Reviewer) Describe(ctx context.Context, img image.Image) (string, error) {
	if r == nil || r.client == nil {
		return "", ErrNoReviewer
	}
	imgB64, err := EncodeImage(img)
	if err != nil {
		return "", err
	}
	return r.client.SimpleQuery(ctx, r.model, DescribePrompt, imgB64)
}

// Outcome is a second opinion plus, when the opinion is unusable, the
// model's own description of the frame
type Outcome struct {
	Opinion     *Opinion `json:"opinion,omitempty"`
	Description string   `json:"description,omitempty"`
}

// SecondOpinion reviews img. With describe set, a failed or unclear review
// is followed by a Describe call so the operator can tell whether the model
// saw the pond at all. The returned error is the review error, joined with
// the describe error if that failed too.
func (r *Reviewer) SecondOpinion(ctx context.Context, img image.Image, describe bool) (*Outcome, error) {
	op, err := r.Review(ctx, img)
	out := &Outcome{Opinion: op}
	if !describe || errors.Is(err, ErrNoReviewer) || (err == nil && op.Level != nil) {
		return out, err
	}

	text, descErr := r.Describe(ctx, img)
	if descErr != nil {
		return out, errors.Join(err, fmt.Errorf("describe failed: %w", descErr))
	}
	out.Description = strings.TrimSpace(text)
	return out, err
}

func normalize(raw *types.ActivityOpinion) *Opinion {
	op := &Opinion{ActivityOpinion: *raw}
	op.Confidence = clamp(op.Confidence, 0, 1)
	op.Reasoning = strings.TrimSpace(op.Reasoning)

	if level, err := types.ParseActivityLevel(op.ActivityLevel); err == nil {
		op.ActivityLevel = level.String()
		op.Level = &level
	} else {
		op.ActivityLevel = client.Unclear
		op.Confidence = 0
	}
	return op
}

// EncodeImage downsizes img to fit MaxImageSize and returns it as base64 JPEG
func EncodeImage(img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", fmt.Errorf("empty image")
	}

	b := img.Bounds()
	if b.Dx() > MaxImageSize || b.Dy() > MaxImageSize {
		img = imaging.Fit(img, MaxImageSize, MaxImageSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
