package review

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/pond-analyzer/pkg/client"
	"github.com/menta2k/pond-analyzer/pkg/types"
)

type fakeClient struct {
	opinion     *types.ActivityOpinion
	err         error
	describeErr error
	prompt      string
	image       string
	described   int
}

func (f *fakeClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	f.prompt = prompt
	f.described++
	if f.describeErr != nil {
		return "", f.describeErr
	}
	return " a green pond ", nil
}

func (f *fakeClient) AssessActivity(ctx context.Context, model, prompt, imgB64 string) (*types.ActivityOpinion, error) {
	f.prompt, f.image = prompt, imgB64
	if f.err != nil {
		return nil, f.err
	}
	return f.opinion, nil
}

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{20, uint8(100 + y%50), uint8(120 + x%60), 255})
		}
	}
	return img
}

func TestReviewNormalizesLabel(t *testing.T) {
	fc := &fakeClient{opinion: &types.ActivityOpinion{ActivityLevel: " feeding ", Confidence: 1.4, Reasoning: " splashing "}}
	op, err := NewReviewer(fc, "llava").Review(context.Background(), createTestImage(64, 48))
	require.NoError(t, err)

	assert.Equal(t, "Feeding", op.ActivityLevel)
	assert.Equal(t, 1.0, op.Confidence)
	assert.Equal(t, "splashing", op.Reasoning)
	assert.True(t, op.Agrees(types.Feeding))
	assert.False(t, op.Agrees(types.Low))
	assert.Equal(t, ActivityPrompt, fc.prompt)
	assert.NotEmpty(t, fc.image)
}

func TestReviewUnknownLabel(t *testing.T) {
	fc := &fakeClient{opinion: &types.ActivityOpinion{ActivityLevel: "sleepy", Confidence: 0.9}}
	op, err := NewReviewer(fc, "m").Review(context.Background(), createTestImage(10, 10))
	require.NoError(t, err)
	assert.Equal(t, client.Unclear, op.ActivityLevel)
	assert.Zero(t, op.Confidence)
	assert.Nil(t, op.Level)
	assert.False(t, op.Agrees(types.Low))
}

func TestReviewErrors(t *testing.T) {
	var nilReviewer *Reviewer
	_, err := nilReviewer.Review(context.Background(), createTestImage(4, 4))
	assert.ErrorIs(t, err, ErrNoReviewer)

	boom := errors.New("connection refused")
	_, err = NewReviewer(&fakeClient{err: boom}, "m").Review(context.Background(), createTestImage(4, 4))
	assert.ErrorIs(t, err, boom)

	_, err = NewReviewer(&fakeClient{}, "m").Review(context.Background(), image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	fc := &fakeClient{}
	text, err := NewReviewer(fc, "m").Describe(context.Background(), createTestImage(8, 8))
	require.NoError(t, err)
	assert.Equal(t, " a green pond ", text)
	assert.Equal(t, DescribePrompt, fc.prompt)
}

func TestEncodeImageDownscales(t *testing.T) {
	encoded, err := EncodeImage(createTestImage(1920, 1080))
	require.NoError(t, err)

	data, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, MaxImageSize, img.Bounds().Dx())
	assert.Equal(t, 432, img.Bounds().Dy())
}

func TestShouldReview(t *testing.T) {
	assert.True(t, ShouldReview(&types.AnalysisResult{ConfidenceScore: 0.6}, 0.7))
	assert.False(t, ShouldReview(&types.AnalysisResult{ConfidenceScore: 0.7}, 0.7))
	assert.False(t, ShouldReview(nil, 0.7))
}

func TestSecondOpinion(t *testing.T) {
	boom := errors.New("connection refused")
	img := createTestImage(16, 16)

	t.Run("clear opinion skips describe", func(t *testing.T) {
		fc := &fakeClient{opinion: &types.ActivityOpinion{ActivityLevel: "High", Confidence: 0.8}}
		out, err := NewReviewer(fc, "m").SecondOpinion(context.Background(), img, true)
		require.NoError(t, err)
		assert.Equal(t, "High", out.Opinion.ActivityLevel)
		assert.Empty(t, out.Description)
		assert.Zero(t, fc.described)
	})

	t.Run("unclear opinion is described", func(t *testing.T) {
		fc := &fakeClient{opinion: &types.ActivityOpinion{ActivityLevel: "unclear"}}
		out, err := NewReviewer(fc, "m").SecondOpinion(context.Background(), img, true)
		require.NoError(t, err)
		assert.Equal(t, client.Unclear, out.Opinion.ActivityLevel)
		assert.Equal(t, "a green pond", out.Description)
		assert.Equal(t, DescribePrompt, fc.prompt)
	})

	t.Run("failed review is described", func(t *testing.T) {
		fc := &fakeClient{err: boom}
		out, err := NewReviewer(fc, "m").SecondOpinion(context.Background(), img, true)
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, out.Opinion)
		assert.Equal(t, "a green pond", out.Description)
	})

	t.Run("describe failure is joined", func(t *testing.T) {
		offline := errors.New("model not loaded")
		fc := &fakeClient{err: boom, describeErr: offline}
		_, err := NewReviewer(fc, "m").SecondOpinion(context.Background(), img, true)
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, offline)
	})

	t.Run("describe disabled", func(t *testing.T) {
		fc := &fakeClient{opinion: &types.ActivityOpinion{ActivityLevel: "sleepy"}}
		out, err := NewReviewer(fc, "m").SecondOpinion(context.Background(), img, false)
		require.NoError(t, err)
		assert.Empty(t, out.Description)
		assert.Zero(t, fc.described)
	})
}
