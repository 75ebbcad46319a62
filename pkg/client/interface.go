// Package client defines the vision model backends used for second-opinion review.
package client

import (
	"context"

	"github.com/menta2k/pond-analyzer/pkg/types"
)

// VisionClient sends a prompt and a base64 JPEG frame to a vision language model
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	AssessActivity(ctx context.Context, model, prompt, imgB64 string) (*types.ActivityOpinion, error)
}
