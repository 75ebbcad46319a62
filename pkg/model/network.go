// Package model implements the dual-head activity model: a convolutional
// backbone shared by a 5-way activity classifier and a feed-amount regressor.
package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/menta2k/pond-analyzer/pkg/preprocess"
	"github.com/menta2k/pond-analyzer/pkg/types"
)

// MinFeedAmount is the lower clamp applied to the feed head output
const MinFeedAmount = 0.5

const convStride = 2

// Output is the raw forward pass result for one tensor
type Output struct {
	Logits        []float64
	Probabilities []float64
	FeedAmount    float64
}

type convLayer struct {
	in, out, kernel int
	weights         []float32
	bias            []float32
}

type denseLayer struct {
	weights *mat.Dense
	bias    *mat.VecDense
}

type head struct {
	hidden denseLayer
	output denseLayer
}

// Network holds immutable model parameters. A Network is safe for
// concurrent use; Forward allocates all intermediate buffers per call.
type Network struct {
	backbone []convLayer
	activity head
	feed     head
}

// NewNetwork builds a network from validated weights
func NewNetwork(w *Weights) (*Network, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	n := &Network{
		activity: newHead(w.ActivityHead),
		feed:     newHead(w.FeedHead),
	}
	for _, l := range w.Backbone {
		n.backbone = append(n.backbone, convLayer{
			in:      l.In,
			out:     l.Out,
			kernel:  l.Kernel,
			weights: append([]float32(nil), l.Weights...),
			bias:    append([]float32(nil), l.Bias...),
		})
	}
	return n, nil
}

func newHead(h HeadWeights) head {
	return head{hidden: newDense(h.Hidden), output: newDense(h.Output)}
}

func newDense(d DenseWeights) denseLayer {
	return denseLayer{
		weights: mat.NewDense(d.Out, d.In, append([]float64(nil), d.Weights...)),
		bias:    mat.NewVecDense(d.Out, append([]float64(nil), d.Bias...)),
	}
}

// EmbeddingSize is the length of the backbone feature vector
func (n *Network) EmbeddingSize() int {
	return n.backbone[len(n.backbone)-1].out
}

// Forward runs the backbone and both heads over t
func (n *Network) Forward(t *preprocess.Tensor) (*Output, error) {
	if t == nil || t.Shape() != [3]int{preprocess.Channels, preprocess.InputSize, preprocess.InputSize} ||
		len(t.Data) != preprocess.Channels*preprocess.InputSize*preprocess.InputSize {
		return nil, fmt.Errorf("%w: input tensor must be 3x%dx%d", ErrShapeMismatch, preprocess.InputSize, preprocess.InputSize)
	}

	embedding := n.embed(t)

	logits := n.activity.forward(embedding)
	probs := softmax(logits)

	feed := n.feed.forward(embedding)[0]

	return &Output{
		Logits:        logits,
		Probabilities: probs,
		FeedAmount:    math.Max(feed, MinFeedAmount),
	}, nil
}

// Predict reduces a forward pass to a frame prediction. The confidence is
// the winning class probability.
func (n *Network) Predict(t *preprocess.Tensor) (types.FramePrediction, error) {
	out, err := n.Forward(t)
	if err != nil {
		return types.FramePrediction{}, err
	}

	class := floats.MaxIdx(out.Probabilities)
	return types.FramePrediction{
		ActivityClass: class,
		Confidence:    out.Probabilities[class],
		FeedAmount:    out.FeedAmount,
	}, nil
}

// embed runs the conv stack and global average pooling
func (n *Network) embed(t *preprocess.Tensor) *mat.VecDense {
	data, h, w := t.Data, t.Height, t.Width
	for i := range n.backbone {
		data, h, w = n.backbone[i].forward(data, h, w)
	}

	channels := n.EmbeddingSize()
	plane := h * w
	pooled := make([]float64, channels)
	for c := 0; c < channels; c++ {
		var sum float64
		for _, v := range data[c*plane : (c+1)*plane] {
			sum += float64(v)
		}
		pooled[c] = sum / float64(plane)
	}
	return mat.NewVecDense(channels, pooled)
}

// forward applies a padded stride-2 convolution followed by ReLU
func (l *convLayer) forward(in []float32, h, w int) ([]float32, int, int) {
	k := l.kernel
	pad := k / 2
	oh := (h+2*pad-k)/convStride + 1
	ow := (w+2*pad-k)/convStride + 1
	out := make([]float32, l.out*oh*ow)

	for o := 0; o < l.out; o++ {
		kernels := l.weights[o*l.in*k*k : (o+1)*l.in*k*k]
		dst := out[o*oh*ow : (o+1)*oh*ow]
		for oy := 0; oy < oh; oy++ {
			for ox := 0; ox < ow; ox++ {
				sum := l.bias[o]
				for i := 0; i < l.in; i++ {
					src := in[i*h*w : (i+1)*h*w]
					kern := kernels[i*k*k : (i+1)*k*k]
					for ky := 0; ky < k; ky++ {
						iy := oy*convStride - pad + ky
						if iy < 0 || iy >= h {
							continue
						}
						for kx := 0; kx < k; kx++ {
							ix := ox*convStride - pad + kx
							if ix < 0 || ix >= w {
								continue
							}
							sum += src[iy*w+ix] * kern[ky*k+kx]
						}
					}
				}
				dst[oy*ow+ox] = max(sum, 0)
			}
		}
	}
	return out, oh, ow
}

func (h *head) forward(x *mat.VecDense) []float64 {
	hidden := h.hidden.forward(x)
	for i := 0; i < hidden.Len(); i++ {
		hidden.SetVec(i, math.Max(hidden.AtVec(i), 0))
	}
	return h.output.forward(hidden).RawVector().Data
}

func (d *denseLayer) forward(x *mat.VecDense) *mat.VecDense {
	rows, _ := d.weights.Dims()
	y := mat.NewVecDense(rows, nil)
	y.MulVec(d.weights, x)
	y.AddVec(y, d.bias)
	return y
}

// softmax computes exp(x_i - logsumexp(x)) so large logits do not overflow
func softmax(logits []float64) []float64 {
	lse := floats.LogSumExp(logits)
	probs := make([]float64, len(logits))
	for i, v := range logits {
		probs[i] = math.Exp(v - lse)
	}
	return probs
}
