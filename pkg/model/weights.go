package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"github.com/menta2k/pond-analyzer/pkg/preprocess"
	"github.com/menta2k/pond-analyzer/pkg/types"
)

// WeightsVersion is the weight file format version written by SaveWeights
const WeightsVersion = 1

var (
	// ErrNoWeights is the reason a handle is unavailable when no weight file is configured
	ErrNoWeights = errors.New("no model weights configured")
	// ErrShapeMismatch is returned when weight dimensions do not chain together
	ErrShapeMismatch = errors.New("weight shape mismatch")
)

// Default architecture used by RandomWeights
var (
	DefaultBackboneChannels = []int{8, 16, 32, 64}
	DefaultKernelSize       = 3
	DefaultActivityHidden   = 128
	DefaultFeedHidden       = 64
)

// ConvWeights is one stride-2 convolution of the backbone.
// Weights are laid out [out][in][kernel][kernel].
type ConvWeights struct {
	In      int       `json:"in"`
	Out     int       `json:"out"`
	Kernel  int       `json:"kernel"`
	Weights []float32 `json:"weights"`
	Bias    []float32 `json:"bias"`
}

// DenseWeights is a fully connected layer laid out [out][in]
type DenseWeights struct {
	In      int       `json:"in"`
	Out     int       `json:"out"`
	Weights []float64 `json:"weights"`
	Bias    []float64 `json:"bias"`
}

// HeadWeights is a hidden ReLU layer followed by a linear output layer
type HeadWeights struct {
	Hidden DenseWeights `json:"hidden"`
	Output DenseWeights `json:"output"`
}

// Weights is the serialized form of a Network
type Weights struct {
	Version      int           `json:"version"`
	Backbone     []ConvWeights `json:"backbone"`
	ActivityHead HeadWeights   `json:"activity_head"`
	FeedHead     HeadWeights   `json:"feed_head"`
}

// Validate checks that every layer has the declared size and that layers chain
func (w *Weights) Validate() error {
	if len(w.Backbone) == 0 {
		return fmt.Errorf("%w: backbone has no layers", ErrShapeMismatch)
	}

	in := preprocess.Channels
	for i, layer := range w.Backbone {
		if layer.In != in {
			return fmt.Errorf("%w: backbone layer %d expects %d channels, got %d", ErrShapeMismatch, i, layer.In, in)
		}
		if layer.Kernel <= 0 || layer.Kernel%2 == 0 {
			return fmt.Errorf("%w: backbone layer %d kernel must be odd, got %d", ErrShapeMismatch, i, layer.Kernel)
		}
		if layer.Out <= 0 || len(layer.Weights) != layer.Out*layer.In*layer.Kernel*layer.Kernel || len(layer.Bias) != layer.Out {
			return fmt.Errorf("%w: backbone layer %d has %d weights and %d biases", ErrShapeMismatch, i, len(layer.Weights), len(layer.Bias))
		}
		in = layer.Out
	}

	if err := w.ActivityHead.validate("activity", in, types.NumActivityLevels); err != nil {
		return err
	}
	return w.FeedHead.validate("feed", in, 1)
}

func (h *HeadWeights) validate(name string, in, out int) error {
	if h.Hidden.In != in {
		return fmt.Errorf("%w: %s head expects embedding %d, got %d", ErrShapeMismatch, name, h.Hidden.In, in)
	}
	if h.Output.In != h.Hidden.Out {
		return fmt.Errorf("%w: %s head output expects %d inputs, hidden has %d", ErrShapeMismatch, name, h.Output.In, h.Hidden.Out)
	}
	if h.Output.Out != out {
		return fmt.Errorf("%w: %s head must have %d outputs, got %d", ErrShapeMismatch, name, out, h.Output.Out)
	}
	for _, d := range []DenseWeights{h.Hidden, h.Output} {
		if d.In <= 0 || d.Out <= 0 || len(d.Weights) != d.In*d.Out || len(d.Bias) != d.Out {
			return fmt.Errorf("%w: %s head layer %dx%d has %d weights and %d biases", ErrShapeMismatch, name, d.Out, d.In, len(d.Weights), len(d.Bias))
		}
	}
	return nil
}

// LoadWeights reads and validates a JSON weight file
func LoadWeights(path string) (*Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights: %w", err)
	}

	var w Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse weights: %w", err)
	}
	if w.Version != WeightsVersion {
		return nil, fmt.Errorf("unsupported weights version %d", w.Version)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// SaveWeights writes w as JSON to path
func SaveWeights(w *Weights, path string) error {
	if err := w.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write weights: %w", err)
	}
	return nil
}

// RandomWeights returns He-initialised weights for the default architecture.
// The same seed always produces the same weights.
func RandomWeights(seed uint64) *Weights {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	w := &Weights{Version: WeightsVersion}
	in := preprocess.Channels
	k := DefaultKernelSize
	for _, out := range DefaultBackboneChannels {
		std := math.Sqrt(2 / float64(in*k*k))
		layer := ConvWeights{
			In:      in,
			Out:     out,
			Kernel:  k,
			Weights: make([]float32, out*in*k*k),
			Bias:    make([]float32, out),
		}
		for i := range layer.Weights {
			layer.Weights[i] = float32(rng.NormFloat64() * std)
		}
		w.Backbone = append(w.Backbone, layer)
		in = out
	}

	w.ActivityHead = HeadWeights{
		Hidden: randomDense(rng, in, DefaultActivityHidden),
		Output: randomDense(rng, DefaultActivityHidden, types.NumActivityLevels),
	}
	w.FeedHead = HeadWeights{
		Hidden: randomDense(rng, in, DefaultFeedHidden),
		Output: randomDense(rng, DefaultFeedHidden, 1),
	}
	return w
}

func randomDense(rng *rand.Rand, in, out int) DenseWeights {
	std := math.Sqrt(2 / float64(in))
	d := DenseWeights{
		In:      in,
		Out:     out,
		Weights: make([]float64, in*out),
		Bias:    make([]float64, out),
	}
	for i := range d.Weights {
		d.Weights[i] = rng.NormFloat64() * std
	}
	return d
}
