// Package preprocess converts decoded frames into the normalized tensor layout
// consumed by the activity model.
package preprocess

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// InputSize is the square edge length the model expects
const InputSize = 224

// Channels is the number of colour channels in a tensor (RGB)
const Channels = 3

// Per-channel normalization constants in RGB order
var (
	Mean = [Channels]float32{0.485, 0.456, 0.406}
	Std  = [Channels]float32{0.229, 0.224, 0.225}
)

// ErrEmptyFrame is returned for frames with no pixels
var ErrEmptyFrame = errors.New("frame has no pixels")

// Tensor is a channel-first 3xHxW float32 array
type Tensor struct {
	Data   []float32
	Height int
	Width  int
}

// NewTensor allocates a zeroed tensor of the model input shape
func NewTensor() *Tensor {
	return &Tensor{
		Data:   make([]float32, Channels*InputSize*InputSize),
		Height: InputSize,
		Width:  InputSize,
	}
}

// Shape returns channels, height and width
func (t *Tensor) Shape() [3]int {
	return [3]int{Channels, t.Height, t.Width}
}

// At returns the value at channel c, row y, column x
func (t *Tensor) At(c, y, x int) float32 {
	return t.Data[(c*t.Height+y)*t.Width+x]
}

// Preprocessor resizes and normalizes frames
type Preprocessor struct {
	filter imaging.ResampleFilter
}

// New creates a Preprocessor using bilinear resampling
func New() *Preprocessor {
	return &Preprocessor{filter: imaging.Linear}
}

// Preprocess stretches img to InputSize x InputSize, scales to [0,1] and
// applies per-channel mean/std normalization. The result depends only on the
// input pixels and the resample filter.
func (p *Preprocessor) Preprocess(img image.Image) (*Tensor, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}

	resized := imaging.Resize(img, InputSize, InputSize, p.filter)
	tensor := NewTensor()
	plane := InputSize * InputSize

	for y := 0; y < InputSize; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+InputSize*4]
		for x := 0; x < InputSize; x++ {
			px := row[x*4 : x*4+3]
			offset := y*InputSize + x
			for c := 0; c < Channels; c++ {
				tensor.Data[c*plane+offset] = (float32(px[c])/255 - Mean[c]) / Std[c]
			}
		}
	}

	return tensor, nil
}
