package model

import (
	"fmt"
	"log/slog"

	"github.com/mdobak/go-xerrors"

	"github.com/menta2k/pond-analyzer/internal/utils"
	"github.com/menta2k/pond-analyzer/pkg/preprocess"
	"github.com/menta2k/pond-analyzer/pkg/types"
)

// Handle is the model capability chosen once at startup: either *Loaded or
// *Unavailable. Callers dispatch on the concrete type.
type Handle interface {
	handle()
}

// Loaded wraps a ready network
type Loaded struct {
	Source  string
	network *Network
}

// Unavailable records why no network could be loaded. It has no predict
// method; callers must route around it.
type Unavailable struct {
	Reason error
}

func (*Loaded) handle()      {}
func (*Unavailable) handle() {}

// NewLoaded wraps an already built network
func NewLoaded(n *Network, source string) *Loaded {
	return &Loaded{Source: source, network: n}
}

// Predict runs the network on one preprocessed frame
func (l *Loaded) Predict(t *preprocess.Tensor) (types.FramePrediction, error) {
	return l.network.Predict(t)
}

// Network returns the underlying network
func (l *Loaded) Network() *Network {
	return l.network
}

func (u *Unavailable) Error() string {
	if u.Reason == nil {
		return "model unavailable"
	}
	return fmt.Sprintf("model unavailable: %v", u.Reason)
}

// Load reads the weight file at path. An empty path or any load failure
// yields *Unavailable; the failure is logged, not returned.
func Load(path string, logger *slog.Logger) Handle {
	if logger == nil {
		logger = utils.GetLogger()
	}
	if path == "" {
		logger.Info("no model weights configured, fallback predictor will be used")
		return &Unavailable{Reason: ErrNoWeights}
	}

	w, err := LoadWeights(path)
	if err == nil {
		var n *Network
		if n, err = NewNetwork(w); err == nil {
			logger.Info("model loaded", slog.String("path", path), slog.Int("layers", len(w.Backbone)))
			return NewLoaded(n, path)
		}
	}

	err = xerrors.New(err)
	logger.Warn("failed to load model, fallback predictor will be used",
		slog.String("path", path),
		slog.Any("error", err))
	return &Unavailable{Reason: err}
}

// IsLoaded reports whether h can run inference
func IsLoaded(h Handle) bool {
	_, ok := h.(*Loaded)
	return ok
}
