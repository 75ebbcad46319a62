// Package media turns a media file on disk into a bounded, ordered sequence of
// RGB frames. Video files are sampled at a fixed stride across their timeline;
// everything else is decoded as a single still image.
package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultMaxFrames bounds the number of frames sampled from one video
const DefaultMaxFrames = 30

// DefaultVideoExtensions are the extensions treated as video containers
var DefaultVideoExtensions = []string{".mp4", ".avi", ".mov"}

var (
	// ErrUnsupportedMedia is returned when an image cannot be decoded by any registered decoder
	ErrUnsupportedMedia = errors.New("unsupported or corrupt media")
	// ErrNoFrames is returned when a video yields no decodable frames
	ErrNoFrames = errors.New("no frames decoded")
)

// Kind is the media kind inferred from a file name
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Input is a media path with its inferred kind
type Input struct {
	Path string
	Kind Kind
}

// Frame is a decoded RGB raster together with its index in the source timeline
type Frame struct {
	Index int
	Image image.Image
}

// VideoInfo describes the first video stream of a container
type VideoInfo struct {
	Width  int
	Height int
	// Frames is the frame count the container declares, 0 if unknown
	Frames int
}

// VideoDecoder reads frames from a video container
type VideoDecoder interface {
	// Probe reads the stream geometry and declared frame count.
	Probe(ctx context.Context, path string) (VideoInfo, error)

	// Decode streams frames in temporal order using info from Probe. keep is
	// consulted for every frame index and only kept frames are converted and
	// passed to emit. Decoding stops when emit returns false or the stream
	// ends, and every resource opened for the stream is released before
	// Decode returns.
	Decode(ctx context.Context, path string, info VideoInfo, keep func(index int) bool, emit func(Frame) bool) error
}

// Config holds configuration for the sampler
type Config struct {
	MaxFrames       int
	VideoExtensions []string
}

// Sampler selects frames from images and videos
type Sampler struct {
	config  Config
	decoder VideoDecoder
}

// New creates a Sampler with default configuration and the ffmpeg decoder
func New() *Sampler {
	return &Sampler{
		config: Config{
			MaxFrames:       DefaultMaxFrames,
			VideoExtensions: DefaultVideoExtensions,
		},
		decoder: NewFFmpegDecoder("", ""),
	}
}

// NewWithConfig creates a Sampler with a custom configuration and decoder
func NewWithConfig(config Config, decoder VideoDecoder) *Sampler {
	if config.MaxFrames <= 0 {
		config.MaxFrames = DefaultMaxFrames
	}
	if len(config.VideoExtensions) == 0 {
		config.VideoExtensions = DefaultVideoExtensions
	}
	if decoder == nil {
		decoder = NewFFmpegDecoder("", "")
	}
	return &Sampler{config: config, decoder: decoder}
}

// Classify infers the media kind from the file extension.
// Unrecognised extensions are treated as images.
func (s *Sampler) Classify(path string) Input {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" && slices.ContainsFunc(s.config.VideoExtensions, func(v string) bool {
		return strings.EqualFold(v, ext)
	}) {
		return Input{Path: path, Kind: KindVideo}
	}
	return Input{Path: path, Kind: KindImage}
}

// MaxFrames returns the per-video frame budget
func (s *Sampler) MaxFrames() int {
	return s.config.MaxFrames
}

// Sample decodes the frames to analyse for path
func (s *Sampler) Sample(ctx context.Context, path string) ([]Frame, error) {
	input := s.Classify(path)
	if input.Kind == KindVideo {
		return s.sampleVideo(ctx, input.Path)
	}

	img, err := LoadImage(input.Path)
	if err != nil {
		return nil, err
	}
	return []Frame{{Index: 0, Image: img}}, nil
}

func (s *Sampler) sampleVideo(ctx context.Context, path string) ([]Frame, error) {
	info, err := s.decoder.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video %s: %w", path, err)
	}

	interval := SampleInterval(info.Frames, s.config.MaxFrames)
	frames := make([]Frame, 0, s.config.MaxFrames)

	err = s.decoder.Decode(ctx, path, info,
		func(index int) bool { return index%interval == 0 },
		func(frame Frame) bool {
			frames = append(frames, frame)
			return len(frames) < s.config.MaxFrames
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to decode video %s: %w", path, err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFrames, path)
	}
	return frames, nil
}

// SampleInterval is the stride between kept frames for a video of total frames
func SampleInterval(total, maxFrames int) int {
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	return max(1, total/maxFrames)
}
