package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDecoder emulates a video of n frames whose pixel value encodes the frame index
type fakeDecoder struct {
	frames    int
	declared  int
	decodeErr error
	decoded   int
	probes    int
	released  bool
	info      VideoInfo
}

func (f *fakeDecoder) Probe(ctx context.Context, path string) (VideoInfo, error) {
	f.probes++
	return VideoInfo{Width: 4, Height: 4, Frames: f.declared}, nil
}

func (f *fakeDecoder) Decode(ctx context.Context, path string, info VideoInfo, keep func(int) bool, emit func(Frame) bool) error {
	f.info = info
	defer func() { f.released = true }()
	if f.decodeErr != nil {
		return f.decodeErr
	}
	for i := 0; i < f.frames; i++ {
		f.decoded++
		if !keep(i) {
			continue
		}
		img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
		img.Set(0, 0, color.NRGBA{uint8(i % 256), 0, 0, 255})
		if !emit(Frame{Index: i, Image: img}) {
			return nil
		}
	}
	return nil
}

// createTestImage creates a simple gradient test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8((x * 255) / width), uint8((y * 255) / height), 128, 255})
		}
	}
	return img
}

func TestClassify(t *testing.T) {
	sampler := NewWithConfig(Config{}, &fakeDecoder{})

	tests := []struct {
		path     string
		expected Kind
	}{
		{"pond.mp4", KindVideo},
		{"pond.AVI", KindVideo},
		{"dir.v2/pond.mov", KindVideo},
		{"pond.jpg", KindImage},
		{"pond.png", KindImage},
		{"pond.mkv", KindImage},
		{"pond", KindImage},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, sampler.Classify(test.path).Kind, test.path)
	}
}

func TestSampleInterval(t *testing.T) {
	assert.Equal(t, 1, SampleInterval(0, 30))
	assert.Equal(t, 1, SampleInterval(29, 30))
	assert.Equal(t, 1, SampleInterval(59, 30))
	assert.Equal(t, 2, SampleInterval(60, 30))
	assert.Equal(t, 10, SampleInterval(300, 30))
}

func TestSampleImageReturnsSingleFrame(t *testing.T) {
	dir := t.TempDir()
	sampler := NewWithConfig(Config{}, &fakeDecoder{})

	for _, ext := range []string{"jpg", "png"} {
		path := filepath.Join(dir, "pond."+ext)
		require.NoError(t, imaging.Save(createTestImage(64, 48), path))

		frames, err := sampler.Sample(context.Background(), path)
		require.NoError(t, err)
		require.Len(t, frames, 1, ext)
		assert.Equal(t, 64, frames[0].Image.Bounds().Dx())
		assert.Equal(t, 48, frames[0].Image.Bounds().Dy())
	}
}

func TestSampleUnknownExtensionIsImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pond.png")
	require.NoError(t, imaging.Save(createTestImage(32, 32), src))

	// PNG bytes behind an unrecognised extension are still decoded as an image
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	path := filepath.Join(dir, "pond.capture")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	decoder := &fakeDecoder{frames: 10}
	frames, err := NewWithConfig(Config{}, decoder).Sample(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, frames, 1)
	assert.Zero(t, decoder.decoded)
}

func TestSampleCorruptImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	frames, err := NewWithConfig(Config{}, &fakeDecoder{}).Sample(context.Background(), path)
	assert.Nil(t, frames)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}

func TestSampleMissingImage(t *testing.T) {
	_, err := NewWithConfig(Config{}, &fakeDecoder{}).Sample(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestSampleVideoBoundsAndOrder(t *testing.T) {
	tests := []struct {
		name     string
		frames   int
		declared int
		expected int
	}{
		{"short", 12, 12, 12},
		{"exact", 30, 30, 30},
		{"long", 300, 300, 30},
		{"uneven", 95, 95, 30},
		{"unknown count", 100, 0, 30},
		{"single", 1, 1, 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			decoder := &fakeDecoder{frames: test.frames, declared: test.declared}
			sampler := NewWithConfig(Config{}, decoder)

			frames, err := sampler.Sample(context.Background(), "pond.mp4")
			require.NoError(t, err)
			require.Len(t, frames, test.expected)
			assert.LessOrEqual(t, len(frames), DefaultMaxFrames)
			assert.True(t, decoder.released)
			assert.Equal(t, 1, decoder.probes)
			assert.Equal(t, test.declared, decoder.info.Frames)

			interval := SampleInterval(test.declared, DefaultMaxFrames)
			for i, frame := range frames {
				assert.Equal(t, i*interval, frame.Index)
				if i > 0 {
					assert.Greater(t, frame.Index, frames[i-1].Index)
				}
			}
		})
	}
}

func TestSampleVideoStopsAtBudget(t *testing.T) {
	decoder := &fakeDecoder{frames: 1000, declared: 100}
	frames, err := NewWithConfig(Config{MaxFrames: 5}, decoder).Sample(context.Background(), "pond.mov")
	require.NoError(t, err)
	require.Len(t, frames, 5)
	assert.Equal(t, 80, frames[4].Index)
	assert.Equal(t, 81, decoder.decoded)
}

func TestSampleEmptyVideo(t *testing.T) {
	_, err := NewWithConfig(Config{}, &fakeDecoder{}).Sample(context.Background(), "empty.mp4")
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestSampleVideoDecodeError(t *testing.T) {
	boom := errors.New("codec not supported")
	decoder := &fakeDecoder{frames: 10, declared: 10, decodeErr: boom}

	frames, err := NewWithConfig(Config{}, decoder).Sample(context.Background(), "pond.avi")
	assert.Nil(t, frames)
	assert.ErrorIs(t, err, boom)
	assert.True(t, decoder.released)
}

func TestSaveFrame(t *testing.T) {
	dir := t.TempDir()
	img := createTestImage(40, 30)

	for _, format := range []string{"jpg", "png", "webp"} {
		path := filepath.Join(dir, "frame."+format)
		require.NoError(t, SaveFrame(img, path, format, 90), format)

		loaded, err := LoadImage(path)
		require.NoError(t, err, format)
		assert.Equal(t, 40, loaded.Bounds().Dx(), format)
	}
}

func TestSaveFrameReportsWriteFailure(t *testing.T) {
	img := createTestImage(16, 16)
	missing := filepath.Join(t.TempDir(), "missing", "frame")

	for _, format := range []string{"jpg", "png", "webp"} {
		assert.Error(t, SaveFrame(img, missing+"."+format, format, 90), format)
	}
}

func TestSaveFrameWebPReportsFullDevice(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	assert.Error(t, SaveFrame(createTestImage(16, 16), "/dev/full", "webp", 90))
}
