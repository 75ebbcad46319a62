package media

import (
	"context"
	"image/color"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	info, err := parseProbe([]byte(`{"streams":[{"width":1280,"height":720,"nb_frames":"901"}]}`))
	require.NoError(t, err)
	assert.Equal(t, VideoInfo{Width: 1280, Height: 720, Frames: 901}, info)
}

func TestParseProbeUnknownFrameCount(t *testing.T) {
	info, err := parseProbe([]byte(`{"streams":[{"width":640,"height":480,"nb_frames":"N/A"}]}`))
	require.NoError(t, err)
	assert.Zero(t, info.Frames)
}

func TestParseProbeErrors(t *testing.T) {
	_, err := parseProbe([]byte(`{"streams":[]}`))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = parseProbe([]byte(`{"streams":[{"width":0,"height":0}]}`))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = parseProbe([]byte(`garbage`))
	assert.Error(t, err)
}

func TestDecodeArgsRequestRGB(t *testing.T) {
	args := decodeArgs("pond.mp4")
	assert.Contains(t, args, "rgb24")
	assert.Contains(t, args, "rawvideo")
	assert.Equal(t, "-", args[len(args)-1])
}

func TestRGBToNRGBA(t *testing.T) {
	rgb := []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 10, 20, 30,
	}
	img := rgbToNRGBA(rgb, 2, 2)

	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, img.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, img.NRGBAAt(0, 1))
	assert.Equal(t, color.NRGBA{10, 20, 30, 255}, img.NRGBAAt(1, 1))
}

func TestFFmpegDecoderMissingFile(t *testing.T) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}

	decoder := NewFFmpegDecoder("", "")
	_, err := decoder.Probe(context.Background(), "/nonexistent/pond.mp4")
	assert.Error(t, err)
}

func TestFFmpegDecoderRejectsUnprobedInfo(t *testing.T) {
	decoder := NewFFmpegDecoder("/nonexistent/ffmpeg", "/nonexistent/ffprobe")
	err := decoder.Decode(context.Background(), "pond.mp4", VideoInfo{},
		func(int) bool { return true },
		func(Frame) bool { return true })
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}
