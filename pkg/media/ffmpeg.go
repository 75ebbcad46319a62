package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder decodes video through the ffprobe and ffmpeg executables.
// Frames are piped as raw rgb24 so the channel order is RGB regardless of codec.
type FFmpegDecoder struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpegDecoder creates a decoder; empty paths resolve ffmpeg/ffprobe from PATH
func NewFFmpegDecoder(ffmpegPath, ffprobePath string) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegDecoder{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

type probeOutput struct {
	Streams []struct {
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		NbFrames string `json:"nb_frames"`
	} `json:"streams"`
}

// Probe runs ffprobe on the first video stream
func (d *FFmpegDecoder) Probe(ctx context.Context, path string) (VideoInfo, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.FFprobePath, probeArgs(path)...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseProbe(out)
}

// Decode streams rgb24 frames from ffmpeg's stdout
func (d *FFmpegDecoder) Decode(ctx context.Context, path string, info VideoInfo, keep func(index int) bool, emit func(Frame) bool) error {
	if info.Width <= 0 || info.Height <= 0 {
		return fmt.Errorf("%w: invalid frame size %dx%d", ErrUnsupportedMedia, info.Width, info.Height)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(streamCtx, d.FFmpegPath, decodeArgs(path)...)
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	frameSize := info.Width * info.Height * 3
	buf := make([]byte, frameSize)
	reader := bufio.NewReaderSize(stdout, frameSize)

	stopped := false
	var readErr error
	for index := 0; ; index++ {
		if _, err := io.ReadFull(reader, buf); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				readErr = err
			}
			break
		}
		if !keep(index) {
			continue
		}
		if !emit(Frame{Index: index, Image: rgbToNRGBA(buf, info.Width, info.Height)}) {
			stopped = true
			break
		}
	}

	// Wait releases the stdout pipe; the remaining stream is abandoned on early stop.
	if stopped {
		cancel()
	}
	waitErr := cmd.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if stopped {
		return nil
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
	}
	return readErr
}

func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,nb_frames",
		"-of", "json",
		path,
	}
}

func decodeArgs(path string) []string {
	return []string{
		"-nostdin",
		"-v", "error",
		"-noautorotate",
		"-i", path,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	}
}

func parseProbe(data []byte) (VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return VideoInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return VideoInfo{}, fmt.Errorf("%w: no video stream", ErrUnsupportedMedia)
	}

	stream := out.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return VideoInfo{}, fmt.Errorf("%w: invalid frame size %dx%d", ErrUnsupportedMedia, stream.Width, stream.Height)
	}

	// nb_frames is "N/A" for some containers; treat it as unknown
	frames, err := strconv.Atoi(stream.NbFrames)
	if err != nil || frames < 0 {
		frames = 0
	}

	return VideoInfo{Width: stream.Width, Height: stream.Height, Frames: frames}, nil
}

func rgbToNRGBA(rgb []byte, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for src, dst := 0, 0; src+2 < len(rgb) && dst+3 < len(img.Pix); src, dst = src+3, dst+4 {
		img.Pix[dst+0] = rgb[src+0]
		img.Pix[dst+1] = rgb[src+1]
		img.Pix[dst+2] = rgb[src+2]
		img.Pix[dst+3] = 0xff
	}
	return img
}
