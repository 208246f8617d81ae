// Package video builds the ffmpeg invocation that turns a raw frame stream
// plus audio files into the final media file, and runs it.
package video

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ivlev/stickmotion/internal/system"
)

// ErrUnsupportedAlphaContainer is returned when alpha output is requested for
// a container other than .mov or .webm.
var ErrUnsupportedAlphaContainer = errors.New("alpha output needs a .mov or .webm file")

// AudioInput is one audio file placed on the output timeline.
type AudioInput struct {
	Path string
	// Start and End are absolute positions in the output.
	Start time.Duration
	End   time.Duration
	// TrimStart skips into the source file.
	TrimStart time.Duration
}

func (a AudioInput) Duration() time.Duration { return a.End - a.Start }

// Params describes one export.
type Params struct {
	Width   int
	Height  int
	FPS     float64
	Alpha   bool
	Output  string
	Encoder system.Encoder
	Quality int
	// Duration caps the output length; zero leaves it to the frame stream.
	Duration time.Duration
	Audio    []AudioInput
}

// PixelFormat is the raw input layout ffmpeg reads from stdin.
func (p Params) PixelFormat() string {
	if p.Alpha {
		return "bgra"
	}
	return "rgb24"
}

// FrameSize is the byte length of one raw frame.
func (p Params) FrameSize() int {
	if p.Alpha {
		return p.Width * p.Height * 4
	}
	return p.Width * p.Height * 3
}

func (p Params) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", p.Width, p.Height)
	}
	if p.FPS <= 0 {
		return fmt.Errorf("invalid fps %v", p.FPS)
	}
	if p.Output == "" {
		return errors.New("no output path")
	}
	if !p.Alpha && (p.Width%2 != 0 || p.Height%2 != 0) {
		return fmt.Errorf("yuv420p needs even dimensions, got %dx%d", p.Width, p.Height)
	}
	for i, a := range p.Audio {
		if a.End <= a.Start {
			return fmt.Errorf("audio input %d (%s) has empty range", i, a.Path)
		}
	}
	_, err := codecArgs(p)
	return err
}

func secs(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// BuildArgs returns the ffmpeg arguments for p, without the binary name.
func BuildArgs(p Params) ([]string, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	codec, err := codecArgs(p)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", p.PixelFormat(),
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", strconv.FormatFloat(p.FPS, 'f', -1, 64),
		"-i", "-",
	}
	for _, a := range p.Audio {
		args = append(args, "-i", a.Path)
	}

	args = append(args, "-map", "0:v")
	if len(p.Audio) > 0 {
		graph, out := AudioFilterGraph(p.Audio, 1)
		args = append(args, "-filter_complex", graph, "-map", out)
	}

	args = append(args, codec...)
	if p.Duration > 0 {
		args = append(args, "-t", secs(p.Duration))
	}
	args = append(args, p.Output)
	return args, nil
}

// AudioFilterGraph trims every input to its length, delays all of its
// channels to its start and mixes the results when there is more than one.
// firstInput is the ffmpeg index of the first audio input. It returns the
// graph and the label of the final stream.
func AudioFilterGraph(inputs []AudioInput, firstInput int) (string, string) {
	var parts []string
	var labels string
	for i, a := range inputs {
		ms := a.Start.Milliseconds()
		label := fmt.Sprintf("[a%d]", i)
		parts = append(parts, fmt.Sprintf(
			"[%d:a]atrim=start=%s:duration=%s,asetpts=PTS-STARTPTS,adelay=delays=%d:all=1%s",
			firstInput+i, secs(a.TrimStart), secs(a.Duration()), ms, label,
		))
		labels += label
	}
	if len(inputs) == 1 {
		return parts[0], "[a0]"
	}
	parts = append(parts, fmt.Sprintf("%samix=inputs=%d:duration=longest:dropout_transition=0[aout]", labels, len(inputs)))
	return strings.Join(parts, ";"), "[aout]"
}

// codecArgs selects the video and audio codecs. Without alpha the detected
// H.264 encoder is used; with alpha the container picks the codec.
func codecArgs(p Params) ([]string, error) {
	if !p.Alpha {
		enc := p.Encoder
		if enc.Name == "" {
			enc.Name = "libx264"
		}
		args := []string{"-c:v", enc.Name, "-pix_fmt", "yuv420p"}
		args = append(args, enc.QualityArgs(p.Quality)...)
		return append(args, "-c:a", "aac", "-b:a", "192k"), nil
	}

	switch strings.ToLower(filepath.Ext(p.Output)) {
	case ".mov":
		return []string{
			"-c:v", "prores_ks", "-profile:v", "4444", "-pix_fmt", "yuva444p10le",
			"-c:a", "pcm_s16le",
		}, nil
	case ".webm":
		return []string{
			"-c:v", "libvpx-vp9", "-pix_fmt", "yuva420p", "-b:v", "0", "-crf", strconv.Itoa(p.Quality),
			"-c:a", "libopus",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlphaContainer, p.Output)
	}
}
