// Package media supplies decoded frames and metadata for external video and
// audio files through ffprobe and ffmpeg.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Info describes a media file.
type Info struct {
	Path     string
	Duration time.Duration
	Width    int
	Height   int
	FPS      float64
	HasVideo bool
	HasAudio bool
}

// Loader probes media files and opens clips decoded at a fixed frame rate.
type Loader struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	fps         float64
}

// NewLoader resolves ffmpeg and ffprobe. Empty paths are looked up in PATH.
func NewLoader(logger zerolog.Logger, ffmpegPath, ffprobePath string, fps float64) (*Loader, error) {
	var err error
	if ffmpegPath == "" {
		if ffmpegPath, err = exec.LookPath("ffmpeg"); err != nil {
			return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
	}
	if ffprobePath == "" {
		if ffprobePath, err = exec.LookPath("ffprobe"); err != nil {
			return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
		}
	}
	if fps <= 0 {
		fps = 30
	}
	return &Loader{
		logger:      logger.With().Str("component", "media").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		fps:         fps,
	}, nil
}

// Probe reads duration and stream information.
func (l *Loader) Probe(ctx context.Context, path string) (*Info, error) {
	if path == "" {
		return nil, errors.New("file path is required")
	}
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	out, err := exec.CommandContext(ctx, l.ffprobePath, args...).Output()
	if err != nil {
		return nil, errors.Wrapf(err, "ffprobe %s", path)
	}
	info, err := parseProbe(out)
	if err != nil {
		return nil, errors.Wrapf(err, "ffprobe %s", path)
	}
	info.Path = path
	return info, nil
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

func parseProbe(data []byte) (*Info, error) {
	var probe probeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.Wrap(err, "failed to parse ffprobe output")
	}
	info := &Info{}
	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(dur * float64(time.Second))
	}
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if info.HasVideo {
				continue
			}
			info.HasVideo = true
			info.Width = s.Width
			info.Height = s.Height
			info.FPS = parseFrameRate(s.RFrameRate)
		case "audio":
			info.HasAudio = true
		}
	}
	if info.Duration <= 0 {
		return nil, errors.New("media has no duration")
	}
	return info, nil
}

// parseFrameRate parses ffprobe rates such as "30000/1001".
func parseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// Open prepares a clip covering [trimStart, trimEnd) of the file. A zero or
// out of range trimEnd means the end of the file. Decoders started by the
// clip are bound to ctx.
func (l *Loader) Open(ctx context.Context, path string, trimStart, trimEnd time.Duration) (*Clip, error) {
	info, err := l.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	if !info.HasVideo {
		return nil, errors.Errorf("%s has no video stream", path)
	}
	if trimStart < 0 || trimStart >= info.Duration {
		return nil, errors.Errorf("trim start %v outside %s (%v)", trimStart, path, info.Duration)
	}
	if trimEnd <= 0 || trimEnd > info.Duration {
		trimEnd = info.Duration
	}
	if trimEnd <= trimStart {
		return nil, errors.Errorf("empty clip range [%v, %v]", trimStart, trimEnd)
	}
	return &Clip{
		ctx:       ctx,
		loader:    l,
		info:      *info,
		trimStart: trimStart,
		length:    trimEnd - trimStart,
		current:   -1,
	}, nil
}

// Resource is an opened piece of media that can be drawn frame by frame.
type Resource interface {
	Length() time.Duration
	FrameAt(t time.Duration) (image.Image, error)
	Close() error
}

// Load is Open returning the Resource interface.
func (l *Loader) Load(ctx context.Context, path string, trimStart, trimEnd time.Duration) (Resource, error) {
	clip, err := l.Open(ctx, path, trimStart, trimEnd)
	if err != nil {
		return nil, err
	}
	return clip, nil
}
