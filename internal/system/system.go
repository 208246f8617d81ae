// Package system wraps the host environment: file limits, ffmpeg discovery,
// encoder detection and file lookup helpers.
package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Encoder is an H.264 encoder ffmpeg can use, with the flags that express
// quality for it.
type Encoder struct {
	Name string
}

// QualityArgs maps quality to encoder flags. For hardware encoders the value
// is scaled into a bitrate or constant-quality target.
func (e Encoder) QualityArgs(quality int) []string {
	switch e.Name {
	case "h264_videotoolbox":
		// VideoToolbox ignores -q:v on many builds, so use a bitrate: 75 -> 7.5 Mbit/s.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", strconv.Itoa(quality)}
	default:
		return []string{"-crf", strconv.Itoa(quality), "-preset", "medium"}
	}
}

// InitResourceLimits raises the open file limit; media decoding keeps a pipe
// per clip open for the whole export.
func InitResourceLimits(logger zerolog.Logger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn().Err(err).Msg("read open file limit")
		return
	}

	want := uint64(2048)
	if want > uint64(rLimit.Max) {
		want = uint64(rLimit.Max)
	}
	if uint64(rLimit.Cur) >= want {
		return
	}
	rLimit.Cur = want

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn().Err(err).Msg("raise open file limit")
		return
	}
	logger.Debug().Uint64("limit", want).Msg("open file limit raised")
}

// FindTool resolves an executable, preferring an explicit path.
func FindTool(explicit, name string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%s not found at %s: %w", name, explicit, err)
		}
		return explicit, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	return path, nil
}

// FindLatest returns the most recently modified file in dir whose extension
// is one of exts (case-insensitive, with leading dot).
func FindLatest(dir string, exts ...string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExt(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files in %s", strings.Join(exts, "/"), dir)
	}
	return latestFile, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// FindLatestScript finds the newest scenario script in dir.
func FindLatestScript(dir string) (string, error) {
	return FindLatest(dir, ".yaml", ".yml")
}

// FindLatestAudio finds the newest audio file in dir.
func FindLatestAudio(dir string) (string, error) {
	return FindLatest(dir, ".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac")
}

// MediaDuration asks ffprobe for the container duration of path.
func MediaDuration(ctx context.Context, ffprobe, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, ffprobe, "-v", "error", "-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	return ParseSeconds(string(out))
}

// ParseSeconds parses a decimal seconds value as printed by ffprobe.
func ParseSeconds(s string) (time.Duration, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return time.Duration(v * float64(time.Second)), nil
}

// ListEncoders returns the raw "ffmpeg -encoders" listing.
func ListEncoders(ctx context.Context, ffmpeg string) (string, error) {
	out, err := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("list encoders: %w", err)
	}
	return string(out), nil
}

// GetBestH264Encoder picks a hardware encoder when ffmpeg was built with one.
// Priorities: VideoToolbox (macOS), NVENC (NVIDIA), software libx264.
func GetBestH264Encoder(ctx context.Context, ffmpeg string) Encoder {
	listing, err := ListEncoders(ctx, ffmpeg)
	if err != nil {
		return Encoder{Name: "libx264"}
	}
	return PickH264Encoder(listing)
}

// PickH264Encoder applies the encoder priority to an encoder listing.
func PickH264Encoder(listing string) Encoder {
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if HasEncoder(listing, name) {
			return Encoder{Name: name}
		}
	}
	return Encoder{Name: "libx264"}
}

// HasEncoder reports whether an encoder listing mentions name as a whole word.
func HasEncoder(listing, name string) bool {
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}
