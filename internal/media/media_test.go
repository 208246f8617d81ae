package media

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseProbe(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "video", "width": 1280, "height": 720, "r_frame_rate": "30000/1001"},
			{"codec_type": "audio"}
		],
		"format": {"duration": "12.500000"}
	}`)
	info, err := parseProbe(data)
	if err != nil {
		t.Fatal(err)
	}
	if info.Duration != 12500*time.Millisecond {
		t.Errorf("duration = %v", info.Duration)
	}
	if !info.HasVideo || !info.HasAudio {
		t.Errorf("streams not detected: %+v", info)
	}
	if info.Width != 1280 || info.Height != 720 {
		t.Errorf("size = %dx%d", info.Width, info.Height)
	}
	if info.FPS < 29.96 || info.FPS > 29.98 {
		t.Errorf("fps = %f", info.FPS)
	}

	if _, err := parseProbe([]byte(`{"format": {}}`)); err == nil {
		t.Error("expected error for media without duration")
	}
	if _, err := parseProbe([]byte(`not json`)); err == nil {
		t.Error("expected parse error")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := map[string]float64{
		"25/1": 25,
		"24":   24,
		"0/0":  0,
		"":     0,
	}
	for in, want := range tests {
		if got := parseFrameRate(in); got != want {
			t.Errorf("parseFrameRate(%q) = %f, want %f", in, got, want)
		}
	}
}

func TestClipDecode(t *testing.T) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}

	path := filepath.Join(t.TempDir(), "src.mp4")
	gen := exec.Command(ffmpeg, "-v", "error", "-f", "lavfi", "-i", "testsrc=size=64x48:rate=10",
		"-t", "2", "-pix_fmt", "yuv420p", path)
	if out, err := gen.CombinedOutput(); err != nil {
		t.Fatalf("generate test video: %v\n%s", err, out)
	}

	loader, err := NewLoader(zerolog.Nop(), "", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	clip, err := loader.Open(context.Background(), path, 500*time.Millisecond, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer clip.Close()

	if clip.Length() < 1400*time.Millisecond || clip.Length() > 1600*time.Millisecond {
		t.Errorf("length = %v, want about 1.5s", clip.Length())
	}
	for _, at := range []time.Duration{0, 300 * time.Millisecond, 100 * time.Millisecond, 10 * time.Second} {
		img, err := clip.FrameAt(at)
		if err != nil {
			t.Fatalf("FrameAt(%v): %v", at, err)
		}
		if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
			t.Errorf("FrameAt(%v) size = %v", at, b)
		}
	}

	if _, err := loader.Open(context.Background(), path, 5*time.Second, 0); err == nil {
		t.Error("expected error for trim start past the end")
	}
}
