package video

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/stickmotion/internal/system"
)

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestBuildArgsWithoutAlpha(t *testing.T) {
	p := Params{
		Width: 640, Height: 360, FPS: 24,
		Output:  "out.mp4",
		Encoder: system.Encoder{Name: "libx264"},
		Quality: 20,
		Audio: []AudioInput{
			{Path: "speech.wav", Start: 1500 * time.Millisecond, End: 3 * time.Second},
			{Path: "music.mp3", Start: 0, End: 10 * time.Second, TrimStart: 2 * time.Second},
		},
	}
	args, err := BuildArgs(p)
	if err != nil {
		t.Fatal(err)
	}

	if got := argAfter(args, "-pixel_format"); got != "rgb24" {
		t.Errorf("pixel format = %s", got)
	}
	if got := argAfter(args, "-video_size"); got != "640x360" {
		t.Errorf("video size = %s", got)
	}
	if got := argAfter(args, "-framerate"); got != "24" {
		t.Errorf("framerate = %s", got)
	}
	if got := argAfter(args, "-pix_fmt"); got != "yuv420p" {
		t.Errorf("pix_fmt = %s", got)
	}
	if got := argAfter(args, "-crf"); got != "20" {
		t.Errorf("crf = %s", got)
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("output = %s", args[len(args)-1])
	}

	graph := argAfter(args, "-filter_complex")
	want := "[1:a]atrim=start=0.000:duration=1.500,asetpts=PTS-STARTPTS,adelay=delays=1500:all=1[a0];" +
		"[2:a]atrim=start=2.000:duration=10.000,asetpts=PTS-STARTPTS,adelay=delays=0:all=1[a1];" +
		"[a0][a1]amix=inputs=2:duration=longest:dropout_transition=0[aout]"
	if graph != want {
		t.Errorf("filter graph\n got: %s\nwant: %s", graph, want)
	}
	if !strings.Contains(strings.Join(args, " "), "-map 0:v -filter_complex") {
		t.Errorf("video stream not mapped first: %v", args)
	}
}

func TestBuildArgsSingleAudioSkipsMix(t *testing.T) {
	graph, out := AudioFilterGraph([]AudioInput{{Path: "a.wav", Start: time.Second, End: 2 * time.Second}}, 1)
	if out != "[a0]" {
		t.Errorf("out label = %s", out)
	}
	if strings.Contains(graph, "amix") {
		t.Errorf("single input should not be mixed: %s", graph)
	}
	// Surround sources need every channel delayed, not just the first two.
	if !strings.Contains(graph, "adelay=delays=1000:all=1[a0]") {
		t.Errorf("delay does not cover all channels: %s", graph)
	}
}

func TestBuildArgsNoAudio(t *testing.T) {
	args, err := BuildArgs(Params{Width: 2, Height: 2, FPS: 30, Output: "o.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if argAfter(args, "-filter_complex") != "" {
		t.Error("unexpected filter graph without audio")
	}
	if got := argAfter(args, "-c:v"); got != "libx264" {
		t.Errorf("default encoder = %s", got)
	}
}

func TestAlphaContainers(t *testing.T) {
	tests := []struct {
		output string
		codec  string
		pixFmt string
		err    bool
	}{
		{"clip.mov", "prores_ks", "yuva444p10le", false},
		{"clip.WEBM", "libvpx-vp9", "yuva420p", false},
		{"clip.mp4", "", "", true},
		{"clip.gif", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			args, err := BuildArgs(Params{Width: 3, Height: 3, FPS: 24, Alpha: true, Output: tt.output, Quality: 30})
			if tt.err {
				if !errors.Is(err, ErrUnsupportedAlphaContainer) {
					t.Fatalf("err = %v, want ErrUnsupportedAlphaContainer", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := argAfter(args, "-pixel_format"); got != "bgra" {
				t.Errorf("input pixel format = %s", got)
			}
			if got := argAfter(args, "-c:v"); got != tt.codec {
				t.Errorf("codec = %s, want %s", got, tt.codec)
			}
			if got := argAfter(args, "-pix_fmt"); got != tt.pixFmt {
				t.Errorf("pix_fmt = %s, want %s", got, tt.pixFmt)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"odd size", Params{Width: 3, Height: 2, FPS: 24, Output: "o.mp4"}},
		{"no fps", Params{Width: 2, Height: 2, Output: "o.mp4"}},
		{"no output", Params{Width: 2, Height: 2, FPS: 24}},
		{"empty audio", Params{Width: 2, Height: 2, FPS: 24, Output: "o.mp4",
			Audio: []AudioInput{{Path: "a", Start: time.Second, End: time.Second}}}},
	}
	for _, tt := range tests {
		if err := tt.p.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
	if got := (Params{Width: 4, Height: 2}).FrameSize(); got != 24 {
		t.Errorf("rgb frame size = %d", got)
	}
	if got := (Params{Width: 4, Height: 2, Alpha: true}).FrameSize(); got != 32 {
		t.Errorf("bgra frame size = %d", got)
	}
}

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestProcessPipesStdin(t *testing.T) {
	sh := requireShell(t)
	out := filepath.Join(t.TempDir(), "frames.raw")

	p, err := StartProcess(context.Background(), sh, []string{"-c", `cat > "$0"`, out}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := p.Write([]byte{byte(i), byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Finish(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != string([]byte{0, 0, 1, 1, 2, 2}) {
		t.Errorf("stdin content = %v", b)
	}
}

func TestProcessExitCode(t *testing.T) {
	sh := requireShell(t)
	p, err := StartProcess(context.Background(), sh, []string{"-c", "cat >/dev/null; echo boom >&2; exit 3"}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	err = p.Finish()
	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExitError", err)
	}
	if ee.Code != 3 || ee.Output != "boom" {
		t.Errorf("exit error = %+v", ee)
	}
}

func TestProcessAbort(t *testing.T) {
	sh := requireShell(t)
	p, err := StartProcess(context.Background(), sh, []string{"-c", "exec sleep 30"}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		p.Abort()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("abort did not return")
	}
	if err := p.Finish(); err == nil {
		t.Error("finish after abort should report an error")
	}
}
