package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const encoderListing = `Encoders:
 V..... = Video
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10 (codec h264)
 V....D h264_nvenc           NVIDIA NVENC H.264 encoder (codec h264)
 V....D prores_ks            Apple ProRes (iCodec Pro) (codec prores)
`

func TestPickH264Encoder(t *testing.T) {
	if got := PickH264Encoder(encoderListing).Name; got != "h264_nvenc" {
		t.Errorf("got %s, want h264_nvenc", got)
	}
	if got := PickH264Encoder("").Name; got != "libx264" {
		t.Errorf("empty listing picked %s", got)
	}
	if !HasEncoder(encoderListing, "prores_ks") {
		t.Error("prores_ks should be listed")
	}
	if HasEncoder(encoderListing, "prores") {
		t.Error("partial names must not match")
	}
}

func TestQualityArgs(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"h264_videotoolbox", []string{"-b:v", "2300k"}},
		{"h264_nvenc", []string{"-cq", "23"}},
		{"libx264", []string{"-crf", "23", "-preset", "medium"}},
	}
	for _, tt := range tests {
		got := Encoder{Name: tt.name}.QualityArgs(23)
		if len(got) != len(tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
			}
		}
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.yaml")
	newer := filepath.Join(dir, "NEW.YML")
	for _, p := range []string{old, newer, filepath.Join(dir, "notes.txt")} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	got, err := FindLatestScript(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != newer {
		t.Errorf("got %s, want %s", got, newer)
	}

	if _, err := FindLatestAudio(dir); err == nil {
		t.Error("expected error when no audio files exist")
	}
}

func TestParseSeconds(t *testing.T) {
	d, err := ParseSeconds("12.500000\n")
	if err != nil {
		t.Fatal(err)
	}
	if d != 12500*time.Millisecond {
		t.Errorf("got %v", d)
	}
	if _, err := ParseSeconds("N/A"); err == nil {
		t.Error("expected error for N/A")
	}
}

func TestImagePoolReusesBySize(t *testing.T) {
	p := NewImagePool()
	r := image.Rect(0, 0, 8, 4)
	img := p.Get(r)
	if img.Rect != r {
		t.Fatalf("got rect %v", img.Rect)
	}
	img.Pix[0], img.Pix[3] = 255, 255
	p.Put(img)
	p.Put(image.NewRGBA(image.Rect(0, 0, 3, 3))) // unknown size, dropped

	got := p.Get(r)
	if got.Rect != r {
		t.Errorf("pooled image has rect %v", got.Rect)
	}
	for i, v := range got.Pix {
		if v != 0 {
			t.Fatalf("reused layer not cleared at byte %d", i)
		}
	}
	if got := p.Get(image.Rect(0, 0, 3, 3)); got.Rect.Dx() != 3 {
		t.Errorf("new size has rect %v", got.Rect)
	}
}
